// Package node locates the node runtime used to run package-manager entry
// scripts. A CLI shipped by a platform installer or tarball carries its own
// node under <root>/bin or <root>/client/bin; otherwise the node found on
// PATH is used.
package node

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
)

// ExecutableName is the canonical name of the runtime binary.
const ExecutableName = "node"

// ErrCannotFindNodeExecutable is the sentinel wrapped by NotFoundError.
var ErrCannotFindNodeExecutable = errors.New("cannot locate node executable")

// NotFoundError is returned by Find when no runtime could be located.
type NotFoundError struct {
	Root string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Cannot locate node executable (searched %s and PATH).", e.Root)
}

// Name returns the stable tag callers use to tell this failure apart.
func (e *NotFoundError) Name() string { return "CannotFindNodeExecutable" }

func (e *NotFoundError) Unwrap() error { return ErrCannotFindNodeExecutable }

// Test seams.
var (
	lookPath     = exec.LookPath
	evalSymlinks = filepath.EvalSymlinks
)

// CandidateDirs returns the directories under root searched before PATH.
func CandidateDirs(root string) []string {
	return []string{
		filepath.Join(root, "bin"),
		filepath.Join(root, "client", "bin"),
	}
}

// Find returns the path to the node executable for a CLI installed at root.
// Bundled binaries are returned with symlinks resolved.
func Find(root string) (string, error) {
	for _, dir := range CandidateDirs(root) {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if found := findIn(dir); found != "" {
			real, err := evalSymlinks(found)
			if err != nil {
				return "", fmt.Errorf("resolve %s: %w", found, err)
			}
			return real, nil
		}
	}

	if p, err := lookPath(ExecutableName); err == nil && p != "" {
		return p, nil
	}

	return "", &NotFoundError{Root: root}
}

// findIn walks dir and returns the first executable runtime, or "".
func findIn(dir string) string {
	var found string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable entries are skipped, not fatal
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if isExecutable(path) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	return found
}
