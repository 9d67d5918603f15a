//go:build !windows

package node

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

// isExecutable reports whether path is a runtime binary the current user may
// execute. A failed access check means "not executable".
func isExecutable(path string) bool {
	if filepath.Base(path) != ExecutableName {
		return false
	}
	return unix.Access(path, unix.X_OK) == nil
}
