package pm

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/kb-labs/plugins/internal/manifest"
	"github.com/kb-labs/plugins/internal/node"
)

// Pinned versions of the npm and yarn packages the clients run. Empty skips
// the check; release builds set them with
// -ldflags "-X github.com/kb-labs/plugins/internal/pm.PinnedNPMVersion=10.9.2".
var (
	PinnedNPMVersion  string
	PinnedYarnVersion string
)

// PackageBin is a resolved entry script and the version of the package that
// declares it.
type PackageBin struct {
	Path    string
	Version string
}

// FindPackageBin resolves the entry script named bin of package pkg the way
// node resolves a dependency: <dir>/node_modules/<pkg>/package.json for dir
// = root and each of its ancestors. The script path is the package
// directory joined with the declared bin entry.
func FindPackageBin(root, pkg, bin string) (string, error) {
	b, err := findPackageBin(root, pkg, bin, "", os.ReadFile)
	return b.Path, err
}

// findPackageBin is FindPackageBin that also reports the package version.
// A non-empty want must match it exactly.
func findPackageBin(root, pkg, bin, want string, readFile func(string) ([]byte, error)) (PackageBin, error) {
	fail := func(err error) (PackageBin, error) {
		return PackageBin{}, &BinaryResolutionError{Package: pkg, Root: root, Err: err}
	}

	pjsonPath, err := lookupPackageJSON(root, pkg)
	if err != nil {
		return fail(err)
	}
	data, err := readFile(pjsonPath)
	if err != nil {
		return fail(err)
	}
	m, err := manifest.Parse(data)
	if err != nil {
		return fail(fmt.Errorf("%s: %w", pjsonPath, err))
	}
	if want != "" && m.Version != want {
		return fail(fmt.Errorf("%s is version %q, want %q", pjsonPath, m.Version, want))
	}
	entry, ok := m.Bin.Entry(bin)
	if !ok || entry == "" {
		return fail(fmt.Errorf("%s declares no %q bin", pjsonPath, bin))
	}
	return PackageBin{Path: filepath.Join(filepath.Dir(pjsonPath), entry), Version: m.Version}, nil
}

func lookupPackageJSON(root, pkg string) (string, error) {
	dir, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, "node_modules", filepath.FromSlash(pkg), manifest.FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("package %s not found: %w", pkg, os.ErrNotExist)
		}
		dir = parent
	}
}

// launcher holds what both clients share: lazy, per-instance resolution of
// the node runtime and the pinned entry script, and child command creation.
type launcher struct {
	execCommand ExecCommandFunc
	readFile    func(string) ([]byte, error)
	findNode    func(root string) (string, error)

	pkg  string
	name string
	root string
	pin  string

	// resolved once per instance
	node    string
	bin     string
	version string
}

func newLauncher(pkg, name, root, pin string) launcher {
	return launcher{
		execCommand: exec.CommandContext,
		readFile:    os.ReadFile,
		findNode:    node.Find,
		pkg:         pkg,
		name:        name,
		root:        root,
		pin:         pin,
	}
}

// resolve returns the node runtime and entry script, resolving each at most
// once for the lifetime of the launcher.
func (l *launcher) resolve() (nodePath, bin string, err error) {
	if l.bin == "" {
		b, err := findPackageBin(l.root, l.pkg, l.name, l.pin, l.readFile)
		if err != nil {
			return "", "", err
		}
		l.bin, l.version = b.Path, b.Version
	}
	if l.node == "" {
		n, err := l.findNode(l.root)
		if err != nil {
			return "", "", err
		}
		l.node = n
	}
	return l.node, l.bin, nil
}

func (l *launcher) command(ctx context.Context, cwd string, args []string) (*exec.Cmd, error) {
	nodePath, bin, err := l.resolve()
	if err != nil {
		return nil, err
	}
	cmd := l.execCommand(ctx, nodePath, append([]string{bin}, args...)...)
	cmd.Dir = cwd
	return cmd, nil
}
