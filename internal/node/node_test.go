//go:build !windows

package node

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), mode))
}

func stubLookPath(t *testing.T, fn func(string) (string, error)) {
	t.Helper()
	orig := lookPath
	lookPath = fn
	t.Cleanup(func() { lookPath = orig })
}

func notOnPath(string) (string, error) { return "", exec.ErrNotFound }

func TestFindBundledInBin(t *testing.T) {
	stubLookPath(t, notOnPath)
	root := t.TempDir()
	want := filepath.Join(root, "bin", "node")
	writeFile(t, want, 0o755)

	got, err := Find(root)
	require.NoError(t, err)

	wantReal, err := filepath.EvalSymlinks(want)
	require.NoError(t, err)
	assert.Equal(t, wantReal, got)
}

func TestFindBundledInClientBin(t *testing.T) {
	stubLookPath(t, notOnPath)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "client", "bin", "node"), 0o755)

	got, err := Find(root)
	require.NoError(t, err)
	assert.Equal(t, "node", filepath.Base(got))
}

func TestFindResolvesSymlink(t *testing.T) {
	stubLookPath(t, notOnPath)
	root := t.TempDir()
	target := filepath.Join(root, "runtime", "node")
	writeFile(t, target, 0o755)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "bin"), 0o755))
	require.NoError(t, os.Symlink(target, filepath.Join(root, "bin", "node")))

	got, err := Find(root)
	require.NoError(t, err)

	wantReal, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	assert.Equal(t, wantReal, got)
}

func TestFindSkipsNonExecutable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses the execute permission check")
	}
	stubLookPath(t, func(string) (string, error) { return "/usr/bin/node", nil })
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "bin", "node"), 0o644)

	got, err := Find(root)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/node", got)
}

func TestFindIgnoresOtherNames(t *testing.T) {
	stubLookPath(t, func(string) (string, error) { return "/opt/node/bin/node", nil })
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "bin", "run"), 0o755)
	writeFile(t, filepath.Join(root, "bin", "nodejs-helper"), 0o755)

	got, err := Find(root)
	require.NoError(t, err)
	assert.Equal(t, "/opt/node/bin/node", got)
}

func TestFindFallsBackToPath(t *testing.T) {
	var asked string
	stubLookPath(t, func(name string) (string, error) {
		asked = name
		return "/usr/local/bin/node", nil
	})

	got, err := Find(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/node", got)
	assert.Equal(t, ExecutableName, asked)
}

func TestFindNotFound(t *testing.T) {
	stubLookPath(t, notOnPath)

	_, err := Find(t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCannotFindNodeExecutable)

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "CannotFindNodeExecutable", nf.Name())
}
