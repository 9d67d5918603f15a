package pm

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kb-labs/plugins/internal/logger"
)

// TestNPMInstallProd verifies that a production install omits devDependencies and runs
// the pinned npm under node in the requested directory.
func TestNPMInstallProd(t *testing.T) {
	rec := &recorder{}
	n, _ := newTestNPM(Options{}, rec)
	cwd := t.TempDir()

	_, err := n.Install(context.Background(), []string{"@kb-labs/plugin-mind@1.2.0"}, InstallOptions{
		ExecOptions: ExecOptions{Cwd: cwd, LogLevel: LogLevelNotice},
		Prod:        true,
	})
	require.NoError(t, err)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, fakeNode, rec.calls[0].name)
	assert.Equal(t, []string{
		fakeNpm, "install", "@kb-labs/plugin-mind@1.2.0", "--omit", "dev", "--no-audit",
		"--loglevel=notice", "--no-fund",
	}, rec.calls[0].args)
}

// TestNPMInstallNotProd verifies that a plain install passes no --omit flag.
func TestNPMInstallNotProd(t *testing.T) {
	rec := &recorder{}
	n, _ := newTestNPM(Options{}, rec)

	_, err := n.Install(context.Background(), []string{"a", "b"}, InstallOptions{
		ExecOptions: ExecOptions{Cwd: t.TempDir()},
	})
	require.NoError(t, err)

	args := rec.calls[0].args
	assert.NotContains(t, args, "--omit")
	assert.Contains(t, args, "--no-audit")
	assert.Equal(t, []string{"install", "a", "b", "--no-audit"}, args[1:5])
}

// TestNPMRegistryAndLogLevel verifies that the client-wide log level and registry follow the
// command arguments.
func TestNPMRegistryAndLogLevel(t *testing.T) {
	rec := &recorder{}
	n, _ := newTestNPM(Options{Registry: "https://npm.example.com", LogLevel: LogLevelWarn}, rec)

	_, err := n.Uninstall(context.Background(), []string{"old-plugin"}, ExecOptions{Cwd: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, []string{
		fakeNpm, "uninstall", "old-plugin", "--loglevel=warn", "--no-fund", "--registry=https://npm.example.com",
	}, rec.calls[0].args)
}

// TestNPMUpdate verifies that Update runs "npm update".
func TestNPMUpdate(t *testing.T) {
	rec := &recorder{}
	n, _ := newTestNPM(Options{}, rec)

	_, err := n.Update(context.Background(), nil, ExecOptions{Cwd: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "update", rec.calls[0].args[1])
}

// TestNPMEchoesCommandAboveNotice verifies that the command line is echoed to stderr when the
// log level is more verbose than notice.
func TestNPMEchoesCommandAboveNotice(t *testing.T) {
	rec := &recorder{}
	n, stderr := newTestNPM(Options{}, rec)
	cwd := t.TempDir()

	_, err := n.Install(context.Background(), []string{"x"}, InstallOptions{
		ExecOptions: ExecOptions{Cwd: cwd, LogLevel: LogLevelVerbose},
	})
	require.NoError(t, err)
	assert.Contains(t, stderr.String(), cwd+": "+fakeNpm+" install x")

	stderr.Reset()
	_, err = n.Install(context.Background(), []string{"x"}, InstallOptions{
		ExecOptions: ExecOptions{Cwd: cwd, LogLevel: LogLevelNotice},
	})
	require.NoError(t, err)
	assert.Empty(t, stderr.String())
}

// TestNPMViewForcesSilent verifies that View runs silently whatever log level was asked
// for and returns the JSON on stdout.
func TestNPMViewForcesSilent(t *testing.T) {
	rec := &recorder{runs: []fakeRun{{stdout: `{"name":"x","version":"1.0.0"}`}}}
	n, stderr := newTestNPM(Options{}, rec)

	out, err := n.View(context.Background(), []string{"x", "--json"}, ExecOptions{
		Cwd:      t.TempDir(),
		LogLevel: LogLevelSilly,
	})
	require.NoError(t, err)
	assert.Empty(t, stderr.String())
	assert.Contains(t, out.Stdout, `"version":"1.0.0"`)
	assert.Equal(t, []string{"view", "x", "--json"}, rec.calls[0].args[1:4])
}

// TestNPMNonZeroExit verifies that a non-zero exit comes back as an ExitError that
// still carries the collected output.
func TestNPMNonZeroExit(t *testing.T) {
	rec := &recorder{runs: []fakeRun{{code: 3, stderr: "npm ERR! 404 Not Found"}}}
	n, _ := newTestNPM(Options{}, rec)

	out, err := n.Install(context.Background(), []string{"missing"}, InstallOptions{
		ExecOptions: ExecOptions{Cwd: t.TempDir()},
	})
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, fakeNpm, exitErr.Bin)
	assert.Contains(t, err.Error(), fakeNpm+" install missing")
	assert.Contains(t, err.Error(), "exited with code 3")
	assert.False(t, IsTransientNetwork(err))

	require.NotNil(t, out)
	assert.Equal(t, 3, out.ExitCode)
	assert.Contains(t, out.Stderr, "404 Not Found")
}

// TestNPMStreamsProgress verifies that stdout and stderr lines reach the progress channel
// tagged with their stream.
func TestNPMStreamsProgress(t *testing.T) {
	rec := &recorder{runs: []fakeRun{{stdout: "added 3 packages", stderr: "npm WARN deprecated"}}}
	n, _ := newTestNPM(Options{}, rec)
	ch := make(chan Progress, 8)

	_, err := n.Install(context.Background(), []string{"x"}, InstallOptions{
		ExecOptions: ExecOptions{Cwd: t.TempDir(), Progress: ch},
	})
	require.NoError(t, err)
	close(ch)

	var lines []Progress
	for p := range ch {
		lines = append(lines, p)
	}
	assert.ElementsMatch(t, []Progress{
		{Line: "added 3 packages"},
		{Line: "npm WARN deprecated", Stderr: true},
	}, lines)
}

// TestNPMLongLine verifies that a stdout line past the pump limit neither
// fails a successful run nor truncates the collected output.
func TestNPMLongLine(t *testing.T) {
	rec := &recorder{runs: []fakeRun{{stdout: "@long"}}}
	n, _ := newTestNPM(Options{}, rec)
	ch := make(chan Progress, 8)

	out, err := n.View(context.Background(), []string{"x", "--json"}, ExecOptions{Cwd: t.TempDir(), Progress: ch})
	require.NoError(t, err)
	close(ch)

	assert.Len(t, out.Stdout, longLineSize+len("\ndone\n"))
	assert.True(t, strings.HasSuffix(out.Stdout, "x\ndone\n"))

	var lines []string
	for p := range ch {
		lines = append(lines, p.Line)
	}
	require.Len(t, lines, 2)
	assert.Len(t, lines[0], maxLineSize)
	assert.Equal(t, "done", lines[1])
}

// TestNPMSpawnErrorPropagates verifies that a failure to start the child is returned
// unwrapped.
func TestNPMSpawnErrorPropagates(t *testing.T) {
	n, _ := newTestNPM(Options{}, &recorder{})
	n.execCommand = func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		return exec.CommandContext(ctx, filepath.Join(t.TempDir(), "no-such-node"))
	}

	_, err := n.Install(context.Background(), nil, InstallOptions{ExecOptions: ExecOptions{Cwd: t.TempDir()}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist), "got %v", err)

	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr))
}

func writePinned(t *testing.T, root, pkg, pjson string) {
	t.Helper()
	dir := filepath.Join(root, "node_modules", pkg)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(pjson), 0o644))
}

// TestNPMResolvesBinaryOnce verifies that node and the npm entry script are looked up
// once per client however many commands run.
func TestNPMResolvesBinaryOnce(t *testing.T) {
	root := t.TempDir()
	writePinned(t, root, "npm", `{"name":"npm","version":"10.9.2","bin":{"npm":"bin/npm-cli.js","npx":"bin/npx-cli.js"}}`)

	rec := &recorder{}
	n := NewNPM(Options{Root: root, Stderr: &strings.Builder{}}, nil)
	n.execCommand = rec.execCommand

	reads := 0
	n.readFile = func(p string) ([]byte, error) {
		reads++
		return os.ReadFile(p)
	}
	nodeLookups := 0
	n.findNode = func(string) (string, error) {
		nodeLookups++
		return fakeNode, nil
	}

	for range 3 {
		_, err := n.Update(context.Background(), nil, ExecOptions{Cwd: t.TempDir()})
		require.NoError(t, err)
	}

	assert.Equal(t, 1, reads)
	assert.Equal(t, 1, nodeLookups)
	require.Len(t, rec.calls, 3)
	want := filepath.Join(root, "node_modules", "npm", "bin", "npm-cli.js")
	for _, c := range rec.calls {
		assert.Equal(t, want, c.args[0])
	}
}

// TestNPMLogsBinaryVersion verifies that the resolved npm version is logged
// next to the binary path.
func TestNPMLogsBinaryVersion(t *testing.T) {
	root := t.TempDir()
	writePinned(t, root, "npm", `{"name":"npm","version":"10.9.2","bin":{"npm":"bin/npm-cli.js"}}`)

	var logBuf bytes.Buffer
	log := logger.NewWriter(&logBuf)
	log.SetLevel("verbose")
	n := NewNPM(Options{Root: root, Stderr: &strings.Builder{}}, log)
	n.execCommand = (&recorder{}).execCommand
	n.findNode = func(string) (string, error) { return fakeNode, nil }

	_, err := n.Update(context.Background(), nil, ExecOptions{Cwd: t.TempDir()})
	require.NoError(t, err)
	assert.Contains(t, logBuf.String(), "npm binary path "+filepath.Join(root, "node_modules", "npm", "bin", "npm-cli.js")+" (version 10.9.2)")
}

// TestNPMResolutionFailure verifies that a missing npm package fails before anything
// is spawned.
func TestNPMResolutionFailure(t *testing.T) {
	rec := &recorder{}
	n := NewNPM(Options{Root: t.TempDir()}, nil)
	n.execCommand = rec.execCommand
	n.findNode = func(string) (string, error) { return fakeNode, nil }

	_, err := n.Install(context.Background(), nil, InstallOptions{ExecOptions: ExecOptions{Cwd: t.TempDir()}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBinaryResolution)
	assert.Empty(t, rec.calls)
}

// TestParseLogLevel verifies that known level names parse and only levels above
// notice echo the command.
func TestParseLogLevel(t *testing.T) {
	l, err := ParseLogLevel("http")
	require.NoError(t, err)
	assert.Equal(t, LogLevelHTTP, l)
	assert.True(t, l.EchoesCommand())
	assert.False(t, LogLevelNotice.EchoesCommand())
	assert.False(t, LogLevelSilent.EchoesCommand())

	_, err = ParseLogLevel("loud")
	assert.Error(t, err)
}
