// Package pm runs the pinned npm and yarn package managers on behalf of the
// plugin commands. Both clients resolve their entry script from the CLI's own
// node_modules, fork it with the node runtime found by package node, and
// return the collected output or a typed error.
package pm

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"slices"
)

// LogLevel is the npm log level vocabulary, least to most verbose.
type LogLevel string

const (
	LogLevelSilent  LogLevel = "silent"
	LogLevelError   LogLevel = "error"
	LogLevelWarn    LogLevel = "warn"
	LogLevelNotice  LogLevel = "notice"
	LogLevelHTTP    LogLevel = "http"
	LogLevelInfo    LogLevel = "info"
	LogLevelVerbose LogLevel = "verbose"
	LogLevelSilly   LogLevel = "silly"
)

var logLevels = []LogLevel{
	LogLevelSilent, LogLevelError, LogLevelWarn, LogLevelNotice,
	LogLevelHTTP, LogLevelInfo, LogLevelVerbose, LogLevelSilly,
}

// ParseLogLevel validates s as a LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	l := LogLevel(s)
	if !slices.Contains(logLevels, l) {
		return "", fmt.Errorf("invalid log level %q (want one of %v)", s, logLevels)
	}
	return l, nil
}

// EchoesCommand reports whether invocations at this level print the full
// command line before running.
func (l LogLevel) EchoesCommand() bool {
	return l != LogLevelSilent && l != LogLevelNotice
}

// Progress is one line of child output, streamed while the command runs.
type Progress struct {
	Line   string
	Stderr bool
}

// ExecOptions apply to a single invocation.
type ExecOptions struct {
	// Progress, if set, receives output lines while the child runs. The
	// channel is not closed by the package manager.
	Progress chan<- Progress
	// Cwd is the working directory of the child.
	Cwd string
	// LogLevel controls command echoing for npm.
	LogLevel LogLevel
	// Verbose makes yarn pass --verbose and forward its stdout.
	Verbose bool
}

// InstallOptions extend ExecOptions for Install.
type InstallOptions struct {
	ExecOptions
	// Prod skips devDependencies.
	Prod bool
}

// Output is what a finished child wrote, with its exit code.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// PackageManager is the operation set shared by the npm and yarn clients.
// Every method blocks until the child process exits.
type PackageManager interface {
	// Name returns "npm" or "yarn".
	Name() string
	Install(ctx context.Context, args []string, opts InstallOptions) (*Output, error)
	Uninstall(ctx context.Context, args []string, opts ExecOptions) (*Output, error)
	Update(ctx context.Context, args []string, opts ExecOptions) (*Output, error)
	// View queries registry metadata; it never echoes diagnostics.
	View(ctx context.Context, args []string, opts ExecOptions) (*Output, error)
}

// ExecCommandFunc creates the child command. Tests replace it.
type ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

// Options configure a client for its lifetime.
type Options struct {
	// Stdout and Stderr receive forwarded child output and echoed command
	// lines. They default to os.Stdout and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
	// Root is the CLI install root: the pinned package managers are
	// resolved from its node_modules and a bundled node is looked up under it.
	Root string
	// Registry, when set, is passed as --registry.
	Registry string
	// CacheDir is the host cache root; yarn caches under CacheDir/yarn.
	CacheDir string
	// NetworkMutexPort overrides the default yarn network mutex port.
	NetworkMutexPort string
	// LogLevel is passed to npm as --loglevel.
	LogLevel LogLevel
	// UseNetworkMutex selects yarn's network mutex instead of a lockfile mutex.
	UseNetworkMutex bool
}
