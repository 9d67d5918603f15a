package pm

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kb-labs/plugins/internal/logger"
)

// networkConcurrency throttles yarn to one request at a time. It works
// around yarn failing with EAI_AGAIN under parallel lookups
// (https://github.com/yarnpkg/yarn/issues/2191).
const networkConcurrency = "--network-concurrency=1"

// Yarn runs the yarn classic release pinned in the CLI's node_modules.
// Invocations are serialized across processes through yarn's --mutex.
type Yarn struct {
	launcher
	log    *logger.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	retry  RetryPolicy
	opts   Options
}

// NewYarn returns a yarn client. log may be nil.
func NewYarn(opts Options, log *logger.Logger) *Yarn {
	if log == nil {
		log = logger.NewDiscard()
	}
	y := &Yarn{
		launcher: newLauncher("yarn", "yarn", opts.Root, PinnedYarnVersion),
		log:      log,
		stdin:    os.Stdin,
		stdout:   opts.Stdout,
		stderr:   opts.Stderr,
		opts:     opts,
	}
	if y.stdout == nil {
		y.stdout = os.Stdout
	}
	if y.stderr == nil {
		y.stderr = os.Stderr
	}
	y.retry = RetryPolicy{
		MaxAttempts: 2,
		Retryable: func(err error) bool {
			if IsTransientNetwork(err) {
				y.log.Debugf("EAI_AGAIN")
				return true
			}
			return false
		},
		Adjust: throttleNetwork,
	}
	return y
}

func (y *Yarn) Name() string { return "yarn" }

// Install adds the named packages, or installs the lockfile when args is empty.
func (y *Yarn) Install(ctx context.Context, args []string, opts InstallOptions) (*Output, error) {
	if len(args) == 0 {
		cmd := []string{"install"}
		if opts.Prod {
			cmd = append(cmd, "--production")
		}
		return y.Exec(ctx, cmd, opts.ExecOptions)
	}
	return y.Exec(ctx, append([]string{"add"}, args...), opts.ExecOptions)
}

func (y *Yarn) Uninstall(ctx context.Context, args []string, opts ExecOptions) (*Output, error) {
	return y.Exec(ctx, append([]string{"remove"}, args...), opts)
}

func (y *Yarn) Update(ctx context.Context, args []string, opts ExecOptions) (*Output, error) {
	return y.Exec(ctx, append([]string{"upgrade"}, args...), opts)
}

// View runs yarn info quietly.
func (y *Yarn) View(ctx context.Context, args []string, opts ExecOptions) (*Output, error) {
	opts.Verbose = false
	return y.Exec(ctx, append([]string{"info"}, args...), opts)
}

// Exec runs yarn in opts.Cwd. Except for "run", every invocation is made
// non-interactive and serialized with a mutex. A transient DNS failure is
// retried once with network concurrency throttled to one.
func (y *Yarn) Exec(ctx context.Context, args []string, opts ExecOptions) (*Output, error) {
	if len(args) == 0 || args[0] != "run" {
		args = y.withGlobalFlags(args, opts)
	}
	return y.retry.Run(ctx, args, func(args []string) (*Output, error) {
		return y.fork(ctx, args, opts)
	})
}

func (y *Yarn) fork(ctx context.Context, args []string, opts ExecOptions) (*Output, error) {
	cmd, err := y.command(ctx, opts.Cwd, args)
	if err != nil {
		return nil, err
	}
	y.log.Debugf("yarn binary path %s (version %s)", y.bin, y.version)
	cmd.Env = runPathEnv(opts.Cwd, y.node, os.Environ())
	cmd.Stdin = y.stdin

	line := fmt.Sprintf("%s: %s %s", opts.Cwd, y.bin, strings.Join(args, " "))
	if opts.Verbose {
		fmt.Fprintln(y.stderr, line)
	}
	y.log.Debugf("%s", line)

	status := progressTo(opts.Progress, false)
	out, err := fork(cmd, y.bin, args, lineHandlers{
		stdout: func(l string) {
			if opts.Verbose {
				fmt.Fprintln(y.stdout, l)
				return
			}
			status(l)
		},
		stderr: func(l string) {
			fmt.Fprintln(y.stderr, l)
		},
	})
	if err != nil {
		y.log.Debugf("yarn error: %v", err)
		return out, err
	}
	y.log.Debugf("yarn done")
	return out, nil
}

func (y *Yarn) withGlobalFlags(args []string, opts ExecOptions) []string {
	args = slices.Clone(args)
	args = append(args,
		"--non-interactive",
		"--mutex="+y.mutex(opts.Cwd),
		"--preferred-cache-folder="+filepath.Join(y.opts.CacheDir, "yarn"),
		"--check-files",
	)
	if opts.Verbose {
		args = append(args, "--verbose")
	}
	if y.opts.Registry != "" {
		args = append(args, "--registry="+y.opts.Registry)
	}
	return args
}

// mutex returns the --mutex value: a lockfile in cwd unless a network mutex
// is configured (default port 31997).
func (y *Yarn) mutex(cwd string) string {
	if !y.opts.UseNetworkMutex {
		return "file:" + filepath.Join(cwd, "yarn.lock")
	}
	if y.opts.NetworkMutexPort != "" {
		return "network:" + y.opts.NetworkMutexPort
	}
	return "network"
}

func throttleNetwork(args []string) ([]string, bool) {
	if slices.Contains(args, networkConcurrency) {
		return nil, false
	}
	return append(slices.Clone(args), networkConcurrency), true
}
