package pm

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/kb-labs/plugins/internal/logger"
)

// NPM runs the npm release pinned in the CLI's node_modules.
type NPM struct {
	launcher
	log    *logger.Logger
	stderr io.Writer
	opts   Options
}

// NewNPM returns an npm client. log may be nil.
func NewNPM(opts Options, log *logger.Logger) *NPM {
	if log == nil {
		log = logger.NewDiscard()
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	if opts.LogLevel == "" {
		opts.LogLevel = LogLevelNotice
	}
	return &NPM{
		launcher: newLauncher("npm", "npm", opts.Root, PinnedNPMVersion),
		log:      log,
		stderr:   stderr,
		opts:     opts,
	}
}

func (n *NPM) Name() string { return "npm" }

// Install runs npm install. With opts.Prod devDependencies are omitted.
func (n *NPM) Install(ctx context.Context, args []string, opts InstallOptions) (*Output, error) {
	return n.Exec(ctx, installArgs(args, opts.Prod), opts.ExecOptions)
}

func (n *NPM) Uninstall(ctx context.Context, args []string, opts ExecOptions) (*Output, error) {
	return n.Exec(ctx, append([]string{"uninstall"}, args...), opts)
}

func (n *NPM) Update(ctx context.Context, args []string, opts ExecOptions) (*Output, error) {
	return n.Exec(ctx, append([]string{"update"}, args...), opts)
}

// View runs npm view. The invocation is never echoed whatever opts.LogLevel says.
func (n *NPM) View(ctx context.Context, args []string, opts ExecOptions) (*Output, error) {
	opts.LogLevel = LogLevelSilent
	return n.Exec(ctx, append([]string{"view"}, args...), opts)
}

// Exec runs npm with args followed by the client-wide flags. Failures to
// resolve, spawn, or a non-zero exit are returned as is.
func (n *NPM) Exec(ctx context.Context, args []string, opts ExecOptions) (*Output, error) {
	args = n.withGlobalFlags(args)

	cmd, err := n.command(ctx, opts.Cwd, args)
	if err != nil {
		return nil, err
	}
	n.log.Debugf("npm binary path %s (version %s)", n.bin, n.version)

	line := fmt.Sprintf("%s: %s %s", opts.Cwd, n.bin, strings.Join(args, " "))
	if opts.LogLevel.EchoesCommand() {
		fmt.Fprintln(n.stderr, line)
	}
	n.log.Debugf("%s", line)

	out, err := fork(cmd, n.bin, args, lineHandlers{
		stdout: progressTo(opts.Progress, false),
		stderr: func(l string) {
			n.log.Debugf("npm: %s", l)
			progressTo(opts.Progress, true)(l)
		},
	})
	if err != nil {
		n.log.Debugf("npm error: %v", err)
		return out, err
	}
	n.log.Debugf("npm done")
	return out, nil
}

func (n *NPM) withGlobalFlags(args []string) []string {
	args = slices.Clone(args)
	args = append(args, "--loglevel="+string(n.opts.LogLevel), "--no-fund")
	if n.opts.Registry != "" {
		args = append(args, "--registry="+n.opts.Registry)
	}
	return args
}

func installArgs(args []string, prod bool) []string {
	out := append([]string{"install"}, args...)
	if prod {
		out = append(out, "--omit", "dev")
	}
	return append(out, "--no-audit")
}

// progressTo returns a line handler that forwards non-blank lines to ch.
func progressTo(ch chan<- Progress, stderr bool) func(string) {
	return func(line string) {
		if ch == nil || strings.TrimSpace(line) == "" {
			return
		}
		ch <- Progress{Line: line, Stderr: stderr}
	}
}
