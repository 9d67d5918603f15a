package pm

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"testing"
)

// helperMarker tells TestHelperProcess it was started by a recorder.
const helperMarker = "kb-plugins-helper"

// longLineSize is past the per-line limit of the output pump. The helper
// builds the line itself since it would not fit in argv.
const longLineSize = maxLineSize + 4096

const (
	fakeNode = "/cli/bin/node"
	fakeNpm  = "/cli/node_modules/npm/bin/npm-cli.js"
	fakeYarn = "/cli/node_modules/yarn/bin/yarn.js"
)

type (
	// fakeRun is what one simulated child prints and how it exits.
	// A stdout of "@env" prints PATH and NODE_OPTIONS instead, and "@long"
	// prints one line of longLineSize bytes followed by "done".
	fakeRun struct {
		stdout string
		stderr string
		code   int
	}

	invocation struct {
		name string
		args []string
	}

	// recorder replaces execCommand. Each call is recorded and re-executes
	// the test binary as TestHelperProcess, which replays runs[i] (the last
	// run repeats once the list is exhausted).
	recorder struct {
		runs  []fakeRun
		calls []invocation
	}
)

func (r *recorder) execCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	var run fakeRun
	if len(r.runs) > 0 {
		run = r.runs[min(len(r.calls), len(r.runs)-1)]
	}
	r.calls = append(r.calls, invocation{name: name, args: args})

	cs := []string{"-test.run=TestHelperProcess", "--", helperMarker, strconv.Itoa(run.code), run.stdout, run.stderr}
	return exec.CommandContext(ctx, os.Args[0], cs...) //nolint:gosec // test helper re-exec
}

// TestHelperProcess is not a real test. It is the child process started by
// recorder.execCommand.
func TestHelperProcess(t *testing.T) {
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 5 || args[1] != helperMarker {
		return
	}
	code, _ := strconv.Atoi(args[2])
	switch args[3] {
	case "":
	case "@env":
		fmt.Fprintf(os.Stdout, "PATH=%s\nNODE_OPTIONS=%s\n", os.Getenv("PATH"), os.Getenv("NODE_OPTIONS"))
	case "@long":
		fmt.Fprintln(os.Stdout, strings.Repeat("x", longLineSize))
		fmt.Fprintln(os.Stdout, "done")
	default:
		fmt.Fprintln(os.Stdout, args[3])
	}
	if args[4] != "" {
		fmt.Fprintln(os.Stderr, args[4])
	}
	os.Exit(code)
}

func newTestNPM(opts Options, rec *recorder) (*NPM, *bytes.Buffer) {
	var stderr bytes.Buffer
	opts.Stderr = &stderr
	n := NewNPM(opts, nil)
	n.execCommand = rec.execCommand
	n.node = fakeNode
	n.bin = fakeNpm
	return n, &stderr
}

type yarnStreams struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func newTestYarn(opts Options, rec *recorder) (*Yarn, *yarnStreams) {
	s := &yarnStreams{}
	opts.Stdout = &s.stdout
	opts.Stderr = &s.stderr
	y := NewYarn(opts, nil)
	y.execCommand = rec.execCommand
	y.stdin = nil
	y.node = fakeNode
	y.bin = fakeYarn
	return y, s
}
