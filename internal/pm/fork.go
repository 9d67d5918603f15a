package pm

import (
	"bufio"
	"errors"
	"io"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"
)

const maxLineSize = 1 << 20

// lineHandlers receive child output line by line as it arrives.
type lineHandlers struct {
	stdout func(line string)
	stderr func(line string)
}

// fork starts cmd, pumps both output streams through h while collecting
// them, and waits for exit. Line length never fails an invocation. bin and args name the invocation in errors.
// Start failures are returned unmodified.
func fork(cmd *exec.Cmd, bin string, args []string, h lineHandlers) (*Output, error) {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var outBuf, errBuf strings.Builder
	var g errgroup.Group
	g.Go(func() error { return pump(stdout, &outBuf, h.stdout) })
	g.Go(func() error { return pump(stderr, &errBuf, h.stderr) })
	pumpErr := g.Wait()
	waitErr := cmd.Wait()

	out := &Output{
		Stdout:   outBuf.String(),
		Stderr:   errBuf.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return out, &ExitError{
			Err:       exitErr,
			Bin:       bin,
			Args:      args,
			Code:      exitErr.ExitCode(),
			Transient: classify(out.Stdout, out.Stderr),
		}
	}
	if waitErr != nil {
		return out, waitErr
	}
	if pumpErr != nil {
		return out, pumpErr
	}
	return out, nil
}

// pump copies r into buf verbatim and hands each line to fn. Lines longer
// than maxLineSize reach fn cut to that size; buf always gets the full stream.
func pump(r io.Reader, buf *strings.Builder, fn func(string)) error {
	br := bufio.NewReaderSize(io.TeeReader(r, buf), 64*1024)
	var line []byte
	for {
		chunk, more, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if room := maxLineSize - len(line); room > 0 {
			line = append(line, chunk[:min(len(chunk), room)]...)
		}
		if more {
			continue
		}
		if fn != nil {
			fn(string(line))
		}
		line = line[:0]
	}
}
