package cmd

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kb-labs/plugins/internal/plugins"
)

// spinner renders a rotating indicator with a label and a status line
// that updates in-place while the package manager is running.
type spinner struct {
	out    io.Writer
	mu     sync.Mutex
	label  string
	detail string
	done   chan struct{}
	quiet  bool
}

func newSpinner(out io.Writer) *spinner { return &spinner{out: out, done: make(chan struct{})} }

// track runs op with mgr's stage and line callbacks bound to a spinner.
// In verbose mode the package manager output is shown as is and only the
// final status is printed.
func track(mgr *plugins.Manager, label string, op func() error) error {
	sp := newSpinner(os.Stdout)
	sp.quiet = mgr.Verbose
	sp.setLabel(label)
	mgr.OnStep = func(step, total int, l string) {
		sp.setLabel(fmt.Sprintf("[%d/%d] %s", step, total, l))
	}
	mgr.OnLine = sp.setDetail

	sp.start()
	err := op()
	sp.stop(err)
	return err
}

func (s *spinner) setLabel(l string) {
	s.mu.Lock()
	s.label = l
	s.mu.Unlock()
}

func (s *spinner) setDetail(d string) {
	r := []rune(d)
	if len(r) > 72 {
		d = string(r[:69]) + "..."
	}
	s.mu.Lock()
	s.detail = d
	s.mu.Unlock()
}

// start launches the render loop in a goroutine.
func (s *spinner) start() {
	if s.quiet {
		return
	}
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	go func() {
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.mu.Lock()
				label, detail := s.label, s.detail
				s.mu.Unlock()

				// \r returns to column 0; \033[K clears to end of line.
				fmt.Fprintf(s.out, "\r\033[K  %s %s\n\r\033[K    %s",
					frames[i%len(frames)], label, dim.Render(detail))
				// Move cursor up one line so next tick overwrites both lines.
				fmt.Fprint(s.out, "\033[1A")
			}
		}
	}()
}

// stop halts the spinner and prints a final status line.
func (s *spinner) stop(err error) {
	close(s.done)
	if !s.quiet {
		time.Sleep(90 * time.Millisecond) // let last frame finish
		// Clear both lines used by the spinner.
		fmt.Fprint(s.out, "\r\033[K\033[1B\r\033[K\033[1A")
	}

	s.mu.Lock()
	label := s.label
	s.mu.Unlock()

	if err == nil {
		ok := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
		fmt.Fprintf(s.out, "  %s %s\n", ok.Render("✓"), label)
	} else {
		bad := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
		fmt.Fprintf(s.out, "  %s %s\n", bad.Render("✗"), label)
	}
}
