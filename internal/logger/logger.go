// Package logger provides a dual-output logger that writes to both stderr
// and a timestamped log file inside the data directory.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

const logsDir = "logs"

// Logger writes to both stderr and a log file simultaneously.
type Logger struct {
	w    io.Writer
	file *os.File
	l    *log.Logger
}

// New creates a logger that writes to stderr and to <dataDir>/logs/plugins-<ts>.log.
func New(dataDir string) (*Logger, error) {
	dir := filepath.Join(dataDir, logsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}

	ts := time.Now().Format("20060102-150405")
	logPath := filepath.Join(dir, fmt.Sprintf("plugins-%s.log", ts))

	f, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	lg := newWithWriter(io.MultiWriter(os.Stderr, f))
	lg.file = f
	return lg, nil
}

// NewWriter returns a logger writing only to w.
func NewWriter(w io.Writer) *Logger {
	return newWithWriter(w)
}

// NewDiscard returns a logger that drops everything.
func NewDiscard() *Logger {
	return newWithWriter(io.Discard)
}

func newWithWriter(w io.Writer) *Logger {
	l := log.NewWithOptions(w, log.Options{
		Prefix: "kb-plugins",
		Level:  log.InfoLevel,
	})
	return &Logger{w: w, l: l}
}

// SetLevel sets the threshold from a package-manager log level name
// (silent, error, warn, notice, http, info, verbose, silly).
func (l *Logger) SetLevel(name string) {
	l.l.SetLevel(LevelFor(name))
}

// LevelFor maps a package-manager log level name to a logger level.
// Unknown names map to info.
func LevelFor(name string) log.Level {
	switch name {
	case "silent":
		return log.FatalLevel
	case "error":
		return log.ErrorLevel
	case "warn":
		return log.WarnLevel
	case "verbose", "silly":
		return log.DebugLevel
	default:
		return log.InfoLevel
	}
}

// LogPath returns the path of the current log file, or empty string if discarded.
func (l *Logger) LogPath() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

// Write implements io.Writer by forwarding to the underlying writer.
func (l *Logger) Write(p []byte) (n int, err error) {
	return l.w.Write(p)
}

// Printf writes a formatted line to the log regardless of level.
func (l *Logger) Printf(format string, args ...any) {
	fmt.Fprintf(l.w, format+"\n", args...)
}

func (l *Logger) Debugf(format string, args ...any) { l.l.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.l.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.l.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.l.Errorf(format, args...) }

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// LatestLogPath returns the path to the most recent log in <dataDir>.
// Returns "" if no logs exist.
func LatestLogPath(dataDir string) string {
	dir := filepath.Join(dataDir, logsDir)
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		return ""
	}
	// ReadDir returns sorted by name; plugins-<ts> logs sort chronologically.
	latest := ""
	for _, e := range entries {
		if !e.IsDir() {
			latest = filepath.Join(dir, e.Name())
		}
	}
	return latest
}
