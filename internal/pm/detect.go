package pm

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kb-labs/plugins/internal/logger"
)

// New returns the client named name ("npm" or "yarn").
func New(name string, opts Options, log *logger.Logger) (PackageManager, error) {
	switch name {
	case "npm":
		return NewNPM(opts, log), nil
	case "yarn":
		return NewYarn(opts, log), nil
	default:
		return nil, fmt.Errorf("unknown package manager %q (want npm or yarn)", name)
	}
}

// Detect picks the client for the project in dir: yarn when dir holds a
// yarn.lock, npm when it holds a package-lock.json, fallback otherwise.
func Detect(dir, fallback string) string {
	if fileExists(filepath.Join(dir, "yarn.lock")) {
		return "yarn"
	}
	if fileExists(filepath.Join(dir, "package-lock.json")) {
		return "npm"
	}
	if fallback == "" {
		return "npm"
	}
	return fallback
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
