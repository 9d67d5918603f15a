// Package cmd implements the kb-plugins CLI commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kb-labs/plugins/internal/warnings"
)

// SetVersionInfo is called from main.go with values injected at build time via -ldflags.
// It must be called before Execute().
func SetVersionInfo(version, commit, date string) {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"kb-plugins %s (commit %s, built %s)\n", version, commit, date,
	))
	rootCmd.Version = version
}

var rootCmd = &cobra.Command{
	Use:   "kb-plugins",
	Short: "KB Labs CLI plugin manager",
	Long: `kb-plugins installs and manages plugins for the KB Labs CLI.

Examples:
  kb-plugins install @kb-labs/plugin-mind     install a plugin
  kb-plugins list                             show installed plugins
  kb-plugins update                           pick plugins to update
  kb-plugins uninstall --yes kb-plugin-x      remove a plugin
  kb-plugins view @kb-labs/plugin-mind        show registry metadata
  kb-plugins logs                             show the last run log`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

type warningsKey struct{}

// withWarnings returns ctx carrying the warnings cache for the run.
func withWarnings(ctx context.Context, w *warnings.Cache) context.Context {
	return context.WithValue(ctx, warningsKey{}, w)
}

// warningsFrom returns the run's warnings cache, or a fresh one when the
// command was started without Execute.
func warningsFrom(ctx context.Context) *warnings.Cache {
	if ctx != nil {
		if w, ok := ctx.Value(warningsKey{}).(*warnings.Cache); ok {
			return w
		}
	}
	return warnings.New()
}

// Execute is the main entry point called from main.go. Warnings collected
// during the run are reported once the command has finished.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	w := warnings.New()
	err := rootCmd.ExecuteContext(withWarnings(ctx, w))
	stop()

	w.Flush(stderrReporter{})
	if err != nil {
		bad := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
		fmt.Fprintf(os.Stderr, "%s %v\n", bad.Render("✗"), err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default <user config dir>/kb-plugins/config.json)")
	pf.String("data-dir", "", "plugin data directory (default ~/.kb-plugins)")
	pf.String("cache-dir", "", "package manager cache directory")
	pf.String("root", "", "CLI install root holding node and the pinned package managers")
	pf.String("npm-registry", "", "registry passed to the package manager")
	pf.String("package-manager", "npm", "package manager to use: npm or yarn")
	pf.String("log-level", "notice", "silent, error, warn, notice, http, info, verbose or silly")
	pf.BoolP("verbose", "v", false, "show package manager output")
	pf.BoolP("yes", "y", false, "skip interactive prompts")
}

// stderrReporter prints flushed warnings.
type stderrReporter struct{}

func (stderrReporter) Warnf(format string, args ...any) {
	warn := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	fmt.Fprintf(os.Stderr, "  %s %s\n", warn.Render("⚠"), fmt.Sprintf(format, args...))
}
