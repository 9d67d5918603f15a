package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install <plugin>...",
	Short: "Install plugins",
	Long: `Installs plugins into the data directory without devDependencies.
A plugin may carry a version or dist-tag: name@1.2.3, @scope/name@next.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	fmt.Println()
	label := fmt.Sprintf("Installing %s", strings.Join(args, " "))
	var installed []string
	var took time.Duration
	err = track(s.mgr, label, func() error {
		res, err := s.mgr.Install(cmd.Context(), args)
		if err != nil {
			return err
		}
		installed, took = res.Plugins, res.Duration
		return nil
	})
	if err != nil {
		return fmt.Errorf("install failed: %w", err)
	}

	printDone("Installed", installed, took)
	return nil
}

// printDone prints the closing summary of a plugin operation.
func printDone(verb string, names []string, took time.Duration) {
	ok := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	val := lipgloss.NewStyle().Foreground(lipgloss.Color("14"))

	fmt.Println()
	if len(names) == 0 {
		fmt.Println(dim.Render("  nothing to do"))
		fmt.Println()
		return
	}
	fmt.Println(ok.Render("✓ "+verb) + dim.Render(fmt.Sprintf("  (%s)", took.Round(100*time.Millisecond))))
	for _, n := range names {
		fmt.Printf("    %s\n", val.Render(n))
	}
	fmt.Println()
}
