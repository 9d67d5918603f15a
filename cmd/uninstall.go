package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/kb-labs/plugins/internal/picker"
	"github.com/kb-labs/plugins/internal/plugins"
)

var uninstallCmd = &cobra.Command{
	Use:     "uninstall [plugin]...",
	Aliases: []string{"remove", "rm"},
	Short:   "Remove installed plugins",
	Long: `Removes plugins from the data directory. Without arguments an
interactive picker lists the installed plugins.`,
	RunE: runUninstall,
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	names := args
	if len(names) == 0 {
		if yes, _ := cmd.Flags().GetBool("yes"); yes {
			return fmt.Errorf("uninstall: name the plugins to remove when using --yes")
		}
		if names, err = pick(s.mgr, "uninstall"); err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No plugins installed.")
			return nil
		}
	}

	fmt.Println()
	var removed []string
	var took time.Duration
	err = track(s.mgr, "Removing "+strings.Join(names, " "), func() error {
		res, err := s.mgr.Uninstall(cmd.Context(), names)
		if err != nil {
			return err
		}
		removed, took = res.Plugins, res.Duration
		return nil
	})
	if err != nil {
		return fmt.Errorf("uninstall failed: %w", err)
	}

	printDone("Removed", removed, took)
	return nil
}

// pick lets the user choose among the installed plugins.
func pick(mgr *plugins.Manager, title string) ([]string, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return nil, fmt.Errorf("%s: stdin is not a terminal, name the plugins or use --yes", title)
	}
	installed, err := mgr.List()
	if err != nil {
		return nil, err
	}
	items := make([]picker.Item, len(installed))
	for i, p := range installed {
		items[i] = picker.Item{Name: p.Name, Detail: p.Version}
	}
	return picker.Run(items, picker.Options{Title: title})
}
