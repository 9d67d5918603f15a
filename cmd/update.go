package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:     "update [plugin]...",
	Aliases: []string{"upgrade"},
	Short:   "Update installed plugins",
	Long: `Updates the named plugins. Without arguments an interactive picker
lists the installed plugins; with --yes every plugin is updated.`,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	names := args
	if yes, _ := cmd.Flags().GetBool("yes"); len(names) == 0 && !yes {
		if names, err = pick(s.mgr, "update"); err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No plugins installed.")
			return nil
		}
	}

	fmt.Println("Checking for updates...")
	var updated []string
	var took time.Duration
	err = track(s.mgr, "Updating plugins", func() error {
		res, err := s.mgr.Update(cmd.Context(), names)
		if err != nil {
			return err
		}
		updated, took = res.Plugins, res.Duration
		return nil
	})
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	printDone("Updated", updated, took)
	return nil
}
