package cmd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kb-labs/plugins/internal/collections"
)

var viewCmd = &cobra.Command{
	Use:     "view <plugin>",
	Aliases: []string{"info"},
	Short:   "Show registry metadata for a plugin",
	Args:    cobra.ExactArgs(1),
	RunE:    runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)
}

func runView(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	info, err := s.mgr.View(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	label := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("8"))
	val := lipgloss.NewStyle().Foreground(lipgloss.Color("14"))

	fmt.Println()
	fmt.Printf("  %s %s@%s\n", label.Render("Package:"), val.Render(info.Name), info.Version)
	if info.Description != "" {
		fmt.Printf("  %s %s\n", label.Render("About:  "), info.Description)
	}
	if len(info.DistTags) > 0 {
		fmt.Printf("\n  %s\n", label.Render("Dist-tags:"))
		// latest first, then the rest by name
		tags := collections.OrderBy(slices.Collect(maps.Keys(info.DistTags)), func(t string) any {
			return []any{t != "latest", t}
		})
		for _, t := range tags {
			fmt.Printf("    %-10s %s\n", t, info.DistTags[t])
		}
	}
	if n := len(info.Versions); n > 0 {
		fmt.Printf("\n  %s %d %s\n", label.Render("Versions:"), n, dimStr("(latest "+info.Versions[n-1]+")"))
	}
	fmt.Println()
	return nil
}
