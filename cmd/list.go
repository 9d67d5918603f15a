package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Show installed plugins",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	installed, err := s.mgr.List()
	if err != nil {
		return err
	}

	label := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("8"))
	val := lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	ok := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	fmt.Println()
	fmt.Printf("  %s %s\n", label.Render("Data dir:"), val.Render(s.cfg.DataDir))
	fmt.Printf("  %s %s\n\n", label.Render("PM:      "), s.mgr.PM.Name())

	if len(installed) == 0 {
		fmt.Printf("  %s\n\n", dimStr("no plugins installed"))
		return nil
	}
	fmt.Printf("  %s\n", label.Render("Plugins:"))
	for _, p := range installed {
		version := p.Version
		if version == "" {
			version = "?"
		}
		extra := p.Description
		if p.Type == "link" {
			extra = "(link) " + extra
		}
		fmt.Printf("    %s %-32s %-10s %s\n", ok.Render("●"), p.Name, version, dimStr(extra))
	}
	fmt.Println()
	return nil
}

func dimStr(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(s)
}
