package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/killallgit/llt/pkg/library"
	"github.com/killallgit/llt/pkg/metadata"
)

var (
	nameStyle = lipgloss.NewStyle().Bold(true)
	kindStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	metaStyle = lipgloss.NewStyle().Faint(true)
)

var listCmd = &cobra.Command{
	Use:   "list [template files or directories...]",
	Short: "List loaded templates and their metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadTemplates(args); err != nil {
			return err
		}
		for _, t := range library.Shared().All() {
			name := "(anonymous)"
			if id, ok := metadata.TryGet[metadata.Identifier](t.Metadata()); ok {
				name = string(id)
			}
			var attrs []string
			for _, m := range t.Metadata().All() {
				if _, isID := m.(metadata.Identifier); isID {
					continue
				}
				attrs = append(attrs, fmt.Sprintf("%v", m))
			}
			line := fmt.Sprintf("%s %s", nameStyle.Render(name), kindStyle.Render(t.TemplateKind().String()))
			if len(attrs) > 0 {
				line += " " + metaStyle.Render(strings.Join(attrs, " "))
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
