package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/killallgit/llt/pkg/template"
)

var messagesJSON bool

var roleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))

var messagesCmd = &cobra.Command{
	Use:   "messages [template files or directories...]",
	Short: "Render a messages template as role-tagged entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := retrieveTemplate(args)
		if err != nil {
			return err
		}
		mt, ok := t.(*template.MessagesTemplate)
		if !ok {
			return fmt.Errorf("%q is a %s template; use 'llt render'", templateName, t.TemplateKind())
		}
		root, err := loadContextFile(contextFile)
		if err != nil {
			return err
		}
		msgs, err := mt.Render(root)
		if err != nil {
			return err
		}
		if messagesJSON {
			data, err := json.MarshalIndent(msgs, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}
		for _, m := range msgs {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", roleStyle.Render("["+m.Role+"]"), m.Content)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(messagesCmd)
	addRenderFlags(messagesCmd)
	messagesCmd.Flags().BoolVar(&messagesJSON, "json", false, "emit messages as JSON")
}
