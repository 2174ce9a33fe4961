package cmd

import (
	"github.com/spf13/cobra"
)

var templateKind string

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List run and message templates",
	Run: func(cmd *cobra.Command, args []string) {
		client := NewPanelClient()

		templates, err := client.ListTemplates(templateKind)
		if err != nil {
			cmd.Printf("Failed to list templates: %v\n", err)
			return
		}
		if len(templates) == 0 {
			cmd.Println("No templates found.")
			return
		}

		cmd.Printf("%sID                                    KIND     NAME%s\n", colorBold, colorReset)
		for _, t := range templates {
			name := t.Name
			if !t.Editable {
				name += colorDim + " (built-in)" + colorReset
			}
			cmd.Printf("%s  %-7s  %s\n", t.ID, t.Kind, name)
		}
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCmd.Flags().StringVar(&templateKind, "kind", "", "Filter by kind (run or message)")
}
