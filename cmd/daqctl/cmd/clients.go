package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "List the known DAQ clients",
	Long:  `List every client the panel has discovered, with its connection state and tags. Served from the panel's cache, so offline clients still appear.`,
	Run: func(cmd *cobra.Command, args []string) {
		client := NewPanelClient()

		clients, err := client.ListClients()
		if err != nil {
			cmd.Printf("Failed to list clients: %v\n", err)
			return
		}
		if len(clients) == 0 {
			cmd.Println("No clients known yet.")
			return
		}

		cmd.Printf("%sID              STATE      HOSTNAME              TAGS%s\n", colorBold, colorReset)
		for _, c := range clients {
			state := colorGreen + "online " + colorReset
			if !c.Connected {
				state = colorRed + "offline" + colorReset
			}
			cmd.Printf("%-15s %s    %-20s  %s\n", c.ID, state, c.Hostname, strings.Join(c.Tags, ","))
		}
	},
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func init() {
	rootCmd.AddCommand(clientsCmd)
}
