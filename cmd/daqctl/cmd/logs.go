package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var follow bool

var logsCmd = &cobra.Command{
	Use:   "logs [client_id]",
	Short: "Show the cached log buffer of a client",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		clientID := args[0]
		client := NewPanelClient()

		// Trap Ctrl+C to exit gracefully when following
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		go func() {
			<-sigChan
			os.Exit(0)
		}()

		var lastPrinted time.Time

		for {
			logs, err := client.ClientLogs(clientID)
			if err != nil {
				cmd.Printf("Error fetching logs: %v\n", err)
				if !follow {
					break
				}
				time.Sleep(2 * time.Second) // Retry backoff
				continue
			}

			// The panel returns the whole ring buffer; only print lines
			// newer than what we have already shown.
			for _, line := range logs {
				if !line.Timestamp.After(lastPrinted) {
					continue
				}
				printLogLine(cmd, line)
				lastPrinted = line.Timestamp
			}

			if !follow {
				break
			}
			time.Sleep(1 * time.Second)
		}
	},
}

func printLogLine(cmd *cobra.Command, line logLine) {
	level := line.Level
	switch level {
	case "ERROR", "CRITICAL":
		level = colorRed + level + colorReset
	case "WARNING":
		level = colorYellow + level + colorReset
	}
	cmd.Printf("%s%s%s %-8s %s %s\n",
		colorDim, line.Timestamp.Format("15:04:05"), colorReset,
		level, line.Module, line.Message)
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep polling for new log lines")
}
