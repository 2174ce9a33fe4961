package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type snapshotView struct {
	ClientID  string `json:"client_id"`
	Connected bool   `json:"connected"`
	Status    *struct {
		Jobs []struct {
			JobType string `json:"job_type"`
			UID     string `json:"uid"`
			Running bool   `json:"running"`
			Alive   bool   `json:"alive"`
		} `json:"jobs"`
	} `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

var statusCmd = &cobra.Command{
	Use:   "status [client_id]",
	Short: "Show the cached status of one client",
	Long:  `Show the last snapshot the panel's poller captured for a client: connection state, running jobs, and snapshot age.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		clientID := args[0]
		client := NewPanelClient()

		raw, err := client.ClientStatus(clientID)
		if err != nil {
			cmd.Printf("Failed to fetch status: %v\n", err)
			return
		}
		if string(raw) == "null" || len(raw) == 0 {
			cmd.Printf("Client %q is not known to the panel.\n", clientID)
			return
		}

		var snap snapshotView
		if err := json.Unmarshal(raw, &snap); err != nil {
			cmd.Printf("Failed to parse response: %v\n", err)
			return
		}

		printSnapshot(cmd, snap)
	},
}

func printSnapshot(cmd *cobra.Command, snap snapshotView) {
	state := colorGreen + "✓ connected" + colorReset
	if !snap.Connected {
		state = colorRed + "✗ offline" + colorReset
	}

	cmd.Printf("%s%s%s\n", colorBold, snap.ClientID, colorReset)
	cmd.Println("──────────────────────────────")
	cmd.Printf("%sState:%s    %s\n", colorDim, colorReset, state)
	cmd.Printf("%sUpdated:%s  %s %s(%s ago)%s\n", colorDim, colorReset,
		snap.UpdatedAt.Format("Mon, 02 Jan 2006 15:04:05 MST"),
		colorDim, relativeTime(snap.UpdatedAt), colorReset)

	if snap.Status == nil || len(snap.Status.Jobs) == 0 {
		cmd.Printf("%sJobs:%s     none\n", colorDim, colorReset)
		return
	}

	cmd.Printf("%sJobs:%s\n", colorDim, colorReset)
	for _, job := range snap.Status.Jobs {
		marker := colorYellow + "idle   " + colorReset
		if job.Running {
			marker = colorGreen + "running" + colorReset
		}
		if !job.Alive {
			marker = colorRed + "dead   " + colorReset
		}
		cmd.Printf("  %s  %-20s %s%s%s\n", marker, job.JobType, colorCyan, job.UID, colorReset)
	}
}

func relativeTime(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	} else if duration < time.Hour {
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	} else if duration < 24*time.Hour {
		return fmt.Sprintf("%dh", int(duration.Hours()))
	}
	days := int(duration.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
