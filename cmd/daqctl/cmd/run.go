package cmd

import (
	"fmt"
	"strings"

	"daqpanel/pkg/api"

	"github.com/spf13/cobra"
)

var (
	runClientID    string
	runTemplateID  string
	runTypeID      string
	runDescription string
	runParams      []string
	stopAbort      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start and stop runs",
}

var runStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a run on a client",
	Long: `Start a run from a run template or a run type. Parameter values are
given as repeated --param name=value flags; omitted parameters fall back
to the run type's overrides and then the template defaults.`,
	Run: func(cmd *cobra.Command, args []string) {
		if runClientID == "" {
			cmd.Println("--client is required")
			return
		}
		if runTemplateID == "" && runTypeID == "" {
			cmd.Println("--template or --run-type is required")
			return
		}

		values, err := parseParams(runParams)
		if err != nil {
			cmd.Printf("Invalid parameter: %v\n", err)
			return
		}

		req := api.StartRunRequest{
			Description:     runDescription,
			ClientID:        runClientID,
			ParameterValues: values,
		}
		if runTemplateID != "" {
			req.TemplateID = &runTemplateID
		} else {
			req.RunTypeID = &runTypeID
		}

		client := NewPanelClient()
		run, err := client.StartRun(req)
		if err != nil {
			cmd.Printf("Failed to start run: %v\n", err)
			return
		}

		cmd.Printf("%s✓%s Run started\n", colorGreen, colorReset)
		cmd.Printf("%sID:%s      %s\n", colorDim, colorReset, run.ID)
		cmd.Printf("%sClient:%s  %s\n", colorDim, colorReset, runClientID)
		if len(run.JobUIDs) > 0 {
			cmd.Printf("%sJobs:%s    %s\n", colorDim, colorReset, strings.Join(run.JobUIDs, ", "))
		}
	},
}

var runStopCmd = &cobra.Command{
	Use:   "stop [run_id]",
	Short: "Stop a running run",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewPanelClient()

		run, err := client.StopRun(args[0], stopAbort)
		if err != nil {
			cmd.Printf("Failed to stop run: %v\n", err)
			return
		}
		cmd.Printf("%s✓%s Run %s finished with status %s\n", colorGreen, colorReset, run.ID, run.Status)
	},
}

// parseParams splits repeated name=value flags into a map.
func parseParams(params []string) (map[string]string, error) {
	if len(params) == 0 {
		return nil, nil
	}
	values := make(map[string]string, len(params))
	for _, p := range params {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("expected name=value, got %q", p)
		}
		values[name] = value
	}
	return values, nil
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.AddCommand(runStartCmd)
	runCmd.AddCommand(runStopCmd)

	runStartCmd.Flags().StringVar(&runClientID, "client", "", "Target client id")
	runStartCmd.Flags().StringVar(&runTemplateID, "template", "", "Run template id")
	runStartCmd.Flags().StringVar(&runTypeID, "run-type", "", "Run type id")
	runStartCmd.Flags().StringVarP(&runDescription, "description", "d", "", "Run description")
	runStartCmd.Flags().StringArrayVar(&runParams, "param", nil, "Parameter value as name=value (repeatable)")

	runStopCmd.Flags().BoolVar(&stopAbort, "abort", false, "Mark the run STOPPED instead of COMPLETED")
}
