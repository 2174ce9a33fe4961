package cmd

import (
	"encoding/json"

	"daqpanel/pkg/api"

	"github.com/spf13/cobra"
)

var (
	msgClientID   string
	msgTemplateID string
	msgType       string
	msgPayload    string
	msgParams     []string
	msgRunID      string
)

var messageCmd = &cobra.Command{
	Use:   "message",
	Short: "Send control messages to clients",
}

var messageSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a message to a client",
	Long: `Send a control message, either from a message template (--template with
--param values) or raw (--type plus --payload JSON). The panel records
every attempt, including failed ones.`,
	Run: func(cmd *cobra.Command, args []string) {
		if msgClientID == "" {
			cmd.Println("--client is required")
			return
		}
		if msgTemplateID == "" && (msgType == "" || msgPayload == "") {
			cmd.Println("--template or both --type and --payload are required")
			return
		}

		values, err := parseParams(msgParams)
		if err != nil {
			cmd.Printf("Invalid parameter: %v\n", err)
			return
		}

		req := api.SendMessageRequest{
			ClientID:        msgClientID,
			MessageType:     msgType,
			ParameterValues: values,
		}
		if msgTemplateID != "" {
			req.TemplateID = &msgTemplateID
		}
		if msgPayload != "" {
			if !json.Valid([]byte(msgPayload)) {
				cmd.Println("--payload must be valid JSON")
				return
			}
			req.Payload = json.RawMessage(msgPayload)
		}
		if msgRunID != "" {
			req.RunID = &msgRunID
		}

		client := NewPanelClient()
		msg, err := client.SendMessage(req)
		if err != nil {
			cmd.Printf("Failed to send message: %v\n", err)
			return
		}

		if msg.Status == "SENT" {
			cmd.Printf("%s✓%s Message %s delivered to %s\n", colorGreen, colorReset, msg.ID, msg.ClientID)
		} else {
			cmd.Printf("%s✗%s Message %s recorded as FAILED", colorRed, colorReset, msg.ID)
			if msg.ErrorMessage != nil {
				cmd.Printf(": %s", *msg.ErrorMessage)
			}
			cmd.Println()
		}
	},
}

func init() {
	rootCmd.AddCommand(messageCmd)
	messageCmd.AddCommand(messageSendCmd)

	messageSendCmd.Flags().StringVar(&msgClientID, "client", "", "Target client id")
	messageSendCmd.Flags().StringVar(&msgTemplateID, "template", "", "Message template id")
	messageSendCmd.Flags().StringVar(&msgType, "type", "", "Raw message type")
	messageSendCmd.Flags().StringVar(&msgPayload, "payload", "", "Raw JSON payload")
	messageSendCmd.Flags().StringArrayVar(&msgParams, "param", nil, "Parameter value as name=value (repeatable)")
	messageSendCmd.Flags().StringVar(&msgRunID, "run", "", "Associate the message with a run id")
}
