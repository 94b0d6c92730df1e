package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// StartConversationRequest represents the start conversation API request.
type StartConversationRequest struct {
	Title string `json:"title,omitempty"`
}

// ConversationResponse represents a conversation returned by the API.
type ConversationResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

// StartCmd creates the start command.
func StartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start [title]",
		Short: "Start a new conversation",
		Long:  "Starts a new conversation and prints its ID for use with 'parley chat'.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			title := strings.Join(args, " ")
			resp, err := apiClient.Post("/conversations", StartConversationRequest{Title: title})
			if err != nil {
				return err
			}

			var conversation ConversationResponse
			if err := json.Unmarshal(resp.Data, &conversation); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if jsonOutput(cmd) {
				return printJSON(conversation)
			}

			fmt.Printf("Started conversation %q\n", conversation.Title)
			fmt.Println(conversation.ID)
			return nil
		},
	}

	return cmd
}
