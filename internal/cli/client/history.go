package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// TurnResponse represents a single conversation turn returned by the API.
type TurnResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// HistoryCmd creates the history command.
func HistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <conversation-id>",
		Short: "Show a conversation's turns",
		Long:  "Prints a conversation's turns in chronological order.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			path := "/conversations/" + args[0] + "/history"
			if limit > 0 {
				path = fmt.Sprintf("%s?limit=%d", path, limit)
			}

			resp, err := apiClient.Get(path)
			if err != nil {
				return err
			}

			var turns []TurnResponse
			if err := json.Unmarshal(resp.Data, &turns); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if jsonOutput(cmd) {
				return printJSON(turns)
			}

			if len(turns) == 0 {
				fmt.Println("No turns yet.")
				return nil
			}
			for _, turn := range turns {
				fmt.Printf("%s: %s\n", turn.Role, turn.Content)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of turns to fetch")

	return cmd
}
