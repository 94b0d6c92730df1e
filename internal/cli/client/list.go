package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// ConversationPageResponse represents the conversation list API response.
type ConversationPageResponse struct {
	Items   []ConversationResponse `json:"items"`
	Cursor  string                 `json:"cursor,omitempty"`
	HasMore bool                   `json:"has_more"`
}

// ListCmd creates the list command.
func ListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations",
		Long:  "Lists conversations, newest first. Use --cursor to fetch the next page.",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			path := "/conversations"
			sep := "?"
			if limit > 0 {
				path = fmt.Sprintf("%s%slimit=%d", path, sep, limit)
				sep = "&"
			}
			if cursor != "" {
				path = path + sep + "cursor=" + cursor
			}

			resp, err := apiClient.Get(path)
			if err != nil {
				return err
			}

			var page ConversationPageResponse
			if err := json.Unmarshal(resp.Data, &page); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if jsonOutput(cmd) {
				return printJSON(page)
			}

			if len(page.Items) == 0 {
				fmt.Println("No conversations found.")
				return nil
			}
			for _, c := range page.Items {
				fmt.Printf("%s  %s  %s\n", c.ID, c.CreatedAt, c.Title)
			}
			if page.HasMore {
				fmt.Printf("\nMore available, next cursor: %s\n", page.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of conversations to fetch")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from a previous page")

	return cmd
}
