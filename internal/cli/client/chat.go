package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// ChatRequest represents the chat API request.
type ChatRequest struct {
	Message       string  `json:"message"`
	Domain        string  `json:"domain,omitempty"`
	UseDomain     bool    `json:"use_domain,omitempty"`
	MinConfidence float64 `json:"min_confidence,omitempty"`
}

// ChatResponse represents the chat API response.
type ChatResponse struct {
	Response string   `json:"response"`
	Source   string   `json:"source"`
	Score    *float64 `json:"score,omitempty"`
}

// ChatCmd creates the chat command.
func ChatCmd() *cobra.Command {
	var (
		domainName    string
		minConfidence float64
	)

	cmd := &cobra.Command{
		Use:   "chat <conversation-id> [message]",
		Short: "Send a message in a conversation",
		Long: `Send a message and print the reply.

With a message argument a single exchange is performed. Without one the
command enters an interactive session that reads messages from stdin
until EOF or "exit".

When --domain is set, the knowledge base of that domain is consulted
before falling back to the generative backend.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			conversationID := args[0]

			if len(args) > 1 {
				message := strings.Join(args[1:], " ")
				return sendChat(cmd, apiClient, conversationID, message, domainName, minConfidence)
			}

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("you> ")
				if !scanner.Scan() {
					break
				}
				message := strings.TrimSpace(scanner.Text())
				if message == "" {
					continue
				}
				if message == "exit" || message == "quit" {
					break
				}
				if err := sendChat(cmd, apiClient, conversationID, message, domainName, minConfidence); err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
				}
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVarP(&domainName, "domain", "d", "", "Knowledge base domain to consult first")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "Override the match confidence threshold")

	return cmd
}

func sendChat(cmd *cobra.Command, apiClient *APIClient, conversationID, message, domainName string, minConfidence float64) error {
	req := ChatRequest{
		Message:       message,
		Domain:        domainName,
		UseDomain:     domainName != "",
		MinConfidence: minConfidence,
	}

	resp, err := apiClient.Post("/conversations/"+conversationID+"/chat", req)
	if err != nil {
		return err
	}

	var chat ChatResponse
	if err := json.Unmarshal(resp.Data, &chat); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if jsonOutput(cmd) {
		return printJSON(chat)
	}

	if chat.Score != nil {
		fmt.Printf("bot> %s  [%s, score %.2f]\n", chat.Response, chat.Source, *chat.Score)
	} else {
		fmt.Printf("bot> %s\n", chat.Response)
	}
	return nil
}
