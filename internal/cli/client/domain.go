package client

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// AddRecordRequest represents the add record API request.
type AddRecordRequest struct {
	Domain   string `json:"domain"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Embed    *bool  `json:"embed,omitempty"`
}

// RecordResponse represents a domain record returned by the API.
type RecordResponse struct {
	ID        string `json:"id"`
	Domain    string `json:"domain"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Embedded  bool   `json:"embedded"`
	CreatedAt string `json:"created_at"`
}

// ImportResponse represents the CSV import API response.
type ImportResponse struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// DomainCmd creates the domain command group.
func DomainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domain",
		Short: "Manage knowledge base domains",
		Long:  "Add, list and bulk-import question/answer records per domain.",
	}

	cmd.AddCommand(domainAddCmd())
	cmd.AddCommand(domainRecordsCmd())
	cmd.AddCommand(domainImportCmd())

	return cmd
}

func domainAddCmd() *cobra.Command {
	var (
		question string
		answer   string
		noEmbed  bool
	)

	cmd := &cobra.Command{
		Use:   "add <domain>",
		Short: "Add a question/answer record to a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			req := AddRecordRequest{
				Domain:   args[0],
				Question: question,
				Answer:   answer,
			}
			if noEmbed {
				embed := false
				req.Embed = &embed
			}

			resp, err := apiClient.Post("/domains/records", req)
			if err != nil {
				return err
			}

			var record RecordResponse
			if err := json.Unmarshal(resp.Data, &record); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if jsonOutput(cmd) {
				return printJSON(record)
			}

			fmt.Printf("Added record %s to %q\n", record.ID, record.Domain)
			if !record.Embedded {
				fmt.Println("Record stored without embedding, the backfill worker will embed it.")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&question, "question", "q", "", "Question text")
	cmd.Flags().StringVarP(&answer, "answer", "a", "", "Answer text")
	cmd.Flags().BoolVar(&noEmbed, "no-embed", false, "Store the record without computing an embedding")
	cmd.MarkFlagRequired("question")
	cmd.MarkFlagRequired("answer")

	return cmd
}

func domainRecordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records <domain>",
		Short: "List a domain's records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := apiClient.Get("/domains/" + args[0] + "/records")
			if err != nil {
				return err
			}

			var records []RecordResponse
			if err := json.Unmarshal(resp.Data, &records); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if jsonOutput(cmd) {
				return printJSON(records)
			}

			if len(records) == 0 {
				fmt.Printf("No records in %q.\n", args[0])
				return nil
			}
			for _, record := range records {
				marker := " "
				if record.Embedded {
					marker = "*"
				}
				fmt.Printf("%s %s  Q: %s\n", marker, record.ID, record.Question)
			}
			fmt.Println("\n* = embedded")
			return nil
		},
	}

	return cmd
}

func domainImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <domain> <csv-file>",
		Short: "Import records from a CSV file",
		Long: `Upload a CSV file of question,answer rows into a domain.

A header row is skipped. Malformed rows are skipped and counted.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			file, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("failed to open CSV file: %w", err)
			}
			defer file.Close()

			resp, err := apiClient.PostRaw("/domains/"+args[0]+"/import", file, "text/csv")
			if err != nil {
				return err
			}

			var result ImportResponse
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if jsonOutput(cmd) {
				return printJSON(result)
			}

			fmt.Printf("Imported %d records into %q (%d rows skipped)\n", result.Inserted, args[0], result.Skipped)
			return nil
		},
	}

	return cmd
}
