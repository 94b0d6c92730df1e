package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// InitCmd creates the init command.
func InitCmd() *cobra.Command {
	var (
		apiKey string
		apiURL string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Configure the CLI",
		Long: `Store the API key and server URL in the global config file.

The server is contacted to verify the settings before they are saved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiURL == "" {
				apiURL = defaultAPIURL
			}

			apiClient, err := NewAPIClientWithConfig(apiKey, apiURL)
			if err != nil {
				return err
			}
			if _, err := apiClient.Get("/health"); err != nil {
				return fmt.Errorf("could not reach server at %s: %w", apiURL, err)
			}

			if err := SaveGlobalConfig(&GlobalConfig{APIKey: apiKey, APIURL: apiURL}); err != nil {
				return err
			}

			configPath, err := GetConfigPath()
			if err != nil {
				return err
			}
			fmt.Printf("Configuration saved to %s\n", configPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (omit when the server runs without auth)")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "API base URL (default: "+defaultAPIURL+")")

	return cmd
}
