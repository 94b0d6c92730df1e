package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// jsonOutput reports whether the user asked for machine-readable output.
func jsonOutput(cmd *cobra.Command) bool {
	v, err := cmd.Flags().GetBool("output")
	return err == nil && v
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
