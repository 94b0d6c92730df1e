package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/parley/internal/cli"
	"github.com/cloo-solutions/parley/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "parleyd",
		Short: "Parley daemon and admin CLI",
		Long:  "Parley daemon for running the chat API server and importing knowledge bases",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.ImportCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
