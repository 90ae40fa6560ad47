package main

import (
	"kyri56xcaesar/opscrm/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Apply migrations and serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.InitAndServe(loadConfig())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
