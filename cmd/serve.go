package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/docqa/internal/mcp"
)

var serveUser string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol (MCP) server on stdio, exposing tools
to list, ingest, search, question and summarize documents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		docs, err := a.svc.Documents(cmd.Context(), "")
		if err != nil {
			return err
		}

		mcpserver.Version = Version
		fmt.Fprintf(os.Stderr, "docqa MCP server started on stdio (documents=%d)\n", len(docs))
		return mcpserver.NewServer(a.svc, serveUser).Serve()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveUser, "user", "mcp", "user id questions are recorded under")
	rootCmd.AddCommand(serveCmd)
}
