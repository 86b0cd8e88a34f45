package cmd

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/policyatlas/litbase/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the knowledge base over MCP (stdio)",
	Long: `Serve starts a Model Context Protocol server on stdio, exposing the
ingestion pipeline and knowledge base to MCP clients: litbase_ingest,
litbase_list, litbase_status, litbase_history and litbase_backup.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	manager, resolved, err := openManager()
	if err != nil {
		return err
	}
	defer manager.Close()

	proc, err := newProcessor(manager, resolved)
	if err != nil {
		return err
	}

	srv := mcp.NewServer(mcp.ServerConfig{
		Processor: proc,
		KB:        manager,
		Version:   rootCmd.Version,
	})
	return server.ServeStdio(srv)
}
