package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/creditrust/credirag/internal/adapters/driving/mcp"
	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start a Model Context Protocol server exposing the complaint index to
AI assistants.

Tools:
  retrieve - ranked complaint excerpts for a query
  ask      - grounded answer with citations (needs an LLM provider)

By default the server speaks JSON-RPC over stdio. Use --port to serve
streamable HTTP instead, e.g. for the MCP Inspector.

Examples:
  credirag mcp serve
  credirag mcp serve --port 8080 --watch`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().Bool("watch", false, "reload the index when it is rebuilt")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return fmt.Errorf("getting watch flag: %w", err)
	}

	a, err := app()
	if err != nil {
		return err
	}
	retriever, err := a.Retriever(cmd.Context())
	if err != nil {
		return err
	}
	manager, err := a.IndexManager(cmd.Context())
	if err != nil {
		return err
	}

	ports := &mcp.Ports{
		Retriever: retriever,
		Index:     manager,
	}
	generator, err := a.Generator(cmd.Context())
	switch {
	case errors.Is(err, domain.ErrLLMUnavailable):
		logger.Warn("no LLM configured, serving retrieve only")
	case err != nil:
		return err
	default:
		ports.Generator = generator
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if watch {
		go func() {
			if err := manager.Watch(cmd.Context()); err != nil {
				logger.Warn("index watch stopped: %v", err)
			}
		}()
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
