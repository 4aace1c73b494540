package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/adapters/driving/mcp"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/logger"
)

var mcpAddr string

// serveMCP runs the server; tests replace it to inspect the wiring.
var serveMCP = func(cmd *cobra.Command, server *mcp.Server, addr string) error {
	if addr != "" {
		cmd.Printf("MCP server listening on http://%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}
	return server.Run(cmd.Context())
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

Tools:
  search  retrieve passages for a query
  chat    answer a question within a session (needs an LLM provider)

Resources:
  docchat://documents            the files in the data folder
  docchat://documents/{name}     extracted text of one file
  docchat://sessions/{sessionId} turns recorded for a chat session

By default the server speaks JSON-RPC over stdio. Use --http to serve
streamable HTTP instead, for example for MCP Inspector.

Examples:
  docchat mcp
  docchat mcp --http localhost:8080

Desktop assistant configuration:
  {
    "mcpServers": {
      "docchat": {
        "command": "/path/to/docchat",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	rt, err := runtimeFor(cmd, true)
	if errors.Is(err, domain.ErrLLMUnavailable) {
		logger.Warn("LLM unavailable, serving search only: %v", err)
		rt, err = runtimeFor(cmd, false)
	}
	if err != nil {
		return err
	}

	ports := &mcp.Ports{
		Search:    rt.search,
		Chat:      rt.chat,
		Documents: rt.source,
		Units:     rt.units,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	return serveMCP(cmd, server, mcpAddr)
}
