package main

import (
	"yarvis/internal/mcp"

	"github.com/spf13/cobra"
)

func (c *cli) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve read-only project tools over MCP on stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout so assistants can
list projects, describe one, read statistics and list boilerplates.

Register it in an MCP client with the command:
  yarvis mcp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mcp.NewServer(c.manager, c.catalog, c.languages(), c.logger).Start()
		},
	}
}
