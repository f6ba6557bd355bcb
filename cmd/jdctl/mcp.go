package main

import (
	"github.com/spf13/cobra"

	mcpadapter "github.com/kirillkom/jd-copilot/internal/adapters/mcp"
	"github.com/kirillkom/jd-copilot/internal/bootstrap"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the question tools over MCP stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, logger, err := loadApp(cmd.Context(), bootstrap.Options{})
		if err != nil {
			return err
		}
		defer app.Close()

		logger.Info("mcp_stdio_serving", "version", version)
		return mcpadapter.NewServer(app.QueryUC, version, logger).ServeStdio()
	},
}
