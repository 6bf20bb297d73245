package main

import (
	"github.com/spf13/cobra"

	"github.com/mnemo-ai/mnemo/internal/mcpserver"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve sessions, transcripts, and memory over MCP on stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			server := mcpserver.New(version, app.Sessions, app.Transcripts, app.Memories, app.Logger)
			return server.Serve()
		},
	}
}
