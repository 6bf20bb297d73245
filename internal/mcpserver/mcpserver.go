// Package mcpserver exposes the persisted state over the Model Context
// Protocol on stdio, so other assistants can list sessions, read
// transcripts, and search long-term memory.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mnemo-ai/mnemo/internal/memory"
	"github.com/mnemo-ai/mnemo/internal/session"
	"github.com/mnemo-ai/mnemo/internal/transcript"
)

// Server wraps an MCP stdio server over the persistence stores.
type Server struct {
	mcp         *server.MCPServer
	logger      *slog.Logger
	sessions    *session.Repository
	transcripts *transcript.Store
	memories    memory.Searcher
}

// New creates the MCP server and registers its tools. Memories is
// optional; without it the memory_search tool is not registered.
func New(version string, sessions *session.Repository, transcripts *transcript.Store, memories memory.Searcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mcp:         server.NewMCPServer("mnemo", version),
		logger:      logger.With("component", "mcpserver"),
		sessions:    sessions,
		transcripts: transcripts,
		memories:    memories,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("session_list",
		mcp.WithDescription("List all sessions with their metadata, most recently updated first."),
	), s.handleSessionList)

	s.mcp.AddTool(mcp.NewTool("transcript_read",
		mcp.WithDescription("Read a session transcript as JSONL entries."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("ID of the session whose transcript to read."),
		),
		mcp.WithNumber("tail",
			mcp.Description("Return only the last N entries."),
		),
	), s.handleTranscriptRead)

	if s.memories != nil {
		s.mcp.AddTool(mcp.NewTool("memory_search",
			mcp.WithDescription("Full-text search over long-term memory entries."),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Search query."),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of entries to return (default 10)."),
			),
		), s.handleMemorySearch)
	}
}

// Serve runs the stdio transport until the client disconnects.
func (s *Server) Serve() error {
	s.logger.Info("mcp server listening on stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleSessionList(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.sessions.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolResultJSON(list)
}

func (s *Server) handleTranscriptRead(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := req.RequireString("sessionId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var entries []transcript.Entry
	if tail := req.GetInt("tail", 0); tail > 0 {
		entries, err = s.transcripts.ReadTail(sessionID, tail)
	} else {
		entries, err = s.transcripts.Read(sessionID)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if entries == nil {
		entries = []transcript.Entry{}
	}
	return toolResultJSON(entries)
}

func (s *Server) handleMemorySearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", 10)
	if limit <= 0 {
		return mcp.NewToolResultError("limit must be positive"), nil
	}

	entries, err := s.memories.Search(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if entries == nil {
		entries = []memory.Entry{}
	}
	return toolResultJSON(entries)
}

func toolResultJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcpserver: marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
