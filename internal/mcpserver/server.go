// Package mcpserver exposes Moonshine over the Model Context Protocol,
// on stdio or streamable HTTP.
package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/moonshine/internal/graph"
	"github.com/starford/moonshine/internal/mashservice"
	"github.com/starford/moonshine/internal/retrieval"
)

// Server wraps the MCP server with Moonshine tools.
type Server struct {
	mcp    *server.MCPServer
	mashes *mashservice.Service
	graph  *graph.Service
	search *retrieval.Service
	log    *slog.Logger
}

// New creates a new MCP server with all Moonshine tools registered.
func New(mashes *mashservice.Service, g *graph.Service, search *retrieval.Service, version string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{mashes: mashes, graph: g, search: search, log: log}

	s.mcp = server.NewMCPServer(
		"Moonshine",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(s.logCalls),
	)

	s.registerMashTools()
	s.registerGraphTools()
	s.registerSearchTools()

	s.mcp.AddResource(
		mcp.NewResource(VocabularyURI, "Moonshine Vocabulary",
			mcp.WithResourceDescription("Mash types, statuses, relation types and edge sources."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readVocabulary,
	)

	return s
}

// ServeStdio serves JSON-RPC over in/out until ctx is cancelled or in is closed.
// Nothing but protocol messages may be written to out.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.log.Handler(), slog.LevelError))
	return stdio.Listen(ctx, in, out)
}

// HTTPHandler returns the streamable HTTP transport.
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// logCalls is a tool handler middleware that logs every call.
func (s *Server) logCalls(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		res, err := next(ctx, req)
		isErr := err != nil || (res != nil && res.IsError)
		s.log.Info("mcp: tool call",
			slog.String("tool", req.Params.Name),
			slog.Duration("duration", time.Since(start)),
			slog.Bool("is_error", isErr),
		)
		return res, err
	}
}

func (s *Server) readVocabulary(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      VocabularyURI,
			MIMEType: "text/markdown",
			Text:     Vocabulary,
		},
	}, nil
}
