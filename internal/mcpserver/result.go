package mcpserver

import (
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/moonshine/internal/apperr"
)

// jsonResult renders v as indented JSON text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// errorResult turns err into an isError result. Unclassified errors are
// storage or programming faults and get logged.
func (s *Server) errorResult(tool string, err error) (*mcp.CallToolResult, error) {
	if apperr.KindOf(err) == nil {
		s.log.Error("mcp: tool failed", slog.String("tool", tool), slog.String("error", err.Error()))
	}
	return mcp.NewToolResultError(err.Error()), nil
}

// bind decodes the call arguments into target.
func bind(req mcp.CallToolRequest, target any) error {
	if err := req.BindArguments(target); err != nil {
		return apperr.Validation("invalid arguments: %v", err)
	}
	return nil
}
