package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/prdforge/prdforge/internal/logging"
)

// LogsTool handles the get_logs MCP tool.
type LogsTool struct {
	logDir string
	log    zerolog.Logger
}

// NewLogsTool creates a LogsTool reading from logDir.
func NewLogsTool(logDir string, log zerolog.Logger) *LogsTool {
	return &LogsTool{logDir: logDir, log: log}
}

// Definition returns the MCP tool definition for get_logs.
func (t *LogsTool) Definition() mcp.Tool {
	return mcp.NewTool("get_logs",
		mcp.WithDescription("Return the tail of a server log file."),
		mcp.WithString("fileName",
			mcp.Description(fmt.Sprintf("Log file name within the log directory (default %q)", logging.DefaultLogFile)),
		),
		mcp.WithNumber("lines",
			mcp.Description(fmt.Sprintf("Number of trailing lines to return (default %d)", logging.DefaultTailLines)),
		),
	)
}

// Handle processes the get_logs tool call.
func (t *LogsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fileName := req.GetString("fileName", "")
	lines := intArg(req, "lines", 0)

	content, err := logging.Tail(t.logDir, fileName, lines)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read logs: %v", err)), nil
	}
	return mcp.NewToolResultText(content), nil
}
