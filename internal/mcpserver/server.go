package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all detection tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("fakelens", "1.0.0")
	client := NewAPIClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolAnalyzeProfile, h.HandleAnalyzeProfile)
	s.AddTool(ToolGetLedgerRecords, h.HandleGetLedgerRecords)
	s.AddTool(ToolGetDetectionStats, h.HandleGetDetectionStats)
	s.AddTool(ToolReportAccount, h.HandleReportAccount)

	return s
}
