package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *APIClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *APIClient) *Handlers {
	return &Handlers{client: client}
}

// HandleAnalyzeProfile runs a profile through the detection pipeline.
func (h *Handlers) HandleAnalyzeProfile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	platform := req.GetString("platform", "")
	if platform == "" {
		return mcp.NewToolResultError("platform is required"), nil
	}
	username := req.GetString("username", "")
	if username == "" {
		return mcp.NewToolResultError("username is required"), nil
	}

	payload := map[string]any{
		"platform": platform,
		"username": username,
	}
	// Optional fields are forwarded only when supplied, so the pipeline's
	// absent-field defaults still apply.
	args := req.GetArguments()
	for _, key := range []string{
		"bio",
		"profile_picture_present",
		"follower_count",
		"following_count",
		"post_count",
		"account_age_days",
		"verified",
		"engagement_rate",
		"posting_frequency",
	} {
		if v, ok := args[key]; ok {
			payload[key] = v
		}
	}

	raw, err := h.client.AnalyzeProfile(ctx, payload)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Analysis failed: %v", err)), nil
	}

	text, err := formatAnalysis(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse analysis: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetLedgerRecords lists recent evidence ledger records.
func (h *Handlers) HandleGetLedgerRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 0)

	raw, err := h.client.LedgerRecords(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to fetch ledger records: %v", err)), nil
	}

	text, err := formatRecordList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse records: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetDetectionStats returns aggregate detection statistics.
func (h *Handlers) HandleGetDetectionStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get stats: %v", err)), nil
	}

	text, err := formatStats(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse stats: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleReportAccount files an email report for a flagged account.
func (h *Handlers) HandleReportAccount(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	platform := req.GetString("platform", "")
	if platform == "" {
		return mcp.NewToolResultError("platform is required"), nil
	}
	username := req.GetString("username", "")
	if username == "" {
		return mcp.NewToolResultError("username is required"), nil
	}

	payload := map[string]any{
		"platform": platform,
		"username": username,
	}
	args := req.GetArguments()
	for _, key := range []string{"risk_score", "risk_level", "agency", "priority", "blockchain_hash"} {
		if v, ok := args[key]; ok {
			payload[key] = v
		}
	}

	raw, err := h.client.SubmitReport(ctx, payload)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Report failed: %v", err)), nil
	}

	text, err := formatReport(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse report: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

func formatAnalysis(raw json.RawMessage) (string, error) {
	var resp struct {
		Analysis   map[string]any `json:"analysis"`
		Blockchain map[string]any `json:"blockchain"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if resp.Analysis == nil {
		return "", fmt.Errorf("no analysis in response: %s", string(raw))
	}

	var sb strings.Builder
	sb.WriteString("Analysis Result:\n")
	if v, ok := getFloat(resp.Analysis, "fake_probability"); ok {
		fmt.Fprintf(&sb, "  Fake Probability: %.1f%%\n", v*100)
	}
	if v := getString(resp.Analysis, "risk_level"); v != "" {
		fmt.Fprintf(&sb, "  Risk Level: %s\n", strings.ToUpper(v))
	}
	if v, ok := getFloat(resp.Analysis, "confidence"); ok {
		fmt.Fprintf(&sb, "  Confidence: %.1f%%\n", v*100)
	}

	if reasons, ok := resp.Analysis["explanation"].([]any); ok && len(reasons) > 0 {
		sb.WriteString("\nExplanation:\n")
		for _, r := range reasons {
			if s, ok := r.(string); ok {
				fmt.Fprintf(&sb, "  - %s\n", s)
			}
		}
	}

	if resp.Blockchain != nil {
		sb.WriteString("\nLedger Record:\n")
		if v := getString(resp.Blockchain, "tx_hash"); v != "" {
			fmt.Fprintf(&sb, "  Tx Hash: %s\n", v)
		}
		if v, ok := getFloat(resp.Blockchain, "block_number"); ok {
			fmt.Fprintf(&sb, "  Block: %.0f\n", v)
		}
	}

	return sb.String(), nil
}

func formatRecordList(raw json.RawMessage) (string, error) {
	var resp struct {
		Records []map[string]any `json:"records"`
		Total   int              `json:"total"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	if len(resp.Records) == 0 {
		return "No ledger records found.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d record(s) (total %d):\n\n", len(resp.Records), resp.Total)
	for i, r := range resp.Records {
		platform := getString(r, "platform")
		username := getString(r, "username")
		fmt.Fprintf(&sb, "%d. %s/%s", i+1, platform, username)
		if score, ok := getFloat(r, "risk_score"); ok {
			fmt.Fprintf(&sb, " (risk %.1f%%)", score*100)
		}
		sb.WriteString("\n")
		if v := getString(r, "tx_hash"); v != "" {
			fmt.Fprintf(&sb, "   Tx: %s\n", v)
		}
	}
	return sb.String(), nil
}

func formatStats(raw json.RawMessage) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Detection Statistics:\n")
	if v, ok := getFloat(m, "blockchain_records"); ok {
		fmt.Fprintf(&sb, "  Ledger Records: %.0f\n", v)
	}
	if v, ok := getFloat(m, "fake_detected"); ok {
		fmt.Fprintf(&sb, "  High Risk: %.0f\n", v)
	}
	if v, ok := getFloat(m, "medium_risk"); ok {
		fmt.Fprintf(&sb, "  Medium Risk: %.0f\n", v)
	}
	if v := getString(m, "last_updated"); v != "" {
		fmt.Fprintf(&sb, "  Last Updated: %s\n", v)
	}
	return sb.String(), nil
}

func formatReport(raw json.RawMessage) (string, error) {
	var resp struct {
		ReportData map[string]any `json:"report_data"`
		Status     string         `json:"status"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if resp.ReportData == nil {
		return "", fmt.Errorf("no report data in response: %s", string(raw))
	}

	var sb strings.Builder
	sb.WriteString("Report Filed:\n")
	if v := getString(resp.ReportData, "report_id"); v != "" {
		fmt.Fprintf(&sb, "  Report ID: %s\n", v)
	}
	if v := getString(resp.ReportData, "recipient"); v != "" {
		fmt.Fprintf(&sb, "  Sent To: %s\n", v)
	}
	if v := getString(resp.ReportData, "priority"); v != "" {
		fmt.Fprintf(&sb, "  Priority: %s\n", v)
	}
	if resp.Status != "" {
		fmt.Fprintf(&sb, "  Status: %s\n", resp.Status)
	}
	return sb.String(), nil
}

// getString extracts a string value from a map, trying multiple key names.
func getString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok {
			return v
		}
	}
	return ""
}

// getFloat extracts a numeric value from a map, trying multiple key names.
func getFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k].(float64); ok {
			return v, true
		}
	}
	return 0, false
}
