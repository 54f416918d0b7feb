package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the detection MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolAnalyzeProfile = mcp.NewTool("analyze_profile",
	mcp.WithDescription(
		"Analyze a social media profile for signs of being a fake account. "+
			"Returns a fake probability, risk level (low/medium/high), the extracted "+
			"feature values, and human-readable explanations. High and medium risk "+
			"results are anchored on the evidence ledger automatically."),
	mcp.WithString("platform",
		mcp.Required(),
		mcp.Description("Platform the account lives on (e.g. 'twitter', 'instagram', 'facebook')")),
	mcp.WithString("username",
		mcp.Required(),
		mcp.Description("The account's username or handle")),
	mcp.WithString("bio",
		mcp.Description("The account's bio or description text")),
	mcp.WithBoolean("profile_picture_present",
		mcp.Description("Whether the account has a profile picture")),
	mcp.WithNumber("follower_count",
		mcp.Description("Number of followers")),
	mcp.WithNumber("following_count",
		mcp.Description("Number of accounts followed")),
	mcp.WithNumber("post_count",
		mcp.Description("Number of posts")),
	mcp.WithNumber("account_age_days",
		mcp.Description("Age of the account in days")),
	mcp.WithBoolean("verified",
		mcp.Description("Whether the account is platform-verified")),
	mcp.WithNumber("engagement_rate",
		mcp.Description("Average engagement rate, 0.0 to 1.0")),
	mcp.WithNumber("posting_frequency",
		mcp.Description("Average posts per day")),
)

var ToolGetLedgerRecords = mcp.NewTool("get_ledger_records",
	mcp.WithDescription(
		"List recent evidence ledger records for accounts flagged as medium or high risk. "+
			"Each record carries the platform, username, risk score, evidence list, and the "+
			"simulated blockchain transaction metadata."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of records to return (default 50)")),
)

var ToolGetDetectionStats = mcp.NewTool("get_detection_stats",
	mcp.WithDescription(
		"Get aggregate detection statistics: total ledger records, how many accounts "+
			"were flagged high risk, and how many medium risk."),
)

var ToolReportAccount = mcp.NewTool("report_account",
	mcp.WithDescription(
		"File an email report about a fake account with a government cybersecurity agency. "+
			"Use this after analyze_profile flags an account as high risk."),
	mcp.WithString("platform",
		mcp.Required(),
		mcp.Description("Platform the account lives on")),
	mcp.WithString("username",
		mcp.Required(),
		mcp.Description("The account's username or handle")),
	mcp.WithNumber("risk_score",
		mcp.Description("Fake probability from a previous analyze_profile result, 0.0 to 1.0")),
	mcp.WithString("risk_level",
		mcp.Description("Risk level from a previous analyze_profile result"),
		mcp.Enum("low", "medium", "high")),
	mcp.WithString("agency",
		mcp.Description("Receiving agency: 'itbp' (default), 'cybercrime', 'mha', or 'meity'"),
		mcp.Enum("itbp", "cybercrime", "mha", "meity")),
	mcp.WithString("priority",
		mcp.Description("Report priority (default 'medium')"),
		mcp.Enum("low", "medium", "high")),
	mcp.WithString("blockchain_hash",
		mcp.Description("Ledger transaction hash from a previous analyze_profile result")),
)
