// Package reports builds and dispatches flagged-account reports to the
// responsible agency inbox.
package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/fakelens/fakelens/internal/idgen"
	"github.com/fakelens/fakelens/internal/metrics"
)

var ErrInvalidReport = errors.New("invalid report")

// DefaultAgency receives reports when no agency is named.
const DefaultAgency = "itbp"

// agencyEmails routes reports to the responsible inbox.
var agencyEmails = map[string]string{
	"itbp":       "itbp.cybersecurity@gov.in",
	"cybercrime": "cybercrime@police.gov.in",
	"mha":        "mha.security@gov.in",
	"meity":      "meity.cyber@gov.in",
}

const defaultAgencyEmail = "default@gov.in"

// AgencyEmail returns the inbox for an agency, falling back to the
// default address for unknown agencies.
func AgencyEmail(agency string) string {
	if email, ok := agencyEmails[strings.ToLower(agency)]; ok {
		return email
	}
	return defaultAgencyEmail
}

// Request is the caller-supplied report payload. Risk fields are consumed
// verbatim from a prior analysis response.
type Request struct {
	Platform       string   `json:"platform"`
	Username       string   `json:"username"`
	RiskScore      float64  `json:"risk_score"`
	RiskLevel      string   `json:"risk_level"`
	Confidence     float64  `json:"confidence"`
	Evidence       []string `json:"evidence"`
	Priority       string   `json:"priority"`
	Agency         string   `json:"agency"`
	BlockchainHash string   `json:"blockchain_hash"`
}

// Report is a dispatched report with its generated identity.
type Report struct {
	ReportID       string    `json:"report_id"`
	Platform       string    `json:"platform"`
	Username       string    `json:"username"`
	RiskScore      float64   `json:"risk_score"`
	RiskLevel      string    `json:"risk_level"`
	Confidence     float64   `json:"confidence"`
	Evidence       []string  `json:"evidence"`
	Priority       string    `json:"priority"`
	Agency         string    `json:"agency"`
	Recipient      string    `json:"recipient"`
	BlockchainHash string    `json:"blockchain_hash,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Service builds report emails and hands them to a Sender.
type Service struct {
	sender Sender
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a report service over the given sender.
func NewService(sender Sender, logger *slog.Logger) *Service {
	return &Service{sender: sender, logger: logger, now: time.Now}
}

// Generate builds the report, renders the email body, and dispatches it.
func (s *Service) Generate(ctx context.Context, req Request) (*Report, error) {
	if req.Platform == "" || req.Username == "" {
		return nil, fmt.Errorf("%w: platform and username are required", ErrInvalidReport)
	}

	agency := strings.ToLower(req.Agency)
	if agency == "" {
		agency = DefaultAgency
	}
	priority := strings.ToLower(req.Priority)
	if priority == "" {
		priority = "medium"
	}

	now := s.now().UTC()

	report := &Report{
		ReportID:       idgen.ReportID(now),
		Platform:       req.Platform,
		Username:       req.Username,
		RiskScore:      req.RiskScore,
		RiskLevel:      req.RiskLevel,
		Confidence:     req.Confidence,
		Evidence:       req.Evidence,
		Priority:       priority,
		Agency:         agency,
		Recipient:      AgencyEmail(agency),
		BlockchainHash: req.BlockchainHash,
		Timestamp:      now,
	}

	body, err := renderBody(report)
	if err != nil {
		return nil, fmt.Errorf("render report body: %w", err)
	}

	email := Email{
		To:       report.Recipient,
		Subject:  fmt.Sprintf("Fake Account Detection Report - %s Priority", strings.ToUpper(priority)),
		HTMLBody: body,
	}

	if err := s.sender.Send(ctx, email); err != nil {
		metrics.ReportsSentTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("send report: %w", err)
	}

	metrics.ReportsSentTotal.WithLabelValues("success").Inc()
	s.logger.Info("report dispatched",
		"report_id", report.ReportID,
		"agency", report.Agency,
		"recipient", report.Recipient)

	return report, nil
}

// bodyTemplate mirrors the layout agencies already receive from the
// legacy system, minus the inline emoji.
var bodyTemplate = template.Must(template.New("report").Parse(`<html>
<body>
<h2>ITBP Fake Account Detection Report</h2>
<hr>

<h3>Account Details:</h3>
<ul>
	<li><strong>Platform:</strong> {{.Platform}}</li>
	<li><strong>Username:</strong> @{{.Username}}</li>
	<li><strong>Risk Score:</strong> {{printf "%.2f" .RiskScorePct}}%</li>
	<li><strong>Risk Level:</strong> {{.RiskLevel}}</li>
</ul>

<h3>Analysis Results:</h3>
<ul>
	<li><strong>Confidence:</strong> {{printf "%.2f" .ConfidencePct}}%</li>
	<li><strong>Detection Timestamp:</strong> {{.Timestamp}}</li>
</ul>

<h3>Evidence:</h3>
{{if .Evidence}}<ul>{{range .Evidence}}
	<li>{{.}}</li>{{end}}
</ul>{{else}}<p>No additional evidence provided</p>{{end}}

<h3>Recommended Actions:</h3>
<ul>
	<li>Verify account manually</li>
	<li>Contact platform for suspension</li>
	<li>Monitor for similar patterns</li>
</ul>

<hr>
<p><em>Generated by the Fake Account Detection System</em></p>
<p><strong>Report ID:</strong> {{.ReportID}}</p>
<p><strong>Blockchain Record:</strong> {{.BlockchainHash}}</p>
</body>
</html>`))

func renderBody(report *Report) (string, error) {
	hash := report.BlockchainHash
	if hash == "" {
		hash = "N/A"
	}

	data := struct {
		*Report
		RiskScorePct   float64
		ConfidencePct  float64
		RiskLevel      string
		Timestamp      string
		BlockchainHash string
	}{
		Report:         report,
		RiskScorePct:   report.RiskScore * 100,
		ConfidencePct:  report.Confidence * 100,
		RiskLevel:      strings.ToUpper(report.RiskLevel),
		Timestamp:      report.Timestamp.Format(time.RFC3339),
		BlockchainHash: hash,
	}

	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
