package reports

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSender captures dispatched emails for assertions.
type recordingSender struct {
	emails []Email
	err    error
}

func (r *recordingSender) Send(ctx context.Context, email Email) error {
	if r.err != nil {
		return r.err
	}
	r.emails = append(r.emails, email)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAgencyEmailRouting(t *testing.T) {
	tests := []struct {
		agency string
		want   string
	}{
		{"itbp", "itbp.cybersecurity@gov.in"},
		{"cybercrime", "cybercrime@police.gov.in"},
		{"mha", "mha.security@gov.in"},
		{"meity", "meity.cyber@gov.in"},
		{"MEITY", "meity.cyber@gov.in"},
		{"unknown", "default@gov.in"},
		{"", "default@gov.in"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, AgencyEmail(tc.agency), "agency %q", tc.agency)
	}
}

func TestGenerateBuildsReport(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, discardLogger())
	svc.now = func() time.Time {
		return time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)
	}

	report, err := svc.Generate(context.Background(), Request{
		Platform:       "twitter",
		Username:       "follow4follow99",
		RiskScore:      0.92,
		RiskLevel:      "high",
		Confidence:     0.92,
		Evidence:       []string{"Bio contains suspicious keywords"},
		Priority:       "HIGH",
		Agency:         "cybercrime",
		BlockchainHash: "0xdeadbeef",
	})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^RPT-20260820-\d{4}$`), report.ReportID)
	assert.Equal(t, "cybercrime", report.Agency)
	assert.Equal(t, "cybercrime@police.gov.in", report.Recipient)
	assert.Equal(t, "high", report.Priority)
	assert.Equal(t, time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC), report.Timestamp)

	require.Len(t, sender.emails, 1)
	email := sender.emails[0]
	assert.Equal(t, "cybercrime@police.gov.in", email.To)
	assert.Equal(t, "Fake Account Detection Report - HIGH Priority", email.Subject)
	assert.Contains(t, email.HTMLBody, "@follow4follow99")
	assert.Contains(t, email.HTMLBody, "92.00%")
	assert.Contains(t, email.HTMLBody, "HIGH")
	assert.Contains(t, email.HTMLBody, "Bio contains suspicious keywords")
	assert.Contains(t, email.HTMLBody, "0xdeadbeef")
	assert.Contains(t, email.HTMLBody, report.ReportID)
}

func TestGenerateDefaults(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, discardLogger())

	report, err := svc.Generate(context.Background(), Request{
		Platform: "instagram",
		Username: "someone",
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultAgency, report.Agency)
	assert.Equal(t, "itbp.cybersecurity@gov.in", report.Recipient)
	assert.Equal(t, "medium", report.Priority)

	require.Len(t, sender.emails, 1)
	assert.Contains(t, sender.emails[0].Subject, "MEDIUM Priority")
	assert.Contains(t, sender.emails[0].HTMLBody, "No additional evidence provided")
	assert.Contains(t, sender.emails[0].HTMLBody, "N/A")
}

func TestGenerateValidation(t *testing.T) {
	svc := NewService(&recordingSender{}, discardLogger())

	_, err := svc.Generate(context.Background(), Request{Username: "someone"})
	assert.ErrorIs(t, err, ErrInvalidReport)

	_, err = svc.Generate(context.Background(), Request{Platform: "twitter"})
	assert.ErrorIs(t, err, ErrInvalidReport)
}

func TestGenerateSenderFailure(t *testing.T) {
	sendErr := errors.New("smtp unreachable")
	svc := NewService(&recordingSender{err: sendErr}, discardLogger())

	_, err := svc.Generate(context.Background(), Request{
		Platform: "twitter",
		Username: "someone",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, sendErr)
}

func TestRenderBodyEscapesInput(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, discardLogger())

	_, err := svc.Generate(context.Background(), Request{
		Platform: "twitter",
		Username: "<script>alert(1)</script>",
	})
	require.NoError(t, err)

	require.Len(t, sender.emails, 1)
	body := sender.emails[0].HTMLBody
	assert.NotContains(t, body, "<script>")
	assert.True(t, strings.Contains(body, "&lt;script&gt;"))
}

func TestLogSenderNeverFails(t *testing.T) {
	sender := NewLogSender(discardLogger())
	err := sender.Send(context.Background(), Email{
		To:       "itbp.cybersecurity@gov.in",
		Subject:  "Fake Account Detection Report - HIGH Priority",
		HTMLBody: "<html></html>",
	})
	assert.NoError(t, err)
}
