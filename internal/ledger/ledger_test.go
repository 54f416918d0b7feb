package ledger

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var txHashPattern = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

func TestReportFabricatesTransaction(t *testing.T) {
	l := New(NewMemoryStore())
	ctx := context.Background()

	rec, err := l.Report(ctx, "instagram", "spam_account_99", 0.85,
		[]string{"Username contains many digits", "Recently created account"})
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "instagram", rec.Platform)
	assert.Equal(t, "spam_account_99", rec.Username)
	assert.Equal(t, 0.85, rec.RiskScore)
	assert.Len(t, rec.Evidence, 2)
	assert.Regexp(t, txHashPattern, rec.TxHash)
	assert.GreaterOrEqual(t, rec.BlockNumber, int64(blockNumberMin))
	assert.Less(t, rec.BlockNumber, int64(blockNumberMax))
	assert.GreaterOrEqual(t, rec.GasUsed, int64(gasUsedMin))
	assert.Less(t, rec.GasUsed, int64(gasUsedMax))
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestReportDistinctHashesForRepeatedAccount(t *testing.T) {
	l := New(NewMemoryStore())
	ctx := context.Background()

	// Advance the clock between reports; the hash covers the timestamp,
	// so re-reporting the same account yields a new transaction id.
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(time.Second)}
	i := 0
	l.now = func() time.Time { ts := times[i]; i++; return ts }

	first, err := l.Report(ctx, "twitter", "bot_account", 0.9, nil)
	require.NoError(t, err)
	second, err := l.Report(ctx, "twitter", "bot_account", 0.9, nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.TxHash, second.TxHash)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestReportValidation(t *testing.T) {
	l := New(NewMemoryStore())
	ctx := context.Background()

	_, err := l.Report(ctx, "", "someone", 0.5, nil)
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = l.Report(ctx, "twitter", "", 0.5, nil)
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = l.Report(ctx, "twitter", "someone", 1.2, nil)
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = l.Report(ctx, "twitter", "someone", -0.1, nil)
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestReportNilEvidenceBecomesEmpty(t *testing.T) {
	l := New(NewMemoryStore())

	rec, err := l.Report(context.Background(), "twitter", "someone", 0.5, nil)
	require.NoError(t, err)
	require.NotNil(t, rec.Evidence)
	assert.Empty(t, rec.Evidence)
}

func TestLatestNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	l := New(store)
	ctx := context.Background()

	for _, name := range []string{"first", "second", "third"} {
		_, err := l.Report(ctx, "instagram", name, 0.6, nil)
		require.NoError(t, err)
	}

	records, err := l.Latest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "third", records[0].Username)
	assert.Equal(t, "second", records[1].Username)

	// Non-positive limit falls back to the default page size.
	all, err := l.Latest(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStatsCounts(t *testing.T) {
	l := New(NewMemoryStore())
	ctx := context.Background()

	scores := []float64{0.95, 0.8, 0.7, 0.55, 0.4, 0.1}
	for _, score := range scores {
		_, err := l.Report(ctx, "twitter", "acct", score, nil)
		require.NoError(t, err)
	}

	stats, err := l.Stats(ctx, 0.7, 0.4)
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.TotalRecords)
	assert.Equal(t, int64(3), stats.HighRisk)
	assert.Equal(t, int64(2), stats.MediumRisk)
	assert.False(t, stats.LastUpdated.IsZero())
}

func TestMemoryStoreCopiesRecords(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec := &Record{ID: "rec_1", Platform: "x", Username: "u", RiskScore: 0.5,
		Evidence: []string{"flag"}, CreatedAt: time.Now()}
	require.NoError(t, store.Append(ctx, rec))

	// Mutating the caller's record after Append must not affect the store.
	rec.Evidence[0] = "mutated"
	rec.Username = "changed"

	got, err := store.Latest(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u", got[0].Username)
	assert.Equal(t, []string{"flag"}, got[0].Evidence)
}
