//go:build integration

package ledger

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
)

func setupTestDB(t *testing.T) (*PostgresStore, func()) {
	t.Helper()

	dbURL := os.Getenv("POSTGRES_URL")
	if dbURL == "" {
		t.Skip("POSTGRES_URL not set, skipping integration test")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()

	// The goose migration normally owns the schema; create it here so the
	// test can run against a bare database.
	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS fake_account_reports (
			id           VARCHAR(36) PRIMARY KEY,
			platform     VARCHAR(50) NOT NULL,
			username     VARCHAR(255) NOT NULL,
			risk_score   DOUBLE PRECISION NOT NULL,
			evidence     TEXT NOT NULL,
			tx_hash      VARCHAR(66) NOT NULL,
			block_number BIGINT NOT NULL,
			gas_used     BIGINT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	cleanup := func() {
		db.ExecContext(ctx, "DELETE FROM fake_account_reports")
		db.Close()
	}

	return NewPostgresStore(db), cleanup
}

func TestPostgres_AppendAndLatest(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)

	older := &Record{
		ID: "rec_pg_older", Platform: "instagram", Username: "older",
		RiskScore: 0.45, Evidence: []string{"Bio is very short or empty"},
		TxHash: "0x1111111111111111111111111111111111111111111111111111111111111111",
		BlockNumber: 2_000_000, GasUsed: 25_000, CreatedAt: base,
	}
	newer := &Record{
		ID: "rec_pg_newer", Platform: "twitter", Username: "newer",
		RiskScore: 0.9, Evidence: []string{},
		TxHash: "0x2222222222222222222222222222222222222222222222222222222222222222",
		BlockNumber: 3_000_000, GasUsed: 40_000, CreatedAt: base.Add(time.Second),
	}

	if err := store.Append(ctx, older); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append(ctx, newer); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	records, err := store.Latest(ctx, 50)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].Username != "newer" || records[1].Username != "older" {
		t.Errorf("Records not ordered newest first: %s, %s", records[0].Username, records[1].Username)
	}
	if len(records[1].Evidence) != 1 || records[1].Evidence[0] != "Bio is very short or empty" {
		t.Errorf("Evidence not preserved: %v", records[1].Evidence)
	}
}

func TestPostgres_Counts(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	l := New(store)

	scores := []float64{0.95, 0.7, 0.5, 0.2}
	for _, score := range scores {
		if _, err := l.Report(ctx, "twitter", "acct", score, nil); err != nil {
			t.Fatalf("Report failed: %v", err)
		}
	}

	total, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if total != 4 {
		t.Errorf("Expected total 4, got %d", total)
	}

	high, err := store.CountRiskAtLeast(ctx, 0.7)
	if err != nil {
		t.Fatalf("CountRiskAtLeast failed: %v", err)
	}
	if high != 2 {
		t.Errorf("Expected 2 high-risk records, got %d", high)
	}
}
