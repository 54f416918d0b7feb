package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore implements Store with PostgreSQL. The schema is managed by
// goose migrations under migrations/, not created here.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed ledger store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Append(ctx context.Context, rec *Record) error {
	evidence, err := json.Marshal(rec.Evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO fake_account_reports
			(id, platform, username, risk_score, evidence, tx_hash, block_number, gas_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rec.ID, rec.Platform, rec.Username, rec.RiskScore, string(evidence),
		rec.TxHash, rec.BlockNumber, rec.GasUsed, rec.CreatedAt)
	return err
}

func (p *PostgresStore) Latest(ctx context.Context, limit int) ([]*Record, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, platform, username, risk_score, evidence, tx_hash, block_number, gas_used, created_at
		FROM fake_account_reports
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (p *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fake_account_reports`).Scan(&n)
	return n, err
}

func (p *PostgresStore) CountRiskAtLeast(ctx context.Context, min float64) (int64, error) {
	var n int64
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fake_account_reports WHERE risk_score >= $1`, min).Scan(&n)
	return n, err
}
