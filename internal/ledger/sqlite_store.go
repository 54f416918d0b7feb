package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore persists ledger records in a local SQLite file. This is the
// default durable mode for single-node deployments; Postgres takes over
// when DATABASE_URL is set.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the ledger database at the given path,
// creating parent directories as needed.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create ledger db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}

	// SQLite supports one writer; keep the pool at a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger tables: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createTables() error {
	_, err := s.db.ExecContext(context.Background(), `
		CREATE TABLE IF NOT EXISTS fake_account_reports (
			id           TEXT PRIMARY KEY,
			platform     TEXT NOT NULL,
			username     TEXT NOT NULL,
			risk_score   REAL NOT NULL,
			evidence     TEXT NOT NULL,
			tx_hash      TEXT NOT NULL,
			block_number INTEGER NOT NULL,
			gas_used     INTEGER NOT NULL,
			created_at   TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_reports_created ON fake_account_reports(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_reports_risk ON fake_account_reports(risk_score);
	`)
	return err
}

func (s *SQLiteStore) Append(ctx context.Context, rec *Record) error {
	evidence, err := json.Marshal(rec.Evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO fake_account_reports
			(id, platform, username, risk_score, evidence, tx_hash, block_number, gas_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Platform, rec.Username, rec.RiskScore, string(evidence),
		rec.TxHash, rec.BlockNumber, rec.GasUsed, rec.CreatedAt)
	return err
}

func (s *SQLiteStore) Latest(ctx context.Context, limit int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, platform, username, risk_score, evidence, tx_hash, block_number, gas_used, created_at
		FROM fake_account_reports
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fake_account_reports`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) CountRiskAtLeast(ctx context.Context, min float64) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fake_account_reports WHERE risk_score >= ?`, min).Scan(&n)
	return n, err
}

// scanRecords reads rows shaped by the shared SELECT column list. Both SQL
// stores use it; the column order is part of their contract.
func scanRecords(rows *sql.Rows) ([]*Record, error) {
	out := make([]*Record, 0)
	for rows.Next() {
		var rec Record
		var evidence string
		if err := rows.Scan(&rec.ID, &rec.Platform, &rec.Username, &rec.RiskScore,
			&evidence, &rec.TxHash, &rec.BlockNumber, &rec.GasUsed, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(evidence), &rec.Evidence); err != nil {
			return nil, fmt.Errorf("unmarshal evidence for %s: %w", rec.ID, err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
