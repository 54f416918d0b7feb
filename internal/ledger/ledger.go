// Package ledger is the simulated blockchain ledger for flagged accounts.
//
// A "ledger write" here is an append to a local durable table together with
// a fabricated transaction identifier. The transaction hash, block number,
// and gas figures look like on-chain metadata but are generated locally;
// nothing is ever submitted to a real chain.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fakelens/fakelens/internal/idgen"
	"github.com/fakelens/fakelens/internal/metrics"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidRecord = errors.New("invalid record")
)

// Fabricated gas and block ranges, matching typical simple-transfer
// transactions closely enough to read as plausible in a demo UI.
const (
	blockNumberMin = 1_000_000
	blockNumberMax = 9_999_999
	gasUsedMin     = 21_000
	gasUsedMax     = 100_000
)

// Record is one flagged-account entry on the ledger.
type Record struct {
	ID          string    `json:"id"`
	Platform    string    `json:"platform"`
	Username    string    `json:"username"`
	RiskScore   float64   `json:"risk_score"`
	Evidence    []string  `json:"evidence"`
	TxHash      string    `json:"tx_hash"`
	BlockNumber int64     `json:"block_number"`
	GasUsed     int64     `json:"gas_used"`
	CreatedAt   time.Time `json:"timestamp"`
}

// Stats summarizes the ledger contents.
type Stats struct {
	TotalRecords int64     `json:"blockchain_records"`
	HighRisk     int64     `json:"fake_detected"`
	MediumRisk   int64     `json:"medium_risk"`
	LastUpdated  time.Time `json:"last_updated"`
}

// Store persists ledger records.
type Store interface {
	Append(ctx context.Context, rec *Record) error
	Latest(ctx context.Context, limit int) ([]*Record, error)
	Count(ctx context.Context) (int64, error)
	CountRiskAtLeast(ctx context.Context, min float64) (int64, error)
}

// Ledger fabricates transaction metadata and appends records to a Store.
type Ledger struct {
	store Store

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// New creates a ledger over the given store.
func New(store Store) *Ledger {
	return &Ledger{
		store: store,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   time.Now,
	}
}

// Report appends a flagged-account record and returns it with the
// fabricated transaction metadata filled in.
func (l *Ledger) Report(ctx context.Context, platform, username string, riskScore float64, evidence []string) (*Record, error) {
	if platform == "" || username == "" {
		return nil, fmt.Errorf("%w: platform and username are required", ErrInvalidRecord)
	}
	if riskScore < 0 || riskScore > 1 {
		return nil, fmt.Errorf("%w: risk score %v out of [0,1]", ErrInvalidRecord, riskScore)
	}
	if evidence == nil {
		evidence = []string{}
	}

	now := l.now().UTC()

	rec := &Record{
		ID:        idgen.WithPrefix("rec_"),
		Platform:  platform,
		Username:  username,
		RiskScore: riskScore,
		Evidence:  evidence,
		TxHash:    fabricateTxHash(platform, username, riskScore, now),
		CreatedAt: now,
	}

	l.mu.Lock()
	rec.BlockNumber = int64(blockNumberMin + l.rng.Intn(blockNumberMax-blockNumberMin))
	rec.GasUsed = int64(gasUsedMin + l.rng.Intn(gasUsedMax-gasUsedMin))
	l.mu.Unlock()

	if err := l.store.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("ledger append: %w", err)
	}

	metrics.LedgerRecordsTotal.Inc()
	return rec, nil
}

// Latest returns the newest records, capped at limit.
func (l *Ledger) Latest(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	return l.store.Latest(ctx, limit)
}

// Stats aggregates ledger counts. Each figure comes from its own query so
// a partial failure surfaces as an error rather than a silently zeroed
// field.
func (l *Ledger) Stats(ctx context.Context, highRiskMin, mediumRiskMin float64) (*Stats, error) {
	total, err := l.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger count: %w", err)
	}
	high, err := l.store.CountRiskAtLeast(ctx, highRiskMin)
	if err != nil {
		return nil, fmt.Errorf("ledger high-risk count: %w", err)
	}
	medium, err := l.store.CountRiskAtLeast(ctx, mediumRiskMin)
	if err != nil {
		return nil, fmt.Errorf("ledger medium-risk count: %w", err)
	}

	return &Stats{
		TotalRecords: total,
		HighRisk:     high,
		MediumRisk:   medium - high,
		LastUpdated:  l.now().UTC(),
	}, nil
}

// fabricateTxHash derives a transaction identifier from the record's
// identity and timestamp. Keccak over the same fields a real contract call
// would carry, so repeated reports of the same account still produce
// distinct hashes.
func fabricateTxHash(platform, username string, riskScore float64, now time.Time) string {
	payload := fmt.Sprintf("%s|%s|%.6f|%d", platform, username, riskScore, now.UnixNano())
	return crypto.Keccak256Hash([]byte(payload)).Hex()
}
