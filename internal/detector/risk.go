// Package detector composes feature extraction, the trained classifier,
// risk-tier mapping, and explanation rules into the analyze pipeline.
package detector

// RiskLevel is the discrete risk tier for a scored profile.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Risk tier boundaries on the fake-class probability. RiskThresholdMedium
// doubles as the ledger-write cutoff, so collaborators key off the same
// constant rather than a copied literal.
const (
	RiskThresholdHigh   = 0.7
	RiskThresholdMedium = 0.4
)

// RiskLevelFor maps a fake probability to its risk tier. Boundaries are
// inclusive: exactly 0.4 is medium, exactly 0.7 is high.
func RiskLevelFor(p float64) RiskLevel {
	switch {
	case p >= RiskThresholdHigh:
		return RiskHigh
	case p >= RiskThresholdMedium:
		return RiskMedium
	default:
		return RiskLow
	}
}
