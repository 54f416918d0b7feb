package ml

import (
	"fmt"
	"math"
)

// Scaler normalizes numeric feature columns to zero mean and unit variance.
// Like the vectorizer, it is fitted exactly once and immutable afterward.
type Scaler struct {
	Mean   []float64
	Scale  []float64 // per-column standard deviation; 1 for constant columns
	Fitted bool
}

// NewScaler creates an unfitted scaler.
func NewScaler() *Scaler {
	return &Scaler{}
}

// Fit computes per-column mean and standard deviation over the matrix.
func (s *Scaler) Fit(rows [][]float64) error {
	if s.Fitted {
		return ErrAlreadyFitted
	}
	if len(rows) == 0 {
		return fmt.Errorf("scaler: empty training matrix")
	}

	cols := len(rows[0])
	s.Mean = make([]float64, cols)
	s.Scale = make([]float64, cols)

	n := float64(len(rows))
	for _, row := range rows {
		if len(row) != cols {
			return fmt.Errorf("scaler: ragged matrix, row has %d columns, want %d", len(row), cols)
		}
		for j, x := range row {
			s.Mean[j] += x
		}
	}
	for j := range s.Mean {
		s.Mean[j] /= n
	}

	for _, row := range rows {
		for j, x := range row {
			d := x - s.Mean[j]
			s.Scale[j] += d * d
		}
	}
	for j := range s.Scale {
		s.Scale[j] = math.Sqrt(s.Scale[j] / n)
		// Constant columns scale to zero after centering rather than NaN.
		if s.Scale[j] == 0 {
			s.Scale[j] = 1
		}
	}

	s.Fitted = true
	return nil
}

// Transform standardizes one row against the frozen mean and scale.
func (s *Scaler) Transform(row []float64) ([]float64, error) {
	if !s.Fitted {
		return nil, ErrNotTrained
	}
	if len(row) != len(s.Mean) {
		return nil, fmt.Errorf("scaler: row has %d columns, want %d", len(row), len(s.Mean))
	}

	out := make([]float64, len(row))
	for j, x := range row {
		out[j] = (x - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// Dim returns the number of fitted columns.
func (s *Scaler) Dim() int {
	return len(s.Mean)
}
