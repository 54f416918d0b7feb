package ml

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/fakelens/fakelens/internal/profile"
)

// Model bundles the three fitted artifacts: text vectorizer, feature
// scaler, and forest classifier. A model is built by one synchronous Train
// pass and is immutable (and therefore safe for concurrent Predict calls)
// afterward.
type Model struct {
	Vectorizer *Vectorizer
	Scaler     *Scaler
	Forest     *Forest
	Trained    bool
}

// TrainConfig controls a training pass.
type TrainConfig struct {
	VocabularyCap int
	Forest        ForestConfig
}

// DefaultTrainConfig returns the standard training settings for the
// given seed.
func DefaultTrainConfig(seed int64) TrainConfig {
	return TrainConfig{
		VocabularyCap: DefaultVocabularyCap,
		Forest:        DefaultForestConfig(seed),
	}
}

// Train fits vectorizer, scaler, and classifier on the labeled examples.
func Train(examples []Example, cfg TrainConfig) (*Model, error) {
	if len(examples) == 0 {
		return nil, fmt.Errorf("train: empty example set")
	}

	numeric := make([][]float64, len(examples))
	texts := make([]string, len(examples))
	labels := make([]int, len(examples))
	for i, ex := range examples {
		numeric[i] = ex.Features.Slice()
		texts[i] = ex.Bio
		labels[i] = ex.Label
	}

	m := &Model{
		Vectorizer: NewVectorizer(cfg.VocabularyCap),
		Scaler:     NewScaler(),
	}

	if err := m.Vectorizer.Fit(texts); err != nil {
		return nil, fmt.Errorf("train: fit vectorizer: %w", err)
	}
	if err := m.Scaler.Fit(numeric); err != nil {
		return nil, fmt.Errorf("train: fit scaler: %w", err)
	}

	X := make([][]float64, len(examples))
	for i := range examples {
		row, err := m.combine(examples[i].Features, examples[i].Bio)
		if err != nil {
			return nil, fmt.Errorf("train: build row %d: %w", i, err)
		}
		X[i] = row
	}

	forest, err := TrainForest(X, labels, cfg.Forest)
	if err != nil {
		return nil, fmt.Errorf("train: fit classifier: %w", err)
	}
	m.Forest = forest
	m.Trained = true

	return m, nil
}

// Predict returns the fake-class posterior probability and the model's
// self-reported confidence (the maximum class posterior) for one profile.
func (m *Model) Predict(features profile.Features, bio string) (pFake, confidence float64, err error) {
	if m == nil || !m.Trained {
		return 0, 0, ErrNotTrained
	}

	row, err := m.combine(features, bio)
	if err != nil {
		return 0, 0, err
	}

	probs, err := m.Forest.PredictProba(row)
	if err != nil {
		return 0, 0, err
	}

	confidence = probs[0]
	if probs[1] > confidence {
		confidence = probs[1]
	}
	return probs[1], confidence, nil
}

// IsTrained reports whether the model holds fitted artifacts.
func (m *Model) IsTrained() bool {
	return m != nil && m.Trained
}

// combine builds the classifier input row: scaled numeric features followed
// by the TF-IDF text vector.
func (m *Model) combine(features profile.Features, bio string) ([]float64, error) {
	scaled, err := m.Scaler.Transform(features.Slice())
	if err != nil {
		return nil, err
	}
	text, err := m.Vectorizer.Transform(bio)
	if err != nil {
		return nil, err
	}
	return append(scaled, text...), nil
}

// Save writes the model to path with gob encoding. The file is written
// atomically via a temp file rename.
func (m *Model) Save(path string) error {
	if !m.IsTrained() {
		return ErrNotTrained
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("save model: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(m); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("save model: encode: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("save model: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

// LoadModel reads a previously saved model from path.
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	defer f.Close()

	var m Model
	if err := gob.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("load model: decode: %w", err)
	}
	if !m.IsTrained() {
		return nil, fmt.Errorf("load model: file %s holds an unfitted model", path)
	}
	return &m, nil
}
