package detector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fakelens/fakelens/internal/metrics"
	"github.com/fakelens/fakelens/internal/ml"
	"github.com/fakelens/fakelens/internal/profile"
)

// ErrTrainingFailed wraps a failed training pass. Training is not retried:
// the service keeps returning the original failure, and the process is
// expected to exit.
var ErrTrainingFailed = errors.New("training failed")

// State of the model lifecycle.
type State int32

const (
	StateUntrained State = iota
	StateTraining
	StateReady
)

func (s State) String() string {
	switch s {
	case StateTraining:
		return "training"
	case StateReady:
		return "ready"
	default:
		return "untrained"
	}
}

// Result is the outcome of scoring one profile. All fields are populated
// together; a partial result is never returned.
type Result struct {
	FakeProbability float64            `json:"fake_probability"`
	RiskLevel       RiskLevel          `json:"risk_level"`
	Confidence      float64            `json:"confidence"`
	Features        map[string]float64 `json:"features"`
	Explanation     []string           `json:"explanation"`
}

// Config for the pipeline service.
type Config struct {
	// TrainingSamples is the synthetic corpus size (positive, even).
	TrainingSamples int

	// Seed drives the synthesizer, the classifier, and the extractor's
	// default-value substitution.
	Seed int64

	// ModelPath, when set, is checked for a persisted model before
	// training and receives the fitted model after a successful pass.
	ModelPath string
}

// Service owns the trained model lifecycle and exposes the two pipeline
// operations: Train and Analyze. The model pointer is immutable once
// published, so concurrent Analyze calls share it without locking; only
// the Untrained -> Training transition is serialized.
type Service struct {
	cfg       Config
	extractor *profile.Extractor

	model atomic.Pointer[ml.Model]
	state atomic.Int32

	trainMu  sync.Mutex
	trainErr error // sticky: set by a failed pass, returned ever after
}

// New creates an untrained pipeline service.
func New(cfg Config) *Service {
	if cfg.TrainingSamples <= 0 {
		cfg.TrainingSamples = 1000
	}
	return &Service{
		cfg:       cfg,
		extractor: profile.NewExtractor(cfg.Seed),
	}
}

// State returns the current lifecycle state.
func (s *Service) State() State {
	return State(s.state.Load())
}

// Ready reports whether the model is fitted and scoring is non-blocking.
func (s *Service) Ready() bool {
	return s.State() == StateReady
}

// Train fits the model if it is not fitted yet. It is an idempotent no-op
// once the service is Ready. The call blocks for the duration of the
// training pass; there is no timeout.
func (s *Service) Train(ctx context.Context) error {
	_, err := s.ensureTrained(ctx)
	return err
}

// Analyze scores one profile. If the service is Untrained the call first
// performs the training pass synchronously, so it always produces a result
// once a model can be fitted.
func (s *Service) Analyze(ctx context.Context, rec profile.Record) (*Result, error) {
	model, err := s.ensureTrained(ctx)
	if err != nil {
		return nil, err
	}

	features, bio := s.extractor.Extract(rec)

	pFake, confidence, err := model.Predict(features, bio)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	level := RiskLevelFor(pFake)
	metrics.AnalysesTotal.WithLabelValues(string(level)).Inc()

	return &Result{
		FakeProbability: pFake,
		RiskLevel:       level,
		Confidence:      confidence,
		Features:        features.Map(),
		Explanation:     Explain(features, bio),
	}, nil
}

// ensureTrained returns the fitted model, running the one-time training
// pass if needed. Exactly one pass executes per service lifetime; a failed
// pass is terminal.
func (s *Service) ensureTrained(ctx context.Context) (*ml.Model, error) {
	if m := s.model.Load(); m != nil {
		return m, nil
	}

	s.trainMu.Lock()
	defer s.trainMu.Unlock()

	// Another request may have trained while we waited on the lock.
	if m := s.model.Load(); m != nil {
		return m, nil
	}
	if s.trainErr != nil {
		return nil, s.trainErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.state.Store(int32(StateTraining))

	model, err := s.loadOrTrain()
	if err != nil {
		s.trainErr = fmt.Errorf("%w: %v", ErrTrainingFailed, err)
		s.state.Store(int32(StateUntrained))
		return nil, s.trainErr
	}

	s.model.Store(model)
	s.state.Store(int32(StateReady))
	metrics.ModelTrained.Set(1)

	return model, nil
}

func (s *Service) loadOrTrain() (*ml.Model, error) {
	if s.cfg.ModelPath != "" {
		if _, err := os.Stat(s.cfg.ModelPath); err == nil {
			if m, err := ml.LoadModel(s.cfg.ModelPath); err == nil {
				return m, nil
			}
			// Unreadable persisted model: retrain from scratch below and
			// overwrite it.
		}
	}

	start := time.Now()

	examples, err := ml.NewSynthesizer(s.cfg.Seed).Generate(s.cfg.TrainingSamples)
	if err != nil {
		return nil, err
	}

	model, err := ml.Train(examples, ml.DefaultTrainConfig(s.cfg.Seed))
	if err != nil {
		return nil, err
	}

	metrics.TrainingDuration.Observe(time.Since(start).Seconds())

	if s.cfg.ModelPath != "" {
		if err := model.Save(s.cfg.ModelPath); err != nil {
			return nil, err
		}
	}

	return model, nil
}
