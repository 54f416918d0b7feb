// Package ml implements the trainable scoring core: a TF-IDF text
// vectorizer, a numeric feature scaler, a random-forest classifier, and the
// synthetic training corpus generator. All fitted state is frozen after a
// single Fit/Train pass, so a trained model is safe for concurrent use.
package ml

import "errors"

var (
	// ErrNotTrained is returned when prediction or transformation is
	// attempted against unfitted state.
	ErrNotTrained = errors.New("model is not trained")

	// ErrAlreadyFitted is returned when Fit is called a second time.
	// Fitted artifacts are immutable for the model lifetime; build a new
	// model to retrain.
	ErrAlreadyFitted = errors.New("already fitted")
)
