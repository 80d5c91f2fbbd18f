// Package classifier provides sign classifiers: the remote ISL model service
// and an offline nearest-template fallback.
package classifier

import (
	"context"
	"errors"

	"github.com/ayusman/signstream/internal/gesture"
)

var (
	// ErrRemote is returned when the model service answers with a failure.
	ErrRemote = errors.New("classifier service error")
	// ErrNoTemplates is returned when the template classifier has nothing to match against.
	ErrNoTemplates = errors.New("no sign templates loaded")
)

// Classifier turns a feature vector into a prediction. Implementations must
// not panic or block past ctx; every failure is reported through Result.
type Classifier interface {
	Classify(ctx context.Context, fv gesture.FeatureVector) Result
}

// Func adapts a function to the Classifier interface.
type Func func(ctx context.Context, fv gesture.FeatureVector) Result

// Classify calls f(ctx, fv).
func (f Func) Classify(ctx context.Context, fv gesture.FeatureVector) Result {
	return f(ctx, fv)
}

// Result is either a prediction or the reason no prediction was made.
type Result struct {
	prediction gesture.Prediction
	err        error
}

// Ok wraps a successful prediction.
func Ok(p gesture.Prediction) Result {
	return Result{prediction: p}
}

// Fail wraps a classification failure.
func Fail(err error) Result {
	if err == nil {
		err = ErrRemote
	}
	return Result{err: err}
}

// Failed reports whether the classification failed.
func (r Result) Failed() bool {
	return r.err != nil
}

// Err returns the failure reason, or nil.
func (r Result) Err() error {
	return r.err
}

// Prediction returns the prediction, or the UNKNOWN sentinel for a failed
// result so callers can treat both the same way.
func (r Result) Prediction() gesture.Prediction {
	if r.err != nil {
		return gesture.Unknown()
	}
	return r.prediction
}
