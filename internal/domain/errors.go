package domain

import (
	"errors"
	"fmt"
)

// ErrNotTrained is returned when the engine or a scoring backend is
// asked to analyze before training completed.
var ErrNotTrained = errors.New("detector not trained")

// CollectionError reports a failed collector. The engine degrades the
// affected bundle section to empty instead of aborting the cycle.
type CollectionError struct {
	Collector string
	Err       error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("collector %s failed: %v", e.Collector, e.Err)
}

func (e *CollectionError) Unwrap() error {
	return e.Err
}

// DimensionMismatchError reports a feature vector whose shape disagrees
// with the trained backend.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("feature vector dimension mismatch: want %d, got %d", e.Want, e.Got)
}

// PersistenceError reports an I/O failure saving or loading metrics,
// training data or a model snapshot.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// InvalidTrainingDataError reports an unusable training window: zero
// collected samples or non-finite baseline statistics.
type InvalidTrainingDataError struct {
	Reason string
}

func (e *InvalidTrainingDataError) Error() string {
	return fmt.Sprintf("invalid training data: %s", e.Reason)
}
