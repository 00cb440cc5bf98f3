package gait

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedFrame indicates a raw frame whose keypoint block is too short for the schema.
	ErrMalformedFrame = errors.New("gait: malformed frame")

	// ErrDegenerateGeometry labels frames dropped because a knee angle is undefined.
	// It is recovered locally and only reaches callers through Observer.FrameSkipped.
	ErrDegenerateGeometry = errors.New("gait: degenerate geometry")

	// ErrNoValidFrames indicates every frame of a sequence failed feature calculation.
	ErrNoValidFrames = errors.New("gait: no valid frames")

	// ErrEmptyFeatureSequence indicates a comparison with zero frames after truncation.
	ErrEmptyFeatureSequence = errors.New("gait: empty feature sequence")

	// ErrInvalidSchema indicates a KeypointSchema that cannot address all six joints.
	ErrInvalidSchema = errors.New("gait: invalid keypoint schema")
)

// Stage names the pipeline step that produced an error.
type Stage string

const (
	StageExtraction Stage = "extraction"
	StageFeatures   Stage = "features"
	StageComparison Stage = "comparison"
)

// FrameError carries the stage, frame index and offending values of a failure.
// Index is -1 when the error is not tied to a single frame.
type FrameError struct {
	Stage  Stage
	Index  int
	Detail string
	Values []float64
	Err    error
}

func (e *FrameError) Error() string {
	msg := string(e.Stage)
	if e.Index >= 0 {
		msg += fmt.Sprintf(" frame %d", e.Index)
	}
	msg += ": " + e.Err.Error()
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if len(e.Values) > 0 {
		msg += fmt.Sprintf(" values=%v", e.Values)
	}
	return msg
}

func (e *FrameError) Unwrap() error { return e.Err }
