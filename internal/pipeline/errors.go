package pipeline

import (
	"fmt"

	"github.com/Pruthvirajj2/pulsepoint-ai/internal/models"
)

// InsufficientContentError is returned when no viable clip interval
// survives selection. It is terminal for the job and carries enough
// context to explain the failure to the end user.
type InsufficientContentError struct {
	VideoDuration float64
	MinDuration   float64
	Threshold     float64
}

func (e *InsufficientContentError) Error() string {
	return fmt.Sprintf("no viable highlight spans found: video duration %.1fs, minimum clip duration %.1fs, energy threshold %.3f",
		e.VideoDuration, e.MinDuration, e.Threshold)
}

// TranscriptionError is returned by the transcript provider for
// unreadable or unsupported audio. The pipeline degrades to energy-only
// candidates when it occurs.
type TranscriptionError struct {
	Cause error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed: %v", e.Cause)
}

func (e *TranscriptionError) Unwrap() error { return e.Cause }

// ScoringUnavailableError is returned by the relevance scorer on quota or
// network failure. Recoverable: the caller proceeds with energy-only
// candidates and records a warning.
type ScoringUnavailableError struct {
	Cause error
}

func (e *ScoringUnavailableError) Error() string {
	return fmt.Sprintf("relevance scorer unavailable: %v", e.Cause)
}

func (e *ScoringUnavailableError) Unwrap() error { return e.Cause }

// DetectorUnavailableError signals total face-detector unavailability for
// an interval. Recoverable: the planner falls back to a fixed center crop.
type DetectorUnavailableError struct {
	Cause error
}

func (e *DetectorUnavailableError) Error() string {
	return fmt.Sprintf("face detector unavailable: %v", e.Cause)
}

func (e *DetectorUnavailableError) Unwrap() error { return e.Cause }

// RenderError is a per-clip failure. One clip's render failure never
// aborts sibling clips; the failing clip is flagged in the job metadata.
type RenderError struct {
	Interval models.ClipInterval
	Cause    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed for clip [%.1fs, %.1fs]: %v", e.Interval.Start, e.Interval.End, e.Cause)
}

func (e *RenderError) Unwrap() error { return e.Cause }
