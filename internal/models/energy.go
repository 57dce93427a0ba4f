package models

// EnergySample is one measurement of the audio signal at a fixed sampling
// interval. Loudness is windowed RMS of the waveform; PitchVariance is a
// cheap excitement proxy derived from frame-to-frame pitch movement.
// Samples are never mutated once the extractor has produced the series.
type EnergySample struct {
	Timestamp     float64 `json:"timestamp"`
	Loudness      float64 `json:"loudness"`
	PitchVariance float64 `json:"pitch_variance"`
}

// EnergySeries is the ordered, fixed-interval sequence of samples for one
// source video.
type EnergySeries []EnergySample

// Duration returns the timestamp of the last sample, or zero for an empty
// series.
func (s EnergySeries) Duration() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Timestamp
}
