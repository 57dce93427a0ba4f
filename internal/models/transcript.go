package models

import "strings"

// TranscriptSegment is one time-aligned span of transcribed speech.
// Segments arrive ordered by start time; they may abut but the provider
// guarantees they do not overlap. Downstream code still tolerates small
// overlaps defensively.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcription is the full result returned by the transcript provider.
type Transcription struct {
	Text     string              `json:"text"`
	Segments []TranscriptSegment `json:"segments"`
	Language string              `json:"language"`
}

// FullText joins segment texts when the provider did not supply a combined
// transcript body.
func (t Transcription) FullText() string {
	if t.Text != "" {
		return t.Text
	}
	parts := make([]string, 0, len(t.Segments))
	for _, seg := range t.Segments {
		if seg.Text != "" {
			parts = append(parts, seg.Text)
		}
	}
	return strings.Join(parts, " ")
}
