package models

// SpanSource identifies which signal proposed a candidate span.
type SpanSource string

const (
	// SourceEnergy marks spans derived from audio loudness/pitch peaks.
	SourceEnergy SpanSource = "ENERGY"
	// SourceLLM marks spans returned by the language-model relevance scorer.
	SourceLLM SpanSource = "LLM"
)

// CandidateSpan is a time range proposed as interesting by one signal
// source. Spans are never mutated after creation; the reconciler only
// filters and re-derives them.
type CandidateSpan struct {
	Start  float64    `json:"start"`
	End    float64    `json:"end"`
	Label  string     `json:"label"`
	Score  float64    `json:"score"` // normalized to [0,1]
	Source SpanSource `json:"source"`

	// EmotionalTag carries the scorer's emotional-appeal judgment
	// ("inspiration", "humor", ...). Empty for energy spans.
	EmotionalTag string `json:"emotional_tag,omitempty"`
	// Rationale is the scorer's explanation of why this span was picked,
	// or the energy detector's peak description.
	Rationale string `json:"rationale,omitempty"`
}

// Duration returns the span length in seconds.
func (s CandidateSpan) Duration() float64 {
	return s.End - s.Start
}

// ClipConstraints are the selection bounds shared by the scorer and the
// reconciler. All durations in seconds.
type ClipConstraints struct {
	MinClipDuration float64
	MaxClipDuration float64
	MaxClips        int
}
