// Package scorer wraps the language-model relevance collaborator behind a
// single-method capability interface so providers can be swapped without
// touching the reconciler.
package scorer

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/Pruthvirajj2/pulsepoint-ai/internal/models"
)

// Constraints are the selection bounds passed through to the model so it
// proposes spans the reconciler can actually use.
type Constraints = models.ClipConstraints

// Scorer judges the transcript and proposes candidate highlight spans.
// May return fewer spans than MaxClips. Implementations return
// *pipeline.ScoringUnavailableError on quota or network failure so the
// caller can degrade to energy-only selection.
type Scorer interface {
	ScoreHighlights(ctx context.Context, transcription models.Transcription, c Constraints) ([]models.CandidateSpan, error)
}

// moment is the provider-agnostic shape both LLM backends return.
type moment struct {
	Headline        string  `json:"headline"`
	KeyMessage      string  `json:"key_message"`
	ViralPotential  string  `json:"viral_potential"`
	SearchPhrase    string  `json:"search_phrase"`
	EmotionalAppeal string  `json:"emotional_appeal"`
	EstDuration     float64 `json:"estimated_duration"`
	Score           float64 `json:"score"`
}

// buildPrompt asks for the structured moment list. The transcript is
// capped so a multi-hour video cannot blow the context window.
func buildPrompt(transcription models.Transcription, c Constraints) string {
	text := transcription.FullText()
	if len(text) > 50000 {
		text = text[:50000]
	}
	return fmt.Sprintf(`You are an expert content strategist specializing in short-form video.

Analyze this video transcript and identify the %d BEST moments that would make engaging %.0f-%.0f second clips for TikTok, Instagram Reels, or YouTube Shorts.

For each moment provide:
1. headline: a catchy hook (max 8 words) that stops scrolling
2. key_message: the core insight
3. viral_potential: why this moment spreads
4. search_phrase: an exact phrase from the transcript locating the moment
5. emotional_appeal: one of inspiration/humor/shock/education/energy
6. estimated_duration: clip length in seconds (%.0f to %.0f)
7. score: virality estimate between 0 and 1

Transcript:
%s

Respond with ONLY a JSON array of objects with fields: headline, key_message, viral_potential, search_phrase, emotional_appeal, estimated_duration, score.

Focus on strong emotional hooks, quotable insights, surprising revelations, practical wisdom, and passionate delivery.`,
		c.MaxClips, c.MinClipDuration, c.MaxClipDuration, c.MinClipDuration, c.MaxClipDuration, text)
}

// extractJSONArray pulls the first JSON array out of a model response
// that may wrap it in prose or markdown fences.
func extractJSONArray(text string) string {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// momentsToSpans locates each moment on the timeline and converts it into
// a candidate span centered on the matched phrase.
func momentsToSpans(moments []moment, transcription models.Transcription, c Constraints) []models.CandidateSpan {
	spans := make([]models.CandidateSpan, 0, len(moments))
	for _, m := range moments {
		ts := timestampForPhrase(m.SearchPhrase, transcription.Segments)

		dur := m.EstDuration
		if dur < c.MinClipDuration {
			dur = c.MinClipDuration
		}
		if dur > c.MaxClipDuration {
			dur = c.MaxClipDuration
		}

		score := m.Score
		if score <= 0 || score > 1 {
			score = 0.75 // model omitted or botched the score field
		}

		headline := m.Headline
		if headline == "" {
			headline = "Key Moment"
		}
		appeal := m.EmotionalAppeal
		if appeal == "" {
			appeal = "educational"
		}
		rationale := m.ViralPotential
		if rationale == "" {
			rationale = m.KeyMessage
		}

		spans = append(spans, models.CandidateSpan{
			Start:        ts - dur/2,
			End:          ts + dur/2,
			Label:        headline,
			Score:        score,
			Source:       models.SourceLLM,
			EmotionalTag: appeal,
			Rationale:    rationale,
		})
	}
	return spans
}

// timestampForPhrase finds where a phrase occurs in the transcript and
// returns the middle of the containing segment. Unmatched phrases map to
// a stable pseudo-random segment so repeated runs stay deterministic.
func timestampForPhrase(phrase string, segments []models.TranscriptSegment) float64 {
	if len(segments) == 0 {
		return 0
	}
	needle := strings.ToLower(strings.TrimSpace(phrase))
	if needle != "" {
		for _, seg := range segments {
			if strings.Contains(strings.ToLower(seg.Text), needle) {
				return (seg.Start + seg.End) / 2
			}
		}
	}
	h := fnv.New32a()
	h.Write([]byte(needle))
	seg := segments[int(h.Sum32())%len(segments)]
	return seg.Start
}
