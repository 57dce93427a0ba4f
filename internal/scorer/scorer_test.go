package scorer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/Pruthvirajj2/pulsepoint-ai/internal/models"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/pipeline"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

var testConstraints = Constraints{MinClipDuration: 15, MaxClipDuration: 60, MaxClips: 5}

var testTranscription = models.Transcription{
	Text: "We started from nothing. The secret is consistency. Thanks for watching.",
	Segments: []models.TranscriptSegment{
		{Start: 0, End: 20, Text: "We started from nothing."},
		{Start: 20, End: 45, Text: "The secret is consistency."},
		{Start: 45, End: 60, Text: "Thanks for watching."},
	},
}

func geminiHandler(momentsJSON string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{
						{"text": "Here are the moments:\n" + momentsJSON},
					},
				}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func TestGeminiScoreHighlights(t *testing.T) {
	moments := `[{"headline": "The Secret Nobody Tells You", "key_message": "consistency wins",
		"viral_potential": "quotable insight", "search_phrase": "secret is consistency",
		"emotional_appeal": "inspiration", "estimated_duration": 30, "score": 0.85}]`
	srv := httptest.NewServer(geminiHandler(moments))
	defer srv.Close()

	g := NewGemini("key", srv.URL, quietLogger())
	spans, err := g.ScoreHighlights(context.Background(), testTranscription, testConstraints)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	// Matched segment [20,45] has midpoint 32.5; 30s centered there.
	if s.Start != 17.5 || s.End != 47.5 {
		t.Errorf("span [%.1f, %.1f], want [17.5, 47.5]", s.Start, s.End)
	}
	if s.Score != 0.85 || s.Source != models.SourceLLM {
		t.Errorf("unexpected score/source: %+v", s)
	}
	if s.Label != "The Secret Nobody Tells You" || s.EmotionalTag != "inspiration" {
		t.Errorf("unexpected metadata: %+v", s)
	}
}

func TestGeminiQuotaFailureIsScoringUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGemini("key", srv.URL, quietLogger())
	_, err := g.ScoreHighlights(context.Background(), testTranscription, testConstraints)
	var sue *pipeline.ScoringUnavailableError
	if !errors.As(err, &sue) {
		t.Fatalf("expected ScoringUnavailableError, got %v", err)
	}
}

func TestGeminiGarbageResponseIsScoringUnavailable(t *testing.T) {
	srv := httptest.NewServer(geminiHandler("I could not find any moments, sorry."))
	defer srv.Close()

	g := NewGemini("key", srv.URL, quietLogger())
	_, err := g.ScoreHighlights(context.Background(), testTranscription, testConstraints)
	var sue *pipeline.ScoringUnavailableError
	if !errors.As(err, &sue) {
		t.Fatalf("expected ScoringUnavailableError for unparseable response, got %v", err)
	}
}

func TestMomentsToSpansDefaults(t *testing.T) {
	spans := momentsToSpans([]moment{
		{SearchPhrase: "started from nothing", EstDuration: 5}, // below min, no score, no headline
	}, testTranscription, testConstraints)
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Duration() != testConstraints.MinClipDuration {
		t.Errorf("short estimate should be raised to the minimum, got %.1f", s.Duration())
	}
	if s.Score != 0.75 {
		t.Errorf("missing score should default, got %.2f", s.Score)
	}
	if s.Label != "Key Moment" {
		t.Errorf("missing headline should default, got %q", s.Label)
	}
}

func TestTimestampForPhraseDeterministicWhenUnmatched(t *testing.T) {
	a := timestampForPhrase("never spoken on camera", testTranscription.Segments)
	b := timestampForPhrase("never spoken on camera", testTranscription.Segments)
	if a != b {
		t.Fatalf("unmatched phrase must map deterministically: %.2f vs %.2f", a, b)
	}
}

func TestExtractJSONArray(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"```json\n[{\"a\":1}]\n```", `[{"a":1}]`},
		{"no array here", ""},
		{`prefix [1, 2] suffix`, `[1, 2]`},
	}
	for _, tc := range cases {
		if got := extractJSONArray(tc.in); got != tc.want {
			t.Errorf("extractJSONArray(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
