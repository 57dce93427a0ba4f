// Package reconciler merges energy-derived and LLM-derived highlight
// candidates into the final ranked, non-overlapping set of clip intervals.
package reconciler

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/Pruthvirajj2/pulsepoint-ai/internal/config"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/models"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/pipeline"
)

// Epsilon is the tolerance for float time comparisons. Spans whose edges
// are within Epsilon of each other count as touching, not overlapping.
const Epsilon = 0.05

// Config holds the selection tunables. All durations in seconds.
type Config struct {
	MinClipDuration float64
	MaxClipDuration float64
	MaxClips        int
	PeakQuantile    float64
	DecayFraction   float64
}

// ConfigFromSettings extracts the reconciler tunables from the service
// settings.
func ConfigFromSettings(s config.Settings) Config {
	return Config{
		MinClipDuration: s.MinClipDuration,
		MaxClipDuration: s.MaxClipDuration,
		MaxClips:        s.MaxClips,
		PeakQuantile:    s.EnergyPeakQuantile,
		DecayFraction:   s.EnergyDecayFraction,
	}
}

// Reconciler turns the two candidate signal sets into final ClipIntervals.
type Reconciler struct {
	cfg Config
	log *logrus.Entry
}

// New builds a Reconciler with the given tunables.
func New(cfg Config, log *logrus.Logger) *Reconciler {
	return &Reconciler{cfg: cfg, log: log.WithField("component", "reconciler")}
}

// Reconcile derives energy spans from the sample series, normalizes the
// scorer's spans, and greedily selects the highest-scoring non-overlapping
// set. The returned intervals are chronological; Rank records selection
// order (1 = highest score). Returns *pipeline.InsufficientContentError
// when nothing survives selection.
func (r *Reconciler) Reconcile(series models.EnergySeries, scorerSpans []models.CandidateSpan, segments []models.TranscriptSegment, videoDuration float64) ([]models.ClipInterval, error) {
	scores := combinedScores(series)
	threshold := quantile(scores, r.cfg.PeakQuantile)

	candidates := r.energySpans(series, scores, threshold)
	for _, span := range scorerSpans {
		candidates = append(candidates, r.normalizeScorerSpan(span, segments, series, scores, videoDuration))
	}

	// Clip to video bounds before scoring; drop anything that can no
	// longer host a full minimum-length clip.
	bounded := candidates[:0]
	for _, span := range candidates {
		span.Start = math.Max(0, span.Start)
		span.End = math.Min(videoDuration, span.End)
		if span.End-span.Start < r.cfg.MinClipDuration-Epsilon {
			continue
		}
		if span.End-span.Start > r.cfg.MaxClipDuration+Epsilon {
			span.End = span.Start + r.cfg.MaxClipDuration
		}
		bounded = append(bounded, span)
	}
	candidates = bounded

	// Score-descending order, earlier start breaks ties so selection is
	// deterministic for identical inputs.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Start < candidates[j].Start
	})

	// Greedy first-wins-by-score selection: an overlapping lower-scoring
	// span is discarded entirely, never trimmed or merged.
	var selected []models.ClipInterval
	for _, span := range candidates {
		if len(selected) >= r.cfg.MaxClips {
			break
		}
		if overlapsAny(selected, span) {
			continue
		}
		selected = append(selected, r.toInterval(span, len(selected)+1))
	}

	if len(selected) == 0 {
		return nil, &pipeline.InsufficientContentError{
			VideoDuration: videoDuration,
			MinDuration:   r.cfg.MinClipDuration,
			Threshold:     threshold,
		}
	}

	sort.Slice(selected, func(i, j int) bool {
		return selected[i].Start < selected[j].Start
	})

	r.log.WithFields(logrus.Fields{
		"candidates": len(candidates),
		"selected":   len(selected),
		"threshold":  threshold,
	}).Info("Highlight selection complete")
	return selected, nil
}

func overlapsAny(selected []models.ClipInterval, span models.CandidateSpan) bool {
	for _, iv := range selected {
		if span.Start < iv.End-Epsilon && iv.Start < span.End-Epsilon {
			return true
		}
	}
	return false
}

// toInterval attaches headline/emotional metadata from the originating
// span, synthesizing a generic energy label when the scorer supplied none.
func (r *Reconciler) toInterval(span models.CandidateSpan, rank int) models.ClipInterval {
	headline := span.Label
	tag := span.EmotionalTag
	if headline == "" {
		if span.Score >= 0.7 {
			headline = "High Energy Moment"
		} else {
			headline = "Notable Moment"
		}
	}
	if tag == "" {
		tag = "energetic"
	}
	return models.ClipInterval{
		Start:        span.Start,
		End:          span.End,
		Rank:         rank,
		Headline:     headline,
		EmotionalTag: tag,
		Source:       span.Source,
		Score:        span.Score,
		Rationale:    span.Rationale,
	}
}
