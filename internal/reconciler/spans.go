package reconciler

import (
	"math"
	"sort"

	"github.com/Pruthvirajj2/pulsepoint-ai/internal/models"
)

// combinedScores fuses loudness and pitch variance into a single [0,1]
// engagement score per sample. Both signals are min-max normalized over
// the whole series first so neither unit dominates. Loudness is weighted
// heavier than pitch movement, matching how the two signals correlate
// with delivery intensity in talking-head footage.
func combinedScores(series models.EnergySeries) []float64 {
	const loudnessWeight = 0.6

	loud := make([]float64, len(series))
	pitch := make([]float64, len(series))
	for i, s := range series {
		loud[i] = s.Loudness
		pitch[i] = s.PitchVariance
	}
	normalize(loud)
	normalize(pitch)

	scores := make([]float64, len(series))
	for i := range series {
		scores[i] = loudnessWeight*loud[i] + (1-loudnessWeight)*pitch[i]
	}
	return scores
}

// normalize rescales values to [0,1] in place. A flat series maps to all
// zeros so no sample can cross a relative threshold.
func normalize(values []float64) {
	if len(values) == 0 {
		return
	}
	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	span := max - min
	if span == 0 {
		for i := range values {
			values[i] = 0
		}
		return
	}
	for i := range values {
		values[i] = (values[i] - min) / span
	}
}

// quantile returns the q-th quantile of values (0 < q < 1) by
// nearest-rank on a sorted copy.
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	idx := int(q * float64(len(sorted)-1))
	return sorted[idx]
}

// energySpans converts the sample series into ENERGY-source candidate
// spans. Local maxima of the combined score above the top-quantile
// threshold seed a span each; the span expands outward until the score
// decays below a fraction of the peak or MAX_CLIP_DURATION is reached,
// then is padded symmetrically up to MIN_CLIP_DURATION when the decay cut
// the span too short. Span score is the normalized peak height.
func (r *Reconciler) energySpans(series models.EnergySeries, scores []float64, threshold float64) []models.CandidateSpan {
	if len(series) < 2 {
		return nil
	}
	interval := series[1].Timestamp - series[0].Timestamp
	if interval <= 0 {
		interval = 0.5
	}
	videoEnd := series.Duration()

	var spans []models.CandidateSpan
	lastRight := -1
	for i := range scores {
		if i <= lastRight {
			continue // inside the previous span's expansion
		}
		if scores[i] < threshold || scores[i] <= 0 {
			continue // a flat stretch never seeds a peak, even when the quantile threshold collapses to zero
		}
		if i > 0 && scores[i-1] > scores[i] {
			continue
		}
		if i < len(scores)-1 && scores[i+1] > scores[i] {
			continue
		}

		peak := scores[i]
		decay := peak * r.cfg.DecayFraction
		maxSamples := int(r.cfg.MaxClipDuration / interval)

		left, right := i, i
		for right-left < maxSamples {
			growLeft := left > 0 && scores[left-1] >= decay
			growRight := right < len(scores)-1 && scores[right+1] >= decay
			if !growLeft && !growRight {
				break
			}
			// Prefer the stronger side so the peak stays near the middle.
			if growLeft && (!growRight || scores[left-1] >= scores[right+1]) {
				left--
			} else {
				right++
			}
		}
		lastRight = right

		start := series[left].Timestamp
		end := series[right].Timestamp
		if end-start < r.cfg.MinClipDuration {
			start, end = padSymmetric(start, end, r.cfg.MinClipDuration, videoEnd)
		}
		if end-start < r.cfg.MinClipDuration {
			continue // video too short to host a full clip around this peak
		}

		spans = append(spans, models.CandidateSpan{
			Start:     start,
			End:       end,
			Score:     peak,
			Source:    models.SourceEnergy,
			Rationale: "audio energy peak",
		})
	}
	return spans
}

// padSymmetric widens [start, end] to at least minDur, clamped to
// [0, videoEnd]. When one side hits a bound the remainder shifts to the
// other side.
func padSymmetric(start, end, minDur, videoEnd float64) (float64, float64) {
	missing := minDur - (end - start)
	if missing <= 0 {
		return start, end
	}
	start -= missing / 2
	end += missing / 2
	if start < 0 {
		end = math.Min(videoEnd, end-start)
		start = 0
	}
	if end > videoEnd {
		start = math.Max(0, start-(end-videoEnd))
		end = videoEnd
	}
	return start, end
}

// normalizeScorerSpan enforces the duration bounds on an LLM-proposed
// span. Short spans are padded outward along neighboring transcript
// segment boundaries so the clip starts and ends on natural speech
// breaks; overlong spans are truncated to the MAX_CLIP_DURATION sub-range
// holding the most audio energy.
func (r *Reconciler) normalizeScorerSpan(span models.CandidateSpan, segments []models.TranscriptSegment, series models.EnergySeries, scores []float64, videoEnd float64) models.CandidateSpan {
	if span.Duration() < r.cfg.MinClipDuration {
		span.Start, span.End = padToSegments(span.Start, span.End, r.cfg.MinClipDuration, segments, videoEnd)
	}
	if span.Duration() > r.cfg.MaxClipDuration {
		span.Start, span.End = r.truncateByEnergy(span.Start, span.End, series, scores)
	}
	return span
}

// padToSegments widens [start, end] to at least minDur by walking
// transcript segment boundaries outward, alternating sides to keep the
// original span centered. Falls back to symmetric time padding when no
// segment boundary helps.
func padToSegments(start, end, minDur float64, segments []models.TranscriptSegment, videoEnd float64) (float64, float64) {
	for end-start < minDur {
		prevStart, prevEnd := start, end

		// Nearest segment boundary strictly before start / after end.
		var left, right float64 = -1, -1
		for _, seg := range segments {
			if seg.Start < start && (left < 0 || seg.Start > left) {
				left = seg.Start
			}
			if seg.End > end && (right < 0 || seg.End < right) {
				right = seg.End
			}
		}

		// Take the side that moves us less, so padding stays symmetric.
		if left >= 0 && (right < 0 || start-left <= right-end) {
			start = left
		} else if right >= 0 {
			right = math.Min(right, videoEnd)
			end = right
		}

		if start == prevStart && end == prevEnd {
			// No boundaries left to extend along.
			return padSymmetric(start, end, minDur, videoEnd)
		}
	}
	return start, end
}

// truncateByEnergy returns the maxDur-wide sub-range of [start, end] with
// the highest summed energy score, found by sliding a window across the
// contained samples.
func (r *Reconciler) truncateByEnergy(start, end float64, series models.EnergySeries, scores []float64) (float64, float64) {
	maxDur := r.cfg.MaxClipDuration
	if len(series) < 2 {
		return start, start + maxDur
	}
	interval := series[1].Timestamp - series[0].Timestamp
	if interval <= 0 {
		return start, start + maxDur
	}

	lo := indexAtOrAfter(series, start)
	hi := indexAtOrAfter(series, end)
	window := int(maxDur / interval)
	if window <= 0 || hi-lo <= window {
		return start, start + maxDur
	}

	bestSum, sum := 0.0, 0.0
	for i := lo; i < lo+window; i++ {
		sum += scores[i]
	}
	bestSum = sum
	bestStart := lo
	for i := lo + window; i < hi; i++ {
		sum += scores[i] - scores[i-window]
		if sum > bestSum {
			bestSum = sum
			bestStart = i - window + 1
		}
	}
	return series[bestStart].Timestamp, series[bestStart].Timestamp + maxDur
}

func indexAtOrAfter(series models.EnergySeries, t float64) int {
	return sort.Search(len(series), func(i int) bool {
		return series[i].Timestamp >= t
	})
}
