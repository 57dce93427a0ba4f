// Package faceplan computes the per-frame crop-center path that keeps the
// primary speaker inside the target aspect ratio for a clip interval.
package faceplan

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/Pruthvirajj2/pulsepoint-ai/internal/config"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/models"
)

// Detector is the face-detection collaborator. Zero observations for a
// frame is a valid result, not an error. Implementations must be safe for
// concurrent use: intervals are planned in parallel.
type Detector interface {
	DetectFaces(ctx context.Context, videoPath string, frameTime float64) ([]models.FaceObservation, error)
}

// Config holds the planner tunables.
type Config struct {
	SampleFPS       float64 // detector sampling rate within the interval
	SmoothingWindow float64 // moving-average width in seconds; larger = steadier, slower to follow the speaker
	ConfidenceFloor float64 // observations below this are ignored
	MinCoverage     float64 // below this observed-frame fraction the interval falls back to a fixed center
	TargetAspect    float64 // crop width / crop height
}

// ConfigFromSettings extracts the planner tunables from the service
// settings.
func ConfigFromSettings(s config.Settings) Config {
	return Config{
		SampleFPS:       s.FaceSampleFPS,
		SmoothingWindow: s.SmoothingWindow,
		ConfidenceFloor: s.ConfidenceFloor,
		MinCoverage:     s.MinFaceCoverage,
		TargetAspect:    s.TargetAspect(),
	}
}

// Planner builds crop paths from sampled face observations.
type Planner struct {
	cfg Config
	log *logrus.Entry
}

// New builds a Planner.
func New(cfg Config, log *logrus.Logger) *Planner {
	return &Planner{cfg: cfg, log: log.WithField("component", "faceplan")}
}

// Plan samples the detector across the interval and returns a crop path
// with one entry per output frame, plus whether the fixed-center fallback
// was used. Detector errors on individual frames count as "no
// observation"; the planner itself never fails the pipeline.
func (p *Planner) Plan(ctx context.Context, videoPath string, interval models.ClipInterval, video models.VideoInfo, det Detector) (models.CropPath, bool) {
	frameCount := OutputFrameCount(interval, video.FrameRate)

	if det == nil {
		return p.centerPath(interval, video, frameCount), true
	}

	sampleTimes := p.sampleTimes(interval)
	centers := make([]point, len(sampleTimes)) // zero value means "no observation"
	observed := make([]bool, len(sampleTimes))

	var prev *point
	accepted := 0
	for i, t := range sampleTimes {
		obs, err := det.DetectFaces(ctx, videoPath, t)
		if err != nil {
			// Transient decode/detector failure on one frame is just a gap.
			p.log.WithField("frame_time", t).WithError(err).Debug("detector error, treating frame as unobserved")
			continue
		}
		best, ok := pickObservation(obs, p.cfg.ConfidenceFloor, prev)
		if !ok {
			continue
		}
		centers[i] = point{x: best.CenterX, y: best.CenterY}
		observed[i] = true
		prev = &centers[i]
		accepted++
	}

	coverage := 0.0
	if len(sampleTimes) > 0 {
		coverage = float64(accepted) / float64(len(sampleTimes))
	}
	if coverage < p.cfg.MinCoverage {
		// Documented degradation, not an error: without a reliable face
		// signal the crop stays fixed on the frame center.
		p.log.WithFields(logrus.Fields{
			"interval_start": interval.Start,
			"coverage":       coverage,
		}).Warn("Face coverage below minimum, using fixed center crop")
		return p.centerPath(interval, video, frameCount), true
	}

	fillGaps(centers, observed)
	window := int(math.Round(p.cfg.SmoothingWindow * p.cfg.SampleFPS))
	smoothed := movingAverage(centers, window)
	p.clamp(smoothed, video)

	return p.upsample(sampleTimes, smoothed, interval, video.FrameRate, frameCount), false
}

// OutputFrameCount is the number of frames the renderer emits for an
// interval. The planner and renderer must agree on this.
func OutputFrameCount(interval models.ClipInterval, fps float64) int {
	n := int(math.Round(interval.Duration() * fps))
	if n < 1 {
		n = 1
	}
	return n
}

type point struct {
	x, y float64
}

func (p *Planner) sampleTimes(interval models.ClipInterval) []float64 {
	step := 1.0 / p.cfg.SampleFPS
	var times []float64
	for t := interval.Start; t < interval.End; t += step {
		times = append(times, t)
	}
	return times
}

// pickObservation chooses one observation for a frame: any candidate must
// clear the confidence floor; with a previous accepted center, the
// closest candidate wins so a second face entering frame does not steal
// the track; otherwise the most confident one does.
func pickObservation(obs []models.FaceObservation, floor float64, prev *point) (models.FaceObservation, bool) {
	var best models.FaceObservation
	found := false
	for _, o := range obs {
		if o.Confidence < floor {
			continue
		}
		if !found {
			best = o
			found = true
			continue
		}
		if prev != nil {
			if distance(o, *prev) < distance(best, *prev) {
				best = o
			}
		} else if o.Confidence > best.Confidence {
			best = o
		}
	}
	return best, found
}

func distance(o models.FaceObservation, p point) float64 {
	dx := o.CenterX - p.x
	dy := o.CenterY - p.y
	return math.Hypot(dx, dy)
}

// fillGaps interpolates unobserved frames linearly between the nearest
// accepted neighbors. Frames before the first / after the last accepted
// observation hold the nearest value rather than extrapolating.
func fillGaps(centers []point, observed []bool) {
	first, last := -1, -1
	for i, ok := range observed {
		if ok {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return
	}
	for i := 0; i < first; i++ {
		centers[i] = centers[first]
	}
	for i := last + 1; i < len(centers); i++ {
		centers[i] = centers[last]
	}
	prev := first
	for i := first + 1; i <= last; i++ {
		if !observed[i] {
			continue
		}
		for j := prev + 1; j < i; j++ {
			frac := float64(j-prev) / float64(i-prev)
			centers[j] = point{
				x: centers[prev].x + frac*(centers[i].x-centers[prev].x),
				y: centers[prev].y + frac*(centers[i].y-centers[prev].y),
			}
		}
		prev = i
	}
}

// movingAverage smooths the sequence with a centered window. Edges use
// whatever part of the window is in range.
func movingAverage(centers []point, window int) []point {
	if window < 2 {
		out := make([]point, len(centers))
		copy(out, centers)
		return out
	}
	half := window / 2
	out := make([]point, len(centers))
	for i := range centers {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi > len(centers)-1 {
			hi = len(centers) - 1
		}
		var sx, sy float64
		for j := lo; j <= hi; j++ {
			sx += centers[j].x
			sy += centers[j].y
		}
		n := float64(hi - lo + 1)
		out[i] = point{x: sx / n, y: sy / n}
	}
	return out
}

// clamp keeps every center far enough from the frame edge that the crop
// rectangle (full source height, width = height * aspect) stays inside
// the source.
func (p *Planner) clamp(centers []point, video models.VideoInfo) {
	cropW, cropH := CropSize(video, p.cfg.TargetAspect)
	halfW, halfH := cropW/2, cropH/2
	for i := range centers {
		centers[i].x = clampRange(centers[i].x, halfW, float64(video.Width)-halfW)
		centers[i].y = clampRange(centers[i].y, halfH, float64(video.Height)-halfH)
	}
}

// CropSize returns the crop rectangle dimensions for a source frame under
// the target aspect ratio: full source height unless that makes the crop
// wider than the source.
func CropSize(video models.VideoInfo, aspect float64) (w, h float64) {
	h = float64(video.Height)
	w = h * aspect
	if w > float64(video.Width) {
		w = float64(video.Width)
		h = w / aspect
	}
	return w, h
}

func clampRange(v, lo, hi float64) float64 {
	if lo > hi {
		return (lo + hi) / 2
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// upsample converts the per-sample path into one entry per output frame
// via linear interpolation by time.
func (p *Planner) upsample(sampleTimes []float64, centers []point, interval models.ClipInterval, fps float64, frameCount int) models.CropPath {
	path := make(models.CropPath, frameCount)
	frameStep := 1.0 / fps
	si := 0
	for f := 0; f < frameCount; f++ {
		t := interval.Start + float64(f)*frameStep
		for si < len(sampleTimes)-1 && sampleTimes[si+1] <= t {
			si++
		}
		var x, y float64
		switch {
		case si >= len(sampleTimes)-1 || t <= sampleTimes[0]:
			idx := si
			if t <= sampleTimes[0] {
				idx = 0
			}
			x, y = centers[idx].x, centers[idx].y
		default:
			span := sampleTimes[si+1] - sampleTimes[si]
			frac := 0.0
			if span > 0 {
				frac = (t - sampleTimes[si]) / span
			}
			x = centers[si].x + frac*(centers[si+1].x-centers[si].x)
			y = centers[si].y + frac*(centers[si+1].y-centers[si].y)
		}
		path[f] = models.CropPoint{FrameTime: t, CenterX: x, CenterY: y}
	}
	return path
}

// centerPath is the fixed-center fallback: a constant path on the source
// frame midpoint, one entry per output frame.
func (p *Planner) centerPath(interval models.ClipInterval, video models.VideoInfo, frameCount int) models.CropPath {
	path := make(models.CropPath, frameCount)
	frameStep := 1.0 / video.FrameRate
	cx := float64(video.Width) / 2
	cy := float64(video.Height) / 2
	for f := 0; f < frameCount; f++ {
		path[f] = models.CropPoint{
			FrameTime: interval.Start + float64(f)*frameStep,
			CenterX:   cx,
			CenterY:   cy,
		}
	}
	return path
}
