// Package render turns selected intervals and their crop paths into
// finished vertical clips.
package render

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Pruthvirajj2/pulsepoint-ai/internal/config"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/faceplan"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/ffmpeg"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/models"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/pipeline"
)

// Request is one clip render.
type Request = pipeline.RenderRequest

// FFmpegRenderer renders through the ffmpeg wrapper.
type FFmpegRenderer struct {
	aspect    float64
	outHeight int
	outputDir string
	tempDir   string
	captions  bool
	log       *logrus.Entry
}

// NewFFmpeg builds a renderer from settings.
func NewFFmpeg(s config.Settings, log *logrus.Logger) *FFmpegRenderer {
	return &FFmpegRenderer{
		aspect:    s.TargetAspect(),
		outHeight: s.OutputHeight,
		outputDir: s.OutputDir,
		tempDir:   s.TempDir,
		captions:  true,
		log:       log.WithField("component", "renderer"),
	}
}

// Render implements Renderer. Failures come back as *pipeline.RenderError
// so the job can mark the clip failed and keep going.
func (r *FFmpegRenderer) Render(ctx context.Context, req Request) (models.ClipArtifact, error) {
	filename := fmt.Sprintf("%s_clip_%02d.mp4", req.JobID, req.Index)
	outputPath := filepath.Join(r.outputDir, filename)

	cropW, cropH := faceplan.CropSize(req.Video, r.aspect)
	outH := r.outHeight
	outW := int(math.Round(float64(outH) * r.aspect))
	if outW%2 != 0 {
		outW++
	}

	spec := ffmpeg.RenderSpec{
		InputFile:  req.VideoPath,
		OutputFile: outputPath,
		Start:      req.Interval.Start,
		Duration:   req.Interval.Duration(),
		CropPath:   req.CropPath,
		CropWidth:  cropW,
		CropHeight: cropH,
		OutWidth:   outW,
		OutHeight:  outH,
		Headline:   req.Interval.Headline,
		TempDir:    r.tempDir,
	}

	if r.captions {
		srt := BuildSRT(req.Segments, req.Interval)
		if srt != "" {
			srtPath := filepath.Join(r.tempDir, fmt.Sprintf("%s_clip_%02d.srt", req.JobID, req.Index))
			if err := os.WriteFile(srtPath, []byte(srt), 0o644); err != nil {
				return models.ClipArtifact{}, &pipeline.RenderError{Interval: req.Interval, Cause: err}
			}
			defer os.Remove(srtPath)
			spec.SRTFile = srtPath
		}
	}

	r.log.WithFields(logrus.Fields{
		"job_id": req.JobID,
		"clip":   req.Index,
		"start":  req.Interval.Start,
		"end":    req.Interval.End,
	}).Info("Rendering clip")

	if err := ffmpeg.RenderClip(ctx, spec); err != nil {
		return models.ClipArtifact{}, &pipeline.RenderError{Interval: req.Interval, Cause: err}
	}

	return models.ClipArtifact{
		Interval:   req.Interval,
		CropPath:   req.CropPath,
		OutputPath: outputPath,
		Metadata: map[string]string{
			"filename": filename,
			"headline": req.Interval.Headline,
		},
	}, nil
}

// BuildSRT renders the transcript segments overlapping the interval as an
// SRT document with timestamps rebased to the clip's start. Returns ""
// when no segment overlaps.
func BuildSRT(segments []models.TranscriptSegment, interval models.ClipInterval) string {
	var b strings.Builder
	n := 0
	for _, seg := range segments {
		if seg.End <= interval.Start || seg.Start >= interval.End {
			continue
		}
		start := math.Max(seg.Start, interval.Start) - interval.Start
		end := math.Min(seg.End, interval.End) - interval.Start
		if end-start < 0.05 {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", n, srtTimestamp(start), srtTimestamp(end), strings.TrimSpace(seg.Text))
	}
	return b.String()
}

// srtTimestamp formats seconds as HH:MM:SS,mmm.
func srtTimestamp(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	ms := int(math.Round(sec * 1000))
	h := ms / 3600000
	ms -= h * 3600000
	m := ms / 60000
	ms -= m * 60000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
