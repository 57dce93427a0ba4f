// Package pipeline orchestrates one highlight job end to end: probe,
// signal extraction, scoring, selection, crop planning, and rendering.
// Collaborators are capability interfaces so tests can swap any stage.
package pipeline

import (
	"context"

	"github.com/Pruthvirajj2/pulsepoint-ai/internal/faceplan"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/ffmpeg"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/models"
)

// Media probes source files and pulls their audio track.
type Media interface {
	Probe(ctx context.Context, path string) (models.VideoInfo, error)
	ExtractAudio(ctx context.Context, inputFile, outputFile string) error
}

// EnergyExtractor samples the audio energy signal across the whole video.
type EnergyExtractor interface {
	Extract(ctx context.Context, mediaPath string) (models.EnergySeries, error)
}

// Transcriber produces the segmented transcript. Failures come back as
// *TranscriptionError; the job then degrades to energy-only selection.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (models.Transcription, error)
}

// Scorer proposes highlight spans from the transcript. Failures come back
// as *ScoringUnavailableError; the job then ranks by energy alone.
type Scorer interface {
	ScoreHighlights(ctx context.Context, transcription models.Transcription, c models.ClipConstraints) ([]models.CandidateSpan, error)
}

// Reconciler merges both candidate sets into the final interval list.
type Reconciler interface {
	Reconcile(series models.EnergySeries, scorerSpans []models.CandidateSpan, segments []models.TranscriptSegment, videoDuration float64) ([]models.ClipInterval, error)
}

// CropPlanner computes the reframing path for one selected interval.
type CropPlanner interface {
	Plan(ctx context.Context, videoPath string, interval models.ClipInterval, video models.VideoInfo, det faceplan.Detector) (models.CropPath, bool)
}

// RenderRequest is one clip render.
type RenderRequest struct {
	JobID     string
	Index     int // 1-based position in the job's clip list
	VideoPath string
	Video     models.VideoInfo
	Interval  models.ClipInterval
	CropPath  models.CropPath
	Segments  []models.TranscriptSegment // full transcript; captions are cut from it
}

// Renderer produces one output file per interval. Implementations must be
// safe for concurrent use across clips of the same job.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (models.ClipArtifact, error)
}

// FFmpegMedia is the production Media implementation.
type FFmpegMedia struct{}

func (FFmpegMedia) Probe(ctx context.Context, path string) (models.VideoInfo, error) {
	return ffmpeg.Probe(ctx, path)
}

func (FFmpegMedia) ExtractAudio(ctx context.Context, inputFile, outputFile string) error {
	return ffmpeg.ExtractAudio(ctx, inputFile, outputFile)
}
