package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Pruthvirajj2/pulsepoint-ai/internal/config"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/faceplan"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/models"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/store"
)

// Deps are the processor's collaborators. Detector, Scorer, Transcriber,
// and Store may be nil; the pipeline degrades per stage instead of
// refusing to run.
type Deps struct {
	Media       Media
	Energy      EnergyExtractor
	Transcriber Transcriber
	Scorer      Scorer
	Reconciler  Reconciler
	Planner     CropPlanner
	Detector    faceplan.Detector
	Renderer    Renderer
	Registry    *Registry
	Store       *store.Store
}

// Processor runs one job through every stage.
type Processor struct {
	settings config.Settings
	deps     Deps
	log      *logrus.Entry
}

// NewProcessor builds a Processor.
func NewProcessor(settings config.Settings, deps Deps, log *logrus.Logger) *Processor {
	return &Processor{
		settings: settings,
		deps:     deps,
		log:      log.WithField("component", "pipeline"),
	}
}

// Registry exposes the job index for the API layer.
func (p *Processor) Registry() *Registry { return p.deps.Registry }

// Process runs the whole pipeline for one local video file. The returned
// error is also recorded on the job; callers only propagate it.
func (p *Processor) Process(ctx context.Context, jobID, videoPath string) error {
	log := p.log.WithField("job_id", jobID)
	start := time.Now()

	p.deps.Registry.SetStatus(jobID, models.StatusProcessing, "Analyzing video")
	p.deps.Store.UpdateStatus(jobID, models.StatusProcessing, "")

	video, err := p.deps.Media.Probe(ctx, videoPath)
	if err != nil {
		return p.fail(jobID, fmt.Errorf("probe video: %w", err))
	}
	if video.Duration < p.settings.MinClipDuration {
		return p.fail(jobID, &InsufficientContentError{
			VideoDuration: video.Duration,
			MinDuration:   p.settings.MinClipDuration,
		})
	}
	log.WithFields(logrus.Fields{
		"duration": video.Duration,
		"width":    video.Width,
		"height":   video.Height,
	}).Info("Probed source video")
	p.deps.Registry.SetProgress(jobID, 10, "Extracting audio signals")

	series, transcription, transcriptErr, err := p.extractSignals(ctx, jobID, videoPath)
	if err != nil {
		return p.fail(jobID, err)
	}

	var warnings []string
	if transcriptErr != nil {
		log.WithError(transcriptErr).Warn("Transcription unavailable, continuing with energy only")
		warnings = append(warnings, "transcription unavailable; clips were selected from audio energy only")
	}
	p.deps.Registry.SetProgress(jobID, 35, "Scoring highlights")

	scorerSpans := p.scoreSpans(ctx, jobID, transcription, transcriptErr, &warnings)

	intervals, err := p.deps.Reconciler.Reconcile(series, scorerSpans, transcription.Segments, video.Duration)
	if err != nil {
		return p.fail(jobID, err)
	}
	log.WithField("clips", len(intervals)).Info("Selected highlight intervals")
	p.deps.Registry.SetProgress(jobID, 55, fmt.Sprintf("Selected %d highlights", len(intervals)))

	records := p.renderClips(ctx, jobID, videoPath, video, intervals, transcription.Segments)

	failed := 0
	for _, rec := range records {
		if rec.RenderFailed {
			failed++
		}
	}
	if failed == len(records) {
		return p.fail(jobID, fmt.Errorf("all %d clip renders failed", failed))
	}
	if failed > 0 {
		warnings = append(warnings, fmt.Sprintf("%d of %d clips failed to render", failed, len(records)))
	}

	meta := models.JobMetadata{
		JobID:       jobID,
		SourceVideo: videoPath,
		Duration:    video.Duration,
		Clips:       records,
		Warnings:    warnings,
		CreatedAt:   time.Now().UTC(),
	}
	if err := p.writeMetadata(meta); err != nil {
		return p.fail(jobID, err)
	}

	p.deps.Registry.Complete(jobID, records, warnings)
	p.deps.Store.SaveMetadata(jobID, meta)
	p.deps.Store.UpdateStatus(jobID, models.StatusCompleted, "")
	log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("Job completed")
	return nil
}

// extractSignals runs energy extraction and transcription concurrently.
// Energy failure is fatal; transcription failure is returned separately
// so the caller can degrade.
func (p *Processor) extractSignals(ctx context.Context, jobID, videoPath string) (models.EnergySeries, models.Transcription, error, error) {
	var (
		series        models.EnergySeries
		energyErr     error
		transcription models.Transcription
		transcriptErr error
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		series, energyErr = p.deps.Energy.Extract(ctx, videoPath)
	}()
	go func() {
		defer wg.Done()
		if p.deps.Transcriber == nil {
			transcriptErr = &TranscriptionError{Cause: fmt.Errorf("no transcription provider configured")}
			return
		}
		audioPath := filepath.Join(p.settings.TempDir, jobID+"_audio.wav")
		if err := p.deps.Media.ExtractAudio(ctx, videoPath, audioPath); err != nil {
			transcriptErr = &TranscriptionError{Cause: err}
			return
		}
		defer os.Remove(audioPath)
		transcription, transcriptErr = p.deps.Transcriber.Transcribe(ctx, audioPath)
	}()
	wg.Wait()

	if energyErr != nil {
		return nil, models.Transcription{}, nil, fmt.Errorf("energy extraction: %w", energyErr)
	}
	return series, transcription, transcriptErr, nil
}

// scoreSpans asks the relevance scorer for candidate spans. Any scorer
// failure degrades to energy-only selection with a recorded warning.
func (p *Processor) scoreSpans(ctx context.Context, jobID string, transcription models.Transcription, transcriptErr error, warnings *[]string) []models.CandidateSpan {
	if transcriptErr != nil || p.deps.Scorer == nil {
		return nil
	}
	spans, err := p.deps.Scorer.ScoreHighlights(ctx, transcription, models.ClipConstraints{
		MinClipDuration: p.settings.MinClipDuration,
		MaxClipDuration: p.settings.MaxClipDuration,
		MaxClips:        p.settings.MaxClips,
	})
	if err != nil {
		p.log.WithField("job_id", jobID).WithError(err).Warn("Scorer unavailable, ranking by energy only")
		*warnings = append(*warnings, "relevance scoring unavailable; clips were ranked by audio energy only")
		return nil
	}
	return spans
}

// renderClips plans every crop path concurrently, then renders the clips
// one at a time. A failed render flags its record and the siblings keep
// going.
func (p *Processor) renderClips(ctx context.Context, jobID, videoPath string, video models.VideoInfo, intervals []models.ClipInterval, segments []models.TranscriptSegment) []models.ClipRecord {
	log := p.log.WithField("job_id", jobID)

	paths := make([]models.CropPath, len(intervals))
	fallbacks := make([]bool, len(intervals))
	var wg sync.WaitGroup
	for i, interval := range intervals {
		wg.Add(1)
		go func(i int, interval models.ClipInterval) {
			defer wg.Done()
			paths[i], fallbacks[i] = p.deps.Planner.Plan(ctx, videoPath, interval, video, p.deps.Detector)
		}(i, interval)
	}
	wg.Wait()

	records := make([]models.ClipRecord, len(intervals))
	for i, interval := range intervals {
		rec := models.ClipRecord{
			Index:        i + 1,
			StartTime:    interval.Start,
			EndTime:      interval.End,
			Duration:     interval.Duration(),
			Rank:         interval.Rank,
			Headline:     interval.Headline,
			EmotionalTag: interval.EmotionalTag,
			Source:       interval.Source,
			Score:        interval.Score,
			Rationale:    interval.Rationale,
			CropSummary:  paths[i].Summarize(fallbacks[i]),
		}

		artifact, err := p.deps.Renderer.Render(ctx, RenderRequest{
			JobID:     jobID,
			Index:     i + 1,
			VideoPath: videoPath,
			Video:     video,
			Interval:  interval,
			CropPath:  paths[i],
			Segments:  segments,
		})
		if err != nil {
			log.WithField("clip", i+1).WithError(err).Error("Clip render failed")
			rec.RenderFailed = true
			rec.RenderError = err.Error()
		} else {
			rec.Path = artifact.OutputPath
			rec.Filename = filepath.Base(artifact.OutputPath)
		}
		records[i] = rec

		progress := 60 + (35*(i+1))/len(intervals)
		p.deps.Registry.SetProgress(jobID, progress, fmt.Sprintf("Rendered clip %d of %d", i+1, len(intervals)))
	}
	return records
}

// writeMetadata emits the job's metadata document next to the clips.
func (p *Processor) writeMetadata(meta models.JobMetadata) error {
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal job metadata: %w", err)
	}
	path := filepath.Join(p.settings.OutputDir, meta.JobID+"_metadata.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write job metadata: %w", err)
	}
	return nil
}

func (p *Processor) fail(jobID string, err error) error {
	p.log.WithField("job_id", jobID).WithError(err).Error("Job failed")
	p.deps.Registry.Fail(jobID, err.Error())
	p.deps.Store.UpdateStatus(jobID, models.StatusFailed, err.Error())
	return err
}
