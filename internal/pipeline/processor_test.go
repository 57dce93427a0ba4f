package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/Pruthvirajj2/pulsepoint-ai/internal/config"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/faceplan"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/models"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

type fakeMedia struct {
	video    models.VideoInfo
	probeErr error
}

func (m fakeMedia) Probe(ctx context.Context, path string) (models.VideoInfo, error) {
	return m.video, m.probeErr
}

func (m fakeMedia) ExtractAudio(ctx context.Context, in, out string) error {
	return os.WriteFile(out, []byte("riff"), 0o644)
}

type fakeEnergy struct {
	series models.EnergySeries
	err    error
}

func (e fakeEnergy) Extract(ctx context.Context, path string) (models.EnergySeries, error) {
	return e.series, e.err
}

type fakeTranscriber struct {
	transcription models.Transcription
	err           error
}

func (t fakeTranscriber) Transcribe(ctx context.Context, audioPath string) (models.Transcription, error) {
	return t.transcription, t.err
}

type fakeScorer struct {
	spans  []models.CandidateSpan
	err    error
	called bool
}

func (s *fakeScorer) ScoreHighlights(ctx context.Context, tr models.Transcription, c models.ClipConstraints) ([]models.CandidateSpan, error) {
	s.called = true
	return s.spans, s.err
}

type fakeReconciler struct {
	intervals     []models.ClipInterval
	err           error
	receivedSpans []models.CandidateSpan
}

func (r *fakeReconciler) Reconcile(series models.EnergySeries, spans []models.CandidateSpan, segments []models.TranscriptSegment, dur float64) ([]models.ClipInterval, error) {
	r.receivedSpans = spans
	return r.intervals, r.err
}

type fakePlanner struct{}

func (fakePlanner) Plan(ctx context.Context, videoPath string, interval models.ClipInterval, video models.VideoInfo, det faceplan.Detector) (models.CropPath, bool) {
	return models.CropPath{
		{FrameTime: interval.Start, CenterX: 960, CenterY: 540},
		{FrameTime: interval.End, CenterX: 960, CenterY: 540},
	}, false
}

type fakeRenderer struct {
	failIndex map[int]bool
	outputDir string
}

func (r fakeRenderer) Render(ctx context.Context, req RenderRequest) (models.ClipArtifact, error) {
	if r.failIndex[req.Index] {
		return models.ClipArtifact{}, &RenderError{Interval: req.Interval, Cause: fmt.Errorf("encoder exploded")}
	}
	path := filepath.Join(r.outputDir, fmt.Sprintf("%s_clip_%02d.mp4", req.JobID, req.Index))
	return models.ClipArtifact{Interval: req.Interval, OutputPath: path}, nil
}

func flatSeries(duration float64) models.EnergySeries {
	var s models.EnergySeries
	for t := 0.0; t < duration; t += 0.5 {
		s = append(s, models.EnergySample{Timestamp: t, Loudness: 0.5, PitchVariance: 0.2})
	}
	return s
}

var testIntervals = []models.ClipInterval{
	{Start: 10, End: 35, Rank: 1, Headline: "Opening Hook", Source: models.SourceLLM, Score: 0.9},
	{Start: 60, End: 85, Rank: 2, Headline: "High Energy Moment", Source: models.SourceEnergy, Score: 0.7},
}

type harness struct {
	proc       *Processor
	registry   *Registry
	scorer     *fakeScorer
	reconciler *fakeReconciler
	renderer   fakeRenderer
	settings   config.Settings
}

func newHarness(t *testing.T, mutate func(*Deps)) *harness {
	t.Helper()
	dir := t.TempDir()
	settings := config.Default()
	settings.UploadDir = filepath.Join(dir, "uploads")
	settings.OutputDir = filepath.Join(dir, "outputs")
	settings.TempDir = filepath.Join(dir, "temp")
	if err := settings.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	scorer := &fakeScorer{spans: []models.CandidateSpan{{Start: 10, End: 35, Score: 0.9, Source: models.SourceLLM}}}
	rec := &fakeReconciler{intervals: testIntervals}
	renderer := fakeRenderer{outputDir: settings.OutputDir}
	registry := NewRegistry()

	deps := Deps{
		Media:  fakeMedia{video: models.VideoInfo{Duration: 300, Width: 1920, Height: 1080, FrameRate: 30}},
		Energy: fakeEnergy{series: flatSeries(300)},
		Transcriber: fakeTranscriber{transcription: models.Transcription{
			Text:     "hello world",
			Segments: []models.TranscriptSegment{{Start: 0, End: 300, Text: "hello world"}},
		}},
		Scorer:     scorer,
		Reconciler: rec,
		Planner:    fakePlanner{},
		Renderer:   renderer,
		Registry:   registry,
	}
	if mutate != nil {
		mutate(&deps)
	}

	return &harness{
		proc:       NewProcessor(settings, deps, quietLogger()),
		registry:   registry,
		scorer:     scorer,
		reconciler: rec,
		renderer:   renderer,
		settings:   settings,
	}
}

func TestProcessCompletesAndWritesMetadata(t *testing.T) {
	h := newHarness(t, nil)
	h.registry.Create("job1")

	if err := h.proc.Process(context.Background(), "job1", "/videos/src.mp4"); err != nil {
		t.Fatalf("process: %v", err)
	}

	st, ok := h.registry.Get("job1")
	if !ok || st.Status != models.StatusCompleted {
		t.Fatalf("job should be completed, got %+v", st)
	}
	if st.Progress != 100 {
		t.Errorf("completed job should report 100%%, got %d", st.Progress)
	}
	if len(st.Clips) != 2 {
		t.Fatalf("expected 2 clip records, got %d", len(st.Clips))
	}
	if st.Clips[0].Filename == "" || st.Clips[0].RenderFailed {
		t.Errorf("first clip should have rendered: %+v", st.Clips[0])
	}
	if len(st.Warnings) != 0 {
		t.Errorf("clean run should carry no warnings: %v", st.Warnings)
	}

	raw, err := os.ReadFile(filepath.Join(h.settings.OutputDir, "job1_metadata.json"))
	if err != nil {
		t.Fatalf("metadata file missing: %v", err)
	}
	var meta models.JobMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("metadata not valid JSON: %v", err)
	}
	if meta.JobID != "job1" || len(meta.Clips) != 2 || meta.Duration != 300 {
		t.Errorf("unexpected metadata: %+v", meta)
	}
}

func TestScorerUnavailableDegradesWithWarning(t *testing.T) {
	h := newHarness(t, nil)
	h.scorer.spans = nil
	h.scorer.err = &ScoringUnavailableError{Cause: fmt.Errorf("quota exceeded")}
	h.registry.Create("job1")

	if err := h.proc.Process(context.Background(), "job1", "/videos/src.mp4"); err != nil {
		t.Fatalf("scorer outage must not fail the job: %v", err)
	}

	if h.reconciler.receivedSpans != nil {
		t.Errorf("reconciler should get no scorer spans, got %v", h.reconciler.receivedSpans)
	}
	st, _ := h.registry.Get("job1")
	if st.Status != models.StatusCompleted || len(st.Warnings) != 1 {
		t.Errorf("expected completion with one warning, got %+v", st)
	}
}

func TestTranscriptionFailureSkipsScorer(t *testing.T) {
	h := newHarness(t, func(d *Deps) {
		d.Transcriber = fakeTranscriber{err: &TranscriptionError{Cause: fmt.Errorf("unreadable audio")}}
	})
	h.registry.Create("job1")

	if err := h.proc.Process(context.Background(), "job1", "/videos/src.mp4"); err != nil {
		t.Fatalf("transcription failure must not fail the job: %v", err)
	}
	if h.scorer.called {
		t.Error("scorer must not run without a transcript")
	}
	st, _ := h.registry.Get("job1")
	if st.Status != models.StatusCompleted || len(st.Warnings) != 1 {
		t.Errorf("expected completion with one warning, got %+v", st)
	}
}

func TestRenderFailureFlagsClipAndJobCompletes(t *testing.T) {
	h := newHarness(t, func(d *Deps) {
		d.Renderer = fakeRenderer{outputDir: t.TempDir(), failIndex: map[int]bool{2: true}}
	})
	h.registry.Create("job1")

	if err := h.proc.Process(context.Background(), "job1", "/videos/src.mp4"); err != nil {
		t.Fatalf("single render failure must not fail the job: %v", err)
	}

	st, _ := h.registry.Get("job1")
	if st.Status != models.StatusCompleted {
		t.Fatalf("expected completion, got %s", st.Status)
	}
	if st.Clips[0].RenderFailed {
		t.Error("first clip should have succeeded")
	}
	if !st.Clips[1].RenderFailed || st.Clips[1].RenderError == "" {
		t.Errorf("second clip should be flagged: %+v", st.Clips[1])
	}
	if len(st.Warnings) != 1 {
		t.Errorf("expected a partial-failure warning, got %v", st.Warnings)
	}
}

func TestAllRendersFailedFailsJob(t *testing.T) {
	h := newHarness(t, func(d *Deps) {
		d.Renderer = fakeRenderer{outputDir: t.TempDir(), failIndex: map[int]bool{1: true, 2: true}}
	})
	h.registry.Create("job1")

	if err := h.proc.Process(context.Background(), "job1", "/videos/src.mp4"); err == nil {
		t.Fatal("job should fail when every render fails")
	}
	st, _ := h.registry.Get("job1")
	if st.Status != models.StatusFailed {
		t.Errorf("expected failed status, got %s", st.Status)
	}
}

func TestShortVideoFailsTerminally(t *testing.T) {
	h := newHarness(t, func(d *Deps) {
		d.Media = fakeMedia{video: models.VideoInfo{Duration: 8, Width: 1920, Height: 1080, FrameRate: 30}}
	})
	h.registry.Create("job1")

	err := h.proc.Process(context.Background(), "job1", "/videos/src.mp4")
	var ice *InsufficientContentError
	if !errors.As(err, &ice) {
		t.Fatalf("expected InsufficientContentError, got %v", err)
	}
	st, _ := h.registry.Get("job1")
	if st.Status != models.StatusFailed || st.Error == "" {
		t.Errorf("job state should record the failure: %+v", st)
	}
}

func TestInsufficientContentFromReconcilerFailsJob(t *testing.T) {
	h := newHarness(t, nil)
	h.reconciler.intervals = nil
	h.reconciler.err = &InsufficientContentError{VideoDuration: 300, MinDuration: 15, Threshold: 0.4}
	h.registry.Create("job1")

	err := h.proc.Process(context.Background(), "job1", "/videos/src.mp4")
	var ice *InsufficientContentError
	if !errors.As(err, &ice) {
		t.Fatalf("expected InsufficientContentError, got %v", err)
	}
}

func TestProgressNeverGoesBackwards(t *testing.T) {
	r := NewRegistry()
	r.Create("j")
	r.SetProgress("j", 40, "later stage")
	r.SetProgress("j", 20, "stale update")
	st, _ := r.Get("j")
	if st.Progress != 40 {
		t.Errorf("progress regressed to %d", st.Progress)
	}
}

func TestRewriteGoogleDriveURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{
			"https://drive.google.com/file/d/1AbC_dEf/view?usp=sharing",
			"https://drive.google.com/uc?export=download&id=1AbC_dEf",
		},
		{"https://example.com/video.mp4", "https://example.com/video.mp4"},
		{"https://drive.google.com/drive/folders/xyz", "https://drive.google.com/drive/folders/xyz"},
	}
	for _, tc := range cases {
		if got := RewriteGoogleDriveURL(tc.in); got != tc.want {
			t.Errorf("RewriteGoogleDriveURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDownloadExtDefaultsToMP4(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://example.com/talk.MOV", ".mov"},
		{"https://example.com/talk.webm", ".webm"},
		{"https://drive.google.com/uc?export=download&id=abc", ".mp4"},
		{"https://example.com/talk.exe", ".mp4"},
	}
	for _, tc := range cases {
		if got := downloadExt(tc.in); got != tc.want {
			t.Errorf("downloadExt(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
