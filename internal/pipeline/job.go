package pipeline

import (
	"context"

	"github.com/Pruthvirajj2/pulsepoint-ai/internal/models"
)

// HighlightJob is the queued unit of work: one source video in, up to
// MaxClips vertical clips out. Implements worker.Job.
type HighlightJob struct {
	jobID     string
	videoPath string // local source; set after download for URL jobs
	sourceURL string // remote source; empty for uploads
	proc      *Processor
}

// NewUploadJob wraps an already-saved local file.
func NewUploadJob(jobID, videoPath string, proc *Processor) *HighlightJob {
	return &HighlightJob{jobID: jobID, videoPath: videoPath, proc: proc}
}

// NewURLJob wraps a remote source that is downloaded when the job runs.
func NewURLJob(jobID, sourceURL string, proc *Processor) *HighlightJob {
	return &HighlightJob{jobID: jobID, sourceURL: sourceURL, proc: proc}
}

// ID implements worker.Job.
func (j *HighlightJob) ID() string { return j.jobID }

// Execute implements worker.Job.
func (j *HighlightJob) Execute(ctx context.Context) error {
	if j.sourceURL != "" {
		j.proc.deps.Registry.SetStatus(j.jobID, models.StatusDownloading, "Downloading source video")
		j.proc.deps.Store.UpdateStatus(j.jobID, models.StatusDownloading, "")

		path, err := j.proc.download(ctx, j.jobID, j.sourceURL)
		if err != nil {
			return j.proc.fail(j.jobID, err)
		}
		j.videoPath = path
	}
	return j.proc.Process(ctx, j.jobID, j.videoPath)
}
