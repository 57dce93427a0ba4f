package models

import "time"

// JobStatus is the lifecycle state of a processing job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusDownloading JobStatus = "downloading"
	StatusProcessing  JobStatus = "processing"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
)

// ClipRecord is the per-clip entry exposed to API consumers and written
// into the job metadata file.
type ClipRecord struct {
	Index        int             `json:"index"` // 1-based
	Filename     string          `json:"filename"`
	Path         string          `json:"path"`
	StartTime    float64         `json:"start_time"`
	EndTime      float64         `json:"end_time"`
	Duration     float64         `json:"duration"`
	Rank         int             `json:"rank"`
	Headline     string          `json:"headline"`
	EmotionalTag string          `json:"emotional_appeal"`
	Source       SpanSource      `json:"source"`
	Score        float64         `json:"score"`
	Rationale    string          `json:"rationale,omitempty"`
	CropSummary  CropPathSummary `json:"crop_summary"`
	RenderFailed bool            `json:"render_failed,omitempty"`
	RenderError  string          `json:"render_error,omitempty"`
}

// JobMetadata is the per-job record emitted once processing reaches a
// terminal state. This is the contract with the persistence/API layer.
type JobMetadata struct {
	JobID       string       `json:"job_id"`
	SourceVideo string       `json:"source_video"`
	Duration    float64      `json:"video_duration"`
	Clips       []ClipRecord `json:"clips"`
	Warnings    []string     `json:"warnings,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// JobState is the mutable, API-visible view of a job tracked by the job
// registry. Progress is advisory and monotonically increasing.
type JobState struct {
	JobID     string       `json:"job_id"`
	Status    JobStatus    `json:"status"`
	Progress  int          `json:"progress"` // 0-100
	Message   string       `json:"message"`
	Clips     []ClipRecord `json:"clips,omitempty"`
	Warnings  []string     `json:"warnings,omitempty"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
