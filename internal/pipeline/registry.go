package pipeline

import (
	"sync"
	"time"

	"github.com/Pruthvirajj2/pulsepoint-ai/internal/models"
)

// Registry is the in-memory job index the API reads from. Job state lives
// here for the process lifetime; the optional store mirrors it durably.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*models.JobState
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*models.JobState)}
}

// Create registers a new queued job.
func (r *Registry) Create(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	r.jobs[jobID] = &models.JobState{
		JobID:     jobID,
		Status:    models.StatusQueued,
		Message:   "Queued for processing",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Get returns a copy of the job state.
func (r *Registry) Get(jobID string) (models.JobState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.jobs[jobID]
	if !ok {
		return models.JobState{}, false
	}
	return *st, true
}

// SetStatus transitions the job and resets its progress message.
func (r *Registry) SetStatus(jobID string, status models.JobStatus, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.jobs[jobID]
	if !ok {
		return
	}
	st.Status = status
	st.Message = message
	st.UpdatedAt = time.Now().UTC()
}

// SetProgress advances the advisory progress counter. Progress never goes
// backwards; stale updates from concurrent stages are dropped.
func (r *Registry) SetProgress(jobID string, progress int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.jobs[jobID]
	if !ok {
		return
	}
	if progress > st.Progress {
		st.Progress = progress
	}
	if message != "" {
		st.Message = message
	}
	st.UpdatedAt = time.Now().UTC()
}

// Complete marks the job finished with its clip list and any warnings.
func (r *Registry) Complete(jobID string, clips []models.ClipRecord, warnings []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.jobs[jobID]
	if !ok {
		return
	}
	st.Status = models.StatusCompleted
	st.Progress = 100
	st.Message = "Processing complete"
	st.Clips = clips
	st.Warnings = warnings
	st.UpdatedAt = time.Now().UTC()
}

// Fail marks the job terminally failed.
func (r *Registry) Fail(jobID string, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.jobs[jobID]
	if !ok {
		return
	}
	st.Status = models.StatusFailed
	st.Message = "Processing failed"
	st.Error = errMsg
	st.UpdatedAt = time.Now().UTC()
}
