// Package store persists job records to Supabase through PostgREST. The
// store is best-effort: the pipeline runs fine without it, and write
// failures are logged, not fatal.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	postgrest "github.com/supabase-community/postgrest-go"

	"github.com/Pruthvirajj2/pulsepoint-ai/internal/models"
)

const jobsTable = "highlight_jobs"

// jobRow maps to the highlight_jobs table. Metadata is JSONB.
type jobRow struct {
	JobID        string          `json:"job_id"`
	SourceVideo  string          `json:"source_video"`
	Status       string          `json:"status"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at,omitempty"`
}

// Store writes job lifecycle records. A nil *Store is valid and does
// nothing, so callers never branch on whether persistence is configured.
type Store struct {
	client *postgrest.Client
	log    *logrus.Entry
}

// New builds a Store for the Supabase project at url. Returns nil when
// url or key is empty, which disables persistence.
func New(url, key string, log *logrus.Logger) (*Store, error) {
	if url == "" || key == "" {
		return nil, nil
	}
	client := postgrest.NewClient(url+"/rest/v1", "", map[string]string{
		"apikey":        key,
		"Authorization": fmt.Sprintf("Bearer %s", key),
	})
	if client.ClientError != nil {
		return nil, fmt.Errorf("initialize postgrest client: %w", client.ClientError)
	}
	return &Store{client: client, log: log.WithField("component", "store")}, nil
}

// CreateJob inserts the initial record for a queued job.
func (s *Store) CreateJob(jobID, sourceVideo string) {
	if s == nil {
		return
	}
	row := jobRow{
		JobID:       jobID,
		SourceVideo: sourceVideo,
		Status:      string(models.StatusQueued),
	}
	var results []jobRow
	if _, err := s.client.From(jobsTable).Insert(row, false, "", "representation", "").ExecuteTo(&results); err != nil {
		s.log.WithError(err).WithField("job_id", jobID).Warn("Failed to insert job record")
	}
}

// UpdateStatus records a status transition. errMsg may be empty.
func (s *Store) UpdateStatus(jobID string, status models.JobStatus, errMsg string) {
	if s == nil {
		return
	}
	update := map[string]interface{}{
		"status":     string(status),
		"updated_at": time.Now(),
	}
	if errMsg != "" {
		update["error_message"] = errMsg
	}
	var results []jobRow
	if _, err := s.client.From(jobsTable).Update(update, "", "").Eq("job_id", jobID).ExecuteTo(&results); err != nil {
		s.log.WithError(err).WithField("job_id", jobID).Warn("Failed to update job record")
	}
}

// SaveMetadata attaches the final clip metadata to a completed job.
func (s *Store) SaveMetadata(jobID string, meta models.JobMetadata) {
	if s == nil {
		return
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		s.log.WithError(err).WithField("job_id", jobID).Warn("Failed to marshal job metadata")
		return
	}
	update := map[string]interface{}{
		"metadata":   json.RawMessage(raw),
		"updated_at": time.Now(),
	}
	var results []jobRow
	if _, err := s.client.From(jobsTable).Update(update, "", "").Eq("job_id", jobID).ExecuteTo(&results); err != nil {
		s.log.WithError(err).WithField("job_id", jobID).Warn("Failed to save job metadata")
	}
}
