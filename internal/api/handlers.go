// Package api exposes the HTTP surface: video ingest, job status, and
// clip download.
package api

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Pruthvirajj2/pulsepoint-ai/internal/config"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/models"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/pipeline"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/store"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/worker"
)

var allowedExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
	".avi":  true,
}

// Handler wires the HTTP routes to the job machinery.
type Handler struct {
	settings   config.Settings
	registry   *pipeline.Registry
	dispatcher *worker.Dispatcher
	processor  *pipeline.Processor
	store      *store.Store
	validate   *validator.Validate
	log        *logrus.Logger
}

// New builds the handler set.
func New(settings config.Settings, registry *pipeline.Registry, dispatcher *worker.Dispatcher, processor *pipeline.Processor, st *store.Store, log *logrus.Logger) *Handler {
	return &Handler{
		settings:   settings,
		registry:   registry,
		dispatcher: dispatcher,
		processor:  processor,
		store:      st,
		validate:   validator.New(),
		log:        log,
	}
}

// Register mounts all routes on the app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/health", h.Health)

	v1 := app.Group("/api/v1")
	v1.Post("/videos/upload", h.UploadVideo)
	v1.Post("/videos/url", h.SubmitURL)
	v1.Get("/jobs/:jobId", h.JobStatus)
	v1.Get("/jobs/:jobId/clips/:index/download", h.DownloadClip)
}

// Health reports service liveness.
func (h *Handler) Health(c *fiber.Ctx) error {
	return respondJSON(c, fiber.StatusOK, fiber.Map{"service": "pulsepoint", "healthy": true})
}

// UploadVideo accepts a multipart video file and queues a highlight job.
func (h *Handler) UploadVideo(c *fiber.Ctx) error {
	file, err := c.FormFile("video")
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, fmt.Sprintf("Error getting file: %v", err))
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		return respondError(c, fiber.StatusBadRequest, fmt.Sprintf("Unsupported file type %q", ext))
	}

	jobID := uuid.NewString()
	dest := filepath.Join(h.settings.UploadDir, jobID+ext)
	if err := c.SaveFile(file, dest); err != nil {
		h.log.WithError(err).Error("Failed to save uploaded file")
		return respondError(c, fiber.StatusInternalServerError, "Error saving uploaded file")
	}

	h.registry.Create(jobID)
	h.store.CreateJob(jobID, file.Filename)

	if err := h.dispatcher.Submit(pipeline.NewUploadJob(jobID, dest, h.processor)); err != nil {
		h.registry.Fail(jobID, err.Error())
		return respondError(c, fiber.StatusServiceUnavailable, "Server is busy, try again later")
	}

	h.log.WithFields(logrus.Fields{"job_id": jobID, "filename": file.Filename}).Info("Upload accepted")
	return respondJSON(c, fiber.StatusAccepted, fiber.Map{"job_id": jobID})
}

type urlRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// SubmitURL queues a highlight job for a remote video, downloading it
// when the job runs. Google Drive share links are accepted directly.
func (h *Handler) SubmitURL(c *fiber.Ctx) error {
	var req urlRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, fiber.StatusBadRequest, strings.Join(formatValidationErrors(err), "; "))
	}

	jobID := uuid.NewString()
	h.registry.Create(jobID)
	h.store.CreateJob(jobID, req.URL)

	if err := h.dispatcher.Submit(pipeline.NewURLJob(jobID, req.URL, h.processor)); err != nil {
		h.registry.Fail(jobID, err.Error())
		return respondError(c, fiber.StatusServiceUnavailable, "Server is busy, try again later")
	}

	h.log.WithFields(logrus.Fields{"job_id": jobID, "url": req.URL}).Info("URL submission accepted")
	return respondJSON(c, fiber.StatusAccepted, fiber.Map{"job_id": jobID})
}

// JobStatus returns the live job state.
func (h *Handler) JobStatus(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	state, ok := h.registry.Get(jobID)
	if !ok {
		return respondError(c, fiber.StatusNotFound, fmt.Sprintf("Job %s not found", jobID))
	}
	return respondJSON(c, fiber.StatusOK, state)
}

// DownloadClip streams one rendered clip. Range requests are honored so
// players can seek.
func (h *Handler) DownloadClip(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	state, ok := h.registry.Get(jobID)
	if !ok {
		return respondError(c, fiber.StatusNotFound, fmt.Sprintf("Job %s not found", jobID))
	}
	if state.Status != models.StatusCompleted {
		return respondError(c, fiber.StatusConflict, fmt.Sprintf("Job %s is %s, clips are not ready", jobID, state.Status))
	}

	index, err := strconv.Atoi(c.Params("index"))
	if err != nil || index < 1 || index > len(state.Clips) {
		return respondError(c, fiber.StatusNotFound, fmt.Sprintf("Clip %s not found", c.Params("index")))
	}

	clip := state.Clips[index-1]
	if clip.RenderFailed {
		return respondError(c, fiber.StatusGone, fmt.Sprintf("Clip %d failed to render: %s", index, clip.RenderError))
	}

	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", clip.Filename))
	return c.SendFile(clip.Path)
}
