package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/Pruthvirajj2/pulsepoint-ai/internal/config"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/models"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/pipeline"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/worker"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

type testServer struct {
	app      *fiber.App
	registry *pipeline.Registry
	settings config.Settings
}

func newTestServer(t *testing.T, queueSize int) *testServer {
	t.Helper()
	dir := t.TempDir()
	settings := config.Default()
	settings.UploadDir = filepath.Join(dir, "uploads")
	settings.OutputDir = filepath.Join(dir, "outputs")
	settings.TempDir = filepath.Join(dir, "temp")
	if err := settings.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	registry := pipeline.NewRegistry()
	// The dispatcher is never started: submitted jobs stay queued, which
	// is all the handler tests need.
	dispatcher := worker.NewDispatcher(1, queueSize, quietLogger())
	processor := pipeline.NewProcessor(settings, pipeline.Deps{Registry: registry}, quietLogger())

	app := fiber.New()
	New(settings, registry, dispatcher, processor, nil, quietLogger()).Register(app)

	return &testServer{app: app, registry: registry, settings: settings}
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, 10)
	resp, err := ts.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if env := decodeEnvelope(t, resp); env.Status != "success" {
		t.Errorf("unexpected envelope: %+v", env)
	}
}

func TestSubmitURLQueuesJob(t *testing.T) {
	ts := newTestServer(t, 10)
	body := strings.NewReader(`{"url": "https://example.com/talk.mp4"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/url", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	var data struct {
		JobID string `json:"job_id"`
	}
	env := decodeEnvelope(t, resp)
	if err := json.Unmarshal(env.Data, &data); err != nil || data.JobID == "" {
		t.Fatalf("response should carry a job_id: %s", env.Data)
	}
	if st, ok := ts.registry.Get(data.JobID); !ok || st.Status != models.StatusQueued {
		t.Errorf("job should be registered as queued, got %+v", st)
	}
}

func TestSubmitURLRejectsInvalidBody(t *testing.T) {
	ts := newTestServer(t, 10)
	for _, body := range []string{`{}`, `{"url": "not a url"}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/url", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := ts.app.Test(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d", body, resp.StatusCode)
		}
	}
}

func TestSubmitURLFullQueueReturns503(t *testing.T) {
	ts := newTestServer(t, 0)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/url", strings.NewReader(`{"url": "https://example.com/a.mp4"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with a full queue, got %d", resp.StatusCode)
	}
}

func multipartVideo(t *testing.T, filename string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("video", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("fake video bytes")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestUploadVideoSavesFileAndQueuesJob(t *testing.T) {
	ts := newTestServer(t, 10)
	body, contentType := multipartVideo(t, "talk.mp4")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := ts.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 202, got %d: %s", resp.StatusCode, raw)
	}

	var data struct {
		JobID string `json:"job_id"`
	}
	env := decodeEnvelope(t, resp)
	if err := json.Unmarshal(env.Data, &data); err != nil || data.JobID == "" {
		t.Fatalf("response should carry a job_id: %s", env.Data)
	}
	saved := filepath.Join(ts.settings.UploadDir, data.JobID+".mp4")
	if _, err := os.Stat(saved); err != nil {
		t.Errorf("uploaded file should be saved at %s: %v", saved, err)
	}
}

func TestUploadVideoRejectsUnsupportedExtension(t *testing.T) {
	ts := newTestServer(t, 10)
	body, contentType := multipartVideo(t, "malware.exe")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := ts.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestJobStatusNotFound(t *testing.T) {
	ts := newTestServer(t, 10)
	resp, err := ts.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/jobs/nope", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestDownloadClipBeforeCompletionConflicts(t *testing.T) {
	ts := newTestServer(t, 10)
	ts.registry.Create("j1")
	resp, err := ts.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/jobs/j1/clips/1/download", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for an unfinished job, got %d", resp.StatusCode)
	}
}

func TestDownloadClipServesFile(t *testing.T) {
	ts := newTestServer(t, 10)
	clipPath := filepath.Join(ts.settings.OutputDir, "j1_clip_01.mp4")
	if err := os.WriteFile(clipPath, []byte("clipdata"), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}
	ts.registry.Create("j1")
	ts.registry.Complete("j1", []models.ClipRecord{
		{Index: 1, Filename: "j1_clip_01.mp4", Path: clipPath},
	}, nil)

	resp, err := ts.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/jobs/j1/clips/1/download", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	if string(raw) != "clipdata" {
		t.Errorf("unexpected clip body: %q", raw)
	}

	// Out-of-range index
	resp, err = ts.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/jobs/j1/clips/9/download", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for an out-of-range clip, got %d", resp.StatusCode)
	}
}
