// Package transcript wraps the speech-to-text collaborator behind a
// single-method capability interface.
package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Pruthvirajj2/pulsepoint-ai/internal/models"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/pipeline"
)

// Provider produces time-aligned transcript segments for a whole audio
// file. Implementations return *pipeline.TranscriptionError on unreadable
// or unsupported audio.
type Provider interface {
	Transcribe(ctx context.Context, audioPath string) (models.Transcription, error)
}

const defaultBaseURL = "https://api.assemblyai.com/v2"

// AssemblyAI is the default Provider. Flow: upload the audio file, request
// a transcription job, poll until it reaches a terminal status, then group
// word-level timestamps into sentence-like segments.
type AssemblyAI struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	pollInterval time.Duration
	maxWait      time.Duration
	log          *logrus.Entry
}

// NewAssemblyAI builds the client. baseURL overrides the production
// endpoint for tests; pass "" for the default.
func NewAssemblyAI(apiKey, baseURL string, log *logrus.Logger) *AssemblyAI {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &AssemblyAI{
		apiKey:       apiKey,
		baseURL:      baseURL,
		client:       &http.Client{Timeout: 2 * time.Minute},
		pollInterval: 3 * time.Second,
		maxWait:      10 * time.Minute,
		log:          log.WithField("component", "transcript"),
	}
}

type transcriptWord struct {
	Text  string `json:"text"`
	Start int64  `json:"start"` // milliseconds
	End   int64  `json:"end"`
}

type transcriptResponse struct {
	ID           string           `json:"id"`
	Status       string           `json:"status"`
	Text         string           `json:"text"`
	Words        []transcriptWord `json:"words"`
	LanguageCode string           `json:"language_code"`
	Error        string           `json:"error"`
}

// Transcribe implements Provider.
func (a *AssemblyAI) Transcribe(ctx context.Context, audioPath string) (models.Transcription, error) {
	uploadURL, err := a.upload(ctx, audioPath)
	if err != nil {
		return models.Transcription{}, &pipeline.TranscriptionError{Cause: err}
	}
	a.log.WithField("audio", audioPath).Info("Audio uploaded, requesting transcription")

	id, err := a.request(ctx, uploadURL)
	if err != nil {
		return models.Transcription{}, &pipeline.TranscriptionError{Cause: err}
	}

	data, err := a.poll(ctx, id)
	if err != nil {
		return models.Transcription{}, &pipeline.TranscriptionError{Cause: err}
	}

	segments := segmentsFromWords(data.Words)
	a.log.WithFields(logrus.Fields{
		"segments": len(segments),
		"language": data.LanguageCode,
	}).Info("Transcription complete")

	lang := data.LanguageCode
	if lang == "" {
		lang = "en"
	}
	return models.Transcription{Text: data.Text, Segments: segments, Language: lang}, nil
}

func (a *AssemblyAI) upload(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/upload", f)
	if err != nil {
		return "", err
	}
	req.Header.Set("authorization", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	return out.UploadURL, nil
}

func (a *AssemblyAI) request(ctx context.Context, audioURL string) (string, error) {
	payload, _ := json.Marshal(map[string]interface{}{
		"audio_url":          audioURL,
		"language_detection": true,
		"punctuate":          true,
		"format_text":        true,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/transcript", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("authorization", a.apiKey)
	req.Header.Set("content-type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("transcription request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	return out.ID, nil
}

func (a *AssemblyAI) poll(ctx context.Context, id string) (*transcriptResponse, error) {
	deadline := time.Now().Add(a.maxWait)
	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/transcript/"+id, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("authorization", a.apiKey)

		resp, err := a.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("poll request: %w", err)
		}
		var data transcriptResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&data)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("poll failed: %s", resp.Status)
		}
		if decodeErr != nil {
			return nil, fmt.Errorf("decode poll response: %w", decodeErr)
		}

		switch data.Status {
		case "completed":
			return &data, nil
		case "error":
			return nil, fmt.Errorf("transcription error: %s", data.Error)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.pollInterval):
		}
	}
	return nil, fmt.Errorf("transcription timed out after %s", a.maxWait)
}

// segmentsFromWords groups word-level timestamps into sentence-like
// segments, breaking on terminal punctuation or after 10 words.
func segmentsFromWords(words []transcriptWord) []models.TranscriptSegment {
	if len(words) == 0 {
		return nil
	}

	var segments []models.TranscriptSegment
	start := float64(words[0].Start) / 1000.0
	var texts []string
	for i, w := range words {
		texts = append(texts, w.Text)
		endOfSentence := strings.HasSuffix(w.Text, ".") ||
			strings.HasSuffix(w.Text, "!") ||
			strings.HasSuffix(w.Text, "?")
		if endOfSentence || len(texts) >= 10 || i == len(words)-1 {
			segments = append(segments, models.TranscriptSegment{
				Start: start,
				End:   float64(w.End) / 1000.0,
				Text:  strings.Join(texts, " "),
			})
			texts = nil
			if i < len(words)-1 {
				start = float64(words[i+1].Start) / 1000.0
			}
		}
	}
	return segments
}
