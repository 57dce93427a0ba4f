package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Pruthvirajj2/pulsepoint-ai/internal/models"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/pipeline"
)

const defaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-pro-latest:generateContent"

// Gemini scores highlights through the Gemini REST API.
type Gemini struct {
	apiKey string
	url    string
	client *http.Client
	log    *logrus.Entry
}

// NewGemini builds the client. url overrides the production endpoint for
// tests; pass "" for the default.
func NewGemini(apiKey, url string, log *logrus.Logger) *Gemini {
	if url == "" {
		url = defaultGeminiURL
	}
	return &Gemini{
		apiKey: apiKey,
		url:    url,
		client: &http.Client{Timeout: 90 * time.Second},
		log:    log.WithField("component", "scorer").WithField("provider", "gemini"),
	}
}

// ScoreHighlights implements Scorer.
func (g *Gemini) ScoreHighlights(ctx context.Context, transcription models.Transcription, c Constraints) ([]models.CandidateSpan, error) {
	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": buildPrompt(transcription, c)}}},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     0.3,
			"maxOutputTokens": 4096,
		},
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url+"?key="+g.apiKey, bytes.NewReader(body))
	if err != nil {
		return nil, &pipeline.ScoringUnavailableError{Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &pipeline.ScoringUnavailableError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &pipeline.ScoringUnavailableError{
			Cause: fmt.Errorf("gemini returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
		}
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return nil, &pipeline.ScoringUnavailableError{Cause: fmt.Errorf("decode gemini response: %w", err)}
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return nil, &pipeline.ScoringUnavailableError{Cause: fmt.Errorf("gemini returned no candidates")}
	}

	text := geminiResp.Candidates[0].Content.Parts[0].Text
	raw := extractJSONArray(text)
	if raw == "" {
		return nil, &pipeline.ScoringUnavailableError{Cause: fmt.Errorf("no JSON array in gemini response")}
	}
	var moments []moment
	if err := json.Unmarshal([]byte(raw), &moments); err != nil {
		return nil, &pipeline.ScoringUnavailableError{Cause: fmt.Errorf("parse gemini moments: %w", err)}
	}

	g.log.WithField("moments", len(moments)).Info("Gemini identified key moments")
	return momentsToSpans(moments, transcription, c), nil
}
