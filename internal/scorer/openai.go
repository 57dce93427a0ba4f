package scorer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/sirupsen/logrus"

	"github.com/Pruthvirajj2/pulsepoint-ai/internal/models"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/pipeline"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAI scores highlights through any OpenAI-compatible chat completion
// endpoint. Interchangeable with Gemini behind the Scorer interface.
type OpenAI struct {
	client openai.Client
	model  string
	log    *logrus.Entry
}

// NewOpenAI builds the client. baseURL and model may be empty for the
// defaults.
func NewOpenAI(apiKey, baseURL, model string, log *logrus.Logger) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
		log:    log.WithField("component", "scorer").WithField("provider", "openai"),
	}
}

// ScoreHighlights implements Scorer.
func (o *OpenAI) ScoreHighlights(ctx context.Context, transcription models.Transcription, c Constraints) ([]models.CandidateSpan, error) {
	system := "You are an expert short-form video content strategist. Respond with JSON only."
	user := buildPrompt(transcription, c) +
		"\n\nWrap the array in an object: {\"moments\": [...]}"

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:       o.model,
		Temperature: openai.Float(0.3),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	})
	if err != nil {
		return nil, &pipeline.ScoringUnavailableError{Cause: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &pipeline.ScoringUnavailableError{Cause: fmt.Errorf("model returned no choices")}
	}

	raw := resp.Choices[0].Message.Content
	var wrapped struct {
		Moments []moment `json:"moments"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
		// Some models ignore the wrapper instruction and return a bare array.
		arr := extractJSONArray(raw)
		if arr == "" {
			return nil, &pipeline.ScoringUnavailableError{Cause: fmt.Errorf("parse model response: %w", err)}
		}
		if err := json.Unmarshal([]byte(arr), &wrapped.Moments); err != nil {
			return nil, &pipeline.ScoringUnavailableError{Cause: fmt.Errorf("parse model response: %w", err)}
		}
	}

	o.log.WithField("moments", len(wrapped.Moments)).Info("Model identified key moments")
	return momentsToSpans(wrapped.Moments, transcription, c), nil
}
