// Package detector is the HTTP client for the face-detection sidecar.
// Detection runs out of process; this client only ships frame references
// and reads back observations.
package detector

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

// Client calls the sidecar's /detect endpoint once per sampled frame.
// Safe for concurrent use; the planner fans out across intervals.
type Client struct {
	baseURL string
	client  *http.Client
	log     *logrus.Entry
}

// New builds a Client for the sidecar at baseURL.
func New(baseURL string, log *logrus.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     log.WithField("component", "detector"),
	}
}

type detectRequest struct {
	VideoPath string  `json:"video_path"`
	FrameTime float64 `json:"frame_time"`
}

type detectResponse struct {
	Faces []struct {
		CenterX    float64 `json:"center_x"`
		CenterY    float64 `json:"center_y"`
		Confidence float64 `json:"confidence"`
	} `json:"faces"`
}

// DetectFaces implements faceplan.Detector. An empty face list is a valid
// response; transport and decode errors surface to the planner, which
// treats them as unobserved frames.
func (c *Client) DetectFaces(ctx context.Context, videoPath string, frameTime float64) ([]models.FaceObservation, error) {
	payload, _ := json.Marshal(detectRequest{VideoPath: videoPath, FrameTime: frameTime})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &pipeline.DetectorUnavailableError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("detector returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode detector response: %w", err)
	}

	obs := make([]models.FaceObservation, 0, len(out.Faces))
	for _, f := range out.Faces {
		obs = append(obs, models.FaceObservation{
			FrameTime:  frameTime,
			CenterX:    f.CenterX,
			CenterY:    f.CenterY,
			Confidence: f.Confidence,
		})
	}
	return obs, nil
}
