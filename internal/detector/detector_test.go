package detector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/Pruthvirajj2/pulsepoint-ai/internal/pipeline"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestDetectFacesParsesObservations(t *testing.T) {
	var gotReq detectRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"faces": []map[string]float64{
				{"center_x": 960, "center_y": 420, "confidence": 0.93},
				{"center_x": 300, "center_y": 500, "confidence": 0.41},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, quietLogger())
	obs, err := c.DetectFaces(context.Background(), "/videos/src.mp4", 12.4)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if gotReq.VideoPath != "/videos/src.mp4" || gotReq.FrameTime != 12.4 {
		t.Errorf("unexpected request payload: %+v", gotReq)
	}
	if len(obs) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(obs))
	}
	if obs[0].CenterX != 960 || obs[0].Confidence != 0.93 || obs[0].FrameTime != 12.4 {
		t.Errorf("unexpected first observation: %+v", obs[0])
	}
}

func TestDetectFacesEmptyListIsValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"faces": []}`))
	}))
	defer srv.Close()

	c := New(srv.URL, quietLogger())
	obs, err := c.DetectFaces(context.Background(), "/videos/src.mp4", 3)
	if err != nil {
		t.Fatalf("empty face list must not be an error: %v", err)
	}
	if len(obs) != 0 {
		t.Errorf("expected no observations, got %d", len(obs))
	}
}

func TestDetectFacesTransportFailureIsDetectorUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := New(srv.URL, quietLogger())
	_, err := c.DetectFaces(context.Background(), "/videos/src.mp4", 3)
	var due *pipeline.DetectorUnavailableError
	if !errors.As(err, &due) {
		t.Fatalf("expected DetectorUnavailableError, got %v", err)
	}
}
