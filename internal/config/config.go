package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Settings is the explicit configuration passed into every pipeline
// component at construction. All tunables live here; there is no hidden
// process-wide mutable state beyond the shared logger.
type Settings struct {
	// API keys for the external collaborators.
	AssemblyAIKey string `validate:"omitempty,min=8"`
	GeminiKey     string `validate:"omitempty,min=8"`
	OpenAIKey     string
	ScorerProvider string `validate:"oneof=gemini openai"`

	// Face detector sidecar. Empty means no detector; every interval then
	// uses the fixed-center fallback.
	DetectorURL string

	// Optional Supabase persistence. Empty disables the store.
	SupabaseURL string
	SupabaseKey string

	// Server
	Host string
	Port int `validate:"gt=0,lt=65536"`

	// Clip selection
	MaxClips        int     `validate:"gt=0"`
	MinClipDuration float64 `validate:"gt=0"`
	MaxClipDuration float64 `validate:"gtfield=MinClipDuration"`

	// Reframing
	TargetAspectX int `validate:"gt=0"`
	TargetAspectY int `validate:"gt=0"`
	OutputHeight  int `validate:"gt=0"`

	// Energy extraction
	EnergySampleInterval float64 // seconds between EnergySamples
	EnergyPeakQuantile   float64 `validate:"gt=0,lt=1"` // relative peak threshold
	EnergyDecayFraction  float64 `validate:"gt=0,lt=1"` // expansion stops when score drops below peak*fraction

	// Face track planning
	FaceSampleFPS    float64 // detector sampling rate within an interval
	SmoothingWindow  float64 // moving-average window in seconds; responsiveness vs stability trade
	ConfidenceFloor  float64 // observations below this are discarded
	MinFaceCoverage  float64 // below this fraction of observed frames the interval falls back to a fixed center

	// Workers
	MaxWorkers   int `validate:"gt=0"`
	JobQueueSize int `validate:"gt=0"`

	// Paths
	UploadDir string
	OutputDir string
	TempDir   string

	LogLevel string
}

// Default returns the documented default settings. Values match the
// original service deployment: 15-60s clips, at most 5 per video, 9:16
// output at 1080x1920.
func Default() Settings {
	return Settings{
		ScorerProvider:       "gemini",
		Host:                 "0.0.0.0",
		Port:                 8000,
		MaxClips:             5,
		MinClipDuration:      15,
		MaxClipDuration:      60,
		TargetAspectX:        9,
		TargetAspectY:        16,
		OutputHeight:         1920,
		EnergySampleInterval: 0.5,
		EnergyPeakQuantile:   0.85,
		EnergyDecayFraction:  0.4,
		FaceSampleFPS:        5,
		SmoothingWindow:      0.8,
		ConfidenceFloor:      0.5,
		MinFaceCoverage:      0.5,
		MaxWorkers:           3,
		JobQueueSize:         50,
		UploadDir:            "uploads",
		OutputDir:            "outputs",
		TempDir:              "temp",
		LogLevel:             "info",
	}
}

// Load reads settings from the environment, with a .env file honored when
// present, and validates the result.
func Load() (Settings, error) {
	if err := godotenv.Load(); err == nil {
		Logger().Info("Loaded environment variables from .env file")
	}

	s := Default()

	s.AssemblyAIKey = os.Getenv("ASSEMBLYAI_API_KEY")
	s.GeminiKey = os.Getenv("GOOGLE_API_KEY")
	s.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	s.DetectorURL = os.Getenv("FACE_DETECTOR_URL")
	s.SupabaseURL = os.Getenv("SUPABASE_URL")
	s.SupabaseKey = os.Getenv("SUPABASE_SERVICE_KEY")

	if v := os.Getenv("SCORER_PROVIDER"); v != "" {
		s.ScorerProvider = strings.ToLower(v)
	}
	if v := os.Getenv("HOST"); v != "" {
		s.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return s, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		s.Port = p
	}
	if v := os.Getenv("MAX_CLIPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return s, fmt.Errorf("invalid MAX_CLIPS %q: %w", v, err)
		}
		s.MaxClips = n
	}
	if v := os.Getenv("MIN_CLIP_DURATION"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return s, fmt.Errorf("invalid MIN_CLIP_DURATION %q: %w", v, err)
		}
		s.MinClipDuration = f
	}
	if v := os.Getenv("MAX_CLIP_DURATION"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return s, fmt.Errorf("invalid MAX_CLIP_DURATION %q: %w", v, err)
		}
		s.MaxClipDuration = f
	}
	if v := os.Getenv("TARGET_ASPECT_RATIO"); v != "" {
		x, y, err := parseAspect(v)
		if err != nil {
			return s, err
		}
		s.TargetAspectX, s.TargetAspectY = x, y
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		s.UploadDir = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		s.OutputDir = v
	}
	if v := os.Getenv("TEMP_DIR"); v != "" {
		s.TempDir = v
	}
	if v := os.Getenv("MAX_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return s, fmt.Errorf("invalid MAX_WORKERS %q: %w", v, err)
		}
		s.MaxWorkers = n
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		s.LogLevel = v
	}

	if err := validator.New().Struct(s); err != nil {
		return s, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// TargetAspect returns width/height as a single ratio (9:16 -> 0.5625).
func (s Settings) TargetAspect() float64 {
	return float64(s.TargetAspectX) / float64(s.TargetAspectY)
}

// EnsureDirectories creates the upload/output/temp directories.
func (s Settings) EnsureDirectories() error {
	for _, dir := range []string{s.UploadDir, s.OutputDir, s.TempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func parseAspect(v string) (int, int, error) {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid TARGET_ASPECT_RATIO %q, expected W:H", v)
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid TARGET_ASPECT_RATIO %q: %w", v, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid TARGET_ASPECT_RATIO %q: %w", v, err)
	}
	if x <= 0 || y <= 0 {
		return 0, 0, fmt.Errorf("invalid TARGET_ASPECT_RATIO %q: dimensions must be positive", v)
	}
	return x, y, nil
}
