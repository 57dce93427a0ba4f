// Package ffmpeg wraps the ffmpeg/ffprobe binaries for probing, audio
// extraction, and clip rendering.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Pruthvirajj2/pulsepoint-ai/internal/models"
)

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

// Probe returns duration, dimensions, and frame rate for a video file.
func Probe(ctx context.Context, filePath string) (models.VideoInfo, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return models.VideoInfo{}, fmt.Errorf("ffprobe failed for %s: %w: %s", filePath, err, stderr.String())
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return models.VideoInfo{}, fmt.Errorf("unmarshal ffprobe output: %w", err)
	}

	info := models.VideoInfo{}
	if out.Format.Duration != "" {
		d, err := strconv.ParseFloat(out.Format.Duration, 64)
		if err != nil {
			return info, fmt.Errorf("parse duration %q: %w", out.Format.Duration, err)
		}
		info.Duration = d
	}
	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}
		info.Width = s.Width
		info.Height = s.Height
		info.FrameRate = parseFrameRate(s.RFrameRate)
		break
	}
	if info.Duration == 0 {
		return info, fmt.Errorf("no duration in ffprobe output for %s", filePath)
	}
	if info.Width == 0 || info.Height == 0 {
		return info, fmt.Errorf("no video stream found in %s", filePath)
	}
	if info.FrameRate == 0 {
		info.FrameRate = 30
	}
	return info, nil
}

// parseFrameRate handles ffprobe's rational form ("30000/1001").
func parseFrameRate(v string) float64 {
	parts := strings.SplitN(v, "/", 2)
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	if len(parts) == 1 {
		return num
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0
	}
	return num / den
}

// ExtractAudio writes the file's audio track to a mono 16kHz wav, the
// format the transcription provider wants.
func ExtractAudio(ctx context.Context, inputFile, outputFile string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-i", inputFile,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		outputFile,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg audio extraction failed: %w: %s", err, stderr.String())
	}
	return nil
}

// RenderSpec carries everything one clip render needs.
type RenderSpec struct {
	InputFile  string
	OutputFile string
	Start      float64
	Duration   float64
	CropPath   models.CropPath
	CropWidth  float64
	CropHeight float64
	OutWidth   int
	OutHeight  int
	Headline   string
	SRTFile    string // optional captions to burn in
	TempDir    string
}

// RenderClip cuts the interval out of the source, applies the per-frame
// crop path via a sendcmd script, scales to the vertical output size,
// overlays the headline for the first seconds, and burns in captions when
// an SRT file is supplied.
func RenderClip(ctx context.Context, spec RenderSpec) error {
	cmdFile, err := writeCropCommands(spec)
	if err != nil {
		return err
	}
	defer os.Remove(cmdFile)

	filter := buildFilter(spec, cmdFile)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-ss", fmt.Sprintf("%.3f", spec.Start),
		"-t", fmt.Sprintf("%.3f", spec.Duration),
		"-i", spec.InputFile,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "fast",
		"-c:a", "aac",
		spec.OutputFile,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg render failed: %w: %s", err, stderr.String())
	}
	return nil
}

// writeCropCommands emits a sendcmd script moving the crop window along
// the planned path. Times are relative to the cut clip, not the source.
func writeCropCommands(spec RenderSpec) (string, error) {
	f, err := os.CreateTemp(spec.TempDir, "cropcmds-*.txt")
	if err != nil {
		return "", fmt.Errorf("create crop command file: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, pt := range spec.CropPath {
		t := pt.FrameTime - spec.Start
		if t < 0 {
			t = 0
		}
		x := pt.CenterX - spec.CropWidth/2
		y := pt.CenterY - spec.CropHeight/2
		fmt.Fprintf(&b, "%.3f crop@track x %.1f, crop@track y %.1f;\n", t, x, y)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write crop command file: %w", err)
	}
	return f.Name(), nil
}

func buildFilter(spec RenderSpec, cmdFile string) string {
	initX, initY := 0.0, 0.0
	if len(spec.CropPath) > 0 {
		initX = spec.CropPath[0].CenterX - spec.CropWidth/2
		initY = spec.CropPath[0].CenterY - spec.CropHeight/2
	}

	parts := []string{
		fmt.Sprintf("sendcmd=f='%s'", escapeFilterPath(cmdFile)),
		fmt.Sprintf("crop@track=w=%.0f:h=%.0f:x=%.1f:y=%.1f", spec.CropWidth, spec.CropHeight, initX, initY),
		fmt.Sprintf("scale=%d:%d", spec.OutWidth, spec.OutHeight),
	}
	if spec.Headline != "" {
		parts = append(parts, fmt.Sprintf(
			"drawtext=text='%s':fontsize=64:fontcolor=white:borderw=3:bordercolor=black:x=(w-text_w)/2:y=120:enable='lt(t,3)'",
			escapeDrawtext(spec.Headline)))
	}
	if spec.SRTFile != "" {
		parts = append(parts, fmt.Sprintf("subtitles='%s'", escapeFilterPath(spec.SRTFile)))
	}
	return strings.Join(parts, ",")
}

// escapeDrawtext escapes the characters drawtext treats specially.
func escapeDrawtext(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return r.Replace(s)
}

// escapeFilterPath escapes a filename for use inside a filter argument.
func escapeFilterPath(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
	)
	return r.Replace(s)
}
