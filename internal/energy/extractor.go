// Package energy derives the loudness/pitch-variation sample series the
// reconciler uses as its cheap engagement signal.
package energy

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os/exec"

	"github.com/sirupsen/logrus"

	"github.com/Pruthvirajj2/pulsepoint-ai/internal/models"
)

const (
	// sampleRate is the decode rate for analysis audio. Speech content
	// carries no useful energy information above 8kHz.
	sampleRate = 16000
	// subWindow is the pitch-proxy analysis frame inside each energy
	// sample interval.
	subWindow = 0.05 // seconds
)

// Extractor decodes the source audio through ffmpeg and computes the
// fixed-interval EnergySample series.
type Extractor struct {
	interval float64
	log      *logrus.Entry
}

// New builds an Extractor emitting one sample every interval seconds.
func New(interval float64, log *logrus.Logger) *Extractor {
	return &Extractor{interval: interval, log: log.WithField("component", "energy")}
}

// Extract runs ffmpeg to decode the file's audio track to mono 16kHz PCM
// and analyzes it. Fails when the source has no readable audio.
func (e *Extractor) Extract(ctx context.Context, mediaPath string) (models.EnergySeries, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-i", mediaPath,
		"-vn",
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-f", "s16le",
		"pipe:1",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg audio decode: %w", err)
	}

	pcm, readErr := readPCM(bufio.NewReaderSize(stdout, 1<<16))
	waitErr := cmd.Wait()
	if waitErr != nil {
		return nil, fmt.Errorf("ffmpeg audio decode failed for %s: %w", mediaPath, waitErr)
	}
	if readErr != nil {
		return nil, fmt.Errorf("read decoded audio: %w", readErr)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("no audio samples decoded from %s", mediaPath)
	}

	series := Analyze(pcm, sampleRate, e.interval)
	e.log.WithFields(logrus.Fields{
		"media":   mediaPath,
		"samples": len(series),
	}).Info("Audio energy extraction complete")
	return series, nil
}

func readPCM(r io.Reader) ([]int16, error) {
	var pcm []int16
	buf := make([]byte, 1<<16)
	carry := 0
	for {
		n, err := r.Read(buf[carry:])
		n += carry
		pairs := n / 2
		for i := 0; i < pairs; i++ {
			pcm = append(pcm, int16(binary.LittleEndian.Uint16(buf[i*2:])))
		}
		carry = n % 2
		if carry == 1 {
			buf[0] = buf[n-1]
		}
		if err == io.EOF {
			return pcm, nil
		}
		if err != nil {
			return pcm, err
		}
	}
}

// Analyze converts raw PCM into the energy series. Loudness is windowed
// RMS in [0,1]; the pitch proxy is zero-crossing-rate movement across
// sub-windows, which rises when the speaker's intonation moves and stays
// near zero for monotone delivery.
func Analyze(pcm []int16, rate int, interval float64) models.EnergySeries {
	windowSamples := int(interval * float64(rate))
	if windowSamples <= 0 {
		windowSamples = rate / 2
	}
	subSamples := int(subWindow * float64(rate))
	if subSamples <= 0 {
		subSamples = 1
	}

	var series models.EnergySeries
	for offset := 0; offset < len(pcm); offset += windowSamples {
		end := offset + windowSamples
		if end > len(pcm) {
			end = len(pcm)
		}
		window := pcm[offset:end]

		series = append(series, models.EnergySample{
			Timestamp:     float64(offset) / float64(rate),
			Loudness:      rms(window),
			PitchVariance: pitchMovement(window, subSamples, rate),
		})
	}
	return series
}

// rms returns the root-mean-square amplitude normalized to [0,1].
func rms(window []int16) float64 {
	if len(window) == 0 {
		return 0
	}
	var sum float64
	for _, s := range window {
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(window)))
}

// pitchMovement estimates intonation movement inside a window: the
// zero-crossing rate of each sub-window approximates dominant frequency,
// and the mean absolute change between consecutive sub-windows measures
// how much the pitch moved.
func pitchMovement(window []int16, subSamples, rate int) float64 {
	var rates []float64
	for off := 0; off+subSamples <= len(window); off += subSamples {
		sub := window[off : off+subSamples]
		crossings := 0
		for i := 1; i < len(sub); i++ {
			if (sub[i-1] < 0) != (sub[i] < 0) {
				crossings++
			}
		}
		// Crossings per second; a pure tone at f crosses zero 2f times.
		rates = append(rates, float64(crossings)*float64(rate)/float64(subSamples)/2)
	}
	if len(rates) < 2 {
		return 0
	}
	var movement float64
	for i := 1; i < len(rates); i++ {
		movement += math.Abs(rates[i] - rates[i-1])
	}
	return movement / float64(len(rates)-1)
}
