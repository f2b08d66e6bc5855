package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"time"
)

const ffmpegDecodeTimeout = 2 * time.Minute

// FFmpegDecoder decodes any format ffmpeg understands by piping the bytes
// through `ffmpeg -f f32le`. The signal is downmixed to mono.
type FFmpegDecoder struct {
	ffmpegPath string
	sampleRate int
}

// NewFFmpegDecoder creates a new FFmpegDecoder.
func NewFFmpegDecoder(ffmpegPath string, sampleRate int) *FFmpegDecoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	return &FFmpegDecoder{ffmpegPath: ffmpegPath, sampleRate: sampleRate}
}

// Decode implements Decoder.
func (p *FFmpegDecoder) Decode(ctx context.Context, data []byte) (*PCM, error) {
	if len(data) == 0 {
		return nil, ErrUnsupportedFormat
	}
	ctx, cancel := context.WithTimeout(ctx, ffmpegDecodeTimeout)
	defer cancel()

	args := []string{
		"-hide_banner", "-v", "error",
		"-i", "pipe:0",
		"-ac", "1",
		"-ar", strconv.Itoa(p.sampleRate),
		"-f", "f32le",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode failed: %w\nFFmpeg Error: %s", err, stderr.String())
	}

	return pcmFromF32LE(out.Bytes(), p.sampleRate)
}

func pcmFromF32LE(raw []byte, sampleRate int) (*PCM, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("unexpected f32le byte length %d", len(raw))
	}
	samples := make([]float64, len(raw)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		samples[i] = float64(math.Float32frombits(bits))
	}
	return &PCM{Samples: samples, SampleRate: sampleRate}, nil
}
