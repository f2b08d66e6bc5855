package audio

import (
	"context"
	"math"

	"SampleFinder/logger"
)

// Features is the compact numeric summary of one audio asset.
// SpectralCentroid is nil when frequency analysis was not possible.
type Features struct {
	DurationMs       int64    `json:"durationMs"`
	RMS              float64  `json:"rms"`
	SpectralCentroid *float64 `json:"spectralCentroid,omitempty"`
}

// Extractor derives Features from raw audio bytes.
type Extractor struct {
	decoder   Decoder
	frameSize int
}

// NewExtractor creates an Extractor. A nil decoder means WAV only.
func NewExtractor(decoder Decoder) *Extractor {
	if decoder == nil {
		decoder = WAVDecoder{}
	}
	return &Extractor{decoder: decoder, frameSize: defaultFrameSize}
}

// Extract never fails: undecodable input yields zeroed features.
func (e *Extractor) Extract(ctx context.Context, data []byte) Features {
	pcm, err := e.decoder.Decode(ctx, data)
	if err != nil {
		logger.Warn("audio decode failed, using empty features",
			logger.Int("bytes", len(data)),
			logger.ErrorField(err))
		return Features{}
	}
	return FeaturesFromPCM(pcm, e.frameSize)
}

// FeaturesFromPCM computes duration, RMS and centroid of a decoded signal.
func FeaturesFromPCM(pcm *PCM, frameSize int) Features {
	if pcm == nil || len(pcm.Samples) == 0 {
		return Features{}
	}
	f := Features{
		DurationMs: pcm.DurationMs(),
		RMS:        RMS(pcm.Samples),
	}
	if c, ok := SpectralCentroid(pcm.Samples, pcm.SampleRate, frameSize); ok {
		f.SpectralCentroid = &c
	}
	return f
}

// RMS returns the root-mean-square amplitude clamped to [0, 1].
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSquares float64
	for _, s := range samples {
		sumSquares += s * s
	}
	rms := math.Sqrt(sumSquares / float64(len(samples)))
	if math.IsNaN(rms) {
		return 0
	}
	return math.Min(rms, 1)
}
