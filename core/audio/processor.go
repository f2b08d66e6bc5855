package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat is returned by a Decoder that does not recognize the input.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// PCM is a decoded mono signal with samples normalized to [-1, 1].
type PCM struct {
	Samples    []float64
	SampleRate int
}

// DurationMs returns the signal length in milliseconds, rounded.
func (p *PCM) DurationMs() int64 {
	if p == nil || p.SampleRate <= 0 {
		return 0
	}
	return int64(float64(len(p.Samples))*1000/float64(p.SampleRate) + 0.5)
}

// Decoder turns raw file bytes into a mono PCM signal.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (*PCM, error)
}

// ChainDecoder tries each decoder in order and returns the first success.
type ChainDecoder []Decoder

// Decode implements Decoder.
func (c ChainDecoder) Decode(ctx context.Context, data []byte) (*PCM, error) {
	var errs []string
	for _, d := range c {
		if d == nil {
			continue
		}
		pcm, err := d.Decode(ctx, data)
		if err == nil {
			return pcm, nil
		}
		errs = append(errs, err.Error())
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return nil, ErrUnsupportedFormat
	}
	return nil, fmt.Errorf("all decoders failed: %s", strings.Join(errs, "; "))
}
