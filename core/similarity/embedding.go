package similarity

import (
	"context"
	"errors"
	"math"
	"unicode/utf16"

	"SampleFinder/logger"
)

// Dimensions is the fixed embedding length.
const Dimensions = 1536

// ErrEmbeddingDisabled signals that a remote embedding service is not available.
var ErrEmbeddingDisabled = errors.New("embedding service disabled")

// Source names the strategy that produced an embedding.
type Source string

const (
	SourceRemote        Source = "remote"
	SourceDeterministic Source = "deterministic"
	SourceCache         Source = "cache"
)

// EmbeddingProvider maps a descriptor to a unit-length vector of Dimensions floats.
type EmbeddingProvider interface {
	Embed(ctx context.Context, descriptor string) ([]float64, error)
}

// DeterministicEmbedder derives a reproducible pseudo-random vector from the
// descriptor text. It needs no network and never fails.
//
// Descriptors whose UTF-16 code units sum to the same seed map to the same
// vector; that loss of precision is accepted.
type DeterministicEmbedder struct{}

// Embed implements EmbeddingProvider.
func (DeterministicEmbedder) Embed(_ context.Context, descriptor string) ([]float64, error) {
	return DeterministicEmbedding(descriptor), nil
}

// DeterministicEmbedding computes frac(sin(seed*(i+1))*10000) for every index
// and normalizes the result.
func DeterministicEmbedding(descriptor string) []float64 {
	var seed int64
	for _, unit := range utf16.Encode([]rune(descriptor)) {
		seed += int64(unit)
	}

	vec := make([]float64, Dimensions)
	for i := range vec {
		val := math.Sin(float64(seed)*float64(i+1)) * 10000
		vec[i] = val - math.Floor(val)
	}
	return Normalize(vec)
}

// Normalize scales v to unit length in place. A zero vector is returned as is.
func Normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	mag := math.Sqrt(sum)
	if mag == 0 {
		return v
	}
	for i := range v {
		v[i] /= mag
	}
	return v
}

// SourceEmbedder is an EmbeddingProvider that also reports where a vector came from.
type SourceEmbedder interface {
	EmbeddingProvider
	EmbedWithSource(ctx context.Context, descriptor string) ([]float64, Source, error)
}

// FallbackEmbedder tries the remote provider first and falls back to the
// deterministic strategy on any failure, so ingestion is never blocked.
type FallbackEmbedder struct {
	remote EmbeddingProvider
}

// NewFallbackEmbedder wraps remote. A nil remote always uses the deterministic path.
func NewFallbackEmbedder(remote EmbeddingProvider) *FallbackEmbedder {
	return &FallbackEmbedder{remote: remote}
}

// Embed implements EmbeddingProvider. The returned error is always nil.
func (f *FallbackEmbedder) Embed(ctx context.Context, descriptor string) ([]float64, error) {
	vec, _, err := f.EmbedWithSource(ctx, descriptor)
	return vec, err
}

// EmbedWithSource implements SourceEmbedder.
func (f *FallbackEmbedder) EmbedWithSource(ctx context.Context, descriptor string) ([]float64, Source, error) {
	if f.remote != nil {
		vec, err := f.remote.Embed(ctx, descriptor)
		switch {
		case err == nil && len(vec) == Dimensions:
			return Normalize(vec), SourceRemote, nil
		case errors.Is(err, ErrEmbeddingDisabled):
			logger.Debug("remote embeddings disabled, using deterministic embedding")
		case err != nil:
			logger.Warn("remote embedding failed, using deterministic embedding", logger.ErrorField(err))
		default:
			logger.Warn("remote embedding has wrong dimensions, using deterministic embedding",
				logger.Int("dimensions", len(vec)))
		}
	}
	return DeterministicEmbedding(descriptor), SourceDeterministic, nil
}
