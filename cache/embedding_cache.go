package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"SampleFinder/core/similarity"
	"SampleFinder/logger"

	"github.com/redis/go-redis/v9"
)

// EmbeddingKeyPrefix namespaces cached vectors.
const EmbeddingKeyPrefix = "samplefinder:embedding:"

const defaultEmbeddingTTL = 30 * 24 * time.Hour

// EmbeddingKey returns the cache key of a descriptor.
func EmbeddingKey(descriptor string) string {
	sum := sha256.Sum256([]byte(descriptor))
	return EmbeddingKeyPrefix + hex.EncodeToString(sum[:])
}

// EmbeddingCache serves repeated descriptors from Redis. Only vectors produced
// by the remote provider are stored; cache failures fall through to the inner embedder.
type EmbeddingCache struct {
	client redis.UniversalClient
	inner  similarity.SourceEmbedder
	ttl    time.Duration
}

func NewEmbeddingCache(client redis.UniversalClient, inner similarity.SourceEmbedder, ttl time.Duration) *EmbeddingCache {
	if ttl <= 0 {
		ttl = defaultEmbeddingTTL
	}
	return &EmbeddingCache{client: client, inner: inner, ttl: ttl}
}

// Embed implements similarity.EmbeddingProvider.
func (c *EmbeddingCache) Embed(ctx context.Context, descriptor string) ([]float64, error) {
	vec, _, err := c.EmbedWithSource(ctx, descriptor)
	return vec, err
}

// EmbedWithSource implements similarity.SourceEmbedder.
func (c *EmbeddingCache) EmbedWithSource(ctx context.Context, descriptor string) ([]float64, similarity.Source, error) {
	key := EmbeddingKey(descriptor)

	cached, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if vec, decodeErr := decodeVector(cached); decodeErr == nil {
			return vec, similarity.SourceCache, nil
		}
		logger.Warn("dropping malformed cached embedding", logger.String("key", key))
		c.client.Del(ctx, key)
	case errors.Is(err, redis.Nil):
	default:
		logger.Warn("embedding cache read failed", logger.String("key", key), logger.ErrorField(err))
	}

	vec, source, err := c.inner.EmbedWithSource(ctx, descriptor)
	if err != nil {
		return nil, source, err
	}
	if source == similarity.SourceRemote {
		if err := c.client.Set(ctx, key, encodeVector(vec), c.ttl).Err(); err != nil {
			logger.Warn("embedding cache write failed", logger.String("key", key), logger.ErrorField(err))
		}
	}
	return vec, source, nil
}

func encodeVector(vec []float64) []byte {
	buf := make([]byte, 8*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func decodeVector(data []byte) ([]float64, error) {
	if len(data) != 8*similarity.Dimensions {
		return nil, fmt.Errorf("cached vector has %d bytes", len(data))
	}
	vec := make([]float64, similarity.Dimensions)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return vec, nil
}
