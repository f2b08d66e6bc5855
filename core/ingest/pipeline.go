// Package ingest turns raw audio files into library assets.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"SampleFinder/core/audio"
	"SampleFinder/core/library"
	"SampleFinder/core/similarity"
	"SampleFinder/logger"
	"SampleFinder/model"
	"SampleFinder/storage"

	"github.com/google/uuid"
)

// RawFile is one uploaded or dropped audio file.
type RawFile struct {
	Filename string
	Title    string // defaults to the filename without extension
	Tags     []string
	Data     []byte
}

// FeatureExtractor is satisfied by audio.Extractor.
type FeatureExtractor interface {
	Extract(ctx context.Context, data []byte) audio.Features
}

// Pipeline runs hash, extraction, descriptor, embedding, blob storage and
// library insertion for each file.
type Pipeline struct {
	library   *library.Store
	extractor FeatureExtractor
	embedder  similarity.EmbeddingProvider
	blobs     storage.BlobStore

	// DedupeByHash returns the existing asset instead of adding a second copy
	// of identical bytes.
	DedupeByHash bool
}

// NewPipeline wires a pipeline. A nil embedder uses the deterministic strategy
// and a nil blob store skips raw byte storage.
func NewPipeline(store *library.Store, extractor FeatureExtractor, embedder similarity.EmbeddingProvider, blobs storage.BlobStore) *Pipeline {
	if extractor == nil {
		extractor = audio.NewExtractor(nil)
	}
	if embedder == nil {
		embedder = similarity.DeterministicEmbedder{}
	}
	return &Pipeline{
		library:   store,
		extractor: extractor,
		embedder:  embedder,
		blobs:     blobs,
	}
}

// ContentHash returns the hex SHA-256 of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DefaultTitle strips the final extension from a filename.
func DefaultTitle(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// NormalizeTags trims, drops empties and duplicates, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Ingest adds file to the library. Feature extraction and embedding never fail
// the call; only storage errors do.
func (p *Pipeline) Ingest(ctx context.Context, file RawFile) (*model.Asset, error) {
	start := time.Now()
	hash := ContentHash(file.Data)

	if p.DedupeByHash {
		existing, err := p.library.AssetByContentHash(ctx, hash)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			logger.Info("asset already in library",
				logger.String("asset_id", existing.ID),
				logger.String("filename", file.Filename))
			return existing, nil
		}
	}

	features := p.extractor.Extract(ctx, file.Data)
	tags := NormalizeTags(file.Tags)
	descriptor := similarity.BuildDescriptor(file.Filename, tags, features)
	embedding := p.embed(ctx, descriptor)

	title := strings.TrimSpace(file.Title)
	if title == "" {
		title = DefaultTitle(file.Filename)
	}

	asset := model.Asset{
		ID:               uuid.NewString(),
		Title:            title,
		OriginalFilename: file.Filename,
		ContentHash:      hash,
		DurationMs:       features.DurationMs,
		RMS:              features.RMS,
		SpectralCentroid: features.SpectralCentroid,
		Descriptor:       descriptor,
		Embedding:        embedding,
		Tags:             tags,
	}

	if p.blobs != nil {
		if err := p.blobs.Store(ctx, asset.ID, file.Data); err != nil {
			return nil, fmt.Errorf("failed to store audio: %w", err)
		}
	}

	var added model.Asset
	var err error
	if p.DedupeByHash {
		// another worker may have added the same bytes since the check above
		var isNew bool
		added, isNew, err = p.library.AddAssetIfNewHash(ctx, asset)
		if err == nil && !isNew {
			p.removeBlob(ctx, asset.ID)
			logger.Info("asset already in library",
				logger.String("asset_id", added.ID),
				logger.String("filename", file.Filename))
			return &added, nil
		}
	} else {
		added, err = p.library.AddAsset(ctx, asset)
	}
	if err != nil {
		p.removeBlob(ctx, asset.ID)
		return nil, err
	}

	logger.Info("asset ingested",
		logger.String("asset_id", added.ID),
		logger.String("filename", file.Filename),
		logger.Int64("duration_ms", added.DurationMs),
		logger.Duration("took", time.Since(start)))
	return &added, nil
}

func (p *Pipeline) removeBlob(ctx context.Context, id string) {
	if p.blobs == nil {
		return
	}
	if err := p.blobs.Delete(ctx, id); err != nil {
		logger.Warn("failed to remove orphaned blob", logger.String("asset_id", id), logger.ErrorField(err))
	}
}

// Retag replaces an asset's tags and rebuilds its descriptor and embedding
// from the stored features.
func (p *Pipeline) Retag(ctx context.Context, id string, tags []string) (*model.Asset, error) {
	current, err := p.library.Asset(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("asset %s: %w", id, library.ErrNotFound)
	}

	tags = NormalizeTags(tags)
	features := audio.Features{
		DurationMs:       current.DurationMs,
		RMS:              current.RMS,
		SpectralCentroid: current.SpectralCentroid,
	}
	descriptor := similarity.BuildDescriptor(current.OriginalFilename, tags, features)

	updated, err := p.library.UpdateAsset(ctx, id, model.AssetPatch{
		Tags:       tags,
		Descriptor: &descriptor,
		Embedding:  p.embed(ctx, descriptor),
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (p *Pipeline) embed(ctx context.Context, descriptor string) []float64 {
	vec, err := p.embedder.Embed(ctx, descriptor)
	if err != nil || len(vec) != similarity.Dimensions {
		logger.Warn("embedding unavailable, using deterministic embedding", logger.ErrorField(err))
		return similarity.DeterministicEmbedding(descriptor)
	}
	return vec
}
