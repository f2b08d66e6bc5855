package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"SampleFinder/core/audio"
	"SampleFinder/core/library"
	"SampleFinder/core/similarity"
	"SampleFinder/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedExtractor struct{ features audio.Features }

func (f fixedExtractor) Extract(context.Context, []byte) audio.Features { return f.features }

type failingBlobs struct{ storage.BlobStore }

func (failingBlobs) Store(context.Context, string, []byte) error { return errors.New("disk full") }

func newPipeline(t *testing.T, features audio.Features) (*Pipeline, *library.Store, *storage.FileBlobStore) {
	t.Helper()
	store := library.NewStore(library.NewMemoryDocumentStore())
	blobs, err := storage.NewFileBlobStore(t.TempDir())
	require.NoError(t, err)
	return NewPipeline(store, fixedExtractor{features}, nil, blobs), store, blobs
}

func TestIngest(t *testing.T) {
	ctx := context.Background()
	centroid := 450.0
	p, store, blobs := newPipeline(t, audio.Features{DurationMs: 320, RMS: 0.4, SpectralCentroid: &centroid})

	asset, err := p.Ingest(ctx, RawFile{
		Filename: "Kick_Hard.wav",
		Tags:     []string{" drum ", "", "drum", "808"},
		Data:     []byte("not really audio"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Kick_Hard", asset.Title)
	assert.Equal(t, ContentHash([]byte("not really audio")), asset.ContentHash)
	assert.Len(t, asset.ContentHash, 64)
	assert.Equal(t, []string{"drum", "808"}, asset.Tags)
	assert.Equal(t, "kick_hard drum 808 very-short one-shot loud punchy dark bass low", asset.Descriptor)
	assert.Equal(t, similarity.DeterministicEmbedding(asset.Descriptor), asset.Embedding)

	stored, err := blobs.Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("not really audio"), stored)

	got, err := store.Asset(ctx, asset.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, asset.Descriptor, got.Descriptor)
}

func TestIngest_UndecodableAudioStillIngests(t *testing.T) {
	store := library.NewStore(library.NewMemoryDocumentStore())
	p := NewPipeline(store, audio.NewExtractor(audio.WAVDecoder{}), nil, nil)

	asset, err := p.Ingest(context.Background(), RawFile{Filename: "mystery.bin", Title: "Mystery", Data: []byte{1, 2, 3}})
	require.NoError(t, err)

	assert.Equal(t, "Mystery", asset.Title)
	assert.Zero(t, asset.DurationMs)
	assert.Zero(t, asset.RMS)
	assert.Nil(t, asset.SpectralCentroid)
	assert.Equal(t, "mystery very-short one-shot quiet soft", asset.Descriptor)
	assert.Len(t, asset.Embedding, similarity.Dimensions)
}

func TestIngest_DedupeByHash(t *testing.T) {
	ctx := context.Background()
	p, store, _ := newPipeline(t, audio.Features{DurationMs: 1000})
	p.DedupeByHash = true

	first, err := p.Ingest(ctx, RawFile{Filename: "a.wav", Data: []byte("same")})
	require.NoError(t, err)
	second, err := p.Ingest(ctx, RawFile{Filename: "b.wav", Data: []byte("same")})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assets, err := store.Assets(ctx)
	require.NoError(t, err)
	assert.Len(t, assets, 1)
}

func TestIngest_DedupeByHashConcurrent(t *testing.T) {
	ctx := context.Background()
	p, store, blobs := newPipeline(t, audio.Features{DurationMs: 1000})
	p.DedupeByHash = true

	var wg sync.WaitGroup
	ids := make([]string, 6)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			asset, err := p.Ingest(ctx, RawFile{Filename: "loop.wav", Data: []byte("same bytes")})
			if assert.NoError(t, err) {
				ids[i] = asset.ID
			}
		}(i)
	}
	wg.Wait()

	assets, err := store.Assets(ctx)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	for _, id := range ids {
		assert.Equal(t, assets[0].ID, id)
	}

	objects, err := blobs.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, objects, 1, "losing writers remove their blobs")
	assert.Equal(t, storage.ObjectKey(assets[0].ID), objects[0].Key)
}

func TestIngest_DuplicatesAllowedByDefault(t *testing.T) {
	ctx := context.Background()
	p, store, _ := newPipeline(t, audio.Features{DurationMs: 1000})

	_, err := p.Ingest(ctx, RawFile{Filename: "a.wav", Data: []byte("same")})
	require.NoError(t, err)
	_, err = p.Ingest(ctx, RawFile{Filename: "b.wav", Data: []byte("same")})
	require.NoError(t, err)

	assets, err := store.Assets(ctx)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, assets[0].ContentHash, assets[1].ContentHash)
}

func TestIngest_BlobFailureAddsNothing(t *testing.T) {
	ctx := context.Background()
	store := library.NewStore(library.NewMemoryDocumentStore())
	p := NewPipeline(store, fixedExtractor{}, nil, failingBlobs{})

	_, err := p.Ingest(ctx, RawFile{Filename: "a.wav", Data: []byte("x")})
	assert.Error(t, err)

	assets, err := store.Assets(ctx)
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestIngest_EmptyFileDegrades(t *testing.T) {
	store := library.NewStore(library.NewMemoryDocumentStore())
	p := NewPipeline(store, audio.NewExtractor(audio.WAVDecoder{}), nil, nil)

	asset, err := p.Ingest(context.Background(), RawFile{Filename: "blank.wav"})
	require.NoError(t, err)

	assert.Zero(t, asset.DurationMs)
	assert.Zero(t, asset.RMS)
	assert.Nil(t, asset.SpectralCentroid)
	assert.Equal(t, ContentHash(nil), asset.ContentHash)
	assert.Equal(t, "blank very-short one-shot quiet soft", asset.Descriptor)
}

func TestRetag(t *testing.T) {
	ctx := context.Background()
	p, _, _ := newPipeline(t, audio.Features{DurationMs: 5000, RMS: 0.2})

	asset, err := p.Ingest(ctx, RawFile{Filename: "Pad.wav", Tags: []string{"pad"}, Data: []byte("pad")})
	require.NoError(t, err)
	assert.Equal(t, "pad pad medium loop medium volume", asset.Descriptor)

	updated, err := p.Retag(ctx, asset.ID, []string{"ambient", "warm"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ambient", "warm"}, updated.Tags)
	assert.Equal(t, "pad ambient warm medium loop medium volume", updated.Descriptor)
	assert.Equal(t, similarity.DeterministicEmbedding(updated.Descriptor), updated.Embedding)

	_, err = p.Retag(ctx, "ghost", nil)
	assert.ErrorIs(t, err, library.ErrNotFound)
}

func TestDefaultTitle(t *testing.T) {
	assert.Equal(t, "kick.01", DefaultTitle("/samples/kick.01.wav"))
	assert.Equal(t, "snare", DefaultTitle("snare"))
}
