package app

import (
	"context"
	"path/filepath"
	"testing"

	"SampleFinder/cache"
	"SampleFinder/config"
	"SampleFinder/core/ingest"
	"SampleFinder/core/similarity"
	"SampleFinder/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offlineConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		LibraryDir: filepath.Join(dir, "library"),
		BlobDir:    filepath.Join(dir, "blobs"),
		FFmpegPath: "ffmpeg",
	}
}

func TestNew_Offline(t *testing.T) {
	a, err := New(context.Background(), offlineConfig(t))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, config.Capabilities{}, a.Capabilities)
	assert.Nil(t, a.Tokens)
	assert.Nil(t, a.Migrator)
	assert.Nil(t, a.Webhooks)
	assert.IsType(t, &storage.FileBlobStore{}, a.Blobs)
	assert.IsType(t, &similarity.FallbackEmbedder{}, a.Embedder)

	_, source, err := a.Embedder.EmbedWithSource(context.Background(), "kick 808")
	require.NoError(t, err)
	assert.Equal(t, similarity.SourceDeterministic, source)

	asset, err := a.Pipeline.Ingest(context.Background(), ingest.RawFile{Filename: "kick.wav", Data: []byte("not really audio")})
	require.NoError(t, err)
	again, err := a.Pipeline.Ingest(context.Background(), ingest.RawFile{Filename: "copy.wav", Data: []byte("not really audio")})
	require.NoError(t, err)
	assert.Equal(t, asset.ID, again.ID)
}

func TestNew_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := offlineConfig(t)
	cfg.RedisHost = mr.Host()
	cfg.RedisPort = mr.Port()

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.True(t, a.Capabilities.Cache)
	assert.NotNil(t, a.Redis)
	assert.IsType(t, &cache.EmbeddingCache{}, a.Embedder)
}

func TestNew_UnreachableServicesAreDisabled(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.RedisHost = "127.0.0.1"
	cfg.RedisPort = "1"
	cfg.DBHost = "127.0.0.1"
	cfg.DBPort = "1"
	cfg.DBUser = "root"
	cfg.DBName = "samplefinder"

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, a.Capabilities.Cache)
	assert.False(t, a.Capabilities.RemoteStore)
	assert.Nil(t, a.Redis)
	assert.Nil(t, a.DB)
}
