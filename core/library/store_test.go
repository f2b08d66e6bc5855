package library

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"SampleFinder/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(NewMemoryDocumentStore())
}

func addAsset(t *testing.T, s *Store, title string) model.Asset {
	t.Helper()
	a, err := s.AddAsset(context.Background(), model.Asset{Title: title, ContentHash: "hash-" + title, DurationMs: 1000})
	require.NoError(t, err)
	return a
}

func TestAddAssetIfNewHash(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)

	first, added, err := s.AddAssetIfNewHash(ctx, model.Asset{Title: "kick", ContentHash: "same"})
	require.NoError(t, err)
	assert.True(t, added)
	assert.NotEmpty(t, first.ID)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, added, err := s.AddAssetIfNewHash(ctx, model.Asset{Title: "copy", ContentHash: "same"})
			assert.NoError(t, err)
			assert.False(t, added)
			ids[i] = got.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, first.ID, id)
	}
	assets, err := s.Assets(ctx)
	require.NoError(t, err)
	assert.Len(t, assets, 1)
	engagement, err := s.Engagement(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, engagement.AssetsAdded)
}

func TestAddAsset(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)

	a := addAsset(t, s, "kick")

	assert.NotEmpty(t, a.ID)
	assert.NotZero(t, a.CreatedAt)
	assert.Equal(t, []string{}, a.Tags)

	got, err := s.Asset(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "kick", got.Title)

	byHash, err := s.AssetByContentHash(ctx, "hash-kick")
	require.NoError(t, err)
	require.NotNil(t, byHash)
	assert.Equal(t, a.ID, byHash.ID)

	missing, err := s.Asset(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	e, err := s.Engagement(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, e.AssetsAdded)
}

func TestUpdateAsset(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)
	a := addAsset(t, s, "kick")

	title := "Kick 2"
	updated, err := s.UpdateAsset(ctx, a.ID, model.AssetPatch{Title: &title, Tags: []string{"drum"}})
	require.NoError(t, err)
	assert.Equal(t, "Kick 2", updated.Title)
	assert.Equal(t, []string{"drum"}, updated.Tags)
	assert.Equal(t, a.ContentHash, updated.ContentHash)

	_, err = s.UpdateAsset(ctx, "missing", model.AssetPatch{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAsset_CascadesToPalettesAndReceipts(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)
	kick := addAsset(t, s, "kick")
	snare := addAsset(t, s, "snare")

	p1, err := s.AddPalette(ctx, model.Palette{Name: "drums", AssetIDs: []string{kick.ID, snare.ID}})
	require.NoError(t, err)
	p2, err := s.AddPalette(ctx, model.Palette{Name: "kicks", AssetIDs: []string{kick.ID}})
	require.NoError(t, err)
	_, err = s.AddReceipt(ctx, model.Receipt{AssetID: kick.ID, SourceURL: "https://example.com/kick"})
	require.NoError(t, err)
	keep, err := s.AddReceipt(ctx, model.Receipt{AssetID: snare.ID})
	require.NoError(t, err)

	require.NoError(t, s.DeleteAsset(ctx, kick.ID))

	state, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, state.Assets, 1)
	assert.Equal(t, snare.ID, state.Assets[0].ID)

	got1, _ := s.Palette(ctx, p1.ID)
	got2, _ := s.Palette(ctx, p2.ID)
	assert.Equal(t, []string{snare.ID}, got1.AssetIDs)
	assert.Empty(t, got2.AssetIDs)

	require.Len(t, state.Receipts, 1)
	assert.Equal(t, keep.ID, state.Receipts[0].ID)

	assert.ErrorIs(t, s.DeleteAsset(ctx, kick.ID), ErrNotFound)
}

func TestAddAssetToPalette_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)
	a := addAsset(t, s, "kick")
	p, err := s.AddPalette(ctx, model.Palette{Name: "p"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		p, err = s.AddAssetToPalette(ctx, p.ID, a.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{a.ID}, p.AssetIDs)

	_, err = s.AddAssetToPalette(ctx, p.ID, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.AddAssetToPalette(ctx, "ghost", a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddPalette_DropsDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)
	a := addAsset(t, s, "a")
	b := addAsset(t, s, "b")

	p, err := s.AddPalette(ctx, model.Palette{Name: "p", AssetIDs: []string{a.ID, b.ID, a.ID}})
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, p.AssetIDs)

	notes := "warm"
	p, err = s.UpdatePalette(ctx, p.ID, model.PalettePatch{Notes: &notes, AssetIDs: []string{b.ID, b.ID}})
	require.NoError(t, err)
	assert.Equal(t, "warm", p.Notes)
	assert.Equal(t, []string{b.ID}, p.AssetIDs)

	e, err := s.Engagement(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, e.PalettesCreated)
}

func TestMovePaletteAsset(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)
	a := addAsset(t, s, "a")
	b := addAsset(t, s, "b")
	c := addAsset(t, s, "c")
	p, err := s.AddPalette(ctx, model.Palette{Name: "p", AssetIDs: []string{a.ID, b.ID, c.ID}})
	require.NoError(t, err)

	p, err = s.MovePaletteAsset(ctx, p.ID, c.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, p.AssetIDs)

	p, err = s.MovePaletteAsset(ctx, p.ID, c.ID, 99)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, p.AssetIDs)

	p, err = s.MovePaletteAsset(ctx, p.ID, a.ID, -4)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, p.AssetIDs)

	p, err = s.RemoveAssetFromPalette(ctx, p.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, c.ID}, p.AssetIDs)

	_, err = s.MovePaletteAsset(ctx, p.ID, b.ID, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReceipts(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)
	a := addAsset(t, s, "kick")

	r, err := s.AddReceipt(ctx, model.Receipt{
		AssetID:      a.ID,
		SourceURL:    "https://example.com",
		LicenseFlags: map[string]bool{model.LicenseRoyaltyFree: true},
	})
	require.NoError(t, err)

	got, err := s.ReceiptForAsset(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.LicenseFlags[model.LicenseRoyaltyFree])

	notes := "bought in 2024"
	r, err = s.UpdateReceipt(ctx, r.ID, model.ReceiptPatch{
		Notes:        &notes,
		LicenseFlags: map[string]bool{model.LicenseCommercialUse: true},
	})
	require.NoError(t, err)
	assert.Equal(t, notes, r.Notes)
	assert.Equal(t, map[string]bool{model.LicenseCommercialUse: true}, r.LicenseFlags)

	_, err = s.AddReceipt(ctx, model.Receipt{AssetID: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteReceipt(ctx, r.ID))
	assert.ErrorIs(t, s.DeleteReceipt(ctx, r.ID), ErrNotFound)

	none, err := s.ReceiptForAsset(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestUpdate_FailedMutationIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)
	addAsset(t, s, "kick")

	boom := errors.New("boom")
	err := s.Update(ctx, func(state *model.LocalState) error {
		state.Assets = nil
		state.Engagement.AssetsAdded = 100
		return boom
	})
	assert.ErrorIs(t, err, boom)

	state, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, state.Assets, 1)
	assert.Equal(t, 1, state.Engagement.AssetsAdded)
}

func TestSnapshotsDoNotAliasStoreState(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)
	addAsset(t, s, "kick")

	assets, err := s.Assets(ctx)
	require.NoError(t, err)
	assets[0].Title = "mutated"

	again, err := s.Assets(ctx)
	require.NoError(t, err)
	assert.Equal(t, "kick", again[0].Title)
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	ctx := context.Background()
	docs, err := NewFileDocumentStore(filepath.Join(t.TempDir(), "library.json"))
	require.NoError(t, err)
	s := NewStore(docs)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.RecordSimilaritySearch(ctx))
		}()
	}
	wg.Wait()

	e, err := s.Engagement(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, e.SimilaritySearchCount)
}

func TestExportDatasetAndClear(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)
	a := addAsset(t, s, "kick")
	_, err := s.AddPalette(ctx, model.Palette{Name: "p", AssetIDs: []string{a.ID}})
	require.NoError(t, err)
	require.NoError(t, s.RecordSimilaritySearch(ctx))

	ds, err := s.ExportDataset(ctx)
	require.NoError(t, err)
	assert.Len(t, ds.Assets, 1)
	assert.Len(t, ds.Palettes, 1)
	assert.Empty(t, ds.Receipts)

	require.NoError(t, s.Clear(ctx))

	state, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, state.Assets)
	assert.Empty(t, state.Palettes)
	assert.Equal(t, model.Engagement{}, state.Engagement)
}
