// Package library is the offline store for assets, palettes, receipts and
// engagement counters. All state lives in one document that is read, modified
// and written back as a unit.
package library

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SampleFinder/model"

	"github.com/google/uuid"
)

// ErrNotFound is returned by mutations that reference a missing record.
var ErrNotFound = errors.New("not found")

// Store serializes access to a DocumentStore.
type Store struct {
	mu    sync.Mutex
	docs  DocumentStore
	now   func() time.Time
	newID func() string
}

// NewStore wraps docs.
func NewStore(docs DocumentStore) *Store {
	return &Store{
		docs:  docs,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (s *Store) lock(ctx context.Context) (func(), error) {
	if l, ok := s.docs.(Locker); ok {
		return l.Lock(ctx)
	}
	return func() {}, nil
}

// Update runs fn against the current document and persists the result.
// Nothing is written when fn returns an error.
func (s *Store) Update(ctx context.Context, fn func(state *model.LocalState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	state, err := s.docs.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load library: %w", err)
	}
	if err := fn(state); err != nil {
		return err
	}
	if err := s.docs.Save(ctx, state); err != nil {
		return fmt.Errorf("failed to save library: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the current document.
func (s *Store) Snapshot(ctx context.Context) (*model.LocalState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.docs.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load library: %w", err)
	}
	return state, nil
}

func (s *Store) timestamp() int64 {
	return s.now().UnixMilli()
}

func findAsset(state *model.LocalState, id string) int {
	for i := range state.Assets {
		if state.Assets[i].ID == id {
			return i
		}
	}
	return -1
}

func findPalette(state *model.LocalState, id string) int {
	for i := range state.Palettes {
		if state.Palettes[i].ID == id {
			return i
		}
	}
	return -1
}

func findReceipt(state *model.LocalState, id string) int {
	for i := range state.Receipts {
		if state.Receipts[i].ID == id {
			return i
		}
	}
	return -1
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// ========== Assets ==========

// AddAsset appends asset, assigning an id and creation time when unset.
func (s *Store) AddAsset(ctx context.Context, asset model.Asset) (model.Asset, error) {
	if asset.ID == "" {
		asset.ID = s.newID()
	}
	if asset.CreatedAt == 0 {
		asset.CreatedAt = s.timestamp()
	}
	asset = asset.Clone()

	err := s.Update(ctx, func(state *model.LocalState) error {
		if findAsset(state, asset.ID) >= 0 {
			return fmt.Errorf("asset %s already exists", asset.ID)
		}
		state.Assets = append(state.Assets, asset)
		state.Engagement.AssetsAdded++
		return nil
	})
	if err != nil {
		return model.Asset{}, err
	}
	return asset.Clone(), nil
}

// AddAssetIfNewHash adds asset unless one with the same content hash exists.
// The check and the insert run in one Update. added is false when the existing
// asset is returned.
func (s *Store) AddAssetIfNewHash(ctx context.Context, asset model.Asset) (result model.Asset, added bool, err error) {
	if asset.ID == "" {
		asset.ID = s.newID()
	}
	if asset.CreatedAt == 0 {
		asset.CreatedAt = s.timestamp()
	}
	asset = asset.Clone()

	err = s.Update(ctx, func(state *model.LocalState) error {
		for i := range state.Assets {
			if state.Assets[i].ContentHash == asset.ContentHash {
				result = state.Assets[i].Clone()
				return nil
			}
		}
		if findAsset(state, asset.ID) >= 0 {
			return fmt.Errorf("asset %s already exists", asset.ID)
		}
		state.Assets = append(state.Assets, asset)
		state.Engagement.AssetsAdded++
		result = asset.Clone()
		added = true
		return nil
	})
	if err != nil {
		return model.Asset{}, false, err
	}
	return result, added, nil
}

// UpdateAsset applies patch to the asset with the given id.
func (s *Store) UpdateAsset(ctx context.Context, id string, patch model.AssetPatch) (model.Asset, error) {
	var updated model.Asset
	err := s.Update(ctx, func(state *model.LocalState) error {
		idx := findAsset(state, id)
		if idx < 0 {
			return fmt.Errorf("asset %s: %w", id, ErrNotFound)
		}
		a := &state.Assets[idx]
		if patch.Title != nil {
			a.Title = *patch.Title
		}
		if patch.Tags != nil {
			a.Tags = append([]string{}, patch.Tags...)
		}
		if patch.Descriptor != nil {
			a.Descriptor = *patch.Descriptor
		}
		if patch.Embedding != nil {
			a.Embedding = append([]float64(nil), patch.Embedding...)
		}
		updated = a.Clone()
		return nil
	})
	return updated, err
}

// DeleteAsset removes the asset, strips it from every palette and drops its receipts.
func (s *Store) DeleteAsset(ctx context.Context, id string) error {
	return s.Update(ctx, func(state *model.LocalState) error {
		idx := findAsset(state, id)
		if idx < 0 {
			return fmt.Errorf("asset %s: %w", id, ErrNotFound)
		}
		state.Assets = append(state.Assets[:idx], state.Assets[idx+1:]...)

		for i := range state.Palettes {
			state.Palettes[i].AssetIDs = removeID(state.Palettes[i].AssetIDs, id)
		}

		receipts := state.Receipts[:0]
		for _, r := range state.Receipts {
			if r.AssetID != id {
				receipts = append(receipts, r)
			}
		}
		state.Receipts = receipts
		return nil
	})
}

// Assets returns every asset in insertion order.
func (s *Store) Assets(ctx context.Context) ([]model.Asset, error) {
	state, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return state.Assets, nil
}

// Asset returns the asset with the given id, or nil if there is none.
func (s *Store) Asset(ctx context.Context, id string) (*model.Asset, error) {
	state, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if idx := findAsset(state, id); idx >= 0 {
		return &state.Assets[idx], nil
	}
	return nil, nil
}

// AssetByContentHash returns the first asset with the given hash, or nil.
func (s *Store) AssetByContentHash(ctx context.Context, hash string) (*model.Asset, error) {
	state, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for i := range state.Assets {
		if state.Assets[i].ContentHash == hash {
			return &state.Assets[i], nil
		}
	}
	return nil, nil
}

// ========== Palettes ==========

func requireAssets(state *model.LocalState, ids []string) error {
	for _, id := range ids {
		if findAsset(state, id) < 0 {
			return fmt.Errorf("asset %s: %w", id, ErrNotFound)
		}
	}
	return nil
}

// AddPalette appends palette. Duplicate asset ids are dropped and every id must exist.
func (s *Store) AddPalette(ctx context.Context, palette model.Palette) (model.Palette, error) {
	if palette.ID == "" {
		palette.ID = s.newID()
	}
	if palette.CreatedAt == 0 {
		palette.CreatedAt = s.timestamp()
	}
	palette.AssetIDs = dedupeIDs(palette.AssetIDs)

	err := s.Update(ctx, func(state *model.LocalState) error {
		if findPalette(state, palette.ID) >= 0 {
			return fmt.Errorf("palette %s already exists", palette.ID)
		}
		if err := requireAssets(state, palette.AssetIDs); err != nil {
			return err
		}
		state.Palettes = append(state.Palettes, palette.Clone())
		state.Engagement.PalettesCreated++
		return nil
	})
	if err != nil {
		return model.Palette{}, err
	}
	return palette.Clone(), nil
}

// UpdatePalette applies patch. A non-nil AssetIDs replaces the whole sequence.
func (s *Store) UpdatePalette(ctx context.Context, id string, patch model.PalettePatch) (model.Palette, error) {
	var updated model.Palette
	err := s.updatePalette(ctx, id, func(state *model.LocalState, p *model.Palette) error {
		if patch.AssetIDs != nil {
			ids := dedupeIDs(patch.AssetIDs)
			if err := requireAssets(state, ids); err != nil {
				return err
			}
			p.AssetIDs = ids
		}
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Notes != nil {
			p.Notes = *patch.Notes
		}
		updated = p.Clone()
		return nil
	})
	return updated, err
}

func (s *Store) updatePalette(ctx context.Context, id string, fn func(*model.LocalState, *model.Palette) error) error {
	return s.Update(ctx, func(state *model.LocalState) error {
		idx := findPalette(state, id)
		if idx < 0 {
			return fmt.Errorf("palette %s: %w", id, ErrNotFound)
		}
		return fn(state, &state.Palettes[idx])
	})
}

// DeletePalette removes a palette. Its assets are untouched.
func (s *Store) DeletePalette(ctx context.Context, id string) error {
	return s.Update(ctx, func(state *model.LocalState) error {
		idx := findPalette(state, id)
		if idx < 0 {
			return fmt.Errorf("palette %s: %w", id, ErrNotFound)
		}
		state.Palettes = append(state.Palettes[:idx], state.Palettes[idx+1:]...)
		return nil
	})
}

func (s *Store) Palettes(ctx context.Context) ([]model.Palette, error) {
	state, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return state.Palettes, nil
}

// Palette returns the palette with the given id, or nil.
func (s *Store) Palette(ctx context.Context, id string) (*model.Palette, error) {
	state, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if idx := findPalette(state, id); idx >= 0 {
		return &state.Palettes[idx], nil
	}
	return nil, nil
}

// AddAssetToPalette appends assetID unless it is already present.
func (s *Store) AddAssetToPalette(ctx context.Context, paletteID, assetID string) (model.Palette, error) {
	var updated model.Palette
	err := s.updatePalette(ctx, paletteID, func(state *model.LocalState, p *model.Palette) error {
		if err := requireAssets(state, []string{assetID}); err != nil {
			return err
		}
		if !p.Contains(assetID) {
			p.AssetIDs = append(p.AssetIDs, assetID)
		}
		updated = p.Clone()
		return nil
	})
	return updated, err
}

// RemoveAssetFromPalette drops assetID from the palette. Absent ids are a no-op.
func (s *Store) RemoveAssetFromPalette(ctx context.Context, paletteID, assetID string) (model.Palette, error) {
	var updated model.Palette
	err := s.updatePalette(ctx, paletteID, func(_ *model.LocalState, p *model.Palette) error {
		p.AssetIDs = removeID(p.AssetIDs, assetID)
		updated = p.Clone()
		return nil
	})
	return updated, err
}

// MovePaletteAsset moves assetID to newIndex, clamped to the sequence bounds.
func (s *Store) MovePaletteAsset(ctx context.Context, paletteID, assetID string, newIndex int) (model.Palette, error) {
	var updated model.Palette
	err := s.updatePalette(ctx, paletteID, func(_ *model.LocalState, p *model.Palette) error {
		if !p.Contains(assetID) {
			return fmt.Errorf("asset %s in palette %s: %w", assetID, paletteID, ErrNotFound)
		}
		ids := removeID(p.AssetIDs, assetID)
		newIndex = max(0, min(newIndex, len(ids)))

		moved := make([]string, 0, len(ids)+1)
		moved = append(moved, ids[:newIndex]...)
		moved = append(moved, assetID)
		moved = append(moved, ids[newIndex:]...)
		p.AssetIDs = moved

		updated = p.Clone()
		return nil
	})
	return updated, err
}

// ========== Receipts ==========

// AddReceipt stores a receipt for an existing asset.
// A second receipt for the same asset is accepted; ReceiptForAsset returns the first.
func (s *Store) AddReceipt(ctx context.Context, receipt model.Receipt) (model.Receipt, error) {
	if receipt.ID == "" {
		receipt.ID = s.newID()
	}
	if receipt.CreatedAt == 0 {
		receipt.CreatedAt = s.timestamp()
	}
	receipt = receipt.Clone()

	err := s.Update(ctx, func(state *model.LocalState) error {
		if findReceipt(state, receipt.ID) >= 0 {
			return fmt.Errorf("receipt %s already exists", receipt.ID)
		}
		if err := requireAssets(state, []string{receipt.AssetID}); err != nil {
			return err
		}
		state.Receipts = append(state.Receipts, receipt)
		return nil
	})
	if err != nil {
		return model.Receipt{}, err
	}
	return receipt.Clone(), nil
}

// UpdateReceipt applies patch. A non-nil LicenseFlags replaces the whole map.
func (s *Store) UpdateReceipt(ctx context.Context, id string, patch model.ReceiptPatch) (model.Receipt, error) {
	var updated model.Receipt
	err := s.Update(ctx, func(state *model.LocalState) error {
		idx := findReceipt(state, id)
		if idx < 0 {
			return fmt.Errorf("receipt %s: %w", id, ErrNotFound)
		}
		r := &state.Receipts[idx]
		if patch.SourceURL != nil {
			r.SourceURL = *patch.SourceURL
		}
		if patch.Notes != nil {
			r.Notes = *patch.Notes
		}
		if patch.LicenseFlags != nil {
			r.LicenseFlags = make(map[string]bool, len(patch.LicenseFlags))
			for k, v := range patch.LicenseFlags {
				r.LicenseFlags[k] = v
			}
		}
		updated = r.Clone()
		return nil
	})
	return updated, err
}

func (s *Store) DeleteReceipt(ctx context.Context, id string) error {
	return s.Update(ctx, func(state *model.LocalState) error {
		idx := findReceipt(state, id)
		if idx < 0 {
			return fmt.Errorf("receipt %s: %w", id, ErrNotFound)
		}
		state.Receipts = append(state.Receipts[:idx], state.Receipts[idx+1:]...)
		return nil
	})
}

func (s *Store) Receipts(ctx context.Context) ([]model.Receipt, error) {
	state, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return state.Receipts, nil
}

// ReceiptForAsset returns the first receipt attached to assetID, or nil.
func (s *Store) ReceiptForAsset(ctx context.Context, assetID string) (*model.Receipt, error) {
	state, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for i := range state.Receipts {
		if state.Receipts[i].AssetID == assetID {
			return &state.Receipts[i], nil
		}
	}
	return nil, nil
}

// ========== Dataset ==========

// ExportDataset returns every asset, palette and receipt for migration.
func (s *Store) ExportDataset(ctx context.Context) (model.Dataset, error) {
	state, err := s.Snapshot(ctx)
	if err != nil {
		return model.Dataset{}, err
	}
	return model.Dataset{
		Assets:   state.Assets,
		Palettes: state.Palettes,
		Receipts: state.Receipts,
	}, nil
}

// Clear drops all local data, engagement counters included.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.docs.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear library: %w", err)
	}
	return nil
}
