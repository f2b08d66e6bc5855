// Package sync merges a local library dataset into the remote store of an
// authenticated principal. Every step is existence-checked, so a migration can
// be re-run after an interruption without creating duplicates.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SampleFinder/logger"
	"SampleFinder/model"

	"gorm.io/datatypes"
)

// ErrNoPrincipal is returned when Migrate is called without a user id.
var ErrNoPrincipal = errors.New("no authenticated principal")

// Principal identifies the account that receives the data.
type Principal struct {
	UserID string
	Email  string
}

// RemoteStore is the server-side persistence used by the migrator.
// Find methods return nil, nil when nothing matches.
type RemoteStore interface {
	UpsertProfile(ctx context.Context, profile *model.Profile) error

	FindAssetByHash(ctx context.Context, userID, contentHash string) (*model.RemoteAsset, error)
	InsertAsset(ctx context.Context, asset *model.RemoteAsset) error

	FindPaletteByName(ctx context.Context, userID, name string) (*model.RemotePalette, error)
	InsertPalette(ctx context.Context, palette *model.RemotePalette) error
	UpdatePaletteNotes(ctx context.Context, paletteID, notes string) error
	UpsertPaletteItem(ctx context.Context, item *model.PaletteItem) error

	FindReceipt(ctx context.Context, userID, assetID string) (*model.RemoteReceipt, error)
	InsertReceipt(ctx context.Context, receipt *model.RemoteReceipt) error
	UpdateReceipt(ctx context.Context, receipt *model.RemoteReceipt) error
}

// Summary reports the migrated input cardinalities.
// Assets, Palettes and Receipts count input records, not newly created rows.
type Summary struct {
	Assets   int `json:"assets"`
	Palettes int `json:"palettes"`
	Receipts int `json:"receipts"`

	// AssetIDs maps local asset ids to remote ids. Assets that failed are absent.
	AssetIDs map[string]string `json:"-"`
	// Skipped counts records that could not be written.
	Skipped int `json:"-"`
}

// Migrator runs the reconciliation.
type Migrator struct {
	remote RemoteStore
}

func NewMigrator(remote RemoteStore) *Migrator {
	return &Migrator{remote: remote}
}

// Migrate merges dataset into the remote store of principal. Only a failure to
// create the profile aborts; item failures are logged and skipped.
func (m *Migrator) Migrate(ctx context.Context, principal Principal, dataset model.Dataset) (Summary, error) {
	if principal.UserID == "" {
		return Summary{}, ErrNoPrincipal
	}
	start := time.Now()

	if err := m.remote.UpsertProfile(ctx, &model.Profile{ID: principal.UserID, Email: principal.Email}); err != nil {
		return Summary{}, fmt.Errorf("failed to upsert profile: %w", err)
	}

	summary := Summary{
		Assets:   len(dataset.Assets),
		Palettes: len(dataset.Palettes),
		Receipts: len(dataset.Receipts),
		AssetIDs: make(map[string]string, len(dataset.Assets)),
	}

	for _, asset := range dataset.Assets {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		remoteID, err := m.migrateAsset(ctx, principal.UserID, asset)
		if err != nil {
			summary.Skipped++
			logger.Warn("skipping asset during migration",
				logger.String("asset_id", asset.ID),
				logger.String("user_id", principal.UserID),
				logger.ErrorField(err))
			continue
		}
		summary.AssetIDs[asset.ID] = remoteID
	}

	for _, palette := range dataset.Palettes {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Skipped += m.migratePalette(ctx, principal.UserID, palette, summary.AssetIDs)
	}

	for _, receipt := range dataset.Receipts {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		remoteAssetID, ok := summary.AssetIDs[receipt.AssetID]
		if !ok {
			summary.Skipped++
			continue
		}
		if err := m.migrateReceipt(ctx, principal.UserID, remoteAssetID, receipt); err != nil {
			summary.Skipped++
			logger.Warn("skipping receipt during migration",
				logger.String("receipt_id", receipt.ID),
				logger.ErrorField(err))
		}
	}

	logger.Info("migration finished",
		logger.String("user_id", principal.UserID),
		logger.Int("assets", summary.Assets),
		logger.Int("palettes", summary.Palettes),
		logger.Int("receipts", summary.Receipts),
		logger.Int("skipped", summary.Skipped),
		logger.Duration("took", time.Since(start)))
	return summary, nil
}

func (m *Migrator) migrateAsset(ctx context.Context, userID string, asset model.Asset) (string, error) {
	existing, err := m.remote.FindAssetByHash(ctx, userID, asset.ContentHash)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.ID, nil
	}

	row := toRemoteAsset(userID, asset)
	if err := m.remote.InsertAsset(ctx, row); err != nil {
		// a concurrent migration may have inserted the same hash first
		if existing, findErr := m.remote.FindAssetByHash(ctx, userID, asset.ContentHash); findErr == nil && existing != nil {
			return existing.ID, nil
		}
		return "", err
	}
	return row.ID, nil
}

// migratePalette returns the number of skipped records.
func (m *Migrator) migratePalette(ctx context.Context, userID string, palette model.Palette, assetIDs map[string]string) int {
	paletteID, err := m.resolvePalette(ctx, userID, palette)
	if err != nil {
		logger.Warn("skipping palette during migration",
			logger.String("palette_id", palette.ID),
			logger.String("name", palette.Name),
			logger.ErrorField(err))
		return 1
	}

	skipped := 0
	for position, localID := range palette.AssetIDs {
		remoteAssetID, ok := assetIDs[localID]
		if !ok {
			continue
		}
		item := &model.PaletteItem{PaletteID: paletteID, AssetID: remoteAssetID, Position: position}
		if err := m.remote.UpsertPaletteItem(ctx, item); err != nil {
			skipped++
			logger.Warn("skipping palette item during migration",
				logger.String("palette_id", paletteID),
				logger.String("asset_id", remoteAssetID),
				logger.ErrorField(err))
		}
	}
	return skipped
}

func (m *Migrator) resolvePalette(ctx context.Context, userID string, palette model.Palette) (string, error) {
	existing, err := m.remote.FindPaletteByName(ctx, userID, palette.Name)
	if err != nil {
		return "", err
	}
	if existing == nil {
		row := &model.RemotePalette{
			UserID:    userID,
			Name:      palette.Name,
			Notes:     palette.Notes,
			CreatedAt: fromMillis(palette.CreatedAt),
		}
		insertErr := m.remote.InsertPalette(ctx, row)
		if insertErr == nil {
			return row.ID, nil
		}
		existing, err = m.remote.FindPaletteByName(ctx, userID, palette.Name)
		if err != nil || existing == nil {
			return "", insertErr
		}
	}

	if err := m.remote.UpdatePaletteNotes(ctx, existing.ID, palette.Notes); err != nil {
		logger.Warn("failed to update palette notes", logger.String("palette_id", existing.ID), logger.ErrorField(err))
	}
	return existing.ID, nil
}

func (m *Migrator) migrateReceipt(ctx context.Context, userID, remoteAssetID string, receipt model.Receipt) error {
	existing, err := m.remote.FindReceipt(ctx, userID, remoteAssetID)
	if err != nil {
		return err
	}

	if existing == nil {
		row := &model.RemoteReceipt{
			UserID:       userID,
			AssetID:      remoteAssetID,
			SourceURL:    receipt.SourceURL,
			Notes:        receipt.Notes,
			LicenseFlags: datatypes.NewJSONType(licenseFlags(receipt)),
			CreatedAt:    fromMillis(receipt.CreatedAt),
		}
		insertErr := m.remote.InsertReceipt(ctx, row)
		if insertErr == nil {
			return nil
		}
		existing, err = m.remote.FindReceipt(ctx, userID, remoteAssetID)
		if err != nil || existing == nil {
			return insertErr
		}
	}

	existing.SourceURL = receipt.SourceURL
	existing.Notes = receipt.Notes
	existing.LicenseFlags = datatypes.NewJSONType(licenseFlags(receipt))
	return m.remote.UpdateReceipt(ctx, existing)
}

func toRemoteAsset(userID string, a model.Asset) *model.RemoteAsset {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	return &model.RemoteAsset{
		UserID:           userID,
		ContentHash:      a.ContentHash,
		Title:            a.Title,
		OriginalFilename: a.OriginalFilename,
		DurationMs:       a.DurationMs,
		RMS:              a.RMS,
		SpectralCentroid: a.SpectralCentroid,
		Descriptor:       a.Descriptor,
		Embedding:        datatypes.NewJSONType(a.Embedding),
		Tags:             datatypes.NewJSONType(tags),
		CreatedAt:        fromMillis(a.CreatedAt),
	}
}

func licenseFlags(r model.Receipt) map[string]bool {
	if r.LicenseFlags == nil {
		return map[string]bool{}
	}
	return r.LicenseFlags
}

// fromMillis converts a unix millisecond timestamp; zero means now.
func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Now()
	}
	return time.UnixMilli(ms)
}
