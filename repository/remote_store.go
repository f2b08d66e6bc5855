package repository

import (
	"context"
	"errors"
	"time"

	"SampleFinder/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRemoteStore is the server-side store that local libraries migrate into.
// Dedup keys are enforced by the unique indexes declared on the models.
type GormRemoteStore struct {
	db *gorm.DB
}

// NewGormRemoteStore 创建 GORM 远程存储
func NewGormRemoteStore(db *gorm.DB) *GormRemoteStore {
	return &GormRemoteStore{db: db}
}

func first[T any](tx *gorm.DB) (*T, error) {
	var row T
	if err := tx.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ========== 用户资料 ==========

// UpsertProfile creates the profile or refreshes its email. An empty email
// keeps the stored one.
func (r *GormRemoteStore) UpsertProfile(ctx context.Context, profile *model.Profile) error {
	columns := []string{"updated_at"}
	if profile.Email != "" {
		columns = append(columns, "email")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(profile).Error
}

// GetProfile 根据ID获取用户资料
func (r *GormRemoteStore) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	return first[model.Profile](r.db.WithContext(ctx).Where("id = ?", id))
}

// ========== 音频素材 ==========

func (r *GormRemoteStore) FindAssetByHash(ctx context.Context, userID, contentHash string) (*model.RemoteAsset, error) {
	return first[model.RemoteAsset](r.db.WithContext(ctx).
		Where("user_id = ? AND content_hash = ?", userID, contentHash))
}

func (r *GormRemoteStore) InsertAsset(ctx context.Context, asset *model.RemoteAsset) error {
	return r.db.WithContext(ctx).Create(asset).Error
}

// ListAssets returns the synced assets of a user, oldest first.
func (r *GormRemoteStore) ListAssets(ctx context.Context, userID string) ([]*model.RemoteAsset, error) {
	var assets []*model.RemoteAsset
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&assets).Error
	return assets, err
}

// ========== 调色板 ==========

func (r *GormRemoteStore) FindPaletteByName(ctx context.Context, userID, name string) (*model.RemotePalette, error) {
	return first[model.RemotePalette](r.db.WithContext(ctx).
		Where("user_id = ? AND name = ?", userID, name))
}

func (r *GormRemoteStore) InsertPalette(ctx context.Context, palette *model.RemotePalette) error {
	return r.db.WithContext(ctx).Create(palette).Error
}

func (r *GormRemoteStore) UpdatePaletteNotes(ctx context.Context, paletteID, notes string) error {
	return r.db.WithContext(ctx).Model(&model.RemotePalette{}).
		Where("id = ?", paletteID).
		Updates(map[string]interface{}{
			"notes":      notes,
			"updated_at": time.Now(),
		}).Error
}

// UpsertPaletteItem inserts the item or overwrites the position of the existing (palette, asset) pair.
func (r *GormRemoteStore) UpsertPaletteItem(ctx context.Context, item *model.PaletteItem) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "palette_id"}, {Name: "asset_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"position", "updated_at"}),
	}).Create(item).Error
}

// PaletteItems 获取调色板中的条目，按位置排序
func (r *GormRemoteStore) PaletteItems(ctx context.Context, paletteID string) ([]*model.PaletteItem, error) {
	var items []*model.PaletteItem
	err := r.db.WithContext(ctx).
		Where("palette_id = ?", paletteID).
		Order("position ASC").
		Find(&items).Error
	return items, err
}

// ========== 授权凭证 ==========

func (r *GormRemoteStore) FindReceipt(ctx context.Context, userID, assetID string) (*model.RemoteReceipt, error) {
	return first[model.RemoteReceipt](r.db.WithContext(ctx).
		Where("user_id = ? AND asset_id = ?", userID, assetID))
}

func (r *GormRemoteStore) InsertReceipt(ctx context.Context, receipt *model.RemoteReceipt) error {
	return r.db.WithContext(ctx).Create(receipt).Error
}

func (r *GormRemoteStore) UpdateReceipt(ctx context.Context, receipt *model.RemoteReceipt) error {
	return r.db.WithContext(ctx).Model(&model.RemoteReceipt{}).
		Where("id = ?", receipt.ID).
		Updates(map[string]interface{}{
			"source_url":    receipt.SourceURL,
			"notes":         receipt.Notes,
			"license_flags": receipt.LicenseFlags,
			"updated_at":    time.Now(),
		}).Error
}
