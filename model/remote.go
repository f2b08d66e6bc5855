package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Profile is the server-side record of an authenticated principal.
type Profile struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64"`
	Email     string    `json:"email" gorm:"size:255"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (Profile) TableName() string {
	return "profiles"
}

// RemoteAsset is a synced asset. (user_id, content_hash) is unique.
type RemoteAsset struct {
	ID               string                        `json:"id" gorm:"primaryKey;size:36"`
	UserID           string                        `json:"userId" gorm:"size:64;not null;uniqueIndex:idx_assets_user_hash"`
	ContentHash      string                        `json:"contentHash" gorm:"size:64;not null;uniqueIndex:idx_assets_user_hash"`
	Title            string                        `json:"title" gorm:"size:255"`
	OriginalFilename string                        `json:"originalFilename" gorm:"size:512"`
	DurationMs       int64                         `json:"durationMs"`
	RMS              float64                       `json:"rms"`
	SpectralCentroid *float64                      `json:"spectralCentroid,omitempty"`
	Descriptor       string                        `json:"descriptor" gorm:"type:text"`
	Embedding        datatypes.JSONType[[]float64] `json:"embedding"`
	Tags             datatypes.JSONType[[]string]  `json:"tags"`
	CreatedAt        time.Time                     `json:"createdAt"`
	UpdatedAt        time.Time                     `json:"updatedAt"`
}

func (RemoteAsset) TableName() string {
	return "assets"
}

func (a *RemoteAsset) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// RemotePalette is a synced palette. (user_id, name) is unique.
type RemotePalette struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	UserID    string    `json:"userId" gorm:"size:64;not null;uniqueIndex:idx_palettes_user_name"`
	Name      string    `json:"name" gorm:"size:255;not null;uniqueIndex:idx_palettes_user_name"`
	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (RemotePalette) TableName() string {
	return "palettes"
}

func (p *RemotePalette) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// PaletteItem places one asset in a palette. (palette_id, asset_id) is unique.
type PaletteItem struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	PaletteID string    `json:"paletteId" gorm:"size:36;not null;uniqueIndex:idx_palette_items_palette_asset"`
	AssetID   string    `json:"assetId" gorm:"size:36;not null;uniqueIndex:idx_palette_items_palette_asset"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (PaletteItem) TableName() string {
	return "palette_items"
}

// RemoteReceipt is a synced license record. (user_id, asset_id) is unique.
type RemoteReceipt struct {
	ID           string                              `json:"id" gorm:"primaryKey;size:36"`
	UserID       string                              `json:"userId" gorm:"size:64;not null;uniqueIndex:idx_receipts_user_asset"`
	AssetID      string                              `json:"assetId" gorm:"size:36;not null;uniqueIndex:idx_receipts_user_asset"`
	SourceURL    string                              `json:"sourceUrl" gorm:"size:2048"`
	Notes        string                              `json:"notes" gorm:"type:text"`
	LicenseFlags datatypes.JSONType[map[string]bool] `json:"licenseFlags"`
	CreatedAt    time.Time                           `json:"createdAt"`
	UpdatedAt    time.Time                           `json:"updatedAt"`
}

func (RemoteReceipt) TableName() string {
	return "receipts"
}

func (r *RemoteReceipt) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Subscription mirrors the billing state of one user.
type Subscription struct {
	UserID               string     `json:"userId" gorm:"primaryKey;size:64"`
	StripeCustomerID     string     `json:"stripeCustomerId" gorm:"size:255"`
	StripeSubscriptionID string     `json:"stripeSubscriptionId" gorm:"size:255"`
	Status               string     `json:"status" gorm:"size:32"`
	PriceID              *string    `json:"priceId" gorm:"size:255"`
	CurrentPeriodEnd     *time.Time `json:"currentPeriodEnd"`
	CancelAtPeriodEnd    bool       `json:"cancelAtPeriodEnd"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// RemoteModels lists every table the remote store migrates.
func RemoteModels() []interface{} {
	return []interface{}{
		&Profile{},
		&RemoteAsset{},
		&RemotePalette{},
		&PaletteItem{},
		&RemoteReceipt{},
		&Subscription{},
	}
}
