package repository

import (
	"context"

	"SampleFinder/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriptionRepository 订阅数据访问
type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// GetSubscription returns the subscription of userID, or nil.
func (r *SubscriptionRepository) GetSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	return first[model.Subscription](r.db.WithContext(ctx).Where("user_id = ?", userID))
}

// UpsertSubscription writes the whole row keyed by user id.
func (r *SubscriptionRepository) UpsertSubscription(ctx context.Context, sub *model.Subscription) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(sub).Error
}

// UpdateSubscription applies column updates to the row of userID. A missing row is not an error.
func (r *SubscriptionRepository) UpdateSubscription(ctx context.Context, userID string, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("user_id = ?", userID).
		Updates(updates).Error
}
