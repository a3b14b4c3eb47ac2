package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"parking-bot-backend/internal/model"
)

func (s *gormStore) SavePushSubscription(ctx context.Context, sub model.PushSubscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = s.now().UTC()
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"driver_address", "p256dh", "auth"}),
	}).Create(&sub).Error; err != nil {
		return fmt.Errorf("save push subscription: %w", err)
	}
	return nil
}

func (s *gormStore) DeletePushSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{}, "endpoint = ?", endpoint).Error; err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

func (s *gormStore) ListPushSubscriptions(ctx context.Context, driver string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("driver_address = ?", driver).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("list push subscriptions of %s: %w", driver, err)
	}
	return subs, nil
}
