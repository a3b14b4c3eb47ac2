package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"parking-bot-backend/internal/model"
)

func (s *gormStore) CreateOrGetSubscription(ctx context.Context, driver string, lotID *string) (model.Subscription, bool, error) {
	target := model.TargetKeyFor(lotID)
	if existing, err := s.activeSubscription(ctx, driver, target); err == nil {
		return existing, false, nil
	} else if err != ErrNotFound {
		return model.Subscription{}, false, err
	}

	sub := model.Subscription{
		ID:            uuid.NewString(),
		DriverAddress: driver,
		TargetKey:     target,
		Active:        true,
		CreatedAt:     s.now().UTC(),
	}
	if target != model.AllLotsTarget {
		id := target
		sub.LotID = &id
	}

	// A concurrent insert for the same target trips the partial unique index.
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&sub)
	if res.Error != nil && !isUniqueViolation(res.Error) {
		return model.Subscription{}, false, fmt.Errorf("create subscription for %s: %w", driver, res.Error)
	}
	if res.Error == nil && res.RowsAffected == 1 {
		return sub, true, nil
	}
	existing, err := s.activeSubscription(ctx, driver, target)
	if err != nil {
		return model.Subscription{}, false, err
	}
	return existing, false, nil
}

func (s *gormStore) activeSubscription(ctx context.Context, driver, target string) (model.Subscription, error) {
	var sub model.Subscription
	err := s.db.WithContext(ctx).
		Where("driver_address = ? AND target_key = ? AND active = ?", driver, target, true).
		First(&sub).Error
	if err != nil {
		return model.Subscription{}, notFound(err)
	}
	return sub, nil
}

func (s *gormStore) ListActiveForDriver(ctx context.Context, driver string) ([]model.Subscription, error) {
	var subs []model.Subscription
	if err := s.db.WithContext(ctx).
		Where("driver_address = ? AND active = ?", driver, true).
		Order("created_at ASC, id ASC").
		Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("list subscriptions of %s: %w", driver, err)
	}
	return subs, nil
}

func (s *gormStore) ListActiveForTarget(ctx context.Context, lotID string) ([]model.Subscription, error) {
	var subs []model.Subscription
	if err := s.db.WithContext(ctx).
		Where("active = ? AND (lot_id = ? OR lot_id IS NULL)", true, lotID).
		Order("created_at ASC, id ASC").
		Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("list subscriptions for lot %s: %w", lotID, err)
	}
	return subs, nil
}

func (s *gormStore) Deactivate(ctx context.Context, driver string, lotID *string) (bool, error) {
	target := model.TargetKeyFor(lotID)
	res := s.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("driver_address = ? AND target_key = ? AND active = ?", driver, target, true).
		Update("active", false)
	if res.Error != nil {
		return false, fmt.Errorf("deactivate subscription of %s to %s: %w", driver, target, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStore) DeactivateAllForDriver(ctx context.Context, driver string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("driver_address = ? AND active = ?", driver, true).
		Update("active", false)
	if res.Error != nil {
		return 0, fmt.Errorf("deactivate subscriptions of %s: %w", driver, res.Error)
	}
	return res.RowsAffected, nil
}
