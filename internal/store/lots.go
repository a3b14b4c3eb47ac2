package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"parking-bot-backend/internal/model"
)

func (s *gormStore) GetLot(ctx context.Context, id string) (model.ParkingLot, error) {
	var lot model.ParkingLot
	if err := s.db.WithContext(ctx).First(&lot, "id = ?", id).Error; err != nil {
		return model.ParkingLot{}, notFound(err)
	}
	return lot, nil
}

func (s *gormStore) GetLotByName(ctx context.Context, name string) (model.ParkingLot, error) {
	var lot model.ParkingLot
	if err := s.db.WithContext(ctx).First(&lot, "name = ?", strings.TrimSpace(name)).Error; err != nil {
		return model.ParkingLot{}, notFound(err)
	}
	return lot, nil
}

// CreateLot inserts a lot with a fresh id. Names are unique.
func (s *gormStore) CreateLot(ctx context.Context, lot model.ParkingLot) (model.ParkingLot, error) {
	lot.Name = strings.TrimSpace(lot.Name)
	if _, err := s.GetLotByName(ctx, lot.Name); err == nil {
		return model.ParkingLot{}, ErrDuplicateName
	} else if err != ErrNotFound {
		return model.ParkingLot{}, err
	}

	now := s.now().UTC()
	lot.ID = uuid.NewString()
	lot.CreatedAt = now
	if lot.LastUpdated.IsZero() {
		lot.LastUpdated = now
	}
	if err := s.db.WithContext(ctx).Create(&lot).Error; err != nil {
		if isUniqueViolation(err) {
			return model.ParkingLot{}, ErrDuplicateName
		}
		return model.ParkingLot{}, fmt.Errorf("create lot %q: %w", lot.Name, err)
	}
	return lot, nil
}

// ListLots returns every lot, most recently updated first.
func (s *gormStore) ListLots(ctx context.Context) ([]model.ParkingLot, error) {
	var lots []model.ParkingLot
	if err := s.db.WithContext(ctx).Order("last_updated DESC, id ASC").Find(&lots).Error; err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	return lots, nil
}

func (s *gormStore) ListLotsWithAvailableSpots(ctx context.Context) ([]model.ParkingLot, error) {
	var lots []model.ParkingLot
	if err := s.db.WithContext(ctx).
		Where("has_spots = ?", true).
		Order("last_updated DESC, id ASC").
		Find(&lots).Error; err != nil {
		return nil, fmt.Errorf("list available lots: %w", err)
	}
	return lots, nil
}

// UpdateOccupancy overwrites the occupancy fields of a single lot and returns the stored row.
func (s *gormStore) UpdateOccupancy(ctx context.Context, id string, occ model.Occupancy, now time.Time) (model.ParkingLot, error) {
	res := s.db.WithContext(ctx).Model(&model.ParkingLot{}).Where("id = ?", id).Updates(map[string]any{
		"free_estimate": occ.FreeEstimate,
		"has_spots":     occ.HasSpots,
		"range_label":   occ.RangeLabel,
		"description":   occ.Description,
		"last_updated":  now.UTC(),
	})
	if res.Error != nil {
		return model.ParkingLot{}, fmt.Errorf("update occupancy of lot %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ParkingLot{}, ErrNotFound
	}
	return s.GetLot(ctx, id)
}
