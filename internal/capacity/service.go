package capacity

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"parking-bot-backend/internal/model"
)

// LotWriter persists occupancy changes.
type LotWriter interface {
	UpdateOccupancy(ctx context.Context, id string, occ model.Occupancy, now time.Time) (model.ParkingLot, error)
}

// Notifier fans out lot-available notifications.
type Notifier interface {
	NotifyLotAvailable(ctx context.Context, lotID string) (int, error)
}

// Service is the only writer of lot occupancy.
type Service struct {
	lots     LotWriter
	notifier Notifier
	now      func() time.Time
}

// NewService creates a capacity service.
func NewService(lots LotWriter, notifier Notifier) *Service {
	return &Service{lots: lots, notifier: notifier, now: time.Now}
}

// UpdateCapacity stores the new occupancy of a lot and, when it has free
// spots, notifies subscribers. The write is committed before any delivery
// starts, so a failed fan-out still leaves the lot updated.
func (s *Service) UpdateCapacity(ctx context.Context, lotID string, occ model.Occupancy) (model.ParkingLot, int, error) {
	lot, err := s.lots.UpdateOccupancy(ctx, lotID, occ, s.now())
	if err != nil {
		return model.ParkingLot{}, 0, err
	}

	log := logrus.WithFields(logrus.Fields{
		"lot_id":        lotID,
		"free_estimate": occ.FreeEstimate,
		"has_spots":     occ.HasSpots,
	})
	log.Info("[CAPACITY] occupancy updated")

	if !occ.Notifiable() || s.notifier == nil {
		return lot, 0, nil
	}

	notified, err := s.notifier.NotifyLotAvailable(ctx, lotID)
	if err != nil {
		log.Errorf("[CAPACITY] fan-out failed: %v", err)
		return lot, 0, nil
	}
	return lot, notified, nil
}
