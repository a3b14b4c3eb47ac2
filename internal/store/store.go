package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"parking-bot-backend/internal/model"
)

// Directory persists chat users and their conversation state.
type Directory interface {
	GetUser(ctx context.Context, address string) (model.User, error)
	CreateUser(ctx context.Context, user model.User) error
	// CreateUserIfAbsent inserts a new user unless one already exists and
	// reports whether this call created it.
	CreateUserIfAbsent(ctx context.Context, address string, role model.Role, registration model.Registration) (bool, error)
	SetName(ctx context.Context, address, name string) error
	SetRole(ctx context.Context, address string, role model.Role) error
	SetRegistrationStatus(ctx context.Context, address string, registration model.Registration) error
	SetStep(ctx context.Context, address, step string) error
	SetTransientContext(ctx context.Context, address string, tc model.TransientContext) error
	// SaveConversation writes step, context and the applied message id in one statement.
	SaveConversation(ctx context.Context, address, step string, tc model.TransientContext, messageID string) error
	MarkMessage(ctx context.Context, address, messageID string) error
	AssignLot(ctx context.Context, address, lotID string) error
	ListUsers(ctx context.Context) ([]model.User, error)
}

// LotRegistry persists parking lots and their occupancy.
type LotRegistry interface {
	GetLot(ctx context.Context, id string) (model.ParkingLot, error)
	GetLotByName(ctx context.Context, name string) (model.ParkingLot, error)
	CreateLot(ctx context.Context, lot model.ParkingLot) (model.ParkingLot, error)
	ListLots(ctx context.Context) ([]model.ParkingLot, error)
	ListLotsWithAvailableSpots(ctx context.Context) ([]model.ParkingLot, error)
	UpdateOccupancy(ctx context.Context, id string, occ model.Occupancy, now time.Time) (model.ParkingLot, error)
}

// SubscriptionLedger persists driver subscriptions.
type SubscriptionLedger interface {
	// CreateOrGetSubscription returns the active subscription for the driver and
	// target, creating it when absent. A nil lotID targets all lots.
	CreateOrGetSubscription(ctx context.Context, driver string, lotID *string) (model.Subscription, bool, error)
	ListActiveForDriver(ctx context.Context, driver string) ([]model.Subscription, error)
	// ListActiveForTarget returns the active subscriptions for the lot together
	// with every active "all lots" subscription.
	ListActiveForTarget(ctx context.Context, lotID string) ([]model.Subscription, error)
	// Deactivate cancels the driver's active subscription to lotID (all lots
	// when nil) and reports whether one existed.
	Deactivate(ctx context.Context, driver string, lotID *string) (bool, error)
	DeactivateAllForDriver(ctx context.Context, driver string) (int64, error)
}

// PushRegistry persists browser push endpoints that mirror chat notifications.
type PushRegistry interface {
	SavePushSubscription(ctx context.Context, sub model.PushSubscription) error
	DeletePushSubscription(ctx context.Context, endpoint string) error
	ListPushSubscriptions(ctx context.Context, driver string) ([]model.PushSubscription, error)
}

// Store defines the interface for all database operations.
type Store interface {
	Directory
	LotRegistry
	SubscriptionLedger
	PushRegistry
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, now: time.Now}
}

// DB exposes the underlying connection.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}
