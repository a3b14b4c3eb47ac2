package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"parking-bot-backend/internal/model"
)

func (s *gormStore) GetUser(ctx context.Context, address string) (model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, "address = ?", address).Error; err != nil {
		return model.User{}, notFound(err)
	}
	return user, nil
}

func (s *gormStore) CreateUser(ctx context.Context, user model.User) error {
	if user.Role == "" {
		user.Role = model.RoleUnknown
	}
	if user.Registration == "" {
		user.Registration = model.RegistrationNew
	}
	if user.Step == "" {
		user.Step = "initial"
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return fmt.Errorf("create user %s: %w", user.Address, err)
	}
	return nil
}

func (s *gormStore) CreateUserIfAbsent(ctx context.Context, address string, role model.Role, registration model.Registration) (bool, error) {
	user := model.User{
		Address:      address,
		Role:         role,
		Registration: registration,
		Step:         "initial",
	}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "address"}}, DoNothing: true}).
		Create(&user)
	if result.Error != nil {
		return false, fmt.Errorf("create user %s: %w", address, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *gormStore) SetName(ctx context.Context, address, name string) error {
	return s.updateUser(ctx, address, map[string]any{"name": name})
}

func (s *gormStore) SetRole(ctx context.Context, address string, role model.Role) error {
	return s.updateUser(ctx, address, map[string]any{"role": role})
}

func (s *gormStore) SetRegistrationStatus(ctx context.Context, address string, registration model.Registration) error {
	return s.updateUser(ctx, address, map[string]any{"registration": registration})
}

func (s *gormStore) SetStep(ctx context.Context, address, step string) error {
	return s.updateUser(ctx, address, map[string]any{"step": step})
}

func (s *gormStore) SetTransientContext(ctx context.Context, address string, tc model.TransientContext) error {
	return s.updateUser(ctx, address, map[string]any{"context": tc})
}

func (s *gormStore) SaveConversation(ctx context.Context, address, step string, tc model.TransientContext, messageID string) error {
	fields := map[string]any{"step": step, "context": tc}
	if messageID != "" {
		fields["last_message_id"] = messageID
	}
	return s.updateUser(ctx, address, fields)
}

func (s *gormStore) MarkMessage(ctx context.Context, address, messageID string) error {
	return s.updateUser(ctx, address, map[string]any{"last_message_id": messageID})
}

func (s *gormStore) AssignLot(ctx context.Context, address, lotID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.ParkingLot{}).Where("id = ?", lotID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		res := tx.Model(&model.User{}).Where("address = ?", address).Update("managed_lot_id", lotID)
		if res.Error != nil {
			return fmt.Errorf("assign lot to %s: %w", address, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *gormStore) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).Order("created_at ASC, address ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *gormStore) updateUser(ctx context.Context, address string, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&model.User{}).Where("address = ?", address).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update user %s: %w", address, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
