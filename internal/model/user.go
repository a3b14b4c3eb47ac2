package model

import "time"

// Role identifies which conversation flow a user follows.
type Role string

const (
	RoleUnknown Role = "unknown"
	RoleDriver  Role = "driver"
	RoleManager Role = "manager"
)

// ParseRole maps a stored value to a Role, falling back to RoleUnknown.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleDriver:
		return RoleDriver
	case RoleManager:
		return RoleManager
	default:
		return RoleUnknown
	}
}

// Registration is the lifecycle of a user's sign-up.
type Registration string

const (
	RegistrationNew          Registration = "new"
	RegistrationAwaitingName Registration = "awaiting_name"
	RegistrationComplete     Registration = "complete"
)

// User is a chat participant, keyed by its chat address.
type User struct {
	Address       string           `gorm:"primaryKey;size:64"`
	Name          string           `gorm:"size:128"`
	Role          Role             `gorm:"size:16;not null;default:unknown"`
	Registration  Registration     `gorm:"size:16;not null;default:new"`
	Step          string           `gorm:"size:64;not null;default:initial"`
	Context       TransientContext `gorm:"type:text"`
	ManagedLotID  *string          `gorm:"size:36;index"`
	LastMessageID string           `gorm:"size:128"`
	CreatedAt     time.Time        `gorm:"not null"`
	UpdatedAt     time.Time        `gorm:"not null"`
}

