package model

import "time"

// PushSubscription holds a browser push endpoint that mirrors a driver's chat notifications.
type PushSubscription struct {
	Endpoint      string    `gorm:"primaryKey"`
	DriverAddress string    `gorm:"size:64;not null;index"`
	P256DH        string    `gorm:"column:p256dh;not null"`
	Auth          string    `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
}
