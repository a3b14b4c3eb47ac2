package model

import "time"

// ParkingLot is a parking facility whose occupancy is reported by its manager.
type ParkingLot struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Name         string    `gorm:"uniqueIndex;size:128;not null"`
	Location     string    `gorm:"size:256;not null"`
	Capacity     int       `gorm:"not null;default:0"`
	HasSpots     bool      `gorm:"not null;default:false;index"`
	FreeEstimate int       `gorm:"not null;default:0"`
	RangeLabel   string    `gorm:"size:32"`
	Description  string    `gorm:"size:64"`
	LastUpdated  time.Time `gorm:"not null;index"`
	CreatedAt    time.Time `gorm:"not null"`
}

// Occupancy is the set of fields a capacity update overwrites.
type Occupancy struct {
	FreeEstimate int
	HasSpots     bool
	RangeLabel   string
	Description  string
}

// Notifiable reports whether the occupancy should trigger subscriber notifications.
func (o Occupancy) Notifiable() bool {
	return o.HasSpots && o.FreeEstimate > 0
}
