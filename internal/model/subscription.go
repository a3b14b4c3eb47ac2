package model

import "time"

// AllLotsTarget is the target key of a subscription covering every lot.
const AllLotsTarget = "*"

// Subscription is a driver's standing request to hear about one lot or all lots.
type Subscription struct {
	ID            string  `gorm:"primaryKey;size:36"`
	DriverAddress string  `gorm:"size:64;not null;index;uniqueIndex:idx_active_subscription,where:active = true"`
	LotID         *string `gorm:"size:36;index"`
	// TargetKey mirrors LotID, with AllLotsTarget for NULL, so the partial
	// unique index can see "all lots" rows.
	TargetKey string    `gorm:"size:36;not null;uniqueIndex:idx_active_subscription,where:active = true"`
	Active    bool      `gorm:"not null;default:true;index"`
	CreatedAt time.Time `gorm:"not null"`
}

// IsGlobal reports whether the subscription targets all lots.
func (s Subscription) IsGlobal() bool {
	return s.LotID == nil
}

// TargetKeyFor converts an optional lot id to its target key.
func TargetKeyFor(lotID *string) string {
	if lotID == nil || *lotID == "" {
		return AllLotsTarget
	}
	return *lotID
}
