package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TransientContext carries data between two consecutive turns. Producer
// names the step that wrote it so readers can reject foreign or stale data.
type TransientContext struct {
	Producer string    `json:"producer,omitempty"`
	IssuedAt time.Time `json:"issued_at,omitempty"`
	Page     int       `json:"page,omitempty"`
	LotIDs   []string  `json:"lot_ids,omitempty"`
	// Targets holds subscription target keys (a lot id or AllLotsTarget).
	Targets []string `json:"targets,omitempty"`
	Tier    int      `json:"tier,omitempty"`
	// Options lists the option ids of the last menu shown, so a numeric
	// reply can pick the Nth one.
	Options []string `json:"options,omitempty"`
}

// IsZero reports whether the context carries nothing.
func (c TransientContext) IsZero() bool {
	return c.Producer == "" && len(c.LotIDs) == 0 && len(c.Targets) == 0 && c.Tier == 0 && len(c.Options) == 0
}

// Expired reports whether the context was issued more than ttl before now.
func (c TransientContext) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return c.IssuedAt.IsZero() || now.Sub(c.IssuedAt) > ttl
}

// Value implements driver.Valuer.
func (c TransientContext) Value() (driver.Value, error) {
	if c.IsZero() {
		return "{}", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (c *TransientContext) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*c = TransientContext{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into TransientContext", src)
	}
	if len(raw) == 0 {
		*c = TransientContext{}
		return nil
	}
	var out TransientContext
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode transient context: %w", err)
	}
	*c = out
	return nil
}
