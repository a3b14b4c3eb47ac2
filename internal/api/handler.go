package api

import (
	"context"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/patrickmn/go-cache"

	"parking-bot-backend/internal/conversation"
	"parking-bot-backend/internal/model"
	"parking-bot-backend/internal/notification"
	"parking-bot-backend/internal/store"
)

// seenTTL bounds how long a webhook message id is remembered for redelivery checks.
const seenTTL = 10 * time.Minute

// Processor runs one inbound chat message through the conversation engine.
type Processor interface {
	Process(ctx context.Context, in conversation.Input) (*conversation.Result, error)
}

// CapacityUpdater commits a lot's occupancy and fans out notifications.
type CapacityUpdater interface {
	UpdateCapacity(ctx context.Context, lotID string, occ model.Occupancy) (model.ParkingLot, int, error)
}

// Invalidator drops cached read responses after a write.
type Invalidator interface {
	Invalidate()
}

// Deps are the collaborators the handlers need.
type Deps struct {
	Store       store.Store
	Engine      Processor
	Capacity    CapacityUpdater
	Sender      notification.Sender
	WebPush     *webpush.Options
	VerifyToken string
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store       store.Store
	engine      Processor
	capacity    CapacityUpdater
	sender      notification.Sender
	webpush     *webpush.Options
	verifyToken string
	seen        *cache.Cache
	cache       Invalidator
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		store:       d.Store,
		engine:      d.Engine,
		capacity:    d.Capacity,
		sender:      d.Sender,
		webpush:     d.WebPush,
		verifyToken: d.VerifyToken,
		seen:        cache.New(seenTTL, 2*seenTTL),
	}
}

func (h *Handler) invalidate() {
	if h.cache != nil {
		h.cache.Invalidate()
	}
}
