package notification

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"parking-bot-backend/internal/message"
	"parking-bot-backend/internal/model"
)

// LotReader loads the lot a notification is about.
type LotReader interface {
	GetLot(ctx context.Context, id string) (model.ParkingLot, error)
}

// SubscriberSource resolves active subscriptions for a lot, "all lots" ones included.
type SubscriberSource interface {
	ListActiveForTarget(ctx context.Context, lotID string) ([]model.Subscription, error)
}

// FanOut notifies subscribed drivers that a lot has free spots. Deliveries
// run on a bounded pool of workers within the calling request.
type FanOut struct {
	size     int
	lots     LotReader
	subs     SubscriberSource
	sender   Sender
	composer message.Composer
}

// NewFanOut creates a fan-out with at most size concurrent deliveries.
func NewFanOut(size int, lots LotReader, subs SubscriberSource, sender Sender, composer message.Composer) *FanOut {
	if size <= 0 {
		size = 1
	}
	return &FanOut{
		size:     size,
		lots:     lots,
		subs:     subs,
		sender:   sender,
		composer: composer,
	}
}

// NotifyLotAvailable sends one message per distinct subscribed driver and
// returns how many deliveries the sender accepted.
func (f *FanOut) NotifyLotAvailable(ctx context.Context, lotID string) (int, error) {
	lot, err := f.lots.GetLot(ctx, lotID)
	if err != nil {
		return 0, fmt.Errorf("load lot %s: %w", lotID, err)
	}

	subscriptions, err := f.subs.ListActiveForTarget(ctx, lotID)
	if err != nil {
		return 0, fmt.Errorf("resolve subscribers of lot %s: %w", lotID, err)
	}

	recipients := distinctDrivers(subscriptions)
	if len(recipients) == 0 {
		return 0, nil
	}

	logrus.WithFields(logrus.Fields{"lot_id": lotID, "recipients": len(recipients)}).
		Info("[FANOUT] notifying subscribers")

	payload := f.composer.LotAvailable(lot)
	delivered := f.dispatch(ctx, recipients, payload)

	logrus.WithFields(logrus.Fields{"lot_id": lotID, "delivered": delivered, "recipients": len(recipients)}).
		Info("[FANOUT] done")
	return delivered, nil
}

// dispatch feeds recipients to the workers and waits for all of them.
func (f *FanOut) dispatch(ctx context.Context, recipients []string, payload message.Payload) int {
	workers := f.size
	if workers > len(recipients) {
		workers = len(recipients)
	}

	jobs := make(chan string, workers)
	var delivered int64
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for to := range jobs {
				if f.deliver(ctx, id, to, payload) {
					atomic.AddInt64(&delivered, 1)
				}
			}
		}(i)
	}

	for _, to := range recipients {
		jobs <- to
	}
	close(jobs)
	wg.Wait()

	return int(delivered)
}

// deliver isolates one recipient: errors and panics are logged, never propagated.
func (f *FanOut) deliver(ctx context.Context, worker int, to string, payload message.Payload) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{"worker": worker, "to": to}).Errorf("[FANOUT] sender panicked: %v", r)
			ok = false
		}
	}()
	if err := f.sender.Send(ctx, to, payload); err != nil {
		logrus.WithFields(logrus.Fields{"worker": worker, "to": to}).Warnf("[FANOUT] delivery failed: %v", err)
		return false
	}
	return true
}

func distinctDrivers(subs []model.Subscription) []string {
	seen := make(map[string]struct{}, len(subs))
	out := make([]string, 0, len(subs))
	for _, s := range subs {
		if _, ok := seen[s.DriverAddress]; ok {
			continue
		}
		seen[s.DriverAddress] = struct{}{}
		out = append(out, s.DriverAddress)
	}
	return out
}
