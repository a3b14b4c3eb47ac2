package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"

	"parking-bot-backend/internal/message"
	"parking-bot-backend/internal/model"
)

// PushClient sends a single web push notification.
type PushClient interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushClient is the real PushClient backed by the webpush library.
type WebPushClient struct{}

// Send sends a notification using the webpush library.
func (WebPushClient) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// PushEndpoints is the storage a PushMirror needs.
type PushEndpoints interface {
	ListPushSubscriptions(ctx context.Context, driver string) ([]model.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error
}

// PushMirror copies notifications to the browser push endpoints a driver registered.
type PushMirror struct {
	store   PushEndpoints
	client  PushClient
	options *webpush.Options
}

// NewPushMirror creates a mirror using the real web push client.
func NewPushMirror(store PushEndpoints, options *webpush.Options) *PushMirror {
	return &PushMirror{store: store, client: WebPushClient{}, options: options}
}

type pushBody struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Send implements Sender. Expired endpoints (410 Gone) are removed.
func (p *PushMirror) Send(ctx context.Context, to string, payload message.Payload) error {
	subs, err := p.store.ListPushSubscriptions(ctx, to)
	if err != nil {
		return fmt.Errorf("list push endpoints of %s: %w", to, err)
	}
	if len(subs) == 0 {
		return nil
	}

	body, err := json.Marshal(pushBody{Title: "Parking update", Body: payload.Body})
	if err != nil {
		return err
	}

	var failed int
	for _, sub := range subs {
		if err := p.sendOne(ctx, sub, body); err != nil {
			logrus.WithField("endpoint", sub.Endpoint).Warnf("[PUSH] %v", err)
			failed++
		}
	}
	if failed == len(subs) {
		return fmt.Errorf("all %d push endpoints of %s failed", failed, to)
	}
	return nil
}

func (p *PushMirror) sendOne(ctx context.Context, sub model.PushSubscription, body []byte) error {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := p.client.Send(body, wpSub, p.options)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		logrus.WithField("endpoint", sub.Endpoint).Info("[PUSH] endpoint expired, deleting")
		if err := p.store.DeletePushSubscription(ctx, sub.Endpoint); err != nil {
			logrus.WithField("endpoint", sub.Endpoint).Errorf("[PUSH] failed to delete expired endpoint: %v", err)
		}
		return fmt.Errorf("endpoint gone")
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}
