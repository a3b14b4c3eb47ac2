package notification

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"parking-bot-backend/internal/message"
)

// Sender delivers one payload to one chat address. A nil error means delivered.
type Sender interface {
	Send(ctx context.Context, to string, payload message.Payload) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, to string, payload message.Payload) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, to string, payload message.Payload) error {
	return f(ctx, to, payload)
}

// MultiSender delivers through a primary sender and best-effort mirrors.
// Only the primary's outcome is reported.
type MultiSender struct {
	primary Sender
	mirrors []Sender
}

// NewMultiSender builds a MultiSender. Nil mirrors are skipped.
func NewMultiSender(primary Sender, mirrors ...Sender) *MultiSender {
	ms := &MultiSender{primary: primary}
	for _, m := range mirrors {
		if m != nil {
			ms.mirrors = append(ms.mirrors, m)
		}
	}
	return ms
}

// Send implements Sender.
func (m *MultiSender) Send(ctx context.Context, to string, payload message.Payload) error {
	if m.primary == nil {
		return errors.New("no primary sender configured")
	}
	err := m.primary.Send(ctx, to, payload)
	for _, mirror := range m.mirrors {
		if mErr := mirror.Send(ctx, to, payload); mErr != nil {
			logrus.WithField("to", to).Warnf("[NOTIFY] mirror delivery failed: %v", mErr)
		}
	}
	return err
}
