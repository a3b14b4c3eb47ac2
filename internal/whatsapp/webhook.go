package whatsapp

import (
	"strings"

	"github.com/sirupsen/logrus"

	"parking-bot-backend/internal/conversation"
)

// WebhookPayload models the body Meta posts to the webhook.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Metadata         Metadata  `json:"metadata"`
	Contacts         []Contact `json:"contacts,omitempty"`
	Messages         []Message `json:"messages,omitempty"`
	Statuses         []Status  `json:"statuses,omitempty"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// Status is a delivery receipt for a message we sent. Receipts carry no user input.
type Status struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
}

type Message struct {
	From        string       `json:"from"`
	ID          string       `json:"id"`
	Timestamp   string       `json:"timestamp"`
	Type        string       `json:"type"`
	Text        *Text        `json:"text,omitempty"`
	Interactive *Interactive `json:"interactive,omitempty"`
}

type Text struct {
	Body string `json:"body"`
}

type Interactive struct {
	Type        string `json:"type"`
	ButtonReply *Reply `json:"button_reply,omitempty"`
	ListReply   *Reply `json:"list_reply,omitempty"`
}

// Reply is the option a user tapped.
type Reply struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Normalize flattens a webhook payload into engine inputs, in delivery order.
// Messages of unsupported types are dropped.
func Normalize(p WebhookPayload) []conversation.Input {
	var inputs []conversation.Input
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			for _, m := range change.Value.Messages {
				in, ok := normalizeMessage(m)
				if !ok {
					logrus.WithFields(logrus.Fields{"from": m.From, "type": m.Type}).
						Debug("[WEBHOOK] unsupported message type skipped")
					continue
				}
				inputs = append(inputs, in)
			}
		}
	}
	return inputs
}

func normalizeMessage(m Message) (conversation.Input, bool) {
	in := conversation.Input{Address: strings.TrimSpace(m.From), MessageID: m.ID}
	if in.Address == "" {
		return in, false
	}

	switch m.Type {
	case "text":
		if m.Text == nil {
			return in, false
		}
		in.Kind = conversation.InputText
		in.Value = m.Text.Body
		return in, true
	case "interactive":
		if m.Interactive == nil {
			return in, false
		}
		switch {
		case m.Interactive.Type == "button_reply" && m.Interactive.ButtonReply != nil:
			in.Kind = conversation.InputButtonReply
			in.Value = m.Interactive.ButtonReply.ID
			return in, true
		case m.Interactive.Type == "list_reply" && m.Interactive.ListReply != nil:
			in.Kind = conversation.InputListReply
			in.Value = m.Interactive.ListReply.ID
			return in, true
		}
	}
	return in, false
}
