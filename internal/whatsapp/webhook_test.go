package whatsapp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-bot-backend/internal/conversation"
)

const samplePayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "102290129340398",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "15550783881", "phone_number_id": "106540352242922"},
        "contacts": [{"profile": {"name": "Bob"}, "wa_id": "573001112233"}],
        "messages": [
          {"from": "573001112233", "id": "wamid.A", "timestamp": "1718000000", "type": "text", "text": {"body": "  hola  "}},
          {"from": "573001112233", "id": "wamid.B", "timestamp": "1718000001", "type": "interactive",
           "interactive": {"type": "button_reply", "button_reply": {"id": "view_lots", "title": "View lots"}}},
          {"from": "573001112233", "id": "wamid.C", "timestamp": "1718000002", "type": "interactive",
           "interactive": {"type": "list_reply", "list_reply": {"id": "lot_1_0", "title": "Central", "description": "3 free"}}},
          {"from": "573001112233", "id": "wamid.D", "timestamp": "1718000003", "type": "image"}
        ]
      }
    }]
  }]
}`

func TestNormalize(t *testing.T) {
	var p WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(samplePayload), &p))

	inputs := Normalize(p)
	assert.Equal(t, []conversation.Input{
		{Address: "573001112233", MessageID: "wamid.A", Kind: conversation.InputText, Value: "  hola  "},
		{Address: "573001112233", MessageID: "wamid.B", Kind: conversation.InputButtonReply, Value: "view_lots"},
		{Address: "573001112233", MessageID: "wamid.C", Kind: conversation.InputListReply, Value: "lot_1_0"},
	}, inputs)
}

func TestNormalize_SkipsUnusableMessages(t *testing.T) {
	testCases := []struct {
		name string
		msg  Message
	}{
		{"status only", Message{}},
		{"text without body", Message{From: "1", ID: "x", Type: "text"}},
		{"no sender", Message{ID: "x", Type: "text", Text: &Text{Body: "hi"}}},
		{"interactive without reply", Message{From: "1", ID: "x", Type: "interactive", Interactive: &Interactive{Type: "button_reply"}}},
		{"unknown interactive", Message{From: "1", ID: "x", Type: "interactive", Interactive: &Interactive{Type: "nfm_reply"}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := WebhookPayload{Entry: []Entry{{Changes: []Change{{Value: Value{Messages: []Message{tc.msg}}}}}}}
			assert.Empty(t, Normalize(p))
		})
	}
}

func TestNormalize_DeliveryReceipts(t *testing.T) {
	p := WebhookPayload{Entry: []Entry{{Changes: []Change{{Value: Value{
		Statuses: []Status{{ID: "wamid.X", Status: "delivered", RecipientID: "573001112233"}},
	}}}}}}
	assert.Empty(t, Normalize(p))
}
