package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-bot-backend/config"
	"parking-bot-backend/internal/message"
)

func newTestClient(url string) *Client {
	return NewClient(config.WhatsAppConfig{
		APIURL:        url + "/",
		Token:         "secret",
		PhoneNumberID: "106540352242922",
		Timeout:       2 * time.Second,
	})
}

func TestClient_SendText(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/106540352242922/messages", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"messages":[{"id":"wamid.out"}]}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).Send(context.Background(), "573001112233", message.Text("hello"))
	require.NoError(t, err)

	assert.Equal(t, "whatsapp", got["messaging_product"])
	assert.Equal(t, "573001112233", got["to"])
	assert.Equal(t, "text", got["type"])
	assert.Equal(t, map[string]any{"preview_url": false, "body": "hello"}, got["text"])
	assert.NotContains(t, got, "interactive")
}

func TestClient_SendInteractive(t *testing.T) {
	testCases := []struct {
		name    string
		payload message.Payload
		check   func(t *testing.T, interactive map[string]any)
	}{
		{
			name: "buttons",
			payload: message.Buttons("Pick one",
				message.Option{ID: "view_lots", Title: "View lots"},
				message.Option{ID: "exit", Title: "Exit"},
			),
			check: func(t *testing.T, interactive map[string]any) {
				assert.Equal(t, "button", interactive["type"])
				assert.Equal(t, map[string]any{"text": "Pick one"}, interactive["body"])
				action := interactive["action"].(map[string]any)
				buttons := action["buttons"].([]any)
				require.Len(t, buttons, 2)
				assert.Equal(t, map[string]any{
					"type":  "reply",
					"reply": map[string]any{"id": "view_lots", "title": "View lots"},
				}, buttons[0])
			},
		},
		{
			name: "list",
			payload: message.List("Lots", "Choose a lot", "View lots",
				message.Option{ID: "lot_1_0", Title: "Central", Description: "3 free"},
			).WithFooter("Page 1 of 1"),
			check: func(t *testing.T, interactive map[string]any) {
				assert.Equal(t, "list", interactive["type"])
				assert.Equal(t, map[string]any{"type": "text", "text": "Lots"}, interactive["header"])
				assert.Equal(t, map[string]any{"text": "Page 1 of 1"}, interactive["footer"])
				action := interactive["action"].(map[string]any)
				assert.Equal(t, "View lots", action["button"])
				sections := action["sections"].([]any)
				require.Len(t, sections, 1)
				rows := sections[0].(map[string]any)["rows"].([]any)
				assert.Equal(t, map[string]any{"id": "lot_1_0", "title": "Central", "description": "3 free"}, rows[0])
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			}))
			defer server.Close()

			require.NoError(t, newTestClient(server.URL).Send(context.Background(), "1", tc.payload))
			assert.Equal(t, "interactive", got["type"])
			tc.check(t, got["interactive"].(map[string]any))
		})
	}
}

func TestClient_SendReportsAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Recipient phone number not in allowed list","type":"OAuthException","code":131030}}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).Send(context.Background(), "1", message.Text("hi"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "131030")
}

func TestClient_SendWithoutCredentials(t *testing.T) {
	c := NewClient(config.WhatsAppConfig{APIURL: "http://127.0.0.1:1"})
	err := c.Send(context.Background(), "1", message.Text("hi"))
	assert.True(t, errors.Is(err, ErrNotConfigured))
}
