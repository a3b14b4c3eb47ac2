package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"parking-bot-backend/config"
	"parking-bot-backend/internal/api"
	"parking-bot-backend/internal/capacity"
	"parking-bot-backend/internal/conversation"
	"parking-bot-backend/internal/db"
	"parking-bot-backend/internal/message"
	"parking-bot-backend/internal/notification"
	"parking-bot-backend/internal/store"
	"parking-bot-backend/internal/whatsapp"
)

// cloudAPI records what the bot posts to the WhatsApp Cloud API.
type cloudAPI struct {
	mu   sync.Mutex
	sent map[string][]string
}

func (c *cloudAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		To   string `json:"to"`
		Text *struct {
			Body string `json:"body"`
		} `json:"text"`
		Interactive *struct {
			Body struct {
				Text string `json:"text"`
			} `json:"body"`
		} `json:"interactive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	text := ""
	switch {
	case body.Text != nil:
		text = body.Text.Body
	case body.Interactive != nil:
		text = body.Interactive.Body.Text
	}
	c.mu.Lock()
	c.sent[body.To] = append(c.sent[body.To], text)
	c.mu.Unlock()
	w.Write([]byte(`{"messages":[{"id":"wamid.out"}]}`))
}

func (c *cloudAPI) last(to string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := c.sent[to]
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

type bot struct {
	t      *testing.T
	server *httptest.Server
	seq    int
}

func (b *bot) post(path, token string, body any) *http.Response {
	b.t.Helper()
	var buf bytes.Buffer
	require.NoError(b.t, json.NewEncoder(&buf).Encode(body))
	req, err := http.NewRequest(http.MethodPost, b.server.URL+path, &buf)
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(b.t, err)
	return resp
}

// chat delivers one inbound message through the webhook. Values containing an
// underscore are sent as list replies, the way the client echoes option ids.
func (b *bot) chat(from, value string) {
	b.t.Helper()
	b.seq++
	msg := map[string]any{"from": from, "id": fmt.Sprintf("wamid.in.%d", b.seq), "timestamp": "1"}
	switch {
	case strings.Contains(value, "_"):
		msg["type"] = "interactive"
		msg["interactive"] = map[string]any{"type": "list_reply", "list_reply": map[string]any{"id": value, "title": value}}
	default:
		msg["type"] = "text"
		msg["text"] = map[string]any{"body": value}
	}
	payload := map[string]any{
		"object": "whatsapp_business_account",
		"entry": []any{map[string]any{"id": "1", "changes": []any{map[string]any{
			"field": "messages",
			"value": map[string]any{
				"messaging_product": "whatsapp",
				"metadata":          map[string]any{"display_phone_number": "1", "phone_number_id": "2"},
				"messages":          []any{msg},
			},
		}}}},
	}
	resp := b.post("/webhook", "", payload)
	resp.Body.Close()
	require.Equal(b.t, http.StatusOK, resp.StatusCode)
}

// TestParkingLifecycle drives two drivers and a manager through the webhook
// and checks what reaches the Cloud API.
func TestParkingLifecycle(t *testing.T) {
	// --- Setup ---
	testDB, err := gorm.Open(sqlite.Open("file:lifecycle?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))

	upstream := &cloudAPI{sent: map[string][]string{}}
	cloud := httptest.NewServer(upstream)
	defer cloud.Close()

	cfg := &config.Config{
		Server:   config.ServerConfig{RateLimitPerSec: 100, RateLimitBurst: 100, CacheTTLSeconds: 30},
		WhatsApp: config.WhatsAppConfig{APIURL: cloud.URL, Token: "token", PhoneNumberID: "2", VerifyToken: "verify", Timeout: 5 * time.Second},
		Admin:    config.AdminConfig{Token: "admin"},
	}
	cfg.WorkerPool.Size = 4

	appStore := store.NewGormStore(testDB)
	composer := message.NewComposer(time.UTC)
	chat := whatsapp.NewClient(cfg.WhatsApp)
	fanOut := notification.NewFanOut(cfg.WorkerPool.Size, appStore, appStore, chat, composer)
	capacitySvc := capacity.NewService(appStore, fanOut)
	engine := conversation.NewEngine(appStore, appStore, appStore, capacitySvc, composer,
		conversation.Options{PageSize: 7, ContextTTL: 30 * time.Minute})
	handler := api.NewHandler(api.Deps{
		Store:       appStore,
		Engine:      engine,
		Capacity:    capacitySvc,
		Sender:      chat,
		VerifyToken: cfg.WhatsApp.VerifyToken,
	})
	server := httptest.NewServer(api.NewRouter(handler, cfg.Server, cfg.Admin.Token))
	defer server.Close()
	b := &bot{t: t, server: server}

	// --- Provisioning ---
	resp := b.post("/api/lots", "admin", map[string]any{"name": "Central", "location": "Main St 1", "capacity": 40})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var lot api.LotResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&lot))
	resp.Body.Close()

	resp = b.post("/api/managers", "admin", map[string]any{"address": "570000000001", "name": "Marta", "lot_id": lot.ID})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// --- Drivers register and subscribe ---
	b.chat("570000000010", "hola")
	assert.Contains(t, upstream.last("570000000010"), "name")
	b.chat("570000000010", "Ana")
	assert.Contains(t, upstream.last("570000000010"), "Ana")
	b.chat("570000000010", "menu")
	b.chat("570000000010", "subscriptions")
	b.chat("570000000010", "subscribe_all")

	b.chat("570000000020", "hi")
	b.chat("570000000020", "Leo")
	b.chat("570000000020", "menu")
	b.chat("570000000020", "2")
	b.chat("570000000020", "subscribe_specific")
	b.chat("570000000020", "sub_1_0")
	assert.Contains(t, upstream.last("570000000020"), "What would you like to do?")

	// --- Manager reports spots ---
	b.chat("570000000001", "menu")
	assert.Contains(t, upstream.last("570000000001"), "Central")
	b.chat("570000000001", "update_capacity")
	b.chat("570000000001", "tier_3")
	assert.Contains(t, upstream.last("570000000001"), "6-15 spots")
	b.chat("570000000001", "confirm_capacity")

	// --- Verification ---
	for _, driver := range []string{"570000000010", "570000000020"} {
		assert.Contains(t, upstream.last(driver), "Central", "driver %s should be told the lot has spots", driver)
		assert.Contains(t, upstream.last(driver), "6-15 spots")
	}

	stored, err := appStore.GetLot(t.Context(), lot.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasSpots)
	assert.Equal(t, 10, stored.FreeEstimate)

	upstream.mu.Lock()
	managerMsgs := upstream.sent["570000000001"]
	upstream.mu.Unlock()
	require.GreaterOrEqual(t, len(managerMsgs), 2)
	assert.Contains(t, managerMsgs[len(managerMsgs)-2], "Notifications sent:* 2")
}
