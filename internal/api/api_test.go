package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"parking-bot-backend/config"
	"parking-bot-backend/internal/capacity"
	"parking-bot-backend/internal/conversation"
	"parking-bot-backend/internal/db"
	"parking-bot-backend/internal/message"
	"parking-bot-backend/internal/model"
	"parking-bot-backend/internal/notification"
	"parking-bot-backend/internal/store"
)

const adminToken = "test-admin"

type mockSender struct {
	mu   sync.Mutex
	sent []message.Outbound
}

func (m *mockSender) Send(_ context.Context, to string, p message.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, message.Outbound{To: to, Payload: p})
	return nil
}

func (m *mockSender) to(address string) []message.Payload {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []message.Payload
	for _, o := range m.sent {
		if o.To == address {
			out = append(out, o.Payload)
		}
	}
	return out
}

type testServer struct {
	router *gin.Engine
	store  store.Store
	sender *mockSender
	msg    message.Composer
}

func newTestServer(t *testing.T, push *webpush.Options) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gormDB))

	s := store.NewGormStore(gormDB)
	sender := &mockSender{}
	composer := message.NewComposer(time.UTC)
	svc := capacity.NewService(s, notification.NewFanOut(2, s, s, sender, composer))
	engine := conversation.NewEngine(s, s, s, svc, composer, conversation.Options{PageSize: 7, ContextTTL: 30 * time.Minute})

	h := NewHandler(Deps{
		Store:       s,
		Engine:      engine,
		Capacity:    svc,
		Sender:      sender,
		WebPush:     push,
		VerifyToken: "verify-me",
	})
	router := NewRouter(h, config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTLSeconds: 60}, adminToken)
	return &testServer{router: router, store: s, sender: sender, msg: composer}
}

func (ts *testServer) request(method, path string, body any, admin bool) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			json.NewEncoder(&buf).Encode(b)
		}
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("Authorization", "Bearer "+adminToken)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) createLot(t *testing.T, name string) LotResponse {
	t.Helper()
	w := ts.request(http.MethodPost, "/api/lots", gin.H{"name": name, "location": "Main St", "capacity": 40}, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var lot LotResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lot))
	return lot
}

func textWebhook(from, id, body string) string {
	return fmt.Sprintf(`{"object":"whatsapp_business_account","entry":[{"id":"1","changes":[{"field":"messages","value":{
		"messaging_product":"whatsapp","metadata":{"display_phone_number":"1","phone_number_id":"2"},
		"messages":[{"from":%q,"id":%q,"timestamp":"1","type":"text","text":{"body":%q}}]}}]}]}`, from, id, body)
}

func TestVerifyWebhook(t *testing.T) {
	ts := newTestServer(t, nil)

	testCases := []struct {
		name     string
		query    string
		expected int
		body     string
	}{
		{"valid", "hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=42", http.StatusOK, "42"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=42", http.StatusForbidden, "invalid verify token"},
		{"wrong mode", "hub.mode=unsubscribe&hub.verify_token=verify-me&hub.challenge=42", http.StatusForbidden, "invalid verify token"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := ts.request(http.MethodGet, "/webhook?"+tc.query, nil, false)
			assert.Equal(t, tc.expected, w.Code)
			assert.Equal(t, tc.body, w.Body.String())
		})
	}
}

func TestReceiveWebhook_RepliesAndDedupes(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.request(http.MethodPost, "/webhook", textWebhook("573001112233", "wamid.1", "hola"), false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"received","processed":1}`, w.Body.String())
	assert.Equal(t, []message.Payload{ts.msg.Welcome(), ts.msg.NamePrompt()}, ts.sender.to("573001112233"))

	// Meta redelivers the same event.
	w = ts.request(http.MethodPost, "/webhook", textWebhook("573001112233", "wamid.1", "hola"), false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"received","processed":0}`, w.Body.String())
	assert.Len(t, ts.sender.to("573001112233"), 2)

	w = ts.request(http.MethodPost, "/webhook", textWebhook("573001112233", "wamid.2", "Bob"), false)
	require.Equal(t, http.StatusOK, w.Code)
	sent := ts.sender.to("573001112233")
	assert.Equal(t, ts.msg.RegistrationConfirmed("Bob"), sent[len(sent)-1])
}

func TestReceiveWebhook_BadPayload(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.request(http.MethodPost, "/webhook", "{not json", false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateLot(t *testing.T) {
	ts := newTestServer(t, nil)

	lot := ts.createLot(t, "Central")
	assert.NotEmpty(t, lot.ID)
	assert.Equal(t, "Central", lot.Name)
	assert.False(t, lot.HasSpots)
	assert.Equal(t, "lot full", lot.Description)

	testCases := []struct {
		name     string
		body     any
		admin    bool
		expected int
	}{
		{"duplicate name", gin.H{"name": "Central", "location": "Elsewhere"}, true, http.StatusConflict},
		{"missing name", gin.H{"location": "Main St"}, true, http.StatusBadRequest},
		{"negative capacity", gin.H{"name": "North", "location": "Main St", "capacity": -1}, true, http.StatusBadRequest},
		{"malformed", "{", true, http.StatusBadRequest},
		{"no admin token", gin.H{"name": "North", "location": "Main St"}, false, http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := ts.request(http.MethodPost, "/api/lots", tc.body, tc.admin)
			assert.Equal(t, tc.expected, w.Code, w.Body.String())
		})
	}
}

func TestGetLots_CacheInvalidatedOnWrite(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.createLot(t, "Central")

	var lots []LotResponse
	w := ts.request(http.MethodGet, "/api/lots", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lots))
	assert.Len(t, lots, 1)

	ts.createLot(t, "North")
	w = ts.request(http.MethodGet, "/api/lots", nil, false)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lots))
	assert.Len(t, lots, 2)
}

func TestUpdateOccupancy(t *testing.T) {
	ts := newTestServer(t, nil)
	ctx := context.Background()
	lot := ts.createLot(t, "Central")

	_, _, err := ts.store.CreateOrGetSubscription(ctx, "A", &lot.ID)
	require.NoError(t, err)
	_, _, err = ts.store.CreateOrGetSubscription(ctx, "B", nil)
	require.NoError(t, err)

	w := ts.request(http.MethodPut, "/api/lots/"+lot.ID+"/occupancy", gin.H{"tier": 3}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Lot      LotResponse `json:"lot"`
		Notified int         `json:"notified"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Notified)
	assert.Equal(t, 10, resp.Lot.FreeEstimate)
	assert.Equal(t, "6-15 spots", resp.Lot.RangeLabel)
	assert.Len(t, ts.sender.to("A"), 1)
	assert.Len(t, ts.sender.to("B"), 1)

	w = ts.request(http.MethodPut, "/api/lots/missing/occupancy", gin.H{"tier": 2}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.request(http.MethodPut, "/api/lots/"+lot.ID+"/occupancy", gin.H{"tier": 9}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProvisionManager(t *testing.T) {
	ts := newTestServer(t, nil)
	ctx := context.Background()
	lot := ts.createLot(t, "Central")

	w := ts.request(http.MethodPost, "/api/managers", gin.H{"address": "m1", "name": "Marta", "lot_id": lot.ID}, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var user UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, "manager", user.Role)
	assert.Equal(t, "complete", user.Registration)
	require.NotNil(t, user.ManagedLotID)
	assert.Equal(t, lot.ID, *user.ManagedLotID)

	// Promote an existing driver.
	created, err := ts.store.CreateUserIfAbsent(ctx, "d1", model.RoleDriver, model.RegistrationComplete)
	require.NoError(t, err)
	require.True(t, created)
	w = ts.request(http.MethodPost, "/api/managers", gin.H{"address": "d1", "lot_id": lot.ID}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	u, err := ts.store.GetUser(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleManager, u.Role)

	w = ts.request(http.MethodPost, "/api/managers", gin.H{"address": "m2", "lot_id": "missing"}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.request(http.MethodPost, "/api/managers", gin.H{"lot_id": lot.ID}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.request(http.MethodGet, "/api/users", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	var users []UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	assert.Len(t, users, 2)
}

func TestManagerConversationOverWebhook(t *testing.T) {
	ts := newTestServer(t, nil)
	lot := ts.createLot(t, "Central")
	w := ts.request(http.MethodPost, "/api/managers", gin.H{"address": "m1", "name": "Marta", "lot_id": lot.ID}, true)
	require.Equal(t, http.StatusCreated, w.Code)

	ts.request(http.MethodPost, "/webhook", textWebhook("m1", "wamid.m1", "menu"), false)
	assert.Equal(t, []message.Payload{ts.msg.ManagerMenu("Central")}, ts.sender.to("m1"))
}

func TestPushSubscriptions(t *testing.T) {
	ts := newTestServer(t, &webpush.Options{VAPIDPublicKey: "public-key"})
	ctx := context.Background()
	_, err := ts.store.CreateUserIfAbsent(ctx, "d1", model.RoleDriver, model.RegistrationComplete)
	require.NoError(t, err)

	body := gin.H{"endpoint": "https://push.example/abc", "p256dh": "key", "auth": "auth", "address": "d1"}
	w := ts.request(http.MethodPut, "/api/push_subscriptions", body, false)
	assert.Equal(t, http.StatusCreated, w.Code)

	subs, err := ts.store.ListPushSubscriptions(ctx, "d1")
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	body["address"] = "stranger"
	w = ts.request(http.MethodPut, "/api/push_subscriptions", body, false)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.request(http.MethodPut, "/api/push_subscriptions", nil, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())

	w = ts.request(http.MethodDelete, "/api/push_subscriptions", gin.H{"endpoint": "https://push.example/abc"}, false)
	assert.Equal(t, http.StatusNoContent, w.Code)
	subs, err = ts.store.ListPushSubscriptions(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, subs)

	w = ts.request(http.MethodGet, "/api/vapid_public_key", nil, false)
	assert.JSONEq(t, `{"public_key":"public-key"}`, w.Body.String())
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.request(http.MethodGet, "/healthz", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestVAPIDKeyDisabled(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.request(http.MethodGet, "/api/vapid_public_key", nil, false)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
