package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"SampleFinder/core/billing"
	"SampleFinder/db"
	"SampleFinder/internal/app"
	"SampleFinder/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func withDatabase(t *testing.T) func(*app.App) {
	return func(a *app.App) {
		gdb, err := db.Open(sqlite.Open(filepath.Join(t.TempDir(), "remote.db")), gormlogger.Silent)
		require.NoError(t, err)
		require.NoError(t, db.AutoMigrate(gdb))
		t.Cleanup(func() { _ = db.Close(gdb) })
		a.UseDatabase(gdb)
	}
}

func (s *testServer) authorized(t *testing.T, method, path string, body []byte) *http.Request {
	t.Helper()
	token, err := s.app.Tokens.GenerateToken("user-1", "user@example.com")
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func countRows(t *testing.T, gdb *gorm.DB, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(m).Count(&n).Error)
	return n
}

func TestMigrateHandler_DisabledWithoutRemoteStore(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(httptest.NewRequest(http.MethodPost, "/api/sync/migrate", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"disabled":true}`, rec.Body.String())
}

func TestMigrateHandler_RequiresToken(t *testing.T) {
	s := newTestServer(t, withDatabase(t))
	rec := s.do(httptest.NewRequest(http.MethodPost, "/api/sync/migrate", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMigrateHandler_LocalLibrary(t *testing.T) {
	s := newTestServer(t, withDatabase(t))
	a := s.mustUpload(t, "a.wav", []byte("a"), "")
	b := s.mustUpload(t, "b.wav", []byte("b"), "")
	s.doJSON(t, http.MethodPost, "/api/palettes", map[string]interface{}{"name": "Kit", "assetIds": []string{b.ID, a.ID}})
	s.doJSON(t, http.MethodPost, "/api/receipts", map[string]interface{}{"assetId": a.ID})

	for i := 0; i < 2; i++ {
		rec := s.do(s.authorized(t, http.MethodPost, "/api/sync/migrate", nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"ok":true,"migrated":{"assets":2,"palettes":1,"receipts":1}}`, rec.Body.String())
	}

	gdb := s.app.DB
	assert.EqualValues(t, 1, countRows(t, gdb, &model.Profile{}))
	assert.EqualValues(t, 2, countRows(t, gdb, &model.RemoteAsset{}))
	assert.EqualValues(t, 1, countRows(t, gdb, &model.RemotePalette{}))
	assert.EqualValues(t, 2, countRows(t, gdb, &model.PaletteItem{}))
	assert.EqualValues(t, 1, countRows(t, gdb, &model.RemoteReceipt{}))

	engagement, err := s.app.Library.Engagement(context.Background())
	require.NoError(t, err)
	assert.True(t, engagement.SyncedToCloud)
}

func TestMigrateHandler_PostedDataset(t *testing.T) {
	s := newTestServer(t, withDatabase(t))
	dataset := model.Dataset{
		Assets: []model.Asset{{ID: "local-1", Title: "Clap", ContentHash: "h1", Tags: []string{"clap"}}},
		Palettes: []model.Palette{
			{ID: "p1", Name: "Claps", AssetIDs: []string{"local-1"}},
		},
	}
	body, err := json.Marshal(dataset)
	require.NoError(t, err)

	rec := s.do(s.authorized(t, http.MethodPost, "/api/sync/migrate", body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ok":true,"migrated":{"assets":1,"palettes":1,"receipts":0}}`, rec.Body.String())

	engagement, err := s.app.Library.Engagement(context.Background())
	require.NoError(t, err)
	assert.False(t, engagement.SyncedToCloud, "a posted dataset does not touch this server's library")

	rec = s.do(s.authorized(t, http.MethodPost, "/api/sync/migrate", []byte("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccountHandler(t *testing.T) {
	s := newTestServer(t, withDatabase(t), func(a *app.App) {
		a.Capabilities.Billing = true
		a.Prices = billing.Prices{Pro: "price_pro", ProPlus: "price_plus"}
	})
	price := "price_plus"
	require.NoError(t, s.app.Subscriptions.UpsertSubscription(context.Background(), &model.Subscription{
		UserID:  "user-1",
		Status:  "active",
		PriceID: &price,
	}))

	rec := s.do(s.authorized(t, http.MethodGet, "/api/account", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		UserID string         `json:"userId"`
		Tier   billing.Tier   `json:"tier"`
		Limits billing.Limits `json:"limits"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "user-1", body.UserID)
	assert.Equal(t, billing.TierProPlus, body.Tier)
	assert.Equal(t, billing.LimitsFor(billing.TierProPlus), body.Limits)

	// the paid tier lifts the anonymous palette cap for this caller
	for i := 0; i < 6; i++ {
		payload, _ := json.Marshal(map[string]string{"name": string(rune('a' + i))})
		req := s.authorized(t, http.MethodPost, "/api/palettes", payload)
		require.Equal(t, http.StatusCreated, s.do(req).Code)
	}
}

func TestStripeWebhookHandler(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.do(httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader([]byte(`{}`))))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"ok":false,"reason":"not_configured"}`, rec.Body.String())
	})

	t.Run("subscription deleted", func(t *testing.T) {
		s := newTestServer(t, func(a *app.App) { a.Capabilities.Billing = true }, withDatabase(t))
		require.NotNil(t, s.app.Webhooks)
		ctx := context.Background()
		require.NoError(t, s.app.Subscriptions.UpsertSubscription(ctx, &model.Subscription{UserID: "u1", Status: "active"}))

		event := `{"id":"evt_3","object":"event","type":"customer.subscription.deleted",
			"data":{"object":{"id":"sub_1","object":"subscription","status":"canceled","metadata":{"user_id":"u1"}}}}`
		rec := s.do(httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader([]byte(event))))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

		sub, err := s.app.Subscriptions.GetSubscription(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "canceled", sub.Status)
	})
}
