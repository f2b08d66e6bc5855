package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"SampleFinder/core/auth"
	syncsvc "SampleFinder/core/sync"
	"SampleFinder/internal/app"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t)
	h := NewAPIHandler(s.app)

	var got syncsvc.Principal
	protected := h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	foreign, err := auth.NewTokenManager("other-secret", time.Hour).GenerateToken("user-1", "")
	require.NoError(t, err)
	valid, err := s.app.Tokens.GenerateToken("user-1", "user@example.com")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"foreign signature", "Bearer " + foreign, http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.Equal(t, syncsvc.Principal{UserID: "user-1", Email: "user@example.com"}, got)
}

func TestAuthMiddleware_DisabledWithoutSecret(t *testing.T) {
	s := newTestServer(t, func(a *app.App) { a.Tokens = nil })
	req := httptest.NewRequest(http.MethodGet, "/api/account", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	assert.Equal(t, http.StatusServiceUnavailable, s.do(req).Code)
}

func TestAccountHandler_WithoutBilling(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(s.authorized(t, http.MethodGet, "/api/account", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"userId": "user-1",
		"email": "user@example.com",
		"tier": "free",
		"limits": {"maxAssets": -1, "maxPalettes": -1, "maxSimilarityResults": -1, "canExportPdf": true, "canUploadReceipts": true}
	}`, rec.Body.String())
}
