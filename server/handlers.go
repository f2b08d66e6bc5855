package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"SampleFinder/config"
	"SampleFinder/core/auth"
	"SampleFinder/core/billing"
	"SampleFinder/core/ingest"
	"SampleFinder/core/library"
	"SampleFinder/core/similarity"
	syncsvc "SampleFinder/core/sync"
	"SampleFinder/internal/app"
	"SampleFinder/logger"
	"SampleFinder/repository"
	"SampleFinder/storage"
)

const maxUploadSize = 64 << 20

// APIHandler 处理所有API请求
type APIHandler struct {
	library       *library.Store
	pipeline      *ingest.Pipeline
	blobs         storage.BlobStore
	embedder      similarity.SourceEmbedder
	migrator      *syncsvc.Migrator
	tokens        *auth.TokenManager
	webhooks      *billing.WebhookProcessor
	subscriptions *repository.SubscriptionRepository
	prices        billing.Prices
	caps          config.Capabilities
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(a *app.App) *APIHandler {
	return &APIHandler{
		library:       a.Library,
		pipeline:      a.Pipeline,
		blobs:         a.Blobs,
		embedder:      a.Embedder,
		migrator:      a.Migrator,
		tokens:        a.Tokens,
		webhooks:      a.Webhooks,
		subscriptions: a.Subscriptions,
		prices:        a.Prices,
		caps:          a.Capabilities,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeStoreError maps library errors onto HTTP status codes.
func writeStoreError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, library.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	logger.Error("["+op+"] 操作失败", logger.ErrorField(err))
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// HealthHandler reports liveness and which optional services are enabled.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"capabilities": h.caps,
	})
}

// limits resolves the quotas of the caller. Without billing nothing is capped;
// anonymous callers get the free tier.
func (h *APIHandler) limits(r *http.Request) billing.Limits {
	if !h.caps.Billing {
		return billing.NoLimits()
	}
	principal, ok := h.optionalPrincipal(r)
	if !ok || h.subscriptions == nil {
		return billing.LimitsFor(billing.TierFree)
	}
	sub, err := h.subscriptions.GetSubscription(r.Context(), principal.UserID)
	if err != nil {
		logger.Warn("failed to load subscription, using free tier",
			logger.String("user_id", principal.UserID), logger.ErrorField(err))
		return billing.LimitsFor(billing.TierFree)
	}
	return billing.LimitsFor(h.prices.TierFor(sub))
}
