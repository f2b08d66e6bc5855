package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	syncsvc "SampleFinder/core/sync"
	"SampleFinder/logger"
	"SampleFinder/model"
)

const maxWebhookSize = 1 << 20

// requireRemoteStore answers {"disabled": true} when no remote store is configured.
func (h *APIHandler) requireRemoteStore(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.migrator == nil {
			writeJSON(w, http.StatusOK, map[string]bool{"disabled": true})
			return
		}
		next.ServeHTTP(w, r)
	}
}

// MigrateHandler reconciles a local dataset into the caller's remote library.
// An empty body migrates this server's own local library.
func (h *APIHandler) MigrateHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	ctx := r.Context()
	local := len(bytes.TrimSpace(body)) == 0
	var dataset model.Dataset
	if local {
		dataset, err = h.library.ExportDataset(ctx)
		if err != nil {
			writeStoreError(w, "Migrate", err)
			return
		}
	} else if err := json.Unmarshal(body, &dataset); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid dataset")
		return
	}

	summary, err := h.migrator.Migrate(ctx, principal, dataset)
	if err != nil {
		if errors.Is(err, syncsvc.ErrNoPrincipal) {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		logger.Error("[Migrate] 迁移失败", logger.String("user_id", principal.UserID), logger.ErrorField(err))
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"ok": false, "error": "Migration failed"})
		return
	}

	if local {
		if err := h.library.MarkSyncedToCloud(ctx); err != nil {
			logger.Warn("[Migrate] 标记同步状态失败", logger.ErrorField(err))
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"migrated": summary,
	})
}

// StripeWebhookHandler applies billing events. It always answers 200.
func (h *APIHandler) StripeWebhookHandler(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookSize))
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": false, "reason": "invalid_body"})
		return
	}
	result := h.webhooks.Process(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	writeJSON(w, http.StatusOK, result)
}
