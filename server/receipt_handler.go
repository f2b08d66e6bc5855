package server

import (
	"net/http"

	"SampleFinder/model"

	"github.com/gorilla/mux"
)

type receiptRequest struct {
	AssetID      string          `json:"assetId"`
	SourceURL    *string         `json:"sourceUrl"`
	Notes        *string         `json:"notes"`
	LicenseFlags map[string]bool `json:"licenseFlags"`
}

// ListReceiptsHandler returns every receipt, or those of ?assetId= when given.
func (h *APIHandler) ListReceiptsHandler(w http.ResponseWriter, r *http.Request) {
	receipts, err := h.library.Receipts(r.Context())
	if err != nil {
		writeStoreError(w, "ListReceipts", err)
		return
	}
	if assetID := r.URL.Query().Get("assetId"); assetID != "" {
		filtered := make([]model.Receipt, 0, 1)
		for _, rc := range receipts {
			if rc.AssetID == assetID {
				filtered = append(filtered, rc)
			}
		}
		receipts = filtered
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"receipts": receipts})
}

// CreateReceiptHandler attaches a license receipt to an asset.
// An asset that already has a receipt answers 409 with the existing one.
func (h *APIHandler) CreateReceiptHandler(w http.ResponseWriter, r *http.Request) {
	var req receiptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.AssetID == "" {
		writeError(w, http.StatusBadRequest, "assetId is required")
		return
	}
	if !h.limits(r).CanUploadReceipts {
		writeError(w, http.StatusForbidden, "Receipts require a paid plan")
		return
	}

	ctx := r.Context()
	existing, err := h.library.ReceiptForAsset(ctx, req.AssetID)
	if err != nil {
		writeStoreError(w, "CreateReceipt", err)
		return
	}
	if existing != nil {
		writeJSON(w, http.StatusConflict, existing)
		return
	}

	receipt := model.Receipt{AssetID: req.AssetID, LicenseFlags: req.LicenseFlags}
	if req.SourceURL != nil {
		receipt.SourceURL = *req.SourceURL
	}
	if req.Notes != nil {
		receipt.Notes = *req.Notes
	}
	created, err := h.library.AddReceipt(ctx, receipt)
	if err != nil {
		writeStoreError(w, "CreateReceipt", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateReceiptHandler edits a receipt. A licenseFlags object replaces the stored flags.
func (h *APIHandler) UpdateReceiptHandler(w http.ResponseWriter, r *http.Request) {
	var req receiptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	updated, err := h.library.UpdateReceipt(r.Context(), mux.Vars(r)["id"], model.ReceiptPatch{
		SourceURL:    req.SourceURL,
		Notes:        req.Notes,
		LicenseFlags: req.LicenseFlags,
	})
	if err != nil {
		writeStoreError(w, "UpdateReceipt", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *APIHandler) DeleteReceiptHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.library.DeleteReceipt(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeStoreError(w, "DeleteReceipt", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
