package server

import (
	"fmt"
	"net/http"
	"strings"

	"SampleFinder/core/billing"
	"SampleFinder/model"

	"github.com/gorilla/mux"
)

type paletteRequest struct {
	Name     *string  `json:"name"`
	Notes    *string  `json:"notes"`
	AssetIDs []string `json:"assetIds"`
}

// ListPalettesHandler returns every palette.
func (h *APIHandler) ListPalettesHandler(w http.ResponseWriter, r *http.Request) {
	palettes, err := h.library.Palettes(r.Context())
	if err != nil {
		writeStoreError(w, "ListPalettes", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"palettes": palettes})
}

// CreatePaletteHandler creates a palette, optionally seeded with asset ids.
func (h *APIHandler) CreatePaletteHandler(w http.ResponseWriter, r *http.Request) {
	var req paletteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Palette name is required")
		return
	}

	ctx := r.Context()
	palettes, err := h.library.Palettes(ctx)
	if err != nil {
		writeStoreError(w, "CreatePalette", err)
		return
	}
	if limits := h.limits(r); !billing.Within(limits.MaxPalettes, len(palettes)) {
		writeError(w, http.StatusForbidden, fmt.Sprintf("Palette limit of %d reached", limits.MaxPalettes))
		return
	}

	palette := model.Palette{Name: strings.TrimSpace(*req.Name), AssetIDs: req.AssetIDs}
	if req.Notes != nil {
		palette.Notes = *req.Notes
	}
	created, err := h.library.AddPalette(ctx, palette)
	if err != nil {
		writeStoreError(w, "CreatePalette", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetPaletteHandler returns one palette.
func (h *APIHandler) GetPaletteHandler(w http.ResponseWriter, r *http.Request) {
	palette, err := h.library.Palette(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, "GetPalette", err)
		return
	}
	if palette == nil {
		writeError(w, http.StatusNotFound, "Palette not found")
		return
	}
	writeJSON(w, http.StatusOK, palette)
}

// UpdatePaletteHandler renames a palette, edits its notes or replaces its asset order.
func (h *APIHandler) UpdatePaletteHandler(w http.ResponseWriter, r *http.Request) {
	var req paletteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Palette name must not be empty")
		return
	}

	updated, err := h.library.UpdatePalette(r.Context(), mux.Vars(r)["id"], model.PalettePatch{
		Name:     req.Name,
		Notes:    req.Notes,
		AssetIDs: req.AssetIDs,
	})
	if err != nil {
		writeStoreError(w, "UpdatePalette", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeletePaletteHandler removes a palette. Its assets stay in the library.
func (h *APIHandler) DeletePaletteHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.library.DeletePalette(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeStoreError(w, "DeletePalette", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddPaletteAssetHandler appends an asset. Adding an asset twice is a no-op.
func (h *APIHandler) AddPaletteAssetHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssetID string `json:"assetId"`
	}
	if err := decodeJSON(r, &req); err != nil || req.AssetID == "" {
		writeError(w, http.StatusBadRequest, "assetId is required")
		return
	}
	updated, err := h.library.AddAssetToPalette(r.Context(), mux.Vars(r)["id"], req.AssetID)
	if err != nil {
		writeStoreError(w, "AddPaletteAsset", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// RemovePaletteAssetHandler removes an asset from a palette.
func (h *APIHandler) RemovePaletteAssetHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	updated, err := h.library.RemoveAssetFromPalette(r.Context(), vars["id"], vars["assetId"])
	if err != nil {
		writeStoreError(w, "RemovePaletteAsset", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// MovePaletteAssetHandler moves an asset to a new index. Out-of-range indexes are clamped.
func (h *APIHandler) MovePaletteAssetHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index *int `json:"index"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Index == nil {
		writeError(w, http.StatusBadRequest, "index is required")
		return
	}
	vars := mux.Vars(r)
	updated, err := h.library.MovePaletteAsset(r.Context(), vars["id"], vars["assetId"], *req.Index)
	if err != nil {
		writeStoreError(w, "MovePaletteAsset", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
