package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"SampleFinder/core/billing"
	"SampleFinder/core/ingest"
	"SampleFinder/core/similarity"
	"SampleFinder/logger"
	"SampleFinder/model"

	"github.com/gorilla/mux"
)

const defaultSimilarLimit = 10

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return ingest.NormalizeTags(strings.Split(raw, ","))
}

// ListAssetsHandler returns every asset in insertion order.
func (h *APIHandler) ListAssetsHandler(w http.ResponseWriter, r *http.Request) {
	assets, err := h.library.Assets(r.Context())
	if err != nil {
		writeStoreError(w, "ListAssets", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"assets": assets})
}

// UploadAssetHandler ingests one audio file.
// Expected multipart form fields:
// - file: the audio file
// - title: optional, defaults to the filename without extension
// - tags: optional, comma separated
func (h *APIHandler) UploadAssetHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max memory
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to parse multipart form: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing 'file' in form")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to read file: %v", err))
		return
	}

	ctx := r.Context()
	existing, err := h.library.AssetByContentHash(ctx, ingest.ContentHash(data))
	if err != nil {
		writeStoreError(w, "UploadAsset", err)
		return
	}
	if existing != nil {
		writeJSON(w, http.StatusOK, existing)
		return
	}

	assets, err := h.library.Assets(ctx)
	if err != nil {
		writeStoreError(w, "UploadAsset", err)
		return
	}
	if limits := h.limits(r); !billing.Within(limits.MaxAssets, len(assets)) {
		writeError(w, http.StatusForbidden, fmt.Sprintf("Asset limit of %d reached", limits.MaxAssets))
		return
	}

	asset, err := h.pipeline.Ingest(ctx, ingest.RawFile{
		Filename: header.Filename,
		Title:    r.FormValue("title"),
		Tags:     splitTags(r.FormValue("tags")),
		Data:     data,
	})
	if err != nil {
		writeStoreError(w, "UploadAsset", err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

// GetAssetHandler returns one asset.
func (h *APIHandler) GetAssetHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	asset, err := h.library.Asset(r.Context(), id)
	if err != nil {
		writeStoreError(w, "GetAsset", err)
		return
	}
	if asset == nil {
		writeError(w, http.StatusNotFound, "Asset not found")
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

type updateAssetRequest struct {
	Title *string  `json:"title"`
	Tags  []string `json:"tags"` // nil leaves tags unchanged
}

// UpdateAssetHandler renames an asset or replaces its tags. New tags rebuild
// the descriptor and embedding.
func (h *APIHandler) UpdateAssetHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req updateAssetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	var updated *model.Asset
	if req.Tags != nil {
		asset, err := h.pipeline.Retag(ctx, id, req.Tags)
		if err != nil {
			writeStoreError(w, "UpdateAsset", err)
			return
		}
		updated = asset
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			writeError(w, http.StatusBadRequest, "Title must not be empty")
			return
		}
		asset, err := h.library.UpdateAsset(ctx, id, model.AssetPatch{Title: &title})
		if err != nil {
			writeStoreError(w, "UpdateAsset", err)
			return
		}
		updated = &asset
	}
	if updated == nil {
		h.GetAssetHandler(w, r)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteAssetHandler removes an asset, its palette memberships, its receipts and its audio.
func (h *APIHandler) DeleteAssetHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx := r.Context()
	if err := h.library.DeleteAsset(ctx, id); err != nil {
		writeStoreError(w, "DeleteAsset", err)
		return
	}
	if h.blobs != nil {
		if err := h.blobs.Delete(ctx, id); err != nil {
			logger.Warn("[DeleteAsset] 删除音频失败", logger.String("asset_id", id), logger.ErrorField(err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// AssetAudioHandler streams the raw bytes of an asset.
func (h *APIHandler) AssetAudioHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if h.blobs == nil {
		writeError(w, http.StatusNotFound, "Audio storage is not configured")
		return
	}
	data, err := h.blobs.Get(r.Context(), id)
	if err != nil {
		logger.Error("[AssetAudio] 读取音频失败", logger.String("asset_id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if data == nil {
		writeError(w, http.StatusNotFound, "Audio not found")
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=31536000")
	if _, err := w.Write(data); err != nil {
		logger.Warn("[AssetAudio] 写入响应失败", logger.ErrorField(err))
	}
}

// SimilarAssetsHandler ranks the library against one asset.
// Query: limit (default 10, capped by tier), embeddings (default true).
func (h *APIHandler) SimilarAssetsHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	query := r.URL.Query()

	limit := defaultSimilarLimit
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}
	useEmbeddings := true
	if raw := query.Get("embeddings"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid embeddings flag")
			return
		}
		useEmbeddings = b
	}
	limit = h.limits(r).ClampResults(limit)

	ctx := r.Context()
	state, err := h.library.Snapshot(ctx)
	if err != nil {
		writeStoreError(w, "SimilarAssets", err)
		return
	}
	var target *model.Asset
	for i := range state.Assets {
		if state.Assets[i].ID == id {
			target = &state.Assets[i]
			break
		}
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "Asset not found")
		return
	}

	results := similarity.RankSimilar(*target, state.Assets, limit, useEmbeddings)
	if results == nil {
		results = []similarity.Result{}
	}
	if err := h.library.RecordSimilaritySearch(ctx); err != nil {
		writeStoreError(w, "SimilarAssets", err)
		return
	}
	showPrompt, err := h.library.ShouldShowSignupPrompt(ctx)
	if err != nil {
		writeStoreError(w, "SimilarAssets", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results":          results,
		"showSignupPrompt": showPrompt,
	})
}

// AssetReceiptHandler returns the receipt attached to an asset.
func (h *APIHandler) AssetReceiptHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	receipt, err := h.library.ReceiptForAsset(r.Context(), id)
	if err != nil {
		writeStoreError(w, "AssetReceipt", err)
		return
	}
	if receipt == nil {
		writeError(w, http.StatusNotFound, "Receipt not found")
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
