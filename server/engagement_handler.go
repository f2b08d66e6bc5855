package server

import (
	"net/http"
	"strings"

	"SampleFinder/core/library"
	"SampleFinder/core/similarity"
	"SampleFinder/logger"
	"SampleFinder/model"
)

type engagementResponse struct {
	model.Engagement
	ShowSignupPrompt bool `json:"showSignupPrompt"`
}

// EngagementHandler returns the usage counters and whether to show the signup prompt.
func (h *APIHandler) EngagementHandler(w http.ResponseWriter, r *http.Request) {
	state, err := h.library.Snapshot(r.Context())
	if err != nil {
		writeStoreError(w, "Engagement", err)
		return
	}
	writeJSON(w, http.StatusOK, engagementResponse{
		Engagement:       state.Engagement,
		ShowSignupPrompt: library.ShouldShowSignupPrompt(state),
	})
}

// SignupPromptShownHandler records that the prompt was displayed.
func (h *APIHandler) SignupPromptShownHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.library.MarkSignupPromptShown(ctx); err != nil {
		writeStoreError(w, "SignupPromptShown", err)
		return
	}
	h.EngagementHandler(w, r)
}

// EmbeddingsHandler serves POST /api/embeddings. Without a real embedding
// service it answers {"disabled": true}; callers then compute the
// deterministic embedding themselves.
func (h *APIHandler) EmbeddingsHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Descriptor string `json:"descriptor"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Descriptor) == "" {
		writeError(w, http.StatusBadRequest, "descriptor is required")
		return
	}
	if h.embedder == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"disabled": true})
		return
	}

	vec, source, err := h.embedder.EmbedWithSource(r.Context(), req.Descriptor)
	if err != nil || source == similarity.SourceDeterministic {
		if err != nil {
			logger.Warn("[Embeddings] 生成向量失败", logger.ErrorField(err))
		}
		writeJSON(w, http.StatusOK, map[string]bool{"disabled": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"embedding": vec,
		"source":    source,
	})
}
