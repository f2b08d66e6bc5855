package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SampleFinder/internal/app"
	"SampleFinder/logger"

	"github.com/gorilla/mux"
)

// NewRouter registers every API route on a gorilla/mux router.
func NewRouter(h *APIHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)

	// 素材
	api.HandleFunc("/assets", h.ListAssetsHandler).Methods(http.MethodGet)
	api.HandleFunc("/assets", h.UploadAssetHandler).Methods(http.MethodPost)
	api.HandleFunc("/assets/{id}", h.GetAssetHandler).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id}", h.UpdateAssetHandler).Methods(http.MethodPut)
	api.HandleFunc("/assets/{id}", h.DeleteAssetHandler).Methods(http.MethodDelete)
	api.HandleFunc("/assets/{id}/audio", h.AssetAudioHandler).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id}/similar", h.SimilarAssetsHandler).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id}/receipt", h.AssetReceiptHandler).Methods(http.MethodGet)

	// 调色板
	api.HandleFunc("/palettes", h.ListPalettesHandler).Methods(http.MethodGet)
	api.HandleFunc("/palettes", h.CreatePaletteHandler).Methods(http.MethodPost)
	api.HandleFunc("/palettes/{id}", h.GetPaletteHandler).Methods(http.MethodGet)
	api.HandleFunc("/palettes/{id}", h.UpdatePaletteHandler).Methods(http.MethodPut)
	api.HandleFunc("/palettes/{id}", h.DeletePaletteHandler).Methods(http.MethodDelete)
	api.HandleFunc("/palettes/{id}/assets", h.AddPaletteAssetHandler).Methods(http.MethodPost)
	api.HandleFunc("/palettes/{id}/assets/{assetId}", h.RemovePaletteAssetHandler).Methods(http.MethodDelete)
	api.HandleFunc("/palettes/{id}/assets/{assetId}/position", h.MovePaletteAssetHandler).Methods(http.MethodPut)

	// 授权凭据
	api.HandleFunc("/receipts", h.ListReceiptsHandler).Methods(http.MethodGet)
	api.HandleFunc("/receipts", h.CreateReceiptHandler).Methods(http.MethodPost)
	api.HandleFunc("/receipts/{id}", h.UpdateReceiptHandler).Methods(http.MethodPut)
	api.HandleFunc("/receipts/{id}", h.DeleteReceiptHandler).Methods(http.MethodDelete)

	api.HandleFunc("/engagement", h.EngagementHandler).Methods(http.MethodGet)
	api.HandleFunc("/engagement/signup-prompt-shown", h.SignupPromptShownHandler).Methods(http.MethodPost)
	api.HandleFunc("/embeddings", h.EmbeddingsHandler).Methods(http.MethodPost)

	api.HandleFunc("/sync/migrate", h.requireRemoteStore(h.AuthMiddleware(h.MigrateHandler))).Methods(http.MethodPost)
	api.HandleFunc("/account", h.AuthMiddleware(h.AccountHandler)).Methods(http.MethodGet)
	api.HandleFunc("/stripe/webhook", h.StripeWebhookHandler).Methods(http.MethodPost)

	return router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Stripe-Signature")
		w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start serves the API until ctx is cancelled or the process receives SIGINT/SIGTERM.
func Start(ctx context.Context, a *app.App) error {
	server := &http.Server{
		Addr:         ":" + a.Config.ServerPort,
		Handler:      NewRouter(NewAPIHandler(a)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	// 5秒超时优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
