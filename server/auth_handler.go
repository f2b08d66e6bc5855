package server

import (
	"context"
	"net/http"
	"strings"

	"SampleFinder/core/billing"
	syncsvc "SampleFinder/core/sync"
	"SampleFinder/logger"
)

type contextKey string

const principalKey contextKey = "principal"

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware is a middleware function that checks for a valid JWT token
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.tokens == nil {
			writeError(w, http.StatusServiceUnavailable, "Authentication is not configured")
			return
		}
		if r.Header.Get("Authorization") == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := h.tokens.ParseToken(token)
		if err != nil {
			logger.Warn("[Auth] 令牌校验失败", logger.ErrorField(err))
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		principal := syncsvc.Principal{UserID: claims.UserID, Email: claims.Email}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	}
}

// WithPrincipal stores the authenticated principal in ctx.
func WithPrincipal(ctx context.Context, p syncsvc.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext extracts the principal set by AuthMiddleware.
func PrincipalFromContext(ctx context.Context) (syncsvc.Principal, bool) {
	p, ok := ctx.Value(principalKey).(syncsvc.Principal)
	return p, ok && p.UserID != ""
}

// optionalPrincipal parses a bearer token when one is present on a public route.
func (h *APIHandler) optionalPrincipal(r *http.Request) (syncsvc.Principal, bool) {
	if p, ok := PrincipalFromContext(r.Context()); ok {
		return p, true
	}
	if h.tokens == nil {
		return syncsvc.Principal{}, false
	}
	token, ok := bearerToken(r)
	if !ok {
		return syncsvc.Principal{}, false
	}
	claims, err := h.tokens.ParseToken(token)
	if err != nil {
		return syncsvc.Principal{}, false
	}
	return syncsvc.Principal{UserID: claims.UserID, Email: claims.Email}, true
}

// AccountHandler returns the caller's tier and quotas.
func (h *APIHandler) AccountHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	tier := billing.TierFree
	resp := map[string]interface{}{
		"userId": principal.UserID,
		"email":  principal.Email,
	}
	if h.subscriptions != nil {
		sub, err := h.subscriptions.GetSubscription(r.Context(), principal.UserID)
		if err != nil {
			logger.Error("[Account] 查询订阅失败", logger.String("user_id", principal.UserID), logger.ErrorField(err))
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		tier = h.prices.TierFor(sub)
		resp["subscription"] = sub
	}
	resp["tier"] = tier
	if h.caps.Billing {
		resp["limits"] = billing.LimitsFor(tier)
	} else {
		resp["limits"] = billing.NoLimits()
	}
	writeJSON(w, http.StatusOK, resp)
}
