package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/vidhub/internal/common"
	"github.com/dmitrijs2005/vidhub/internal/server/auth"
	"github.com/dmitrijs2005/vidhub/internal/server/models"
	"github.com/dmitrijs2005/vidhub/internal/server/sessionctx"
	"github.com/go-chi/chi/v5/middleware"
)

// requireSession resolves the access token to a user and attaches it to the
// request context. Every request is verified against the store.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := accessTokenFrom(r)
		if token == "" {
			h.writeError(w, r, fmt.Errorf("%w: missing access token", common.ErrorUnauthorized))
			return
		}

		userID, err := h.tokens.Verify(token, auth.PurposeAccess)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: %v", common.ErrorUnauthorized, err))
			return
		}

		user, err := h.accounts.CurrentUser(r.Context(), userID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				err = fmt.Errorf("%w: user %s no longer exists", common.ErrorUnauthorized, userID)
			}
			h.writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(sessionctx.WithUser(r.Context(), user)))
	})
}

// accessTokenFrom prefers the cookie and falls back to a bearer header.
func accessTokenFrom(r *http.Request) string {
	if c, err := r.Cookie(common.AccessTokenCookieName); err == nil {
		if v := strings.TrimSpace(c.Value); v != "" {
			return v
		}
	}

	header := strings.TrimSpace(r.Header.Get(common.AuthorizationHeaderName))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// sessionUser returns the user attached by requireSession. Its absence means
// a protected route was mounted outside the middleware.
func sessionUser(r *http.Request) (*models.PublicUser, error) {
	u, ok := sessionctx.UserFromContext(r.Context())
	if !ok {
		return nil, fmt.Errorf("%w: no session on protected route %s", common.ErrorInternal, r.URL.Path)
	}
	return u, nil
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		h.logger.Info(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
