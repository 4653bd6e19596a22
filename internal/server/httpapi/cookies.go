package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/vidhub/internal/common"
	"github.com/dmitrijs2005/vidhub/internal/server/models"
)

func (h *Handler) setSessionCookies(w http.ResponseWriter, pair *models.TokenPair) {
	http.SetCookie(w, h.cookie(common.AccessTokenCookieName, pair.AccessToken, pair.AccessExpiresAt))
	http.SetCookie(w, h.cookie(common.RefreshTokenCookieName, pair.RefreshToken, pair.RefreshExpiresAt))
}

func (h *Handler) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, h.cookie(common.AccessTokenCookieName, "", time.Time{}))
	h.clearRefreshCookie(w)
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, h.cookie(common.RefreshTokenCookieName, "", time.Time{}))
}

// cookie builds an http-only auth cookie living until expires. A zero
// expires deletes the cookie.
func (h *Handler) cookie(name, value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	}

	if !expires.IsZero() {
		c.Expires = expires
		c.MaxAge = max(int(expires.Sub(h.now()).Seconds()), 1)
	}

	return c
}
