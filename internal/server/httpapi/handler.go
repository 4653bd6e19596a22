package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/vidhub/internal/logging"
	"github.com/dmitrijs2005/vidhub/internal/server/auth"
	"github.com/dmitrijs2005/vidhub/internal/server/models"
	"github.com/dmitrijs2005/vidhub/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SessionManager is the session lifecycle used by the handlers.
type SessionManager interface {
	Login(ctx context.Context, identifier, password string) (*services.LoginResult, error)
	Logout(ctx context.Context, userID string) error
	Refresh(ctx context.Context, presented string) (*models.TokenPair, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

// AccountManager covers registration and profile operations.
type AccountManager interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.PublicUser, error)
	CurrentUser(ctx context.Context, userID string) (*models.PublicUser, error)
	UpdateAccountDetails(ctx context.Context, userID, fullName, email string) (*models.PublicUser, error)
	UpdateAvatar(ctx context.Context, userID, localPath string) (*models.PublicUser, error)
	UpdateCoverImage(ctx context.Context, userID, localPath string) (*models.PublicUser, error)
	ChannelProfile(ctx context.Context, userName, viewerID string) (*models.ChannelProfile, error)
}

// TokenVerifier checks access tokens on protected routes.
type TokenVerifier interface {
	Verify(token string, purpose auth.Purpose) (string, error)
}

// Options tune the transport.
type Options struct {
	CookieSecure   bool
	UploadDir      string
	MaxUploadBytes int64
}

type Handler struct {
	sessions SessionManager
	accounts AccountManager
	tokens   TokenVerifier
	logger   logging.Logger
	opts     Options
	now      func() time.Time
}

func NewHandler(sessions SessionManager, accounts AccountManager, tokens TokenVerifier, l logging.Logger, opts Options) *Handler {
	return &Handler{
		sessions: sessions,
		accounts: accounts,
		tokens:   tokens,
		logger:   l.With("module", "httpapi"),
		opts:     opts,
		now:      time.Now,
	}
}

// Routes builds the router. Everything under /api/v1/users except
// register, login and refresh-token requires a session.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeOK(w, http.StatusOK, map[string]string{"status": "ok"}, "OK")
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/refresh-token", h.refreshToken)

		r.Group(func(r chi.Router) {
			r.Use(h.requireSession)

			r.Post("/logout", h.logout)
			r.Post("/change-password", h.changePassword)
			r.Get("/current-user", h.currentUser)
			r.Patch("/update-account", h.updateAccount)
			r.Patch("/avatar", h.updateAvatar)
			r.Patch("/cover-image", h.updateCoverImage)
			r.Get("/c/{userName}", h.channelProfile)
		})
	})

	return r
}
