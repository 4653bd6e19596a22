package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/vidhub/internal/common"
	"github.com/dmitrijs2005/vidhub/internal/filex"
	"github.com/dmitrijs2005/vidhub/internal/server/models"
	"github.com/dmitrijs2005/vidhub/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const multipartMemory = 1 << 20

type loginRequest struct {
	Identifier string `json:"identifier"`
	UserName   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

// identifier accepts the single identifier field and falls back to the
// username and email aliases.
func (req loginRequest) identifier() string {
	for _, v := range []string{req.Identifier, req.UserName, req.Email} {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

type loginResponse struct {
	User        *models.PublicUser `json:"user"`
	AccessToken string             `json:"accessToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	form, err := h.parseMultipart(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer func() { _ = form.RemoveAll() }()

	avatar, err := h.stageFile(form, "avatar")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	cover, err := h.stageFile(form, "coverImage")
	if err != nil {
		_ = filex.RemoveQuietly(avatar)
		h.writeError(w, r, err)
		return
	}

	user, err := h.accounts.Register(r.Context(), services.RegisterInput{
		FullName:       formValue(form, "fullName"),
		UserName:       formValue(form, "userName"),
		Email:          formValue(form, "email"),
		Password:       formValue(form, "password"),
		AvatarPath:     avatar,
		CoverImagePath: cover,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeOK(w, http.StatusCreated, user, "User registered successfully")
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.sessions.Login(r.Context(), req.identifier(), req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.setSessionCookies(w, &res.Tokens)
	writeOK(w, http.StatusOK, loginResponse{User: res.User, AccessToken: res.Tokens.AccessToken}, "User logged in successfully")
}

func (h *Handler) refreshToken(w http.ResponseWriter, r *http.Request) {
	presented := ""
	if c, err := r.Cookie(common.RefreshTokenCookieName); err == nil {
		presented = strings.TrimSpace(c.Value)
	}
	if presented == "" {
		var req refreshRequest
		if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			h.writeError(w, r, err)
			return
		}
		presented = strings.TrimSpace(req.RefreshToken)
	}

	pair, err := h.sessions.Refresh(r.Context(), presented)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.setSessionCookies(w, pair)
	writeOK(w, http.StatusOK, refreshResponse{AccessToken: pair.AccessToken}, "Access token refreshed")
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	user, err := sessionUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.sessions.Logout(r.Context(), user.ID); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.clearSessionCookies(w)
	writeOK(w, http.StatusOK, struct{}{}, "User logged out")
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	user, err := sessionUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.sessions.ChangePassword(r.Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.clearRefreshCookie(w)
	writeOK(w, http.StatusOK, struct{}{}, "Password changed successfully")
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	user, err := sessionUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeOK(w, http.StatusOK, user, "Current user fetched successfully")
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	user, err := sessionUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	updated, err := h.accounts.UpdateAccountDetails(r.Context(), user.ID, req.FullName, req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeOK(w, http.StatusOK, updated, "Account details updated successfully")
}

func (h *Handler) updateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.accounts.UpdateAvatar, "Avatar updated successfully")
}

func (h *Handler) updateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.accounts.UpdateCoverImage, "Cover image updated successfully")
}

type imageUpdater func(ctx context.Context, userID, localPath string) (*models.PublicUser, error)

func (h *Handler) updateImage(w http.ResponseWriter, r *http.Request, field string, update imageUpdater, message string) {
	user, err := sessionUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	form, err := h.parseMultipart(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer func() { _ = form.RemoveAll() }()

	path, err := h.stageFile(form, field)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer func() { _ = filex.RemoveQuietly(path) }()

	updated, err := update(r.Context(), user.ID, path)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeOK(w, http.StatusOK, updated, message)
}

func (h *Handler) channelProfile(w http.ResponseWriter, r *http.Request) {
	viewer, err := sessionUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	profile, err := h.accounts.ChannelProfile(r.Context(), chi.URLParam(r, "userName"), viewer.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeOK(w, http.StatusOK, profile, "User channel fetched successfully")
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty request body: %w", common.ErrValidation, err)
		}
		return fmt.Errorf("%w: malformed JSON body: %v", common.ErrValidation, err)
	}
	return nil
}

func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request) (*multipart.Form, error) {
	if h.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: expected multipart form: %v", common.ErrValidation, err)
	}
	return r.MultipartForm, nil
}

// stageFile copies the uploaded field into the upload directory and returns
// the local path, or "" when the field is absent.
func (h *Handler) stageFile(form *multipart.Form, field string) (string, error) {
	headers := form.File[field]
	if len(headers) == 0 {
		return "", nil
	}

	f, err := headers[0].Open()
	if err != nil {
		return "", fmt.Errorf("%w: cannot read %s: %v", common.ErrValidation, field, err)
	}
	defer f.Close()

	path, err := filex.SaveTemp(h.opts.UploadDir, f, headers[0].Filename)
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", field, err)
	}
	return path, nil
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}
