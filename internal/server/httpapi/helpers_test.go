package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/vidhub/internal/dbx"
	"github.com/dmitrijs2005/vidhub/internal/logging"
	"github.com/dmitrijs2005/vidhub/internal/server/auth"
	"github.com/dmitrijs2005/vidhub/internal/server/repositories/subscriptions"
	"github.com/dmitrijs2005/vidhub/internal/server/repositories/users"
	"github.com/dmitrijs2005/vidhub/internal/server/repositories/users/userstest"
	"github.com/dmitrijs2005/vidhub/internal/server/services"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testTokenConfig = auth.TokenConfig{
	AccessSecret:  []byte("access-secret"),
	RefreshSecret: []byte("refresh-secret"),
	AccessTTL:     15 * time.Minute,
	RefreshTTL:    24 * time.Hour,
	Issuer:        "vidhub-test",
}

type fakeManager struct {
	users users.Repository
}

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeManager) Users(dbx.DBTX) users.Repository { return m.users }
func (m *fakeManager) Subscriptions(dbx.DBTX) subscriptions.Repository { return zeroStats{} }

type zeroStats struct{}

func (zeroStats) Stats(context.Context, string, string) (*subscriptions.Stats, error) {
	return &subscriptions.Stats{}, nil
}

// copyUploader pretends to upload by deleting the staged file.
type copyUploader struct{}

func (copyUploader) Upload(_ context.Context, localPath string) (string, error) {
	_ = os.Remove(localPath)
	return "http://cdn.test/media/" + filepath.Base(localPath), nil
}

type testEnv struct {
	t      *testing.T
	mock   sqlmock.Sqlmock
	store  *userstest.Store
	tokens *auth.TokenIssuer
	router http.Handler
	upload string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := userstest.NewStore()
	rm := &fakeManager{users: store}
	tokens := auth.NewTokenIssuer(testTokenConfig)
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	log := logging.NewNop()

	sessions := services.NewSessionService(db, rm, tokens, hasher, log)
	accounts := services.NewAccountService(db, rm, hasher, copyUploader{}, log)

	uploadDir := t.TempDir()
	h := NewHandler(sessions, accounts, tokens, log, Options{
		CookieSecure:   true,
		UploadDir:      uploadDir,
		MaxUploadBytes: 1 << 20,
	})

	return &testEnv{t: t, mock: mock, store: store, tokens: tokens, router: h.Routes(), upload: uploadDir}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	e.t.Helper()
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, name := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("image-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type decoded struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) decoded {
	t.Helper()
	var d decoded
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d), rec.Body.String())
	return d
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (e *testEnv) registerAlice() {
	e.t.Helper()
	rec := e.do(multipartRequest(e.t, http.MethodPost, "/api/v1/users/register",
		map[string]string{
			"fullName": "Alice Liddell",
			"userName": "alice",
			"email":    "alice@x.com",
			"password": "Secr3t!",
		},
		map[string]string{"avatar": "alice.png"},
	))
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (e *testEnv) loginAlice() *httptest.ResponseRecorder {
	e.t.Helper()
	rec := e.do(jsonRequest(e.t, http.MethodPost, "/api/v1/users/login",
		map[string]string{"username": "alice", "password": "Secr3t!"}))
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
	return rec
}
