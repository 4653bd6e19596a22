package services

import (
	"context"
	"database/sql"
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
	"golang.org/x/crypto/bcrypt"
)

type fakeManager struct {
	users *userstest.Store
	subs  *fakeSubs
}

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeManager) Users(dbx.DBTX) users.Repository { return m.users }
func (m *fakeManager) Subscriptions(dbx.DBTX) subscriptions.Repository { return m.subs }

type fakeSubs struct {
	out                 *subscriptions.Stats
	err                 error
	gotChannel, gotView string
}

func (f *fakeSubs) Stats(_ context.Context, channelID, viewerID string) (*subscriptions.Stats, error) {
	f.gotChannel, f.gotView = channelID, viewerID
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

type fakeUploader struct {
	err   error
	paths []string
}

func (f *fakeUploader) Upload(_ context.Context, localPath string) (string, error) {
	f.paths = append(f.paths, localPath)
	if f.err != nil {
		return "", f.err
	}
	return "http://cdn.test/media/" + filepath.Base(localPath), nil
}

type fixture struct {
	db       *sql.DB
	mock     sqlmock.Sqlmock
	store    *userstest.Store
	subs     *fakeSubs
	uploader *fakeUploader
	tokens   *auth.TokenIssuer
	hasher   *auth.PasswordHasher
	sessions *SessionService
	accounts *AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		db:       db,
		mock:     mock,
		store:    userstest.NewStore(),
		subs:     &fakeSubs{out: &subscriptions.Stats{}},
		uploader: &fakeUploader{},
		tokens: auth.NewTokenIssuer(auth.TokenConfig{
			AccessSecret:  []byte("access-secret"),
			RefreshSecret: []byte("refresh-secret"),
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    24 * time.Hour,
			Issuer:        "vidhub-test",
		}),
		hasher: auth.NewPasswordHasher(bcrypt.MinCost),
	}

	rm := &fakeManager{users: f.store, subs: f.subs}
	log := logging.NewNop()
	f.sessions = NewSessionService(db, rm, f.tokens, f.hasher, log)
	f.accounts = NewAccountService(db, rm, f.hasher, f.uploader, log)
	return f
}

// seedAlice registers alice/alice@x.com/Secr3t! directly in the store.
func (f *fixture) seedAlice(t *testing.T) string {
	t.Helper()
	u, err := f.accounts.CreateUser(context.Background(), CreateUserInput{
		FullName:  "Alice Liddell",
		UserName:  "alice",
		Email:     "alice@x.com",
		Password:  "Secr3t!",
		AvatarURL: "http://cdn.test/media/alice.png",
	})
	if err != nil {
		t.Fatalf("seed alice: %v", err)
	}
	return u.ID
}
