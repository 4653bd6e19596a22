package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/vidhub/internal/common"
	"github.com/dmitrijs2005/vidhub/internal/server/repositories/subscriptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stage(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte("img"), 0o600))
	return p
}

func assertRemoved(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist), "%s should be removed", path)
}

func TestRegister_ThenLoginWithUsernameOrEmail(t *testing.T) {
	f := newFixture(t)
	avatar := stage(t, "a.png")
	cover := stage(t, "c.png")

	u, err := f.accounts.Register(context.Background(), RegisterInput{
		FullName:       "Alice Liddell",
		UserName:       "  Alice ",
		Email:          "alice@x.com",
		Password:       "Secr3t!",
		AvatarPath:     avatar,
		CoverImagePath: cover,
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", u.UserName, "username is stored lowercase")
	assert.Equal(t, "http://cdn.test/media/a.png", u.Avatar)
	assert.Equal(t, "http://cdn.test/media/c.png", u.CoverImage)
	assert.Equal(t, []string{avatar, cover}, f.uploader.paths)

	stored, ok := f.store.Get(u.ID)
	require.True(t, ok)
	assert.NotEqual(t, "Secr3t!", stored.PasswordHash)
	assert.True(t, f.hasher.Verify("Secr3t!", stored.PasswordHash))

	for _, ident := range []string{"alice", "alice@x.com"} {
		res, err := f.sessions.Login(context.Background(), ident, "Secr3t!")
		require.NoError(t, err, ident)
		assert.Equal(t, u.ID, res.User.ID)
	}

	assertRemoved(t, avatar)
	assertRemoved(t, cover)
}

func TestRegister_CoverImageOptional(t *testing.T) {
	f := newFixture(t)

	u, err := f.accounts.Register(context.Background(), RegisterInput{
		FullName:   "Bob",
		UserName:   "bob",
		Email:      "bob@x.com",
		Password:   "pw",
		AvatarPath: stage(t, "b.png"),
	})
	require.NoError(t, err)
	assert.Empty(t, u.CoverImage)
	assert.Len(t, f.uploader.paths, 1)
}

func TestRegister_Validation(t *testing.T) {
	base := RegisterInput{FullName: "Alice", UserName: "alice", Email: "alice@x.com", Password: "Secr3t!"}

	tests := []struct {
		name   string
		mutate func(*RegisterInput)
	}{
		{"blank full name", func(in *RegisterInput) { in.FullName = "   " }},
		{"blank username", func(in *RegisterInput) { in.UserName = "" }},
		{"blank email", func(in *RegisterInput) { in.Email = " " }},
		{"blank password", func(in *RegisterInput) { in.Password = "  " }},
		{"username with at", func(in *RegisterInput) { in.UserName = "a@b" }},
		{"username with space", func(in *RegisterInput) { in.UserName = "al ice" }},
		{"email without at", func(in *RegisterInput) { in.Email = "alice.x.com" }},
		{"missing avatar", func(in *RegisterInput) { in.AvatarPath = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := base
			in.AvatarPath = stage(t, "a.png")
			tt.mutate(&in)

			_, err := f.accounts.Register(context.Background(), in)
			require.ErrorIs(t, err, common.ErrValidation)
			assert.Empty(t, f.uploader.paths, "nothing uploaded")
			if in.AvatarPath != "" {
				assertRemoved(t, in.AvatarPath)
			}
		})
	}
}

func TestRegister_Conflict(t *testing.T) {
	f := newFixture(t)
	f.seedAlice(t)

	for _, in := range []RegisterInput{
		{FullName: "A", UserName: "ALICE", Email: "other@x.com", Password: "p"},
		{FullName: "A", UserName: "other", Email: "Alice@X.com", Password: "p"},
	} {
		in.AvatarPath = stage(t, "a.png")
		_, err := f.accounts.Register(context.Background(), in)
		require.ErrorIs(t, err, common.ErrConflict)
		assertRemoved(t, in.AvatarPath)
	}
	assert.Empty(t, f.uploader.paths)
}

func TestRegister_UploadFailure(t *testing.T) {
	f := newFixture(t)
	f.uploader.err = common.ErrUploadFailed

	_, err := f.accounts.Register(context.Background(), RegisterInput{
		FullName: "Bob", UserName: "bob", Email: "bob@x.com", Password: "pw", AvatarPath: stage(t, "b.png"),
	})
	require.ErrorIs(t, err, common.ErrUploadFailed)

	exists, err := f.store.ExistsByUserNameOrEmail(context.Background(), "bob", "bob@x.com")
	require.NoError(t, err)
	assert.False(t, exists, "user must not be created")
}

func TestCreateUser_AllowsMissingAvatar(t *testing.T) {
	f := newFixture(t)

	u, err := f.accounts.CreateUser(context.Background(), CreateUserInput{
		FullName: "Ops", UserName: "ops", Email: "ops@x.com", Password: "pw",
	})
	require.NoError(t, err)
	assert.Empty(t, u.Avatar)
	assert.Empty(t, f.uploader.paths)
}

func TestCurrentUser(t *testing.T) {
	f := newFixture(t)
	id := f.seedAlice(t)

	u, err := f.accounts.CurrentUser(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.UserName)

	_, err = f.accounts.CurrentUser(context.Background(), "ghost")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdateAccountDetails(t *testing.T) {
	f := newFixture(t)
	id := f.seedAlice(t)

	u, err := f.accounts.UpdateAccountDetails(context.Background(), id, " Alice B ", "ab@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice B", u.FullName)
	assert.Equal(t, "ab@x.com", u.Email)

	_, err = f.accounts.UpdateAccountDetails(context.Background(), id, "", "ab@x.com")
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = f.accounts.UpdateAccountDetails(context.Background(), id, "Alice", "nope")
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestUpdateAvatarAndCoverImage(t *testing.T) {
	f := newFixture(t)
	id := f.seedAlice(t)

	u, err := f.accounts.UpdateAvatar(context.Background(), id, stage(t, "new.png"))
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.test/media/new.png", u.Avatar)

	u, err = f.accounts.UpdateCoverImage(context.Background(), id, stage(t, "cover.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.test/media/cover.jpg", u.CoverImage)

	_, err = f.accounts.UpdateAvatar(context.Background(), id, "")
	require.ErrorIs(t, err, common.ErrValidation)
	_, err = f.accounts.UpdateCoverImage(context.Background(), id, "")
	require.ErrorIs(t, err, common.ErrValidation)

	f.uploader.err = common.ErrUploadFailed
	_, err = f.accounts.UpdateAvatar(context.Background(), id, stage(t, "x.png"))
	require.ErrorIs(t, err, common.ErrUploadFailed)
}

func TestChannelProfile(t *testing.T) {
	f := newFixture(t)
	id := f.seedAlice(t)
	f.subs.out = &subscriptions.Stats{Subscribers: 5, SubscribedTo: 2, IsSubscribed: true}

	p, err := f.accounts.ChannelProfile(context.Background(), "Alice", "viewer-1")
	require.NoError(t, err)

	assert.Equal(t, id, p.ID)
	assert.Equal(t, int64(5), p.SubscribersCount)
	assert.Equal(t, int64(2), p.ChannelsSubscribedToCount)
	assert.True(t, p.IsSubscribed)
	assert.Equal(t, id, f.subs.gotChannel)
	assert.Equal(t, "viewer-1", f.subs.gotView)
}

func TestChannelProfile_Errors(t *testing.T) {
	f := newFixture(t)
	f.seedAlice(t)

	_, err := f.accounts.ChannelProfile(context.Background(), "ghost", "")
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = f.accounts.ChannelProfile(context.Background(), " ", "")
	require.ErrorIs(t, err, common.ErrValidation)

	f.subs.err = common.ErrStoreUnavailable
	_, err = f.accounts.ChannelProfile(context.Background(), "alice", "")
	require.ErrorIs(t, err, common.ErrStoreUnavailable)
}
