// Package userstest provides an in-memory users.Repository for tests of the
// layers above the store.
package userstest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/vidhub/internal/common"
	"github.com/dmitrijs2005/vidhub/internal/server/models"
	"github.com/dmitrijs2005/vidhub/internal/server/repositories/users"
	"github.com/google/uuid"
)

var _ users.Repository = (*Store)(nil)

// Store keeps users in a map guarded by a mutex. Setting Err makes every
// call fail with it; UpdateErr fails writes only.
type Store struct {
	mu        sync.Mutex
	users     map[string]*models.User
	Err       error
	UpdateErr error
}

func NewStore() *Store {
	return &Store{users: map[string]*models.User{}}
}

// Get returns a copy of the stored record.
func (s *Store) Get(id string) (*models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, false
	}
	return clone(u), true
}

func (s *Store) Create(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.users {
		if u.UserName == user.UserName || strings.EqualFold(u.Email, user.Email) {
			return nil, fmt.Errorf("%w: users_username_key", common.ErrConflict)
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = clone(user)
	return user, nil
}

func (s *Store) FindByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	return s.find(func(u *models.User) bool {
		return u.UserName == strings.ToLower(identifier) || strings.EqualFold(u.Email, identifier)
	})
}

func (s *Store) FindByID(_ context.Context, id string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.ID == id })
}

func (s *Store) FindByUserName(_ context.Context, userName string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.UserName == strings.ToLower(userName) })
}

func (s *Store) FindPublicByID(ctx context.Context, id string) (*models.PublicUser, error) {
	u, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.Public(), nil
}

func (s *Store) ExistsByUserNameOrEmail(_ context.Context, userName, email string) (bool, error) {
	_, err := s.find(func(u *models.User) bool {
		return u.UserName == strings.ToLower(userName) || strings.EqualFold(u.Email, email)
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, common.ErrorNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *Store) UpdateRefreshToken(_ context.Context, id string, token *string) error {
	return s.update(id, func(u *models.User) {
		if token == nil {
			u.RefreshToken = nil
			return
		}
		t := *token
		u.RefreshToken = &t
	})
}

func (s *Store) RotateRefreshToken(_ context.Context, id, oldToken, newToken string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	if s.UpdateErr != nil {
		return false, s.UpdateErr
	}
	u, ok := s.users[id]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != oldToken {
		return false, nil
	}
	u.RefreshToken = &newToken
	return true, nil
}

func (s *Store) UpdatePasswordHash(_ context.Context, id, hash string) error {
	return s.update(id, func(u *models.User) { u.PasswordHash = hash })
}

func (s *Store) UpdateAccountDetails(ctx context.Context, id, fullName, email string) (*models.PublicUser, error) {
	if err := s.update(id, func(u *models.User) { u.FullName, u.Email = fullName, email }); err != nil {
		return nil, err
	}
	return s.FindPublicByID(ctx, id)
}

func (s *Store) UpdateAvatar(ctx context.Context, id, url string) (*models.PublicUser, error) {
	if err := s.update(id, func(u *models.User) { u.Avatar = url }); err != nil {
		return nil, err
	}
	return s.FindPublicByID(ctx, id)
}

func (s *Store) UpdateCoverImage(ctx context.Context, id, url string) (*models.PublicUser, error) {
	if err := s.update(id, func(u *models.User) { u.CoverImage = url }); err != nil {
		return nil, err
	}
	return s.FindPublicByID(ctx, id)
}

func (s *Store) find(match func(*models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.users {
		if match(u) {
			return clone(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (s *Store) update(id string, fn func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	u, ok := s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now()
	return nil
}

func clone(u *models.User) *models.User {
	c := *u
	if u.RefreshToken != nil {
		t := *u.RefreshToken
		c.RefreshToken = &t
	}
	return &c
}
