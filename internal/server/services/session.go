// Package services contains server-side business logic. SessionService runs
// the session lifecycle (login, refresh with rotation, logout and password
// change); AccountService covers registration and profile operations.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/vidhub/internal/common"
	"github.com/dmitrijs2005/vidhub/internal/dbx"
	"github.com/dmitrijs2005/vidhub/internal/logging"
	"github.com/dmitrijs2005/vidhub/internal/server/auth"
	"github.com/dmitrijs2005/vidhub/internal/server/models"
	"github.com/dmitrijs2005/vidhub/internal/server/repositories/repomanager"
)

// LoginResult is what a successful login hands back to the transport.
type LoginResult struct {
	Tokens models.TokenPair
	User   *models.PublicUser
}

// SessionService keeps at most one active refresh token per user. A new
// login overwrites the previous one, so signing in elsewhere ends the older
// session's ability to refresh.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenIssuer
	hasher      *auth.PasswordHasher
	log         logging.Logger
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.TokenIssuer,
	hasher *auth.PasswordHasher, log logging.Logger) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		hasher:      hasher,
		log:         log,
	}
}

// Login looks the identifier up as username or email in one query, checks
// the password and issues a fresh token pair. Unknown identifiers yield
// common.ErrorNotFound, wrong passwords common.ErrInvalidCredentials.
func (s *SessionService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, fmt.Errorf("%w: username or email and password are required", common.ErrValidation)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("user does not exist: %w", err)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, err
	}

	if err := repo.UpdateRefreshToken(ctx, user.ID, &pair.RefreshToken); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	s.log.Info(ctx, "user logged in", "user_id", user.ID)

	return &LoginResult{Tokens: *pair, User: user.Public()}, nil
}

// Logout revokes the stored refresh token. Access tokens already issued stay
// valid until they expire.
func (s *SessionService) Logout(ctx context.Context, userID string) error {
	if err := s.repomanager.Users(s.db).UpdateRefreshToken(ctx, userID, nil); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return fmt.Errorf("clear refresh token: %w", err)
	}

	s.log.Info(ctx, "user logged out", "user_id", userID)
	return nil
}

// Refresh exchanges a refresh token for a new pair. The presented token must
// equal the stored one; the swap to the new token is conditional on that
// value, so of two concurrent refreshes with the same token only one wins.
func (s *SessionService) Refresh(ctx context.Context, presented string) (*models.TokenPair, error) {
	if presented == "" {
		return nil, common.ErrorUnauthorized
	}

	userID, err := s.tokens.Verify(presented, auth.PurposeRefresh)
	if err != nil {
		s.log.Debug(ctx, "refresh token rejected", "error", err)
		return nil, common.ErrorUnauthorized
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if user.RefreshToken == nil || subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(presented)) != 1 {
		s.log.Warn(ctx, "stale refresh token presented", "user_id", userID)
		return nil, common.ErrorUnauthorized
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, err
	}

	swapped, err := repo.RotateRefreshToken(ctx, user.ID, presented, pair.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	if !swapped {
		s.log.Warn(ctx, "refresh token already rotated", "user_id", userID)
		return nil, common.ErrorUnauthorized
	}

	return pair, nil
}

// ChangePassword replaces the password hash and revokes the refresh token in
// one transaction, forcing every session to log in again once its access
// token expires.
func (s *SessionService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return fmt.Errorf("%w: old and new password are required", common.ErrValidation)
	}

	user, err := s.repomanager.Users(s.db).FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return fmt.Errorf("find user: %w", err)
	}

	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return common.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		if err := repo.UpdatePasswordHash(ctx, userID, hash); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		if err := repo.UpdateRefreshToken(ctx, userID, nil); err != nil {
			return fmt.Errorf("revoke refresh token: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "password changed", "user_id", userID)
	return nil
}

func (s *SessionService) issuePair(userID string) (*models.TokenPair, error) {
	access, accessExp, err := s.tokens.IssueAccessToken(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: issue access token: %v", common.ErrorInternal, err)
	}
	refresh, refreshExp, err := s.tokens.IssueRefreshToken(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: issue refresh token: %v", common.ErrorInternal, err)
	}
	return &models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}
