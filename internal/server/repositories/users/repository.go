// Package users declares and implements the credential store: persistence
// of user records, their password hashes and the single active refresh
// token of each user.
package users

import (
	"context"

	"github.com/dmitrijs2005/vidhub/internal/server/models"
)

// Repository defines operations over user records. Lookups that match
// nothing return common.ErrorNotFound; infrastructure failures wrap
// common.ErrStoreUnavailable.
type Repository interface {
	// Create inserts user and fills in its id and timestamps. A duplicate
	// username or email yields common.ErrConflict.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// FindByIdentifier matches identifier against the username and the
	// email of every record in one query.
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)

	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUserName(ctx context.Context, userName string) (*models.User, error)

	// FindPublicByID loads the sanitized projection only; the password hash
	// and refresh token are never read.
	FindPublicByID(ctx context.Context, id string) (*models.PublicUser, error)

	ExistsByUserNameOrEmail(ctx context.Context, userName, email string) (bool, error)

	// UpdateRefreshToken overwrites the stored refresh token; nil clears it.
	UpdateRefreshToken(ctx context.Context, id string, token *string) error

	// RotateRefreshToken replaces oldToken with newToken only if oldToken is
	// still the stored value, and reports whether it did.
	RotateRefreshToken(ctx context.Context, id, oldToken, newToken string) (bool, error)

	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateAccountDetails(ctx context.Context, id, fullName, email string) (*models.PublicUser, error)
	UpdateAvatar(ctx context.Context, id, url string) (*models.PublicUser, error)
	UpdateCoverImage(ctx context.Context, id, url string) (*models.PublicUser, error)
}
