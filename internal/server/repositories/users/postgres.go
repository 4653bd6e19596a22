package users

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/vidhub/internal/common"
	"github.com/dmitrijs2005/vidhub/internal/dbx"
	"github.com/dmitrijs2005/vidhub/internal/server/models"
	"github.com/dmitrijs2005/vidhub/internal/server/repositories/repoerr"
)

const (
	userColumns   = `id, username, email, full_name, password_hash, refresh_token, avatar, cover_image, created_at, updated_at`
	publicColumns = `id, username, email, full_name, avatar, cover_image, created_at, updated_at`
)

// PostgresRepository implements Repository over dbx.DBTX, so it works on
// both *sql.DB and *sql.Tx.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (username, email, full_name, password_hash, avatar, cover_image)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		user.UserName, user.Email, user.FullName, user.PasswordHash, user.Avatar, user.CoverImage,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, repoerr.Wrap(err)
	}

	return user, nil
}

func (r *PostgresRepository) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE username = lower($1) OR lower(email) = lower($1)
		 LIMIT 1`

	return r.scanUser(r.db.QueryRowContext(ctx, query, identifier))
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) FindByUserName(ctx context.Context, userName string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = lower($1)`

	return r.scanUser(r.db.QueryRowContext(ctx, query, userName))
}

func (r *PostgresRepository) FindPublicByID(ctx context.Context, id string) (*models.PublicUser, error) {
	query := `SELECT ` + publicColumns + ` FROM users WHERE id = $1`

	return r.scanPublic(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) ExistsByUserNameOrEmail(ctx context.Context, userName, email string) (bool, error) {
	query :=
		`SELECT EXISTS (
			SELECT 1 FROM users WHERE username = lower($1) OR lower(email) = lower($2)
		 )`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userName, email).Scan(&exists); err != nil {
		return false, repoerr.Wrap(err)
	}

	return exists, nil
}

func (r *PostgresRepository) UpdateRefreshToken(ctx context.Context, id string, token *string) error {
	query := `UPDATE users SET refresh_token = $2 WHERE id = $1`

	return r.execOne(ctx, query, id, nullable(token))
}

func (r *PostgresRepository) RotateRefreshToken(ctx context.Context, id, oldToken, newToken string) (bool, error) {
	query := `UPDATE users SET refresh_token = $3 WHERE id = $1 AND refresh_token = $2`

	n, err := dbx.ExecAffected(ctx, r.db, query, id, oldToken, newToken)
	if err != nil {
		return false, repoerr.Wrap(err)
	}

	return n == 1, nil
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`

	return r.execOne(ctx, query, id, hash)
}

func (r *PostgresRepository) UpdateAccountDetails(ctx context.Context, id, fullName, email string) (*models.PublicUser, error) {
	query :=
		`UPDATE users SET full_name = $2, email = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + publicColumns

	return r.scanPublic(r.db.QueryRowContext(ctx, query, id, fullName, email))
}

func (r *PostgresRepository) UpdateAvatar(ctx context.Context, id, url string) (*models.PublicUser, error) {
	query :=
		`UPDATE users SET avatar = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + publicColumns

	return r.scanPublic(r.db.QueryRowContext(ctx, query, id, url))
}

func (r *PostgresRepository) UpdateCoverImage(ctx context.Context, id, url string) (*models.PublicUser, error) {
	query :=
		`UPDATE users SET cover_image = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + publicColumns

	return r.scanPublic(r.db.QueryRowContext(ctx, query, id, url))
}

func (r *PostgresRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var token sql.NullString

	err := row.Scan(&user.ID, &user.UserName, &user.Email, &user.FullName, &user.PasswordHash,
		&token, &user.Avatar, &user.CoverImage, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, repoerr.Wrap(err)
	}
	if token.Valid {
		user.RefreshToken = &token.String
	}

	return user, nil
}

func (r *PostgresRepository) scanPublic(row *sql.Row) (*models.PublicUser, error) {
	user := &models.PublicUser{}

	err := row.Scan(&user.ID, &user.UserName, &user.Email, &user.FullName,
		&user.Avatar, &user.CoverImage, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, repoerr.Wrap(err)
	}

	return user, nil
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	n, err := dbx.ExecAffected(ctx, r.db, query, args...)
	if err != nil {
		return repoerr.Wrap(err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
