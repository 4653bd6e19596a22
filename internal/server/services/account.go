package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/dmitrijs2005/vidhub/internal/common"
	"github.com/dmitrijs2005/vidhub/internal/filex"
	"github.com/dmitrijs2005/vidhub/internal/logging"
	"github.com/dmitrijs2005/vidhub/internal/server/auth"
	"github.com/dmitrijs2005/vidhub/internal/server/models"
	"github.com/dmitrijs2005/vidhub/internal/server/repositories/repomanager"
)

// Uploader stores a locally staged file and returns its public URL. The
// local file is consumed by the call.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// RegisterInput is a registration request with media already staged on disk.
type RegisterInput struct {
	FullName       string
	UserName       string
	Email          string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

// CreateUserInput is an operator-side account creation with a ready avatar URL.
type CreateUserInput struct {
	FullName  string
	UserName  string
	Email     string
	Password  string
	AvatarURL string
}

type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.PasswordHasher
	uploader    Uploader
	log         logging.Logger
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, hasher *auth.PasswordHasher,
	uploader Uploader, log logging.Logger) *AccountService {
	return &AccountService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		uploader:    uploader,
		log:         log,
	}
}

// Register validates in, uploads the avatar and optional cover image and
// creates the user. Staged files are removed on every path.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.PublicUser, error) {
	defer func() {
		_ = filex.RemoveQuietly(in.AvatarPath)
		_ = filex.RemoveQuietly(in.CoverImagePath)
	}()

	fields, err := normalize(in.FullName, in.UserName, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	if in.AvatarPath == "" {
		return nil, fmt.Errorf("%w: avatar file is required", common.ErrValidation)
	}

	if err := s.ensureAvailable(ctx, fields); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(fields.password)
	if err != nil {
		return nil, err
	}

	avatar, err := s.uploader.Upload(ctx, in.AvatarPath)
	if err != nil {
		return nil, fmt.Errorf("avatar: %w", err)
	}

	var cover string
	if in.CoverImagePath != "" {
		if cover, err = s.uploader.Upload(ctx, in.CoverImagePath); err != nil {
			return nil, fmt.Errorf("cover image: %w", err)
		}
	}

	return s.create(ctx, fields, hash, avatar, cover)
}

// CreateUser creates an account without going through media upload.
func (s *AccountService) CreateUser(ctx context.Context, in CreateUserInput) (*models.PublicUser, error) {
	fields, err := normalize(in.FullName, in.UserName, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	if err := s.ensureAvailable(ctx, fields); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(fields.password)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, fields, hash, strings.TrimSpace(in.AvatarURL), "")
}

func (s *AccountService) CurrentUser(ctx context.Context, userID string) (*models.PublicUser, error) {
	u, err := s.repomanager.Users(s.db).FindPublicByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *AccountService) UpdateAccountDetails(ctx context.Context, userID, fullName, email string) (*models.PublicUser, error) {
	fullName, email = strings.TrimSpace(fullName), strings.TrimSpace(email)
	if fullName == "" || email == "" {
		return nil, fmt.Errorf("%w: full name and email are required", common.ErrValidation)
	}
	if !validEmail(email) {
		return nil, fmt.Errorf("%w: invalid email", common.ErrValidation)
	}

	u, err := s.repomanager.Users(s.db).UpdateAccountDetails(ctx, userID, fullName, email)
	if err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	return u, nil
}

func (s *AccountService) UpdateAvatar(ctx context.Context, userID, localPath string) (*models.PublicUser, error) {
	if localPath == "" {
		return nil, fmt.Errorf("%w: avatar file is missing", common.ErrValidation)
	}

	url, err := s.uploader.Upload(ctx, localPath)
	if err != nil {
		return nil, fmt.Errorf("avatar: %w", err)
	}

	u, err := s.repomanager.Users(s.db).UpdateAvatar(ctx, userID, url)
	if err != nil {
		return nil, fmt.Errorf("update avatar: %w", err)
	}
	return u, nil
}

func (s *AccountService) UpdateCoverImage(ctx context.Context, userID, localPath string) (*models.PublicUser, error) {
	if localPath == "" {
		return nil, fmt.Errorf("%w: cover image file is missing", common.ErrValidation)
	}

	url, err := s.uploader.Upload(ctx, localPath)
	if err != nil {
		return nil, fmt.Errorf("cover image: %w", err)
	}

	u, err := s.repomanager.Users(s.db).UpdateCoverImage(ctx, userID, url)
	if err != nil {
		return nil, fmt.Errorf("update cover image: %w", err)
	}
	return u, nil
}

// ChannelProfile returns the public page of userName with subscription
// counts; IsSubscribed is relative to viewerID.
func (s *AccountService) ChannelProfile(ctx context.Context, userName, viewerID string) (*models.ChannelProfile, error) {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		return nil, fmt.Errorf("%w: username is missing", common.ErrValidation)
	}

	user, err := s.repomanager.Users(s.db).FindByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("channel does not exist: %w", err)
		}
		return nil, fmt.Errorf("find channel: %w", err)
	}

	stats, err := s.repomanager.Subscriptions(s.db).Stats(ctx, user.ID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("subscription stats: %w", err)
	}

	return &models.ChannelProfile{
		PublicUser:                *user.Public(),
		SubscribersCount:          stats.Subscribers,
		ChannelsSubscribedToCount: stats.SubscribedTo,
		IsSubscribed:              stats.IsSubscribed,
	}, nil
}

type accountFields struct {
	fullName, userName, email, password string
}

func normalize(fullName, userName, email, password string) (accountFields, error) {
	f := accountFields{
		fullName: strings.TrimSpace(fullName),
		userName: strings.ToLower(strings.TrimSpace(userName)),
		email:    strings.TrimSpace(email),
		password: password,
	}

	if f.fullName == "" || f.userName == "" || f.email == "" || strings.TrimSpace(f.password) == "" {
		return f, fmt.Errorf("%w: all fields are required", common.ErrValidation)
	}
	if strings.ContainsRune(f.userName, '@') || strings.IndexFunc(f.userName, unicode.IsSpace) >= 0 {
		return f, fmt.Errorf("%w: username must not contain '@' or spaces", common.ErrValidation)
	}
	if !validEmail(f.email) {
		return f, fmt.Errorf("%w: invalid email", common.ErrValidation)
	}
	return f, nil
}

func validEmail(email string) bool {
	at := strings.LastIndexByte(email, '@')
	return at > 0 && at < len(email)-1 && strings.IndexFunc(email, unicode.IsSpace) < 0
}

func (s *AccountService) ensureAvailable(ctx context.Context, f accountFields) error {
	exists, err := s.repomanager.Users(s.db).ExistsByUserNameOrEmail(ctx, f.userName, f.email)
	if err != nil {
		return fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: user with email or username", common.ErrConflict)
	}
	return nil
}

func (s *AccountService) create(ctx context.Context, f accountFields, hash, avatar, cover string) (*models.PublicUser, error) {
	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		UserName:     f.userName,
		Email:        f.email,
		FullName:     f.fullName,
		PasswordHash: hash,
		Avatar:       avatar,
		CoverImage:   cover,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID, "username", user.UserName)
	return user.Public(), nil
}
