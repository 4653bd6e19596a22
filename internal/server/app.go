// Package server wires the vidhub account and session service together:
// it opens the database, applies migrations, builds the services and runs
// the HTTP API until the process is told to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/vidhub/internal/filex"
	"github.com/dmitrijs2005/vidhub/internal/logging"
	"github.com/dmitrijs2005/vidhub/internal/server/auth"
	"github.com/dmitrijs2005/vidhub/internal/server/blob"
	"github.com/dmitrijs2005/vidhub/internal/server/config"
	"github.com/dmitrijs2005/vidhub/internal/server/httpapi"
	"github.com/dmitrijs2005/vidhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/vidhub/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	sqlOpen = sql.Open

	newRepositoryManager = func() repomanager.RepositoryManager {
		return repomanager.NewPostgresRepositoryManager()
	}

	newUploader = func(ctx context.Context, c *config.Config) (services.Uploader, error) {
		return blob.NewS3Uploader(ctx, blob.Options{
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			Region:       c.S3Region,
			Bucket:       c.S3Bucket,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	}
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.HTTPServer
}

// OpenStore connects to PostgreSQL and brings the schema up to date.
func OpenStore(ctx context.Context, c *config.Config) (*sql.DB, repomanager.RepositoryManager, error) {
	db, err := sqlOpen("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db ping: %w", err)
	}

	rm := newRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return db, rm, nil
}

// TokenConfig derives the token issuer settings from c.
func TokenConfig(c *config.Config) auth.TokenConfig {
	return auth.TokenConfig{
		AccessSecret:  []byte(c.AccessTokenSecret),
		RefreshSecret: []byte(c.RefreshTokenSecret),
		AccessTTL:     c.AccessTokenValidityDuration,
		RefreshTTL:    c.RefreshTokenValidityDuration,
		Issuer:        c.TokenIssuer,
	}
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.Env, os.Stdout)

	db, rm, err := OpenStore(ctx, c)
	if err != nil {
		return nil, err
	}

	uploadDir, err := filex.EnsureSubdDir(c.UploadDir)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("upload dir: %w", err)
	}

	uploader, err := newUploader(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("uploader init: %w", err)
	}

	tokens := auth.NewTokenIssuer(TokenConfig(c))
	hasher := auth.NewPasswordHasher(c.BcryptCost)

	sessions := services.NewSessionService(db, rm, tokens, hasher, logger)
	accounts := services.NewAccountService(db, rm, hasher, uploader, logger)

	handler := httpapi.NewHandler(sessions, accounts, tokens, logger, httpapi.Options{
		CookieSecure:   c.CookieSecure,
		UploadDir:      uploadDir,
		MaxUploadBytes: c.MaxUploadBytes,
	})

	return &App{
		config: c,
		logger: logger,
		db:     db,
		server: httpapi.NewHTTPServer(c.HTTPAddr, logger, handler.Routes(), c.ShutdownTimeout),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// shuts the HTTP server down and closes the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "env", app.config.Env)

	app.initSignalHandler(cancelFunc)

	err := app.server.Run(ctx)

	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(ctx, "closing database", "error", cerr)
	}

	app.logger.Info(ctx, "App stopped")
	return err
}
