// Package server wires the campusfeed components together and runs them:
// storage and Redis clients, services, the expiry scheduler and the HTTP
// API, with graceful shutdown on SIGINT/SIGTERM/SIGQUIT.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/campusfeed/campusfeed/internal/filex"
	"github.com/campusfeed/campusfeed/internal/logging"
	"github.com/campusfeed/campusfeed/internal/server/config"
	"github.com/campusfeed/campusfeed/internal/server/httpapi"
	"github.com/campusfeed/campusfeed/internal/server/mailer"
	"github.com/campusfeed/campusfeed/internal/server/otpstore"
	"github.com/campusfeed/campusfeed/internal/server/push"
	"github.com/campusfeed/campusfeed/internal/server/repositories/repomanager"
	"github.com/campusfeed/campusfeed/internal/server/services"
	"github.com/campusfeed/campusfeed/internal/server/storage"
	"github.com/campusfeed/campusfeed/internal/server/validation"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	rdb    *redis.Client
	server *httpapi.Server
	expiry *services.ExpiryScheduler
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogBackend, os.Stdout)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("redis init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db, rdb: rdb}
	if err := app.wire(ctx, m); err != nil {
		app.close()
		return nil, err
	}
	return app, nil
}

func (app *App) wire(ctx context.Context, m repomanager.RepositoryManager) error {
	c := app.config

	uploadDir, err := filex.EnsureDir(c.UploadDir)
	if err != nil {
		return fmt.Errorf("upload dir: %w", err)
	}
	uploader, err := storage.NewS3Uploader(ctx, storage.S3Config{
		Bucket:        c.S3Bucket,
		Region:        c.S3Region,
		AccessKey:     c.S3RootUser,
		SecretKey:     c.S3RootPassword,
		BaseEndpoint:  c.S3BaseEndpoint,
		PublicBaseURL: c.S3PublicBaseURL,
	})
	if err != nil {
		return fmt.Errorf("object storage: %w", err)
	}
	emails, err := validation.NewEmailValidator(c.EmailPattern)
	if err != nil {
		return err
	}
	mail := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		User:     c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.MailFrom,
	})
	pusher := push.NewRedisPusher(app.rdb)

	sessions := services.NewSessionService(app.db, m, c)
	otp := services.NewOTPService(app.db, m, otpstore.NewRedisStore(app.rdb), mail, sessions, c, app.logger)
	users := services.NewUserService(sessions, otp, uploader, emails, app.logger)
	fanout := services.NewFanoutService(app.db, m, pusher, app.logger)
	app.expiry = services.NewExpiryScheduler(app.db, m, app.logger)
	posts := services.NewPostService(app.db, m, fanout, app.expiry, c, app.logger)

	app.server = httpapi.NewServer(c.HTTPAddr, app.logger, httpapi.Deps{
		Accounts:      users,
		OTP:           otp,
		Posts:         posts,
		Notifications: fanout,
		Gate:          services.NewSessionGate(app.db, m, c),
		Feed:          pusher,
		UploadDir:     uploadDir,
	})
	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run blocks until a signal arrives or the HTTP server fails, then stops
// the scheduler and closes the stores. It returns the server error, if any.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.server.Run(gctx)
	})
	g.Go(func() error {
		app.expiry.Run(gctx, app.config.ExpirySweepInterval)
		return nil
	})

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "http server stopped", "error", err)
	}

	app.expiry.Stop()
	app.close()
	app.logger.Info(context.Background(), "App stopped")
	return err
}

func (app *App) close() {
	if err := app.rdb.Close(); err != nil {
		app.logger.Error(context.Background(), "redis close", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close", "error", err)
	}
}
