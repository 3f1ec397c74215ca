package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"learnhub/m/internal/api"
	"learnhub/m/internal/auth"
	"learnhub/m/internal/config"
	"learnhub/m/internal/database"
	"learnhub/m/internal/logging"
	"learnhub/m/internal/mail"
	"learnhub/m/internal/migrations"
	"learnhub/m/internal/pdf"
	"learnhub/m/internal/seed"
	"learnhub/m/internal/service"
	"learnhub/m/internal/store"
	"learnhub/m/internal/telemetry"
	"learnhub/m/internal/upload"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(os.Stderr, "text", "error").Error(context.Background(), "config", "error", err)
		os.Exit(1)
	}
	log := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	if err := run(cfg, log); err != nil {
		log.Error(context.Background(), "server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *logging.SlogLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info(ctx, "starting", "config", cfg.String())
	if cfg.TokenTTLOverridden() {
		log.Warn(ctx, "JWT_TTL overrides the one day session lifetime", "ttl", cfg.TokenTTL.String())
	}

	shutdownTracing := telemetry.Setup(ctx, "learnhub", log)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Run(ctx, db, log); err != nil {
		return err
	}

	users := store.NewUserRepository(db)
	if err := seed.Admin(ctx, users, cfg.SeedAdmin, log); err != nil {
		return err
	}

	storage, uploadDir, err := newStorage(ctx, cfg)
	if err != nil {
		return err
	}

	tokens := auth.NewTokenIssuer(cfg.Secret, cfg.TokenTTL)
	handler := api.New(api.Options{
		Auth:    service.NewAuthService(users, tokens, log),
		Courses: service.NewCourseService(store.NewCourseRepository(db), log),
		Mailer:  mail.NewSMTPMailer(cfg.SMTP, log),
		PDF:     pdf.NewChromeRenderer(cfg.ChromePath),
		Uploads: upload.NewUploader(storage, upload.Policy{
			AllowedMIMEs: cfg.Upload.AllowedMIMEs,
			MaxBytes:     cfg.Upload.MaxBytes,
		}),
		UploadDir:   uploadDir,
		CORSOrigins: cfg.CORSAllowedOrigins,
		Logger:      log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(handler.Router(), "learnhub"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(sctx)
}

// newStorage picks the upload backend. The returned directory is served
// over HTTP and is empty for S3.
func newStorage(ctx context.Context, cfg config.Config) (upload.Storage, string, error) {
	if cfg.Upload.Backend == "s3" {
		s3, err := upload.NewS3Storage(ctx, cfg.S3)
		return s3, "", err
	}
	disk, err := upload.NewDiskStorage(cfg.Upload.Dir)
	return disk, cfg.Upload.Dir, err
}
