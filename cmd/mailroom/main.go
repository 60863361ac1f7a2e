// Package main is the entrypoint for the mailroom notification daemon.
//
// The daemon runs two trigger paths against the same delivery coordinator:
// a background poll loop that scans for pending invites and digest batches,
// and an HTTP server exposing a signed webhook for immediate invite delivery.
// Both paths share the sent-marker idempotency contract, so running them
// concurrently cannot double-send.
//
// This file handles dependency wiring only; all business logic lives in the
// internal packages.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"mailroom/internal/api/handlers"
	"mailroom/internal/config"
	"mailroom/internal/core"
	"mailroom/internal/db"
	"mailroom/internal/external"
	notifcore "mailroom/internal/notifications/core"
	"mailroom/internal/notifications/digest"
	"mailroom/internal/notifications/email"
	"mailroom/internal/notifications/webhook"
	"mailroom/internal/poller"
	"mailroom/internal/types"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		// Config failures happen before the structured logger exists.
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	logger.Info("mailroom starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"app_base_url", cfg.Server.AppBaseURL,
		"poll_interval", cfg.Poller.Interval,
		"dry_run", cfg.Email.DryRun,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Repositories.
	inviteRepo := db.NewInviteRepository(pool)
	digestRepo := db.NewDigestRepository(pool)
	directoryRepo := db.NewDirectoryRepository(pool)
	workStore := db.NewWorkStore(inviteRepo, digestRepo)

	// Templates. A missing template is not fatal at startup: deliveries for
	// that kind fail with template_unavailable until the file is deployed,
	// while the other kind keeps working.
	inviteTemplate, err := email.LoadTemplate(logger, cfg.Email.InviteTemplatePaths)
	if err != nil {
		logger.Warn("invite template unavailable, invite delivery disabled", "error", err)
	}
	digestTemplate, err := email.LoadTemplate(logger, cfg.Email.DigestTemplatePaths)
	if err != nil {
		logger.Warn("digest template unavailable, digest delivery disabled", "error", err)
	}

	// Provider selection: without an API key nothing can leave the process.
	var provider external.EmailProvider
	if cfg.Email.ResendAPIKey.IsSet() {
		provider = external.NewResendClient(
			&http.Client{Timeout: 30 * time.Second},
			external.ResendClientConfig{
				APIKey: cfg.Email.ResendAPIKey,
				Logger: logger,
			},
		)
	} else {
		logger.Warn("no email provider API key configured, using stub provider")
		provider = external.NewStubEmailProvider(logger)
	}

	recipients := email.NewRecipientPolicy(
		cfg.Email.ForceToEmail,
		cfg.Email.TestMode,
		cfg.Email.TestRecipient,
		logger,
	)

	sender := email.NewSender(email.SenderConfig{
		Provider:    provider,
		Recipients:  recipients,
		Throttle:    cfg.Email.Throttle,
		MaxAttempts: cfg.Email.MaxAttempts,
		DryRun:      cfg.Email.DryRun,
		Logger:      logger,
	})

	inviteBuilder := email.NewInviteBuilder(
		inviteRepo,
		directoryRepo,
		email.NewInviteRenderer(inviteTemplate, cfg.Email.FromAddress, cfg.Server.AppBaseURL),
		logger,
	)
	digestBuilder := digest.NewBuilder(digestRepo, directoryRepo, digestTemplate, cfg.Email.FromAddress, logger)

	coordinator := notifcore.NewCoordinator(
		workStore,
		map[types.WorkKind]notifcore.Builder{
			types.WorkKindInvite: inviteBuilder,
			types.WorkKindDigest: digestBuilder,
		},
		sender,
		logger,
	)

	// HTTP server: signed webhook trigger plus health check.
	verifier := webhook.NewVerifier(cfg.Webhook.SigningSecret, cfg.Webhook.Tolerance)
	if !cfg.Webhook.SigningSecret.IsSet() {
		logger.Warn("webhook signing secret not configured, trigger endpoint disabled")
	}
	inviteWebhook := handlers.NewInviteWebhookHandler(verifier, coordinator, cfg.Webhook.MaxBodySize, logger)

	server, err := core.NewServer(cfg, logger, pool)
	if err != nil {
		logger.Error("failed to construct http server", "error", err)
		os.Exit(1)
	}
	server.Registrars = append(server.Registrars, inviteWebhook.RegisterRoutes)
	server.MountRoutes()

	loop := poller.New(poller.Config{
		Invites:    inviteRepo,
		Digests:    digestRepo,
		Deliverer:  coordinator,
		Interval:   cfg.Poller.Interval,
		BatchLimit: cfg.Poller.BatchLimit,
		Logger:     logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx)
	})
	g.Go(func() error {
		return loop.Run(gctx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("mailroom exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("mailroom stopped")
}

// newLogger builds the application-wide structured JSON logger from the
// configured level. Unknown levels fall back to info.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})).With(
		"service", cfg.Service,
	)
}
