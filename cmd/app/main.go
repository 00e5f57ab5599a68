// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"exam-prep-payments/internal/config"
	"exam-prep-payments/internal/domain/ports/adapter"
	"exam-prep-payments/internal/domain/ports/repository"
	payAdapters "exam-prep-payments/internal/infra/adapters/payment"
	"exam-prep-payments/internal/infra/api"
	pg "exam-prep-payments/internal/infra/db/postgres"
	"exam-prep-payments/internal/infra/logging"
	"exam-prep-payments/internal/infra/metrics"
	red "exam-prep-payments/internal/infra/redis"
	"exam-prep-payments/internal/infra/sched"
	"exam-prep-payments/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop gateway when secrets are absent)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("service stopped with error")
	}
	logger.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) error {
	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	payRepo := pg.NewPaymentRepo(pool)
	var profileRepo repository.ProfileRepository = pg.NewProfileRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Redis (optional) ----
	var (
		limiter api.RateLimiter = api.NewLocalLimiter()
		locker  red.Locker
	)
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient)
		locker = red.NewLocker(redisClient)
		profileRepo = pg.NewProfileRepoCacheDecorator(profileRepo, redisClient, cfg.Redis.TTL)
	} else {
		logger.Warn().Msg("redis.url not set; using in-process rate limiter and no reconciler lock")
	}

	// ---- Payment gateway ----
	var gateway adapter.PaymentGateway
	rp := cfg.Payment.Razorpay
	if cfg.UseNoopGateway() {
		gateway = payAdapters.NewNoopPaymentGateway("dev_key_secret", "dev_webhook_secret")
		logger.Warn().Str("gateway", gateway.Name()).Msg("payment gateway running without secrets (dev)")
	} else {
		gateway, err = payAdapters.NewRazorpayGateway(rp.KeyID, rp.KeySecret, rp.WebhookSecret, rp.BaseURL, rp.Timeout)
		if err != nil {
			return fmt.Errorf("razorpay gateway: %w", err)
		}
		logger.Info().Str("gateway", gateway.Name()).Str("key_id", logging.Redact(rp.KeyID, cfg.Runtime.Dev)).Str("base_url", rp.BaseURL).Msg("payment gateway ready")
	}

	// ---- Use cases ----
	paymentUC := usecase.NewPaymentUseCase(payRepo, profileRepo, gateway, txManager, logger, rp.DefaultCurrency)
	subUC := usecase.NewSubscriptionUseCase(profileRepo)

	// ---- Reconciler ----
	reconciler := sched.NewSubscriptionReconciler(paymentUC, locker, cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, cfg.Reconciler.Batch, cfg.Reconciler.LockTTL, logger)
	go reconciler.Start(ctx)

	// ---- HTTP ----
	srv := api.NewServer(paymentUC, subUC, api.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer), limiter, pool.Ping, api.Options{
		RequestTimeout:     cfg.HTTP.RequestTimeout,
		RedirectSuccessURL: cfg.HTTP.RedirectSuccessURL,
		RedirectFailureURL: cfg.HTTP.RedirectFailureURL,
		AllowedOrigin:      cfg.HTTP.AllowedOrigin,
		OrderPerMinute:     cfg.RateLimit.OrderPerMinute,
	}, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Handler(),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	// ---- Graceful shutdown ----
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
