package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/matchauth"
	"github.com/MrEthical07/matchauth/internal/config"
	"github.com/MrEthical07/matchauth/internal/httpapi"
	"github.com/MrEthical07/matchauth/internal/logger"
	"github.com/MrEthical07/matchauth/internal/store"
	"github.com/MrEthical07/matchauth/password"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	if err := Run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func Run(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	log := logger.NewLogger("matchauth-server")
	ctx = log.WithContext(ctx)

	cfg, err := config.GetStructuredConfig(args)
	if err != nil {
		return fmt.Errorf("error getting configs: %w", err)
	}
	log.Debug().Str("driver", cfg.Storage.DB.Driver).Str("rate_backend", cfg.RateLimit.Backend).
		Str("metrics", cfg.Metrics.Exporter).Bool("dev", cfg.Server.Dev).Msg("received configs")

	db, err := store.NewConnect(ctx, cfg.Storage.DB, log.GetChildLogger())
	if err != nil {
		return fmt.Errorf("error connecting database: %w", err)
	}
	defer db.Close()
	if !cfg.Storage.DB.SkipMigrations {
		if err := db.Migrate(ctx); err != nil {
			return errors.Join(errors.New("migration up failed"), err)
		}
	}
	repos := store.NewRepositories(db)

	redisClient, closeRedis, err := newRedis(cfg)
	if err != nil {
		return err
	}
	defer closeRedis()

	exporter, err := newExporter(cfg.Metrics.Exporter)
	if err != nil {
		return err
	}
	defer exporter.shutdown(context.Background())

	captchaVerifier, err := newCaptcha(cfg.Captcha)
	if err != nil {
		return err
	}

	engineCfg, err := engineConfig(cfg)
	if err != nil {
		return err
	}

	argon, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return err
	}
	passwords, err := password.NewVerifier(argon)
	if err != nil {
		return err
	}

	b := matchauth.New().
		WithConfig(engineCfg).
		WithPrincipalStore(repos.Principals).
		WithPasswordVerifier(passwords).
		WithRefreshStore(repos.RefreshTokens).
		WithMFAStores(repos.Principals, repos.RecoveryCodes).
		WithDeviceStore(repos.Devices).
		WithCaptcha(captchaVerifier).
		WithCounter(exporter.counter).
		WithLogger(log.GetChildLogger())
	if redisClient != nil {
		b.WithRedis(redisClient)
	}
	engine, err := b.Build()
	if err != nil {
		return fmt.Errorf("error building engine: %w", err)
	}
	defer engine.Close()

	if err := exporter.registerDropped(engine.AuditDropped); err != nil {
		return err
	}
	exporter.start(ctx, log.GetChildLogger())

	if cfg.Server.Dev {
		if err := seedDemoPrincipal(ctx, repos.Principals, passwords); err != nil {
			return err
		}
	}

	go sweepRefreshTokens(ctx, repos.RefreshTokens, time.Hour)

	limiter, closeLimiter := newHTTPLimiter(cfg, redisClient)
	defer closeLimiter()

	handler := httpapi.NewHandler(engine, httpapi.Options{
		RequestTimeout:    cfg.Server.RequestTimeout.D(),
		Cookie:            cfg.Cookie,
		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
		Limiter:           limiter,
		IPLoginPerMinute:  cfg.RateLimit.IPLoginPerMinute,
		EndpointPerMinute: cfg.RateLimit.EndpointPerMinute,
		EndpointPerHour:   cfg.RateLimit.EndpointPerHour,
		Metrics:           exporter.handler,
		Health:            db.PingContext,
	}, log.GetChildLogger())

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler.Init(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("listening")
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.D())
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		log.Info().Msg("shutdown completed")
	}
	return nil
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
