package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"time"

	"wealthplanner/internal/auth"
	"wealthplanner/internal/backend"
	"wealthplanner/internal/cache"
	"wealthplanner/internal/cli"
	apphttp "wealthplanner/internal/http"
	"wealthplanner/internal/log"
	"wealthplanner/internal/middleware/ratelimit"
	"wealthplanner/internal/middleware/security"
	"wealthplanner/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, nil)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	budget := services.NewBudgetService(res.Store, res.Events)
	defer func() {
		if err := budget.Close(); err != nil {
			logger.Error("Failed to close store", log.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to close OTP store", log.FieldError, err)
		}
	}()

	secret := cfg.JWTSecret
	if secret == "" {
		// Only reachable in dev mode: sessions do not survive a restart.
		secret = ephemeralSecret()
		logger.Warn("JWT_SECRET not set, using a random secret for this run")
	}

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimitPerMinute,
		CleanupInterval:   5 * time.Minute,
	})
	detector := security.NewDetector()
	for _, cidr := range cfg.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Error("Invalid trusted proxy", log.FieldError, err)
			os.Exit(1)
		}
	}
	charts := cache.NewLRUCache[[]byte](100, 10*time.Minute)
	caches := cache.NewManager(charts)

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Auth:         services.NewAuthService(res.Store, res.OTPs),
		Budget:       budget,
		Settings:     services.NewSettingsService(res.Store),
		Issuer:       auth.NewIssuer(secret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, cfg.SessionTTL),
		Limiter:      limiter,
		Detector:     detector,
		Charts:       charts,
		Logger:       logger,
		CookieSecure: cfg.CookieSecure,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Starting wealthplanner", "port", cfg.Port, "backend", cfg.DataBackend,
		"otp_backend", cfg.OTPBackend, "events", res.Events != nil)

	err = cli.Run(ctx,
		cli.ServeTask(logger, &srv.Server),
		func(ctx context.Context) error { limiter.Run(ctx); return nil },
		func(ctx context.Context) error { caches.Run(ctx, time.Minute); return nil },
		cli.TickerTask(logger, "http_stats", cfg.StatsInterval, func(ctx context.Context) error {
			srv.LogStats(ctx)
			return nil
		}),
	)
	if err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func ephemeralSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
