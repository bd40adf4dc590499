package main

import (
	"context"
	"os"

	"wealthplanner/internal/backend"
	"wealthplanner/internal/cli"
	"wealthplanner/internal/log"
	"wealthplanner/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger, nil)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	// The maintenance worker never publishes ledger events.
	backendCfg.EventsEnabled = false
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := res.Store.Close(); err != nil {
			logger.Error("Failed to close store", log.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to close OTP store", log.FieldError, err)
		}
	}()

	authSvc := services.NewAuthService(res.Store, res.OTPs)
	purge := func(ctx context.Context) error {
		n, err := authSvc.PurgeExpiredOTPs(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.InfoContext(ctx, "Expired OTPs purged", log.FieldOperation, log.OpPurge, "count", n)
		}
		return nil
	}

	logger.Info("Starting maintenance-worker", "interval", cfg.OTPPurgeInterval)
	if err := purge(ctx); err != nil {
		logger.Error("Initial OTP purge failed", log.FieldError, err)
	}
	if err := cli.Run(ctx, cli.TickerTask(logger, "otp_purge", cfg.OTPPurgeInterval, purge)); err != nil {
		logger.Error("maintenance-worker failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("maintenance-worker stopped")
}
