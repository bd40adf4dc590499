package main

import (
	"os"

	"wealthplanner/internal/amqp"
	"wealthplanner/internal/cli"
	"wealthplanner/internal/config"
	"wealthplanner/internal/log"
	gsheet "wealthplanner/internal/sheets/google"
	"wealthplanner/internal/storage"
	"wealthplanner/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateLedgerWorker)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	logger.Info("Starting ledger-worker", "queue", cfg.AMQPQueue, "spreadsheet_id", cfg.GoogleSpreadsheetID)

	sheetsClient, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleLedgerSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}

	// Replaced ledgers are re-read from the database; the memory backend lives
	// in the web process and cannot be shared.
	var source worker.LedgerSource
	if cfg.DataBackend == config.BackendSQLite {
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		source = repo
	} else {
		logger.Warn("No shared database, ledger replacements will not be mirrored", "backend", cfg.DataBackend)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	w := worker.NewLedgerWorker(sheetsClient, source)
	if err := client.ConsumeLedgerEvents(ctx, w.Handle); err != nil && ctx.Err() == nil {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("ledger-worker stopped")
}
