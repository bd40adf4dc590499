package backend

import (
	"context"
	"errors"
	"fmt"

	"wealthplanner/internal/amqp"
	"wealthplanner/internal/log"
	"wealthplanner/internal/services"
	"wealthplanner/internal/storage"
	"wealthplanner/internal/storage/memory"
	"wealthplanner/internal/storage/redisotp"
)

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentStorage)}
}

// CreateBackend opens the data store, the OTP store and, when enabled, the
// event publisher. A broker that cannot be reached disables events rather
// than failing start-up.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, sqlOTPs, err := f.createStore(config)
	if err != nil {
		return nil, err
	}

	res := &Result{Store: store, OTPs: sqlOTPs, Cleanup: func() error { return nil }}

	if config.OTPType == RedisOTP {
		rs, err := redisotp.Dial(ctx, config.RedisAddr, config.RedisPassword, config.RedisDB)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to initialize redis OTP store: %w", err), store.Close())
		}
		res.OTPs = rs
		res.Cleanup = rs.Close
		f.logger.Info("Initialized redis OTP store", "addr", config.RedisAddr, "db", config.RedisDB)
	}

	if config.EventsEnabled {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without ledger events", log.FieldError, err)
		} else {
			res.Events = client
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	return res, nil
}

func (f *DefaultFactory) createStore(config Config) (services.Store, services.OTPStore, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, repo, nil
	case MemoryBackend:
		store := memory.New()
		f.logger.Warn("Initialized memory backend; data is lost on restart")
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
