package services

import (
	"context"
	"time"

	"wealthplanner/internal/amqp"
	"wealthplanner/internal/core"
)

// Ports used by the services. storage.SQLiteRepository and memory.Store
// implement Store and OTPStore; redisotp.Store implements OTPStore.
type (
	ProfileStore interface {
		GetProfile(ctx context.Context, id int64) (core.Profile, error)
		GetProfileByPhone(ctx context.Context, phone string) (core.Profile, error)
		CreateProfile(ctx context.Context, p core.Profile) (core.Profile, error)
		UpdateProfile(ctx context.Context, p core.Profile) error
	}

	LedgerStore interface {
		ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error)
		ListTransactionsBetween(ctx context.Context, userID int64, from, to core.Date) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error)
		InsertAtTop(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, userID, id int64) error
		Reorder(ctx context.Context, userID int64, positions map[int64]int) error
		EnsureMonthEndSavings(ctx context.Context, tx core.Transaction) (core.Transaction, bool, error)
		ReplaceAll(ctx context.Context, p core.Profile, txs []core.Transaction) error
		Reset(ctx context.Context, p core.Profile) error
	}

	Store interface {
		ProfileStore
		LedgerStore
		Ping(ctx context.Context) error
		Close() error
	}

	OTPStore interface {
		SaveOTP(ctx context.Context, o core.OTP) error
		LatestOTP(ctx context.Context, phone string) (core.OTP, error)
		MarkOTPVerified(ctx context.Context, phone, code string) error
		PurgeOTPs(ctx context.Context, cutoff time.Time) (int64, error)
	}

	// EventPublisher is satisfied by *amqp.Client.
	EventPublisher interface {
		PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
		Close() error
	}
)
