// Package backend builds the stores and the event publisher the services run on.
package backend

import (
	"context"

	"wealthplanner/internal/services"
)

// CleanupFunc releases what the services do not own.
type CleanupFunc func() error

// Result is what the web server is assembled from. Store and Events are
// handed to BudgetService, which closes them. Cleanup closes the rest.
type Result struct {
	Store   services.Store
	OTPs    services.OTPStore
	Events  services.EventPublisher
	Cleanup CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

type OTPType string

const (
	// SQLOTP keeps codes in the data store's otps table (or its memory twin).
	SQLOTP   OTPType = "sql"
	RedisOTP OTPType = "redis"
)

func (ot OTPType) IsValid() bool {
	return ot == SQLOTP || ot == RedisOTP
}
