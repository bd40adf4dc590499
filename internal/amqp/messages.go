package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"wealthplanner/internal/core"
)

type EventType string

const (
	TransactionCreated EventType = "transaction.created"
	TransactionUpdated EventType = "transaction.updated"
	TransactionDeleted EventType = "transaction.deleted"
	// LedgerReplaced means every transaction of the user changed at once (import or reset).
	LedgerReplaced EventType = "ledger.replaced"
)

// LedgerEvent describes one change to a user's ledger. It carries the full
// row so consumers never need to read the database.
type LedgerEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	UserID        int64     `json:"user_id"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	Description   string    `json:"description,omitempty"`
	AmountCents   int64     `json:"amount_cents,omitempty"`
	Category      string    `json:"category,omitempty"`
	Date          string    `json:"date,omitempty"`
	Order         int       `json:"order"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionEvent(typ EventType, tx core.Transaction) *LedgerEvent {
	return &LedgerEvent{
		ID:            uuid.NewString(),
		Type:          typ,
		UserID:        tx.UserID,
		TransactionID: tx.ID,
		Description:   tx.Description,
		AmountCents:   tx.Amount.Cents,
		Category:      string(tx.Category),
		Date:          tx.Date.String(),
		Order:         tx.Order,
		Timestamp:     time.Now(),
	}
}

func NewLedgerReplacedEvent(userID int64) *LedgerEvent {
	return &LedgerEvent{
		ID:        uuid.NewString(),
		Type:      LedgerReplaced,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// Transaction rebuilds the ledger row carried by a transaction event.
func (e *LedgerEvent) Transaction() (core.Transaction, error) {
	date, err := core.ParseDate(e.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:          e.TransactionID,
		UserID:      e.UserID,
		Description: e.Description,
		Amount:      core.Money{Cents: e.AmountCents},
		Category:    core.Category(e.Category),
		Date:        date,
		Order:       e.Order,
	}, nil
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
