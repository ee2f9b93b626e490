package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventCreated EventType = "transaction.created"
	EventDeleted EventType = "transaction.deleted"
)

// TransactionEvent tells the worker that the transactions of one date
// changed. It carries the date so a deleted row can still be accounted for.
type TransactionEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	TransactionID int64     `json:"transaction_id"`
	Date          string    `json:"date"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionEvent creates an event with a fresh id.
func NewTransactionEvent(eventType EventType, transactionID int64, date string) *TransactionEvent {
	return &TransactionEvent{
		ID:            uuid.NewString(),
		Type:          eventType,
		TransactionID: transactionID,
		Date:          date,
		Timestamp:     time.Now().UTC(),
	}
}

func (e *TransactionEvent) Validate() error {
	switch e.Type {
	case EventCreated, EventDeleted:
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.Date == "" {
		return fmt.Errorf("event %s has no date", e.ID)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and validates an event.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
