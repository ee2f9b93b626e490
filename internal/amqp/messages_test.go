package amqp

import (
	"testing"
	"time"
)

func TestNewTransactionEvent(t *testing.T) {
	e := NewTransactionEvent(EventCreated, 12345, "2025-01-02")

	if e.TransactionID != 12345 || e.Date != "2025-01-02" || e.Type != EventCreated {
		t.Errorf("unexpected event %+v", e)
	}
	if e.ID == "" {
		t.Error("event id should be set")
	}
	if other := NewTransactionEvent(EventCreated, 12345, "2025-01-02"); other.ID == e.ID {
		t.Error("event ids should be unique")
	}
	if time.Since(e.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestTransactionEventFromJSON(t *testing.T) {
	timestamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	e := &TransactionEvent{
		ID:            "abc",
		Type:          EventDeleted,
		TransactionID: 9,
		Date:          "2024-01-01",
		Timestamp:     timestamp,
	}
	body, err := e.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	parsed, err := TransactionEventFromJSON(body)
	if err != nil {
		t.Fatalf("TransactionEventFromJSON() error = %v", err)
	}
	if parsed.ID != e.ID || parsed.Type != e.Type || parsed.TransactionID != e.TransactionID || parsed.Date != e.Date {
		t.Errorf("parsed %+v, want %+v", parsed, e)
	}
	if !parsed.Timestamp.Equal(timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, timestamp)
	}
}

func TestTransactionEventFromJSON_Invalid(t *testing.T) {
	cases := map[string]string{
		"not json":     `{"id": `,
		"wrong types":  `{"transaction_id": "x"}`,
		"unknown type": `{"id":"a","type":"transaction.updated","date":"2024-01-01"}`,
		"missing date": `{"id":"a","type":"transaction.created"}`,
	}
	for name, body := range cases {
		if _, err := TransactionEventFromJSON([]byte(body)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
