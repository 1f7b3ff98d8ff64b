package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TransactionEvent announces that one of a user's transactions changed.
// It carries ids only; consumers reload whatever they need.
type TransactionEvent struct {
	MessageID     string    `json:"messageId"`
	Kind          string    `json:"kind"`
	UserID        string    `json:"userId"`
	TransactionID int64     `json:"transactionId"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionEvent(userID string, transactionID int64, kind string) *TransactionEvent {
	return &TransactionEvent{
		MessageID:     uuid.NewString(),
		Kind:          kind,
		UserID:        userID,
		TransactionID: transactionID,
		Timestamp:     time.Now().UTC(),
	}
}

func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON decodes an event; an event without a user is rejected.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, errors.New("transaction event without user id")
	}
	return &msg, nil
}
