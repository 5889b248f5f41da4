package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"velam/internal/core"
)

// Operations carried by a LedgerChangedMessage.
const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
	OperationReturn = "return"
)

// LedgerChangedMessage announces that one ledger entry changed. It carries
// no entry data; consumers reload the ledger.
type LedgerChangedMessage struct {
	EventID   string    `json:"event_id"`
	Kind      core.Kind `json:"kind"`
	ID        int64     `json:"id"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerChangedMessage stamps a change with a fresh event id and the
// current time.
func NewLedgerChangedMessage(kind core.Kind, id int64, operation string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		EventID:   uuid.NewString(),
		Kind:      kind,
		ID:        id,
		Operation: operation,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes a message and checks its kind and
// event id.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(msg.EventID); err != nil {
		return nil, fmt.Errorf("invalid event id %q: %w", msg.EventID, err)
	}
	if _, err := core.ParseKind(string(msg.Kind)); err != nil {
		return nil, err
	}
	return &msg, nil
}
