package amqp

import (
	"encoding/json"
	"time"
)

const (
	OpAppend = "append"
	OpDelete = "delete"
)

// LedgerEventMessage announces that a record mutation committed and carries
// the signed delta that should have landed on the balance. The reconciler
// uses these as triggers only; it always recomputes from the full record set
// rather than trusting the delta.
type LedgerEventMessage struct {
	Op         string    `json:"op"` // "append" or "delete"
	RecordID   string    `json:"record_id"`
	DeltaCents int64     `json:"delta_cents"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewLedgerEventMessage(op, recordID string, deltaCents int64) *LedgerEventMessage {
	return &LedgerEventMessage{
		Op:         op,
		RecordID:   recordID,
		DeltaCents: deltaCents,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
