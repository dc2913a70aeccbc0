package amqp

import (
	"encoding/json"
	"time"
)

// Mirror message operations.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// TransactionSyncMessage tells the mirror worker which transaction
// changed. It carries only the id and the operation; the worker fetches
// the current row from the store, so a stale message never replays old
// field values.
type TransactionSyncMessage struct {
	ID        string    `json:"id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewUpsertMessage(id string) *TransactionSyncMessage {
	return &TransactionSyncMessage{ID: id, Op: OpUpsert, Timestamp: time.Now()}
}

func NewDeleteMessage(id string) *TransactionSyncMessage {
	return &TransactionSyncMessage{ID: id, Op: OpDelete, Timestamp: time.Now()}
}

func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
