package amqp

import (
	"encoding/json"
	"time"
)

// TransactionChangedMessage announces a committed write. It carries only the
// identity of the record; consumers read the current row from the database.
type TransactionChangedMessage struct {
	ID        int64     `json:"id"`
	Op        string    `json:"op"`
	Version   uint64    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

func NewTransactionChangedMessage(id int64, op string, version uint64) *TransactionChangedMessage {
	return &TransactionChangedMessage{
		ID:        id,
		Op:        op,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *TransactionChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionChangedMessageFromJSON(data []byte) (*TransactionChangedMessage, error) {
	var msg TransactionChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
