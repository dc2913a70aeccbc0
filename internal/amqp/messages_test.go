package amqp

import (
	"testing"
	"time"
)

func TestNewMessages(t *testing.T) {
	up := NewUpsertMessage("tx-1")
	if up.ID != "tx-1" || up.Op != OpUpsert {
		t.Errorf("upsert message = %+v", up)
	}
	del := NewDeleteMessage("tx-2")
	if del.ID != "tx-2" || del.Op != OpDelete {
		t.Errorf("delete message = %+v", del)
	}
	if up.Timestamp.IsZero() || time.Since(up.Timestamp) > time.Second {
		t.Error("timestamp should be recent")
	}
}

func TestTransactionSyncMessageInvalidJSON(t *testing.T) {
	if _, err := TransactionSyncMessageFromJSON([]byte(`{"id": 42}`)); err == nil {
		t.Error("expected error for non-string id")
	}
}
