package model

import "encoding/json"

// OutboxEntry is a pending remote mutation. Entries sharing a Resource
// key are delivered in enqueue order; unrelated entries may be delivered
// out of order. An entry is deleted only on confirmed remote success.
type OutboxEntry struct {
	ID        int64           `json:"id"`
	Action    string          `json:"action"`
	Resource  string          `json:"resource,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
	Attempts  int64           `json:"attempts"`
	Parked    bool            `json:"parked,omitempty"`
}

// AuditEntry is an append-only forensic log row. Normal operation never
// deletes audit entries.
type AuditEntry struct {
	ID        string          `json:"id"`
	Timestamp int64           `json:"timestamp"`
	Action    string          `json:"action"`
	Entity    string          `json:"entity"`
	EntityID  string          `json:"entity_id"`
	Actor     string          `json:"actor,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
}
