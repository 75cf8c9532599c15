package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Action is the verb recorded for a state change.
type Action string

const (
	ActionCreate      Action = "create"
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionApprove     Action = "approve"
	ActionVoid        Action = "void"
	ActionPost        Action = "post"
	ActionPayment     Action = "payment"
	ActionCancel      Action = "cancel"
	ActionConfirm     Action = "confirm"
	ActionFulfill     Action = "fulfill"
	ActionSubmit      Action = "submit"
	ActionSend        Action = "send"
	ActionReceive     Action = "receive"
	ActionClose       Action = "close"
	ActionDepreciate  Action = "depreciate"
	ActionPermissions Action = "permissions"
	ActionLogin       Action = "login"
	ActionPassword    Action = "password"
)

// Entry is an immutable record of one state change.
type Entry struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"userId"`
	UserName   string    `json:"userName,omitempty"`
	Action     Action    `json:"action"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	OldValue   Snapshot  `json:"oldValue,omitempty"`
	NewValue   Snapshot  `json:"newValue,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Snapshot is a JSON object capturing an entity's state. Stored as jsonb so
// rows stay queryable by key.
type Snapshot map[string]any

// SnapshotOf normalises v into a Snapshot through its JSON encoding. Values
// that do not encode as an object are stored under "value".
func SnapshotOf(v any) (Snapshot, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(Snapshot); ok {
		return s, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("audit: snapshot %T: %w", v, err)
	}
	if string(data) == "null" {
		return nil, nil
	}
	var out Snapshot
	if err := json.Unmarshal(data, &out); err != nil {
		var scalar any
		if err := json.Unmarshal(data, &scalar); err != nil {
			return nil, fmt.Errorf("audit: snapshot %T: %w", v, err)
		}
		return Snapshot{"value": scalar}, nil
	}
	return out, nil
}

// Sink persists audit entries. Implementations write inside the caller's
// transaction so the entry commits or rolls back with the business change.
type Sink interface {
	InsertAuditEntry(ctx context.Context, entry Entry) error
}

// Filters narrows an audit log query.
type Filters struct {
	EntityType string
	EntityID   string
	UserID     int64
	Action     Action
	From       time.Time
	To         time.Time
	Page       int
	PageSize   int
}

// PagingInfo holds simple paging metadata.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasNext  bool `json:"hasNext"`
	PrevPage int  `json:"prevPage,omitempty"`
	NextPage int  `json:"nextPage,omitempty"`
}

// Result wraps a page of entries.
type Result struct {
	Entries []Entry    `json:"entries"`
	Paging  PagingInfo `json:"paging"`
}
