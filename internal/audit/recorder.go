package audit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	// ErrNoSink indicates the recorder was called without a transaction sink.
	ErrNoSink = errors.New("audit: sink not configured")
	// ErrNoActor indicates a missing acting user.
	ErrNoActor = errors.New("audit: actor required")
	// ErrIncomplete indicates missing action or entity fields.
	ErrIncomplete = errors.New("audit: action/entity/entity_id required")
)

// Clock lets tests pin CreatedAt.
var Clock = time.Now

// Record writes one entry for a change made by userID. oldValue and newValue
// are encoded with SnapshotOf; either may be nil.
func Record(ctx context.Context, sink Sink, userID int64, action Action, entityType, entityID string, oldValue, newValue any) error {
	if sink == nil {
		return ErrNoSink
	}
	if userID == 0 {
		return ErrNoActor
	}
	if action == "" || strings.TrimSpace(entityType) == "" || strings.TrimSpace(entityID) == "" {
		return ErrIncomplete
	}
	oldSnap, err := SnapshotOf(oldValue)
	if err != nil {
		return err
	}
	newSnap, err := SnapshotOf(newValue)
	if err != nil {
		return err
	}
	return sink.InsertAuditEntry(ctx, Entry{
		ID:         ulid.Make().String(),
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		OldValue:   oldSnap,
		NewValue:   newSnap,
		CreatedAt:  Clock().UTC(),
	})
}

// ID formats a numeric entity id.
func ID(id int64) string {
	return strconv.FormatInt(id, 10)
}
