// Package memsink provides in-memory audit and notification sinks for
// service tests. Memory repositories call Mark before running a transaction
// callback and Rollback when it fails, mimicking a database rollback.
package memsink

import (
	"context"
	"sync"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/notify"
)

// Sinks captures audit entries and notifications.
type Sinks struct {
	mu            sync.Mutex
	Entries       []audit.Entry
	Notifications []notify.Notification
	nextID        int64

	// FailAudit makes InsertAuditEntry fail, to exercise rollback paths.
	FailAudit error
}

// New returns empty sinks.
func New() *Sinks {
	return &Sinks{}
}

// Checkpoint records sink lengths before a transaction.
type Checkpoint struct {
	entries       int
	notifications int
}

// Mark returns the current checkpoint.
func (s *Sinks) Mark() Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Checkpoint{entries: len(s.Entries), notifications: len(s.Notifications)}
}

// Rollback drops everything written after cp.
func (s *Sinks) Rollback(cp Checkpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Entries = s.Entries[:cp.entries]
	s.Notifications = s.Notifications[:cp.notifications]
}

// InsertAuditEntry implements audit.Sink.
func (s *Sinks) InsertAuditEntry(ctx context.Context, e audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAudit != nil {
		return s.FailAudit
	}
	s.Entries = append(s.Entries, e)
	return nil
}

// InsertNotification implements notify.Sink.
func (s *Sinks) InsertNotification(ctx context.Context, n notify.Notification) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	n.ID = s.nextID
	s.Notifications = append(s.Notifications, n)
	return n.ID, nil
}

// Actions lists recorded audit actions for entityType in order.
func (s *Sinks) Actions(entityType string) []audit.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []audit.Action
	for _, e := range s.Entries {
		if e.EntityType == entityType {
			out = append(out, e.Action)
		}
	}
	return out
}

var (
	_ audit.Sink  = (*Sinks)(nil)
	_ notify.Sink = (*Sinks)(nil)
)
