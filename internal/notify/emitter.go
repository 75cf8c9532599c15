package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// ErrInvalid indicates a notification without target user or title.
var ErrInvalid = errors.New("notify: user and title required")

// Emitter writes notifications within handler transactions and hands them to
// the optional Mailer once the transaction has committed.
type Emitter struct {
	mailer Mailer
	logger *slog.Logger
	now    func() time.Time
}

// NewEmitter constructs an Emitter. mailer may be nil.
func NewEmitter(mailer Mailer, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{mailer: mailer, logger: logger, now: time.Now}
}

// Emit persists one unread notification through sink.
func (e *Emitter) Emit(ctx context.Context, sink Sink, userID int64, typ Type, title, message, link string) (Notification, error) {
	if userID == 0 || strings.TrimSpace(title) == "" {
		return Notification{}, ErrInvalid
	}
	if typ == "" {
		typ = TypeInfo
	}
	n := Notification{
		UserID:    userID,
		Type:      typ,
		Title:     strings.TrimSpace(title),
		Message:   message,
		Link:      link,
		CreatedAt: e.clock().UTC(),
	}
	id, err := sink.InsertNotification(ctx, n)
	if err != nil {
		return Notification{}, err
	}
	n.ID = id
	return n, nil
}

// Dispatch forwards committed notifications to the mailer. Failures are
// logged; the inbox row is already durable.
func (e *Emitter) Dispatch(ctx context.Context, notes ...Notification) {
	if e == nil || e.mailer == nil {
		return
	}
	for _, n := range notes {
		if n.ID == 0 {
			continue
		}
		if err := e.mailer.EnqueueNotificationMail(ctx, n); err != nil {
			e.logger.Warn("enqueue notification mail", slog.Int64("notification_id", n.ID), slog.Any("error", err))
		}
	}
}

func (e *Emitter) clock() time.Time {
	if e == nil || e.now == nil {
		return time.Now()
	}
	return e.now()
}
