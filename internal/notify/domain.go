// Package notify persists per-user inbox notifications raised by business events.
package notify

import (
	"context"
	"time"
)

// Type tags a notification for client-side rendering.
type Type string

const (
	TypeInfo            Type = "info"
	TypeApproval        Type = "approval"
	TypePaymentReceived Type = "payment_received"
	TypeInvoicePaid     Type = "invoice_paid"
	TypeSecurity        Type = "security"
)

// Notification is a user inbox item. Only the read state is mutable.
type Notification struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"userId"`
	Type      Type       `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Link      string     `json:"link,omitempty"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Sink inserts notifications inside the caller's transaction.
type Sink interface {
	InsertNotification(ctx context.Context, n Notification) (int64, error)
}

// Mailer forwards committed notifications to an out-of-band channel.
type Mailer interface {
	EnqueueNotificationMail(ctx context.Context, n Notification) error
}
