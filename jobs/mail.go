package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/backoffice/internal/platform/db"
)

// Recipient is the mail target for a user.
type Recipient struct {
	Email  string
	Name   string
	Active bool
}

// RecipientLookup resolves a user id to a recipient. ok is false for
// unknown users.
type RecipientLookup interface {
	Recipient(ctx context.Context, userID int64) (Recipient, bool, error)
}

// Message is one outgoing mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers mail.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// MailJob handles TaskNotificationMail.
type MailJob struct {
	recipients RecipientLookup
	sender     Sender
	baseURL    string
	logger     *slog.Logger
	metrics    *Metrics
}

// NewMailJob constructs a MailJob. baseURL prefixes relative notification links.
func NewMailJob(recipients RecipientLookup, sender Sender, baseURL string, logger *slog.Logger, metrics *Metrics) *MailJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &MailJob{recipients: recipients, sender: sender, baseURL: strings.TrimRight(baseURL, "/"), logger: logger, metrics: metrics}
}

// Handle sends one notification mail. Malformed payloads and users that
// cannot receive mail are dropped without retry.
func (j *MailJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track(TaskNotificationMail)
	var payload NotificationMailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(fmt.Errorf("jobs: decode mail payload: %v: %w", err, asynq.SkipRetry))
	}
	rcpt, ok, err := j.recipients.Recipient(ctx, payload.UserID)
	if err != nil {
		return tracker.End(fmt.Errorf("jobs: lookup recipient: %w", err))
	}
	if !ok || !rcpt.Active || rcpt.Email == "" {
		j.logger.Info("notification mail skipped",
			slog.Int64("notification_id", payload.NotificationID), slog.Int64("user_id", payload.UserID))
		return tracker.End(nil)
	}
	msg := j.compose(rcpt, payload)
	if err := j.sender.Send(ctx, msg); err != nil {
		return tracker.End(fmt.Errorf("jobs: send notification %d: %w", payload.NotificationID, err))
	}
	j.logger.Info("notification mail sent",
		slog.Int64("notification_id", payload.NotificationID), slog.String("type", string(payload.Type)))
	return tracker.End(nil)
}

func (j *MailJob) compose(rcpt Recipient, p NotificationMailPayload) Message {
	var body strings.Builder
	name := rcpt.Name
	if name == "" {
		name = rcpt.Email
	}
	fmt.Fprintf(&body, "Hello %s,\r\n\r\n%s\r\n", name, p.Message)
	if p.Link != "" {
		link := p.Link
		if strings.HasPrefix(link, "/") && j.baseURL != "" {
			link = j.baseURL + link
		}
		fmt.Fprintf(&body, "\r\n%s\r\n", link)
	}
	return Message{To: rcpt.Email, Subject: "[Odyssey] " + p.Title, Body: body.String()}
}

// PGRecipients reads recipients from the users table.
type PGRecipients struct {
	pool *pgxpool.Pool
}

// NewPGRecipients constructs a PGRecipients.
func NewPGRecipients(pool *pgxpool.Pool) *PGRecipients {
	return &PGRecipients{pool: pool}
}

// Recipient implements RecipientLookup.
func (r *PGRecipients) Recipient(ctx context.Context, userID int64) (Recipient, bool, error) {
	var rcpt Recipient
	err := r.pool.QueryRow(ctx, `SELECT email, name, is_active FROM users WHERE id = $1`, userID).
		Scan(&rcpt.Email, &rcpt.Name, &rcpt.Active)
	if db.IsNoRows(err) {
		return Recipient{}, false, nil
	}
	if err != nil {
		return Recipient{}, false, err
	}
	return rcpt, true, nil
}

// SMTPSender delivers mail through a plain SMTP relay.
type SMTPSender struct {
	Addr     string
	From     string
	Username string
	Password string
}

// Send implements Sender.
func (s SMTPSender) Send(_ context.Context, msg Message) error {
	var auth smtp.Auth
	if s.Username != "" {
		host, _, _ := strings.Cut(s.Addr, ":")
		auth = smtp.PlainAuth("", s.Username, s.Password, host)
	}
	return smtp.SendMail(s.Addr, auth, s.From, []string{msg.To}, renderMessage(s.From, msg))
}

func renderMessage(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", sanitizeHeader(msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
