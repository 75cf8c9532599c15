package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/backoffice/internal/platform/db"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

const notificationColumns = `id, user_id, type, title, message, COALESCE(link, ''), read_at, created_at`

// PGSink writes notifications through a pool or transaction.
type PGSink struct {
	q db.DBTX
}

// NewPGSink wraps q, normally the pgx.Tx of the running handler.
func NewPGSink(q db.DBTX) PGSink {
	return PGSink{q: q}
}

// InsertNotification persists n as unread.
func (s PGSink) InsertNotification(ctx context.Context, n Notification) (int64, error) {
	var id int64
	err := s.q.QueryRow(ctx, `INSERT INTO notifications (user_id, type, title, message, link, created_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6) RETURNING id`,
		n.UserID, string(n.Type), n.Title, n.Message, n.Link, n.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("notify: insert: %w", err)
	}
	return id, nil
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// List returns notifications newest first.
func (r *PGRepository) List(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+notificationColumns+` FROM notifications
WHERE user_id = $1 AND ($2 = FALSE OR read_at IS NULL)
ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Count returns the number of matching notifications.
func (r *PGRepository) Count(ctx context.Context, userID int64, unreadOnly bool) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND ($2 = FALSE OR read_at IS NULL)`, userID, unreadOnly).Scan(&n)
	return n, err
}

// MarkRead sets read_at once; repeated calls keep the first timestamp.
func (r *PGRepository) MarkRead(ctx context.Context, userID, id int64, at time.Time) (Notification, error) {
	row := r.pool.QueryRow(ctx, `UPDATE notifications SET read_at = COALESCE(read_at, $3)
WHERE id = $1 AND user_id = $2 RETURNING `+notificationColumns, id, userID, at)
	n, err := scanNotification(row)
	if err != nil {
		if db.IsNoRows(err) {
			return Notification{}, shared.NotFound("notification")
		}
		return Notification{}, err
	}
	return n, nil
}

// MarkAllRead flags all unread notifications of userID.
func (r *PGRepository) MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read_at = $2 WHERE user_id = $1 AND read_at IS NULL`, userID, at)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (Notification, error) {
	var (
		n    Notification
		typ  string
		read *time.Time
	)
	if err := row.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &n.Link, &read, &n.CreatedAt); err != nil {
		return Notification{}, err
	}
	n.Type = Type(typ)
	n.ReadAt = read
	n.Read = read != nil
	return n, nil
}

var (
	_ Sink       = PGSink{}
	_ Repository = (*PGRepository)(nil)
)
