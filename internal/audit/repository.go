package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/backoffice/internal/platform/db"
)

// PGSink writes entries through a pool or transaction.
type PGSink struct {
	q db.DBTX
}

// NewPGSink wraps q, normally the pgx.Tx of the running handler.
func NewPGSink(q db.DBTX) PGSink {
	return PGSink{q: q}
}

// InsertAuditEntry persists the entry.
func (s PGSink) InsertAuditEntry(ctx context.Context, e Entry) error {
	_, err := s.q.Exec(ctx, `INSERT INTO audit_logs (id, user_id, action, entity_type, entity_id, old_value, new_value, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.UserID, string(e.Action), e.EntityType, e.EntityID, nullableSnapshot(e.OldValue), nullableSnapshot(e.NewValue), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

func nullableSnapshot(s Snapshot) any {
	if s == nil {
		return nil
	}
	return map[string]any(s)
}

// PGRepository reads audit_logs.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Search returns entries newest first.
func (r *PGRepository) Search(ctx context.Context, f Filters, limit, offset int) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.EntityType != "" {
		add("a.entity_type = $%d", f.EntityType)
	}
	if f.EntityID != "" {
		add("a.entity_id = $%d", f.EntityID)
	}
	if f.UserID != 0 {
		add("a.user_id = $%d", f.UserID)
	}
	if f.Action != "" {
		add("a.action = $%d", string(f.Action))
	}
	if !f.From.IsZero() {
		add("a.created_at >= $%d", pgtype.Timestamptz{Time: f.From, Valid: true})
	}
	if !f.To.IsZero() {
		add("a.created_at < $%d", pgtype.Timestamptz{Time: f.To, Valid: true})
	}
	query := `SELECT a.id, a.user_id, COALESCE(u.name, ''), a.action, a.entity_type, a.entity_id, a.old_value, a.new_value, a.created_at
FROM audit_logs a LEFT JOIN users u ON u.id = a.user_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY a.created_at DESC, a.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			action string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.UserName, &action, &e.EntityType, &e.EntityID, &e.OldValue, &e.NewValue, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = Action(action)
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ Sink = PGSink{}
