package auth

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/notify"
	"github.com/odyssey-erp/backoffice/internal/platform/db"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// RepositoryPort defines persistence operations for the auth module.
type RepositoryPort interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository performs account writes inside a transaction.
type TxRepository interface {
	audit.Sink
	notify.Sink
	GetUserForUpdate(ctx context.Context, id int64) (User, error)
	UpdateProfile(ctx context.Context, id int64, name, email string) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	TouchLogin(ctx context.Context, id int64, at time.Time) error
	CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time, meta ClientMeta) error
	DeleteSession(ctx context.Context, token string) error
}

// PGRepository implements RepositoryPort using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, email, name, password_hash, role_id, is_active, last_login_at, created_at, updated_at`

// FindByEmail fetches a user by case-insensitive email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email)))
}

// GetUser fetches a user by id.
func (r *PGRepository) GetUser(ctx context.Context, id int64) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// WithTx runs fn inside a transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{PGSink: audit.NewPGSink(tx), notes: notify.NewPGSink(tx), tx: tx})
	})
}

type txRepo struct {
	audit.PGSink
	notes notify.PGSink
	tx    pgx.Tx
}

func (t *txRepo) InsertNotification(ctx context.Context, n notify.Notification) (int64, error) {
	return t.notes.InsertNotification(ctx, n)
}

func (t *txRepo) GetUserForUpdate(ctx context.Context, id int64) (User, error) {
	return scanUser(t.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepo) UpdateProfile(ctx context.Context, id int64, name, email string) error {
	_, err := t.tx.Exec(ctx, `UPDATE users SET name = $2, email = $3, updated_at = NOW() WHERE id = $1`, id, name, email)
	if db.IsUniqueViolation(err) {
		return shared.Conflict("email already in use")
	}
	return err
}

func (t *txRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	_, err := t.tx.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	return err
}

func (t *txRepo) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
	return err
}

// CreateSession keeps a durable record of issued sessions next to the Redis entry.
func (t *txRepo) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time, meta ClientMeta) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO user_sessions (id, user_id, created_at, expires_at, ip, user_agent)
		VALUES ($1, $2, NOW(), $3, $4, $5)`,
		token, userID,
		pgtype.Timestamptz{Time: expiresAt.UTC(), Valid: true},
		pgtype.Text{String: meta.IP, Valid: meta.IP != ""},
		pgtype.Text{String: meta.UserAgent, Valid: meta.UserAgent != ""},
	)
	return err
}

func (t *txRepo) DeleteSession(ctx context.Context, token string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM user_sessions WHERE id = $1`, token)
	return err
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u         User
		lastLogin pgtype.Timestamptz
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.RoleID, &u.IsActive, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return User{}, shared.NotFound("user")
		}
		return User{}, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return u, nil
}

var _ RepositoryPort = (*PGRepository)(nil)
