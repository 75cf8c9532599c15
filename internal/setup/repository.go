package setup

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/platform/db"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// PGRepository implements UserRepository and SearchRepository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `u.id, u.email, u.name, u.role_id, COALESCE(r.name, ''), u.is_active, u.last_login_at, u.created_at, u.updated_at`

// ListUsers returns a page of users ordered by name.
func (r *PGRepository) ListUsers(ctx context.Context, f UserFilter) ([]User, int, error) {
	var (
		where []string
		args  []any
	)
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where = append(where, fmt.Sprintf("(u.name ILIKE $%d OR u.email ILIKE $%d)", len(args), len(args)))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		where = append(where, fmt.Sprintf("u.is_active = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users u`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, f.PageSize, f.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM users u LEFT JOIN roles r ON r.id = u.role_id%s
		ORDER BY u.name, u.id LIMIT $%d OFFSET $%d`, userColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// GetUser fetches one user.
func (r *PGRepository) GetUser(ctx context.Context, id int64) (User, error) {
	return getUser(ctx, r.pool, id, false)
}

// SearchCandidates matches folded codes and titles with the unaccent extension.
func (r *PGRepository) SearchCandidates(ctx context.Context, kind SearchKind, term string, limit int) ([]SearchHit, error) {
	var query string
	switch kind {
	case KindCustomer:
		query = `SELECT id, customer_code, company_name FROM customers
			WHERE unaccent(lower(company_name)) LIKE $1 OR lower(customer_code) LIKE $1 ORDER BY company_name LIMIT $2`
	case KindVendor:
		query = `SELECT id, vendor_code, name FROM vendors
			WHERE unaccent(lower(name)) LIKE $1 OR lower(vendor_code) LIKE $1 ORDER BY name LIMIT $2`
	case KindAccount:
		query = `SELECT id, account_number, name FROM accounts
			WHERE unaccent(lower(name)) LIKE $1 OR account_number LIKE $1 ORDER BY account_number LIMIT $2`
	default:
		return nil, fmt.Errorf("setup: unknown search kind %q", kind)
	}
	rows, err := r.pool.Query(ctx, query, "%"+likeEscape(term)+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SearchHit
	for rows.Next() {
		h := SearchHit{Kind: kind}
		if err := rows.Scan(&h.ID, &h.Code, &h.Title); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func likeEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// WithTx runs fn inside a transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, UserTx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{PGSink: audit.NewPGSink(tx), tx: tx})
	})
}

type txRepo struct {
	audit.PGSink
	tx pgx.Tx
}

func (t *txRepo) InsertUser(ctx context.Context, u NewUser) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO users (email, name, password_hash, role_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW()) RETURNING id`, u.Email, u.Name, u.PasswordHash, u.RoleID).Scan(&id)
	if err != nil && db.IsUniqueViolation(err) {
		return 0, shared.Conflict("email " + u.Email + " is already registered")
	}
	return id, err
}

func (t *txRepo) GetUserForUpdate(ctx context.Context, id int64) (User, error) {
	return getUser(ctx, t.tx, id, true)
}

func (t *txRepo) RoleExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func (t *txRepo) UpdateUserRole(ctx context.Context, id int64, roleID *int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE users SET role_id = $2, updated_at = NOW() WHERE id = $1`, id, roleID)
	return err
}

func (t *txRepo) DeactivateUser(ctx context.Context, id int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (t *txRepo) DeleteUserSessions(ctx context.Context, id int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM user_sessions WHERE user_id = $1`, id)
	return err
}

func getUser(ctx context.Context, q db.DBTX, id int64, forUpdate bool) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users u LEFT JOIN roles r ON r.id = u.role_id WHERE u.id = $1`
	if forUpdate {
		query += ` FOR UPDATE OF u`
	}
	return scanUser(q.QueryRow(ctx, query, id))
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u         User
		lastLogin pgtype.Timestamptz
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.RoleID, &u.RoleName, &u.IsActive, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
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

var (
	_ UserRepository   = (*PGRepository)(nil)
	_ SearchRepository = (*PGRepository)(nil)
)
