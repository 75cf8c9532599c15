package rbac

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/platform/db"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// PGRepository implements RepositoryPort and PrincipalLoader on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const roleColumns = `r.id, r.name, r.description, r.is_system, r.created_at, r.updated_at,
	(SELECT COUNT(*) FROM users u WHERE u.role_id = r.id)::int`

// ListRoles returns all roles with their grants.
func (r *PGRepository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles r ORDER BY r.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	index := map[int64]int{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		index[role.ID] = len(roles)
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	grants, err := r.pool.Query(ctx, `SELECT role_id, permission_code, access_level FROM role_permissions ORDER BY role_id, permission_code`)
	if err != nil {
		return nil, err
	}
	defer grants.Close()
	for grants.Next() {
		var roleID int64
		var code, level string
		if err := grants.Scan(&roleID, &code, &level); err != nil {
			return nil, err
		}
		i, ok := index[roleID]
		if !ok || !Permission(code).Valid() {
			continue
		}
		roles[i].Permissions = append(roles[i].Permissions, RolePermission{Code: Permission(code), Access: AccessLevel(level)})
	}
	return roles, grants.Err()
}

// GetRole fetches one role.
func (r *PGRepository) GetRole(ctx context.Context, id int64) (Role, error) {
	return getRole(ctx, r.pool, id, false)
}

// WithTx runs fn inside a transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{PGSink: audit.NewPGSink(tx), tx: tx})
	})
}

// LoadPrincipal builds the principal for an active user.
func (r *PGRepository) LoadPrincipal(ctx context.Context, userID int64) (*Principal, error) {
	var (
		name, email, roleName string
		roleID                *int64
		active                bool
	)
	err := r.pool.QueryRow(ctx, `SELECT u.name, u.email, u.is_active, u.role_id, COALESCE(r.name, '')
		FROM users u LEFT JOIN roles r ON r.id = u.role_id WHERE u.id = $1`, userID).
		Scan(&name, &email, &active, &roleID, &roleName)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	if !active {
		return nil, nil
	}
	if roleID == nil {
		return NewPrincipal(userID, name, email, 0, "", nil), nil
	}
	grants, err := loadGrants(ctx, r.pool, *roleID)
	if err != nil {
		return nil, err
	}
	codes := make([]Permission, 0, len(grants))
	for _, g := range grants {
		codes = append(codes, g.Code)
	}
	return NewPrincipal(userID, name, email, *roleID, roleName, codes), nil
}

type txRepo struct {
	audit.PGSink
	tx pgx.Tx
}

func (t *txRepo) GetRoleForUpdate(ctx context.Context, id int64) (Role, error) {
	return getRole(ctx, t.tx, id, true)
}

func (t *txRepo) InsertRole(ctx context.Context, name, description string) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO roles (name, description, is_system, created_at, updated_at)
		VALUES ($1, $2, FALSE, NOW(), NOW()) RETURNING id`, name, description).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, shared.Conflict("role name already exists")
		}
		return 0, err
	}
	return id, nil
}

func (t *txRepo) UpdateRole(ctx context.Context, id int64, name, description string) error {
	_, err := t.tx.Exec(ctx, `UPDATE roles SET name = $2, description = $3, updated_at = NOW() WHERE id = $1`, id, name, description)
	if db.IsUniqueViolation(err) {
		return shared.Conflict("role name already exists")
	}
	return err
}

func (t *txRepo) DeleteRole(ctx context.Context, id int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	return err
}

func (t *txRepo) CountRoleUsers(ctx context.Context, id int64) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role_id = $1`, id).Scan(&n)
	return n, err
}

func (t *txRepo) ReplaceRolePermissions(ctx context.Context, id int64, perms []RolePermission) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
		return err
	}
	for _, p := range perms {
		if _, err := t.tx.Exec(ctx, `INSERT INTO role_permissions (role_id, permission_code, access_level) VALUES ($1, $2, $3)`,
			id, string(p.Code), string(p.Access)); err != nil {
			return err
		}
	}
	_, err := t.tx.Exec(ctx, `UPDATE roles SET updated_at = NOW() WHERE id = $1`, id)
	return err
}

func getRole(ctx context.Context, q db.DBTX, id int64, forUpdate bool) (Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles r WHERE r.id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	role, err := scanRole(q.QueryRow(ctx, query, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Role{}, shared.NotFound("role")
		}
		return Role{}, err
	}
	if role.Permissions, err = loadGrants(ctx, q, id); err != nil {
		return Role{}, err
	}
	return role, nil
}

func loadGrants(ctx context.Context, q db.DBTX, roleID int64) ([]RolePermission, error) {
	rows, err := q.Query(ctx, `SELECT permission_code, access_level FROM role_permissions WHERE role_id = $1 ORDER BY permission_code`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	grants := []RolePermission{}
	for rows.Next() {
		var code, level string
		if err := rows.Scan(&code, &level); err != nil {
			return nil, err
		}
		// Codes no longer in the enum grant nothing.
		if !Permission(code).Valid() {
			continue
		}
		grants = append(grants, RolePermission{Code: Permission(code), Access: AccessLevel(level)})
	}
	return grants, rows.Err()
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.IsSystem, &role.CreatedAt, &role.UpdatedAt, &role.UserCount)
	if role.Permissions == nil {
		role.Permissions = []RolePermission{}
	}
	return role, err
}
