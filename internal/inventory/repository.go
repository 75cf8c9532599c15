package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/platform/db"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// PGRepository implements RepositoryPort on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const warehouseColumns = `id, code, name, address, city, manager, is_active, created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// List returns the filtered page and the total match count.
func (r *PGRepository) List(ctx context.Context, f WarehouseFilter) ([]Warehouse, int, error) {
	var (
		where []string
		args  []any
	)
	if search := strings.TrimSpace(f.Search); search != "" {
		args = append(args, "%"+search+"%")
		where = append(where, fmt.Sprintf("(code ILIKE $%d OR name ILIKE $%d)", len(args), len(args)))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		where = append(where, fmt.Sprintf("is_active = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM warehouses`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, f.PageSize, f.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM warehouses%s ORDER BY code LIMIT $%d OFFSET $%d`,
		warehouseColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Warehouse
	for rows.Next() {
		w, err := scanWarehouse(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, w)
	}
	return out, total, rows.Err()
}

// Get fetches one warehouse.
func (r *PGRepository) Get(ctx context.Context, id int64) (Warehouse, error) {
	return scanWarehouse(r.pool.QueryRow(ctx, `SELECT `+warehouseColumns+` FROM warehouses WHERE id = $1`, id))
}

// WithTx runs fn inside a transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{PGSink: audit.NewPGSink(tx), tx: tx})
	})
}

type txRepo struct {
	audit.PGSink
	tx pgx.Tx
}

func (t *txRepo) Insert(ctx context.Context, w Warehouse) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO warehouses (code, name, address, city, manager, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW()) RETURNING id`,
		w.Code, w.Name, w.Address, w.City, w.Manager, w.IsActive, w.CreatedBy,
	).Scan(&id)
	if err != nil && db.IsUniqueViolation(err) {
		return 0, shared.Conflict("warehouse code " + w.Code + " already exists")
	}
	return id, err
}

func (t *txRepo) GetForUpdate(ctx context.Context, id int64) (Warehouse, error) {
	return scanWarehouse(t.tx.QueryRow(ctx, `SELECT `+warehouseColumns+` FROM warehouses WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepo) Update(ctx context.Context, w Warehouse) error {
	_, err := t.tx.Exec(ctx, `UPDATE warehouses SET code = $2, name = $3, address = $4, city = $5, manager = $6,
		is_active = $7, updated_at = NOW() WHERE id = $1`,
		w.ID, w.Code, w.Name, w.Address, w.City, w.Manager, w.IsActive)
	if err != nil && db.IsUniqueViolation(err) {
		return shared.Conflict("warehouse code " + w.Code + " already exists")
	}
	return err
}

func scanWarehouse(row rowScanner) (Warehouse, error) {
	var w Warehouse
	err := row.Scan(&w.ID, &w.Code, &w.Name, &w.Address, &w.City, &w.Manager, &w.IsActive, &w.CreatedBy, &w.CreatedAt, &w.UpdatedAt)
	if db.IsNoRows(err) {
		return Warehouse{}, shared.NotFound("warehouse")
	}
	return w, err
}
