package customers

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

const customerColumns = `id, customer_code, company_name, contact_name, email, phone, tax_id,
	credit_limit, payment_terms_days, address_line1, city, postal_code, country,
	is_active, notes, created_by, created_at, updated_at`

// Get fetches a customer by id.
func (r *PGRepository) Get(ctx context.Context, id int64) (Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
}

// List returns the filtered page and the total match count.
func (r *PGRepository) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	var (
		where []string
		args  []any
	)
	if search := strings.TrimSpace(req.Search); search != "" {
		args = append(args, "%"+search+"%")
		where = append(where, fmt.Sprintf("(company_name ILIKE $%d OR customer_code ILIKE $%d)", len(args), len(args)))
	}
	if req.IsActive != nil {
		args = append(args, *req.IsActive)
		where = append(where, fmt.Sprintf("is_active = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, req.PageSize, req.Offset())
	query := fmt.Sprintf(`SELECT %s FROM customers%s ORDER BY customer_code LIMIT $%d OFFSET $%d`,
		customerColumns, clause, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
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

func (t *txRepo) NextCustomerID(ctx context.Context, prefix string) (string, error) {
	return shared.NextSequence(ctx, t.tx, shared.CustomerSequence(prefix))
}

func (t *txRepo) Insert(ctx context.Context, c Customer) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO customers (customer_code, company_name, contact_name, email, phone, tax_id,
		credit_limit, payment_terms_days, address_line1, city, postal_code, country, is_active, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
		RETURNING id`,
		c.CustomerID, c.CompanyName, c.ContactName, c.Email, c.Phone, c.TaxID,
		c.CreditLimit, c.PaymentTermsDays, c.AddressLine1, c.City, c.PostalCode, c.Country, c.IsActive, c.Notes, c.CreatedBy,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, shared.Conflict("customer id " + c.CustomerID + " already exists")
		}
		return 0, err
	}
	return id, nil
}

func (t *txRepo) GetForUpdate(ctx context.Context, id int64) (Customer, error) {
	return scanCustomer(t.tx.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepo) Update(ctx context.Context, c Customer) error {
	_, err := t.tx.Exec(ctx, `UPDATE customers SET company_name = $2, contact_name = $3, email = $4, phone = $5, tax_id = $6,
		credit_limit = $7, payment_terms_days = $8, address_line1 = $9, city = $10, postal_code = $11, country = $12,
		is_active = $13, notes = $14, updated_at = NOW() WHERE id = $1`,
		c.ID, c.CompanyName, c.ContactName, c.Email, c.Phone, c.TaxID,
		c.CreditLimit, c.PaymentTermsDays, c.AddressLine1, c.City, c.PostalCode, c.Country, c.IsActive, c.Notes)
	return err
}

func (t *txRepo) CountDependents(ctx context.Context, id int64) (Dependents, error) {
	var d Dependents
	err := t.tx.QueryRow(ctx, `SELECT
		(SELECT COUNT(*) FROM sales_orders WHERE customer_id = $1)::int,
		(SELECT COUNT(*) FROM invoices WHERE customer_id = $1)::int`, id).Scan(&d.SalesOrders, &d.Invoices)
	return d, err
}

func (t *txRepo) Delete(ctx context.Context, id int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return shared.Precondition("customer is referenced by other records; deactivate it instead")
	}
	return err
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.CustomerID, &c.CompanyName, &c.ContactName, &c.Email, &c.Phone, &c.TaxID,
		&c.CreditLimit, &c.PaymentTermsDays, &c.AddressLine1, &c.City, &c.PostalCode, &c.Country,
		&c.IsActive, &c.Notes, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return Customer{}, shared.NotFound("customer")
		}
		return Customer{}, err
	}
	return c, nil
}

var _ RepositoryPort = (*PGRepository)(nil)
