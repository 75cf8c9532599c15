package sales

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/notify"
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

const (
	orderColumns = `o.id, o.order_number, o.customer_id, o.order_date, o.status, o.subtotal, o.tax_total, o.total,
	o.notes, o.created_by, o.created_at, o.updated_at`
	invoiceColumns = `i.id, i.invoice_number, i.customer_id, c.company_name, i.sales_order_id, i.issue_date, i.due_date,
	i.status, i.subtotal, i.tax_total, i.total, i.amount_paid, i.amount_due, i.created_by, i.created_at, i.updated_at`
	lineColumns = `id, description, quantity, unit_price, tax_rate, subtotal, tax_amount, total`
)

type rowScanner interface {
	Scan(dest ...any) error
}

// ListOrders returns the filtered page and the total match count.
func (r *PGRepository) ListOrders(ctx context.Context, f OrderFilter) ([]Order, int, error) {
	var (
		where []string
		args  []any
	)
	if f.CustomerID > 0 {
		args = append(args, f.CustomerID)
		where = append(where, fmt.Sprintf("o.customer_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("o.status = $%d", len(args)))
	}
	clause := whereClause(where)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales_orders o`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, f.PageSize, f.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM sales_orders o%s ORDER BY o.order_date DESC, o.id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		o.Lines = []Line{}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// GetOrder fetches an order with its lines.
func (r *PGRepository) GetOrder(ctx context.Context, id int64) (Order, error) {
	return getOrder(ctx, r.pool, id, false)
}

// ListInvoices returns the filtered page and the total match count.
func (r *PGRepository) ListInvoices(ctx context.Context, f InvoiceFilter) ([]Invoice, int, error) {
	var (
		where []string
		args  []any
	)
	if f.CustomerID > 0 {
		args = append(args, f.CustomerID)
		where = append(where, fmt.Sprintf("i.customer_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("i.status = $%d", len(args)))
	}
	clause := whereClause(where)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices i`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, f.PageSize, f.Offset())
	invoices, err := queryInvoices(ctx, r.pool, fmt.Sprintf(`SELECT %s FROM invoices i JOIN customers c ON c.id = i.customer_id%s
		ORDER BY i.issue_date DESC, i.id DESC LIMIT $%d OFFSET $%d`, invoiceColumns, clause, len(args)-1, len(args)), args...)
	return invoices, total, err
}

// GetInvoice fetches an invoice with lines and payments.
func (r *PGRepository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+`
		FROM invoices i JOIN customers c ON c.id = i.customer_id WHERE i.id = $1`, id))
	if err != nil {
		return Invoice{}, err
	}
	if inv.Lines, err = loadLines(ctx, r.pool, "invoice_lines", "invoice_id", id); err != nil {
		return Invoice{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, payment_number, invoice_id, amount, payment_date, method, reference, created_by, created_at
		FROM payments WHERE invoice_id = $1 ORDER BY payment_date, id`, id)
	if err != nil {
		return Invoice{}, err
	}
	defer rows.Close()
	inv.Payments = []Payment{}
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.PaymentNumber, &p.InvoiceID, &p.Amount, &p.PaymentDate, &p.Method, &p.Reference, &p.CreatedBy, &p.CreatedAt); err != nil {
			return Invoice{}, err
		}
		inv.Payments = append(inv.Payments, p)
	}
	return inv, rows.Err()
}

// ListOutstandingInvoices returns every open or partially paid invoice.
func (r *PGRepository) ListOutstandingInvoices(ctx context.Context) ([]Invoice, error) {
	return queryInvoices(ctx, r.pool, `SELECT `+invoiceColumns+`
		FROM invoices i JOIN customers c ON c.id = i.customer_id
		WHERE i.status IN ('open', 'partially_paid') AND i.amount_due > 0
		ORDER BY i.due_date, i.id`)
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

func (t *txRepo) NextNumber(ctx context.Context, spec shared.SequenceSpec) (string, error) {
	return shared.NextSequence(ctx, t.tx, spec)
}

func (t *txRepo) CustomerForSale(ctx context.Context, customerID int64) (CustomerRef, error) {
	var c CustomerRef
	err := t.tx.QueryRow(ctx, `SELECT id, company_name, payment_terms_days, is_active FROM customers WHERE id = $1`, customerID).
		Scan(&c.ID, &c.CompanyName, &c.PaymentTermsDays, &c.IsActive)
	if db.IsNoRows(err) {
		return CustomerRef{}, shared.NotFound("customer")
	}
	return c, err
}

func (t *txRepo) InsertOrder(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO sales_orders (order_number, customer_id, order_date, status, subtotal, tax_total, total,
		notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW()) RETURNING id`,
		o.OrderNumber, o.CustomerID, o.OrderDate, string(o.Status), o.Subtotal, o.TaxTotal, o.Total, o.Notes, o.CreatedBy,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, shared.Conflict("order number " + o.OrderNumber + " already exists")
		}
		return 0, err
	}
	return id, insertLines(ctx, t.tx, "sales_order_lines", "order_id", id, o.Lines)
}

func (t *txRepo) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	return getOrder(ctx, t.tx, id, true)
}

func (t *txRepo) UpdateOrderStatus(ctx context.Context, id int64, status OrderStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE sales_orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	return err
}

func (t *txRepo) OrderInvoiced(ctx context.Context, orderID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE sales_order_id = $1 AND status <> 'void')`, orderID).Scan(&exists)
	return exists, err
}

func (t *txRepo) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO invoices (invoice_number, customer_id, sales_order_id, issue_date, due_date, status,
		subtotal, tax_total, total, amount_paid, amount_due, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW()) RETURNING id`,
		inv.InvoiceNumber, inv.CustomerID, inv.SalesOrderID, inv.IssueDate, inv.DueDate, string(inv.Status),
		inv.Subtotal, inv.TaxTotal, inv.Total, inv.AmountPaid, inv.AmountDue, inv.CreatedBy,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, shared.Conflict("invoice number " + inv.InvoiceNumber + " already exists")
		}
		return 0, err
	}
	return id, insertLines(ctx, t.tx, "invoice_lines", "invoice_id", id, inv.Lines)
}

func (t *txRepo) GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error) {
	inv, err := scanInvoice(t.tx.QueryRow(ctx, `SELECT `+invoiceColumns+`
		FROM invoices i JOIN customers c ON c.id = i.customer_id WHERE i.id = $1 FOR UPDATE OF i`, id))
	if err != nil {
		return Invoice{}, err
	}
	inv.Lines, err = loadLines(ctx, t.tx, "invoice_lines", "invoice_id", id)
	return inv, err
}

func (t *txRepo) UpdateInvoiceBalance(ctx context.Context, id int64, b Balance) error {
	_, err := t.tx.Exec(ctx, `UPDATE invoices SET status = $2, amount_paid = $3, amount_due = $4, updated_at = NOW() WHERE id = $1`,
		id, string(b.Status), b.AmountPaid, b.AmountDue)
	return err
}

func (t *txRepo) CountPayments(ctx context.Context, invoiceID int64) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE invoice_id = $1`, invoiceID).Scan(&n)
	return n, err
}

func (t *txRepo) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO payments (payment_number, invoice_id, amount, payment_date, method, reference, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW()) RETURNING id`,
		p.PaymentNumber, p.InvoiceID, p.Amount, p.PaymentDate, p.Method, p.Reference, p.CreatedBy,
	).Scan(&id)
	if err != nil && db.IsUniqueViolation(err) {
		return 0, shared.Conflict("payment number " + p.PaymentNumber + " already exists")
	}
	return id, err
}

func (t *txRepo) ClaimIdempotencyKey(ctx context.Context, scope, key string, userID int64) error {
	tag, err := t.tx.Exec(ctx, `INSERT INTO idempotency_keys (scope, key, user_id, created_at)
		VALUES ($1, $2, $3, NOW()) ON CONFLICT (scope, key) DO NOTHING`, scope, key, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.Error{Kind: shared.KindConflict, Message: "request " + key + " was already processed", Cause: shared.ErrDuplicateRequest}
	}
	return nil
}

func getOrder(ctx context.Context, q db.DBTX, id int64, forUpdate bool) (Order, error) {
	query := `SELECT ` + orderColumns + ` FROM sales_orders o WHERE o.id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	o, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		return Order{}, err
	}
	o.Lines, err = loadLines(ctx, q, "sales_order_lines", "order_id", id)
	return o, err
}

func scanOrder(row rowScanner) (Order, error) {
	var (
		o      Order
		status string
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.OrderDate, &status, &o.Subtotal, &o.TaxTotal, &o.Total,
		&o.Notes, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if db.IsNoRows(err) {
		return Order{}, shared.NotFound("sales order")
	}
	o.Status = OrderStatus(status)
	return o, err
}

func scanInvoice(row rowScanner) (Invoice, error) {
	var (
		inv    Invoice
		status string
	)
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.CustomerID, &inv.CustomerName, &inv.SalesOrderID, &inv.IssueDate, &inv.DueDate,
		&status, &inv.Subtotal, &inv.TaxTotal, &inv.Total, &inv.AmountPaid, &inv.AmountDue, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if db.IsNoRows(err) {
		return Invoice{}, shared.NotFound("invoice")
	}
	inv.Status = InvoiceStatus(status)
	return inv, err
}

func queryInvoices(ctx context.Context, q db.DBTX, sql string, args ...any) ([]Invoice, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		inv.Lines = []Line{}
		inv.Payments = []Payment{}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// loadLines reads the lines of one document. table and parent are constants.
func loadLines(ctx context.Context, q db.DBTX, table, parent string, id int64) ([]Line, error) {
	rows, err := q.Query(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY line_no, id`, lineColumns, table, parent), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []Line{}
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.Description, &l.Quantity, &l.UnitPrice, &l.TaxRate, &l.Subtotal, &l.TaxAmount, &l.Total); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func insertLines(ctx context.Context, tx pgx.Tx, table, parent string, id int64, lines []Line) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s, line_no, description, quantity, unit_price, tax_rate, subtotal, tax_amount, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, table, parent)
	batch := &pgx.Batch{}
	for i, l := range lines {
		batch.Queue(query, id, i+1, l.Description, l.Quantity, l.UnitPrice, l.TaxRate, l.Subtotal, l.TaxAmount, l.Total)
	}
	results := tx.SendBatch(ctx, batch)
	for range lines {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return err
		}
	}
	return results.Close()
}

func whereClause(where []string) string {
	if len(where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(where, " AND ")
}
