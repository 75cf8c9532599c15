package purchasing

import (
	"context"
	"fmt"
	"strings"
	"time"

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
	vendorColumns = `id, vendor_code, name, contact_name, email, phone, tax_id, payment_terms_days, is_active,
	created_by, created_at, updated_at`
	orderColumns = `po.id, po.po_number, po.vendor_id, v.name, po.order_date, po.expected_date, po.status,
	po.subtotal, po.tax_total, po.total, po.notes, po.approved_by, po.approved_at, po.created_by, po.created_at, po.updated_at`
	orderFrom = ` FROM purchase_orders po JOIN vendors v ON v.id = po.vendor_id`
)

type rowScanner interface {
	Scan(dest ...any) error
}

// ListVendors returns the filtered page and the total match count.
func (r *PGRepository) ListVendors(ctx context.Context, f VendorFilter) ([]Vendor, int, error) {
	var (
		where []string
		args  []any
	)
	if search := strings.TrimSpace(f.Search); search != "" {
		args = append(args, "%"+search+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR vendor_code ILIKE $%d)", len(args), len(args)))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		where = append(where, fmt.Sprintf("is_active = $%d", len(args)))
	}
	clause := whereClause(where)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vendors`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, f.PageSize, f.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM vendors%s ORDER BY vendor_code LIMIT $%d OFFSET $%d`,
		vendorColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}

// GetVendor fetches one vendor.
func (r *PGRepository) GetVendor(ctx context.Context, id int64) (Vendor, error) {
	return scanVendor(r.pool.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, id))
}

// ListOrders returns the filtered page and the total match count.
func (r *PGRepository) ListOrders(ctx context.Context, f OrderFilter) ([]Order, int, error) {
	var (
		where []string
		args  []any
	)
	if f.VendorID > 0 {
		args = append(args, f.VendorID)
		where = append(where, fmt.Sprintf("po.vendor_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("po.status = $%d", len(args)))
	}
	clause := whereClause(where)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders po`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, f.PageSize, f.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s%s%s ORDER BY po.order_date DESC, po.id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, orderFrom, clause, len(args)-1, len(args)), args...)
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
		o.Lines, o.Receipts = []Line{}, []Receipt{}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// GetOrder fetches an order with lines and receipts.
func (r *PGRepository) GetOrder(ctx context.Context, id int64) (Order, error) {
	o, err := loadOrder(ctx, r.pool, id, false)
	if err != nil {
		return Order{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, receipt_number, po_id, warehouse_id, received_date, notes, created_by, created_at
		FROM purchase_receipts WHERE po_id = $1 ORDER BY id`, id)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	o.Receipts = []Receipt{}
	for rows.Next() {
		var rc Receipt
		if err := rows.Scan(&rc.ID, &rc.ReceiptNumber, &rc.OrderID, &rc.WarehouseID, &rc.ReceivedDate, &rc.Notes, &rc.CreatedBy, &rc.CreatedAt); err != nil {
			return Order{}, err
		}
		o.Receipts = append(o.Receipts, rc)
	}
	return o, rows.Err()
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

func (t *txRepo) InsertVendor(ctx context.Context, v Vendor) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO vendors (vendor_code, name, contact_name, email, phone, tax_id, payment_terms_days,
		is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW()) RETURNING id`,
		v.VendorCode, v.Name, v.ContactName, v.Email, v.Phone, v.TaxID, v.PaymentTermsDays, v.IsActive, v.CreatedBy,
	).Scan(&id)
	if err != nil && db.IsUniqueViolation(err) {
		return 0, shared.Conflict("vendor code " + v.VendorCode + " already exists")
	}
	return id, err
}

func (t *txRepo) GetVendorForUpdate(ctx context.Context, id int64) (Vendor, error) {
	return scanVendor(t.tx.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepo) CountVendorOrders(ctx context.Context, vendorID int64) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders WHERE vendor_id = $1`, vendorID).Scan(&n)
	return n, err
}

func (t *txRepo) DeleteVendor(ctx context.Context, id int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM vendors WHERE id = $1`, id)
	if err != nil && db.IsForeignKeyViolation(err) {
		return shared.Precondition("vendor is referenced by other records")
	}
	return err
}

func (t *txRepo) InsertOrder(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO purchase_orders (po_number, vendor_id, order_date, expected_date, status,
		subtotal, tax_total, total, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW()) RETURNING id`,
		o.PONumber, o.VendorID, o.OrderDate, o.ExpectedDate, string(o.Status), o.Subtotal, o.TaxTotal, o.Total, o.Notes, o.CreatedBy,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, shared.Conflict("purchase order number " + o.PONumber + " already exists")
		}
		return 0, err
	}
	return id, t.insertLines(ctx, id, o.Lines)
}

func (t *txRepo) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	return loadOrder(ctx, t.tx, id, true)
}

func (t *txRepo) ReplaceOrderLines(ctx context.Context, id int64, lines []Line, totals Totals) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM purchase_order_lines WHERE po_id = $1`, id); err != nil {
		return err
	}
	if err := t.insertLines(ctx, id, lines); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET subtotal = $2, tax_total = $3, total = $4, updated_at = NOW() WHERE id = $1`,
		id, totals.Subtotal, totals.TaxTotal, totals.Total)
	return err
}

func (t *txRepo) UpdateOrderStatus(ctx context.Context, id int64, status Status) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	return err
}

func (t *txRepo) SetApproval(ctx context.Context, id, userID int64, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET approved_by = $2, approved_at = $3 WHERE id = $1`, id, userID, at)
	return err
}

func (t *txRepo) CountReceipts(ctx context.Context, orderID int64) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_receipts WHERE po_id = $1`, orderID).Scan(&n)
	return n, err
}

func (t *txRepo) InsertReceipt(ctx context.Context, rc Receipt) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO purchase_receipts (receipt_number, po_id, warehouse_id, received_date, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING id`,
		rc.ReceiptNumber, rc.OrderID, rc.WarehouseID, rc.ReceivedDate, rc.Notes, rc.CreatedBy,
	).Scan(&id)
	if err != nil && db.IsUniqueViolation(err) {
		return 0, shared.Conflict("receipt number " + rc.ReceiptNumber + " already exists")
	}
	return id, err
}

func (t *txRepo) WarehouseActive(ctx context.Context, id int64) (bool, error) {
	var active bool
	err := t.tx.QueryRow(ctx, `SELECT is_active FROM warehouses WHERE id = $1`, id).Scan(&active)
	if db.IsNoRows(err) {
		return false, nil
	}
	return active, err
}

func (t *txRepo) insertLines(ctx context.Context, orderID int64, lines []Line) error {
	batch := &pgx.Batch{}
	for i, l := range lines {
		batch.Queue(`INSERT INTO purchase_order_lines (po_id, line_no, description, quantity, unit_price, tax_rate, subtotal, tax_amount, total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			orderID, i+1, l.Description, l.Quantity, l.UnitPrice, l.TaxRate, l.Subtotal, l.TaxAmount, l.Total)
	}
	results := t.tx.SendBatch(ctx, batch)
	for range lines {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return err
		}
	}
	return results.Close()
}

func loadOrder(ctx context.Context, q db.DBTX, id int64, forUpdate bool) (Order, error) {
	query := `SELECT ` + orderColumns + orderFrom + ` WHERE po.id = $1`
	if forUpdate {
		query += ` FOR UPDATE OF po`
	}
	o, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		return Order{}, err
	}
	rows, err := q.Query(ctx, `SELECT id, description, quantity, unit_price, tax_rate, subtotal, tax_amount, total
		FROM purchase_order_lines WHERE po_id = $1 ORDER BY line_no, id`, id)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	o.Lines = []Line{}
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.Description, &l.Quantity, &l.UnitPrice, &l.TaxRate, &l.Subtotal, &l.TaxAmount, &l.Total); err != nil {
			return Order{}, err
		}
		o.Lines = append(o.Lines, l)
	}
	return o, rows.Err()
}

func scanVendor(row rowScanner) (Vendor, error) {
	var v Vendor
	err := row.Scan(&v.ID, &v.VendorCode, &v.Name, &v.ContactName, &v.Email, &v.Phone, &v.TaxID, &v.PaymentTermsDays, &v.IsActive,
		&v.CreatedBy, &v.CreatedAt, &v.UpdatedAt)
	if db.IsNoRows(err) {
		return Vendor{}, shared.NotFound("vendor")
	}
	return v, err
}

func scanOrder(row rowScanner) (Order, error) {
	var (
		o      Order
		status string
	)
	err := row.Scan(&o.ID, &o.PONumber, &o.VendorID, &o.VendorName, &o.OrderDate, &o.ExpectedDate, &status,
		&o.Subtotal, &o.TaxTotal, &o.Total, &o.Notes, &o.ApprovedBy, &o.ApprovedAt, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if db.IsNoRows(err) {
		return Order{}, shared.NotFound("purchase order")
	}
	o.Status = Status(status)
	return o, err
}

func whereClause(where []string) string {
	if len(where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(where, " AND ")
}
