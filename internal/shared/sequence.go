package shared

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// SequenceDigits is the zero padding applied to generated document numbers.
const SequenceDigits = 5

// SequenceSpec names the table column holding numbers for a prefix.
type SequenceSpec struct {
	Prefix string
	Table  string
	Column string
}

// Document number schemes.
var (
	SeqSalesOrder    = SequenceSpec{Prefix: "SO-", Table: "sales_orders", Column: "order_number"}
	SeqInvoice       = SequenceSpec{Prefix: "INV-", Table: "invoices", Column: "invoice_number"}
	SeqPayment       = SequenceSpec{Prefix: "PAY-", Table: "payments", Column: "payment_number"}
	SeqPurchaseOrder = SequenceSpec{Prefix: "PO-", Table: "purchase_orders", Column: "po_number"}
	SeqReceipt       = SequenceSpec{Prefix: "GRN-", Table: "purchase_receipts", Column: "receipt_number"}
	SeqJournal       = SequenceSpec{Prefix: "JE-", Table: "journal_entries", Column: "entry_number"}
	SeqFixedAsset    = SequenceSpec{Prefix: "FA-", Table: "fixed_assets", Column: "asset_number"}
	SeqVendor        = SequenceSpec{Prefix: "VEND-", Table: "vendors", Column: "vendor_code"}
)

// CustomerSequence builds the customer id scheme for the configured prefix.
func CustomerSequence(prefix string) SequenceSpec {
	if prefix == "" {
		prefix = "CUST-"
	}
	return SequenceSpec{Prefix: prefix, Table: "customers", Column: "customer_code"}
}

// FormatNumber renders prefix + zero padded n.
func FormatNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s%0*d", prefix, SequenceDigits, n)
}

// ParseNumber extracts the integer suffix of value for prefix.
func ParseNumber(prefix, value string) (int64, bool) {
	if !strings.HasPrefix(value, prefix) {
		return 0, false
	}
	n, err := strconv.ParseInt(value[len(prefix):], 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NextFromExisting returns max(existing)+1 for values matching prefix.
func NextFromExisting(prefix string, existing []string) int64 {
	var max int64
	for _, v := range existing {
		if n, ok := ParseNumber(prefix, v); ok && n > max {
			max = n
		}
	}
	return max + 1
}

// DBTX is the subset of pgx used by sequence reservation.
type DBTX interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NextSequence reserves the next number for spec inside the caller's
// transaction: one greater than the highest number stored in the target
// column. The upsert locks the counter row, so concurrent reservations
// serialise; a waiter that read a stale maximum collides on the business key
// and its caller retries through RetryConflicts.
func NextSequence(ctx context.Context, q DBTX, spec SequenceSpec) (string, error) {
	query := fmt.Sprintf(`WITH observed AS (
	SELECT COALESCE(MAX(SUBSTRING(%[2]s FROM $2::int)::bigint), 0) AS max_value
	FROM %[1]s WHERE %[2]s ~ $3
)
INSERT INTO document_sequences (prefix, last_value)
SELECT $1, max_value + 1 FROM observed
ON CONFLICT (prefix) DO UPDATE
SET last_value = EXCLUDED.last_value
RETURNING last_value`, pgx.Identifier{spec.Table}.Sanitize(), pgx.Identifier{spec.Column}.Sanitize())
	pattern := "^" + regexp.QuoteMeta(spec.Prefix) + "[0-9]+$"
	var n int64
	if err := q.QueryRow(ctx, query, spec.Prefix, len(spec.Prefix)+1, pattern).Scan(&n); err != nil {
		return "", fmt.Errorf("shared: next sequence %s: %w", spec.Prefix, err)
	}
	return FormatNumber(spec.Prefix, n), nil
}

// RetryConflicts reruns fn while it fails with a Conflict, up to attempts times.
// Used around transactions that insert a generated business key. A replayed
// request (ErrDuplicateRequest) is final and returned at once.
func RetryConflicts(ctx context.Context, attempts int, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil || !IsKind(err, KindConflict) || errors.Is(err, ErrDuplicateRequest) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}
