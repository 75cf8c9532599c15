package sales

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/backoffice/internal/shared"
)

const dateLayout = "2006-01-02"

// LineInput is a priced line in create payloads.
type LineInput struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity" validate:"gt=0"`
	UnitPrice   decimal.Decimal `json:"unitPrice" validate:"gte=0"`
	TaxRate     decimal.Decimal `json:"taxRate" validate:"gte=0,lte=100"`
}

func (in LineInput) line() Line {
	return Line{Description: in.Description, Quantity: in.Quantity, UnitPrice: shared.RoundMoney(in.UnitPrice), TaxRate: in.TaxRate}
}

// CreateOrderInput is the sales.createOrder payload.
type CreateOrderInput struct {
	CustomerID int64       `json:"customerId" validate:"required,gt=0"`
	OrderDate  string      `json:"orderDate" validate:"omitempty,datetime=2006-01-02"`
	Notes      string      `json:"notes" validate:"max=2000"`
	Lines      []LineInput `json:"lines" validate:"required,min=1,max=200,dive"`
}

// OrderFilter narrows sales.listOrders.
type OrderFilter struct {
	shared.PageRequest
	CustomerID int64       `json:"customerId" validate:"gte=0"`
	Status     OrderStatus `json:"status" validate:"omitempty,oneof=draft confirmed fulfilled cancelled"`
}

// OrderList is a page of orders.
type OrderList struct {
	Orders     []Order           `json:"orders"`
	Pagination shared.Pagination `json:"pagination"`
}

// CreateInvoiceInput is the sales.createInvoice payload: either an order to
// bill or a customer with ad hoc lines.
type CreateInvoiceInput struct {
	SalesOrderID int64       `json:"salesOrderId" validate:"required_without=CustomerID,gte=0"`
	CustomerID   int64       `json:"customerId" validate:"required_without=SalesOrderID,gte=0"`
	IssueDate    string      `json:"issueDate" validate:"omitempty,datetime=2006-01-02"`
	DueDate      string      `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	Lines        []LineInput `json:"lines" validate:"max=200,dive"`
}

// InvoiceFilter narrows sales.listInvoices.
type InvoiceFilter struct {
	shared.PageRequest
	CustomerID int64         `json:"customerId" validate:"gte=0"`
	Status     InvoiceStatus `json:"status" validate:"omitempty,oneof=open partially_paid paid void"`
}

// InvoiceList is a page of invoices.
type InvoiceList struct {
	Invoices   []Invoice         `json:"invoices"`
	Pagination shared.Pagination `json:"pagination"`
}

// RecordPaymentInput is the sales.recordPayment payload. IdempotencyKey makes
// client retries safe.
type RecordPaymentInput struct {
	InvoiceID      int64           `json:"invoiceId" validate:"required,gt=0"`
	Amount         decimal.Decimal `json:"amount" validate:"gt=0"`
	PaymentDate    string          `json:"paymentDate" validate:"omitempty,datetime=2006-01-02"`
	Method         string          `json:"method" validate:"required,oneof=cash bank_transfer card cheque"`
	Reference      string          `json:"reference" validate:"max=100"`
	IdempotencyKey string          `json:"idempotencyKey" validate:"omitempty,max=100"`
}

// IDInput addresses one record.
type IDInput struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

// AgingInput is the reports.arAging payload.
type AgingInput struct {
	AsOf string `json:"asOf" validate:"omitempty,datetime=2006-01-02"`
}

// parseDate reads an optional YYYY-MM-DD value, defaulting to today (UTC).
func parseDate(field, raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, shared.FieldError(field, "must be a date in 2006-01-02 format")
	}
	return t, nil
}
