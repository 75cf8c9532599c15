// Package sales covers sales orders, customer invoices, payments and AR aging.
package sales

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/backoffice/internal/shared"
)

const (
	entityOrder   = "sales_order"
	entityInvoice = "invoice"
)

// OrderStatus is the sales order lifecycle.
type OrderStatus string

const (
	OrderDraft     OrderStatus = "draft"
	OrderConfirmed OrderStatus = "confirmed"
	OrderFulfilled OrderStatus = "fulfilled"
	OrderCancelled OrderStatus = "cancelled"
)

// InvoiceStatus is the invoice lifecycle.
type InvoiceStatus string

const (
	InvoiceOpen          InvoiceStatus = "open"
	InvoicePartiallyPaid InvoiceStatus = "partially_paid"
	InvoicePaid          InvoiceStatus = "paid"
	InvoiceVoid          InvoiceStatus = "void"
)

// Payable reports whether payments may still be recorded.
func (s InvoiceStatus) Payable() bool {
	return s == InvoiceOpen || s == InvoicePartiallyPaid
}

// Line is a priced line shared by orders and invoices.
type Line struct {
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TaxRate     decimal.Decimal `json:"taxRate"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxAmount   decimal.Decimal `json:"taxAmount"`
	Total       decimal.Decimal `json:"total"`
}

// Totals are the derived header amounts.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	TaxTotal decimal.Decimal `json:"taxTotal"`
	Total    decimal.Decimal `json:"total"`
}

// Order is a customer sales order.
type Order struct {
	ID          int64       `json:"id"`
	OrderNumber string      `json:"orderNumber"`
	CustomerID  int64       `json:"customerId"`
	OrderDate   time.Time   `json:"orderDate"`
	Status      OrderStatus `json:"status"`
	Totals
	Notes     string    `json:"notes,omitempty"`
	Lines     []Line    `json:"lines"`
	CreatedBy int64     `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Invoice is a customer invoice.
type Invoice struct {
	ID            int64         `json:"id"`
	InvoiceNumber string        `json:"invoiceNumber"`
	CustomerID    int64         `json:"customerId"`
	CustomerName  string        `json:"customerName,omitempty"`
	SalesOrderID  *int64        `json:"salesOrderId,omitempty"`
	IssueDate     time.Time     `json:"issueDate"`
	DueDate       time.Time     `json:"dueDate"`
	Status        InvoiceStatus `json:"status"`
	Totals
	AmountPaid decimal.Decimal `json:"amountPaid"`
	AmountDue  decimal.Decimal `json:"amountDue"`
	Lines      []Line          `json:"lines"`
	Payments   []Payment       `json:"payments"`
	CreatedBy  int64           `json:"createdBy"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Balance is the audited slice of an invoice touched by payments.
type Balance struct {
	Status     InvoiceStatus   `json:"status"`
	AmountPaid decimal.Decimal `json:"amountPaid"`
	AmountDue  decimal.Decimal `json:"amountDue"`
}

// Balance returns the invoice's payment state.
func (inv Invoice) Balance() Balance {
	return Balance{Status: inv.Status, AmountPaid: inv.AmountPaid, AmountDue: inv.AmountDue}
}

// Payment settles part or all of an invoice.
type Payment struct {
	ID            int64           `json:"id"`
	PaymentNumber string          `json:"paymentNumber"`
	InvoiceID     int64           `json:"invoiceId"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   time.Time       `json:"paymentDate"`
	Method        string          `json:"method"`
	Reference     string          `json:"reference,omitempty"`
	CreatedBy     int64           `json:"createdBy"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// CustomerRef is the customer data a sale needs.
type CustomerRef struct {
	ID               int64
	CompanyName      string
	PaymentTermsDays int
	IsActive         bool
}

// priceLines recomputes every line and the header totals.
func priceLines(lines []Line) ([]Line, Totals) {
	out := make([]Line, len(lines))
	var t Totals
	for i, l := range lines {
		l.Subtotal, l.TaxAmount = shared.LineAmounts(l.Quantity, l.UnitPrice, l.TaxRate)
		l.Total = l.Subtotal.Add(l.TaxAmount)
		t.Subtotal = t.Subtotal.Add(l.Subtotal)
		t.TaxTotal = t.TaxTotal.Add(l.TaxAmount)
		out[i] = l
	}
	t.Total = t.Subtotal.Add(t.TaxTotal)
	return out, t
}
