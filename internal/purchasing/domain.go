// Package purchasing manages vendors and the purchase order lifecycle from
// draft through approval, dispatch and goods receipt.
package purchasing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/backoffice/internal/shared"
)

const (
	entityVendor = "vendor"
	entityOrder  = "purchase_order"
)

// ErrInvalidState is the cause of every rejected status transition.
var ErrInvalidState = errors.New("purchasing: invalid state transition")

// Status is the purchase order lifecycle.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusSent            Status = "sent"
	StatusReceived        Status = "received"
	StatusClosed          Status = "closed"
	StatusCancelled       Status = "cancelled"
)

// Editable reports whether lines may still change.
func (s Status) Editable() bool {
	return s == StatusDraft || s == StatusPendingApproval
}

func invalidState(number string, from, to Status) error {
	return &shared.Error{
		Kind:    shared.KindPreconditionFailed,
		Message: fmt.Sprintf("purchase order %s is %s and cannot be moved to %s", number, from, to),
		Cause:   ErrInvalidState,
	}
}

// Vendor is a supplier.
type Vendor struct {
	ID               int64     `json:"id"`
	VendorCode       string    `json:"vendorCode"`
	Name             string    `json:"name"`
	ContactName      string    `json:"contactName,omitempty"`
	Email            string    `json:"email,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	TaxID            *string   `json:"taxId,omitempty"`
	PaymentTermsDays int       `json:"paymentTermsDays"`
	IsActive         bool      `json:"isActive"`
	CreatedBy        int64     `json:"createdBy"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Line is a purchase order line.
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

// Order is a purchase order.
type Order struct {
	ID           int64      `json:"id"`
	PONumber     string     `json:"poNumber"`
	VendorID     int64      `json:"vendorId"`
	VendorName   string     `json:"vendorName,omitempty"`
	OrderDate    time.Time  `json:"orderDate"`
	ExpectedDate *time.Time `json:"expectedDate,omitempty"`
	Status       Status     `json:"status"`
	Totals
	Notes      string     `json:"notes,omitempty"`
	Lines      []Line     `json:"lines"`
	Receipts   []Receipt  `json:"receipts"`
	ApprovedBy *int64     `json:"approvedBy,omitempty"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`
	CreatedBy  int64      `json:"createdBy"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Receipt records goods received against an order.
type Receipt struct {
	ID            int64     `json:"id"`
	ReceiptNumber string    `json:"receiptNumber"`
	OrderID       int64     `json:"orderId"`
	WarehouseID   *int64    `json:"warehouseId,omitempty"`
	ReceivedDate  time.Time `json:"receivedDate"`
	Notes         string    `json:"notes,omitempty"`
	CreatedBy     int64     `json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"`
}

// VendorRef is the vendor data an order needs.
type VendorRef struct {
	ID       int64
	Name     string
	IsActive bool
}

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
