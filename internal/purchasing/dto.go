package purchasing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/backoffice/internal/shared"
)

// CreateVendorInput is the purchasing.createVendor payload.
type CreateVendorInput struct {
	Name             string  `json:"name" validate:"required,max=200"`
	ContactName      string  `json:"contactName" validate:"max=200"`
	Email            string  `json:"email" validate:"omitempty,email"`
	Phone            string  `json:"phone" validate:"max=50"`
	TaxID            *string `json:"taxId" validate:"omitempty,max=50"`
	PaymentTermsDays int     `json:"paymentTermsDays" validate:"gte=0,lte=365"`
}

// VendorFilter narrows purchasing.listVendors.
type VendorFilter struct {
	shared.PageRequest
	Search   string `json:"search" validate:"max=100"`
	IsActive *bool  `json:"isActive"`
}

// VendorList is a page of vendors.
type VendorList struct {
	Vendors    []Vendor          `json:"vendors"`
	Pagination shared.Pagination `json:"pagination"`
}

// LineInput is a priced line.
type LineInput struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity" validate:"gt=0"`
	UnitPrice   decimal.Decimal `json:"unitPrice" validate:"gte=0"`
	TaxRate     decimal.Decimal `json:"taxRate" validate:"gte=0,lte=100"`
}

func linesFrom(in []LineInput) []Line {
	out := make([]Line, len(in))
	for i, l := range in {
		out[i] = Line{Description: l.Description, Quantity: l.Quantity, UnitPrice: shared.RoundMoney(l.UnitPrice), TaxRate: l.TaxRate}
	}
	return out
}

// CreateOrderInput is the purchasing.createOrder payload.
type CreateOrderInput struct {
	VendorID     int64       `json:"vendorId" validate:"required,gt=0"`
	OrderDate    string      `json:"orderDate" validate:"omitempty,datetime=2006-01-02"`
	ExpectedDate string      `json:"expectedDate" validate:"omitempty,datetime=2006-01-02"`
	Notes        string      `json:"notes" validate:"max=2000"`
	Lines        []LineInput `json:"lines" validate:"required,min=1,max=200,dive"`
}

// UpdateLinesInput is the purchasing.updateOrderLines payload.
type UpdateLinesInput struct {
	ID    int64       `json:"id" validate:"required,gt=0"`
	Lines []LineInput `json:"lines" validate:"required,min=1,max=200,dive"`
}

// ReceiveInput is the purchasing.receiveOrder payload.
type ReceiveInput struct {
	ID           int64  `json:"id" validate:"required,gt=0"`
	WarehouseID  int64  `json:"warehouseId" validate:"gte=0"`
	ReceivedDate string `json:"receivedDate" validate:"omitempty,datetime=2006-01-02"`
	Notes        string `json:"notes" validate:"max=2000"`
}

// OrderFilter narrows purchasing.listOrders.
type OrderFilter struct {
	shared.PageRequest
	VendorID int64  `json:"vendorId" validate:"gte=0"`
	Status   Status `json:"status" validate:"omitempty,oneof=draft pending_approval approved sent received closed cancelled"`
}

// OrderList is a page of purchase orders.
type OrderList struct {
	Orders     []Order           `json:"orders"`
	Pagination shared.Pagination `json:"pagination"`
}

// IDInput addresses one record.
type IDInput struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

func parseDate(field, raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, shared.FieldError(field, "must be a date in 2006-01-02 format")
	}
	return t, nil
}
