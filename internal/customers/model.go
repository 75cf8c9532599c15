// Package customers manages the customer master used by sales orders and invoices.
package customers

import (
	"time"

	"github.com/shopspring/decimal"
)

const entityCustomer = "customer"

// Customer is a billable party.
type Customer struct {
	ID               int64           `json:"id"`
	CustomerID       string          `json:"customerId"`
	CompanyName      string          `json:"companyName"`
	ContactName      *string         `json:"contactName,omitempty"`
	Email            *string         `json:"email,omitempty"`
	Phone            *string         `json:"phone,omitempty"`
	TaxID            *string         `json:"taxId,omitempty"`
	CreditLimit      decimal.Decimal `json:"creditLimit"`
	PaymentTermsDays int             `json:"paymentTermsDays"`
	AddressLine1     *string         `json:"addressLine1,omitempty"`
	City             *string         `json:"city,omitempty"`
	PostalCode       *string         `json:"postalCode,omitempty"`
	Country          string          `json:"country"`
	IsActive         bool            `json:"isActive"`
	Notes            *string         `json:"notes,omitempty"`
	CreatedBy        int64           `json:"createdBy"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// Dependents counts the financial records that pin a customer.
type Dependents struct {
	SalesOrders int
	Invoices    int
}
