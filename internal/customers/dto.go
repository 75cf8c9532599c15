package customers

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/backoffice/internal/shared"
)

// CreateCustomerRequest is the customers.create payload. CustomerID is
// generated when empty.
type CreateCustomerRequest struct {
	CustomerID       string          `json:"customerId" validate:"omitempty,max=50"`
	CompanyName      string          `json:"companyName" validate:"required,max=200"`
	ContactName      *string         `json:"contactName,omitempty" validate:"omitempty,max=200"`
	Email            *string         `json:"email,omitempty" validate:"omitempty,email"`
	Phone            *string         `json:"phone,omitempty" validate:"omitempty,max=50"`
	TaxID            *string         `json:"taxId,omitempty" validate:"omitempty,max=50"`
	CreditLimit      decimal.Decimal `json:"creditLimit" validate:"gte=0"`
	PaymentTermsDays int             `json:"paymentTermsDays" validate:"gte=0,lte=365"`
	AddressLine1     *string         `json:"addressLine1,omitempty" validate:"omitempty,max=200"`
	City             *string         `json:"city,omitempty" validate:"omitempty,max=100"`
	PostalCode       *string         `json:"postalCode,omitempty" validate:"omitempty,max=20"`
	Country          string          `json:"country" validate:"omitempty,len=2,uppercase"`
	Notes            *string         `json:"notes,omitempty"`
}

// UpdateCustomerRequest patches a customer; nil fields are left unchanged.
type UpdateCustomerRequest struct {
	ID               int64            `json:"id" validate:"required,gt=0"`
	CompanyName      *string          `json:"companyName,omitempty" validate:"omitempty,min=1,max=200"`
	ContactName      *string          `json:"contactName,omitempty" validate:"omitempty,max=200"`
	Email            *string          `json:"email,omitempty" validate:"omitempty,email"`
	Phone            *string          `json:"phone,omitempty" validate:"omitempty,max=50"`
	TaxID            *string          `json:"taxId,omitempty" validate:"omitempty,max=50"`
	CreditLimit      *decimal.Decimal `json:"creditLimit,omitempty" validate:"omitempty,gte=0"`
	PaymentTermsDays *int             `json:"paymentTermsDays,omitempty" validate:"omitempty,gte=0,lte=365"`
	AddressLine1     *string          `json:"addressLine1,omitempty" validate:"omitempty,max=200"`
	City             *string          `json:"city,omitempty" validate:"omitempty,max=100"`
	PostalCode       *string          `json:"postalCode,omitempty" validate:"omitempty,max=20"`
	Country          *string          `json:"country,omitempty" validate:"omitempty,len=2,uppercase"`
	IsActive         *bool            `json:"isActive,omitempty"`
	Notes            *string          `json:"notes,omitempty"`
}

// ListCustomersRequest filters customers.list.
type ListCustomersRequest struct {
	shared.PageRequest
	Search   string `json:"search" validate:"max=100"`
	IsActive *bool  `json:"isActive,omitempty"`
}

// ListResult is a page of customers.
type ListResult struct {
	Customers  []Customer        `json:"customers"`
	Pagination shared.Pagination `json:"pagination"`
}

// IDRequest addresses one customer.
type IDRequest struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

func (req UpdateCustomerRequest) apply(c Customer) Customer {
	if req.CompanyName != nil {
		c.CompanyName = *req.CompanyName
	}
	if req.ContactName != nil {
		c.ContactName = req.ContactName
	}
	if req.Email != nil {
		c.Email = req.Email
	}
	if req.Phone != nil {
		c.Phone = req.Phone
	}
	if req.TaxID != nil {
		c.TaxID = req.TaxID
	}
	if req.CreditLimit != nil {
		c.CreditLimit = shared.RoundMoney(*req.CreditLimit)
	}
	if req.PaymentTermsDays != nil {
		c.PaymentTermsDays = *req.PaymentTermsDays
	}
	if req.AddressLine1 != nil {
		c.AddressLine1 = req.AddressLine1
	}
	if req.City != nil {
		c.City = req.City
	}
	if req.PostalCode != nil {
		c.PostalCode = req.PostalCode
	}
	if req.Country != nil {
		c.Country = *req.Country
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	if req.Notes != nil {
		c.Notes = req.Notes
	}
	return c
}
