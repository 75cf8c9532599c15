// Package inventory maintains the warehouses goods are received into.
package inventory

import (
	"time"

	"github.com/odyssey-erp/backoffice/internal/shared"
)

const entityWarehouse = "warehouse"

// Warehouse is a stock location.
type Warehouse struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	City      string    `json:"city,omitempty"`
	Manager   string    `json:"manager,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedBy int64     `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateWarehouseInput is the inventory.createWarehouse payload.
type CreateWarehouseInput struct {
	Code    string `json:"code" validate:"required,max=20,alphanumunicode"`
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address" validate:"max=500"`
	City    string `json:"city" validate:"max=100"`
	Manager string `json:"manager" validate:"max=200"`
}

// UpdateWarehouseInput patches a warehouse; nil fields are left unchanged.
type UpdateWarehouseInput struct {
	ID       int64   `json:"id" validate:"required,gt=0"`
	Code     *string `json:"code" validate:"omitempty,max=20,alphanumunicode"`
	Name     *string `json:"name" validate:"omitempty,max=200"`
	Address  *string `json:"address" validate:"omitempty,max=500"`
	City     *string `json:"city" validate:"omitempty,max=100"`
	Manager  *string `json:"manager" validate:"omitempty,max=200"`
	IsActive *bool   `json:"isActive"`
}

func (in UpdateWarehouseInput) apply(w Warehouse) Warehouse {
	if in.Code != nil {
		w.Code = normalizeCode(*in.Code)
	}
	if in.Name != nil {
		w.Name = *in.Name
	}
	if in.Address != nil {
		w.Address = *in.Address
	}
	if in.City != nil {
		w.City = *in.City
	}
	if in.Manager != nil {
		w.Manager = *in.Manager
	}
	if in.IsActive != nil {
		w.IsActive = *in.IsActive
	}
	return w
}

// WarehouseFilter narrows inventory.listWarehouses.
type WarehouseFilter struct {
	shared.PageRequest
	Search   string `json:"search" validate:"max=100"`
	IsActive *bool  `json:"isActive"`
}

// WarehouseList is a page of warehouses.
type WarehouseList struct {
	Warehouses []Warehouse       `json:"warehouses"`
	Pagination shared.Pagination `json:"pagination"`
}
