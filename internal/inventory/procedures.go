package inventory

import (
	"context"

	"github.com/odyssey-erp/backoffice/internal/rbac"
	"github.com/odyssey-erp/backoffice/internal/rpc"
)

// Handler exposes the inventory.* procedures.
type Handler struct {
	service *Service
}

// NewHandler builds a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register adds the warehouse procedures to reg.
func (h *Handler) Register(reg *rpc.Registry) {
	reg.Register(
		rpc.Query("inventory.listWarehouses", rpc.Permission(rbac.PermInventoryView), h.list),
		rpc.Mutation("inventory.createWarehouse", rpc.Permission(rbac.PermInventoryCreate), h.create),
		rpc.Mutation("inventory.updateWarehouse", rpc.Permission(rbac.PermInventoryEdit), h.update),
	)
}

func (h *Handler) list(ctx context.Context, _ *rbac.Principal, in WarehouseFilter) (WarehouseList, error) {
	return h.service.List(ctx, in)
}

func (h *Handler) create(ctx context.Context, p *rbac.Principal, in CreateWarehouseInput) (Warehouse, error) {
	return h.service.Create(ctx, p.UserID, in)
}

func (h *Handler) update(ctx context.Context, p *rbac.Principal, in UpdateWarehouseInput) (Warehouse, error) {
	return h.service.Update(ctx, p.UserID, in)
}
