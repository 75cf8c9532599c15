package customers

import (
	"context"

	"github.com/odyssey-erp/backoffice/internal/rbac"
	"github.com/odyssey-erp/backoffice/internal/rpc"
)

// Handler exposes the customers.* procedures.
type Handler struct {
	service *Service
}

// NewHandler builds a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register adds the customer procedures to reg.
func (h *Handler) Register(reg *rpc.Registry) {
	reg.Register(
		rpc.Query("customers.list", rpc.Permission(rbac.PermSalesView), h.list),
		rpc.Query("customers.get", rpc.Permission(rbac.PermSalesView), h.get),
		rpc.Mutation("customers.create", rpc.Permission(rbac.PermSalesCreate), h.create),
		rpc.Mutation("customers.update", rpc.Permission(rbac.PermSalesEdit), h.update),
		rpc.Mutation("customers.delete", rpc.Permission(rbac.PermSalesDelete), h.delete),
	)
}

func (h *Handler) list(ctx context.Context, _ *rbac.Principal, in ListCustomersRequest) (ListResult, error) {
	return h.service.List(ctx, in)
}

func (h *Handler) get(ctx context.Context, _ *rbac.Principal, in IDRequest) (Customer, error) {
	return h.service.Get(ctx, in.ID)
}

func (h *Handler) create(ctx context.Context, p *rbac.Principal, in CreateCustomerRequest) (Customer, error) {
	return h.service.Create(ctx, p.UserID, in)
}

func (h *Handler) update(ctx context.Context, p *rbac.Principal, in UpdateCustomerRequest) (Customer, error) {
	return h.service.Update(ctx, p.UserID, in)
}

func (h *Handler) delete(ctx context.Context, p *rbac.Principal, in IDRequest) (bool, error) {
	if err := h.service.Delete(ctx, p.UserID, in.ID); err != nil {
		return false, err
	}
	return true, nil
}
