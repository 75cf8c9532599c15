package purchasing

import (
	"context"

	"github.com/odyssey-erp/backoffice/internal/rbac"
	"github.com/odyssey-erp/backoffice/internal/rpc"
)

// Handler exposes the purchasing.* procedures.
type Handler struct {
	service *Service
}

// NewHandler builds a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register adds the purchasing procedures to reg.
func (h *Handler) Register(reg *rpc.Registry) {
	view := rpc.Permission(rbac.PermPurchasingView)
	create := rpc.Permission(rbac.PermPurchasingCreate)
	edit := rpc.Permission(rbac.PermPurchasingEdit)
	reg.Register(
		rpc.Query("purchasing.listVendors", view, h.listVendors),
		rpc.Mutation("purchasing.createVendor", create, h.createVendor),
		rpc.Mutation("purchasing.deleteVendor", rpc.Permission(rbac.PermPurchasingDelete), h.deleteVendor),
		rpc.Query("purchasing.listOrders", view, h.listOrders),
		rpc.Query("purchasing.getOrder", view, h.getOrder),
		rpc.Mutation("purchasing.createOrder", create, h.createOrder),
		rpc.Mutation("purchasing.updateOrderLines", edit, h.updateOrderLines),
		rpc.Mutation("purchasing.submitOrder", edit, h.byID(h.service.SubmitOrder)),
		rpc.Mutation("purchasing.approveOrder", edit, h.byID(h.service.ApproveOrder)),
		rpc.Mutation("purchasing.sendOrder", edit, h.byID(h.service.SendOrder)),
		rpc.Mutation("purchasing.receiveOrder", edit, h.receiveOrder),
		rpc.Mutation("purchasing.closeOrder", edit, h.byID(h.service.CloseOrder)),
		rpc.Mutation("purchasing.cancelOrder", edit, h.byID(h.service.CancelOrder)),
	)
}

func (h *Handler) byID(fn func(ctx context.Context, actorID, id int64) (Order, error)) rpc.HandlerFunc[IDInput, Order] {
	return func(ctx context.Context, p *rbac.Principal, in IDInput) (Order, error) {
		return fn(ctx, p.UserID, in.ID)
	}
}

func (h *Handler) listVendors(ctx context.Context, _ *rbac.Principal, in VendorFilter) (VendorList, error) {
	return h.service.ListVendors(ctx, in)
}

func (h *Handler) createVendor(ctx context.Context, p *rbac.Principal, in CreateVendorInput) (Vendor, error) {
	return h.service.CreateVendor(ctx, p.UserID, in)
}

func (h *Handler) deleteVendor(ctx context.Context, p *rbac.Principal, in IDInput) (bool, error) {
	if err := h.service.DeleteVendor(ctx, p.UserID, in.ID); err != nil {
		return false, err
	}
	return true, nil
}

func (h *Handler) listOrders(ctx context.Context, _ *rbac.Principal, in OrderFilter) (OrderList, error) {
	return h.service.ListOrders(ctx, in)
}

func (h *Handler) getOrder(ctx context.Context, _ *rbac.Principal, in IDInput) (Order, error) {
	return h.service.GetOrder(ctx, in.ID)
}

func (h *Handler) createOrder(ctx context.Context, p *rbac.Principal, in CreateOrderInput) (Order, error) {
	return h.service.CreateOrder(ctx, p.UserID, in)
}

func (h *Handler) updateOrderLines(ctx context.Context, p *rbac.Principal, in UpdateLinesInput) (Order, error) {
	return h.service.UpdateOrderLines(ctx, p.UserID, in)
}

func (h *Handler) receiveOrder(ctx context.Context, p *rbac.Principal, in ReceiveInput) (Order, error) {
	return h.service.ReceiveOrder(ctx, p.UserID, in)
}
