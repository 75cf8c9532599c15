package sales

import (
	"context"

	"github.com/odyssey-erp/backoffice/internal/rbac"
	"github.com/odyssey-erp/backoffice/internal/rpc"
)

// Handler exposes the sales.* procedures and reports.arAging.
type Handler struct {
	service *Service
}

// NewHandler builds a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register adds the sales procedures to reg.
func (h *Handler) Register(reg *rpc.Registry) {
	reg.Register(
		rpc.Query("sales.listOrders", rpc.Permission(rbac.PermSalesView), h.listOrders),
		rpc.Query("sales.getOrder", rpc.Permission(rbac.PermSalesView), h.getOrder),
		rpc.Mutation("sales.createOrder", rpc.Permission(rbac.PermSalesCreate), h.createOrder),
		rpc.Mutation("sales.confirmOrder", rpc.Permission(rbac.PermSalesEdit), h.confirmOrder),
		rpc.Mutation("sales.fulfillOrder", rpc.Permission(rbac.PermSalesEdit), h.fulfillOrder),
		rpc.Mutation("sales.cancelOrder", rpc.Permission(rbac.PermSalesEdit), h.cancelOrder),
		rpc.Query("sales.listInvoices", rpc.Permission(rbac.PermSalesView), h.listInvoices),
		rpc.Query("sales.getInvoice", rpc.Permission(rbac.PermSalesView), h.getInvoice),
		rpc.Mutation("sales.createInvoice", rpc.Permission(rbac.PermSalesCreate), h.createInvoice),
		rpc.Mutation("sales.recordPayment", rpc.Permission(rbac.PermSalesEdit), h.recordPayment),
		rpc.Mutation("sales.voidInvoice", rpc.Permission(rbac.PermSalesDelete), h.voidInvoice),
		rpc.Query("reports.arAging", rpc.Permission(rbac.PermReportsView), h.arAging),
	)
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

func (h *Handler) confirmOrder(ctx context.Context, p *rbac.Principal, in IDInput) (Order, error) {
	return h.service.ConfirmOrder(ctx, p.UserID, in.ID)
}

func (h *Handler) fulfillOrder(ctx context.Context, p *rbac.Principal, in IDInput) (Order, error) {
	return h.service.FulfillOrder(ctx, p.UserID, in.ID)
}

func (h *Handler) cancelOrder(ctx context.Context, p *rbac.Principal, in IDInput) (Order, error) {
	return h.service.CancelOrder(ctx, p.UserID, in.ID)
}

func (h *Handler) listInvoices(ctx context.Context, _ *rbac.Principal, in InvoiceFilter) (InvoiceList, error) {
	return h.service.ListInvoices(ctx, in)
}

func (h *Handler) getInvoice(ctx context.Context, _ *rbac.Principal, in IDInput) (Invoice, error) {
	return h.service.GetInvoice(ctx, in.ID)
}

func (h *Handler) createInvoice(ctx context.Context, p *rbac.Principal, in CreateInvoiceInput) (Invoice, error) {
	return h.service.CreateInvoice(ctx, p.UserID, in)
}

func (h *Handler) recordPayment(ctx context.Context, p *rbac.Principal, in RecordPaymentInput) (Invoice, error) {
	return h.service.RecordPayment(ctx, p.UserID, in)
}

func (h *Handler) voidInvoice(ctx context.Context, p *rbac.Principal, in IDInput) (Invoice, error) {
	return h.service.VoidInvoice(ctx, p.UserID, in.ID)
}

func (h *Handler) arAging(ctx context.Context, _ *rbac.Principal, in AgingInput) (AgingReport, error) {
	return h.service.ARAging(ctx, in)
}
