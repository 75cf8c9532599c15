package sales

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/notify"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

const numberAttempts = 3

// RepositoryPort describes the reads and transaction boundary used by Service.
type RepositoryPort interface {
	ListOrders(ctx context.Context, f OrderFilter) ([]Order, int, error)
	GetOrder(ctx context.Context, id int64) (Order, error)
	ListInvoices(ctx context.Context, f InvoiceFilter) ([]Invoice, int, error)
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	ListOutstandingInvoices(ctx context.Context) ([]Invoice, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository performs sales writes inside a transaction.
type TxRepository interface {
	audit.Sink
	notify.Sink
	NextNumber(ctx context.Context, spec shared.SequenceSpec) (string, error)
	CustomerForSale(ctx context.Context, customerID int64) (CustomerRef, error)
	InsertOrder(ctx context.Context, o Order) (int64, error)
	GetOrderForUpdate(ctx context.Context, id int64) (Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status OrderStatus) error
	OrderInvoiced(ctx context.Context, orderID int64) (bool, error)
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error)
	UpdateInvoiceBalance(ctx context.Context, id int64, b Balance) error
	CountPayments(ctx context.Context, invoiceID int64) (int, error)
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	ClaimIdempotencyKey(ctx context.Context, scope, key string, userID int64) error
}

// Service orchestrates the order-to-cash flow.
type Service struct {
	repo    RepositoryPort
	emitter *notify.Emitter
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, emitter *notify.Emitter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, emitter: emitter, logger: logger, now: time.Now}
}

// ListOrders returns a page of orders, newest first.
func (s *Service) ListOrders(ctx context.Context, f OrderFilter) (OrderList, error) {
	f.PageRequest = f.PageRequest.Normalize()
	items, total, err := s.repo.ListOrders(ctx, f)
	if err != nil {
		return OrderList{}, err
	}
	if items == nil {
		items = []Order{}
	}
	return OrderList{Orders: items, Pagination: shared.NewPagination(f.PageRequest, total)}, nil
}

// GetOrder returns an order with its lines.
func (s *Service) GetOrder(ctx context.Context, id int64) (Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// CreateOrder stores a draft order with server-computed totals.
func (s *Service) CreateOrder(ctx context.Context, actorID int64, in CreateOrderInput) (Order, error) {
	orderDate, err := parseDate("orderDate", in.OrderDate, s.now())
	if err != nil {
		return Order{}, err
	}
	lines := make([]Line, len(in.Lines))
	for i, l := range in.Lines {
		lines[i] = l.line()
	}
	lines, totals := priceLines(lines)

	var id int64
	err = shared.RetryConflicts(ctx, numberAttempts, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			if _, err := activeCustomer(ctx, tx, in.CustomerID); err != nil {
				return err
			}
			number, err := tx.NextNumber(ctx, shared.SeqSalesOrder)
			if err != nil {
				return err
			}
			order := Order{
				OrderNumber: number,
				CustomerID:  in.CustomerID,
				OrderDate:   orderDate,
				Status:      OrderDraft,
				Totals:      totals,
				Notes:       in.Notes,
				Lines:       lines,
				CreatedBy:   actorID,
			}
			if id, err = tx.InsertOrder(ctx, order); err != nil {
				return err
			}
			order.ID = id
			return audit.Record(ctx, tx, actorID, audit.ActionCreate, entityOrder, audit.ID(id), nil, order)
		})
	})
	if err != nil {
		return Order{}, err
	}
	return s.repo.GetOrder(ctx, id)
}

// ConfirmOrder moves a draft order to confirmed.
func (s *Service) ConfirmOrder(ctx context.Context, actorID, id int64) (Order, error) {
	return s.transitionOrder(ctx, actorID, id, audit.ActionConfirm, OrderConfirmed, OrderDraft)
}

// FulfillOrder marks a confirmed order as delivered.
func (s *Service) FulfillOrder(ctx context.Context, actorID, id int64) (Order, error) {
	return s.transitionOrder(ctx, actorID, id, audit.ActionFulfill, OrderFulfilled, OrderConfirmed)
}

// CancelOrder cancels a draft or confirmed order that has not been invoiced.
func (s *Service) CancelOrder(ctx context.Context, actorID, id int64) (Order, error) {
	return s.transitionOrder(ctx, actorID, id, audit.ActionCancel, OrderCancelled, OrderDraft, OrderConfirmed)
}

func (s *Service) transitionOrder(ctx context.Context, actorID, id int64, action audit.Action, to OrderStatus, from ...OrderStatus) (Order, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !statusIn(order.Status, from) {
			return shared.Precondition(fmt.Sprintf("order %s is %s and cannot be moved to %s", order.OrderNumber, order.Status, to))
		}
		if to == OrderCancelled {
			invoiced, err := tx.OrderInvoiced(ctx, id)
			if err != nil {
				return err
			}
			if invoiced {
				return shared.Precondition(fmt.Sprintf("order %s has been invoiced; void the invoice first", order.OrderNumber))
			}
		}
		if err := tx.UpdateOrderStatus(ctx, id, to); err != nil {
			return err
		}
		return audit.Record(ctx, tx, actorID, action, entityOrder, audit.ID(id),
			map[string]any{"status": order.Status}, map[string]any{"status": to})
	})
	if err != nil {
		return Order{}, err
	}
	return s.repo.GetOrder(ctx, id)
}

func statusIn[T comparable](status T, allowed []T) bool {
	for _, a := range allowed {
		if status == a {
			return true
		}
	}
	return false
}

func activeCustomer(ctx context.Context, tx TxRepository, id int64) (CustomerRef, error) {
	c, err := tx.CustomerForSale(ctx, id)
	if err != nil {
		return CustomerRef{}, err
	}
	if !c.IsActive {
		return CustomerRef{}, shared.Precondition(fmt.Sprintf("customer %s is inactive", c.CompanyName))
	}
	return c, nil
}
