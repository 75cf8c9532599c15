package purchasing

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/notify"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// ListOrders returns a page of purchase orders, newest first.
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

// GetOrder returns an order with lines and receipts.
func (s *Service) GetOrder(ctx context.Context, id int64) (Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// CreateOrder stores a draft purchase order for an active vendor.
func (s *Service) CreateOrder(ctx context.Context, actorID int64, in CreateOrderInput) (Order, error) {
	orderDate, err := parseDate("orderDate", in.OrderDate, s.now())
	if err != nil {
		return Order{}, err
	}
	order := Order{VendorID: in.VendorID, OrderDate: orderDate, Status: StatusDraft, Notes: in.Notes, CreatedBy: actorID}
	if in.ExpectedDate != "" {
		expected, err := parseDate("expectedDate", in.ExpectedDate, s.now())
		if err != nil {
			return Order{}, err
		}
		if expected.Before(orderDate) {
			return Order{}, shared.FieldError("expectedDate", "must not be before orderDate")
		}
		order.ExpectedDate = &expected
	}
	order.Lines, order.Totals = priceLines(linesFrom(in.Lines))

	var id int64
	err = shared.RetryConflicts(ctx, numberAttempts, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			vendor, err := tx.GetVendorForUpdate(ctx, in.VendorID)
			if err != nil {
				return err
			}
			if !vendor.IsActive {
				return shared.Precondition(fmt.Sprintf("vendor %s is inactive", vendor.VendorCode))
			}
			o := order
			if o.PONumber, err = tx.NextNumber(ctx, shared.SeqPurchaseOrder); err != nil {
				return err
			}
			if id, err = tx.InsertOrder(ctx, o); err != nil {
				return err
			}
			o.ID = id
			return audit.Record(ctx, tx, actorID, audit.ActionCreate, entityOrder, audit.ID(id), nil, o)
		})
	})
	if err != nil {
		return Order{}, err
	}
	return s.repo.GetOrder(ctx, id)
}

// UpdateOrderLines replaces the lines of an order that is not yet approved.
func (s *Service) UpdateOrderLines(ctx context.Context, actorID int64, in UpdateLinesInput) (Order, error) {
	lines, totals := priceLines(linesFrom(in.Lines))
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		before, err := tx.GetOrderForUpdate(ctx, in.ID)
		if err != nil {
			return err
		}
		if !before.Status.Editable() {
			return &shared.Error{
				Kind:    shared.KindPreconditionFailed,
				Message: fmt.Sprintf("purchase order %s is %s; lines are locked", before.PONumber, before.Status),
				Cause:   ErrInvalidState,
			}
		}
		if err := tx.ReplaceOrderLines(ctx, in.ID, lines, totals); err != nil {
			return err
		}
		return audit.Record(ctx, tx, actorID, audit.ActionUpdate, entityOrder, audit.ID(in.ID),
			map[string]any{"lines": before.Lines, "totals": before.Totals},
			map[string]any{"lines": lines, "totals": totals})
	})
	if err != nil {
		return Order{}, err
	}
	return s.repo.GetOrder(ctx, in.ID)
}

// SubmitOrder requests approval for a draft.
func (s *Service) SubmitOrder(ctx context.Context, actorID, id int64) (Order, error) {
	return s.transition(ctx, actorID, id, audit.ActionSubmit, StatusPendingApproval, nil, StatusDraft)
}

// ApproveOrder approves a draft or pending order and notifies the approver.
func (s *Service) ApproveOrder(ctx context.Context, actorID, id int64) (Order, error) {
	var note notify.Notification
	order, err := s.transition(ctx, actorID, id, audit.ActionApprove, StatusApproved, func(ctx context.Context, tx TxRepository, o Order) error {
		if err := tx.SetApproval(ctx, id, actorID, s.now().UTC()); err != nil {
			return err
		}
		var err error
		note, err = s.emitter.Emit(ctx, tx, actorID, notify.TypeApproval,
			fmt.Sprintf("Purchase order %s approved", o.PONumber),
			fmt.Sprintf("Purchase order %s for %s was approved.", o.PONumber, o.Total.StringFixed(shared.MoneyPlaces)),
			fmt.Sprintf("/purchasing/orders/%d", id))
		return err
	}, StatusDraft, StatusPendingApproval)
	if err != nil {
		return Order{}, err
	}
	s.emitter.Dispatch(ctx, note)
	return order, nil
}

// SendOrder marks an approved order as sent to the vendor.
func (s *Service) SendOrder(ctx context.Context, actorID, id int64) (Order, error) {
	return s.transition(ctx, actorID, id, audit.ActionSend, StatusSent, nil, StatusApproved)
}

// ReceiveOrder records a goods receipt for a sent order.
func (s *Service) ReceiveOrder(ctx context.Context, actorID int64, in ReceiveInput) (Order, error) {
	received, err := parseDate("receivedDate", in.ReceivedDate, s.now())
	if err != nil {
		return Order{}, err
	}
	var order Order
	err = shared.RetryConflicts(ctx, numberAttempts, func(ctx context.Context) error {
		order, err = s.transition(ctx, actorID, in.ID, audit.ActionReceive, StatusReceived, func(ctx context.Context, tx TxRepository, o Order) error {
			r := Receipt{OrderID: o.ID, ReceivedDate: received, Notes: in.Notes, CreatedBy: actorID}
			if in.WarehouseID > 0 {
				ok, err := tx.WarehouseActive(ctx, in.WarehouseID)
				if err != nil {
					return err
				}
				if !ok {
					return shared.FieldError("warehouseId", "must reference an active warehouse")
				}
				wh := in.WarehouseID
				r.WarehouseID = &wh
			}
			number, err := tx.NextNumber(ctx, shared.SeqReceipt)
			if err != nil {
				return err
			}
			r.ReceiptNumber = number
			_, err = tx.InsertReceipt(ctx, r)
			return err
		}, StatusSent)
		return err
	})
	return order, err
}

// CloseOrder closes a received order.
func (s *Service) CloseOrder(ctx context.Context, actorID, id int64) (Order, error) {
	return s.transition(ctx, actorID, id, audit.ActionClose, StatusClosed, nil, StatusReceived)
}

// CancelOrder cancels an order before any goods arrive.
func (s *Service) CancelOrder(ctx context.Context, actorID, id int64) (Order, error) {
	return s.transition(ctx, actorID, id, audit.ActionCancel, StatusCancelled, func(ctx context.Context, tx TxRepository, o Order) error {
		n, err := tx.CountReceipts(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return shared.Precondition(fmt.Sprintf("purchase order %s has %d receipt(s)", o.PONumber, n))
		}
		return nil
	}, StatusDraft, StatusPendingApproval, StatusApproved, StatusSent)
}

type transitionHook func(ctx context.Context, tx TxRepository, o Order) error

// transition locks the order, checks the source status, runs hook, updates
// the status and writes the audit entry in one transaction.
func (s *Service) transition(ctx context.Context, actorID, id int64, action audit.Action, to Status, hook transitionHook, from ...Status) (Order, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		allowed := false
		for _, f := range from {
			if o.Status == f {
				allowed = true
				break
			}
		}
		if !allowed {
			return invalidState(o.PONumber, o.Status, to)
		}
		if hook != nil {
			if err := hook(ctx, tx, o); err != nil {
				return err
			}
		}
		if err := tx.UpdateOrderStatus(ctx, id, to); err != nil {
			return err
		}
		return audit.Record(ctx, tx, actorID, action, entityOrder, audit.ID(id),
			map[string]any{"status": o.Status}, map[string]any{"status": to})
	})
	if err != nil {
		return Order{}, err
	}
	return s.repo.GetOrder(ctx, id)
}
