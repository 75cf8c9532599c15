package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/notify"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

const (
	defaultTermsDays = 30
	paymentScope     = "sales.recordPayment"
)

// ListInvoices returns a page of invoices, newest first.
func (s *Service) ListInvoices(ctx context.Context, f InvoiceFilter) (InvoiceList, error) {
	f.PageRequest = f.PageRequest.Normalize()
	items, total, err := s.repo.ListInvoices(ctx, f)
	if err != nil {
		return InvoiceList{}, err
	}
	if items == nil {
		items = []Invoice{}
	}
	return InvoiceList{Invoices: items, Pagination: shared.NewPagination(f.PageRequest, total)}, nil
}

// GetInvoice returns an invoice with its lines and payments.
func (s *Service) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

// CreateInvoice bills a confirmed or fulfilled order, or ad hoc lines for a
// customer. The due date defaults to the customer's payment terms.
func (s *Service) CreateInvoice(ctx context.Context, actorID int64, in CreateInvoiceInput) (Invoice, error) {
	if in.SalesOrderID == 0 && len(in.Lines) == 0 {
		return Invoice{}, shared.FieldError("lines", "is required when no sales order is given")
	}
	issueDate, err := parseDate("issueDate", in.IssueDate, s.now())
	if err != nil {
		return Invoice{}, err
	}
	var dueDate time.Time
	if in.DueDate != "" {
		if dueDate, err = parseDate("dueDate", in.DueDate, s.now()); err != nil {
			return Invoice{}, err
		}
		if dueDate.Before(issueDate) {
			return Invoice{}, shared.FieldError("dueDate", "must not be before issueDate")
		}
	}

	var id int64
	err = shared.RetryConflicts(ctx, numberAttempts, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			inv := Invoice{IssueDate: issueDate, DueDate: dueDate, Status: InvoiceOpen, CreatedBy: actorID}
			if in.SalesOrderID != 0 {
				order, err := tx.GetOrderForUpdate(ctx, in.SalesOrderID)
				if err != nil {
					return err
				}
				if order.Status != OrderConfirmed && order.Status != OrderFulfilled {
					return shared.Precondition(fmt.Sprintf("order %s is %s; only confirmed or fulfilled orders can be invoiced", order.OrderNumber, order.Status))
				}
				invoiced, err := tx.OrderInvoiced(ctx, order.ID)
				if err != nil {
					return err
				}
				if invoiced {
					return shared.Conflict(fmt.Sprintf("order %s already has an open invoice", order.OrderNumber))
				}
				orderID := order.ID
				inv.SalesOrderID = &orderID
				inv.CustomerID = order.CustomerID
				inv.Lines = make([]Line, len(order.Lines))
				for i, l := range order.Lines {
					l.ID = 0
					inv.Lines[i] = l
				}
			} else {
				inv.CustomerID = in.CustomerID
				for _, l := range in.Lines {
					inv.Lines = append(inv.Lines, l.line())
				}
			}
			customer, err := activeCustomer(ctx, tx, inv.CustomerID)
			if err != nil {
				return err
			}
			if inv.DueDate.IsZero() {
				terms := customer.PaymentTermsDays
				if terms <= 0 {
					terms = defaultTermsDays
				}
				inv.DueDate = issueDate.AddDate(0, 0, terms)
			}
			inv.Lines, inv.Totals = priceLines(inv.Lines)
			inv.AmountPaid = decimal.Zero
			inv.AmountDue = inv.Total
			if inv.InvoiceNumber, err = tx.NextNumber(ctx, shared.SeqInvoice); err != nil {
				return err
			}
			if id, err = tx.InsertInvoice(ctx, inv); err != nil {
				return err
			}
			inv.ID = id
			return audit.Record(ctx, tx, actorID, audit.ActionCreate, entityInvoice, audit.ID(id), nil, inv)
		})
	})
	if err != nil {
		return Invoice{}, err
	}
	return s.repo.GetInvoice(ctx, id)
}

// RecordPayment applies a payment to an open invoice. Amounts above the
// amount due are rejected without touching the invoice. The acting user is
// notified when the invoice becomes fully paid.
func (s *Service) RecordPayment(ctx context.Context, actorID int64, in RecordPaymentInput) (Invoice, error) {
	amount := shared.RoundMoney(in.Amount)
	if !amount.IsPositive() {
		return Invoice{}, shared.FieldError("amount", "must be greater than 0")
	}
	paymentDate, err := parseDate("paymentDate", in.PaymentDate, s.now())
	if err != nil {
		return Invoice{}, err
	}

	var note notify.Notification
	err = shared.RetryConflicts(ctx, numberAttempts, func(ctx context.Context) error {
		note = notify.Notification{}
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			if in.IdempotencyKey != "" {
				if err := tx.ClaimIdempotencyKey(ctx, paymentScope, in.IdempotencyKey, actorID); err != nil {
					return err
				}
			}
			inv, err := tx.GetInvoiceForUpdate(ctx, in.InvoiceID)
			if err != nil {
				return err
			}
			if !inv.Status.Payable() {
				return shared.Precondition(fmt.Sprintf("invoice %s is %s and cannot take payments", inv.InvoiceNumber, inv.Status))
			}
			if amount.GreaterThan(inv.AmountDue) {
				return shared.Precondition(fmt.Sprintf("payment %s exceeds amount due %s on invoice %s",
					amount.StringFixed(shared.MoneyPlaces), inv.AmountDue.StringFixed(shared.MoneyPlaces), inv.InvoiceNumber))
			}
			number, err := tx.NextNumber(ctx, shared.SeqPayment)
			if err != nil {
				return err
			}
			if _, err := tx.InsertPayment(ctx, Payment{
				PaymentNumber: number,
				InvoiceID:     inv.ID,
				Amount:        amount,
				PaymentDate:   paymentDate,
				Method:        in.Method,
				Reference:     in.Reference,
				CreatedBy:     actorID,
			}); err != nil {
				return err
			}

			before := inv.Balance()
			after := applyPayment(before, amount)
			if err := tx.UpdateInvoiceBalance(ctx, inv.ID, after); err != nil {
				return err
			}
			if err := audit.Record(ctx, tx, actorID, audit.ActionPayment, entityInvoice, audit.ID(inv.ID), before, map[string]any{
				"status":        after.Status,
				"amountPaid":    after.AmountPaid,
				"amountDue":     after.AmountDue,
				"paymentNumber": number,
				"amount":        amount,
			}); err != nil {
				return err
			}
			if after.Status != InvoicePaid {
				return nil
			}
			note, err = s.emitter.Emit(ctx, tx, actorID, notify.TypeInvoicePaid,
				fmt.Sprintf("Invoice %s paid", inv.InvoiceNumber),
				fmt.Sprintf("Invoice %s for %s has been paid in full.", inv.InvoiceNumber, inv.Total.StringFixed(shared.MoneyPlaces)),
				fmt.Sprintf("/sales/invoices/%d", inv.ID))
			return err
		})
	})
	if err != nil {
		return Invoice{}, err
	}
	s.emitter.Dispatch(ctx, note)
	return s.repo.GetInvoice(ctx, in.InvoiceID)
}

// applyPayment derives the new balance. A remainder under one cent settles
// the invoice.
func applyPayment(b Balance, amount decimal.Decimal) Balance {
	paid := b.AmountPaid.Add(amount)
	due := b.AmountDue.Sub(amount)
	status := InvoicePartiallyPaid
	if due.LessThan(shared.Epsilon) {
		due = decimal.Zero
		status = InvoicePaid
	}
	return Balance{Status: status, AmountPaid: paid, AmountDue: due}
}

// VoidInvoice voids an invoice that has no payments.
func (s *Service) VoidInvoice(ctx context.Context, actorID, id int64) (Invoice, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status == InvoiceVoid {
			return shared.Precondition(fmt.Sprintf("invoice %s is already void", inv.InvoiceNumber))
		}
		payments, err := tx.CountPayments(ctx, id)
		if err != nil {
			return err
		}
		if payments > 0 || inv.AmountPaid.IsPositive() {
			return shared.Precondition(fmt.Sprintf("invoice %s has %d payment(s) and cannot be voided", inv.InvoiceNumber, payments))
		}
		before := inv.Balance()
		after := Balance{Status: InvoiceVoid, AmountPaid: decimal.Zero, AmountDue: decimal.Zero}
		if err := tx.UpdateInvoiceBalance(ctx, id, after); err != nil {
			return err
		}
		return audit.Record(ctx, tx, actorID, audit.ActionVoid, entityInvoice, audit.ID(id), before, after)
	})
	if err != nil {
		return Invoice{}, err
	}
	return s.repo.GetInvoice(ctx, id)
}
