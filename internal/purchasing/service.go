package purchasing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/notify"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

const numberAttempts = 3

// RepositoryPort describes the reads and transaction boundary used by Service.
type RepositoryPort interface {
	ListVendors(ctx context.Context, f VendorFilter) ([]Vendor, int, error)
	GetVendor(ctx context.Context, id int64) (Vendor, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]Order, int, error)
	GetOrder(ctx context.Context, id int64) (Order, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository performs purchasing writes inside a transaction.
type TxRepository interface {
	audit.Sink
	notify.Sink
	NextNumber(ctx context.Context, spec shared.SequenceSpec) (string, error)
	InsertVendor(ctx context.Context, v Vendor) (int64, error)
	GetVendorForUpdate(ctx context.Context, id int64) (Vendor, error)
	CountVendorOrders(ctx context.Context, vendorID int64) (int, error)
	DeleteVendor(ctx context.Context, id int64) error
	InsertOrder(ctx context.Context, o Order) (int64, error)
	GetOrderForUpdate(ctx context.Context, id int64) (Order, error)
	ReplaceOrderLines(ctx context.Context, id int64, lines []Line, totals Totals) error
	UpdateOrderStatus(ctx context.Context, id int64, status Status) error
	SetApproval(ctx context.Context, id, userID int64, at time.Time) error
	CountReceipts(ctx context.Context, orderID int64) (int, error)
	InsertReceipt(ctx context.Context, r Receipt) (int64, error)
	WarehouseActive(ctx context.Context, id int64) (bool, error)
}

// Service orchestrates vendor maintenance and purchase orders.
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

// ListVendors returns a page of vendors ordered by code.
func (s *Service) ListVendors(ctx context.Context, f VendorFilter) (VendorList, error) {
	f.PageRequest = f.PageRequest.Normalize()
	items, total, err := s.repo.ListVendors(ctx, f)
	if err != nil {
		return VendorList{}, err
	}
	if items == nil {
		items = []Vendor{}
	}
	return VendorList{Vendors: items, Pagination: shared.NewPagination(f.PageRequest, total)}, nil
}

// CreateVendor inserts a vendor with a generated VEND- code.
func (s *Service) CreateVendor(ctx context.Context, actorID int64, in CreateVendorInput) (Vendor, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Vendor{}, shared.FieldError("name", "is required")
	}
	var id int64
	err := shared.RetryConflicts(ctx, numberAttempts, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			code, err := tx.NextNumber(ctx, shared.SeqVendor)
			if err != nil {
				return err
			}
			v := Vendor{
				VendorCode:       code,
				Name:             name,
				ContactName:      in.ContactName,
				Email:            strings.ToLower(strings.TrimSpace(in.Email)),
				Phone:            in.Phone,
				TaxID:            in.TaxID,
				PaymentTermsDays: in.PaymentTermsDays,
				IsActive:         true,
				CreatedBy:        actorID,
			}
			if id, err = tx.InsertVendor(ctx, v); err != nil {
				return err
			}
			v.ID = id
			return audit.Record(ctx, tx, actorID, audit.ActionCreate, entityVendor, audit.ID(id), nil, v)
		})
	})
	if err != nil {
		return Vendor{}, err
	}
	return s.repo.GetVendor(ctx, id)
}

// DeleteVendor removes a vendor that has never been ordered from.
func (s *Service) DeleteVendor(ctx context.Context, actorID, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		before, err := tx.GetVendorForUpdate(ctx, id)
		if err != nil {
			return err
		}
		n, err := tx.CountVendorOrders(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return shared.Precondition(fmt.Sprintf("vendor %s has %d purchase order(s)", before.VendorCode, n))
		}
		if err := tx.DeleteVendor(ctx, id); err != nil {
			return err
		}
		return audit.Record(ctx, tx, actorID, audit.ActionDelete, entityVendor, audit.ID(id), before, nil)
	})
}
