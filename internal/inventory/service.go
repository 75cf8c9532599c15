package inventory

import (
	"context"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	List(ctx context.Context, f WarehouseFilter) ([]Warehouse, int, error)
	Get(ctx context.Context, id int64) (Warehouse, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository performs warehouse writes inside a transaction.
type TxRepository interface {
	audit.Sink
	Insert(ctx context.Context, w Warehouse) (int64, error)
	GetForUpdate(ctx context.Context, id int64) (Warehouse, error)
	Update(ctx context.Context, w Warehouse) error
}

// Service maintains warehouses.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// List returns a page of warehouses ordered by code.
func (s *Service) List(ctx context.Context, f WarehouseFilter) (WarehouseList, error) {
	f.PageRequest = f.PageRequest.Normalize()
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return WarehouseList{}, err
	}
	if items == nil {
		items = []Warehouse{}
	}
	return WarehouseList{Warehouses: items, Pagination: shared.NewPagination(f.PageRequest, total)}, nil
}

// Create inserts a warehouse. Codes are unique case-insensitively.
func (s *Service) Create(ctx context.Context, actorID int64, in CreateWarehouseInput) (Warehouse, error) {
	w := Warehouse{
		Code:      normalizeCode(in.Code),
		Name:      strings.TrimSpace(in.Name),
		Address:   in.Address,
		City:      in.City,
		Manager:   in.Manager,
		IsActive:  true,
		CreatedBy: actorID,
	}
	if w.Name == "" {
		return Warehouse{}, shared.FieldError("name", "is required")
	}
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		if id, err = tx.Insert(ctx, w); err != nil {
			return err
		}
		w.ID = id
		return audit.Record(ctx, tx, actorID, audit.ActionCreate, entityWarehouse, audit.ID(id), nil, w)
	})
	if err != nil {
		return Warehouse{}, err
	}
	return s.repo.Get(ctx, id)
}

// Update patches a warehouse.
func (s *Service) Update(ctx context.Context, actorID int64, in UpdateWarehouseInput) (Warehouse, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return Warehouse{}, shared.FieldError("name", "is required")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		before, err := tx.GetForUpdate(ctx, in.ID)
		if err != nil {
			return err
		}
		after := in.apply(before)
		after.Name = strings.TrimSpace(after.Name)
		if err := tx.Update(ctx, after); err != nil {
			return err
		}
		return audit.Record(ctx, tx, actorID, audit.ActionUpdate, entityWarehouse, audit.ID(in.ID), before, after)
	})
	if err != nil {
		return Warehouse{}, err
	}
	return s.repo.Get(ctx, in.ID)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
