package customers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

const createAttempts = 3

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Customer, error)
	List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository performs customer writes inside a transaction.
type TxRepository interface {
	audit.Sink
	NextCustomerID(ctx context.Context, prefix string) (string, error)
	Insert(ctx context.Context, c Customer) (int64, error)
	GetForUpdate(ctx context.Context, id int64) (Customer, error)
	Update(ctx context.Context, c Customer) error
	CountDependents(ctx context.Context, id int64) (Dependents, error)
	Delete(ctx context.Context, id int64) error
}

// Service orchestrates customer maintenance.
type Service struct {
	repo   RepositoryPort
	prefix string
	logger *slog.Logger
}

// NewService constructs a Service. prefix is the generated customer id prefix.
func NewService(repo RepositoryPort, prefix string, logger *slog.Logger) *Service {
	if prefix == "" {
		prefix = "CUST-"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, prefix: prefix, logger: logger}
}

// Get returns one customer.
func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of customers ordered by customer id.
func (s *Service) List(ctx context.Context, req ListCustomersRequest) (ListResult, error) {
	req.PageRequest = req.PageRequest.Normalize()
	items, total, err := s.repo.List(ctx, req)
	if err != nil {
		return ListResult{}, err
	}
	if items == nil {
		items = []Customer{}
	}
	return ListResult{Customers: items, Pagination: shared.NewPagination(req.PageRequest, total)}, nil
}

// Create inserts a customer. A generated id that collides with a concurrent
// insert is regenerated; an explicit duplicate id is a Conflict.
func (s *Service) Create(ctx context.Context, actorID int64, req CreateCustomerRequest) (Customer, error) {
	name := strings.TrimSpace(req.CompanyName)
	if name == "" {
		return Customer{}, shared.FieldError("companyName", "is required")
	}
	explicit := strings.TrimSpace(req.CustomerID)
	country := req.Country
	if country == "" {
		country = "ID"
	}
	customer := Customer{
		CustomerID:       explicit,
		CompanyName:      name,
		ContactName:      req.ContactName,
		Email:            req.Email,
		Phone:            req.Phone,
		TaxID:            req.TaxID,
		CreditLimit:      shared.RoundMoney(req.CreditLimit),
		PaymentTermsDays: req.PaymentTermsDays,
		AddressLine1:     req.AddressLine1,
		City:             req.City,
		PostalCode:       req.PostalCode,
		Country:          country,
		IsActive:         true,
		Notes:            req.Notes,
		CreatedBy:        actorID,
	}

	attempts := createAttempts
	if explicit != "" {
		attempts = 1
	}
	var id int64
	err := shared.RetryConflicts(ctx, attempts, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			c := customer
			if c.CustomerID == "" {
				next, err := tx.NextCustomerID(ctx, s.prefix)
				if err != nil {
					return err
				}
				c.CustomerID = next
			}
			var err error
			id, err = tx.Insert(ctx, c)
			if err != nil {
				return err
			}
			created, err := tx.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			return audit.Record(ctx, tx, actorID, audit.ActionCreate, entityCustomer, audit.ID(id), nil, created)
		})
	})
	if err != nil {
		return Customer{}, err
	}
	return s.repo.Get(ctx, id)
}

// Update patches a customer. Deactivation goes through here.
func (s *Service) Update(ctx context.Context, actorID int64, req UpdateCustomerRequest) (Customer, error) {
	if req.CompanyName != nil && strings.TrimSpace(*req.CompanyName) == "" {
		return Customer{}, shared.FieldError("companyName", "is required")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		before, err := tx.GetForUpdate(ctx, req.ID)
		if err != nil {
			return err
		}
		after := req.apply(before)
		after.CompanyName = strings.TrimSpace(after.CompanyName)
		if err := tx.Update(ctx, after); err != nil {
			return err
		}
		return audit.Record(ctx, tx, actorID, audit.ActionUpdate, entityCustomer, audit.ID(req.ID), before, after)
	})
	if err != nil {
		return Customer{}, err
	}
	return s.repo.Get(ctx, req.ID)
}

// Delete hard-deletes a customer without sales orders or invoices.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		before, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		deps, err := tx.CountDependents(ctx, id)
		if err != nil {
			return err
		}
		if deps.SalesOrders > 0 || deps.Invoices > 0 {
			return shared.Precondition(fmt.Sprintf(
				"customer %s has %d sales order(s) and %d invoice(s); deactivate it instead",
				before.CustomerID, deps.SalesOrders, deps.Invoices))
		}
		if err := tx.Delete(ctx, id); err != nil {
			return err
		}
		return audit.Record(ctx, tx, actorID, audit.ActionDelete, entityCustomer, audit.ID(id), before, nil)
	})
}
