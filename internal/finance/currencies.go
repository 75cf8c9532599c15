package finance

import (
	"context"
	"strings"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// ListCurrencies returns all currencies ordered by code.
func (s *Service) ListCurrencies(ctx context.Context) ([]Currency, error) {
	items, err := s.repo.ListCurrencies(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Currency{}
	}
	return items, nil
}

// UpsertCurrency creates or updates a currency and its exchange rate.
func (s *Service) UpsertCurrency(ctx context.Context, actorID int64, in UpsertCurrencyInput) (Currency, error) {
	c := Currency{
		Code:         strings.ToUpper(strings.TrimSpace(in.Code)),
		Name:         strings.TrimSpace(in.Name),
		Symbol:       in.Symbol,
		ExchangeRate: in.ExchangeRate,
		UpdatedBy:    actorID,
	}
	if !c.ExchangeRate.IsPositive() {
		return Currency{}, shared.FieldError("exchangeRate", "must be greater than 0")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		before, exists, err := tx.GetCurrencyForUpdate(ctx, c.Code)
		if err != nil {
			return err
		}
		if err := tx.SaveCurrency(ctx, c); err != nil {
			return err
		}
		if !exists {
			return audit.Record(ctx, tx, actorID, audit.ActionCreate, entityCurrency, c.Code, nil, c)
		}
		return audit.Record(ctx, tx, actorID, audit.ActionUpdate, entityCurrency, c.Code, before, c)
	})
	if err != nil {
		return Currency{}, err
	}
	return s.repo.GetCurrency(ctx, c.Code)
}
