package finance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// ListFixedAssets returns every fixed asset ordered by number.
func (s *Service) ListFixedAssets(ctx context.Context) ([]FixedAsset, error) {
	items, err := s.repo.ListFixedAssets(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []FixedAsset{}
	}
	return items, nil
}

// CreateFixedAsset registers an asset at cost with no depreciation.
func (s *Service) CreateFixedAsset(ctx context.Context, actorID int64, in CreateAssetInput) (FixedAsset, error) {
	acquired, err := parseDate("acquisitionDate", in.AcquisitionDate, s.now())
	if err != nil {
		return FixedAsset{}, err
	}
	cost, salvage := shared.RoundMoney(in.Cost), shared.RoundMoney(in.SalvageValue)
	if salvage.GreaterThan(cost) {
		return FixedAsset{}, shared.FieldError("salvageValue", "must not exceed cost")
	}
	asset := FixedAsset{
		Name:                    strings.TrimSpace(in.Name),
		Category:                in.Category,
		AcquisitionDate:         acquired,
		Cost:                    cost,
		SalvageValue:            salvage,
		UsefulLifeMonths:        in.UsefulLifeMonths,
		AccumulatedDepreciation: decimal.Zero,
		NetBookValue:            cost,
		Status:                  AssetActive,
		CreatedBy:               actorID,
	}
	if cost.Equal(salvage) {
		asset.Status = AssetFullyDepreciated
	}
	var id int64
	err = shared.RetryConflicts(ctx, numberAttempts, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			a := asset
			var err error
			if a.AssetNumber, err = tx.NextNumber(ctx, shared.SeqFixedAsset); err != nil {
				return err
			}
			if id, err = tx.InsertFixedAsset(ctx, a); err != nil {
				return err
			}
			a.ID = id
			return audit.Record(ctx, tx, actorID, audit.ActionCreate, entityAsset, audit.ID(id), nil, a)
		})
	})
	if err != nil {
		return FixedAsset{}, err
	}
	return s.repo.GetFixedAsset(ctx, id)
}

// MonthlyCharge is the straight-line charge for one month, capped so the net
// book value never drops below salvage. The last month of the useful life
// takes whatever rounding left over.
func MonthlyCharge(a FixedAsset) decimal.Decimal {
	if a.UsefulLifeMonths <= 0 {
		return decimal.Zero
	}
	depreciable := a.Cost.Sub(a.SalvageValue)
	charge := shared.RoundMoney(depreciable.Div(decimal.NewFromInt(int64(a.UsefulLifeMonths))))
	remaining := a.NetBookValue.Sub(a.SalvageValue)
	if !charge.IsPositive() || monthsCharged(a, charge)+1 >= int64(a.UsefulLifeMonths) || charge.GreaterThan(remaining) {
		charge = remaining
	}
	if charge.IsNegative() {
		return decimal.Zero
	}
	return charge
}

// monthsCharged counts the standard charges already booked. Every month
// before the last books exactly charge.
func monthsCharged(a FixedAsset, charge decimal.Decimal) int64 {
	return a.AccumulatedDepreciation.Div(charge).IntPart()
}

// DepreciateFixedAsset books one month of depreciation. Each month can be
// charged once per asset.
func (s *Service) DepreciateFixedAsset(ctx context.Context, actorID int64, in DepreciateInput) (FixedAsset, error) {
	day, err := parseDate("period", in.Period, s.now())
	if err != nil {
		return FixedAsset{}, err
	}
	period := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		before, err := tx.GetFixedAssetForUpdate(ctx, in.ID)
		if err != nil {
			return err
		}
		if period.Before(time.Date(before.AcquisitionDate.Year(), before.AcquisitionDate.Month(), 1, 0, 0, 0, 0, time.UTC)) {
			return shared.FieldError("period", "must not be before the acquisition month")
		}
		charge := MonthlyCharge(before)
		if !charge.IsPositive() {
			return &shared.Error{
				Kind:    shared.KindPreconditionFailed,
				Message: fmt.Sprintf("asset %s is fully depreciated", before.AssetNumber),
				Cause:   ErrFullyDepreciated,
			}
		}
		if err := tx.InsertDepreciation(ctx, Depreciation{AssetID: before.ID, Period: period, Amount: charge}); err != nil {
			return err
		}
		after := before
		after.AccumulatedDepreciation = before.AccumulatedDepreciation.Add(charge)
		after.NetBookValue = before.Cost.Sub(after.AccumulatedDepreciation)
		after.LastDepreciatedOn = &period
		if after.NetBookValue.Equal(after.SalvageValue) {
			after.Status = AssetFullyDepreciated
		}
		if err := tx.UpdateFixedAssetBook(ctx, after); err != nil {
			return err
		}
		return audit.Record(ctx, tx, actorID, audit.ActionDepreciate, entityAsset, audit.ID(before.ID),
			map[string]any{"accumulatedDepreciation": before.AccumulatedDepreciation, "netBookValue": before.NetBookValue, "status": before.Status},
			map[string]any{"accumulatedDepreciation": after.AccumulatedDepreciation, "netBookValue": after.NetBookValue, "status": after.Status,
				"period": period.Format("2006-01"), "charge": charge})
	})
	if err != nil {
		return FixedAsset{}, err
	}
	return s.repo.GetFixedAsset(ctx, in.ID)
}
