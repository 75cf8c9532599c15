package finance

import (
	"context"
	"time"

	"github.com/odyssey-erp/backoffice/internal/finance/statements"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

var allTypes = []AccountType{statements.Asset, statements.Liability, statements.Equity, statements.Revenue, statements.Expense}

// TrialBalance lists posted activity per account up to asOf.
func (s *Service) TrialBalance(ctx context.Context, in AsOfInput) (statements.TrialBalance, error) {
	asOf, err := parseDate("asOf", in.AsOf, s.now())
	if err != nil {
		return statements.TrialBalance{}, err
	}
	balances, err := s.repo.Balances(ctx, allTypes, nil, asOf)
	if err != nil {
		return statements.TrialBalance{}, err
	}
	return statements.BuildTrialBalance(asOf, balances), nil
}

// BalanceSheet loads the asset, liability, equity and earnings sections
// from one snapshot and assembles the statement as of asOf.
func (s *Service) BalanceSheet(ctx context.Context, in AsOfInput) (statements.BalanceSheet, error) {
	asOf, err := parseDate("asOf", in.AsOf, s.now())
	if err != nil {
		return statements.BalanceSheet{}, err
	}
	var assets, liabilities, equity, earnings []statements.AccountBalance
	err = s.repo.Snapshot(ctx, func(ctx context.Context, r BalanceReader) error {
		sections := []struct {
			dst   *[]statements.AccountBalance
			types []AccountType
		}{
			{&assets, []AccountType{statements.Asset}},
			{&liabilities, []AccountType{statements.Liability}},
			{&equity, []AccountType{statements.Equity}},
			{&earnings, []AccountType{statements.Revenue, statements.Expense}},
		}
		for _, sec := range sections {
			rows, err := r.Balances(ctx, sec.types, nil, asOf)
			if err != nil {
				return err
			}
			*sec.dst = rows
		}
		return nil
	})
	if err != nil {
		return statements.BalanceSheet{}, err
	}
	return statements.BuildBalanceSheet(asOf, assets, liabilities, equity, earnings), nil
}

// IncomeStatement reports revenue and expenses posted between from and to.
// from defaults to the first day of to's year.
func (s *Service) IncomeStatement(ctx context.Context, in PeriodInput) (statements.IncomeStatement, error) {
	to, err := parseDate("to", in.To, s.now())
	if err != nil {
		return statements.IncomeStatement{}, err
	}
	from := time.Date(to.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	if in.From != "" {
		if from, err = parseDate("from", in.From, s.now()); err != nil {
			return statements.IncomeStatement{}, err
		}
	}
	if from.After(to) {
		return statements.IncomeStatement{}, shared.FieldError("from", "must not be after to")
	}
	balances, err := s.repo.Balances(ctx, []AccountType{statements.Revenue, statements.Expense}, &from, to)
	if err != nil {
		return statements.IncomeStatement{}, err
	}
	return statements.BuildIncomeStatement(from, to, balances), nil
}
