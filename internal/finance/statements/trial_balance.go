package statements

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TrialBalanceRow is one account line.
type TrialBalanceRow struct {
	AccountBalance
	Balance decimal.Decimal `json:"balance"`
}

// TrialBalanceGroup aggregates accounts sharing a number prefix.
type TrialBalanceGroup struct {
	Key    string            `json:"key"`
	Rows   []TrialBalanceRow `json:"rows"`
	Debit  decimal.Decimal   `json:"debit"`
	Credit decimal.Decimal   `json:"credit"`
}

// TrialBalance lists posted debit and credit totals as of a date.
type TrialBalance struct {
	AsOf        time.Time           `json:"asOf"`
	Groups      []TrialBalanceGroup `json:"groups"`
	TotalDebit  decimal.Decimal     `json:"totalDebit"`
	TotalCredit decimal.Decimal     `json:"totalCredit"`
	Balanced    bool                `json:"balanced"`
}

// BuildTrialBalance groups accounts by number prefix.
func BuildTrialBalance(asOf time.Time, accounts []AccountBalance) TrialBalance {
	groups := make(map[string]*TrialBalanceGroup)
	var keys []string
	for _, acc := range accounts {
		key := acc.GroupKey()
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key}
			groups[key] = grp
			keys = append(keys, key)
		}
		grp.Rows = append(grp.Rows, TrialBalanceRow{AccountBalance: acc, Balance: acc.Balance()})
		grp.Debit = grp.Debit.Add(acc.Debit)
		grp.Credit = grp.Credit.Add(acc.Credit)
	}

	sort.Strings(keys)
	tb := TrialBalance{AsOf: asOf, Groups: []TrialBalanceGroup{}}
	for _, key := range keys {
		grp := groups[key]
		sort.Slice(grp.Rows, func(i, j int) bool { return grp.Rows[i].AccountNumber < grp.Rows[j].AccountNumber })
		tb.Groups = append(tb.Groups, *grp)
		tb.TotalDebit = tb.TotalDebit.Add(grp.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(grp.Credit)
	}
	tb.Balanced = tb.TotalDebit.Sub(tb.TotalCredit).Abs().LessThan(decimal.RequireFromString("0.01"))
	return tb
}
