package statements

import (
	"time"

	"github.com/shopspring/decimal"
)

// Line is one account on a statement.
type Line struct {
	AccountID     int64           `json:"accountId"`
	AccountNumber string          `json:"accountNumber"`
	Name          string          `json:"name"`
	Amount        decimal.Decimal `json:"amount"`
}

// Section is a titled list of lines with a total.
type Section struct {
	Label string          `json:"label"`
	Lines []Line          `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

func buildSection(label string, accounts []AccountBalance) Section {
	rows := append([]AccountBalance(nil), accounts...)
	byNumber(rows)
	s := Section{Label: label, Lines: make([]Line, 0, len(rows))}
	for _, acc := range rows {
		amount := acc.Balance()
		s.Lines = append(s.Lines, Line{AccountID: acc.AccountID, AccountNumber: acc.AccountNumber, Name: acc.Name, Amount: amount})
		s.Total = s.Total.Add(amount)
	}
	return s
}

// BalanceSheet reports assets against liabilities and equity. Earnings not
// yet closed to equity appear as CurrentEarnings.
type BalanceSheet struct {
	AsOf                      time.Time       `json:"asOf"`
	Assets                    Section         `json:"assets"`
	Liabilities               Section         `json:"liabilities"`
	Equity                    Section         `json:"equity"`
	CurrentEarnings           decimal.Decimal `json:"currentEarnings"`
	TotalLiabilitiesAndEquity decimal.Decimal `json:"totalLiabilitiesAndEquity"`
	Balanced                  bool            `json:"balanced"`
}

// BuildBalanceSheet assembles the statement from per-section balances.
// earnings holds revenue and expense accounts.
func BuildBalanceSheet(asOf time.Time, assets, liabilities, equity, earnings []AccountBalance) BalanceSheet {
	bs := BalanceSheet{
		AsOf:        asOf,
		Assets:      buildSection("Assets", assets),
		Liabilities: buildSection("Liabilities", liabilities),
		Equity:      buildSection("Equity", equity),
	}
	bs.CurrentEarnings = BuildIncomeStatement(asOf, asOf, earnings).NetIncome
	bs.TotalLiabilitiesAndEquity = bs.Liabilities.Total.Add(bs.Equity.Total).Add(bs.CurrentEarnings)
	bs.Balanced = bs.Assets.Total.Sub(bs.TotalLiabilitiesAndEquity).Abs().LessThan(decimal.RequireFromString("0.01"))
	return bs
}
