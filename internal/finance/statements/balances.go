// Package statements builds the trial balance, balance sheet and income
// statement from per-account debit and credit totals.
package statements

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// AccountType classifies ledger accounts.
type AccountType string

const (
	Asset     AccountType = "asset"
	Liability AccountType = "liability"
	Equity    AccountType = "equity"
	Revenue   AccountType = "revenue"
	Expense   AccountType = "expense"
)

// DebitNormal reports whether the account grows with debits.
func (t AccountType) DebitNormal() bool {
	return t == Asset || t == Expense
}

// AccountBalance is the posted activity of one account.
type AccountBalance struct {
	AccountID     int64           `json:"accountId"`
	AccountNumber string          `json:"accountNumber"`
	Name          string          `json:"name"`
	Type          AccountType     `json:"type"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
}

// Balance is the signed balance on the account's normal side.
func (a AccountBalance) Balance() decimal.Decimal {
	if a.Type.DebitNormal() {
		return a.Debit.Sub(a.Credit)
	}
	return a.Credit.Sub(a.Debit)
}

// GroupKey is the leading segment of the account number.
func (a AccountBalance) GroupKey() string {
	if idx := strings.IndexAny(a.AccountNumber, ".-"); idx > 0 {
		return a.AccountNumber[:idx]
	}
	if len(a.AccountNumber) >= 1 {
		return a.AccountNumber[:1]
	}
	return a.AccountNumber
}

func byNumber(rows []AccountBalance) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].AccountNumber < rows[j].AccountNumber })
}
