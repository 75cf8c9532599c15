package statements

import (
	"time"

	"github.com/shopspring/decimal"
)

// IncomeStatement reports revenue less expenses over a period.
type IncomeStatement struct {
	From      time.Time       `json:"from"`
	To        time.Time       `json:"to"`
	Revenue   Section         `json:"revenue"`
	Expense   Section         `json:"expense"`
	NetIncome decimal.Decimal `json:"netIncome"`
}

// BuildIncomeStatement splits accounts into revenue and expense sections.
// Accounts of other types are ignored.
func BuildIncomeStatement(from, to time.Time, accounts []AccountBalance) IncomeStatement {
	var revenue, expense []AccountBalance
	for _, acc := range accounts {
		switch acc.Type {
		case Revenue:
			revenue = append(revenue, acc)
		case Expense:
			expense = append(expense, acc)
		}
	}
	is := IncomeStatement{
		From:    from,
		To:      to,
		Revenue: buildSection("Revenue", revenue),
		Expense: buildSection("Expense", expense),
	}
	is.NetIncome = is.Revenue.Total.Sub(is.Expense.Total)
	return is
}
