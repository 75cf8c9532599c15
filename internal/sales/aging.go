package sales

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// AgingBuckets splits outstanding receivables by days past due.
type AgingBuckets struct {
	Current    decimal.Decimal `json:"current"`
	Days1To30  decimal.Decimal `json:"days1To30"`
	Days31To60 decimal.Decimal `json:"days31To60"`
	Days61To90 decimal.Decimal `json:"days61To90"`
	Over90     decimal.Decimal `json:"over90"`
	Total      decimal.Decimal `json:"total"`
}

func (b *AgingBuckets) add(daysPastDue int, amount decimal.Decimal) {
	switch {
	case daysPastDue <= 0:
		b.Current = b.Current.Add(amount)
	case daysPastDue <= 30:
		b.Days1To30 = b.Days1To30.Add(amount)
	case daysPastDue <= 60:
		b.Days31To60 = b.Days31To60.Add(amount)
	case daysPastDue <= 90:
		b.Days61To90 = b.Days61To90.Add(amount)
	default:
		b.Over90 = b.Over90.Add(amount)
	}
	b.Total = b.Total.Add(amount)
}

// CustomerAging is one customer's row in the aging report.
type CustomerAging struct {
	CustomerID   int64  `json:"customerId"`
	CustomerName string `json:"customerName"`
	AgingBuckets
}

// AgingReport is the AR aging summary as of a date.
type AgingReport struct {
	AsOf      time.Time       `json:"asOf"`
	Totals    AgingBuckets    `json:"totals"`
	Customers []CustomerAging `json:"customers"`
}

// ARAging buckets the amount due on open and partially paid invoices.
func (s *Service) ARAging(ctx context.Context, in AgingInput) (AgingReport, error) {
	asOf, err := parseDate("asOf", in.AsOf, s.now())
	if err != nil {
		return AgingReport{}, err
	}
	invoices, err := s.repo.ListOutstandingInvoices(ctx)
	if err != nil {
		return AgingReport{}, err
	}
	return buildAging(asOf, invoices), nil
}

func buildAging(asOf time.Time, invoices []Invoice) AgingReport {
	report := AgingReport{AsOf: asOf, Customers: []CustomerAging{}}
	byCustomer := map[int64]*CustomerAging{}
	for _, inv := range invoices {
		if !inv.Status.Payable() || !inv.AmountDue.IsPositive() {
			continue
		}
		days := int(asOf.Sub(inv.DueDate).Hours() / 24)
		report.Totals.add(days, inv.AmountDue)
		row, ok := byCustomer[inv.CustomerID]
		if !ok {
			row = &CustomerAging{CustomerID: inv.CustomerID, CustomerName: inv.CustomerName}
			byCustomer[inv.CustomerID] = row
		}
		row.add(days, inv.AmountDue)
	}
	for _, row := range byCustomer {
		report.Customers = append(report.Customers, *row)
	}
	sort.Slice(report.Customers, func(i, j int) bool {
		if !report.Customers[i].Total.Equal(report.Customers[j].Total) {
			return report.Customers[i].Total.GreaterThan(report.Customers[j].Total)
		}
		return report.Customers[i].CustomerID < report.Customers[j].CustomerID
	})
	return report
}
