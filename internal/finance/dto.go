package finance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/backoffice/internal/shared"
)

// CreateAccountInput is the finance.createAccount payload.
type CreateAccountInput struct {
	AccountNumber string      `json:"accountNumber" validate:"required,max=20"`
	Name          string      `json:"name" validate:"required,max=200"`
	Type          AccountType `json:"type" validate:"required,oneof=asset liability equity revenue expense"`
	ParentID      int64       `json:"parentId" validate:"gte=0"`
	Description   string      `json:"description" validate:"max=500"`
}

// AccountFilter narrows finance.listAccounts.
type AccountFilter struct {
	Type     AccountType `json:"type" validate:"omitempty,oneof=asset liability equity revenue expense"`
	IsActive *bool       `json:"isActive"`
}

// JournalLineInput is one debit or credit.
type JournalLineInput struct {
	AccountID   int64           `json:"accountId" validate:"required,gt=0"`
	Description string          `json:"description" validate:"max=500"`
	Debit       decimal.Decimal `json:"debit" validate:"gte=0"`
	Credit      decimal.Decimal `json:"credit" validate:"gte=0"`
}

// CreateJournalInput is the finance.createJournalEntry payload.
type CreateJournalInput struct {
	EntryDate   string             `json:"entryDate" validate:"omitempty,datetime=2006-01-02"`
	Description string             `json:"description" validate:"required,max=500"`
	Reference   string             `json:"reference" validate:"max=100"`
	Lines       []JournalLineInput `json:"lines" validate:"required,min=2,max=500,dive"`
}

// JournalFilter narrows finance.listJournalEntries.
type JournalFilter struct {
	shared.PageRequest
	Status JournalStatus `json:"status" validate:"omitempty,oneof=pending approved posted void"`
	From   string        `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To     string        `json:"to" validate:"omitempty,datetime=2006-01-02"`
}

// JournalQuery is the parsed form of JournalFilter handed to repositories.
type JournalQuery struct {
	shared.PageRequest
	Status   JournalStatus
	From, To *time.Time
}

// JournalList is a page of journal entries.
type JournalList struct {
	Entries    []JournalEntry    `json:"entries"`
	Pagination shared.Pagination `json:"pagination"`
}

// CreateAssetInput is the finance.createFixedAsset payload.
type CreateAssetInput struct {
	Name             string          `json:"name" validate:"required,max=200"`
	Category         string          `json:"category" validate:"max=100"`
	AcquisitionDate  string          `json:"acquisitionDate" validate:"omitempty,datetime=2006-01-02"`
	Cost             decimal.Decimal `json:"cost" validate:"gt=0"`
	SalvageValue     decimal.Decimal `json:"salvageValue" validate:"gte=0"`
	UsefulLifeMonths int             `json:"usefulLifeMonths" validate:"required,gt=0,lte=1200"`
}

// DepreciateInput is the finance.depreciateFixedAsset payload. Period is any
// date inside the month being charged; it defaults to the current month.
type DepreciateInput struct {
	ID     int64  `json:"id" validate:"required,gt=0"`
	Period string `json:"period" validate:"omitempty,datetime=2006-01-02"`
}

// UpsertCurrencyInput is the finance.upsertCurrency payload.
type UpsertCurrencyInput struct {
	Code         string          `json:"code" validate:"required,iso4217"`
	Name         string          `json:"name" validate:"required,max=100"`
	Symbol       string          `json:"symbol" validate:"max=10"`
	ExchangeRate decimal.Decimal `json:"exchangeRate" validate:"gt=0"`
}

// AsOfInput is the payload of point-in-time reports.
type AsOfInput struct {
	AsOf string `json:"asOf" validate:"omitempty,datetime=2006-01-02"`
}

// PeriodInput is the payload of period reports.
type PeriodInput struct {
	From string `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `json:"to" validate:"omitempty,datetime=2006-01-02"`
}

// IDInput addresses one record.
type IDInput struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

func parseDate(field, raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, shared.FieldError(field, "must be a date in 2006-01-02 format")
	}
	return t, nil
}
