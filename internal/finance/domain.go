// Package finance owns the chart of accounts, journal entries, fixed assets,
// currencies and the financial statements built from posted journals.
package finance

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/backoffice/internal/finance/statements"
)

const (
	entityAccount  = "account"
	entityJournal  = "journal_entry"
	entityAsset    = "fixed_asset"
	entityCurrency = "currency"
)

var (
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = errors.New("finance: journal lines must balance")
	// ErrInvalidStatus indicates a rejected journal transition.
	ErrInvalidStatus = errors.New("finance: invalid status transition")
	// ErrFullyDepreciated indicates an asset already at salvage value.
	ErrFullyDepreciated = errors.New("finance: asset fully depreciated")
)

// AccountType re-exports the statement classification.
type AccountType = statements.AccountType

// Account is a chart-of-accounts entry.
type Account struct {
	ID            int64       `json:"id"`
	AccountNumber string      `json:"accountNumber"`
	Name          string      `json:"name"`
	Type          AccountType `json:"type"`
	ParentID      *int64      `json:"parentId,omitempty"`
	Description   string      `json:"description,omitempty"`
	IsActive      bool        `json:"isActive"`
	CreatedBy     int64       `json:"createdBy"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// JournalStatus is the journal entry lifecycle.
type JournalStatus string

const (
	JournalPending  JournalStatus = "pending"
	JournalApproved JournalStatus = "approved"
	JournalPosted   JournalStatus = "posted"
	JournalVoid     JournalStatus = "void"
)

// JournalEntry is a double-entry posting.
type JournalEntry struct {
	ID          int64           `json:"id"`
	EntryNumber string          `json:"entryNumber"`
	EntryDate   time.Time       `json:"entryDate"`
	Description string          `json:"description"`
	Reference   string          `json:"reference,omitempty"`
	Status      JournalStatus   `json:"status"`
	TotalDebit  decimal.Decimal `json:"totalDebit"`
	TotalCredit decimal.Decimal `json:"totalCredit"`
	Lines       []JournalLine   `json:"lines"`
	CreatedBy   int64           `json:"createdBy"`
	ApprovedBy  *int64          `json:"approvedBy,omitempty"`
	PostedBy    *int64          `json:"postedBy,omitempty"`
	PostedAt    *time.Time      `json:"postedAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// JournalLine debits or credits one account.
type JournalLine struct {
	ID            int64           `json:"id"`
	AccountID     int64           `json:"accountId"`
	AccountNumber string          `json:"accountNumber,omitempty"`
	AccountName   string          `json:"accountName,omitempty"`
	Description   string          `json:"description,omitempty"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
}

// AssetStatus is the fixed asset lifecycle.
type AssetStatus string

const (
	AssetActive           AssetStatus = "active"
	AssetFullyDepreciated AssetStatus = "fully_depreciated"
)

// FixedAsset is a depreciable asset.
type FixedAsset struct {
	ID                      int64           `json:"id"`
	AssetNumber             string          `json:"assetNumber"`
	Name                    string          `json:"name"`
	Category                string          `json:"category,omitempty"`
	AcquisitionDate         time.Time       `json:"acquisitionDate"`
	Cost                    decimal.Decimal `json:"cost"`
	SalvageValue            decimal.Decimal `json:"salvageValue"`
	UsefulLifeMonths        int             `json:"usefulLifeMonths"`
	AccumulatedDepreciation decimal.Decimal `json:"accumulatedDepreciation"`
	NetBookValue            decimal.Decimal `json:"netBookValue"`
	Status                  AssetStatus     `json:"status"`
	LastDepreciatedOn       *time.Time      `json:"lastDepreciatedOn,omitempty"`
	CreatedBy               int64           `json:"createdBy"`
	CreatedAt               time.Time       `json:"createdAt"`
	UpdatedAt               time.Time       `json:"updatedAt"`
}

// Depreciation is one monthly charge against an asset.
type Depreciation struct {
	AssetID int64           `json:"assetId"`
	Period  time.Time       `json:"period"`
	Amount  decimal.Decimal `json:"amount"`
}

// Currency is an ISO 4217 currency with its rate against the base currency.
type Currency struct {
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Symbol       string          `json:"symbol,omitempty"`
	ExchangeRate decimal.Decimal `json:"exchangeRate"`
	UpdatedBy    int64           `json:"updatedBy"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}
