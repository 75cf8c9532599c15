package finance

import (
	"context"
	"log/slog"
	"time"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/finance/statements"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

const numberAttempts = 3

// RepositoryPort describes the reads and transaction boundary used by Service.
type RepositoryPort interface {
	ListAccounts(ctx context.Context, f AccountFilter) ([]Account, error)
	GetAccount(ctx context.Context, id int64) (Account, error)
	ListJournals(ctx context.Context, q JournalQuery) ([]JournalEntry, int, error)
	GetJournal(ctx context.Context, id int64) (JournalEntry, error)
	ListFixedAssets(ctx context.Context) ([]FixedAsset, error)
	GetFixedAsset(ctx context.Context, id int64) (FixedAsset, error)
	ListCurrencies(ctx context.Context) ([]Currency, error)
	GetCurrency(ctx context.Context, code string) (Currency, error)
	// Balances sums posted journal lines dated in [from, to] per account of
	// the given types. A nil from means since inception.
	Balances(ctx context.Context, types []AccountType, from *time.Time, to time.Time) ([]statements.AccountBalance, error)
	// Snapshot runs fn with reads pinned to one consistent view.
	Snapshot(ctx context.Context, fn func(context.Context, BalanceReader) error) error
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// BalanceReader sums posted activity inside a snapshot.
type BalanceReader interface {
	Balances(ctx context.Context, types []AccountType, from *time.Time, to time.Time) ([]statements.AccountBalance, error)
}

// TxRepository performs finance writes inside a transaction.
type TxRepository interface {
	audit.Sink
	NextNumber(ctx context.Context, spec shared.SequenceSpec) (string, error)
	InsertAccount(ctx context.Context, a Account) (int64, error)
	AccountsByID(ctx context.Context, ids []int64) (map[int64]Account, error)
	InsertJournal(ctx context.Context, e JournalEntry) (int64, error)
	GetJournalForUpdate(ctx context.Context, id int64) (JournalEntry, error)
	UpdateJournalStatus(ctx context.Context, id int64, status JournalStatus, actorID int64, at time.Time) error
	InsertFixedAsset(ctx context.Context, a FixedAsset) (int64, error)
	GetFixedAssetForUpdate(ctx context.Context, id int64) (FixedAsset, error)
	InsertDepreciation(ctx context.Context, d Depreciation) error
	UpdateFixedAssetBook(ctx context.Context, a FixedAsset) error
	GetCurrencyForUpdate(ctx context.Context, code string) (Currency, bool, error)
	SaveCurrency(ctx context.Context, c Currency) error
}

// Service orchestrates ledger maintenance and reporting.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// WithNow overrides the clock used for default dates.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}
