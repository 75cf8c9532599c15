package finance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/finance/statements"
	"github.com/odyssey-erp/backoffice/internal/platform/db"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// PGRepository implements RepositoryPort on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const (
	accountColumns = `id, account_number, name, type, parent_id, description, is_active, created_by, created_at, updated_at`
	journalColumns = `id, entry_number, entry_date, description, reference, status, total_debit, total_credit,
	created_by, approved_by, posted_by, posted_at, created_at, updated_at`
	assetColumns = `id, asset_number, name, category, acquisition_date, cost, salvage_value, useful_life_months,
	accumulated_depreciation, net_book_value, status, last_depreciated_on, created_by, created_at, updated_at`
	currencyColumns = `code, name, symbol, exchange_rate, updated_by, updated_at`
)

type rowScanner interface {
	Scan(dest ...any) error
}

// ListAccounts returns accounts ordered by number.
func (r *PGRepository) ListAccounts(ctx context.Context, f AccountFilter) ([]Account, error) {
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		args = append(args, string(f.Type))
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		where = append(where, fmt.Sprintf("is_active = $%d", len(args)))
	}
	query := `SELECT ` + accountColumns + ` FROM accounts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := r.pool.Query(ctx, query+` ORDER BY account_number`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAccount fetches one account.
func (r *PGRepository) GetAccount(ctx context.Context, id int64) (Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

// ListJournals returns the filtered page and the total match count.
func (r *PGRepository) ListJournals(ctx context.Context, q JournalQuery) ([]JournalEntry, int, error) {
	var (
		where []string
		args  []any
	)
	if q.Status != "" {
		args = append(args, string(q.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if q.From != nil {
		args = append(args, *q.From)
		where = append(where, fmt.Sprintf("entry_date >= $%d", len(args)))
	}
	if q.To != nil {
		args = append(args, *q.To)
		where = append(where, fmt.Sprintf("entry_date <= $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, q.PageSize, q.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM journal_entries%s ORDER BY entry_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		journalColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []JournalEntry
	for rows.Next() {
		e, err := scanJournal(rows)
		if err != nil {
			return nil, 0, err
		}
		e.Lines = []JournalLine{}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// GetJournal fetches an entry with its lines.
func (r *PGRepository) GetJournal(ctx context.Context, id int64) (JournalEntry, error) {
	return loadJournal(ctx, r.pool, id, false)
}

// ListFixedAssets returns all assets ordered by number.
func (r *PGRepository) ListFixedAssets(ctx context.Context) ([]FixedAsset, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+assetColumns+` FROM fixed_assets ORDER BY asset_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FixedAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetFixedAsset fetches one asset.
func (r *PGRepository) GetFixedAsset(ctx context.Context, id int64) (FixedAsset, error) {
	return scanAsset(r.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM fixed_assets WHERE id = $1`, id))
}

// ListCurrencies returns all currencies ordered by code.
func (r *PGRepository) ListCurrencies(ctx context.Context) ([]Currency, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+currencyColumns+` FROM currencies ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Currency
	for rows.Next() {
		c, err := scanCurrency(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCurrency fetches one currency.
func (r *PGRepository) GetCurrency(ctx context.Context, code string) (Currency, error) {
	return scanCurrency(r.pool.QueryRow(ctx, `SELECT `+currencyColumns+` FROM currencies WHERE code = $1`, code))
}

// Balances sums posted lines per account.
func (r *PGRepository) Balances(ctx context.Context, types []AccountType, from *time.Time, to time.Time) ([]statements.AccountBalance, error) {
	return balances(ctx, r.pool, types, from, to)
}

// Snapshot runs fn against a read-only RepeatableRead transaction.
func (r *PGRepository) Snapshot(ctx context.Context, fn func(context.Context, BalanceReader) error) error {
	return db.WithSnapshot(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, snapshotReader{tx: tx})
	})
}

type snapshotReader struct {
	tx pgx.Tx
}

func (s snapshotReader) Balances(ctx context.Context, types []AccountType, from *time.Time, to time.Time) ([]statements.AccountBalance, error) {
	return balances(ctx, s.tx, types, from, to)
}

func balances(ctx context.Context, q db.DBTX, types []AccountType, from *time.Time, to time.Time) ([]statements.AccountBalance, error) {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	rows, err := q.Query(ctx, `SELECT a.id, a.account_number, a.name, a.type,
		COALESCE(SUM(p.debit), 0), COALESCE(SUM(p.credit), 0)
		FROM accounts a
		JOIN (
			SELECT l.account_id, l.debit, l.credit
			FROM journal_lines l JOIN journal_entries e ON e.id = l.entry_id
			WHERE e.status = 'posted' AND e.entry_date <= $2 AND ($3::date IS NULL OR e.entry_date >= $3::date)
		) p ON p.account_id = a.id
		WHERE a.type = ANY($1)
		GROUP BY a.id, a.account_number, a.name, a.type
		ORDER BY a.account_number`, names, to, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []statements.AccountBalance
	for rows.Next() {
		var (
			b   statements.AccountBalance
			typ string
		)
		if err := rows.Scan(&b.AccountID, &b.AccountNumber, &b.Name, &typ, &b.Debit, &b.Credit); err != nil {
			return nil, err
		}
		b.Type = AccountType(typ)
		out = append(out, b)
	}
	return out, rows.Err()
}

// WithTx runs fn inside a transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{PGSink: audit.NewPGSink(tx), tx: tx})
	})
}

type txRepo struct {
	audit.PGSink
	tx pgx.Tx
}

func (t *txRepo) NextNumber(ctx context.Context, spec shared.SequenceSpec) (string, error) {
	return shared.NextSequence(ctx, t.tx, spec)
}

func (t *txRepo) InsertAccount(ctx context.Context, a Account) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO accounts (account_number, name, type, parent_id, description, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW()) RETURNING id`,
		a.AccountNumber, a.Name, string(a.Type), a.ParentID, a.Description, a.IsActive, a.CreatedBy,
	).Scan(&id)
	if err != nil && db.IsUniqueViolation(err) {
		return 0, shared.Conflict("account number " + a.AccountNumber + " already exists")
	}
	return id, err
}

func (t *txRepo) AccountsByID(ctx context.Context, ids []int64) (map[int64]Account, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]Account, len(ids))
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

func (t *txRepo) InsertJournal(ctx context.Context, e JournalEntry) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO journal_entries (entry_number, entry_date, description, reference, status,
		total_debit, total_credit, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()) RETURNING id`,
		e.EntryNumber, e.EntryDate, e.Description, e.Reference, string(e.Status), e.TotalDebit, e.TotalCredit, e.CreatedBy,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, shared.Conflict("journal entry number " + e.EntryNumber + " already exists")
		}
		return 0, err
	}
	batch := &pgx.Batch{}
	for i, l := range e.Lines {
		batch.Queue(`INSERT INTO journal_lines (entry_id, line_no, account_id, description, debit, credit)
			VALUES ($1, $2, $3, $4, $5, $6)`, id, i+1, l.AccountID, l.Description, l.Debit, l.Credit)
	}
	results := t.tx.SendBatch(ctx, batch)
	for range e.Lines {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return 0, err
		}
	}
	return id, results.Close()
}

func (t *txRepo) GetJournalForUpdate(ctx context.Context, id int64) (JournalEntry, error) {
	return loadJournal(ctx, t.tx, id, true)
}

func (t *txRepo) UpdateJournalStatus(ctx context.Context, id int64, status JournalStatus, actorID int64, at time.Time) error {
	var err error
	switch status {
	case JournalApproved:
		_, err = t.tx.Exec(ctx, `UPDATE journal_entries SET status = $2, approved_by = $3, approved_at = $4, updated_at = NOW() WHERE id = $1`,
			id, string(status), actorID, at)
	case JournalPosted:
		_, err = t.tx.Exec(ctx, `UPDATE journal_entries SET status = $2, posted_by = $3, posted_at = $4, updated_at = NOW() WHERE id = $1`,
			id, string(status), actorID, at)
	default:
		_, err = t.tx.Exec(ctx, `UPDATE journal_entries SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	}
	return err
}

func (t *txRepo) InsertFixedAsset(ctx context.Context, a FixedAsset) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO fixed_assets (asset_number, name, category, acquisition_date, cost, salvage_value,
		useful_life_months, accumulated_depreciation, net_book_value, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW()) RETURNING id`,
		a.AssetNumber, a.Name, a.Category, a.AcquisitionDate, a.Cost, a.SalvageValue, a.UsefulLifeMonths,
		a.AccumulatedDepreciation, a.NetBookValue, string(a.Status), a.CreatedBy,
	).Scan(&id)
	if err != nil && db.IsUniqueViolation(err) {
		return 0, shared.Conflict("asset number " + a.AssetNumber + " already exists")
	}
	return id, err
}

func (t *txRepo) GetFixedAssetForUpdate(ctx context.Context, id int64) (FixedAsset, error) {
	return scanAsset(t.tx.QueryRow(ctx, `SELECT `+assetColumns+` FROM fixed_assets WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepo) InsertDepreciation(ctx context.Context, d Depreciation) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO asset_depreciations (asset_id, period, amount, created_at) VALUES ($1, $2, $3, NOW())`,
		d.AssetID, d.Period, d.Amount)
	if err != nil && db.IsUniqueViolation(err) {
		return shared.Conflict("asset already depreciated for " + d.Period.Format("2006-01"))
	}
	return err
}

func (t *txRepo) UpdateFixedAssetBook(ctx context.Context, a FixedAsset) error {
	_, err := t.tx.Exec(ctx, `UPDATE fixed_assets SET accumulated_depreciation = $2, net_book_value = $3, status = $4,
		last_depreciated_on = $5, updated_at = NOW() WHERE id = $1`,
		a.ID, a.AccumulatedDepreciation, a.NetBookValue, string(a.Status), a.LastDepreciatedOn)
	return err
}

func (t *txRepo) GetCurrencyForUpdate(ctx context.Context, code string) (Currency, bool, error) {
	c, err := scanCurrency(t.tx.QueryRow(ctx, `SELECT `+currencyColumns+` FROM currencies WHERE code = $1 FOR UPDATE`, code))
	if shared.IsKind(err, shared.KindNotFound) {
		return Currency{}, false, nil
	}
	return c, err == nil, err
}

func (t *txRepo) SaveCurrency(ctx context.Context, c Currency) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO currencies (code, name, symbol, exchange_rate, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, symbol = EXCLUDED.symbol,
			exchange_rate = EXCLUDED.exchange_rate, updated_by = EXCLUDED.updated_by, updated_at = NOW()`,
		c.Code, c.Name, c.Symbol, c.ExchangeRate, c.UpdatedBy)
	return err
}

func loadJournal(ctx context.Context, q db.DBTX, id int64, forUpdate bool) (JournalEntry, error) {
	query := `SELECT ` + journalColumns + ` FROM journal_entries WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	e, err := scanJournal(q.QueryRow(ctx, query, id))
	if err != nil {
		return JournalEntry{}, err
	}
	rows, err := q.Query(ctx, `SELECT l.id, l.account_id, a.account_number, a.name, l.description, l.debit, l.credit
		FROM journal_lines l JOIN accounts a ON a.id = l.account_id
		WHERE l.entry_id = $1 ORDER BY l.line_no, l.id`, id)
	if err != nil {
		return JournalEntry{}, err
	}
	defer rows.Close()
	e.Lines = []JournalLine{}
	for rows.Next() {
		var l JournalLine
		if err := rows.Scan(&l.ID, &l.AccountID, &l.AccountNumber, &l.AccountName, &l.Description, &l.Debit, &l.Credit); err != nil {
			return JournalEntry{}, err
		}
		e.Lines = append(e.Lines, l)
	}
	return e, rows.Err()
}

func scanAccount(row rowScanner) (Account, error) {
	var (
		a   Account
		typ string
	)
	err := row.Scan(&a.ID, &a.AccountNumber, &a.Name, &typ, &a.ParentID, &a.Description, &a.IsActive, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if db.IsNoRows(err) {
		return Account{}, shared.NotFound("account")
	}
	a.Type = AccountType(typ)
	return a, err
}

func scanJournal(row rowScanner) (JournalEntry, error) {
	var (
		e      JournalEntry
		status string
	)
	err := row.Scan(&e.ID, &e.EntryNumber, &e.EntryDate, &e.Description, &e.Reference, &status, &e.TotalDebit, &e.TotalCredit,
		&e.CreatedBy, &e.ApprovedBy, &e.PostedBy, &e.PostedAt, &e.CreatedAt, &e.UpdatedAt)
	if db.IsNoRows(err) {
		return JournalEntry{}, shared.NotFound("journal entry")
	}
	e.Status = JournalStatus(status)
	return e, err
}

func scanAsset(row rowScanner) (FixedAsset, error) {
	var (
		a      FixedAsset
		status string
	)
	err := row.Scan(&a.ID, &a.AssetNumber, &a.Name, &a.Category, &a.AcquisitionDate, &a.Cost, &a.SalvageValue, &a.UsefulLifeMonths,
		&a.AccumulatedDepreciation, &a.NetBookValue, &status, &a.LastDepreciatedOn, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if db.IsNoRows(err) {
		return FixedAsset{}, shared.NotFound("fixed asset")
	}
	a.Status = AssetStatus(status)
	return a, err
}

func scanCurrency(row rowScanner) (Currency, error) {
	var c Currency
	err := row.Scan(&c.Code, &c.Name, &c.Symbol, &c.ExchangeRate, &c.UpdatedBy, &c.UpdatedAt)
	if db.IsNoRows(err) {
		return Currency{}, shared.NotFound("currency")
	}
	return c, err
}
