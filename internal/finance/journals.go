package finance

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// ListJournalEntries returns a page of entries, newest first.
func (s *Service) ListJournalEntries(ctx context.Context, f JournalFilter) (JournalList, error) {
	q := JournalQuery{PageRequest: f.PageRequest.Normalize(), Status: f.Status}
	if f.From != "" {
		from, err := parseDate("from", f.From, s.now())
		if err != nil {
			return JournalList{}, err
		}
		q.From = &from
	}
	if f.To != "" {
		to, err := parseDate("to", f.To, s.now())
		if err != nil {
			return JournalList{}, err
		}
		q.To = &to
	}
	items, total, err := s.repo.ListJournals(ctx, q)
	if err != nil {
		return JournalList{}, err
	}
	if items == nil {
		items = []JournalEntry{}
	}
	return JournalList{Entries: items, Pagination: shared.NewPagination(q.PageRequest, total)}, nil
}

// GetJournalEntry returns an entry with its lines.
func (s *Service) GetJournalEntry(ctx context.Context, id int64) (JournalEntry, error) {
	return s.repo.GetJournal(ctx, id)
}

// CreateJournalEntry stores a pending entry. Every line carries either a
// debit or a credit, all accounts must be active, and the entry must
// balance within one cent.
func (s *Service) CreateJournalEntry(ctx context.Context, actorID int64, in CreateJournalInput) (JournalEntry, error) {
	entryDate, err := parseDate("entryDate", in.EntryDate, s.now())
	if err != nil {
		return JournalEntry{}, err
	}
	lines, debit, credit, err := journalLines(in.Lines)
	if err != nil {
		return JournalEntry{}, err
	}
	if !shared.WithinEpsilon(debit, credit) {
		return JournalEntry{}, &shared.Error{
			Kind: shared.KindPreconditionFailed,
			Message: fmt.Sprintf("journal entry is unbalanced: debits %s, credits %s",
				debit.StringFixed(shared.MoneyPlaces), credit.StringFixed(shared.MoneyPlaces)),
			Cause: ErrUnbalanced,
		}
	}
	entry := JournalEntry{
		EntryDate:   entryDate,
		Description: strings.TrimSpace(in.Description),
		Reference:   in.Reference,
		Status:      JournalPending,
		TotalDebit:  debit,
		TotalCredit: credit,
		Lines:       lines,
		CreatedBy:   actorID,
	}

	var id int64
	err = shared.RetryConflicts(ctx, numberAttempts, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			e := entry
			e.Lines = append([]JournalLine(nil), entry.Lines...)
			ids := make([]int64, len(e.Lines))
			for i, l := range e.Lines {
				ids[i] = l.AccountID
			}
			accounts, err := tx.AccountsByID(ctx, ids)
			if err != nil {
				return err
			}
			fields := map[string]string{}
			for i, l := range e.Lines {
				acc, ok := accounts[l.AccountID]
				switch {
				case !ok:
					fields[fmt.Sprintf("lines[%d].accountId", i)] = "must reference an existing account"
				case !acc.IsActive:
					fields[fmt.Sprintf("lines[%d].accountId", i)] = "account " + acc.AccountNumber + " is inactive"
				default:
					e.Lines[i].AccountNumber, e.Lines[i].AccountName = acc.AccountNumber, acc.Name
				}
			}
			if len(fields) > 0 {
				return shared.Validation("invalid journal lines", fields)
			}
			if e.EntryNumber, err = tx.NextNumber(ctx, shared.SeqJournal); err != nil {
				return err
			}
			if id, err = tx.InsertJournal(ctx, e); err != nil {
				return err
			}
			e.ID = id
			return audit.Record(ctx, tx, actorID, audit.ActionCreate, entityJournal, audit.ID(id), nil, e)
		})
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return s.repo.GetJournal(ctx, id)
}

func journalLines(in []JournalLineInput) ([]JournalLine, decimal.Decimal, decimal.Decimal, error) {
	if len(in) < 2 {
		return nil, decimal.Zero, decimal.Zero, shared.FieldError("lines", "must contain at least 2 items")
	}
	var debit, credit decimal.Decimal
	fields := map[string]string{}
	lines := make([]JournalLine, len(in))
	for i, l := range in {
		d, c := shared.RoundMoney(l.Debit), shared.RoundMoney(l.Credit)
		switch {
		case d.IsNegative() || c.IsNegative():
			fields[fmt.Sprintf("lines[%d]", i)] = "amounts must not be negative"
		case d.IsPositive() == c.IsPositive():
			fields[fmt.Sprintf("lines[%d]", i)] = "must have either a debit or a credit"
		}
		lines[i] = JournalLine{AccountID: l.AccountID, Description: l.Description, Debit: d, Credit: c}
		debit = debit.Add(d)
		credit = credit.Add(c)
	}
	if len(fields) > 0 {
		return nil, decimal.Zero, decimal.Zero, shared.Validation("invalid journal lines", fields)
	}
	return lines, debit, credit, nil
}

// ApproveJournalEntry moves a pending entry to approved.
func (s *Service) ApproveJournalEntry(ctx context.Context, actorID, id int64) (JournalEntry, error) {
	return s.transitionJournal(ctx, actorID, id, audit.ActionApprove, JournalApproved, JournalPending)
}

// PostJournalEntry posts an approved entry to the ledger.
func (s *Service) PostJournalEntry(ctx context.Context, actorID, id int64) (JournalEntry, error) {
	return s.transitionJournal(ctx, actorID, id, audit.ActionPost, JournalPosted, JournalApproved)
}

// VoidJournalEntry voids an entry that has not been posted.
func (s *Service) VoidJournalEntry(ctx context.Context, actorID, id int64) (JournalEntry, error) {
	return s.transitionJournal(ctx, actorID, id, audit.ActionVoid, JournalVoid, JournalPending, JournalApproved)
}

func (s *Service) transitionJournal(ctx context.Context, actorID, id int64, action audit.Action, to JournalStatus, from ...JournalStatus) (JournalEntry, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		e, err := tx.GetJournalForUpdate(ctx, id)
		if err != nil {
			return err
		}
		allowed := false
		for _, f := range from {
			allowed = allowed || e.Status == f
		}
		if !allowed {
			return &shared.Error{
				Kind:    shared.KindPreconditionFailed,
				Message: fmt.Sprintf("journal entry %s is %s and cannot be moved to %s", e.EntryNumber, e.Status, to),
				Cause:   ErrInvalidStatus,
			}
		}
		if err := tx.UpdateJournalStatus(ctx, id, to, actorID, s.now().UTC()); err != nil {
			return err
		}
		return audit.Record(ctx, tx, actorID, action, entityJournal, audit.ID(id),
			map[string]any{"status": e.Status}, map[string]any{"status": to})
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return s.repo.GetJournal(ctx, id)
}
