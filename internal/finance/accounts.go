package finance

import (
	"context"
	"strings"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// ListAccounts returns the chart of accounts ordered by number.
func (s *Service) ListAccounts(ctx context.Context, f AccountFilter) ([]Account, error) {
	items, err := s.repo.ListAccounts(ctx, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Account{}
	}
	return items, nil
}

// CreateAccount adds an account. Numbers are unique; a parent must exist
// and share the account's type.
func (s *Service) CreateAccount(ctx context.Context, actorID int64, in CreateAccountInput) (Account, error) {
	acc := Account{
		AccountNumber: strings.TrimSpace(in.AccountNumber),
		Name:          strings.TrimSpace(in.Name),
		Type:          in.Type,
		Description:   in.Description,
		IsActive:      true,
		CreatedBy:     actorID,
	}
	if acc.AccountNumber == "" {
		return Account{}, shared.FieldError("accountNumber", "is required")
	}
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if in.ParentID > 0 {
			parents, err := tx.AccountsByID(ctx, []int64{in.ParentID})
			if err != nil {
				return err
			}
			parent, ok := parents[in.ParentID]
			if !ok {
				return shared.FieldError("parentId", "must reference an existing account")
			}
			if parent.Type != acc.Type {
				return shared.FieldError("parentId", "must have the same account type")
			}
			pid := parent.ID
			acc.ParentID = &pid
		}
		var err error
		if id, err = tx.InsertAccount(ctx, acc); err != nil {
			return err
		}
		acc.ID = id
		return audit.Record(ctx, tx, actorID, audit.ActionCreate, entityAccount, audit.ID(id), nil, acc)
	})
	if err != nil {
		return Account{}, err
	}
	return s.repo.GetAccount(ctx, id)
}
