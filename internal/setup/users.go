package setup

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// UserRepository exposes user reads and the transaction boundary.
type UserRepository interface {
	ListUsers(ctx context.Context, f UserFilter) ([]User, int, error)
	GetUser(ctx context.Context, id int64) (User, error)
	WithTx(ctx context.Context, fn func(context.Context, UserTx) error) error
}

// UserTx performs user writes inside a transaction.
type UserTx interface {
	audit.Sink
	InsertUser(ctx context.Context, u NewUser) (int64, error)
	GetUserForUpdate(ctx context.Context, id int64) (User, error)
	RoleExists(ctx context.Context, id int64) (bool, error)
	UpdateUserRole(ctx context.Context, id int64, roleID *int64) error
	DeactivateUser(ctx context.Context, id int64) error
	DeleteUserSessions(ctx context.Context, id int64) error
}

// UserService manages user accounts.
type UserService struct {
	repo     UserRepository
	logger   *slog.Logger
	hashCost int
}

// NewUserService constructs a UserService.
func NewUserService(repo UserRepository, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{repo: repo, logger: logger, hashCost: bcrypt.DefaultCost}
}

// WithHashCost lowers the bcrypt cost, for tests.
func (s *UserService) WithHashCost(cost int) {
	s.hashCost = cost
}

// ListUsers returns a page of users ordered by name.
func (s *UserService) ListUsers(ctx context.Context, f UserFilter) (UserList, error) {
	f.PageRequest = f.PageRequest.Normalize()
	f.Search = strings.TrimSpace(f.Search)
	items, total, err := s.repo.ListUsers(ctx, f)
	if err != nil {
		return UserList{}, err
	}
	if items == nil {
		items = []User{}
	}
	return UserList{Users: items, Pagination: shared.NewPagination(f.PageRequest, total)}, nil
}

// CreateUser adds an active account. Emails are unique case-insensitively.
func (s *UserService) CreateUser(ctx context.Context, actorID int64, in CreateUserInput) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return User{}, shared.FieldError("password", "must be at most 72 bytes")
		}
		return User{}, err
	}
	nu := NewUser{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: string(hash),
	}
	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx UserTx) error {
		if in.RoleID > 0 {
			if err := requireRole(ctx, tx, in.RoleID); err != nil {
				return err
			}
			roleID := in.RoleID
			nu.RoleID = &roleID
		}
		var err error
		if id, err = tx.InsertUser(ctx, nu); err != nil {
			return err
		}
		return audit.Record(ctx, tx, actorID, audit.ActionCreate, entityUser, audit.ID(id), nil,
			map[string]any{"email": nu.Email, "name": nu.Name, "roleId": nu.RoleID})
	})
	if err != nil {
		return User{}, err
	}
	s.logger.Info("user created", slog.Int64("user_id", id), slog.Int64("actor_id", actorID))
	return s.repo.GetUser(ctx, id)
}

// AssignRole sets or clears a user's role.
func (s *UserService) AssignRole(ctx context.Context, actorID int64, in AssignRoleInput) (User, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx UserTx) error {
		before, err := tx.GetUserForUpdate(ctx, in.UserID)
		if err != nil {
			return err
		}
		var roleID *int64
		if in.RoleID > 0 {
			if err := requireRole(ctx, tx, in.RoleID); err != nil {
				return err
			}
			id := in.RoleID
			roleID = &id
		}
		if err := tx.UpdateUserRole(ctx, in.UserID, roleID); err != nil {
			return err
		}
		return audit.Record(ctx, tx, actorID, audit.ActionUpdate, entityUser, audit.ID(in.UserID),
			map[string]any{"roleId": before.RoleID}, map[string]any{"roleId": roleID})
	})
	if err != nil {
		return User{}, err
	}
	return s.repo.GetUser(ctx, in.UserID)
}

// DeactivateUser disables sign-in for a user and drops their sessions.
// Users cannot deactivate themselves.
func (s *UserService) DeactivateUser(ctx context.Context, actorID, id int64) (User, error) {
	if actorID == id {
		return User{}, shared.Precondition("you cannot deactivate your own account")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx UserTx) error {
		before, err := tx.GetUserForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !before.IsActive {
			return shared.Precondition("user " + before.Email + " is already inactive")
		}
		if err := tx.DeactivateUser(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteUserSessions(ctx, id); err != nil {
			return err
		}
		return audit.Record(ctx, tx, actorID, audit.ActionUpdate, entityUser, audit.ID(id),
			map[string]any{"isActive": true}, map[string]any{"isActive": false})
	})
	if err != nil {
		return User{}, err
	}
	return s.repo.GetUser(ctx, id)
}

func requireRole(ctx context.Context, tx UserTx, id int64) error {
	ok, err := tx.RoleExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return shared.FieldError("roleId", "must reference an existing role")
	}
	return nil
}
