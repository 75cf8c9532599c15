package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

const entityRole = "role"

// ErrSystemRole is wrapped by the Forbidden error returned for system roles.
var ErrSystemRole = errors.New("rbac: system roles cannot be modified")

// RepositoryPort exposes role persistence.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository performs role writes inside a transaction.
type TxRepository interface {
	audit.Sink
	GetRoleForUpdate(ctx context.Context, id int64) (Role, error)
	InsertRole(ctx context.Context, name, description string) (int64, error)
	UpdateRole(ctx context.Context, id int64, name, description string) error
	DeleteRole(ctx context.Context, id int64) error
	CountRoleUsers(ctx context.Context, id int64) (int, error)
	ReplaceRolePermissions(ctx context.Context, id int64, perms []RolePermission) error
}

// RolePermissionInput is the wire form of a granted code.
type RolePermissionInput struct {
	Code        string `json:"code" validate:"required"`
	AccessLevel string `json:"accessLevel" validate:"omitempty,oneof=view create edit full"`
}

// CreateRoleInput creates a custom role.
type CreateRoleInput struct {
	Name        string                `json:"name" validate:"required,max=100"`
	Description string                `json:"description" validate:"max=500"`
	Permissions []RolePermissionInput `json:"permissions" validate:"dive"`
}

// UpdateRoleInput renames a custom role.
type UpdateRoleInput struct {
	ID          int64  `json:"id" validate:"required,gt=0"`
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// UpdatePermissionsInput replaces a custom role's grants.
type UpdatePermissionsInput struct {
	ID          int64                 `json:"id" validate:"required,gt=0"`
	Permissions []RolePermissionInput `json:"permissions" validate:"dive"`
}

// Service manages roles and their permission grants.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService constructs a role Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	if roles == nil {
		roles = []Role{}
	}
	return roles, nil
}

// GetRole fetches a role with its grants.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole inserts a custom role with its grants.
func (s *Service) CreateRole(ctx context.Context, actorID int64, in CreateRoleInput) (Role, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Role{}, shared.FieldError("name", "is required")
	}
	perms, err := parseGrants(in.Permissions)
	if err != nil {
		return Role{}, err
	}
	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err = tx.InsertRole(ctx, name, strings.TrimSpace(in.Description))
		if err != nil {
			return err
		}
		if err := tx.ReplaceRolePermissions(ctx, id, perms); err != nil {
			return err
		}
		created, err := tx.GetRoleForUpdate(ctx, id)
		if err != nil {
			return err
		}
		return audit.Record(ctx, tx, actorID, audit.ActionCreate, entityRole, audit.ID(id), nil, created)
	})
	if err != nil {
		return Role{}, err
	}
	return s.repo.GetRole(ctx, id)
}

// UpdateRole renames a custom role.
func (s *Service) UpdateRole(ctx context.Context, actorID int64, in UpdateRoleInput) (Role, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Role{}, shared.FieldError("name", "is required")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		before, err := s.mutableRole(ctx, tx, in.ID)
		if err != nil {
			return err
		}
		if err := tx.UpdateRole(ctx, in.ID, name, strings.TrimSpace(in.Description)); err != nil {
			return err
		}
		after, err := tx.GetRoleForUpdate(ctx, in.ID)
		if err != nil {
			return err
		}
		return audit.Record(ctx, tx, actorID, audit.ActionUpdate, entityRole, audit.ID(in.ID), before, after)
	})
	if err != nil {
		return Role{}, err
	}
	return s.repo.GetRole(ctx, in.ID)
}

// DeleteRole removes a custom role that no user holds.
func (s *Service) DeleteRole(ctx context.Context, actorID, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		before, err := s.mutableRole(ctx, tx, id)
		if err != nil {
			return err
		}
		users, err := tx.CountRoleUsers(ctx, id)
		if err != nil {
			return err
		}
		if users > 0 {
			return shared.Precondition(fmt.Sprintf("role %q is assigned to %d user(s)", before.Name, users))
		}
		if err := tx.DeleteRole(ctx, id); err != nil {
			return err
		}
		return audit.Record(ctx, tx, actorID, audit.ActionDelete, entityRole, audit.ID(id), before, nil)
	})
}

// UpdateRolePermissions replaces the grants of a custom role.
func (s *Service) UpdateRolePermissions(ctx context.Context, actorID int64, in UpdatePermissionsInput) (Role, error) {
	var perms []RolePermission
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		before, err := s.mutableRole(ctx, tx, in.ID)
		if err != nil {
			return err
		}
		if perms, err = parseGrants(in.Permissions); err != nil {
			return err
		}
		if err := tx.ReplaceRolePermissions(ctx, in.ID, perms); err != nil {
			return err
		}
		return audit.Record(ctx, tx, actorID, audit.ActionPermissions, entityRole, audit.ID(in.ID),
			map[string]any{"permissions": before.Permissions},
			map[string]any{"permissions": perms})
	})
	if err != nil {
		return Role{}, err
	}
	s.logger.Info("role permissions updated", slog.Int64("role_id", in.ID), slog.Int("count", len(perms)))
	return s.repo.GetRole(ctx, in.ID)
}

func (s *Service) mutableRole(ctx context.Context, tx TxRepository, id int64) (Role, error) {
	role, err := tx.GetRoleForUpdate(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if role.IsSystem {
		return Role{}, &shared.Error{Kind: shared.KindForbidden, Message: "system roles cannot be modified", Cause: ErrSystemRole}
	}
	return role, nil
}

func parseGrants(in []RolePermissionInput) ([]RolePermission, error) {
	out := make([]RolePermission, 0, len(in))
	seen := make(map[Permission]struct{}, len(in))
	fields := map[string]string{}
	for i, g := range in {
		code, err := ParsePermission(g.Code)
		if err != nil {
			fields[fmt.Sprintf("permissions[%d].code", i)] = "unknown permission code"
			continue
		}
		level, err := ParseAccessLevel(g.AccessLevel)
		if err != nil {
			fields[fmt.Sprintf("permissions[%d].accessLevel", i)] = "must be one of view, create, edit, full"
			continue
		}
		if _, dup := seen[code]; dup {
			fields[fmt.Sprintf("permissions[%d].code", i)] = "duplicate permission code"
			continue
		}
		seen[code] = struct{}{}
		out = append(out, RolePermission{Code: code, Access: level})
	}
	if len(fields) > 0 {
		return nil, shared.Validation("invalid permissions", fields)
	}
	return out, nil
}
