// Package setup holds the administration procedures: user accounts, roles
// and their permissions, the audit log and global search.
package setup

import (
	"time"

	"github.com/odyssey-erp/backoffice/internal/shared"
)

const entityUser = "user"

// User is the administrative view of an account.
type User struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	RoleID      *int64     `json:"roleId,omitempty"`
	RoleName    string     `json:"roleName,omitempty"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NewUser is a user row about to be inserted.
type NewUser struct {
	Email        string
	Name         string
	PasswordHash string
	RoleID       *int64
}

// UserFilter narrows setup.listUsers.
type UserFilter struct {
	shared.PageRequest
	Search   string `json:"search" validate:"max=100"`
	IsActive *bool  `json:"isActive"`
}

// UserList is a page of users.
type UserList struct {
	Users      []User            `json:"users"`
	Pagination shared.Pagination `json:"pagination"`
}

// CreateUserInput is the setup.createUser payload.
type CreateUserInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"required,max=200"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	RoleID   int64  `json:"roleId" validate:"gte=0"`
}

// AssignRoleInput is the setup.assignRole payload. RoleID 0 removes the role.
type AssignRoleInput struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`
	RoleID int64 `json:"roleId" validate:"gte=0"`
}

// IDInput addresses one record.
type IDInput struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

// AuditLogInput is the setup.auditLog payload.
type AuditLogInput struct {
	EntityType string `json:"entityType" validate:"max=50"`
	EntityID   string `json:"entityId" validate:"max=50"`
	UserID     int64  `json:"userId" validate:"gte=0"`
	Action     string `json:"action" validate:"max=30"`
	From       string `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To         string `json:"to" validate:"omitempty,datetime=2006-01-02"`
	Page       int    `json:"page" validate:"gte=0"`
	PageSize   int    `json:"pageSize" validate:"gte=0,lte=100"`
}

// AuditExport carries a CSV rendering of the audit log.
type AuditExport struct {
	Filename string `json:"filename"`
	CSV      string `json:"csv"`
}
