package rbac

import "time"

// Principal is the authenticated actor, rebuilt from storage on every call.
type Principal struct {
	UserID      int64        `json:"userId"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	RoleID      int64        `json:"roleId,omitempty"`
	RoleName    string       `json:"roleName,omitempty"`
	Permissions []Permission `json:"permissions"`

	set map[Permission]struct{}
}

// NewPrincipal builds a principal. Unknown codes are dropped.
func NewPrincipal(userID int64, name, email string, roleID int64, roleName string, perms []Permission) *Principal {
	p := &Principal{
		UserID:   userID,
		Name:     name,
		Email:    email,
		RoleID:   roleID,
		RoleName: roleName,
		set:      make(map[Permission]struct{}, len(perms)),
	}
	for _, code := range perms {
		if !code.Valid() {
			continue
		}
		if _, dup := p.set[code]; dup {
			continue
		}
		p.set[code] = struct{}{}
		p.Permissions = append(p.Permissions, code)
	}
	if p.Permissions == nil {
		p.Permissions = []Permission{}
	}
	sortPermissions(p.Permissions)
	return p
}

// Has reports whether the principal holds code. A nil principal holds nothing.
func (p *Principal) Has(code Permission) bool {
	if p == nil {
		return false
	}
	_, ok := p.set[code]
	return ok
}

// HasAny reports whether at least one of codes is held.
func (p *Principal) HasAny(codes ...Permission) bool {
	for _, c := range codes {
		if p.Has(c) {
			return true
		}
	}
	return false
}

// Role groups permission codes. System roles are immutable.
type Role struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	IsSystem    bool             `json:"isSystem"`
	Permissions []RolePermission `json:"permissions"`
	UserCount   int              `json:"userCount"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// RolePermission grants one code to a role.
type RolePermission struct {
	Code   Permission  `json:"code"`
	Access AccessLevel `json:"accessLevel"`
}

// Codes returns the granted codes.
func (r Role) Codes() []Permission {
	out := make([]Permission, 0, len(r.Permissions))
	for _, rp := range r.Permissions {
		out = append(out, rp.Code)
	}
	return out
}
