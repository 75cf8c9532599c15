package rbac

//go:generate go run ./gen -out permissions_gen.go

import (
	"sort"
	"strings"

	"github.com/odyssey-erp/backoffice/internal/shared"
)

// Permission is a "<module>:<action>" capability code. The set of valid codes
// is closed; see permissions_gen.go.
type Permission string

func (p Permission) String() string { return string(p) }

// Module returns the part before the colon.
func (p Permission) Module() string {
	module, _, _ := strings.Cut(string(p), ":")
	return module
}

// Action returns the part after the colon.
func (p Permission) Action() string {
	_, action, _ := strings.Cut(string(p), ":")
	return action
}

// Valid reports whether p is a known code.
func (p Permission) Valid() bool {
	_, ok := knownPermissions[p]
	return ok
}

// ParsePermission accepts only known codes.
func ParsePermission(raw string) (Permission, error) {
	p := Permission(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", shared.FieldError("permission", "unknown permission code "+raw)
	}
	return p, nil
}

// AllPermissions returns every known code in module/action order.
func AllPermissions() []Permission {
	out := make([]Permission, len(allPermissions))
	copy(out, allPermissions)
	return out
}

// PermissionInfo describes a code for the setup screens.
type PermissionInfo struct {
	Code        Permission `json:"code"`
	Module      string     `json:"module"`
	Action      string     `json:"action"`
	Description string     `json:"description"`
}

var actionVerbs = map[string]string{
	"view":   "View",
	"create": "Create",
	"edit":   "Edit",
	"delete": "Delete",
}

// Catalog lists all codes with a human description.
func Catalog() []PermissionInfo {
	out := make([]PermissionInfo, 0, len(allPermissions))
	for _, p := range allPermissions {
		out = append(out, PermissionInfo{
			Code:        p,
			Module:      p.Module(),
			Action:      p.Action(),
			Description: actionVerbs[p.Action()] + " " + p.Module() + " records",
		})
	}
	return out
}

// AccessLevel is stored alongside each role permission.
type AccessLevel string

const (
	AccessView   AccessLevel = "view"
	AccessCreate AccessLevel = "create"
	AccessEdit   AccessLevel = "edit"
	AccessFull   AccessLevel = "full"
)

// ParseAccessLevel defaults empty input to full.
func ParseAccessLevel(raw string) (AccessLevel, error) {
	switch level := AccessLevel(strings.ToLower(strings.TrimSpace(raw))); level {
	case "":
		return AccessFull, nil
	case AccessView, AccessCreate, AccessEdit, AccessFull:
		return level, nil
	default:
		return "", shared.FieldError("accessLevel", "must be one of view, create, edit, full")
	}
}

func sortPermissions(perms []Permission) {
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
}
