package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/backoffice/internal/shared"
)

func TestParsePermission(t *testing.T) {
	p, err := ParsePermission(" Sales:Create ")
	require.NoError(t, err)
	require.Equal(t, PermSalesCreate, p)
	require.Equal(t, "sales", p.Module())
	require.Equal(t, "create", p.Action())

	for _, raw := range []string{"", "sales", "sales:approve", "sale:view", "sales.view"} {
		_, err := ParsePermission(raw)
		require.True(t, shared.IsKind(err, shared.KindValidation), raw)
	}
}

func TestCatalogCoversEveryCode(t *testing.T) {
	all := AllPermissions()
	require.Len(t, all, 36)
	catalog := Catalog()
	require.Len(t, catalog, len(all))
	for i, info := range catalog {
		require.Equal(t, all[i], info.Code)
		require.NotEmpty(t, info.Description)
	}
	require.Equal(t, "Delete finance records", catalog[15].Description)
}

func TestAllPermissionsReturnsCopy(t *testing.T) {
	all := AllPermissions()
	all[0] = "tampered"
	require.Equal(t, PermSalesView, AllPermissions()[0])
}

func TestParseAccessLevel(t *testing.T) {
	level, err := ParseAccessLevel("")
	require.NoError(t, err)
	require.Equal(t, AccessFull, level)

	level, err = ParseAccessLevel("VIEW")
	require.NoError(t, err)
	require.Equal(t, AccessView, level)

	_, err = ParseAccessLevel("admin")
	require.Error(t, err)
}

func TestPrincipalHas(t *testing.T) {
	p := NewPrincipal(1, "Ana", "ana@example.com", 2, "Sales", []Permission{PermSalesView, PermSalesView, "bogus:view"})
	require.True(t, p.Has(PermSalesView))
	require.False(t, p.Has(PermSalesCreate))
	require.Equal(t, []Permission{PermSalesView}, p.Permissions)
	require.True(t, p.HasAny(PermFinanceView, PermSalesView))

	var none *Principal
	require.False(t, none.Has(PermSalesView))

	empty := NewPrincipal(3, "", "", 0, "", nil)
	require.NotNil(t, empty.Permissions)
	require.False(t, empty.HasAny(AllPermissions()...))
}
