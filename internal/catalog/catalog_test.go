package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidMembership(t *testing.T) {
	require.True(t, RoleComptable.Valid())
	require.True(t, ResourceSalaryReports.Valid())
	require.True(t, ActionApprove.Valid())
	require.True(t, ScopeClass.Valid())

	require.False(t, Role("principal").Valid())
	require.False(t, Resource("invoices").Valid())
	require.False(t, Action("read").Valid())
	require.False(t, Scope("school").Valid())
}

func TestScopeCovers(t *testing.T) {
	require.True(t, ScopeAll.Covers(ScopeAll))
	require.True(t, ScopeAll.Covers(ScopeOwn))
	require.True(t, ScopeAll.Covers(ScopeClass))

	require.True(t, ScopeOwn.Covers(ScopeOwn))
	require.False(t, ScopeOwn.Covers(ScopeClass))
	require.False(t, ScopeOwn.Covers(ScopeAll))

	require.True(t, ScopeClass.Covers(ScopeClass))
	require.False(t, ScopeClass.Covers(ScopeOwn))
	require.False(t, ScopeClass.Covers(ScopeAll))
}

func TestValidateTuple(t *testing.T) {
	require.NoError(t, ValidateTuple(ResourceGrades, ActionEdit, ScopeClass))

	err := ValidateTuple(Resource("books"), ActionView, ScopeAll)
	require.Error(t, err)
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	require.Equal(t, "resource", fieldErr.Field)

	err = ValidateTuple(ResourceGrades, Action("write"), ScopeAll)
	require.ErrorAs(t, err, &fieldErr)
	require.Equal(t, "action", fieldErr.Field)

	err = ValidateTuple(ResourceGrades, ActionView, Scope("global"))
	require.ErrorAs(t, err, &fieldErr)
	require.Equal(t, "scope", fieldErr.Field)
}

func TestValidateRole(t *testing.T) {
	require.NoError(t, ValidateRole(RoleEnseignant))
	require.Error(t, ValidateRole(Role("janitor")))
}

func TestBootstrapRoles(t *testing.T) {
	require.True(t, IsBootstrapRole(RoleProprietaire))
	require.True(t, IsBootstrapRole(RoleAdminSysteme))
	require.False(t, IsBootstrapRole(RoleDirecteur))
	require.False(t, IsBootstrapRole(RoleEnseignant))
}

func TestEnumerationsAreStable(t *testing.T) {
	require.Equal(t, Roles(), Roles())
	require.Equal(t, Resources(), Resources())
	require.Equal(t, Actions(), Actions())
	require.Equal(t, Scopes(), Scopes())

	require.Len(t, Roles(), 7)
	require.Len(t, Resources(), 11)
	require.Len(t, Actions(), 6)
	require.Len(t, Scopes(), 3)
}
