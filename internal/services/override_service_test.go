package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/scolaris/scolaris/internal/authz"
	"github.com/scolaris/scolaris/internal/catalog"
	"github.com/scolaris/scolaris/internal/database/testutil"
	"github.com/scolaris/scolaris/internal/models"
	apperrors "github.com/scolaris/scolaris/pkg/errors"
)

func newOverrideService(t *testing.T, db *gorm.DB) (*OverrideService, *authz.Checker) {
	t.Helper()
	audit, err := NewAuditService(db)
	require.NoError(t, err)
	cache := authz.NewEffectiveCache()
	checker, err := authz.NewChecker(db, cache)
	require.NoError(t, err)
	svc, err := NewOverrideService(db, audit, checker, cache)
	require.NoError(t, err)
	return svc, checker
}

func seedUser(t *testing.T, db *gorm.DB, username string, role catalog.Role) *models.User {
	t.Helper()
	user := &models.User{Username: username, Password: "x", Role: role, IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestDenyOverrideRevokesSeededPermission(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc, checker := newOverrideService(t, db)
	user := seedUser(t, db, "marie", catalog.RoleComptable)

	// The comptable baseline includes expense approval.
	allowed, err := checker.HasPermission(context.Background(), user.ID, catalog.ResourceExpenses, catalog.ActionApprove, catalog.ScopeAll)
	require.NoError(t, err)
	require.True(t, allowed)

	deny, err := svc.Deny(context.Background(), AddOverrideInput{
		UserID:    user.ID,
		Resource:  catalog.ResourceExpenses,
		Action:    catalog.ActionApprove,
		Scope:     catalog.ScopeAll,
		Reason:    "pending investigation",
		GrantorID: "admin-1",
	})
	require.NoError(t, err)
	require.False(t, deny.Granted)

	allowed, err = checker.HasPermission(context.Background(), user.ID, catalog.ResourceExpenses, catalog.ActionApprove, catalog.ScopeAll)
	require.NoError(t, err)
	require.False(t, allowed)

	// Unrelated capabilities survive.
	allowed, err = checker.HasPermission(context.Background(), user.ID, catalog.ResourcePayments, catalog.ActionView, catalog.ScopeAll)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestGrantOverrideAddsBeyondRoleBaseline(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc, checker := newOverrideService(t, db)
	user := seedUser(t, db, "paul", catalog.RoleEnseignant)

	// Teachers have no salary report access by default.
	allowed, err := checker.HasPermission(context.Background(), user.ID, catalog.ResourceSalaryReports, catalog.ActionView, catalog.ScopeAll)
	require.NoError(t, err)
	require.False(t, allowed)

	grant, err := svc.Grant(context.Background(), AddOverrideInput{
		UserID:    user.ID,
		Resource:  catalog.ResourceSalaryReports,
		Action:    catalog.ActionView,
		Scope:     catalog.ScopeAll,
		Reason:    "acting head of department",
		GrantorID: "admin-1",
	})
	require.NoError(t, err)
	require.True(t, grant.Granted)

	allowed, err = checker.HasPermission(context.Background(), user.ID, catalog.ResourceSalaryReports, catalog.ActionView, catalog.ScopeAll)
	require.NoError(t, err)
	require.True(t, allowed)

	// Other teachers are unaffected.
	other := seedUser(t, db, "claire", catalog.RoleEnseignant)
	allowed, err = checker.HasPermission(context.Background(), other.ID, catalog.ResourceSalaryReports, catalog.ActionView, catalog.ScopeAll)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestRemoveOverrideRestoresBaseline(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc, checker := newOverrideService(t, db)
	user := seedUser(t, db, "marie", catalog.RoleComptable)

	deny, err := svc.Deny(context.Background(), AddOverrideInput{
		UserID:    user.ID,
		Resource:  catalog.ResourceExpenses,
		Action:    catalog.ActionApprove,
		Scope:     catalog.ScopeAll,
		Reason:    "pending investigation",
		GrantorID: "admin-1",
	})
	require.NoError(t, err)

	allowed, err := checker.HasPermission(context.Background(), user.ID, catalog.ResourceExpenses, catalog.ActionApprove, catalog.ScopeAll)
	require.NoError(t, err)
	require.False(t, allowed)

	require.NoError(t, svc.Remove(context.Background(), deny.ID, "admin-1"))

	allowed, err = checker.HasPermission(context.Background(), user.ID, catalog.ResourceExpenses, catalog.ActionApprove, catalog.ScopeAll)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestRemoveGrantOverrideDropsCapability(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	audit, err := NewAuditService(db)
	require.NoError(t, err)
	cache := authz.NewEffectiveCache()
	checker, err := authz.NewChecker(db, cache)
	require.NoError(t, err)
	svc, err := NewOverrideService(db, audit, checker, cache)
	require.NoError(t, err)
	roleSvc, err := NewRolePermissionService(db, audit, cache)
	require.NoError(t, err)

	user := seedUser(t, db, "paul", catalog.RoleEnseignant)

	grant, err := svc.Grant(context.Background(), AddOverrideInput{
		UserID:    user.ID,
		Resource:  catalog.ResourceSalaryReports,
		Action:    catalog.ActionView,
		Scope:     catalog.ScopeAll,
		Reason:    "acting head of department",
		GrantorID: "admin-1",
	})
	require.NoError(t, err)

	allowed, err := checker.HasPermission(context.Background(), user.ID, catalog.ResourceSalaryReports, catalog.ActionView, catalog.ScopeAll)
	require.NoError(t, err)
	require.True(t, allowed)

	// Removing an unrelated baseline tuple leaves the grant intact.
	var unrelated models.RolePermission
	require.NoError(t, db.First(&unrelated,
		"role = ? AND resource = ?", catalog.RoleEnseignant, catalog.ResourceStudents).Error)
	require.NoError(t, roleSvc.RemovePermission(context.Background(), unrelated.ID, "admin-1"))

	allowed, err = checker.HasPermission(context.Background(), user.ID, catalog.ResourceSalaryReports, catalog.ActionView, catalog.ScopeAll)
	require.NoError(t, err)
	require.True(t, allowed)

	// Removing the grant drops the capability: the tuple was never in the role.
	require.NoError(t, svc.Remove(context.Background(), grant.ID, "admin-1"))

	allowed, err = checker.HasPermission(context.Background(), user.ID, catalog.ResourceSalaryReports, catalog.ActionView, catalog.ScopeAll)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestAddOverrideValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, _ := newOverrideService(t, db)
	user := seedUser(t, db, "marie", catalog.RoleComptable)

	_, err := svc.Grant(context.Background(), AddOverrideInput{
		UserID:   user.ID,
		Resource: catalog.Resource("books"),
		Action:   catalog.ActionView,
		Scope:    catalog.ScopeAll,
		Reason:   "r",
	})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.Grant(context.Background(), AddOverrideInput{
		UserID:   user.ID,
		Resource: catalog.ResourceReports,
		Action:   catalog.ActionView,
		Scope:    catalog.ScopeAll,
		Reason:   "   ",
	})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.Grant(context.Background(), AddOverrideInput{
		UserID:   "missing",
		Resource: catalog.ResourceReports,
		Action:   catalog.ActionView,
		Scope:    catalog.ScopeAll,
		Reason:   "r",
	})
	require.ErrorIs(t, err, authz.ErrUserNotFound)
}

func TestAddOverrideDuplicate(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, _ := newOverrideService(t, db)
	user := seedUser(t, db, "marie", catalog.RoleComptable)

	input := AddOverrideInput{
		UserID:   user.ID,
		Resource: catalog.ResourceReports,
		Action:   catalog.ActionView,
		Scope:    catalog.ScopeAll,
		Reason:   "first",
	}

	_, err := svc.Grant(context.Background(), input)
	require.NoError(t, err)

	// A second override for the same tuple is rejected regardless of effect.
	input.Reason = "second"
	_, err = svc.Deny(context.Background(), input)
	require.ErrorIs(t, err, apperrors.ErrDuplicateOverride)
}

func TestRemoveOverrideNotFound(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, _ := newOverrideService(t, db)

	require.ErrorIs(t, svc.Remove(context.Background(), "missing", "admin-1"), apperrors.ErrNotFound)
}

func TestStatsForUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, _ := newOverrideService(t, db)
	user := seedUser(t, db, "marie", catalog.RoleComptable)

	_, err := svc.Grant(context.Background(), AddOverrideInput{
		UserID: user.ID, Resource: catalog.ResourceReports, Action: catalog.ActionView, Scope: catalog.ScopeAll, Reason: "r",
	})
	require.NoError(t, err)
	_, err = svc.Grant(context.Background(), AddOverrideInput{
		UserID: user.ID, Resource: catalog.ResourceReports, Action: catalog.ActionExport, Scope: catalog.ScopeAll, Reason: "r",
	})
	require.NoError(t, err)
	_, err = svc.Deny(context.Background(), AddOverrideInput{
		UserID: user.ID, Resource: catalog.ResourceStudents, Action: catalog.ActionView, Scope: catalog.ScopeAll, Reason: "r",
	})
	require.NoError(t, err)

	stats, err := svc.StatsForUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.Grants)
	require.EqualValues(t, 1, stats.Denials)
}

func TestGetUserPermissionsView(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc, _ := newOverrideService(t, db)
	user := seedUser(t, db, "paul", catalog.RoleEnseignant)

	_, err := svc.Grant(context.Background(), AddOverrideInput{
		UserID:    user.ID,
		Resource:  catalog.ResourceSalaryReports,
		Action:    catalog.ActionView,
		Scope:     catalog.ScopeAll,
		Reason:    "acting head of department",
		GrantorID: "admin-1",
	})
	require.NoError(t, err)

	view, err := svc.GetUserPermissions(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, view.User.ID)
	require.NotEmpty(t, view.RolePermissions)
	require.Len(t, view.Overrides, 1)
	require.Len(t, view.Effective, len(view.RolePermissions)+1)

	// The override-sourced entry is tagged as such.
	found := false
	for _, entry := range view.Effective {
		if entry.Resource == catalog.ResourceSalaryReports {
			require.Equal(t, authz.SourceOverride, entry.Source)
			found = true
		}
	}
	require.True(t, found)
}
