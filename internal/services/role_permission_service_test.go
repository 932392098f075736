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

func newRoleService(t *testing.T, db *gorm.DB) (*RolePermissionService, *authz.EffectiveCache) {
	t.Helper()
	audit, err := NewAuditService(db)
	require.NoError(t, err)
	cache := authz.NewEffectiveCache()
	svc, err := NewRolePermissionService(db, audit, cache)
	require.NoError(t, err)
	return svc, cache
}

func TestAddPermission(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, _ := newRoleService(t, db)

	perm, err := svc.AddPermission(context.Background(), AddPermissionInput{
		Role:     catalog.RoleSecretaire,
		Resource: catalog.ResourceEnrollments,
		Action:   catalog.ActionExport,
		Scope:    catalog.ScopeAll,
		ActorID:  "admin-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, perm.ID)
	require.Equal(t, models.PermissionSourceManual, perm.Source)
	require.NotNil(t, perm.CreatedByID)
	require.Equal(t, "admin-1", *perm.CreatedByID)

	// The mutation is audited.
	var audits int64
	require.NoError(t, db.Model(&models.AuditLog{}).Where("action = ?", "permission.add").Count(&audits).Error)
	require.EqualValues(t, 1, audits)
}

func TestAddPermissionDuplicate(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, _ := newRoleService(t, db)

	input := AddPermissionInput{
		Role:     catalog.RoleSecretaire,
		Resource: catalog.ResourceStudents,
		Action:   catalog.ActionView,
		Scope:    catalog.ScopeAll,
	}

	_, err := svc.AddPermission(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.AddPermission(context.Background(), input)
	require.ErrorIs(t, err, apperrors.ErrDuplicatePermission)

	// Exactly one row survives.
	var count int64
	require.NoError(t, db.Model(&models.RolePermission{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestAddPermissionRejectsUnknownValues(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, _ := newRoleService(t, db)

	_, err := svc.AddPermission(context.Background(), AddPermissionInput{
		Role:     catalog.Role("janitor"),
		Resource: catalog.ResourceStudents,
		Action:   catalog.ActionView,
		Scope:    catalog.ScopeAll,
	})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.AddPermission(context.Background(), AddPermissionInput{
		Role:     catalog.RoleSecretaire,
		Resource: catalog.ResourceStudents,
		Action:   catalog.Action("read"),
		Scope:    catalog.ScopeAll,
	})
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestUpdateScope(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, _ := newRoleService(t, db)

	perm, err := svc.AddPermission(context.Background(), AddPermissionInput{
		Role:     catalog.RoleEnseignant,
		Resource: catalog.ResourceGrades,
		Action:   catalog.ActionEdit,
		Scope:    catalog.ScopeClass,
	})
	require.NoError(t, err)

	updated, err := svc.UpdateScope(context.Background(), perm.ID, catalog.ScopeAll, "admin-1")
	require.NoError(t, err)
	require.Equal(t, catalog.ScopeAll, updated.Scope)

	// The returned record carries the attribution, not just the stored row.
	require.NotNil(t, updated.UpdatedByID)
	require.Equal(t, "admin-1", *updated.UpdatedByID)

	// Role, resource, action are untouched.
	var reloaded models.RolePermission
	require.NoError(t, db.First(&reloaded, "id = ?", perm.ID).Error)
	require.Equal(t, catalog.RoleEnseignant, reloaded.Role)
	require.Equal(t, catalog.ResourceGrades, reloaded.Resource)
	require.Equal(t, catalog.ActionEdit, reloaded.Action)
	require.Equal(t, catalog.ScopeAll, reloaded.Scope)
	require.NotNil(t, reloaded.UpdatedByID)
}

func TestUpdateScopeSameScopeIsNoOp(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, _ := newRoleService(t, db)

	perm, err := svc.AddPermission(context.Background(), AddPermissionInput{
		Role:     catalog.RoleEnseignant,
		Resource: catalog.ResourceGrades,
		Action:   catalog.ActionView,
		Scope:    catalog.ScopeClass,
	})
	require.NoError(t, err)

	updated, err := svc.UpdateScope(context.Background(), perm.ID, catalog.ScopeClass, "admin-1")
	require.NoError(t, err)
	require.Equal(t, catalog.ScopeClass, updated.Scope)

	var reloaded models.RolePermission
	require.NoError(t, db.First(&reloaded, "id = ?", perm.ID).Error)
	require.Nil(t, reloaded.UpdatedByID)
}

func TestUpdateScopeConflictsWithExistingTuple(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, _ := newRoleService(t, db)

	_, err := svc.AddPermission(context.Background(), AddPermissionInput{
		Role:     catalog.RoleEnseignant,
		Resource: catalog.ResourceGrades,
		Action:   catalog.ActionView,
		Scope:    catalog.ScopeAll,
	})
	require.NoError(t, err)

	narrow, err := svc.AddPermission(context.Background(), AddPermissionInput{
		Role:     catalog.RoleEnseignant,
		Resource: catalog.ResourceGrades,
		Action:   catalog.ActionView,
		Scope:    catalog.ScopeClass,
	})
	require.NoError(t, err)

	_, err = svc.UpdateScope(context.Background(), narrow.ID, catalog.ScopeAll, "admin-1")
	require.ErrorIs(t, err, apperrors.ErrDuplicatePermission)
}

func TestUpdateScopeNotFound(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, _ := newRoleService(t, db)

	_, err := svc.UpdateScope(context.Background(), "missing", catalog.ScopeAll, "admin-1")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRemovePermission(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, _ := newRoleService(t, db)

	perm, err := svc.AddPermission(context.Background(), AddPermissionInput{
		Role:     catalog.RoleSurveillant,
		Resource: catalog.ResourceAttendance,
		Action:   catalog.ActionCreate,
		Scope:    catalog.ScopeAll,
	})
	require.NoError(t, err)

	require.NoError(t, svc.RemovePermission(context.Background(), perm.ID, "admin-1"))

	var count int64
	require.NoError(t, db.Model(&models.RolePermission{}).Count(&count).Error)
	require.EqualValues(t, 0, count)

	require.ErrorIs(t, svc.RemovePermission(context.Background(), perm.ID, "admin-1"), apperrors.ErrNotFound)
}

func TestRoleMutationsInvalidateCachedMembers(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, cache := newRoleService(t, db)

	cache.Put("u1", catalog.RoleSecretaire, authz.EffectiveSet{})
	cache.Put("u2", catalog.RoleSecretaire, authz.EffectiveSet{})

	_, err := svc.AddPermission(context.Background(), AddPermissionInput{
		Role:     catalog.RoleSecretaire,
		Resource: catalog.ResourceStudents,
		Action:   catalog.ActionView,
		Scope:    catalog.ScopeAll,
	})
	require.NoError(t, err)

	_, ok := cache.Get("u1")
	require.False(t, ok)
	_, ok = cache.Get("u2")
	require.False(t, ok)
}

func TestGetRolePermissionsStats(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc, _ := newRoleService(t, db)

	require.NoError(t, db.Create(&models.User{Username: "a", Password: "x", Role: catalog.RoleComptable}).Error)
	require.NoError(t, db.Create(&models.User{Username: "b", Password: "x", Role: catalog.RoleComptable}).Error)

	_, err := svc.AddPermission(context.Background(), AddPermissionInput{
		Role:     catalog.RoleComptable,
		Resource: catalog.ResourceReports,
		Action:   catalog.ActionExport,
		Scope:    catalog.ScopeAll,
	})
	require.NoError(t, err)

	view, err := svc.GetRolePermissions(context.Background(), catalog.RoleComptable)
	require.NoError(t, err)
	require.Equal(t, catalog.RoleComptable, view.Role)
	require.Equal(t, len(view.Permissions), view.Stats.Total)
	require.Equal(t, 1, view.Stats.Manual)
	require.Equal(t, view.Stats.Total-1, view.Stats.Seeded)
	require.EqualValues(t, 2, view.AffectedUsers)
	require.Equal(t, 2, view.Stats.ByResource[catalog.ResourceReports])
}

func TestGetRolePermissionsUnknownRole(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, _ := newRoleService(t, db)

	_, err := svc.GetRolePermissions(context.Background(), catalog.Role("janitor"))
	require.ErrorIs(t, err, apperrors.ErrValidation)
}
