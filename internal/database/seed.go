package database

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/scolaris/scolaris/internal/catalog"
	"github.com/scolaris/scolaris/internal/models"
)

// seedGrant describes one baseline capability for a role.
type seedGrant struct {
	resource catalog.Resource
	actions  []catalog.Action
	scope    catalog.Scope
}

// baselineMatrix is the initial permission configuration installed at first
// start. Rows carry source=seeded so administrators can tell configuration
// apart from later manual grants.
var baselineMatrix = map[catalog.Role][]seedGrant{
	catalog.RoleAdminSysteme: {
		{catalog.ResourceUsers, []catalog.Action{catalog.ActionView, catalog.ActionCreate, catalog.ActionEdit, catalog.ActionDelete}, catalog.ScopeAll},
		{catalog.ResourcePermissions, []catalog.Action{catalog.ActionView, catalog.ActionEdit}, catalog.ScopeAll},
		{catalog.ResourceReports, []catalog.Action{catalog.ActionView, catalog.ActionExport}, catalog.ScopeAll},
	},
	catalog.RoleDirecteur: {
		{catalog.ResourceStudents, []catalog.Action{catalog.ActionView, catalog.ActionCreate, catalog.ActionEdit}, catalog.ScopeAll},
		{catalog.ResourceEnrollments, []catalog.Action{catalog.ActionView, catalog.ActionApprove}, catalog.ScopeAll},
		{catalog.ResourceClasses, []catalog.Action{catalog.ActionView, catalog.ActionCreate, catalog.ActionEdit}, catalog.ScopeAll},
		{catalog.ResourceGrades, []catalog.Action{catalog.ActionView, catalog.ActionApprove}, catalog.ScopeAll},
		{catalog.ResourceAttendance, []catalog.Action{catalog.ActionView}, catalog.ScopeAll},
		{catalog.ResourcePayments, []catalog.Action{catalog.ActionView}, catalog.ScopeAll},
		{catalog.ResourceExpenses, []catalog.Action{catalog.ActionView, catalog.ActionApprove}, catalog.ScopeAll},
		{catalog.ResourceSalaryReports, []catalog.Action{catalog.ActionView}, catalog.ScopeAll},
		{catalog.ResourceReports, []catalog.Action{catalog.ActionView, catalog.ActionExport}, catalog.ScopeAll},
	},
	catalog.RoleComptable: {
		{catalog.ResourcePayments, []catalog.Action{catalog.ActionView, catalog.ActionCreate, catalog.ActionEdit}, catalog.ScopeAll},
		{catalog.ResourceExpenses, []catalog.Action{catalog.ActionView, catalog.ActionCreate, catalog.ActionApprove}, catalog.ScopeAll},
		{catalog.ResourceSalaryReports, []catalog.Action{catalog.ActionView, catalog.ActionExport}, catalog.ScopeAll},
		{catalog.ResourceStudents, []catalog.Action{catalog.ActionView}, catalog.ScopeAll},
		{catalog.ResourceReports, []catalog.Action{catalog.ActionView}, catalog.ScopeAll},
	},
	catalog.RoleEnseignant: {
		{catalog.ResourceStudents, []catalog.Action{catalog.ActionView}, catalog.ScopeClass},
		{catalog.ResourceGrades, []catalog.Action{catalog.ActionView, catalog.ActionCreate, catalog.ActionEdit}, catalog.ScopeClass},
		{catalog.ResourceAttendance, []catalog.Action{catalog.ActionView, catalog.ActionCreate}, catalog.ScopeClass},
		{catalog.ResourceReports, []catalog.Action{catalog.ActionView}, catalog.ScopeOwn},
	},
	catalog.RoleSecretaire: {
		{catalog.ResourceStudents, []catalog.Action{catalog.ActionView, catalog.ActionCreate, catalog.ActionEdit}, catalog.ScopeAll},
		{catalog.ResourceEnrollments, []catalog.Action{catalog.ActionView, catalog.ActionCreate, catalog.ActionEdit}, catalog.ScopeAll},
		{catalog.ResourceClasses, []catalog.Action{catalog.ActionView}, catalog.ScopeAll},
		{catalog.ResourcePayments, []catalog.Action{catalog.ActionView}, catalog.ScopeAll},
	},
	catalog.RoleSurveillant: {
		{catalog.ResourceAttendance, []catalog.Action{catalog.ActionView, catalog.ActionCreate}, catalog.ScopeAll},
		{catalog.ResourceStudents, []catalog.Action{catalog.ActionView}, catalog.ScopeAll},
	},
}

// SeedData installs the baseline permission matrix. Inserts are keyed on the
// permission tuple, so re-running seeds never duplicates rows and never
// clobbers rows an administrator has since adjusted.
func SeedData(db *gorm.DB) error {
	if err := seedRole(db, catalog.RoleProprietaire, proprietaireGrants()); err != nil {
		return err
	}

	for _, role := range catalog.Roles() {
		grants, ok := baselineMatrix[role]
		if !ok {
			continue
		}
		if err := seedRole(db, role, grants); err != nil {
			return err
		}
	}

	return nil
}

// proprietaireGrants gives the owner role every capability in the catalog at
// full scope. The owner is a bootstrap role: it can never be locked out of
// permission administration.
func proprietaireGrants() []seedGrant {
	grants := make([]seedGrant, 0, len(catalog.Resources()))
	for _, resource := range catalog.Resources() {
		grants = append(grants, seedGrant{resource: resource, actions: catalog.Actions(), scope: catalog.ScopeAll})
	}
	return grants
}

func seedRole(db *gorm.DB, role catalog.Role, grants []seedGrant) error {
	for _, grant := range grants {
		for _, action := range grant.actions {
			record := models.RolePermission{
				Role:     role,
				Resource: grant.resource,
				Action:   action,
				Scope:    grant.scope,
				Source:   models.PermissionSourceSeeded,
			}

			err := db.Where(models.RolePermission{
				Role:     role,
				Resource: grant.resource,
				Action:   action,
				Scope:    grant.scope,
			}).Attrs(record).FirstOrCreate(&models.RolePermission{}).Error
			if err != nil {
				return fmt.Errorf("seed %s permission %s.%s.%s: %w", role, grant.resource, action, grant.scope, err)
			}
		}
	}
	return nil
}

// SeedBootstrapUser creates the initial owner account when no user exists
// yet. The password is bcrypt-hashed before storage.
func SeedBootstrapUser(db *gorm.DB, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return errors.New("bootstrap user requires username and password")
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash bootstrap password: %w", err)
	}

	user := models.User{
		Username: username,
		Password: string(hash),
		Role:     catalog.RoleProprietaire,
		IsActive: true,
	}
	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("create bootstrap user: %w", err)
	}

	return nil
}
