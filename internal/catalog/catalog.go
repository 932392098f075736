package catalog

import "fmt"

// Role identifies a fixed job-function category assigned to staff users.
type Role string

// Resource names a domain object category that actions apply to.
type Resource string

// Action is an operation verb applicable to a resource.
type Action string

// Scope qualifies how broadly an action applies to a resource.
type Scope string

const (
	RoleProprietaire Role = "proprietaire"
	RoleAdminSysteme Role = "admin_systeme"
	RoleDirecteur    Role = "directeur"
	RoleComptable    Role = "comptable"
	RoleEnseignant   Role = "enseignant"
	RoleSecretaire   Role = "secretaire"
	RoleSurveillant  Role = "surveillant"
)

const (
	ResourceStudents      Resource = "students"
	ResourceEnrollments   Resource = "enrollments"
	ResourcePayments      Resource = "payments"
	ResourceExpenses      Resource = "expenses"
	ResourceGrades        Resource = "grades"
	ResourceAttendance    Resource = "attendance"
	ResourceSalaryReports Resource = "salary_reports"
	ResourceReports       Resource = "reports"
	ResourceUsers         Resource = "users"
	ResourcePermissions   Resource = "permissions"
	ResourceClasses       Resource = "classes"
)

const (
	ActionView    Action = "view"
	ActionCreate  Action = "create"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionApprove Action = "approve"
	ActionExport  Action = "export"
)

const (
	// ScopeAll is the unique top element of the scope ordering.
	ScopeAll   Scope = "all"
	ScopeOwn   Scope = "own"
	ScopeClass Scope = "class"
)

var roles = map[Role]struct{}{
	RoleProprietaire: {},
	RoleAdminSysteme: {},
	RoleDirecteur:    {},
	RoleComptable:    {},
	RoleEnseignant:   {},
	RoleSecretaire:   {},
	RoleSurveillant:  {},
}

var resources = map[Resource]struct{}{
	ResourceStudents:      {},
	ResourceEnrollments:   {},
	ResourcePayments:      {},
	ResourceExpenses:      {},
	ResourceGrades:        {},
	ResourceAttendance:    {},
	ResourceSalaryReports: {},
	ResourceReports:       {},
	ResourceUsers:         {},
	ResourcePermissions:   {},
	ResourceClasses:       {},
}

var actions = map[Action]struct{}{
	ActionView:    {},
	ActionCreate:  {},
	ActionEdit:    {},
	ActionDelete:  {},
	ActionApprove: {},
	ActionExport:  {},
}

var scopes = map[Scope]struct{}{
	ScopeAll:   {},
	ScopeOwn:   {},
	ScopeClass: {},
}

// Valid reports whether the role belongs to the closed catalog.
func (r Role) Valid() bool {
	_, ok := roles[r]
	return ok
}

// Valid reports whether the resource belongs to the closed catalog.
func (r Resource) Valid() bool {
	_, ok := resources[r]
	return ok
}

// Valid reports whether the action belongs to the closed catalog.
func (a Action) Valid() bool {
	_, ok := actions[a]
	return ok
}

// Valid reports whether the scope belongs to the closed catalog.
func (s Scope) Valid() bool {
	_, ok := scopes[s]
	return ok
}

// Covers reports whether a stored scope satisfies a requested scope.
// "all" covers every scope for the same resource/action pair; every other
// scope covers only itself. Richer orderings belong here and nowhere else.
func (s Scope) Covers(requested Scope) bool {
	if s == ScopeAll {
		return true
	}
	return s == requested
}

// IsBootstrapRole reports whether the role must always retain permission
// administration capability. Guards use this to avoid locking every
// administrator out of the permission endpoints.
func IsBootstrapRole(r Role) bool {
	return r == RoleProprietaire || r == RoleAdminSysteme
}

// FieldError describes a tuple field that failed catalog validation.
type FieldError struct {
	Field string
	Value string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("catalog: unknown %s %q", e.Field, e.Value)
}

// ValidateTuple verifies every component of a permission tuple against the
// closed catalog, returning a FieldError naming the first offending field.
func ValidateTuple(resource Resource, action Action, scope Scope) error {
	if !resource.Valid() {
		return &FieldError{Field: "resource", Value: string(resource)}
	}
	if !action.Valid() {
		return &FieldError{Field: "action", Value: string(action)}
	}
	if !scope.Valid() {
		return &FieldError{Field: "scope", Value: string(scope)}
	}
	return nil
}

// ValidateRole verifies a role identifier against the closed catalog.
func ValidateRole(role Role) error {
	if !role.Valid() {
		return &FieldError{Field: "role", Value: string(role)}
	}
	return nil
}

// Roles returns the closed role set in a stable order.
func Roles() []Role {
	return []Role{
		RoleProprietaire,
		RoleAdminSysteme,
		RoleDirecteur,
		RoleComptable,
		RoleEnseignant,
		RoleSecretaire,
		RoleSurveillant,
	}
}

// Resources returns the closed resource set in a stable order.
func Resources() []Resource {
	return []Resource{
		ResourceStudents,
		ResourceEnrollments,
		ResourcePayments,
		ResourceExpenses,
		ResourceGrades,
		ResourceAttendance,
		ResourceSalaryReports,
		ResourceReports,
		ResourceUsers,
		ResourcePermissions,
		ResourceClasses,
	}
}

// Actions returns the closed action set in a stable order.
func Actions() []Action {
	return []Action{ActionView, ActionCreate, ActionEdit, ActionDelete, ActionApprove, ActionExport}
}

// Scopes returns the closed scope set in a stable order.
func Scopes() []Scope {
	return []Scope{ScopeAll, ScopeOwn, ScopeClass}
}
