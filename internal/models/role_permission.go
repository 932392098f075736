package models

import "github.com/scolaris/scolaris/internal/catalog"

// Provenance of a role permission row.
const (
	PermissionSourceSeeded = "seeded"
	PermissionSourceManual = "manual"
)

// RolePermission is a baseline capability tuple attached to a role.
// The key tuple (role, resource, action, scope) is unique across the store;
// role, resource and action are immutable once created, only the scope may
// be updated in place.
type RolePermission struct {
	BaseModel

	Role     catalog.Role     `gorm:"type:varchar(32);not null;uniqueIndex:idx_role_permission_tuple,priority:1;index" json:"role"`
	Resource catalog.Resource `gorm:"type:varchar(64);not null;uniqueIndex:idx_role_permission_tuple,priority:2" json:"resource"`
	Action   catalog.Action   `gorm:"type:varchar(32);not null;uniqueIndex:idx_role_permission_tuple,priority:3" json:"action"`
	Scope    catalog.Scope    `gorm:"type:varchar(32);not null;uniqueIndex:idx_role_permission_tuple,priority:4" json:"scope"`

	Source string `gorm:"type:varchar(16);not null;default:manual" json:"source"`

	CreatedByID *string `gorm:"type:uuid" json:"created_by_id"`
	UpdatedByID *string `gorm:"type:uuid" json:"updated_by_id"`
}

// TableName overrides the default table name for GORM.
func (RolePermission) TableName() string {
	return "role_permissions"
}
