package models

import "github.com/scolaris/scolaris/internal/catalog"

// PermissionOverride is a per-user exception adjusting the role baseline.
// Granted=true adds the tuple even when the role lacks it; granted=false
// removes it even when the role grants it. Rows are immutable once created;
// a change is modelled as delete followed by a fresh create so the audit
// chain stays unambiguous.
type PermissionOverride struct {
	BaseModel

	UserID   string           `gorm:"type:uuid;not null;uniqueIndex:idx_override_tuple,priority:1;index" json:"user_id"`
	User     *User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Resource catalog.Resource `gorm:"type:varchar(64);not null;uniqueIndex:idx_override_tuple,priority:2" json:"resource"`
	Action   catalog.Action   `gorm:"type:varchar(32);not null;uniqueIndex:idx_override_tuple,priority:3" json:"action"`
	Scope    catalog.Scope    `gorm:"type:varchar(32);not null;uniqueIndex:idx_override_tuple,priority:4" json:"scope"`

	Granted bool   `gorm:"not null" json:"granted"`
	Reason  string `gorm:"not null" json:"reason"`

	GrantorID *string `gorm:"type:uuid" json:"grantor_id"`
}

// TableName overrides the default table name for GORM.
func (PermissionOverride) TableName() string {
	return "permission_overrides"
}
