package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scolaris/scolaris/internal/catalog"
)

// User describes a staff account. Every user carries exactly one role; the
// engine derives the rest of their capabilities from role permissions and
// per-user overrides.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Password string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	Role     catalog.Role `gorm:"type:varchar(32);not null;index" json:"role"`
	IsActive bool         `gorm:"default:true" json:"is_active"`

	Overrides []PermissionOverride `gorm:"foreignKey:UserID" json:"overrides,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
