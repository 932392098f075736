package database

import (
	"gorm.io/gorm"

	"github.com/scolaris/scolaris/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.RolePermission{},
		&models.PermissionOverride{},
		&models.AuditLog{},
		&models.CacheEntry{},
	)
}
