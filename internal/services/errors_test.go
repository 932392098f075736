package services

import (
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIsUniqueConstraintError(t *testing.T) {
	require.False(t, isUniqueConstraintError(nil))

	require.True(t, isUniqueConstraintError(gorm.ErrDuplicatedKey))
	require.True(t, isUniqueConstraintError(&pgconn.PgError{Code: "23505"}))
	require.True(t, isUniqueConstraintError(&mysql.MySQLError{Number: 1062}))
	require.True(t, isUniqueConstraintError(errors.New("UNIQUE constraint failed: role_permissions.role")))

	// Other constraint classes must not be reported as duplicates.
	require.False(t, isUniqueConstraintError(errors.New("NOT NULL constraint failed: role_permissions.role")))
	require.False(t, isUniqueConstraintError(errors.New("CHECK constraint failed: scope")))
	require.False(t, isUniqueConstraintError(errors.New("FOREIGN KEY constraint failed")))
}
