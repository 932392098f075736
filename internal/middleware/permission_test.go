package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/scolaris/scolaris/internal/authz"
	"github.com/scolaris/scolaris/internal/catalog"
	"github.com/scolaris/scolaris/internal/database/testutil"
	"github.com/scolaris/scolaris/internal/models"
)

func guardedRouter(t *testing.T, db *gorm.DB, userID string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	checker, err := authz.NewChecker(db, authz.NewEffectiveCache())
	require.NoError(t, err)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set(CtxUserIDKey, userID)
		}
	})
	r.GET("/admin",
		RequirePermission(checker, catalog.ResourcePermissions, catalog.ActionEdit, catalog.ScopeAll),
		func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRequirePermissionWithoutAuth(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	r := guardedRouter(t, db, "")

	require.Equal(t, http.StatusUnauthorized, get(r, "/admin").Code)
}

func TestRequirePermissionForbidden(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	user := models.User{Username: "paul", Password: "x", Role: catalog.RoleEnseignant}
	require.NoError(t, db.Create(&user).Error)

	r := guardedRouter(t, db, user.ID)
	require.Equal(t, http.StatusForbidden, get(r, "/admin").Code)
}

func TestRequirePermissionAllowed(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	user := models.User{Username: "tech", Password: "x", Role: catalog.RoleAdminSysteme}
	require.NoError(t, db.Create(&user).Error)

	r := guardedRouter(t, db, user.ID)
	require.Equal(t, http.StatusOK, get(r, "/admin").Code)
}

func TestRequirePermissionBootstrapBypass(t *testing.T) {
	// A bootstrap role passes permission-administration checks even when the
	// baseline rows were deleted, so administrators can never be locked out.
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	user := models.User{Username: "owner", Password: "x", Role: catalog.RoleProprietaire}
	require.NoError(t, db.Create(&user).Error)

	require.NoError(t, db.Where("role = ?", catalog.RoleProprietaire).Delete(&models.RolePermission{}).Error)

	r := guardedRouter(t, db, user.ID)
	require.Equal(t, http.StatusOK, get(r, "/admin").Code)
}

func TestRequirePermissionUnknownUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	r := guardedRouter(t, db, "ghost")

	require.Equal(t, http.StatusUnauthorized, get(r, "/admin").Code)
}
