package api

import (
	"github.com/gin-gonic/gin"

	"github.com/scolaris/scolaris/internal/authz"
	"github.com/scolaris/scolaris/internal/catalog"
	"github.com/scolaris/scolaris/internal/handlers"
	"github.com/scolaris/scolaris/internal/middleware"
)

func registerPermissionRoutes(api *gin.RouterGroup, handler *handlers.PermissionHandler, checker *authz.Checker) {
	view := middleware.RequirePermission(checker, catalog.ResourcePermissions, catalog.ActionView, catalog.ScopeAll)
	edit := middleware.RequirePermission(checker, catalog.ResourcePermissions, catalog.ActionEdit, catalog.ScopeAll)

	perms := api.Group("/permissions")
	{
		perms.GET("/catalog", view, handler.Catalog)
		perms.GET("/roles/:role", view, handler.GetRolePermissions)
		perms.POST("/roles/:role", edit, handler.AddPermission)
		perms.POST("/roles/:role/copy", edit, handler.BulkCopy)
		perms.PATCH("/:id/scope", edit, handler.UpdateScope)
		perms.DELETE("/:id", edit, handler.RemovePermission)
	}
}
