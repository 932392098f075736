package api

import (
	"github.com/gin-gonic/gin"

	"github.com/scolaris/scolaris/internal/authz"
	"github.com/scolaris/scolaris/internal/catalog"
	"github.com/scolaris/scolaris/internal/handlers"
	"github.com/scolaris/scolaris/internal/middleware"
)

func registerUserRoutes(api *gin.RouterGroup, handler *handlers.UserPermissionHandler, checker *authz.Checker) {
	view := middleware.RequirePermission(checker, catalog.ResourcePermissions, catalog.ActionView, catalog.ScopeAll)
	edit := middleware.RequirePermission(checker, catalog.ResourcePermissions, catalog.ActionEdit, catalog.ScopeAll)

	users := api.Group("/users")
	{
		users.GET("/:id/permissions", view, handler.GetUserPermissions)
		users.GET("/:id/permissions/check", view, handler.CheckPermission)
		users.POST("/:id/overrides", edit, handler.AddOverride)
	}

	api.DELETE("/overrides/:id", edit, handler.RemoveOverride)
}
