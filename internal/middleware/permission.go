package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/scolaris/scolaris/internal/authz"
	"github.com/scolaris/scolaris/internal/catalog"
	apperrors "github.com/scolaris/scolaris/pkg/errors"
	"github.com/scolaris/scolaris/pkg/metrics"
	"github.com/scolaris/scolaris/pkg/response"
)

// RequirePermission guards a route behind a capability tuple. Bootstrap roles
// always pass checks on the permissions resource so that administrators can
// never lock themselves out of permission management.
func RequirePermission(checker *authz.Checker, resource catalog.Resource, action catalog.Action, scope catalog.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(CtxUserIDKey)
		if userID == "" {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		set, user, err := checker.EffectiveForUser(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, authz.ErrUserNotFound) {
				response.Error(c, apperrors.ErrUnauthorized)
			} else {
				response.Error(c, err)
			}
			c.Abort()
			return
		}

		if resource == catalog.ResourcePermissions && catalog.IsBootstrapRole(user.Role) {
			metrics.PermissionChecks.WithLabelValues(string(resource), string(action), "allowed").Inc()
			c.Next()
			return
		}

		allowed := set.Has(resource, action, scope)
		result := "denied"
		if allowed {
			result = "allowed"
		}
		metrics.PermissionChecks.WithLabelValues(string(resource), string(action), result).Inc()

		if !allowed {
			response.Error(c, apperrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}
