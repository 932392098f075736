package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/scolaris/scolaris/internal/app"
	iauth "github.com/scolaris/scolaris/internal/auth"
	"github.com/scolaris/scolaris/internal/authz"
	"github.com/scolaris/scolaris/internal/cache"
	"github.com/scolaris/scolaris/internal/catalog"
	"github.com/scolaris/scolaris/internal/handlers"
	"github.com/scolaris/scolaris/internal/middleware"
	"github.com/scolaris/scolaris/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	effectiveCache := authz.NewEffectiveCache()
	checker, err := authz.NewChecker(db, effectiveCache)
	if err != nil {
		return nil, err
	}

	auditSvc, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	roleSvc, err := services.NewRolePermissionService(db, auditSvc, effectiveCache)
	if err != nil {
		return nil, err
	}
	overrideSvc, err := services.NewOverrideService(db, auditSvc, checker, effectiveCache)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	if cfg.RateLimit.Enabled {
		r.Use(middleware.RateLimit(newRateStore(db, cfg), cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health(db))
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))

	registerPermissionRoutes(api, handlers.NewPermissionHandler(roleSvc), checker)
	registerUserRoutes(api, handlers.NewUserPermissionHandler(overrideSvc, checker), checker)

	api.GET("/audit",
		middleware.RequirePermission(checker, catalog.ResourcePermissions, catalog.ActionView, catalog.ScopeAll),
		handlers.NewAuditHandler(auditSvc).List)

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func newRateStore(db *gorm.DB, cfg *app.Config) middleware.RateStore {
	if cfg.RateLimit.Store == "database" {
		return middleware.NewDatabaseRateStore(cache.NewDatabaseStore(db))
	}
	return middleware.NewMemoryRateStore()
}
