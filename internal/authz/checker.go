package authz

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/scolaris/scolaris/internal/catalog"
	"github.com/scolaris/scolaris/internal/models"
	apperrors "github.com/scolaris/scolaris/pkg/errors"
	"github.com/scolaris/scolaris/pkg/metrics"
)

// ErrUserNotFound indicates the checked user does not exist.
var ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)

// Checker resolves effective permission sets from the backing stores and
// answers the hot-path question "may user U perform (resource, action,
// scope)?". Results are cached per user; services invalidate through the
// shared EffectiveCache after every mutation.
type Checker struct {
	db    *gorm.DB
	cache *EffectiveCache
}

// NewChecker constructs a permission checker backed by the provided database.
// The cache is optional; without one every check recomputes from storage.
func NewChecker(db *gorm.DB, cache *EffectiveCache) (*Checker, error) {
	if db == nil {
		return nil, errors.New("authz checker: db is required")
	}
	return &Checker{db: db, cache: cache}, nil
}

// Cache exposes the shared effective-set cache for mutation-side invalidation.
func (c *Checker) Cache() *EffectiveCache {
	return c.cache
}

// HasPermission reports whether the user holds the capability under scope
// dominance, resolving role baseline and overrides as needed.
func (c *Checker) HasPermission(ctx context.Context, userID string, resource catalog.Resource, action catalog.Action, scope catalog.Scope) (bool, error) {
	if err := catalog.ValidateTuple(resource, action, scope); err != nil {
		metrics.PermissionChecks.WithLabelValues(string(resource), string(action), "error").Inc()
		return false, apperrors.NewValidation(err.Error())
	}

	set, _, err := c.effective(ctx, userID)
	if err != nil {
		metrics.PermissionChecks.WithLabelValues(string(resource), string(action), "error").Inc()
		return false, err
	}

	allowed := set.Has(resource, action, scope)
	result := "denied"
	if allowed {
		result = "allowed"
	}
	metrics.PermissionChecks.WithLabelValues(string(resource), string(action), result).Inc()
	return allowed, nil
}

// EffectiveForUser returns the resolved, provenance-tagged effective set
// together with the loaded user record.
func (c *Checker) EffectiveForUser(ctx context.Context, userID string) (EffectiveSet, *models.User, error) {
	user, err := c.loadUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	if set, ok := c.cachedSet(user.ID); ok {
		return set, user, nil
	}

	set, err := c.resolve(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return set, user, nil
}

func (c *Checker) effective(ctx context.Context, userID string) (EffectiveSet, *models.User, error) {
	if set, ok := c.cachedSet(userID); ok {
		return set, nil, nil
	}

	user, err := c.loadUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	set, err := c.resolve(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return set, user, nil
}

func (c *Checker) cachedSet(userID string) (EffectiveSet, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Get(userID)
}

func (c *Checker) loadUser(ctx context.Context, userID string) (*models.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("authz checker: user id is required")
	}

	var user models.User
	if err := c.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("authz checker: load user: %w", err)
	}
	return &user, nil
}

func (c *Checker) resolve(ctx context.Context, user *models.User) (EffectiveSet, error) {
	var rolePerms []models.RolePermission
	if err := c.db.WithContext(ctx).
		Where("role = ?", user.Role).
		Find(&rolePerms).Error; err != nil {
		return nil, fmt.Errorf("authz checker: load role permissions: %w", err)
	}

	var overrides []models.PermissionOverride
	if err := c.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Find(&overrides).Error; err != nil {
		return nil, fmt.Errorf("authz checker: load overrides: %w", err)
	}

	set := ComputeEffective(rolePerms, overrides)
	if c.cache != nil {
		c.cache.Put(user.ID, user.Role, set)
	}
	return set, nil
}
