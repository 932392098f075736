package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/scolaris/scolaris/internal/authz"
	"github.com/scolaris/scolaris/internal/catalog"
	"github.com/scolaris/scolaris/internal/models"
	apperrors "github.com/scolaris/scolaris/pkg/errors"
	"github.com/scolaris/scolaris/pkg/metrics"
)

// OverrideService manages per-user permission exceptions.
type OverrideService struct {
	db      *gorm.DB
	audit   *AuditService
	checker *authz.Checker
	cache   *authz.EffectiveCache
}

// NewOverrideService constructs an OverrideService. The checker resolves the
// effective view returned by GetUserPermissions; the cache receives a point
// invalidation for the affected user after every mutation.
func NewOverrideService(db *gorm.DB, audit *AuditService, checker *authz.Checker, cache *authz.EffectiveCache) (*OverrideService, error) {
	if db == nil {
		return nil, errors.New("override service: db is required")
	}
	if checker == nil {
		return nil, errors.New("override service: checker is required")
	}
	return &OverrideService{db: db, audit: audit, checker: checker, cache: cache}, nil
}

// AddOverrideInput describes the payload accepted by Grant and Deny.
type AddOverrideInput struct {
	UserID    string
	Resource  catalog.Resource
	Action    catalog.Action
	Scope     catalog.Scope
	Reason    string
	GrantorID string
}

// UserPermissionsView is the read model returned by GetUserPermissions.
type UserPermissionsView struct {
	User            *models.User                `json:"user"`
	RolePermissions []models.RolePermission     `json:"role_permissions"`
	Overrides       []models.PermissionOverride `json:"overrides"`
	Effective       []authz.Entry               `json:"effective_permissions"`
}

// Grant records a grant override: the user gains the tuple even when the
// role baseline lacks it.
func (s *OverrideService) Grant(ctx context.Context, input AddOverrideInput) (*models.PermissionOverride, error) {
	return s.addOverride(ctx, input, true)
}

// Deny records a deny override: the user loses the tuple even when the role
// baseline grants it.
func (s *OverrideService) Deny(ctx context.Context, input AddOverrideInput) (*models.PermissionOverride, error) {
	return s.addOverride(ctx, input, false)
}

// addOverride validates and inserts an override. Overrides are never
// upserted: an existing row for the same tuple surfaces as
// ErrDuplicateOverride and must be removed first, keeping the audit chain
// unambiguous. The composite unique index makes the insert a compare-and-
// insert under concurrency.
func (s *OverrideService) addOverride(ctx context.Context, input AddOverrideInput, granted bool) (*models.PermissionOverride, error) {
	ctx = ensureContext(ctx)

	if err := catalog.ValidateTuple(input.Resource, input.Action, input.Scope); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, apperrors.NewValidation("override reason is required")
	}

	user, err := s.loadUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	override := &models.PermissionOverride{
		UserID:    user.ID,
		Resource:  input.Resource,
		Action:    input.Action,
		Scope:     input.Scope,
		Granted:   granted,
		Reason:    reason,
		GrantorID: actorRef(input.GrantorID),
	}

	if err := s.db.WithContext(ctx).Create(override).Error; err != nil {
		if isUniqueConstraintError(err) {
			metrics.PermissionMutations.WithLabelValues("add_override", "duplicate").Inc()
			return nil, apperrors.ErrDuplicateOverride.WithMessage(
				fmt.Sprintf("user already has an override for (%s, %s, %s)", input.Resource, input.Action, input.Scope))
		}
		return nil, fmt.Errorf("override service: add override: %w", err)
	}

	s.invalidateUser(user.ID)
	metrics.PermissionMutations.WithLabelValues("add_override", "success").Inc()

	effect := "deny"
	if granted {
		effect = "grant"
	}
	recordAudit(s.audit, ctx, AuditEntry{
		ActorID:  actorRef(input.GrantorID),
		Action:   "override." + effect,
		Resource: override.ID,
		Result:   "success",
		Metadata: map[string]any{
			"user_id":  user.ID,
			"resource": override.Resource,
			"action":   override.Action,
			"scope":    override.Scope,
			"reason":   reason,
		},
	})

	return override, nil
}

// Remove deletes an override, returning the user to the role-derived
// baseline for that tuple.
func (s *OverrideService) Remove(ctx context.Context, id, actorID string) error {
	ctx = ensureContext(ctx)

	var override models.PermissionOverride
	if err := s.db.WithContext(ctx).First(&override, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("override service: load override: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&override).Error; err != nil {
		return fmt.Errorf("override service: delete override: %w", err)
	}

	s.invalidateUser(override.UserID)
	metrics.PermissionMutations.WithLabelValues("remove_override", "success").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		ActorID:  actorRef(actorID),
		Action:   "override.remove",
		Resource: override.ID,
		Result:   "success",
		Metadata: map[string]any{
			"user_id":  override.UserID,
			"resource": override.Resource,
			"action":   override.Action,
			"scope":    override.Scope,
			"granted":  override.Granted,
		},
	})

	return nil
}

// ListForUser returns the user's overrides ordered by creation time.
func (s *OverrideService) ListForUser(ctx context.Context, userID string) ([]models.PermissionOverride, error) {
	ctx = ensureContext(ctx)

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var overrides []models.PermissionOverride
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Order("created_at ASC").
		Find(&overrides).Error; err != nil {
		return nil, fmt.Errorf("override service: list overrides: %w", err)
	}
	return overrides, nil
}

// OverrideStats reports a user's grant and deny counts for audit dashboards.
type OverrideStats struct {
	Grants  int64 `json:"grants"`
	Denials int64 `json:"denials"`
}

// StatsForUser computes grant/deny counts by scanning the override store.
func (s *OverrideService) StatsForUser(ctx context.Context, userID string) (*OverrideStats, error) {
	ctx = ensureContext(ctx)

	var stats OverrideStats
	if err := s.db.WithContext(ctx).
		Model(&models.PermissionOverride{}).
		Where("user_id = ? AND granted = ?", userID, true).
		Count(&stats.Grants).Error; err != nil {
		return nil, fmt.Errorf("override service: count grants: %w", err)
	}
	if err := s.db.WithContext(ctx).
		Model(&models.PermissionOverride{}).
		Where("user_id = ? AND granted = ?", userID, false).
		Count(&stats.Denials).Error; err != nil {
		return nil, fmt.Errorf("override service: count denials: %w", err)
	}
	return &stats, nil
}

// GetUserPermissions assembles the full permission view for a user: role
// baseline, overrides, and the resolved effective set.
func (s *OverrideService) GetUserPermissions(ctx context.Context, userID string) (*UserPermissionsView, error) {
	ctx = ensureContext(ctx)

	set, user, err := s.checker.EffectiveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var rolePerms []models.RolePermission
	if err := s.db.WithContext(ctx).
		Where("role = ?", user.Role).
		Order("resource ASC, action ASC, scope ASC").
		Find(&rolePerms).Error; err != nil {
		return nil, fmt.Errorf("override service: load role permissions: %w", err)
	}

	var overrides []models.PermissionOverride
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Order("created_at ASC").
		Find(&overrides).Error; err != nil {
		return nil, fmt.Errorf("override service: load overrides: %w", err)
	}

	return &UserPermissionsView{
		User:            user,
		RolePermissions: rolePerms,
		Overrides:       overrides,
		Effective:       set.Entries(),
	}, nil
}

func (s *OverrideService) loadUser(ctx context.Context, userID string) (*models.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewValidation("user id is required")
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authz.ErrUserNotFound
		}
		return nil, fmt.Errorf("override service: load user: %w", err)
	}
	return &user, nil
}

func (s *OverrideService) invalidateUser(userID string) {
	if s.cache != nil {
		s.cache.InvalidateUser(userID)
	}
}
