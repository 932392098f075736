package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/scolaris/scolaris/internal/authz"
	"github.com/scolaris/scolaris/internal/catalog"
	"github.com/scolaris/scolaris/internal/models"
	apperrors "github.com/scolaris/scolaris/pkg/errors"
	"github.com/scolaris/scolaris/pkg/metrics"
)

// RolePermissionService manages the baseline permission set of each role.
type RolePermissionService struct {
	db    *gorm.DB
	audit *AuditService
	cache *authz.EffectiveCache
}

// NewRolePermissionService constructs a RolePermissionService.
// The cache is optional; when present every role-level mutation broadcasts an
// invalidation for the affected role.
func NewRolePermissionService(db *gorm.DB, audit *AuditService, cache *authz.EffectiveCache) (*RolePermissionService, error) {
	if db == nil {
		return nil, errors.New("role permission service: db is required")
	}
	return &RolePermissionService{db: db, audit: audit, cache: cache}, nil
}

// AddPermissionInput describes the payload accepted by AddPermission.
type AddPermissionInput struct {
	Role     catalog.Role
	Resource catalog.Resource
	Action   catalog.Action
	Scope    catalog.Scope
	ActorID  string
}

// RoleStats aggregates provenance and per-resource counts for a role.
type RoleStats struct {
	Total      int                      `json:"total"`
	Seeded     int                      `json:"seeded"`
	Manual     int                      `json:"manual"`
	ByResource map[catalog.Resource]int `json:"by_resource"`
}

// RolePermissionsView is the read model returned by GetRolePermissions.
type RolePermissionsView struct {
	Role          catalog.Role            `json:"role"`
	Permissions   []models.RolePermission `json:"permissions"`
	Stats         RoleStats               `json:"stats"`
	AffectedUsers int64                   `json:"affected_users"`
}

// AddPermission inserts a new baseline tuple for the role. The composite
// unique index performs the compare-and-insert: of two concurrent identical
// adds exactly one succeeds, the other observes ErrDuplicatePermission.
func (s *RolePermissionService) AddPermission(ctx context.Context, input AddPermissionInput) (*models.RolePermission, error) {
	ctx = ensureContext(ctx)

	if err := catalog.ValidateRole(input.Role); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}
	if err := catalog.ValidateTuple(input.Resource, input.Action, input.Scope); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	perm := &models.RolePermission{
		Role:        input.Role,
		Resource:    input.Resource,
		Action:      input.Action,
		Scope:       input.Scope,
		Source:      models.PermissionSourceManual,
		CreatedByID: actorRef(input.ActorID),
	}

	if err := s.db.WithContext(ctx).Create(perm).Error; err != nil {
		if isUniqueConstraintError(err) {
			metrics.PermissionMutations.WithLabelValues("add_permission", "duplicate").Inc()
			return nil, apperrors.ErrDuplicatePermission.WithMessage(
				fmt.Sprintf("role %s already holds (%s, %s, %s)", input.Role, input.Resource, input.Action, input.Scope))
		}
		return nil, fmt.Errorf("role permission service: add permission: %w", err)
	}

	s.invalidateRole(input.Role)
	metrics.PermissionMutations.WithLabelValues("add_permission", "success").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		ActorID:  actorRef(input.ActorID),
		Action:   "permission.add",
		Resource: perm.ID,
		Result:   "success",
		Metadata: map[string]any{
			"role":     perm.Role,
			"resource": perm.Resource,
			"action":   perm.Action,
			"scope":    perm.Scope,
		},
	})

	return perm, nil
}

// UpdateScope changes the scope of an existing permission in place. Role,
// resource and action never change; replacing them is a remove followed by an
// add so provenance stays truthful.
func (s *RolePermissionService) UpdateScope(ctx context.Context, id string, newScope catalog.Scope, actorID string) (*models.RolePermission, error) {
	ctx = ensureContext(ctx)

	if !newScope.Valid() {
		return nil, apperrors.NewValidation(fmt.Sprintf("catalog: unknown scope %q", newScope))
	}

	var perm models.RolePermission
	if err := s.db.WithContext(ctx).First(&perm, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("role permission service: load permission: %w", err)
	}

	if perm.Scope == newScope {
		return &perm, nil
	}

	updates := map[string]any{
		"scope":         newScope,
		"updated_by_id": actorRef(actorID),
	}
	if err := s.db.WithContext(ctx).Model(&perm).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrDuplicatePermission.WithMessage(
				fmt.Sprintf("role %s already holds (%s, %s, %s)", perm.Role, perm.Resource, perm.Action, newScope))
		}
		return nil, fmt.Errorf("role permission service: update scope: %w", err)
	}

	s.invalidateRole(perm.Role)
	metrics.PermissionMutations.WithLabelValues("update_scope", "success").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		ActorID:  actorRef(actorID),
		Action:   "permission.update_scope",
		Resource: perm.ID,
		Result:   "success",
		Metadata: map[string]any{
			"role":      perm.Role,
			"resource":  perm.Resource,
			"action":    perm.Action,
			"new_scope": newScope,
		},
	})

	perm.Scope = newScope
	perm.UpdatedByID = actorRef(actorID)
	return &perm, nil
}

// RemovePermission deletes a baseline tuple. Every user holding the role
// loses the capability as soon as their cached set is invalidated.
func (s *RolePermissionService) RemovePermission(ctx context.Context, id, actorID string) error {
	ctx = ensureContext(ctx)

	var perm models.RolePermission
	if err := s.db.WithContext(ctx).First(&perm, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("role permission service: load permission: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&perm).Error; err != nil {
		return fmt.Errorf("role permission service: delete permission: %w", err)
	}

	s.invalidateRole(perm.Role)
	metrics.PermissionMutations.WithLabelValues("remove_permission", "success").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		ActorID:  actorRef(actorID),
		Action:   "permission.remove",
		Resource: perm.ID,
		Result:   "success",
		Metadata: map[string]any{
			"role":     perm.Role,
			"resource": perm.Resource,
			"action":   perm.Action,
			"scope":    perm.Scope,
		},
	})

	return nil
}

// GetRolePermissions returns the role's baseline with provenance statistics
// and the number of users a role-level change would affect.
func (s *RolePermissionService) GetRolePermissions(ctx context.Context, role catalog.Role) (*RolePermissionsView, error) {
	ctx = ensureContext(ctx)

	if err := catalog.ValidateRole(role); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	var perms []models.RolePermission
	if err := s.db.WithContext(ctx).
		Where("role = ?", role).
		Order("resource ASC, action ASC, scope ASC").
		Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("role permission service: list permissions: %w", err)
	}

	stats := RoleStats{
		Total:      len(perms),
		ByResource: make(map[catalog.Resource]int),
	}
	for _, perm := range perms {
		if perm.Source == models.PermissionSourceSeeded {
			stats.Seeded++
		} else {
			stats.Manual++
		}
		stats.ByResource[perm.Resource]++
	}

	affected, err := s.AffectedUsers(ctx, role)
	if err != nil {
		return nil, err
	}

	return &RolePermissionsView{
		Role:          role,
		Permissions:   perms,
		Stats:         stats,
		AffectedUsers: affected,
	}, nil
}

// AffectedUsers counts users currently assigned the role. Shown to
// administrators before role-level mutations.
func (s *RolePermissionService) AffectedUsers(ctx context.Context, role catalog.Role) (int64, error) {
	ctx = ensureContext(ctx)

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("role = ?", role).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("role permission service: count users: %w", err)
	}
	return count, nil
}

func (s *RolePermissionService) invalidateRole(role catalog.Role) {
	if s.cache != nil {
		s.cache.InvalidateRole(role)
	}
}
