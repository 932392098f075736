package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/scolaris/scolaris/internal/authz"
	"github.com/scolaris/scolaris/internal/catalog"
	"github.com/scolaris/scolaris/internal/models"
	apperrors "github.com/scolaris/scolaris/pkg/errors"
	"github.com/scolaris/scolaris/pkg/metrics"
)

// BulkCopySummary carries the per-class counts of a bulk copy run.
type BulkCopySummary struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// BulkCopyError pairs a tuple with the reason it could not be copied.
type BulkCopyError struct {
	Tuple  authz.Tuple `json:"tuple"`
	Reason string      `json:"reason"`
}

// BulkCopyResult is the caller-visible outcome of a bulk copy. Partial
// success is the defined terminal state, never an error.
type BulkCopyResult struct {
	Summary BulkCopySummary         `json:"summary"`
	Added   []models.RolePermission `json:"added"`
	Skipped []authz.Tuple           `json:"skipped"`
	Errors  []BulkCopyError         `json:"errors"`
}

// BulkCopy copies every baseline tuple of sourceRole onto targetRole. Items
// are processed independently with no cross-item transaction: a tuple the
// target already holds is classified skipped, a tuple failing catalog
// validation is classified as an error item, and the rest are added with
// source=manual attributed to the acting administrator.
func (s *RolePermissionService) BulkCopy(ctx context.Context, sourceRole, targetRole catalog.Role, actorID string) (*BulkCopyResult, error) {
	ctx = ensureContext(ctx)

	if err := catalog.ValidateRole(sourceRole); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}
	if err := catalog.ValidateRole(targetRole); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}
	if sourceRole == targetRole {
		return nil, apperrors.NewValidation("source and target role must differ")
	}

	var sourcePerms []models.RolePermission
	if err := s.db.WithContext(ctx).
		Where("role = ?", sourceRole).
		Order("resource ASC, action ASC, scope ASC").
		Find(&sourcePerms).Error; err != nil {
		return nil, fmt.Errorf("role permission service: load source permissions: %w", err)
	}

	result := &BulkCopyResult{
		Added:   make([]models.RolePermission, 0, len(sourcePerms)),
		Skipped: make([]authz.Tuple, 0),
		Errors:  make([]BulkCopyError, 0),
	}

	for _, src := range sourcePerms {
		tuple := authz.Tuple{Resource: src.Resource, Action: src.Action, Scope: src.Scope}

		added, err := s.AddPermission(ctx, AddPermissionInput{
			Role:     targetRole,
			Resource: src.Resource,
			Action:   src.Action,
			Scope:    src.Scope,
			ActorID:  actorID,
		})
		switch {
		case err == nil:
			result.Added = append(result.Added, *added)
		case errors.Is(err, apperrors.ErrDuplicatePermission):
			result.Skipped = append(result.Skipped, tuple)
		case errors.Is(err, apperrors.ErrValidation):
			// Should not happen for well-formed source data, but a malformed
			// row must not abort the remaining items.
			result.Errors = append(result.Errors, BulkCopyError{Tuple: tuple, Reason: err.Error()})
		default:
			result.Errors = append(result.Errors, BulkCopyError{Tuple: tuple, Reason: err.Error()})
		}
	}

	result.Summary = BulkCopySummary{
		Added:   len(result.Added),
		Skipped: len(result.Skipped),
		Errors:  len(result.Errors),
	}

	metrics.PermissionMutations.WithLabelValues("bulk_copy", "success").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		ActorID:  actorRef(actorID),
		Action:   "permission.bulk_copy",
		Resource: string(targetRole),
		Result:   "success",
		Metadata: map[string]any{
			"source_role": sourceRole,
			"target_role": targetRole,
			"added":       result.Summary.Added,
			"skipped":     result.Summary.Skipped,
			"errors":      result.Summary.Errors,
		},
	})

	return result, nil
}
