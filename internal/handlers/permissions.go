package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scolaris/scolaris/internal/catalog"
	"github.com/scolaris/scolaris/internal/services"
	apperrors "github.com/scolaris/scolaris/pkg/errors"
	"github.com/scolaris/scolaris/pkg/response"
	"github.com/scolaris/scolaris/pkg/validator"
)

// PermissionHandler exposes role permission administration over HTTP.
type PermissionHandler struct {
	svc *services.RolePermissionService
}

func NewPermissionHandler(svc *services.RolePermissionService) *PermissionHandler {
	return &PermissionHandler{svc: svc}
}

// GET /api/permissions/catalog
func (h *PermissionHandler) Catalog(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"roles":     catalog.Roles(),
		"resources": catalog.Resources(),
		"actions":   catalog.Actions(),
		"scopes":    catalog.Scopes(),
	})
}

// GET /api/permissions/roles/:role
func (h *PermissionHandler) GetRolePermissions(c *gin.Context) {
	view, err := h.svc.GetRolePermissions(requestContext(c), catalog.Role(c.Param("role")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

type addPermissionRequest struct {
	Resource string `json:"resource" validate:"required"`
	Action   string `json:"action" validate:"required"`
	Scope    string `json:"scope" validate:"required"`
}

// POST /api/permissions/roles/:role
func (h *PermissionHandler) AddPermission(c *gin.Context) {
	var body addPermissionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.NewValidation("Invalid request body"))
		return
	}
	if err := validator.ValidateStruct(body); err != nil {
		response.Error(c, apperrors.NewValidation(err.Error()))
		return
	}

	perm, err := h.svc.AddPermission(requestContext(c), services.AddPermissionInput{
		Role:     catalog.Role(c.Param("role")),
		Resource: catalog.Resource(body.Resource),
		Action:   catalog.Action(body.Action),
		Scope:    catalog.Scope(body.Scope),
		ActorID:  actorID(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, perm)
}

// PATCH /api/permissions/:id/scope
func (h *PermissionHandler) UpdateScope(c *gin.Context) {
	var body struct {
		Scope string `json:"scope" validate:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.NewValidation("Invalid request body"))
		return
	}

	perm, err := h.svc.UpdateScope(requestContext(c), c.Param("id"), catalog.Scope(body.Scope), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, perm)
}

// DELETE /api/permissions/:id
func (h *PermissionHandler) RemovePermission(c *gin.Context) {
	if err := h.svc.RemovePermission(requestContext(c), c.Param("id"), actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/permissions/roles/:role/copy
func (h *PermissionHandler) BulkCopy(c *gin.Context) {
	var body struct {
		TargetRole string `json:"target_role" validate:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.NewValidation("Invalid request body"))
		return
	}

	result, err := h.svc.BulkCopy(requestContext(c), catalog.Role(c.Param("role")), catalog.Role(body.TargetRole), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}
