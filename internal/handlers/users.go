package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scolaris/scolaris/internal/authz"
	"github.com/scolaris/scolaris/internal/catalog"
	"github.com/scolaris/scolaris/internal/services"
	apperrors "github.com/scolaris/scolaris/pkg/errors"
	"github.com/scolaris/scolaris/pkg/response"
	"github.com/scolaris/scolaris/pkg/validator"
)

// UserPermissionHandler exposes the per-user permission surface: the composed
// permissions view, override administration, and point permission checks.
type UserPermissionHandler struct {
	svc     *services.OverrideService
	checker *authz.Checker
}

func NewUserPermissionHandler(svc *services.OverrideService, checker *authz.Checker) *UserPermissionHandler {
	return &UserPermissionHandler{svc: svc, checker: checker}
}

// GET /api/users/:id/permissions
func (h *UserPermissionHandler) GetUserPermissions(c *gin.Context) {
	view, err := h.svc.GetUserPermissions(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

type addOverrideRequest struct {
	Effect   string `json:"effect" validate:"required,oneof=grant deny"`
	Resource string `json:"resource" validate:"required"`
	Action   string `json:"action" validate:"required"`
	Scope    string `json:"scope" validate:"required"`
	Reason   string `json:"reason" validate:"required"`
}

// POST /api/users/:id/overrides
func (h *UserPermissionHandler) AddOverride(c *gin.Context) {
	var body addOverrideRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.NewValidation("Invalid request body"))
		return
	}
	if err := validator.ValidateStruct(body); err != nil {
		response.Error(c, apperrors.NewValidation(err.Error()))
		return
	}

	input := services.AddOverrideInput{
		UserID:    c.Param("id"),
		Resource:  catalog.Resource(body.Resource),
		Action:    catalog.Action(body.Action),
		Scope:     catalog.Scope(body.Scope),
		Reason:    body.Reason,
		GrantorID: actorID(c),
	}

	var (
		override interface{}
		err      error
	)
	if body.Effect == "grant" {
		override, err = h.svc.Grant(requestContext(c), input)
	} else {
		override, err = h.svc.Deny(requestContext(c), input)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, override)
}

// DELETE /api/overrides/:id
func (h *UserPermissionHandler) RemoveOverride(c *gin.Context) {
	if err := h.svc.Remove(requestContext(c), c.Param("id"), actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/users/:id/permissions/check?resource=&action=&scope=
func (h *UserPermissionHandler) CheckPermission(c *gin.Context) {
	resource := catalog.Resource(c.Query("resource"))
	action := catalog.Action(c.Query("action"))
	scope := catalog.Scope(c.Query("scope"))

	allowed, err := h.checker.HasPermission(requestContext(c), c.Param("id"), resource, action, scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"allowed":  allowed,
		"resource": resource,
		"action":   action,
		"scope":    scope,
	})
}
