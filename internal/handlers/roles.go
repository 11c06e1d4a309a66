package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qualitrack/qualitrack/internal/services"
	"github.com/qualitrack/qualitrack/pkg/response"
)

type roleStatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// GET /api/roles
func (h *PermissionHandler) ListRoles(c *gin.Context) {
	roles, err := h.svc.ListRoles(requestContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, roles, &response.Meta{Count: len(roles)})
}

// POST /api/roles
func (h *PermissionHandler) CreateRole(c *gin.Context) {
	var body services.CreateRoleInput
	if !bindAndValidate(c, &body) {
		return
	}

	role, err := h.svc.CreateRole(requestContext(c), body)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, role)
}

// PATCH /api/roles/:id/status
func (h *PermissionHandler) SetRoleStatus(c *gin.Context) {
	roleID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var body roleStatusRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.svc.SetRoleActive(requestContext(c), roleID, *body.Active); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": roleID, "active": *body.Active})
}
