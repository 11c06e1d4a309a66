package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qualitrack/qualitrack/internal/permissions"
	"github.com/qualitrack/qualitrack/internal/services"
	apperrors "github.com/qualitrack/qualitrack/pkg/errors"
	"github.com/qualitrack/qualitrack/pkg/response"
)

type PermissionHandler struct {
	svc *services.PermissionService
}

type checkBatchRequest struct {
	Checks []permissions.CheckRequest `json:"checks" validate:"required,min=1,max=100,dive"`
}

type checkInstanceRequest struct {
	Resource string `json:"resource" validate:"required"`
	Action   string `json:"action" validate:"required"`
	OwnerID  *uint  `json:"owner_id"`
	TeamID   *uint  `json:"team_id"`
}

type bulkUpdateRequest struct {
	Updates []permissions.Update `json:"updates" validate:"required,min=1,max=500"`
}

type grantRequest struct {
	ResourceID uint              `json:"resource_id" validate:"required"`
	ActionID   uint              `json:"action_id" validate:"required"`
	Scope      permissions.Scope `json:"scope" validate:"omitempty,oneof=own team all"`
}

type revokeRequest struct {
	ResourceID uint `json:"resource_id" validate:"required"`
	ActionID   uint `json:"action_id" validate:"required"`
}

type invalidateRequest struct {
	UserIDs []uint `json:"user_ids"`
}

type myPermissionsResponse struct {
	UserID        uint                `json:"user_id"`
	RoleID        uint                `json:"role_id"`
	RoleName      string              `json:"role_name"`
	RoleHierarchy int                 `json:"role_hierarchy"`
	TeamID        *uint               `json:"team_id"`
	Permissions   []permissions.Grant `json:"permissions"`
}

func NewPermissionHandler(svc *services.PermissionService) (*PermissionHandler, error) {
	if svc == nil {
		return nil, errors.New("permission handler: service is required")
	}
	return &PermissionHandler{svc: svc}, nil
}

// GET /api/permissions/my
func (h *PermissionHandler) MyPermissions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	set, err := h.svc.Resolve(requestContext(c), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	if set == nil {
		// Authenticated but unable to act: deactivated user or role.
		response.Error(c, apperrors.ErrForbidden)
		return
	}

	grants := set.Grants
	if grants == nil {
		grants = []permissions.Grant{}
	}
	response.Success(c, http.StatusOK, myPermissionsResponse{
		UserID:        set.UserID,
		RoleID:        set.RoleID,
		RoleName:      set.RoleName,
		RoleHierarchy: set.RoleHierarchy,
		TeamID:        set.TeamID,
		Permissions:   grants,
	})
}

// GET /api/permissions/check?resource=&action=&scope=
func (h *PermissionHandler) Check(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	resource := strings.TrimSpace(c.Query("resource"))
	action := strings.TrimSpace(c.Query("action"))
	if resource == "" || action == "" {
		response.Error(c, apperrors.NewBadRequest("resource and action are required"))
		return
	}

	var required []permissions.Scope
	if raw := strings.TrimSpace(c.Query("scope")); raw != "" {
		scope, err := permissions.ParseScope(raw)
		if err != nil {
			response.Error(c, apperrors.NewBadRequest("scope must be one of: own, team, all"))
			return
		}
		required = append(required, scope)
	}

	allowed, err := h.svc.Check(requestContext(c), userID, resource, action, required...)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"allowed": allowed})
}

// POST /api/permissions/check
func (h *PermissionHandler) CheckBatch(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var body checkBatchRequest
	if !bindAndValidate(c, &body) {
		return
	}

	results, err := h.svc.CheckMany(requestContext(c), userID, body.Checks)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, results)
}

// POST /api/permissions/check/instance
func (h *PermissionHandler) CheckInstance(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var body checkInstanceRequest
	if !bindAndValidate(c, &body) {
		return
	}

	allowed, err := h.svc.CheckInstance(requestContext(c), userID, body.Resource, body.Action, permissions.Target{
		OwnerID: body.OwnerID,
		TeamID:  body.TeamID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"allowed": allowed})
}

// GET /api/permissions/matrix
func (h *PermissionHandler) Matrix(c *gin.Context) {
	matrix, err := h.svc.GetMatrix(requestContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, matrix)
}

// PUT /api/permissions/roles/:id
func (h *PermissionHandler) UpdateRolePermissions(c *gin.Context) {
	roleID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var body bulkUpdateRequest
	if !bindAndValidate(c, &body) {
		return
	}

	result, err := h.svc.UpdatePermissions(requestContext(c), roleID, body.Updates)
	if err != nil {
		writeError(c, err)
		return
	}
	if result.Errors == nil {
		result.Errors = []permissions.UpdateError{}
	}
	response.Success(c, http.StatusOK, result)
}

// POST /api/permissions/roles/:id/grants
func (h *PermissionHandler) Grant(c *gin.Context) {
	roleID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var body grantRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.svc.GrantPermission(requestContext(c), roleID, body.ResourceID, body.ActionID, body.Scope); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"granted": true})
}

// DELETE /api/permissions/roles/:id/grants
func (h *PermissionHandler) Revoke(c *gin.Context) {
	roleID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var body revokeRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.svc.RevokePermission(requestContext(c), roleID, body.ResourceID, body.ActionID); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// POST /api/permissions/cache/invalidate
func (h *PermissionHandler) InvalidateCache(c *gin.Context) {
	var body invalidateRequest
	if c.Request.ContentLength != 0 {
		if !bindAndValidate(c, &body) {
			return
		}
	}

	h.svc.Invalidate(body.UserIDs...)
	response.Success(c, http.StatusOK, gin.H{"invalidated": len(body.UserIDs), "all": len(body.UserIDs) == 0})
}
