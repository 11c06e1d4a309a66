package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qualitrack/qualitrack/internal/services"
	"github.com/qualitrack/qualitrack/pkg/response"
)

type UserHandler struct {
	service *services.UserService
}

type assignRoleRequest struct {
	RoleID uint `json:"role_id" validate:"required"`
}

type userStatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func NewUserHandler(svc *services.UserService) (*UserHandler, error) {
	if svc == nil {
		return nil, errors.New("user handler: service is required")
	}
	return &UserHandler{service: svc}, nil
}

// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	user, err := h.service.GetByID(requestContext(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var body services.CreateUserInput
	if !bindAndValidate(c, &body) {
		return
	}
	body.Username = strings.TrimSpace(body.Username)
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))

	user, err := h.service.Create(requestContext(c), body)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, user)
}

// PATCH /api/users/:id/role
func (h *UserHandler) AssignRole(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var body assignRoleRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.service.AssignRole(requestContext(c), id, body.RoleID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// PATCH /api/users/:id/status
func (h *UserHandler) SetStatus(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var body userStatusRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.service.SetActive(requestContext(c), id, *body.Active); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id, "active": *body.Active})
}
