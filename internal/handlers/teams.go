package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qualitrack/qualitrack/internal/services"
	"github.com/qualitrack/qualitrack/pkg/response"
)

type TeamHandler struct {
	svc *services.TeamService
}

type teamMemberRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}

func NewTeamHandler(svc *services.TeamService) (*TeamHandler, error) {
	if svc == nil {
		return nil, errors.New("team handler: service is required")
	}
	return &TeamHandler{svc: svc}, nil
}

// GET /api/teams
func (h *TeamHandler) List(c *gin.Context) {
	teams, err := h.svc.List(requestContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, teams, &response.Meta{Count: len(teams)})
}

// POST /api/teams
func (h *TeamHandler) Create(c *gin.Context) {
	var body services.CreateTeamInput
	if !bindAndValidate(c, &body) {
		return
	}

	team, err := h.svc.Create(requestContext(c), body)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, team)
}

// POST /api/teams/:id/members
func (h *TeamHandler) AddMember(c *gin.Context) {
	teamID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var body teamMemberRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.svc.AddMember(requestContext(c), teamID, body.UserID); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"team_id": teamID, "user_id": body.UserID})
}

// DELETE /api/teams/:id/members/:userID
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	teamID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}

	if err := h.svc.RemoveMember(requestContext(c), teamID, userID); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}
