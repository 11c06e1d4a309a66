package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qualitrack/qualitrack/internal/services"
	apperrors "github.com/qualitrack/qualitrack/pkg/errors"
	"github.com/qualitrack/qualitrack/pkg/response"
)

type AuditHandler struct {
	svc *services.PermissionService
}

func NewAuditHandler(svc *services.PermissionService) (*AuditHandler, error) {
	if svc == nil {
		return nil, errors.New("audit handler: service is required")
	}
	return &AuditHandler{svc: svc}, nil
}

// GET /api/permissions/audit
func (h *AuditHandler) List(c *gin.Context) {
	filters, err := auditFiltersFromQuery(c)
	if err != nil {
		response.Error(c, apperrors.NewBadRequest(err.Error()))
		return
	}

	entries, err := h.svc.ListAudit(requestContext(c), filters)
	if err != nil {
		writeError(c, err)
		return
	}

	limit := filters.Limit
	switch {
	case limit <= 0:
		limit = services.DefaultAuditLimit
	case limit > services.MaxAuditLimit:
		limit = services.MaxAuditLimit
	}
	response.SuccessWithMeta(c, http.StatusOK, entries, &response.Meta{Limit: limit, Count: len(entries)})
}

func auditFiltersFromQuery(c *gin.Context) (services.AuditFilters, error) {
	filters := services.AuditFilters{
		ResourceName: strings.TrimSpace(c.Query("resource")),
		Action:       strings.TrimSpace(c.Query("action")),
		Limit:        parseIntQuery(c, "limit", services.DefaultAuditLimit),
	}

	var err error
	if filters.ActorUserID, err = parseUintQuery(c, "actor_user_id"); err != nil {
		return filters, err
	}
	if filters.RoleID, err = parseUintQuery(c, "role_id"); err != nil {
		return filters, err
	}
	if filters.PermissionID, err = parseUintQuery(c, "permission_id"); err != nil {
		return filters, err
	}
	if filters.Since, err = parseTimeQuery(c, "since"); err != nil {
		return filters, err
	}
	if filters.Until, err = parseTimeQuery(c, "until"); err != nil {
		return filters, err
	}
	return filters, nil
}
