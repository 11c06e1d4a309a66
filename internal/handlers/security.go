package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qualitrack/qualitrack/internal/security"
	"github.com/qualitrack/qualitrack/pkg/response"
)

type SecurityHandler struct {
	audit *security.AuditService
}

func NewSecurityHandler(audit *security.AuditService) (*SecurityHandler, error) {
	if audit == nil {
		return nil, errors.New("security handler: audit service is required")
	}
	return &SecurityHandler{audit: audit}, nil
}

// GET /api/security/audit
func (h *SecurityHandler) Audit(c *gin.Context) {
	response.Success(c, http.StatusOK, h.audit.Run(requestContext(c)))
}
