package handlers

import (
	"errors"
	"net/http"

	"github.com/ankhbayar/entitlement-service/internal/api/rest/middleware"
	"github.com/ankhbayar/entitlement-service/internal/domain"
	"github.com/ankhbayar/entitlement-service/internal/service"
	"github.com/ankhbayar/entitlement-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EntitlementHandler serves the entitlement status endpoint and the
// privileged admin mutations.
type EntitlementHandler struct {
	service service.EntitlementService
	log     *logger.Logger
}

// NewEntitlementHandler creates the entitlement handler.
func NewEntitlementHandler(svc service.EntitlementService, log *logger.Logger) *EntitlementHandler {
	return &EntitlementHandler{service: svc, log: log}
}

// Status handles GET /entitlement/status. Anonymous callers get an
// empty, not-entitled snapshot rather than an error.
func (h *EntitlementHandler) Status(c *gin.Context) {
	accountID := middleware.AccountID(c)
	if accountID == uuid.Nil {
		c.JSON(http.StatusOK, domain.EntitlementStatus{})
		return
	}

	snap, err := h.service.Status(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return
		}
		h.log.Error("Failed to get entitlement status: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get entitlement status"})
		return
	}

	c.JSON(http.StatusOK, snap)
}

// AdminPatch handles PATCH /admin/accounts/:id. The caller names the
// verb, but the service re-validates it against server-side truth:
// grant on a currently entitled account and extend without a base are
// both rejected rather than silently reinterpreted, since the caller's
// view of current status may be stale at the moment of the call. Admin
// failures carry the precise rejection reason; the caller is trusted.
func (h *EntitlementHandler) AdminPatch(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid account ID format"})
		return
	}

	var req domain.AdminActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var snap domain.EntitlementStatus
	switch req.Action {
	case domain.AdminActionGrant:
		snap, err = h.service.Grant(c.Request.Context(), accountID, req.Days)
	case domain.AdminActionExtend:
		snap, err = h.service.Extend(c.Request.Context(), accountID, req.Days)
	case domain.AdminActionRevoke:
		snap, err = h.service.Revoke(c.Request.Context(), accountID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown action"})
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		case errors.Is(err, domain.ErrNoActiveEntitlement):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Account has no active entitlement to extend, use grant"})
		case errors.Is(err, domain.ErrAlreadyEntitled):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Account is currently entitled, use extend"})
		case errors.Is(err, domain.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Days must be a positive number"})
		default:
			h.log.Error("Admin action %s failed for account %s: %v", req.Action, accountID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply admin action"})
		}
		return
	}

	c.JSON(http.StatusOK, snap)
}
