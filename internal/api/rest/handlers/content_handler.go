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

// ContentHandler serves tier-filtered content reads and the access
// gate decision endpoint.
type ContentHandler struct {
	service service.ContentService
	log     *logger.Logger
}

// NewContentHandler creates the content handler.
func NewContentHandler(svc service.ContentService, log *logger.Logger) *ContentHandler {
	return &ContentHandler{service: svc, log: log}
}

// List handles GET /content. Members-only items simply do not appear
// for ineligible viewers.
func (h *ContentHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		h.log.Error("Failed to list content: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list content"})
		return
	}

	if items == nil {
		items = []domain.ContentItem{}
	}
	c.JSON(http.StatusOK, items)
}

// Get handles GET /content/:id.
func (h *ContentHandler) Get(c *gin.Context) {
	contentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid content ID format"})
		return
	}

	item, err := h.service.Get(c.Request.Context(), middleware.AccountID(c), contentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Content not found"})
			return
		}
		if errors.Is(err, domain.ErrForbidden) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Members-only content"})
			return
		}
		h.log.Error("Failed to get content: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get content"})
		return
	}

	c.JSON(http.StatusOK, item)
}

// Gate handles GET /content/gate. The decision is computed fresh on
// every call; entitlement can change between navigations via a
// concurrent settlement.
func (h *ContentHandler) Gate(c *gin.Context) {
	decision, err := h.service.Gate(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		h.log.Error("Failed to evaluate access gate: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to evaluate access gate"})
		return
	}

	c.JSON(http.StatusOK, decision)
}
