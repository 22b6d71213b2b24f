package handlers

import (
	"errors"
	"net/http"

	"github.com/ankhbayar/entitlement-service/internal/api/rest/middleware"
	"github.com/ankhbayar/entitlement-service/internal/domain"
	"github.com/ankhbayar/entitlement-service/internal/service"
	"github.com/ankhbayar/entitlement-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

// PurchaseHandler serves the purchase flow: open an invoice, poll its
// settlement, and accept the gateway's settlement callback.
type PurchaseHandler struct {
	service service.PaymentService
	log     *logger.Logger
}

// NewPurchaseHandler creates the purchase handler.
func NewPurchaseHandler(svc service.PaymentService, log *logger.Logger) *PurchaseHandler {
	return &PurchaseHandler{service: svc, log: log}
}

// Open handles POST /purchase/open.
func (h *PurchaseHandler) Open(c *gin.Context) {
	accountID := middleware.AccountID(c)

	result, err := h.service.Open(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, domain.ErrGatewayUnavailable) {
			// Nothing was persisted; the caller can simply retry.
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payment provider is unavailable, please try again"})
			return
		}
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return
		}
		h.log.Error("Failed to open purchase: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open purchase"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invoice_id": result.Record.InvoiceID,
		"qr_image":   result.Record.QRImage,
		"qr_text":    result.Record.QRText,
		"urls":       result.PayerApps,
	})
}

// Check handles POST /purchase/check: one settlement check per call.
// The client polls this endpoint on an interval; a transport failure
// against the gateway is reported as still pending so normal network
// flakiness never alarms the user mid-payment.
func (h *PurchaseHandler) Check(c *gin.Context) {
	var req domain.CheckPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.service.Settle(c.Request.Context(), req.InvoiceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// An id the ledger never created is a hard 404, never
			// silently treated as unpaid.
			c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
			return
		}
		if errors.Is(err, domain.ErrGatewayUnavailable) {
			h.log.Warn("Settlement check failed against gateway, reporting pending: %v", err)
			c.JSON(http.StatusOK, gin.H{"status": domain.PaymentStatusPending})
			return
		}
		h.log.Error("Failed to check purchase: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check purchase"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          res.Status,
		"already_settled": res.AlreadySettled,
	})
}

// Callback handles POST /purchase/callback, the URL handed to the
// gateway at invoice creation. It funnels into the same idempotent
// settle path as client polls, so a duplicate or racing callback is
// harmless. Always answers 200 so the provider stops redelivering.
func (h *PurchaseHandler) Callback(c *gin.Context) {
	invoiceID := c.Query("invoice_id")
	if invoiceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invoice_id is required"})
		return
	}

	res, err := h.service.Settle(c.Request.Context(), invoiceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
			return
		}
		// The reconciler or a client poll will pick it up later.
		h.log.Warn("Callback settlement failed for invoice %s: %v", invoiceID, err)
		c.JSON(http.StatusOK, gin.H{"status": domain.PaymentStatusPending})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": res.Status})
}
