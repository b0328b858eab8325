package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ticketwatch/backend/internal/middleware"
	"github.com/ticketwatch/backend/internal/models"
	"github.com/ticketwatch/backend/internal/services/affiliate"
	"gorm.io/gorm"
)

// PayoutHandler exposes payout requests to partners and the mark-paid
// transition to admins
type PayoutHandler struct {
	db         *gorm.DB
	aggregator *affiliate.PayoutAggregator
}

// NewPayoutHandler creates a new payout handler
func NewPayoutHandler(db *gorm.DB, settings affiliate.Settings) *PayoutHandler {
	return &PayoutHandler{
		db:         db,
		aggregator: affiliate.NewPayoutAggregator(db, settings),
	}
}

// RequestPayout batches the caller's pending commissions into a payout
// request
func (h *PayoutHandler) RequestPayout(c *gin.Context) {
	partnerID, ok := middleware.ProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
		return
	}

	var req struct {
		Method      string `json:"method" binding:"required"`
		PayPalEmail string `json:"paypal_email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	destination := ""
	switch req.Method {
	case models.PayoutMethodPayPal:
		if req.PayPalEmail == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "PayPal email required for PayPal payouts"})
			return
		}
		destination = req.PayPalEmail
	case models.PayoutMethodStripeConnect:
		// Destination is the connected account, resolved externally.
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported payout method"})
		return
	}

	payout, err := h.aggregator.RequestPayout(c.Request.Context(), partnerID, req.Method, destination)
	if err != nil {
		if errors.Is(err, affiliate.ErrBelowMinimum) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Pending commissions are below the payout minimum"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong, try again"})
		return
	}

	c.JSON(http.StatusCreated, payout)
}

// MarkPaid transitions a payout to paid after the external transfer
// completed. Admin only.
func (h *PayoutHandler) MarkPaid(c *gin.Context) {
	payoutID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payout id"})
		return
	}

	payout, err := h.aggregator.MarkPaid(c.Request.Context(), payoutID)
	if err != nil {
		if errors.Is(err, affiliate.ErrPayoutInconsistent) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, payout)
}

// ListPayouts returns the caller's payout history
func (h *PayoutHandler) ListPayouts(c *gin.Context) {
	partnerID, ok := middleware.ProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
		return
	}

	var payouts []models.Payout
	if err := h.db.Where("partner_id = ?", partnerID).
		Order("requested_at DESC").
		Find(&payouts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong, try again"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payouts": payouts})
}
