package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ticketwatch/backend/internal/middleware"
	"github.com/ticketwatch/backend/internal/models"
	"github.com/ticketwatch/backend/internal/services/affiliate"
	"gorm.io/gorm"
)

// AffiliateHandler covers partner enrollment and earnings stats
type AffiliateHandler struct {
	db *gorm.DB
}

// NewAffiliateHandler creates a new affiliate handler
func NewAffiliateHandler(db *gorm.DB) *AffiliateHandler {
	return &AffiliateHandler{db: db}
}

// Enroll upgrades the caller to the affiliate role and assigns their
// referral code
func (h *AffiliateHandler) Enroll(c *gin.Context) {
	profileID, ok := middleware.ProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
		return
	}

	var profile models.Profile
	if err := h.db.First(&profile, "id = ?", profileID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}

	if err := affiliate.EnsureAffiliate(c.Request.Context(), h.db, &profile); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong, try again"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"role":          profile.Role,
		"referral_code": profile.ReferralCode,
	})
}

// Stats returns the caller's commission totals by status
func (h *AffiliateHandler) Stats(c *gin.Context) {
	profileID, ok := middleware.ProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
		return
	}

	type row struct {
		Status models.CommissionStatus
		Total  float64
		Count  int64
	}
	var rows []row
	err := h.db.Model(&models.Commission{}).
		Select("status, SUM(amount) AS total, COUNT(*) AS count").
		Where("partner_id = ?", profileID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong, try again"})
		return
	}

	stats := gin.H{
		"pending":   0.0,
		"requested": 0.0,
		"paid":      0.0,
		"count":     int64(0),
	}
	for _, r := range rows {
		stats[string(r.Status)] = affiliate.RoundAmount(r.Total)
		stats["count"] = stats["count"].(int64) + r.Count
	}

	c.JSON(http.StatusOK, stats)
}
