package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ticketwatch/backend/internal/models"
	"github.com/ticketwatch/backend/internal/services/affiliate"
	"gorm.io/gorm"
)

// AdminHandler exposes the manual repair tooling. Every route behind
// it requires the admin role, verified server-side.
type AdminHandler struct {
	db       *gorm.DB
	backfill *affiliate.BackfillJob
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(db *gorm.DB, sessions affiliate.SessionLister) *AdminHandler {
	return &AdminHandler{
		db:       db,
		backfill: affiliate.NewBackfillJob(db, sessions),
	}
}

// RunBackfill triggers the attribution recovery job and returns its
// per-subscription log trail
func (h *AdminHandler) RunBackfill(c *gin.Context) {
	report, err := h.backfill.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

// AnonymizeProfile scrubs a profile's personal data while keeping the
// row alive for commission history. Profiles with commission history
// are never deleted.
func (h *AdminHandler) AnonymizeProfile(c *gin.Context) {
	profileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid profile id"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		var profile models.Profile
		if err := tx.First(&profile, "id = ?", profileID).Error; err != nil {
			return err
		}

		return tx.Model(&profile).Updates(map[string]interface{}{
			"email":        fmt.Sprintf("anonymized+%s@ticketwatch.invalid", profile.ID),
			"paypal_email": nil,
			"first_name":   "",
			"last_name":    "",
			"street":       "",
			"house_number": "",
			"zip":          "",
			"city":         "",
		}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "anonymized"})
}
