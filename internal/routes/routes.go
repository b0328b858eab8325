package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/ticketwatch/backend/internal/cache"
	"github.com/ticketwatch/backend/internal/config"
	"github.com/ticketwatch/backend/internal/handlers"
	"github.com/ticketwatch/backend/internal/middleware"
	"github.com/ticketwatch/backend/internal/services/affiliate"
	"gorm.io/gorm"
)

// RegisterRoutes configures all API routes
func RegisterRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, sessions affiliate.SessionLister, deduper *cache.EventDeduper) {
	rateLimiter := middleware.NewRateLimiter(20, 40)
	router.Use(rateLimiter.Middleware())

	webhookHandler := handlers.NewWebhookHandler(db, cfg, deduper)
	payoutHandler := handlers.NewPayoutHandler(db, cfg.Affiliate)
	affiliateHandler := handlers.NewAffiliateHandler(db)
	adminHandler := handlers.NewAdminHandler(db, sessions)

	// Webhooks authenticate by signature, not by bearer token
	router.POST("/api/webhooks/payment", webhookHandler.HandlePaymentEvent)

	affiliateGroup := router.Group("/api/affiliate")
	affiliateGroup.Use(middleware.AuthMiddleware())
	{
		affiliateGroup.POST("/enroll", affiliateHandler.Enroll)
		affiliateGroup.GET("/stats", affiliateHandler.Stats)
		affiliateGroup.POST("/payouts", payoutHandler.RequestPayout)
		affiliateGroup.GET("/payouts", payoutHandler.ListPayouts)
	}

	adminGroup := router.Group("/api/admin")
	adminGroup.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware(db))
	{
		adminGroup.POST("/backfill", adminHandler.RunBackfill)
		adminGroup.POST("/payouts/:id/paid", payoutHandler.MarkPaid)
		adminGroup.POST("/profiles/:id/anonymize", adminHandler.AnonymizeProfile)
	}
}
