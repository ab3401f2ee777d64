package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/getyourshare/backend/internal/handlers"
	"github.com/getyourshare/backend/internal/middleware"
)

// RegisterRoutes configures all API routes
func RegisterRoutes(
	router *gin.Engine,
	trackingHandler *handlers.TrackingHandler,
	linkHandler *handlers.LinkHandler,
	leadHandler *handlers.LeadHandler,
	depositHandler *handlers.DepositHandler,
	campaignHandler *handlers.CampaignHandler,
	redirectLimiter *middleware.RateLimiter,
) {
	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public redirect endpoint; no auth, rate limited per IP
	router.GET("/r/:code", redirectLimiter.Middleware(), trackingHandler.Redirect)

	// Lead creation is called from merchant sites carrying the visitor's
	// attribution cookie, so it sits outside the management auth group.
	router.POST("/api/leads", leadHandler.CreateLead)

	// Management API
	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware())
	{
		api.POST("/links", linkHandler.CreateLink)
		api.GET("/links", linkHandler.ListLinks)
		api.GET("/links/:id", linkHandler.GetLink)
		api.GET("/links/:id/stats", trackingHandler.GetLinkStats)
		api.DELETE("/links/:id", linkHandler.DisableLink)

		api.GET("/leads", leadHandler.ListLeads)
		api.GET("/leads/:id", leadHandler.GetLead)
		api.POST("/leads/:id/validate", leadHandler.ValidateLead)
		api.GET("/leads/:id/validations", leadHandler.GetValidationHistory)

		api.POST("/deposits/fund", depositHandler.FundDeposit)
		api.GET("/deposits/:id", depositHandler.GetDeposit)
		api.GET("/deposits/:id/stats", depositHandler.GetDepositStats)
		api.GET("/deposits/:id/entries", depositHandler.GetDepositEntries)

		api.GET("/campaigns/:id/settings", campaignHandler.GetSettings)
		api.PUT("/campaigns/:id/settings", campaignHandler.UpsertSettings)
	}

	// Admin endpoints
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		admin.POST("/campaigns/:id/resume", campaignHandler.ResumeCampaign)
	}
}
