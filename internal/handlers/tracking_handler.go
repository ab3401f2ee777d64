package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/getyourshare/backend/internal/apperrors"
	"github.com/getyourshare/backend/internal/services/tracking"
)

// TrackingHandler serves the public redirect endpoint and link stats
type TrackingHandler struct {
	tracker *tracking.TrackingService
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(tracker *tracking.TrackingService) *TrackingHandler {
	return &TrackingHandler{tracker: tracker}
}

// Redirect handles GET /r/:code: records the click, sets the attribution
// cookie and 302s to the destination. Unknown or disabled codes get a 404
// and no redirect.
func (h *TrackingHandler) Redirect(c *gin.Context) {
	shortCode := c.Param("code")

	result, err := h.tracker.RecordClick(c.Request.Context(), shortCode, tracking.ClickMeta{
		VisitorIP: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referrer:  c.Request.Referer(),
	})
	if err != nil {
		if apperrors.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
			return
		}
		respondError(c, err)
		return
	}

	maxAge := int(h.tracker.Codec().Window().Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tracking.CookieName, result.CookieValue, maxAge, "/", "", false, true)

	c.Redirect(http.StatusFound, result.DestinationURL)
}

// GetLinkStats handles GET /api/links/:id/stats
func (h *TrackingHandler) GetLinkStats(c *gin.Context) {
	linkID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid link ID"})
		return
	}

	stats, err := h.tracker.GetLinkStats(linkID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
