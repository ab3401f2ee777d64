package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/getyourshare/backend/internal/services/links"
	"github.com/getyourshare/backend/internal/services/tracking"
)

// LinkHandler handles tracking link management requests
type LinkHandler struct {
	links   *links.LinkService
	tracker *tracking.TrackingService
}

// NewLinkHandler creates a new link handler
func NewLinkHandler(linkService *links.LinkService, tracker *tracking.TrackingService) *LinkHandler {
	return &LinkHandler{links: linkService, tracker: tracker}
}

// CreateLink creates a new tracking link
func (h *LinkHandler) CreateLink(c *gin.Context) {
	var input struct {
		InfluencerID   uuid.UUID  `json:"influencer_id" binding:"required"`
		ProductID      uuid.UUID  `json:"product_id" binding:"required"`
		CampaignID     *uuid.UUID `json:"campaign_id"`
		DestinationURL string     `json:"destination_url" binding:"required,url"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.links.CreateLink(links.CreateLinkInput{
		InfluencerID:   input.InfluencerID,
		ProductID:      input.ProductID,
		CampaignID:     input.CampaignID,
		DestinationURL: input.DestinationURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetLink gets a tracking link by ID
func (h *LinkHandler) GetLink(c *gin.Context) {
	linkID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid link ID"})
		return
	}

	link, err := h.links.GetLink(linkID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, link)
}

// ListLinks lists a promoter's tracking links
func (h *LinkHandler) ListLinks(c *gin.Context) {
	influencerID, err := uuid.Parse(c.Query("influencer_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid influencer ID"})
		return
	}

	list, err := h.links.ListLinks(influencerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"links": list})
}

// DisableLink administratively disables a tracking link
func (h *LinkHandler) DisableLink(c *gin.Context) {
	linkID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid link ID"})
		return
	}

	link, err := h.links.GetLink(linkID)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.links.DisableLink(linkID); err != nil {
		respondError(c, err)
		return
	}

	h.tracker.InvalidateLink(c.Request.Context(), link.ShortCode)

	c.JSON(http.StatusOK, gin.H{"status": "disabled"})
}
