package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/getyourshare/backend/internal/services/campaigns"
)

// CampaignHandler handles campaign settings requests
type CampaignHandler struct {
	campaigns *campaigns.CampaignService
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignSvc *campaigns.CampaignService) *CampaignHandler {
	return &CampaignHandler{campaigns: campaignSvc}
}

// GetSettings gets the commission settings for a campaign
func (h *CampaignHandler) GetSettings(c *gin.Context) {
	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid campaign ID"})
		return
	}

	settings, err := h.campaigns.GetSettings(campaignID)
	if err != nil {
		respondError(c, err)
		return
	}
	if settings == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "campaign settings not found"})
		return
	}

	c.JSON(http.StatusOK, settings)
}

// UpsertSettings creates or updates campaign commission settings
func (h *CampaignHandler) UpsertSettings(c *gin.Context) {
	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid campaign ID"})
		return
	}

	var input struct {
		CommissionThreshold float64 `json:"commission_threshold"`
		PercentageRate      float64 `json:"percentage_rate"`
		FixedAmount         float64 `json:"fixed_amount"`
		AutoStopOnDepletion bool    `json:"auto_stop_on_depletion"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings, err := h.campaigns.UpsertSettings(campaigns.UpsertSettingsInput{
		CampaignID:          campaignID,
		CommissionThreshold: input.CommissionThreshold,
		PercentageRate:      input.PercentageRate,
		FixedAmount:         input.FixedAmount,
		AutoStopOnDepletion: input.AutoStopOnDepletion,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

// ResumeCampaign reactivates a paused campaign
func (h *CampaignHandler) ResumeCampaign(c *gin.Context) {
	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid campaign ID"})
		return
	}

	if err := h.campaigns.Resume(campaignID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "active"})
}
