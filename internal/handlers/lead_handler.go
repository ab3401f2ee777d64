package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/getyourshare/backend/internal/models"
	"github.com/getyourshare/backend/internal/services/leads"
	"github.com/getyourshare/backend/internal/services/tracking"
)

// LeadHandler handles lead lifecycle requests
type LeadHandler struct {
	leads   *leads.LeadService
	tracker *tracking.TrackingService
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leadService *leads.LeadService, tracker *tracking.TrackingService) *LeadHandler {
	return &LeadHandler{leads: leadService, tracker: tracker}
}

// CreateLead creates a lead from a conversion event. The attribution claim
// is read from the visitor's cookie when present; an absent or expired
// claim simply produces an unattributed lead.
func (h *LeadHandler) CreateLead(c *gin.Context) {
	var input struct {
		CampaignID     uuid.UUID   `json:"campaign_id" binding:"required"`
		MerchantID     uuid.UUID   `json:"merchant_id" binding:"required"`
		PromoterID     *uuid.UUID  `json:"promoter_id"`
		SalesRepID     *uuid.UUID  `json:"sales_rep_id"`
		EstimatedValue float64     `json:"estimated_value" binding:"required"`
		CustomerData   models.JSON `json:"customer_data"`
		Source         string      `json:"source"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var claim *tracking.AttributionClaim
	if cookieValue, err := c.Cookie(tracking.CookieName); err == nil {
		claim = h.tracker.ReadAttribution(cookieValue)
	}

	lead, err := h.leads.CreateLead(leads.CreateLeadInput{
		CampaignID:     input.CampaignID,
		MerchantID:     input.MerchantID,
		PromoterID:     input.PromoterID,
		SalesRepID:     input.SalesRepID,
		EstimatedValue: input.EstimatedValue,
		CustomerData:   input.CustomerData,
		Source:         input.Source,
		Attribution:    claim,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, lead)
}

// ValidateLead transitions a pending lead and reports the threshold outcome
func (h *LeadHandler) ValidateLead(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lead ID"})
		return
	}

	var input struct {
		Status          models.LeadStatus `json:"status" binding:"required"`
		QualityScore    *int              `json:"quality_score"`
		Feedback        string            `json:"feedback"`
		RejectionReason string            `json:"rejection_reason"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	changedBy, _ := uuid.Parse(c.GetString("user_id"))

	result, err := h.leads.ValidateLead(c.Request.Context(), leads.ValidateLeadInput{
		LeadID:          leadID,
		NewStatus:       input.Status,
		ChangedBy:       changedBy,
		QualityScore:    input.QualityScore,
		Feedback:        input.Feedback,
		RejectionReason: input.RejectionReason,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"lead":     result.Lead,
		"alert":    result.Threshold.Alert,
		"depleted": result.Threshold.Depleted,
	})
}

// GetLead gets a lead by ID
func (h *LeadHandler) GetLead(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lead ID"})
		return
	}

	lead, err := h.leads.GetLead(leadID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, lead)
}

// ListLeads lists a merchant's leads with optional status filter
func (h *LeadHandler) ListLeads(c *gin.Context) {
	merchantID, err := uuid.Parse(c.Query("merchant_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid merchant ID"})
		return
	}

	var status *models.LeadStatus
	if s := c.Query("status"); s != "" {
		st := models.LeadStatus(s)
		status = &st
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	list, total, err := h.leads.ListLeads(merchantID, status, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leads": list,
		"pagination": gin.H{
			"total":     total,
			"page":      page,
			"page_size": pageSize,
		},
	})
}

// GetValidationHistory returns the audit trail for a lead
func (h *LeadHandler) GetValidationHistory(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lead ID"})
		return
	}

	records, err := h.leads.GetValidationHistory(leadID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"validations": records})
}
