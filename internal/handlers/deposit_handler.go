package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/getyourshare/backend/internal/services/escrow"
)

// DepositHandler handles escrow deposit requests
type DepositHandler struct {
	escrow *escrow.EscrowService
}

// NewDepositHandler creates a new deposit handler
func NewDepositHandler(escrowSvc *escrow.EscrowService) *DepositHandler {
	return &DepositHandler{escrow: escrowSvc}
}

// FundDeposit credits a merchant's escrow deposit, creating it on first funding
func (h *DepositHandler) FundDeposit(c *gin.Context) {
	var input struct {
		MerchantID     uuid.UUID  `json:"merchant_id" binding:"required"`
		CampaignID     *uuid.UUID `json:"campaign_id"`
		Amount         float64    `json:"amount" binding:"required"`
		AlertThreshold float64    `json:"alert_threshold"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deposit, err := h.escrow.Fund(input.MerchantID, input.CampaignID, input.Amount, input.AlertThreshold)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, deposit)
}

// GetDeposit gets a deposit by ID
func (h *DepositHandler) GetDeposit(c *gin.Context) {
	depositID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deposit ID"})
		return
	}

	deposit, err := h.escrow.GetDeposit(depositID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, deposit)
}

// GetDepositStats returns balance and journal aggregates for a deposit
func (h *DepositHandler) GetDepositStats(c *gin.Context) {
	depositID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deposit ID"})
		return
	}

	stats, err := h.escrow.GetDepositStats(depositID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetDepositEntries returns the escrow journal for a deposit
func (h *DepositHandler) GetDepositEntries(c *gin.Context) {
	depositID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deposit ID"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	entries, total, err := h.escrow.GetEntries(depositID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"pagination": gin.H{
			"total":     total,
			"page":      page,
			"page_size": pageSize,
		},
	})
}
