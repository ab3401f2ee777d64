package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/getyourshare/backend/internal/apperrors"
)

// respondError maps engine error kinds onto HTTP statuses. Client-facing
// kinds carry their detail message; store failures are logged and masked.
func respondError(c *gin.Context, err error) {
	switch {
	case apperrors.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperrors.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apperrors.IsInsufficientFunds(err):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	default:
		log.Printf("Internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
