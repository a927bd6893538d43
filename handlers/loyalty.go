package handlers

import (
	"net/http"

	"resto-backend/models"
	"resto-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type LoyaltyHandler struct {
	DB *gorm.DB
}

// GetMyHistory lists the caller's loyalty point movements.
func (h *LoyaltyHandler) GetMyHistory(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var history []models.LoyaltyHistory
	if err := h.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&history).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch loyalty history"})
		return
	}

	var user models.User
	h.DB.Where("id = ?", userID).First(&user)

	c.JSON(http.StatusOK, gin.H{
		"balance": user.LoyaltyPoints,
		"history": history,
	})
}

// GetSettings returns the current loyalty parameters.
func (h *LoyaltyHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, models.GetLoyaltySettings(h.DB))
}

// UpdateSettings tunes the loyalty parameters without a redeploy.
func (h *LoyaltyHandler) UpdateSettings(c *gin.Context) {
	var req struct {
		EnrollmentPoints *int     `json:"enrollment_points" binding:"omitempty,min=0"`
		FirstOrderPoints *int     `json:"first_order_points" binding:"omitempty,min=0"`
		RedemptionRate   *float64 `json:"redemption_rate" binding:"omitempty,gt=0"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	var settings models.LoyaltySettings
	if err := h.DB.First(&settings).Error; err != nil {
		settings = models.LoyaltySettings{
			EnrollmentPoints: models.DefaultEnrollmentPoints,
			FirstOrderPoints: models.DefaultFirstOrderPoints,
			RedemptionRate:   models.DefaultRedemptionRate,
		}
		if err := h.DB.Create(&settings).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create loyalty settings"})
			return
		}
	}

	if req.EnrollmentPoints != nil {
		settings.EnrollmentPoints = *req.EnrollmentPoints
	}
	if req.FirstOrderPoints != nil {
		settings.FirstOrderPoints = *req.FirstOrderPoints
	}
	if req.RedemptionRate != nil {
		settings.RedemptionRate = *req.RedemptionRate
	}

	if err := h.DB.Save(&settings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update loyalty settings"})
		return
	}

	c.JSON(http.StatusOK, settings)
}
