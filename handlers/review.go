package handlers

import (
	"net/http"

	"resto-backend/models"
	"resto-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReviewHandler struct {
	DB *gorm.DB
}

func (h *ReviewHandler) CreateReview(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		MenuItemID *uuid.UUID `json:"menu_item_id"`
		Rating     int        `json:"rating" binding:"required,min=1,max=5"`
		Comment    string     `json:"comment"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	if req.MenuItemID != nil {
		var item models.MenuItem
		if err := h.DB.Where("id = ?", req.MenuItemID).First(&item).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Menu item not found"})
			return
		}
	}

	review := models.Review{
		UserID:     userID.(uuid.UUID),
		MenuItemID: req.MenuItemID,
		Rating:     req.Rating,
		Comment:    req.Comment,
		Status:     models.ReviewStatusPending,
	}

	if err := h.DB.Create(&review).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create review"})
		return
	}

	c.JSON(http.StatusCreated, review)
}

// GetReviews returns approved reviews; public endpoint.
func (h *ReviewHandler) GetReviews(c *gin.Context) {
	var reviews []models.Review
	query := h.DB.Preload("User").Where("status = ?", models.ReviewStatusApproved)

	if menuItemID := c.Query("menu_item_id"); menuItemID != "" {
		query = query.Where("menu_item_id = ?", menuItemID)
	}

	if err := query.Order("created_at DESC").Find(&reviews).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reviews"})
		return
	}

	c.JSON(http.StatusOK, reviews)
}

// GetAllReviews lists reviews of any status for moderation.
func (h *ReviewHandler) GetAllReviews(c *gin.Context) {
	var reviews []models.Review
	query := h.DB.Preload("User").Preload("MenuItem")

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Order("created_at DESC").Find(&reviews).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reviews"})
		return
	}

	c.JSON(http.StatusOK, reviews)
}

// ModerateReview approves or rejects a pending review.
func (h *ReviewHandler) ModerateReview(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Status models.ReviewStatus `json:"status" binding:"required,oneof=approved rejected"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	var review models.Review
	if err := h.DB.Where("id = ?", id).First(&review).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
		return
	}

	review.Status = req.Status
	if err := h.DB.Save(&review).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update review"})
		return
	}

	c.JSON(http.StatusOK, review)
}
