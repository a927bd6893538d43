package handlers

import (
	"net/http"
	"time"

	"resto-backend/models"
	"resto-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PromotionHandler struct {
	DB *gorm.DB
}

// GetPromotions returns currently active promotions; public endpoint.
func (h *PromotionHandler) GetPromotions(c *gin.Context) {
	now := time.Now()
	var promotions []models.Promotion
	if err := h.DB.Where("is_active = ?", true).
		Where("start_date IS NULL OR start_date <= ?", now).
		Where("end_date IS NULL OR end_date >= ?", now).
		Order("created_at DESC").Find(&promotions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch promotions"})
		return
	}
	c.JSON(http.StatusOK, promotions)
}

func (h *PromotionHandler) CreatePromotion(c *gin.Context) {
	var req struct {
		Title           string     `json:"title" binding:"required"`
		Description     string     `json:"description"`
		DiscountPercent float64    `json:"discount_percent" binding:"omitempty,min=0,max=100"`
		StartDate       *time.Time `json:"start_date"`
		EndDate         *time.Time `json:"end_date"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	promotion := models.Promotion{
		Title:           req.Title,
		Description:     req.Description,
		DiscountPercent: req.DiscountPercent,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		IsActive:        true,
	}

	if err := h.DB.Create(&promotion).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create promotion"})
		return
	}

	c.JSON(http.StatusCreated, promotion)
}

func (h *PromotionHandler) UpdatePromotion(c *gin.Context) {
	id := c.Param("id")

	var promotion models.Promotion
	if err := h.DB.Where("id = ?", id).First(&promotion).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Promotion not found"})
		return
	}

	var req struct {
		Title           *string    `json:"title"`
		Description     *string    `json:"description"`
		DiscountPercent *float64   `json:"discount_percent"`
		StartDate       *time.Time `json:"start_date"`
		EndDate         *time.Time `json:"end_date"`
		IsActive        *bool      `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	if req.Title != nil {
		promotion.Title = *req.Title
	}
	if req.Description != nil {
		promotion.Description = *req.Description
	}
	if req.DiscountPercent != nil {
		promotion.DiscountPercent = *req.DiscountPercent
	}
	if req.StartDate != nil {
		promotion.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		promotion.EndDate = req.EndDate
	}
	if req.IsActive != nil {
		promotion.IsActive = *req.IsActive
	}

	if err := h.DB.Save(&promotion).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update promotion"})
		return
	}

	c.JSON(http.StatusOK, promotion)
}

func (h *PromotionHandler) DeletePromotion(c *gin.Context) {
	id := c.Param("id")

	if err := h.DB.Where("id = ?", id).Delete(&models.Promotion{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete promotion"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Promotion deleted"})
}
