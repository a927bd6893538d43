package handlers

import (
	"net/http"

	"resto-backend/models"
	"resto-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ComplaintHandler struct {
	DB *gorm.DB
}

func (h *ComplaintHandler) CreateComplaint(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		OrderID  *uuid.UUID `json:"order_id"`
		Subject  string     `json:"subject" binding:"required"`
		Body     string     `json:"body"`
		Priority string     `json:"priority" binding:"omitempty,oneof=low medium high"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	if req.OrderID != nil {
		var order models.Order
		if err := h.DB.Where("id = ? AND user_id = ?", req.OrderID, userID).First(&order).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
	}

	complaint := models.Complaint{
		UserID:   userID.(uuid.UUID),
		OrderID:  req.OrderID,
		Subject:  req.Subject,
		Body:     req.Body,
		Status:   models.ComplaintStatusOpen,
		Priority: models.ComplaintPriorityMedium,
	}
	if req.Priority != "" {
		complaint.Priority = models.ComplaintPriority(req.Priority)
	}

	if err := h.DB.Create(&complaint).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create complaint"})
		return
	}

	c.JSON(http.StatusCreated, complaint)
}

func (h *ComplaintHandler) GetMyComplaints(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var complaints []models.Complaint
	if err := h.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&complaints).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch complaints"})
		return
	}

	c.JSON(http.StatusOK, complaints)
}

// GetAllComplaints lists every complaint for the back office.
func (h *ComplaintHandler) GetAllComplaints(c *gin.Context) {
	var complaints []models.Complaint
	query := h.DB.Preload("User")

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if priority := c.Query("priority"); priority != "" {
		query = query.Where("priority = ?", priority)
	}

	if err := query.Order("created_at DESC").Find(&complaints).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch complaints"})
		return
	}

	c.JSON(http.StatusOK, complaints)
}

func (h *ComplaintHandler) UpdateComplaint(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Status   string `json:"status" binding:"omitempty,oneof=open in_progress resolved"`
		Priority string `json:"priority" binding:"omitempty,oneof=low medium high"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	var complaint models.Complaint
	if err := h.DB.Where("id = ?", id).First(&complaint).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Complaint not found"})
		return
	}

	if req.Status != "" {
		complaint.Status = models.ComplaintStatus(req.Status)
	}
	if req.Priority != "" {
		complaint.Priority = models.ComplaintPriority(req.Priority)
	}

	if err := h.DB.Save(&complaint).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update complaint"})
		return
	}

	c.JSON(http.StatusOK, complaint)
}
