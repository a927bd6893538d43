package handlers

import (
	"net/http"
	"time"

	"resto-backend/models"
	"resto-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageHandler is staff-to-staff messaging; every route behind it is
// gated by StaffMiddleware.
type MessageHandler struct {
	DB *gorm.DB
}

func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		RecipientID uuid.UUID `json:"recipient_id" binding:"required"`
		Subject     string    `json:"subject"`
		Body        string    `json:"body" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	var recipient models.User
	if err := h.DB.Where("id = ?", req.RecipientID).First(&recipient).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipient not found"})
		return
	}
	if !recipient.IsStaff() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Recipient is not a staff member"})
		return
	}

	message := models.Message{
		SenderID:    userID.(uuid.UUID),
		RecipientID: recipient.ID,
		Subject:     req.Subject,
		Body:        req.Body,
	}

	if err := h.DB.Create(&message).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	c.JSON(http.StatusCreated, message)
}

func (h *MessageHandler) GetInbox(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var messages []models.Message
	if err := h.DB.Preload("Sender").Where("recipient_id = ?", userID).
		Order("created_at DESC").Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	c.JSON(http.StatusOK, messages)
}

func (h *MessageHandler) GetSent(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var messages []models.Message
	if err := h.DB.Preload("Recipient").Where("sender_id = ?", userID).
		Order("created_at DESC").Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	c.JSON(http.StatusOK, messages)
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id := c.Param("id")

	var message models.Message
	if err := h.DB.Where("id = ? AND recipient_id = ?", id, userID).First(&message).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}

	now := time.Now()
	message.IsRead = true
	message.ReadAt = &now
	if err := h.DB.Save(&message).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark message read"})
		return
	}

	c.JSON(http.StatusOK, message)
}
