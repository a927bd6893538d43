package handlers

import (
	"errors"
	"net/http"

	"resto-backend/gateway"
	"resto-backend/models"
	"resto-backend/services"
	"resto-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentHandler struct {
	DB     *gorm.DB
	Orders *services.OrderService
}

// InitializePayment opens a provider transaction for one of the caller's
// placed orders and returns the redirect URL.
func (h *PaymentHandler) InitializePayment(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		OrderID       uuid.UUID `json:"order_id" binding:"required"`
		PaymentMethod string    `json:"payment_method" binding:"required"`
		Language      string    `json:"language"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	// The order must belong to the caller.
	var order models.Order
	if err := h.DB.Where("id = ? AND user_id = ?", req.OrderID, userID).First(&order).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	payment, result, err := h.Orders.InitializePayment(req.OrderID, req.PaymentMethod, req.Language)
	if err != nil {
		if errors.Is(err, services.ErrOrderAlreadyPaid) {
			c.JSON(http.StatusConflict, gin.H{"error": "Order has already been paid"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to initialize payment"})
		return
	}

	if !result.Success {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   result.Message,
			"payment": payment,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment":      payment,
		"reference":    result.Reference,
		"redirect_url": result.RedirectURL,
	})
}

// CheckPayment polls the provider and reconciles the payment's state.
// Used both by the SPA after redirect and by the provider's callback flow.
func (h *PaymentHandler) CheckPayment(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userRole, _ := c.Get("user_role")
	roleStr, _ := userRole.(string)

	id := c.Param("id")

	var payment models.Payment
	query := h.DB.Joins("JOIN orders ON orders.id = payments.order_id").Where("payments.id = ?", id)
	if roleStr == models.RoleCustomer {
		query = query.Where("orders.user_id = ?", userID)
	}
	if err := query.First(&payment).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
		return
	}

	reconciled, result, err := h.Orders.ReconcilePayment(payment.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reconcile payment"})
		return
	}

	// "not_found" means the provider does not know the reference; surface
	// the tag, it is not a system fault.
	status := http.StatusOK
	if result.Status == gateway.StatusError {
		status = http.StatusBadGateway
	}

	c.JSON(status, gin.H{
		"payment": reconciled,
		"status":  result.Status,
		"success": result.Success,
		"channel": result.Channel,
		"message": result.Message,
	})
}

// GetOrderPayments lists the payments recorded against one of the caller's
// orders.
func (h *PaymentHandler) GetOrderPayments(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	orderID := c.Param("id")

	var order models.Order
	if err := h.DB.Where("id = ? AND user_id = ?", orderID, userID).First(&order).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	var payments []models.Payment
	if err := h.DB.Where("order_id = ?", order.ID).Order("created_at DESC").Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payments"})
		return
	}

	c.JSON(http.StatusOK, payments)
}
