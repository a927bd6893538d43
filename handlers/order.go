package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"resto-backend/models"
	"resto-backend/services"
	"resto-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderHandler struct {
	DB     *gorm.DB
	Orders *services.OrderService
}

// CreateOrder converts the caller's active cart into a placed order.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		DeliveryType         string     `json:"delivery_type" binding:"required,oneof=dine_in delivery"`
		DeliveryAddress      string     `json:"delivery_address"`
		PointsToSpend        int        `json:"loyalty_points_to_spend"`
		Comment              string     `json:"comment"`
		SpecialInstructions  string     `json:"special_instructions"`
		RequestedArrivalTime *time.Time `json:"requested_arrival_time"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	if req.DeliveryType == string(models.DeliveryTypeDelivery) && req.DeliveryAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "delivery_address is required for delivery orders"})
		return
	}
	if req.PointsToSpend < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "loyalty_points_to_spend must not be negative"})
		return
	}

	order, err := h.Orders.CreateOrderFromCart(userID.(uuid.UUID), services.CheckoutInput{
		DeliveryType:         models.DeliveryType(req.DeliveryType),
		DeliveryAddress:      req.DeliveryAddress,
		PointsToSpend:        req.PointsToSpend,
		Comment:              req.Comment,
		SpecialInstructions:  req.SpecialInstructions,
		RequestedArrivalTime: req.RequestedArrivalTime,
	})
	if err != nil {
		var insufficientPoints *services.InsufficientPointsError
		switch {
		case errors.Is(err, services.ErrEmptyCart):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
		case errors.As(err, &insufficientPoints):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":            insufficientPoints.Error(),
				"available_points": insufficientPoints.Available,
			})
		default:
			log.Printf("order placement failed for user %v: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to place order"})
		}
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) GetOrders(c *gin.Context) {
	userID, exists := c.Get("user_id")
	userRole, _ := c.Get("user_role")

	var orders []models.Order
	query := h.DB.Preload("Items").Preload("Items.MenuItem").Preload("User").
		Where("status != ?", models.OrderStatusCart)

	roleStr, _ := userRole.(string)

	switch roleStr {
	case models.RoleAdmin, models.RoleManager, models.RoleEmployee:
		// Staff see all placed orders, optionally filtered by status
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
	case models.RoleCourier:
		if exists {
			query = query.Where("courier_id = ?", userID)
		}
	default:
		// Regular customer sees their own orders
		if exists {
			query = query.Where("user_id = ?", userID)
		}
	}

	if err := query.Order("created_at DESC").Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id := c.Param("id")
	userID, _ := c.Get("user_id")
	userRole, _ := c.Get("user_role")

	var order models.Order
	query := h.DB.Preload("Items").Preload("Items.MenuItem").Preload("User")

	roleStr, _ := userRole.(string)

	switch roleStr {
	case models.RoleAdmin, models.RoleManager, models.RoleEmployee:
		query = query.Where("id = ?", id)
	case models.RoleCourier:
		query = query.Where("id = ? AND courier_id = ?", id, userID)
	default:
		query = query.Where("id = ? AND user_id = ?", id, userID)
	}

	if err := query.First(&order).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	var order models.Order
	if err := h.DB.Where("id = ?", id).First(&order).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	if !models.IsValidTransition(order.Status, req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid status transition from '%s' to '%s'", order.Status, req.Status),
		})
		return
	}

	order.Status = req.Status
	if err := h.DB.Save(&order).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order status"})
		return
	}

	h.DB.Preload("Items").Preload("Items.MenuItem").Preload("User").First(&order, order.ID)

	// Send status update email (non-blocking)
	if order.User.Email != "" {
		utils.SendOrderStatusUpdate(order.User.Email, order.User.Name, order.OrderNumber, string(req.Status))
	}

	c.JSON(http.StatusOK, order)
}

// AssignCourier attaches a courier user to a delivery order.
func (h *OrderHandler) AssignCourier(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		CourierID uuid.UUID `json:"courier_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	var order models.Order
	if err := h.DB.Where("id = ?", id).First(&order).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	if order.DeliveryType != models.DeliveryTypeDelivery {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only delivery orders can have a courier"})
		return
	}

	var courier models.User
	if err := h.DB.Where("id = ? AND role = ?", req.CourierID, models.RoleCourier).First(&courier).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Courier not found"})
		return
	}

	order.CourierID = &courier.ID
	if err := h.DB.Save(&order).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign courier"})
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) GetOrderTransitions(c *gin.Context) {
	c.JSON(http.StatusOK, models.AllowedTransitions)
}

// GetAdminDashboard returns pre-computed dashboard stats for the back office.
func (h *OrderHandler) GetAdminDashboard(c *gin.Context) {
	placed := h.DB.Model(&models.Order{}).Where("status != ?", models.OrderStatusCart)

	var totalOrders int64
	placed.Count(&totalOrders)

	var totalRevenue float64
	h.DB.Model(&models.Order{}).
		Where("status NOT IN ?", []models.OrderStatus{models.OrderStatusCart, models.OrderStatusCancelled}).
		Select("COALESCE(SUM(total), 0)").Scan(&totalRevenue)

	// Recent revenue (last 7 days)
	sevenDaysAgo := time.Now().AddDate(0, 0, -7)
	var recentRevenue float64
	h.DB.Model(&models.Order{}).
		Where("status NOT IN ? AND created_at >= ?",
			[]models.OrderStatus{models.OrderStatusCart, models.OrderStatusCancelled}, sevenDaysAgo).
		Select("COALESCE(SUM(total), 0)").Scan(&recentRevenue)

	var pendingOrders int64
	h.DB.Model(&models.Order{}).Where("status = ?", models.OrderStatusPending).Count(&pendingOrders)

	var menuItemCount int64
	h.DB.Model(&models.MenuItem{}).Count(&menuItemCount)

	var customerCount int64
	h.DB.Model(&models.User{}).Where("role = ?", models.RoleCustomer).Count(&customerCount)

	var openComplaints int64
	h.DB.Model(&models.Complaint{}).Where("status = ?", models.ComplaintStatusOpen).Count(&openComplaints)

	var recentOrders []models.Order
	h.DB.Preload("Items").Preload("User").
		Where("status != ?", models.OrderStatusCart).
		Order("created_at DESC").Limit(10).Find(&recentOrders)

	c.JSON(http.StatusOK, gin.H{
		"total_orders":     totalOrders,
		"total_revenue":    totalRevenue,
		"recent_revenue":   recentRevenue,
		"pending_orders":   pendingOrders,
		"total_menu_items": menuItemCount,
		"total_customers":  customerCount,
		"open_complaints":  openComplaints,
		"recent_orders":    recentOrders,
	})
}
