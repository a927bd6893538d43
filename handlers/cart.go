package handlers

import (
	"net/http"

	"resto-backend/models"
	"resto-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartHandler manages the user's active cart: the single Order row in
// status "cart" and its lines. Line prices are snapshotted when the item
// is added and never re-read from the menu.
type CartHandler struct {
	DB *gorm.DB
}

// activeCart returns the user's cart order, creating it on demand.
func (h *CartHandler) activeCart(userID uuid.UUID) (models.Order, error) {
	var cart models.Order
	err := h.DB.Preload("Items").Preload("Items.MenuItem").
		Where("user_id = ? AND status = ?", userID, models.OrderStatusCart).
		First(&cart).Error
	if err == nil {
		return cart, nil
	}
	if err != gorm.ErrRecordNotFound {
		return cart, err
	}

	cart = models.Order{
		UserID: userID,
		Status: models.OrderStatusCart,
	}
	if err := h.DB.Create(&cart).Error; err != nil {
		return cart, err
	}
	return cart, nil
}

func (h *CartHandler) GetCart(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	cart, err := h.activeCart(userID.(uuid.UUID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
		return
	}

	var subtotal float64
	for _, item := range cart.Items {
		subtotal += item.UnitPrice * float64(item.Quantity)
	}

	c.JSON(http.StatusOK, gin.H{
		"cart":     cart,
		"subtotal": subtotal,
	})
}

func (h *CartHandler) AddToCart(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		MenuItemID uuid.UUID `json:"menu_item_id" binding:"required"`
		Quantity   int       `json:"quantity" binding:"required,min=1"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	var menuItem models.MenuItem
	if err := h.DB.Where("id = ?", req.MenuItemID).First(&menuItem).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Menu item not found"})
		return
	}

	if !menuItem.IsAvailable {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Menu item is not available"})
		return
	}

	cart, err := h.activeCart(userID.(uuid.UUID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
		return
	}

	// Adding an item already in the cart bumps its quantity; the captured
	// unit price is kept.
	var line models.OrderItem
	err = h.DB.Where("order_id = ? AND menu_item_id = ?", cart.ID, req.MenuItemID).First(&line).Error
	if err == nil {
		line.Quantity += req.Quantity
		h.DB.Save(&line)
	} else {
		line = models.OrderItem{
			OrderID:    cart.ID,
			MenuItemID: menuItem.ID,
			ItemName:   menuItem.Name,
			UnitPrice:  menuItem.Price,
			Quantity:   req.Quantity,
		}
		if err := h.DB.Create(&line).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add item to cart"})
			return
		}
	}

	h.DB.Preload("MenuItem").First(&line, line.ID)
	c.JSON(http.StatusOK, line)
}

func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id := c.Param("id")
	var req struct {
		Quantity int `json:"quantity" binding:"required,min=1"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	var line models.OrderItem
	if err := h.DB.Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.id = ? AND orders.user_id = ? AND orders.status = ?", id, userID, models.OrderStatusCart).
		First(&line).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cart item not found"})
		return
	}

	line.Quantity = req.Quantity
	if err := h.DB.Save(&line).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart item"})
		return
	}

	c.JSON(http.StatusOK, line)
}

func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id := c.Param("id")

	var line models.OrderItem
	if err := h.DB.Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.id = ? AND orders.user_id = ? AND orders.status = ?", id, userID, models.OrderStatusCart).
		First(&line).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cart item not found"})
		return
	}

	if err := h.DB.Delete(&line).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove cart item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart"})
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var cart models.Order
	if err := h.DB.Where("user_id = ? AND status = ?", userID, models.OrderStatusCart).First(&cart).Error; err != nil {
		c.JSON(http.StatusOK, gin.H{"message": "Cart is already empty"})
		return
	}

	if err := h.DB.Where("order_id = ?", cart.ID).Delete(&models.OrderItem{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}
