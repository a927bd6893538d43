package routes

import (
	"resto-backend/handlers"
	"resto-backend/middleware"
	"resto-backend/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func SetupRoutes(r *gin.Engine, db *gorm.DB, gw services.PaymentGateway) {
	// Initialize services and handlers
	orderService := services.NewOrderService(db, gw)
	userService := services.NewUserService(db)

	authHandler := &handlers.AuthHandler{DB: db, Users: userService}
	menuHandler := &handlers.MenuHandler{DB: db}
	cartHandler := &handlers.CartHandler{DB: db}
	orderHandler := &handlers.OrderHandler{DB: db, Orders: orderService}
	paymentHandler := &handlers.PaymentHandler{DB: db, Orders: orderService}
	notificationHandler := &handlers.NotificationHandler{DB: db}
	reviewHandler := &handlers.ReviewHandler{DB: db}
	messageHandler := &handlers.MessageHandler{DB: db}
	complaintHandler := &handlers.ComplaintHandler{DB: db}
	loyaltyHandler := &handlers.LoyaltyHandler{DB: db}
	promotionHandler := &handlers.PromotionHandler{DB: db}

	// Public routes
	api := r.Group("/api")
	{
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)

		api.GET("/menu/categories", menuHandler.GetCategories)
		api.GET("/menu/items", menuHandler.GetMenuItems)
		api.GET("/menu/items/:id", menuHandler.GetMenuItem)

		api.GET("/reviews", reviewHandler.GetReviews)
		api.GET("/promotions", promotionHandler.GetPromotions)
	}

	// Protected routes (require authentication)
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/auth/profile", authHandler.GetProfile)

		protected.GET("/cart", cartHandler.GetCart)
		protected.POST("/cart", cartHandler.AddToCart)
		protected.PUT("/cart/:id", cartHandler.UpdateCartItem)
		protected.DELETE("/cart/:id", cartHandler.RemoveFromCart)
		protected.DELETE("/cart", cartHandler.ClearCart)

		protected.POST("/orders", orderHandler.CreateOrder)
		protected.GET("/orders", orderHandler.GetOrders)
		protected.GET("/orders/:id", orderHandler.GetOrder)
		protected.GET("/orders/:id/payments", paymentHandler.GetOrderPayments)

		protected.POST("/payments", paymentHandler.InitializePayment)
		protected.POST("/payments/:id/check", paymentHandler.CheckPayment)

		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.GetUnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllRead)

		protected.POST("/reviews", reviewHandler.CreateReview)

		protected.POST("/complaints", complaintHandler.CreateComplaint)
		protected.GET("/complaints", complaintHandler.GetMyComplaints)

		protected.GET("/loyalty/history", loyaltyHandler.GetMyHistory)
	}

	// Staff routes (employee, manager or admin)
	staff := api.Group("/staff")
	staff.Use(middleware.AuthMiddleware())
	staff.Use(middleware.StaffMiddleware())
	{
		staff.GET("/orders", orderHandler.GetOrders)
		staff.GET("/orders/:id", orderHandler.GetOrder)
		staff.PUT("/orders/:id/status", orderHandler.UpdateOrderStatus)
		staff.GET("/order-transitions", orderHandler.GetOrderTransitions)

		staff.POST("/messages", messageHandler.SendMessage)
		staff.GET("/messages/inbox", messageHandler.GetInbox)
		staff.GET("/messages/sent", messageHandler.GetSent)
		staff.PUT("/messages/:id/read", messageHandler.MarkRead)
	}

	// Manager routes (manager or admin)
	manager := api.Group("/manager")
	manager.Use(middleware.AuthMiddleware())
	manager.Use(middleware.ManagerMiddleware())
	{
		manager.PUT("/orders/:id/courier", orderHandler.AssignCourier)

		manager.GET("/reviews", reviewHandler.GetAllReviews)
		manager.PUT("/reviews/:id", reviewHandler.ModerateReview)

		manager.GET("/complaints", complaintHandler.GetAllComplaints)
		manager.PUT("/complaints/:id", complaintHandler.UpdateComplaint)
	}

	// Admin routes (require admin role)
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware())
	admin.Use(middleware.AdminMiddleware())
	{
		admin.POST("/menu/categories", menuHandler.CreateCategory)
		admin.PUT("/menu/categories/:id", menuHandler.UpdateCategory)
		admin.DELETE("/menu/categories/:id", menuHandler.DeleteCategory)

		admin.POST("/menu/items", menuHandler.CreateMenuItem)
		admin.PUT("/menu/items/:id", menuHandler.UpdateMenuItem)
		admin.DELETE("/menu/items/:id", menuHandler.DeleteMenuItem)

		admin.GET("/loyalty/settings", loyaltyHandler.GetSettings)
		admin.PUT("/loyalty/settings", loyaltyHandler.UpdateSettings)

		admin.POST("/promotions", promotionHandler.CreatePromotion)
		admin.PUT("/promotions/:id", promotionHandler.UpdatePromotion)
		admin.DELETE("/promotions/:id", promotionHandler.DeletePromotion)

		admin.GET("/dashboard", orderHandler.GetAdminDashboard)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
