package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"resto-backend/gateway"
	"resto-backend/middleware"
	"resto-backend/models"
	"resto-backend/services"
	"resto-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Setenv("JWT_SECRET", "test-secret-key-for-unit-tests")

	var err error
	testDB, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		panic("failed to connect to test database: " + err.Error())
	}
	// Limit to 1 open connection to prevent SQLite concurrent access issues
	// with in-memory databases.
	sqlDB, _ := testDB.DB()
	sqlDB.SetMaxOpenConns(1)

	// Create tables using raw SQLite-compatible SQL instead of AutoMigrate,
	// because the GORM model tags use PostgreSQL-specific defaults like gen_random_uuid().
	if err := createSQLiteTables(testDB); err != nil {
		panic("failed to migrate test database: " + err.Error())
	}

	code := m.Run()
	os.Exit(code)
}

// freshDB returns a clean database for each test by deleting all rows.
func freshDB() *gorm.DB {
	// Delete in correct order to respect foreign keys
	testDB.Exec("DELETE FROM loyalty_histories")
	testDB.Exec("DELETE FROM notifications")
	testDB.Exec("DELETE FROM payments")
	testDB.Exec("DELETE FROM order_items")
	testDB.Exec("DELETE FROM orders")
	testDB.Exec("DELETE FROM referrals")
	testDB.Exec("DELETE FROM reviews")
	testDB.Exec("DELETE FROM messages")
	testDB.Exec("DELETE FROM complaints")
	testDB.Exec("DELETE FROM promotions")
	testDB.Exec("DELETE FROM menu_items")
	testDB.Exec("DELETE FROM menu_categories")
	testDB.Exec("DELETE FROM loyalty_settings")
	testDB.Exec("DELETE FROM users")
	return testDB
}

// createSQLiteTables creates all tables with SQLite-compatible DDL.
func createSQLiteTables(db *gorm.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS "users" (
			"id" TEXT PRIMARY KEY,
			"email" TEXT NOT NULL UNIQUE,
			"password" TEXT NOT NULL,
			"name" TEXT,
			"phone" TEXT,
			"role" TEXT DEFAULT 'customer',
			"loyalty_points" INTEGER DEFAULT 0,
			"referral_code" TEXT UNIQUE,
			"referred_by_id" TEXT,
			"is_blocked" INTEGER DEFAULT 0,
			"created_at" DATETIME,
			"updated_at" DATETIME,
			"deleted_at" DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_deleted_at ON "users"("deleted_at")`,

		`CREATE TABLE IF NOT EXISTS "menu_categories" (
			"id" TEXT PRIMARY KEY,
			"name" TEXT NOT NULL,
			"description" TEXT,
			"created_at" DATETIME,
			"updated_at" DATETIME,
			"deleted_at" DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_menu_categories_deleted_at ON "menu_categories"("deleted_at")`,

		`CREATE TABLE IF NOT EXISTS "menu_items" (
			"id" TEXT PRIMARY KEY,
			"name" TEXT NOT NULL,
			"description" TEXT,
			"price" REAL NOT NULL,
			"image_url" TEXT,
			"category_id" TEXT NOT NULL,
			"is_available" INTEGER DEFAULT 1,
			"created_at" DATETIME,
			"updated_at" DATETIME,
			"deleted_at" DATETIME,
			CONSTRAINT fk_menu_items_category FOREIGN KEY ("category_id") REFERENCES "menu_categories"("id")
		)`,
		`CREATE INDEX IF NOT EXISTS idx_menu_items_deleted_at ON "menu_items"("deleted_at")`,
		`CREATE INDEX IF NOT EXISTS idx_menu_items_category_id ON "menu_items"("category_id")`,

		`CREATE TABLE IF NOT EXISTS "orders" (
			"id" TEXT PRIMARY KEY,
			"user_id" TEXT NOT NULL,
			"order_number" TEXT NOT NULL UNIQUE,
			"status" TEXT DEFAULT 'cart',
			"delivery_type" TEXT DEFAULT 'dine_in',
			"delivery_address" TEXT,
			"subtotal" REAL DEFAULT 0,
			"delivery_fee" REAL DEFAULT 0,
			"points_used" INTEGER DEFAULT 0,
			"discount" REAL DEFAULT 0,
			"total" REAL DEFAULT 0,
			"comment" TEXT,
			"special_instructions" TEXT,
			"requested_arrival_time" DATETIME,
			"courier_id" TEXT,
			"placed_at" DATETIME,
			"created_at" DATETIME,
			"updated_at" DATETIME,
			"deleted_at" DATETIME,
			CONSTRAINT fk_orders_user FOREIGN KEY ("user_id") REFERENCES "users"("id")
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_deleted_at ON "orders"("deleted_at")`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user_id ON "orders"("user_id")`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON "orders"("status")`,

		`CREATE TABLE IF NOT EXISTS "order_items" (
			"id" TEXT PRIMARY KEY,
			"order_id" TEXT NOT NULL,
			"menu_item_id" TEXT NOT NULL,
			"item_name" TEXT,
			"unit_price" REAL NOT NULL,
			"quantity" INTEGER NOT NULL,
			"created_at" DATETIME,
			"updated_at" DATETIME,
			CONSTRAINT fk_order_items_order FOREIGN KEY ("order_id") REFERENCES "orders"("id")
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON "order_items"("order_id")`,

		`CREATE TABLE IF NOT EXISTS "payments" (
			"id" TEXT PRIMARY KEY,
			"order_id" TEXT NOT NULL,
			"reference" TEXT,
			"method" TEXT,
			"channel" TEXT,
			"amount" REAL NOT NULL,
			"status" TEXT DEFAULT 'pending',
			"created_at" DATETIME,
			"updated_at" DATETIME,
			"deleted_at" DATETIME,
			CONSTRAINT fk_payments_order FOREIGN KEY ("order_id") REFERENCES "orders"("id")
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_order_id ON "payments"("order_id")`,

		`CREATE TABLE IF NOT EXISTS "referrals" (
			"id" TEXT PRIMARY KEY,
			"referrer_id" TEXT NOT NULL,
			"referred_user_id" TEXT NOT NULL UNIQUE,
			"first_order_rewarded" INTEGER DEFAULT 0,
			"created_at" DATETIME,
			"updated_at" DATETIME,
			"deleted_at" DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_referrals_referrer_id ON "referrals"("referrer_id")`,

		`CREATE TABLE IF NOT EXISTS "loyalty_settings" (
			"id" TEXT PRIMARY KEY,
			"enrollment_points" INTEGER DEFAULT 10,
			"first_order_points" INTEGER DEFAULT 20,
			"redemption_rate" REAL DEFAULT 67,
			"created_at" DATETIME,
			"updated_at" DATETIME
		)`,

		`CREATE TABLE IF NOT EXISTS "loyalty_histories" (
			"id" TEXT PRIMARY KEY,
			"user_id" TEXT NOT NULL,
			"points" INTEGER NOT NULL,
			"type" TEXT NOT NULL,
			"description" TEXT,
			"order_id" TEXT,
			"created_at" DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_loyalty_histories_user_id ON "loyalty_histories"("user_id")`,

		`CREATE TABLE IF NOT EXISTS "notifications" (
			"id" TEXT PRIMARY KEY,
			"user_id" TEXT NOT NULL,
			"title" TEXT NOT NULL,
			"body" TEXT,
			"order_id" TEXT,
			"is_read" INTEGER DEFAULT 0,
			"read_at" DATETIME,
			"created_at" DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON "notifications"("user_id")`,

		`CREATE TABLE IF NOT EXISTS "reviews" (
			"id" TEXT PRIMARY KEY,
			"user_id" TEXT NOT NULL,
			"menu_item_id" TEXT,
			"rating" INTEGER NOT NULL,
			"comment" TEXT,
			"status" TEXT DEFAULT 'pending',
			"created_at" DATETIME,
			"updated_at" DATETIME,
			"deleted_at" DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_user_id ON "reviews"("user_id")`,

		`CREATE TABLE IF NOT EXISTS "messages" (
			"id" TEXT PRIMARY KEY,
			"sender_id" TEXT NOT NULL,
			"recipient_id" TEXT NOT NULL,
			"subject" TEXT,
			"body" TEXT NOT NULL,
			"is_read" INTEGER DEFAULT 0,
			"read_at" DATETIME,
			"created_at" DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_recipient_id ON "messages"("recipient_id")`,

		`CREATE TABLE IF NOT EXISTS "complaints" (
			"id" TEXT PRIMARY KEY,
			"user_id" TEXT NOT NULL,
			"order_id" TEXT,
			"subject" TEXT NOT NULL,
			"body" TEXT,
			"status" TEXT DEFAULT 'open',
			"priority" TEXT DEFAULT 'medium',
			"created_at" DATETIME,
			"updated_at" DATETIME,
			"deleted_at" DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_complaints_user_id ON "complaints"("user_id")`,

		`CREATE TABLE IF NOT EXISTS "promotions" (
			"id" TEXT PRIMARY KEY,
			"title" TEXT NOT NULL,
			"description" TEXT,
			"discount_percent" REAL DEFAULT 0,
			"start_date" DATETIME,
			"end_date" DATETIME,
			"is_active" INTEGER DEFAULT 1,
			"created_at" DATETIME,
			"updated_at" DATETIME,
			"deleted_at" DATETIME
		)`,
	}

	for _, ddl := range tables {
		if err := db.Exec(ddl).Error; err != nil {
			return err
		}
	}
	return nil
}

// ==================== Seed Helpers ====================

// seedTestUser creates a user with the given role and returns it plus a
// valid JWT token.
func seedTestUser(db *gorm.DB, email, role string) (models.User, string) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	user := models.User{
		ID:       uuid.New(),
		Email:    email,
		Password: string(hashed),
		Name:     "Test User",
		Role:     role,
	}
	db.Create(&user)

	token, err := utils.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		panic("failed to generate test token: " + err.Error())
	}
	return user, token
}

func seedCategory(db *gorm.DB, name string) models.MenuCategory {
	cat := models.MenuCategory{
		ID:   uuid.New(),
		Name: name,
	}
	db.Create(&cat)
	return cat
}

func seedMenuItem(db *gorm.DB, name string, categoryID uuid.UUID, price float64) models.MenuItem {
	item := models.MenuItem{
		ID:          uuid.New(),
		Name:        name,
		Price:       price,
		CategoryID:  categoryID,
		IsAvailable: true,
	}
	db.Create(&item)
	return item
}

// cartLine pairs a menu item with a quantity for seedCart.
type cartLine struct {
	item models.MenuItem
	qty  int
}

// seedCart creates an active cart order for the user with the given lines,
// snapshotting each menu item's current price.
func seedCart(db *gorm.DB, userID uuid.UUID, lines ...cartLine) models.Order {
	cart := models.Order{
		ID:     uuid.New(),
		UserID: userID,
		Status: models.OrderStatusCart,
	}
	db.Create(&cart)
	for _, l := range lines {
		db.Create(&models.OrderItem{
			ID:         uuid.New(),
			OrderID:    cart.ID,
			MenuItemID: l.item.ID,
			ItemName:   l.item.Name,
			UnitPrice:  l.item.Price,
			Quantity:   l.qty,
		})
	}
	return cart
}

// seedLoyaltySettings creates the loyalty parameters row.
func seedLoyaltySettings(db *gorm.DB, enrollment, firstOrder int, rate float64) models.LoyaltySettings {
	settings := models.LoyaltySettings{
		ID:               uuid.New(),
		EnrollmentPoints: enrollment,
		FirstOrderPoints: firstOrder,
		RedemptionRate:   rate,
	}
	db.Create(&settings)
	return settings
}

// seedPlacedOrder creates an order that already left cart status.
func seedPlacedOrder(db *gorm.DB, userID uuid.UUID, status models.OrderStatus, total float64) models.Order {
	order := models.Order{
		ID:       uuid.New(),
		UserID:   userID,
		Status:   status,
		Subtotal: total,
		Total:    total,
	}
	db.Create(&order)
	return order
}

// ==================== Stub Gateway ====================

// stubGateway implements services.PaymentGateway with canned responses.
type stubGateway struct {
	initResult   gateway.InitResult
	statusResult gateway.StatusResult
	initCalls    int
	statusCalls  int
}

func (g *stubGateway) InitializeTransaction(intent gateway.Intent) gateway.InitResult {
	g.initCalls++
	return g.initResult
}

func (g *stubGateway) CheckPaymentStatus(reference string) gateway.StatusResult {
	g.statusCalls++
	return g.statusResult
}

// ==================== Router Setup Helpers ====================

// setupAuthRouter sets up routes for auth handler tests.
func setupAuthRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()
	authHandler := &AuthHandler{DB: db, Users: services.NewUserService(db)}

	api := r.Group("/api")
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	protected.GET("/auth/profile", authHandler.GetProfile)

	return r
}

// setupCartRouter sets up routes for cart handler tests.
func setupCartRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()
	cartHandler := &CartHandler{DB: db}

	api := r.Group("/api")
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	protected.GET("/cart", cartHandler.GetCart)
	protected.POST("/cart", cartHandler.AddToCart)
	protected.PUT("/cart/:id", cartHandler.UpdateCartItem)
	protected.DELETE("/cart/:id", cartHandler.RemoveFromCart)
	protected.DELETE("/cart", cartHandler.ClearCart)

	return r
}

// setupOrderRouter sets up routes for order handler tests.
func setupOrderRouter(db *gorm.DB) *gin.Engine {
	return setupOrderRouterWithGateway(db, nil)
}

func setupOrderRouterWithGateway(db *gorm.DB, gw services.PaymentGateway) *gin.Engine {
	r := gin.New()
	orderService := services.NewOrderService(db, gw)
	orderHandler := &OrderHandler{DB: db, Orders: orderService}
	paymentHandler := &PaymentHandler{DB: db, Orders: orderService}

	api := r.Group("/api")

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	protected.POST("/orders", orderHandler.CreateOrder)
	protected.GET("/orders", orderHandler.GetOrders)
	protected.GET("/orders/:id", orderHandler.GetOrder)
	protected.GET("/orders/:id/payments", paymentHandler.GetOrderPayments)
	protected.POST("/payments", paymentHandler.InitializePayment)
	protected.POST("/payments/:id/check", paymentHandler.CheckPayment)

	staff := api.Group("/staff")
	staff.Use(middleware.AuthMiddleware())
	staff.Use(middleware.StaffMiddleware())
	staff.PUT("/orders/:id/status", orderHandler.UpdateOrderStatus)

	manager := api.Group("/manager")
	manager.Use(middleware.AuthMiddleware())
	manager.Use(middleware.ManagerMiddleware())
	manager.PUT("/orders/:id/courier", orderHandler.AssignCourier)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware())
	admin.Use(middleware.AdminMiddleware())
	admin.GET("/dashboard", orderHandler.GetAdminDashboard)

	return r
}

// setupMenuRouter sets up routes for menu handler tests.
func setupMenuRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()
	menuHandler := &MenuHandler{DB: db}

	api := r.Group("/api")
	api.GET("/menu/categories", menuHandler.GetCategories)
	api.GET("/menu/items", menuHandler.GetMenuItems)
	api.GET("/menu/items/:id", menuHandler.GetMenuItem)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware())
	admin.Use(middleware.AdminMiddleware())
	admin.POST("/menu/categories", menuHandler.CreateCategory)
	admin.PUT("/menu/categories/:id", menuHandler.UpdateCategory)
	admin.DELETE("/menu/categories/:id", menuHandler.DeleteCategory)
	admin.POST("/menu/items", menuHandler.CreateMenuItem)
	admin.PUT("/menu/items/:id", menuHandler.UpdateMenuItem)
	admin.DELETE("/menu/items/:id", menuHandler.DeleteMenuItem)

	return r
}

// setupNotificationRouter sets up routes for notification handler tests.
func setupNotificationRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()
	notificationHandler := &NotificationHandler{DB: db}

	api := r.Group("/api")
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	protected.GET("/notifications", notificationHandler.GetNotifications)
	protected.GET("/notifications/unread-count", notificationHandler.GetUnreadCount)
	protected.PUT("/notifications/:id/read", notificationHandler.MarkRead)
	protected.PUT("/notifications/read-all", notificationHandler.MarkAllRead)

	return r
}

// setupReviewRouter sets up routes for review handler tests.
func setupReviewRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()
	reviewHandler := &ReviewHandler{DB: db}

	api := r.Group("/api")
	api.GET("/reviews", reviewHandler.GetReviews)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	protected.POST("/reviews", reviewHandler.CreateReview)

	manager := api.Group("/manager")
	manager.Use(middleware.AuthMiddleware())
	manager.Use(middleware.ManagerMiddleware())
	manager.GET("/reviews", reviewHandler.GetAllReviews)
	manager.PUT("/reviews/:id", reviewHandler.ModerateReview)

	return r
}

// setupMessageRouter sets up routes for staff messaging tests.
func setupMessageRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()
	messageHandler := &MessageHandler{DB: db}

	api := r.Group("/api")
	staff := api.Group("/staff")
	staff.Use(middleware.AuthMiddleware())
	staff.Use(middleware.StaffMiddleware())
	staff.POST("/messages", messageHandler.SendMessage)
	staff.GET("/messages/inbox", messageHandler.GetInbox)
	staff.GET("/messages/sent", messageHandler.GetSent)
	staff.PUT("/messages/:id/read", messageHandler.MarkRead)

	return r
}

// setupComplaintRouter sets up routes for complaint handler tests.
func setupComplaintRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()
	complaintHandler := &ComplaintHandler{DB: db}

	api := r.Group("/api")
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	protected.POST("/complaints", complaintHandler.CreateComplaint)
	protected.GET("/complaints", complaintHandler.GetMyComplaints)

	manager := api.Group("/manager")
	manager.Use(middleware.AuthMiddleware())
	manager.Use(middleware.ManagerMiddleware())
	manager.GET("/complaints", complaintHandler.GetAllComplaints)
	manager.PUT("/complaints/:id", complaintHandler.UpdateComplaint)

	return r
}

// setupLoyaltyRouter sets up routes for loyalty handler tests.
func setupLoyaltyRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()
	loyaltyHandler := &LoyaltyHandler{DB: db}

	api := r.Group("/api")
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	protected.GET("/loyalty/history", loyaltyHandler.GetMyHistory)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware())
	admin.Use(middleware.AdminMiddleware())
	admin.GET("/loyalty/settings", loyaltyHandler.GetSettings)
	admin.PUT("/loyalty/settings", loyaltyHandler.UpdateSettings)

	return r
}

// setupPromotionRouter sets up routes for promotion handler tests.
func setupPromotionRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()
	promotionHandler := &PromotionHandler{DB: db}

	api := r.Group("/api")
	api.GET("/promotions", promotionHandler.GetPromotions)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware())
	admin.Use(middleware.AdminMiddleware())
	admin.POST("/promotions", promotionHandler.CreatePromotion)
	admin.PUT("/promotions/:id", promotionHandler.UpdatePromotion)
	admin.DELETE("/promotions/:id", promotionHandler.DeletePromotion)

	return r
}

// ==================== Request Helpers ====================

// jsonRequest creates an HTTP request with JSON body.
func jsonRequest(method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// authRequest creates an HTTP request with JSON body and Authorization header.
func authRequest(method, url string, body interface{}, token string) *http.Request {
	req := jsonRequest(method, url, body)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// ==================== Response Helpers ====================

// parseResponse reads the response body into a map.
func parseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// parseResponseArray reads the response body into a slice of maps.
func parseResponseArray(w *httptest.ResponseRecorder) []interface{} {
	var result []interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}
