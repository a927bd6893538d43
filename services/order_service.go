package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"resto-backend/gateway"
	"resto-backend/models"
	"resto-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeliveryFee is the flat fee applied to delivery orders. Dine-in orders
// pay no fee.
const DeliveryFee = 2000.0

var ErrEmptyCart = errors.New("cart is empty")
var ErrOrderNotFound = errors.New("order not found")
var ErrOrderAlreadyPaid = errors.New("order already paid")

// InsufficientPointsError carries the user's available balance so the
// caller can surface it.
type InsufficientPointsError struct {
	Requested int
	Available int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient loyalty points: %d requested, %d available", e.Requested, e.Available)
}

// PaymentGateway is the slice of the provider client the service needs.
type PaymentGateway interface {
	InitializeTransaction(intent gateway.Intent) gateway.InitResult
	CheckPaymentStatus(reference string) gateway.StatusResult
}

type OrderService struct {
	DB      *gorm.DB
	Gateway PaymentGateway
}

func NewOrderService(db *gorm.DB, gw PaymentGateway) *OrderService {
	return &OrderService{DB: db, Gateway: gw}
}

// CheckoutInput is the order intent submitted at checkout.
type CheckoutInput struct {
	DeliveryType         models.DeliveryType
	DeliveryAddress      string
	PointsToSpend        int
	Comment              string
	SpecialInstructions  string
	RequestedArrivalTime *time.Time
}

// CreateOrderFromCart transactionally converts the user's active cart into a
// placed order. Loyalty points are validated here but only deducted at
// payment confirmation, so an abandoned payment never costs points.
func (s *OrderService) CreateOrderFromCart(userID uuid.UUID, input CheckoutInput) (*models.Order, error) {
	var order models.Order

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		query := tx.Preload("Items")
		// SQLite has no row locks; its writes serialize anyway.
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := query.
			Where("user_id = ? AND status = ?", userID, models.OrderStatusCart).
			First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEmptyCart
			}
			return err
		}

		if len(order.Items) == 0 {
			return ErrEmptyCart
		}

		var subtotal float64
		for _, item := range order.Items {
			subtotal += item.UnitPrice * float64(item.Quantity)
		}

		discount := 0.0
		if input.PointsToSpend > 0 {
			var user models.User
			if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
				return err
			}
			if user.LoyaltyPoints < input.PointsToSpend {
				return &InsufficientPointsError{Requested: input.PointsToSpend, Available: user.LoyaltyPoints}
			}
			settings := models.GetLoyaltySettings(tx)
			discount = float64(input.PointsToSpend) * settings.RedemptionRate
			// Discount never exceeds the pre-discount subtotal.
			if discount > subtotal {
				discount = subtotal
			}
		}

		deliveryFee := 0.0
		if input.DeliveryType == models.DeliveryTypeDelivery {
			deliveryFee = DeliveryFee
		}

		total := subtotal + deliveryFee - discount
		if total < 0 {
			total = 0
		}

		now := time.Now()
		order.Status = models.OrderStatusPending
		order.DeliveryType = input.DeliveryType
		order.DeliveryAddress = input.DeliveryAddress
		order.Subtotal = subtotal
		order.DeliveryFee = deliveryFee
		order.PointsUsed = input.PointsToSpend
		order.Discount = discount
		order.Total = total
		order.Comment = input.Comment
		order.SpecialInstructions = input.SpecialInstructions
		order.RequestedArrivalTime = input.RequestedArrivalTime
		order.PlacedAt = &now

		return tx.Save(&order).Error
	})
	if err != nil {
		return nil, err
	}

	// The order is durable; everything below is best-effort and must never
	// fail the placement.
	s.runPostCommit(order.ID, []postCommitEffect{
		{"first-order referral bonus", func() error { return s.awardFirstOrderBonus(&order) }},
		{"confirmation email", func() error {
			var user models.User
			if err := s.DB.Where("id = ?", order.UserID).First(&user).Error; err != nil {
				return err
			}
			utils.SendOrderConfirmation(user.Email, user.Name, order.OrderNumber, order.Total)
			return nil
		}},
		{"customer notification", func() error {
			return s.createNotification(order.UserID, "Order placed",
				fmt.Sprintf("Your order %s has been placed. Total: %.0f FCFA", order.OrderNumber, order.Total), &order.ID)
		}},
		{"staff notifications", func() error { return s.notifyStaff(&order) }},
	})

	s.DB.Preload("Items").Preload("Items.MenuItem").First(&order, order.ID)
	return &order, nil
}

type postCommitEffect struct {
	name string
	run  func() error
}

// runPostCommit executes each effect independently. One failure is logged
// with the order id and never prevents the others from running.
func (s *OrderService) runPostCommit(orderID uuid.UUID, effects []postCommitEffect) {
	for _, e := range effects {
		if err := runSafely(e.run); err != nil {
			log.Printf("post-commit effect %q failed for order %s: %v", e.name, orderID, err)
		}
	}
}

func runSafely(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return f()
}

// awardFirstOrderBonus pays the second referral tranche the first time a
// referred user places a qualifying order. Prior orders are counted
// excluding the order just placed, so the bonus fires on the first
// placement and never again.
func (s *OrderService) awardFirstOrderBonus(order *models.Order) error {
	var priorOrders int64
	if err := s.DB.Model(&models.Order{}).
		Where("user_id = ? AND id != ? AND status NOT IN ?", order.UserID, order.ID,
			[]models.OrderStatus{models.OrderStatusCart, models.OrderStatusCancelled}).
		Count(&priorOrders).Error; err != nil {
		return err
	}
	if priorOrders >= 1 {
		return nil
	}

	var referral models.Referral
	if err := s.DB.Where("referred_user_id = ? AND first_order_rewarded = ?", order.UserID, false).
		First(&referral).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	settings := models.GetLoyaltySettings(s.DB)

	return s.DB.Transaction(func(tx *gorm.DB) error {
		// Conditional on the flag so concurrent first orders award at most once.
		res := tx.Model(&models.Referral{}).
			Where("id = ? AND first_order_rewarded = ?", referral.ID, false).
			Update("first_order_rewarded", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := creditPoints(tx, referral.ReferrerID, settings.FirstOrderPoints,
			"Referral bonus: first order placed by your referee", &order.ID); err != nil {
			return err
		}
		notif := models.Notification{
			UserID:  referral.ReferrerID,
			Title:   "Referral bonus earned",
			Body:    fmt.Sprintf("You earned %d points because your referee placed their first order.", settings.FirstOrderPoints),
			OrderID: &order.ID,
		}
		return tx.Create(&notif).Error
	})
}

func (s *OrderService) notifyStaff(order *models.Order) error {
	var staff []models.User
	if err := s.DB.Where("role IN ? AND is_blocked = ?", models.StaffRoles, false).Find(&staff).Error; err != nil {
		return err
	}
	for _, u := range staff {
		notif := models.Notification{
			UserID:  u.ID,
			Title:   "New order",
			Body:    fmt.Sprintf("Order %s was placed. Total: %.0f FCFA", order.OrderNumber, order.Total),
			OrderID: &order.ID,
		}
		if err := s.DB.Create(&notif).Error; err != nil {
			log.Printf("failed to notify staff user %s for order %s: %v", u.ID, order.ID, err)
		}
	}
	return nil
}

func (s *OrderService) createNotification(userID uuid.UUID, title, body string, orderID *uuid.UUID) error {
	notif := models.Notification{
		UserID:  userID,
		Title:   title,
		Body:    body,
		OrderID: orderID,
	}
	return s.DB.Create(&notif).Error
}

// creditPoints applies an atomic column increment so concurrent referral and
// order events on the same balance cannot lose updates.
func creditPoints(tx *gorm.DB, userID uuid.UUID, points int, description string, orderID *uuid.UUID) error {
	if err := tx.Model(&models.User{}).Where("id = ?", userID).
		Update("loyalty_points", gorm.Expr("loyalty_points + ?", points)).Error; err != nil {
		return err
	}
	history := models.LoyaltyHistory{
		UserID:      userID,
		Points:      points,
		Type:        "earned",
		Description: description,
		OrderID:     orderID,
	}
	return tx.Create(&history).Error
}

func debitPoints(tx *gorm.DB, userID uuid.UUID, points int, description string, orderID *uuid.UUID) error {
	if err := tx.Model(&models.User{}).Where("id = ?", userID).
		Update("loyalty_points", gorm.Expr("loyalty_points - ?", points)).Error; err != nil {
		return err
	}
	history := models.LoyaltyHistory{
		UserID:      userID,
		Points:      -points,
		Type:        "redeemed",
		Description: description,
		OrderID:     orderID,
	}
	return tx.Create(&history).Error
}

// InitializePayment opens a provider transaction for a placed order and
// records a pending payment row holding the provider reference.
func (s *OrderService) InitializePayment(orderID uuid.UUID, method, language string) (*models.Payment, gateway.InitResult, error) {
	if s.Gateway == nil {
		return nil, gateway.InitResult{}, errors.New("payment gateway not configured")
	}

	var order models.Order
	if err := s.DB.Preload("User").Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, gateway.InitResult{}, ErrOrderNotFound
	}

	if order.Status == models.OrderStatusCart {
		return nil, gateway.InitResult{}, errors.New("order has not been placed yet")
	}

	// One successful payment per order. A failed or cancelled attempt may be
	// retried, a paid order may not be paid again.
	var alreadyPaid int64
	if err := s.DB.Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", order.ID, models.PaymentStatusSuccess).
		Count(&alreadyPaid).Error; err != nil {
		return nil, gateway.InitResult{}, err
	}
	if alreadyPaid > 0 {
		return nil, gateway.InitResult{}, ErrOrderAlreadyPaid
	}

	payment := models.Payment{
		OrderID: order.ID,
		Method:  method,
		Amount:  order.Total,
		Status:  models.PaymentStatusPending,
	}
	if err := s.DB.Create(&payment).Error; err != nil {
		return nil, gateway.InitResult{}, err
	}

	if language == "" {
		language = "fr"
	}
	frontend := utils.FrontendURL()
	result := s.Gateway.InitializeTransaction(gateway.Intent{
		OrderRef:      order.OrderNumber,
		Currency:      "XOF",
		Amount:        order.Total,
		CustomerName:  order.User.Name,
		CustomerEmail: order.User.Email,
		Description:   fmt.Sprintf("Payment for order %s", order.OrderNumber),
		SuccessURL:    frontend + "/payment/success",
		ErrorURL:      frontend + "/payment/error",
		CancelURL:     frontend + "/payment/cancel",
		Language:      language,
		Channels:      []string{"CARD", "MOBILE_MONEY"},
	})

	if !result.Success {
		s.DB.Model(&payment).Update("status", models.PaymentStatusFailed)
		return &payment, result, nil
	}

	if err := s.DB.Model(&payment).Update("reference", result.Reference).Error; err != nil {
		return &payment, result, err
	}
	payment.Reference = result.Reference

	return &payment, result, nil
}

// ReconcilePayment polls the provider for the payment's state and applies
// the outcome. Loyalty points are deducted here, on confirmed success, not
// at order placement. A repeat success report on an already successful
// payment is ignored.
func (s *OrderService) ReconcilePayment(paymentID uuid.UUID) (*models.Payment, gateway.StatusResult, error) {
	if s.Gateway == nil {
		return nil, gateway.StatusResult{}, errors.New("payment gateway not configured")
	}

	var payment models.Payment
	if err := s.DB.Preload("Order").Preload("Order.User").Where("id = ?", paymentID).First(&payment).Error; err != nil {
		return nil, gateway.StatusResult{}, errors.New("payment not found")
	}

	if payment.Reference == "" {
		return &payment, gateway.StatusResult{Status: gateway.StatusError, Message: "payment has no provider reference"}, nil
	}

	result := s.Gateway.CheckPaymentStatus(payment.Reference)

	if payment.Status != models.PaymentStatusPending {
		// Already reconciled; report the provider state without mutating.
		return &payment, result, nil
	}

	switch result.Status {
	case gateway.StatusSuccess:
		var applied bool
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			// Conditional on the status so a concurrent reconciliation of the
			// same row applies the outcome at most once.
			res := tx.Model(&models.Payment{}).
				Where("id = ? AND status = ?", payment.ID, models.PaymentStatusPending).
				Updates(map[string]interface{}{
					"status":  models.PaymentStatusSuccess,
					"channel": result.Channel,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			applied = true

			// The order may carry several payment attempts; the debit and the
			// confirmation belong to the first one that succeeds.
			var paidBefore int64
			if err := tx.Model(&models.Payment{}).
				Where("order_id = ? AND id != ? AND status = ?",
					payment.OrderID, payment.ID, models.PaymentStatusSuccess).
				Count(&paidBefore).Error; err != nil {
				return err
			}
			if paidBefore > 0 {
				return nil
			}

			if payment.Order.PointsUsed > 0 {
				if err := debitPoints(tx, payment.Order.UserID, payment.Order.PointsUsed,
					fmt.Sprintf("Points redeemed on order %s", payment.Order.OrderNumber), &payment.OrderID); err != nil {
					return err
				}
			}
			if payment.Order.Status == models.OrderStatusPending {
				if err := tx.Model(&models.Order{}).Where("id = ?", payment.OrderID).
					Update("status", models.OrderStatusConfirmed).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return &payment, result, err
		}
		payment.Status = models.PaymentStatusSuccess
		if !applied {
			return &payment, result, nil
		}

		s.runPostCommit(payment.OrderID, []postCommitEffect{
			{"payment receipt email", func() error {
				utils.SendPaymentReceipt(payment.Order.User.Email, payment.Order.User.Name,
					payment.Order.OrderNumber, payment.Reference, payment.Amount)
				return nil
			}},
			{"payment notification", func() error {
				return s.createNotification(payment.Order.UserID, "Payment received",
					fmt.Sprintf("Your payment for order %s was received.", payment.Order.OrderNumber), &payment.OrderID)
			}},
		})

	case gateway.StatusCanceled:
		if err := s.DB.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, models.PaymentStatusPending).
			Update("status", models.PaymentStatusCancelled).Error; err != nil {
			return &payment, result, err
		}
		payment.Status = models.PaymentStatusCancelled

	case gateway.StatusDeclined:
		if err := s.DB.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, models.PaymentStatusPending).
			Update("status", models.PaymentStatusFailed).Error; err != nil {
			return &payment, result, err
		}
		payment.Status = models.PaymentStatusFailed

	case gateway.StatusNotFound, gateway.StatusError:
		// Nothing to apply; the caller decides what to do with the tag.
	}

	return &payment, result, nil
}
