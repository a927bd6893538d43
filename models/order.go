package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusCart      OrderStatus = "cart"
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type DeliveryType string

const (
	DeliveryTypeDineIn   DeliveryType = "dine_in"
	DeliveryTypeDelivery DeliveryType = "delivery"
)

type Order struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID               uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User                 User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	OrderNumber          string         `gorm:"uniqueIndex;not null" json:"order_number"`
	Status               OrderStatus    `gorm:"default:cart;index" json:"status"`
	DeliveryType         DeliveryType   `gorm:"default:dine_in" json:"delivery_type"`
	DeliveryAddress      string         `json:"delivery_address"`
	Subtotal             float64        `gorm:"default:0" json:"subtotal"`
	DeliveryFee          float64        `gorm:"default:0" json:"delivery_fee"`
	PointsUsed           int            `gorm:"default:0" json:"points_used"`
	Discount             float64        `gorm:"default:0" json:"discount"`
	Total                float64        `gorm:"default:0" json:"total"`
	Comment              string         `json:"comment"`
	SpecialInstructions  string         `json:"special_instructions"`
	RequestedArrivalTime *time.Time     `json:"requested_arrival_time,omitempty"`
	CourierID            *uuid.UUID     `gorm:"type:uuid;index" json:"courier_id,omitempty"`
	Courier              *User          `gorm:"foreignKey:CourierID" json:"courier,omitempty"`
	Items                []OrderItem    `gorm:"foreignKey:OrderID" json:"items"`
	PlacedAt             *time.Time     `json:"placed_at,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

// OrderItem snapshots the menu item name and unit price at the time it was
// added to the cart. Once the order leaves cart status the line is immutable.
type OrderItem struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OrderID    uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	Order      Order     `gorm:"foreignKey:OrderID" json:"-"`
	MenuItemID uuid.UUID `gorm:"type:uuid;not null;index" json:"menu_item_id"`
	MenuItem   MenuItem  `gorm:"foreignKey:MenuItemID" json:"menu_item"`
	ItemName   string    `json:"item_name"`
	UnitPrice  float64   `gorm:"not null" json:"unit_price"`
	Quantity   int       `gorm:"not null" json:"quantity"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.OrderNumber == "" {
		o.OrderNumber = "CMD" + time.Now().Format("20060102150405") + o.ID.String()[:8]
	}
	return nil
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// AllowedTransitions defines the valid order status state machine.
// cart -> pending happens only through checkout, never through the
// back-office status endpoint.
var AllowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusCart:      {},
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:     {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

// IsValidTransition checks if a status transition is allowed.
func IsValidTransition(from, to OrderStatus) bool {
	allowed, exists := AllowedTransitions[from]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}
