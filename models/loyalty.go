package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Defaults used when no LoyaltySettings row exists yet.
const (
	DefaultEnrollmentPoints = 10
	DefaultFirstOrderPoints = 20
	DefaultRedemptionRate   = 67.0 // monetary units per point
)

// LoyaltySettings is a single mutable row of loyalty parameters, read at
// point-of-use so operations can tune rewards without a redeploy.
type LoyaltySettings struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	EnrollmentPoints int       `gorm:"default:10" json:"enrollment_points"`
	FirstOrderPoints int       `gorm:"default:20" json:"first_order_points"`
	RedemptionRate   float64   `gorm:"default:67" json:"redemption_rate"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type LoyaltyHistory struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User        User       `gorm:"foreignKey:UserID" json:"-"`
	Points      int        `gorm:"not null" json:"points"`
	Type        string     `gorm:"not null" json:"type"` // "earned" or "redeemed"
	Description string     `json:"description"`
	OrderID     *uuid.UUID `gorm:"type:uuid" json:"order_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (s *LoyaltySettings) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (h *LoyaltyHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// GetLoyaltySettings returns the current loyalty parameters, falling back to
// the package defaults when the row is missing.
func GetLoyaltySettings(db *gorm.DB) LoyaltySettings {
	var s LoyaltySettings
	if err := db.First(&s).Error; err != nil {
		return LoyaltySettings{
			EnrollmentPoints: DefaultEnrollmentPoints,
			FirstOrderPoints: DefaultFirstOrderPoints,
			RedemptionRate:   DefaultRedemptionRate,
		}
	}
	return s
}
