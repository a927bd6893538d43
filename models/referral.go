package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Referral links a referring user to a referred user. Each user can only be
// referred once; FirstOrderRewarded tracks whether the second reward tranche
// has been paid out.
type Referral struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ReferrerID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"referrer_id"`
	Referrer           User           `gorm:"foreignKey:ReferrerID" json:"referrer,omitempty"`
	ReferredUserID     uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null" json:"referred_user_id"`
	ReferredUser       User           `gorm:"foreignKey:ReferredUserID" json:"referred_user,omitempty"`
	FirstOrderRewarded bool           `gorm:"default:false" json:"first_order_rewarded"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (r *Referral) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
