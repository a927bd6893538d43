package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleCustomer = "customer"
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
	RoleCourier  = "courier"
)

// StaffRoles are the roles that receive back-office order notifications.
var StaffRoles = []string{RoleEmployee, RoleManager, RoleAdmin}

type User struct {
	ID            uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Email         string         `gorm:"uniqueIndex;not null" json:"email"`
	Password      string         `gorm:"not null" json:"-"`
	Name          string         `json:"name"`
	Phone         string         `json:"phone"`
	Role          string         `gorm:"default:customer" json:"role"` // customer, employee, manager, admin, courier
	LoyaltyPoints int            `gorm:"default:0" json:"loyalty_points"`
	ReferralCode  string         `gorm:"uniqueIndex" json:"referral_code"`
	ReferredByID  *uuid.UUID     `gorm:"type:uuid;index" json:"referred_by_id,omitempty"`
	IsBlocked     bool           `gorm:"default:false" json:"is_blocked"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.ReferralCode == "" {
		u.ReferralCode = "REF-" + u.ID.String()[:8]
	}
	return nil
}

// IsStaff reports whether the user belongs to a back-office role.
func (u *User) IsStaff() bool {
	for _, r := range StaffRoles {
		if u.Role == r {
			return true
		}
	}
	return false
}
