package services

import (
	"errors"
	"fmt"
	"log"

	"resto-backend/models"

	"gorm.io/gorm"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// AttachReferral links a freshly registered user to the owner of the given
// referral code and pays the enrollment reward. An unknown or inactive code
// is not an error: registration proceeds and no referral row is created.
func (s *UserService) AttachReferral(user *models.User, code string) {
	if code == "" {
		return
	}

	var referrer models.User
	if err := s.DB.Where("referral_code = ? AND is_blocked = ?", code, false).First(&referrer).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("referral lookup failed for code %q: %v", code, err)
		}
		return
	}

	if referrer.ID == user.ID {
		return
	}

	settings := models.GetLoyaltySettings(s.DB)

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		referral := models.Referral{
			ReferrerID:     referrer.ID,
			ReferredUserID: user.ID,
		}
		if err := tx.Create(&referral).Error; err != nil {
			return err
		}
		if err := tx.Model(user).Update("referred_by_id", referrer.ID).Error; err != nil {
			return err
		}
		if err := creditPoints(tx, referrer.ID, settings.EnrollmentPoints,
			fmt.Sprintf("Referral reward: %s joined with your code", user.Name), nil); err != nil {
			return err
		}
		notif := models.Notification{
			UserID: referrer.ID,
			Title:  "Referral reward earned",
			Body:   fmt.Sprintf("You earned %d points for referring a new customer.", settings.EnrollmentPoints),
		}
		return tx.Create(&notif).Error
	})
	if err != nil {
		// Referral failures never block registration.
		log.Printf("failed to create referral for user %s with code %q: %v", user.ID, code, err)
	}
}
