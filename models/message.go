package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is internal staff-to-staff messaging.
type Message struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	SenderID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"sender_id"`
	Sender      User       `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	RecipientID uuid.UUID  `gorm:"type:uuid;not null;index" json:"recipient_id"`
	Recipient   User       `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`
	Subject     string     `json:"subject"`
	Body        string     `gorm:"not null" json:"body"`
	IsRead      bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
