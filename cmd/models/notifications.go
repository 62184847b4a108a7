package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	EmailStatusSent   = "sent"
	EmailStatusFailed = "failed"
)

// EmailNotification records one attempt to notify a doctor about an appointment.
type EmailNotification struct {
	ID            string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	AppointmentID string    `gorm:"column:appointment_id;size:36;index" json:"appointmentId"`
	Recipient     string    `gorm:"column:recipient;size:255;not null" json:"recipient"`
	Subject       string    `gorm:"column:subject;size:255" json:"subject"`
	Status        string    `gorm:"column:status;size:20;not null" json:"status"`
	Error         string    `gorm:"column:error;type:text" json:"error,omitempty"`
	SentAt        time.Time `gorm:"column:sent_at" json:"sentAt"`
}

func (EmailNotification) TableName() string {
	return "email_notifications"
}

func (n *EmailNotification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
