package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentStatus string

const (
	StatusConfirmed AppointmentStatus = "CONFIRMED"
	StatusCompleted AppointmentStatus = "COMPLETED"
	StatusCancelled AppointmentStatus = "CANCELLED"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

const (
	DefaultReason   = "General consultation"
	DefaultDuration = 30

	// DateLayout is the wire format of an appointment's calendar date.
	DateLayout = "2006-01-02"
)

type Appointment struct {
	ID        string            `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID    string            `gorm:"column:user_id;size:36;not null;index" json:"userId"`
	DoctorID  string            `gorm:"column:doctor_id;size:36;not null;index" json:"doctorId"`
	Date      time.Time         `gorm:"column:appointment_date;not null" json:"-"`
	Time      string            `gorm:"column:appointment_time;size:20;not null" json:"time"`
	Reason    string            `gorm:"column:reason;size:500" json:"reason"`
	Status    AppointmentStatus `gorm:"column:status;size:20;not null" json:"status"`
	Duration  int               `gorm:"column:duration;not null" json:"duration"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`

	User   *User   `gorm:"foreignKey:UserID" json:"-"`
	Doctor *Doctor `gorm:"foreignKey:DoctorID" json:"-"`
}

func (Appointment) TableName() string {
	return "appointments"
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// ParseDate reads a YYYY-MM-DD string as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
}
