package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// User mirrors an identity-provider account locally. Rows are created and
// updated by the sync path only.
type User struct {
	ID        string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	ClerkID   string    `gorm:"column:clerk_id;size:255;not null;uniqueIndex" json:"clerkId"`
	Email     string    `gorm:"column:email;size:255;not null" json:"email"`
	FirstName string    `gorm:"column:first_name;size:255" json:"firstName"`
	LastName  string    `gorm:"column:last_name;size:255" json:"lastName"`
	Phone     *string   `gorm:"column:phone;size:50" json:"phone"`
	Gender    Gender    `gorm:"column:gender;size:10;not null" json:"gender"`
	Password  string    `gorm:"column:password;size:255;not null" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// FullName joins first and last name, trimming the gap when either is empty.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
