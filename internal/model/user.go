package model

import (
	"errors"
	"time"
)

// ErrDuplicateEmail is returned by user stores when the email is already taken.
var ErrDuplicateEmail = errors.New("duplicate email")

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}
