package models

import (
	"time"
)

// User carries only what the vote engine touches. Accounts, credentials
// and profiles are owned by the auth collaborator.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"not null" json:"username"`
	Karma     int       `gorm:"not null;default:0" json:"karma"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
