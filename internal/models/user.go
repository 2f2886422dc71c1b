package models

import (
	"strings"
	"time"
)

// UserRole is the system wide role carried in the access token.
type UserRole string

const (
	RoleUser  UserRole = "User"
	RoleAdmin UserRole = "Admin"
)

type User struct {
	ID           int64     `gorm:"primaryKey" json:"id" db:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email" db:"email"`
	Username     string    `gorm:"not null" json:"userName" db:"username"`
	PasswordHash string    `gorm:"not null" json:"-" db:"password_hash"`
	Role         UserRole  `gorm:"type:varchar(16);not null" json:"role" db:"role"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

func (User) TableName() string { return "users" }

// NormalizeEmail lowercases and trims an address so lookups are case insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
