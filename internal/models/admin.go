package models

import "time"

// AdminUser is an operator of the platform, authenticated separately from users.
// The hash is hex(sha256(password || salt)).
type AdminUser struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Username     string     `gorm:"size:100;uniqueIndex;not null" json:"username"`
	PasswordHash string     `gorm:"size:64;not null" json:"-"`
	Salt         string     `gorm:"size:64;not null" json:"-"`
	Role         AdminRole  `gorm:"size:20;not null" json:"role"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}
