package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConnectionProfile represents a saved connection to a consultation backend
type ConnectionProfile struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"unique;not null" json:"name"`
	BaseURL     string    `gorm:"not null;column:base_url" json:"base_url"`
	Username    string    `gorm:"not null" json:"username"`
	PasswordEnc string    `gorm:"not null;column:password_enc" json:"-"` // Encrypted, never expose in JSON
	TokenEnc    string    `gorm:"column:token_enc" json:"-"`             // Encrypted JWT from last login
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (cp *ConnectionProfile) BeforeCreate(tx *gorm.DB) error {
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GORM
func (ConnectionProfile) TableName() string {
	return "connection_profiles"
}
