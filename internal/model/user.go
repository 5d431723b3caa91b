package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID               uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Email            string    `gorm:"uniqueIndex;not null"`
	HashedPassword   string    `gorm:"not null"`
	Name             string    `gorm:"not null"`
	ResetToken       *string   `gorm:"index"`
	ResetTokenExpiry *time.Time
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}
