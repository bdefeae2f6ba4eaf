// models/user_mirror.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// UserMirror mirrors profile data from the user service so that seating a
// player resolves a display name without a synchronous profile call.
// Table name: user_mirrors
type UserMirror struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"not null;uniqueIndex" json:"user_id"` // External user ID
	DisplayName string    `gorm:"not null" json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	SyncedAt    time.Time `gorm:"not null" json:"synced_at"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
