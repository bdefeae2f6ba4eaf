// models/invitation.go
package models

const (
	InvitationStatusPending  = "pending"
	InvitationStatusAccepted = "accepted"
	InvitationStatusRejected = "rejected"
)

// Invitation reserves a specific seat at a table for a specific player.
// It is terminal once accepted or rejected — acceptance re-checks the seat
// against the live table, never against the state at send time.
type Invitation struct {
	ID             string `json:"id" gorm:"primaryKey"`
	TableCode      string `json:"table_code" gorm:"not null;index"`
	FromUserID     string `json:"from_user_id" gorm:"not null"`
	TargetPlayerID string `json:"target_player_id" gorm:"not null;index"`
	Position       int    `json:"position" gorm:"not null"`
	Status         string `json:"status" gorm:"not null;default:'pending'"` // pending | accepted | rejected

	Timestamps
}
