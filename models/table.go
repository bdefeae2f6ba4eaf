// models/table.go
package models

import (
	"time"
)

const (
	TableStatusWaiting   = "waiting"
	TableStatusPlaying   = "playing"
	TableStatusCompleted = "completed"
)

// MaxSeats is fixed — Hazari is always a four-player match.
const MaxSeats = 4

// Table is a 4-seat match lobby identified by its code (e.g. "HGS-483920").
// Prize is always MatchFee × 4 and both are frozen at creation.
type Table struct {
	Code      string  `json:"table_code" gorm:"primaryKey;size:16"`
	CreatorID string  `json:"creator_id" gorm:"not null;index"`
	MatchFee  float64 `json:"match_fee" gorm:"not null"`
	Prize     float64 `json:"prize" gorm:"not null"`
	Status    string  `json:"status" gorm:"not null;default:'waiting'"` // waiting | playing | completed

	// Version guards seat assignment: every seat mutation is conditioned on the
	// version it read, so two clients racing for the last seat cannot both win.
	Version int64 `json:"-" gorm:"not null;default:0"`

	Seats []TableSeat `json:"players" gorm:"foreignKey:TableCode;references:Code"`

	Timestamps
}

// TableSeat is one of the four positions at a table. The composite unique
// indexes make the database reject a double-claimed position or a user seated
// twice, even if the optimistic version check is ever bypassed.
type TableSeat struct {
	ID          string    `json:"-" gorm:"primaryKey"`
	TableCode   string    `json:"-" gorm:"not null;uniqueIndex:idx_seat_position;uniqueIndex:idx_seat_user"`
	Position    int       `json:"position" gorm:"not null;uniqueIndex:idx_seat_position;check:position >= 1 AND position <= 4"`
	UserID      string    `json:"user_id" gorm:"not null;uniqueIndex:idx_seat_user"`
	DisplayName string    `json:"name"`
	IsCreator   bool      `json:"is_creator"`
	JoinedAt    time.Time `json:"joined_at"`
}

// SeatAt returns the seat holding the given position, if any.
func (t *Table) SeatAt(position int) *TableSeat {
	for i := range t.Seats {
		if t.Seats[i].Position == position {
			return &t.Seats[i]
		}
	}
	return nil
}

// SeatOf returns the seat held by the given user, if any.
func (t *Table) SeatOf(userID string) *TableSeat {
	for i := range t.Seats {
		if t.Seats[i].UserID == userID {
			return &t.Seats[i]
		}
	}
	return nil
}

// LowestFreePosition returns the lowest unoccupied position, or 0 if full.
func (t *Table) LowestFreePosition() int {
	for pos := 1; pos <= MaxSeats; pos++ {
		if t.SeatAt(pos) == nil {
			return pos
		}
	}
	return 0
}
