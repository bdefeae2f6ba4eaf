// models/game.go
package models

import (
	"time"
)

const (
	GameStatusActive    = "active"
	GameStatusCompleted = "completed"
)

const (
	// RoundTotal is the invariant every round must satisfy: the four players'
	// points always sum to exactly 360.
	RoundTotal = 360

	BaseWinningThreshold     = 1000
	ExtendedWinningThreshold = 1500
)

// Game is one scoring session of a table: the round ledger, running totals
// and the win-threshold state machine. A table can host many games over its
// lifetime (one per reset), but at most one active game at a time.
type Game struct {
	ID        string  `json:"id" gorm:"primaryKey"`
	TableCode string  `json:"table_code" gorm:"not null;index"`
	MatchFee  float64 `json:"match_fee" gorm:"not null"`
	Prize     float64 `json:"prize" gorm:"not null"`
	Status    string  `json:"status" gorm:"not null;default:'active'"` // active | completed

	WinningThreshold int  `json:"winning_threshold" gorm:"not null;default:1000"`
	IsExtended       bool `json:"is_extended" gorm:"not null;default:false"`

	// RoundCount doubles as the optimistic-concurrency token for submissions:
	// appending round N+1 is conditioned on RoundCount == N.
	RoundCount int `json:"round_count" gorm:"not null;default:0"`

	// Winner fields are populated exactly once, when the win rule fires.
	WinnerUserID      string `json:"winner_user_id,omitempty"`
	WinnerName        string `json:"winner_name,omitempty"`
	WinnerFinalScore  int    `json:"winner_final_score,omitempty"`
	WinnerRoundPoints int    `json:"winner_round_points,omitempty"`

	// SettledAt is set only after the prize credit has gone through. A game can
	// sit completed-but-unsettled if the wallet service is unreachable; the
	// settlement worker retries those.
	SettledAt *time.Time `json:"settled_at,omitempty"`

	Players []GamePlayer `json:"players" gorm:"foreignKey:GameID"`

	Timestamps
}

// GamePlayer carries a seat assignment into a game plus the running total.
// TotalScore is never mutated independently — it always equals the sum of the
// player's points across the game's rounds.
type GamePlayer struct {
	ID          string `json:"-" gorm:"primaryKey"`
	GameID      string `json:"-" gorm:"not null;uniqueIndex:idx_game_player"`
	UserID      string `json:"user_id" gorm:"not null;uniqueIndex:idx_game_player"`
	Position    int    `json:"position" gorm:"not null"`
	DisplayName string `json:"name"`
	TotalScore  int    `json:"total_score" gorm:"not null;default:0"`
}

// GameRound is one appended round. Only the most recent round of an active
// game may be edited, and at most that flag ever changes after insert.
type GameRound struct {
	ID          string    `json:"-" gorm:"primaryKey"`
	GameID      string    `json:"-" gorm:"not null;uniqueIndex:idx_game_round"`
	RoundNumber int       `json:"round_number" gorm:"not null;uniqueIndex:idx_game_round"`
	Edited      bool      `json:"edited" gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"created_at"`
}

// GameRoundScore is a single player's points in a single round.
type GameRoundScore struct {
	ID          string `json:"-" gorm:"primaryKey"`
	GameID      string `json:"-" gorm:"not null;index;uniqueIndex:idx_round_score"`
	RoundNumber int    `json:"round_number" gorm:"not null;uniqueIndex:idx_round_score"`
	UserID      string `json:"user_id" gorm:"not null;uniqueIndex:idx_round_score"`
	Points      int    `json:"points" gorm:"not null"`
}
