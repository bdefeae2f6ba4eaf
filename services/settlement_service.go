// services/settlement_service.go
package services

import (
	"errors"
	"log"
	"time"

	"hazari-game-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type SettlementService struct {
	DB     *gorm.DB
	Wallet WalletAPI
	Users  UserAPI
	Games  *GameService
}

func NewSettlementService(db *gorm.DB, wallet WalletAPI, users UserAPI, games *GameService) *SettlementService {
	return &SettlementService{DB: db, Wallet: wallet, Users: users, Games: games}
}

// Settle pays out a completed game exactly once. The claim is a
// state-conditioned update on settled_at: whichever caller flips it performs
// the credit and the achievement updates, every other caller sees zero rows
// affected and returns the game untouched. A failed wallet credit rolls the
// claim back, so the game stays completed-but-unsettled and retryable.
func (s *SettlementService) Settle(gameID string) (*models.Game, error) {
	var settled *models.Game
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var game models.Game
		if err := tx.First(&game, "id = ?", gameID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGameNotFound
			}
			return err
		}
		if game.Status != models.GameStatusCompleted {
			return ErrGameNotCompleted
		}
		if game.SettledAt != nil {
			settled = &game
			return nil
		}

		now := time.Now().UTC()
		res := tx.Model(&models.Game{}).
			Where("id = ? AND status = ? AND settled_at IS NULL", gameID, models.GameStatusCompleted).
			Update("settled_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the claim race — the other caller settles.
			settled = &game
			return nil
		}
		game.SettledAt = &now

		if err := s.Wallet.Credit(game.WinnerUserID, game.Prize); err != nil {
			return err
		}

		s.recordAchievements(tx, &game)

		settled = &game
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}

// recordAchievements bumps perfect-round (a 360-point round) and zero-round
// counters with the user service. Best effort: a failure here never blocks
// settlement, the prize has already moved.
func (s *SettlementService) recordAchievements(tx *gorm.DB, game *models.Game) {
	var scores []models.GameRoundScore
	if err := tx.Where("game_id = ? AND (points = ? OR points = 0)", game.ID, models.RoundTotal).
		Find(&scores).Error; err != nil {
		log.Printf("DB Error loading achievement rounds for game %s: %v", game.ID, err)
		return
	}

	for _, sc := range scores {
		kind := AchievementZeroRound
		if sc.Points == models.RoundTotal {
			kind = AchievementPerfectRound
		}
		if err := s.Users.RecordRoundAchievement(sc.UserID, kind); err != nil {
			log.Printf("Failed to record %s round for %s (game %s): %v", kind, sc.UserID, game.ID, err)
		}
	}
}

// RetryUnsettled re-drives games whose prize credit has not gone through yet.
// Called by the settlement scheduler.
func (s *SettlementService) RetryUnsettled() {
	var games []models.Game
	err := s.DB.Where("status = ? AND settled_at IS NULL", models.GameStatusCompleted).
		Find(&games).Error
	if err != nil {
		log.Printf("[Settlement] DB error: %v", err)
		return
	}

	for _, g := range games {
		if _, err := s.Settle(g.ID); err != nil {
			log.Printf("[Settlement] Retry failed for game %s: %v", g.ID, err)
		} else {
			log.Printf("✅ Settled game %s (winner %s, prize %.2f)", g.ID, g.WinnerName, g.Prize)
		}
	}
}

// --- HTTP handlers ---

// CompleteGame is idempotent: duplicate client retries after the winner modal
// all resolve to the same settled game with a single wallet credit.
func (s *SettlementService) CompleteGame(c *fiber.Ctx) error {
	game, err := s.Settle(c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	view, err := s.Games.assembleView(s.DB, game)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(view)
}
