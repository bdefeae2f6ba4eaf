// services/game_service.go
package services

import (
	"errors"
	"log"

	"hazari-game-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GameService struct {
	DB *gorm.DB
}

func NewGameService(db *gorm.DB) *GameService {
	return &GameService{DB: db}
}

// RoundEntry is one player's points within a submitted round.
type RoundEntry struct {
	UserID string `json:"user_id"`
	Points int    `json:"points"`
}

// RoundView is a round as returned to clients, scores attached.
type RoundView struct {
	RoundNumber int          `json:"round_number"`
	Edited      bool         `json:"edited"`
	Players     []RoundEntry `json:"players"`
}

// GameView is the snapshot clients poll: the game row, its round ledger and
// the completion flag the submitting client uses to trigger settlement.
type GameView struct {
	*models.Game
	Rounds    []RoundView `json:"rounds"`
	Completed bool        `json:"completed"`
}

// startGame creates the active game for a table whose four seats are filled.
// Called inside the transaction that flips the table to playing (4th seat or
// reset), so a playing table always has its game.
func startGame(tx *gorm.DB, t *models.Table) (*models.Game, error) {
	game := &models.Game{
		ID:               uuid.NewString(),
		TableCode:        t.Code,
		MatchFee:         t.MatchFee,
		Prize:            t.Prize,
		Status:           models.GameStatusActive,
		WinningThreshold: models.BaseWinningThreshold,
	}
	for _, seat := range t.Seats {
		game.Players = append(game.Players, models.GamePlayer{
			ID:          uuid.NewString(),
			GameID:      game.ID,
			UserID:      seat.UserID,
			Position:    seat.Position,
			DisplayName: seat.DisplayName,
		})
	}
	if err := tx.Create(game).Error; err != nil {
		return nil, err
	}
	return game, nil
}

// validateRound checks the 360-point invariant and that the entries are
// exactly the game's four players, each once.
func validateRound(game *models.Game, entries []RoundEntry) error {
	if len(entries) != models.MaxSeats {
		return ErrInvalidRoundPlayers
	}
	seen := make(map[string]bool, models.MaxSeats)
	total := 0
	for _, e := range entries {
		if seen[e.UserID] {
			return ErrInvalidRoundPlayers
		}
		seen[e.UserID] = true
		total += e.Points
	}
	for _, p := range game.Players {
		if !seen[p.UserID] {
			return ErrInvalidRoundPlayers
		}
	}
	if total != models.RoundTotal {
		return ErrInvalidRoundTotal
	}
	return nil
}

// SubmitRound appends a round and runs the win rule against the new totals.
// The append is conditioned on expectedRounds (the round count the caller
// based its submission on); a concurrent submission that landed first makes
// the condition fail and the caller gets ErrStaleRound.
//
// expectedRounds < 0 means "whatever the current count is" — the single-writer
// fallback used by clients that do not track the ledger length.
func (s *GameService) SubmitRound(gameID string, entries []RoundEntry, expectedRounds int) (*GameView, error) {
	var view *GameView
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		game, err := s.loadGame(tx, gameID)
		if err != nil {
			return err
		}
		if game.Status != models.GameStatusActive {
			return ErrSessionNotActive
		}
		if err := validateRound(game, entries); err != nil {
			return err
		}

		expected := game.RoundCount
		if expectedRounds >= 0 {
			expected = expectedRounds
		}

		res := tx.Model(&models.Game{}).
			Where("id = ? AND round_count = ? AND status = ?", gameID, expected, models.GameStatusActive).
			Update("round_count", expected+1)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleRound
		}
		game.RoundCount = expected + 1

		roundNumber := game.RoundCount
		if err := tx.Create(&models.GameRound{
			ID:          uuid.NewString(),
			GameID:      gameID,
			RoundNumber: roundNumber,
		}).Error; err != nil {
			return err
		}

		points := make(map[string]int, models.MaxSeats)
		for _, e := range entries {
			points[e.UserID] = e.Points
			if err := tx.Create(&models.GameRoundScore{
				ID:          uuid.NewString(),
				GameID:      gameID,
				RoundNumber: roundNumber,
				UserID:      e.UserID,
				Points:      e.Points,
			}).Error; err != nil {
				return err
			}
		}

		for i := range game.Players {
			p := &game.Players[i]
			p.TotalScore += points[p.UserID]
			if err := tx.Model(&models.GamePlayer{}).Where("id = ?", p.ID).
				Update("total_score", p.TotalScore).Error; err != nil {
				return err
			}
		}

		if err := s.evaluateWinRule(tx, game, points); err != nil {
			return err
		}

		view, err = s.assembleView(tx, game)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// evaluateWinRule applies the threshold rule to the totals just written.
//
// At 1000: a lone player at or above the threshold wins; two or more crossing
// together extend the match to 1500 without declaring a winner. At 1500: a
// lone player wins, otherwise the strictly highest total wins — an exact tie
// between the leaders declares nobody and play continues.
func (s *GameService) evaluateWinRule(tx *gorm.DB, game *models.Game, roundPoints map[string]int) error {
	var above []*models.GamePlayer
	for i := range game.Players {
		if game.Players[i].TotalScore >= game.WinningThreshold {
			above = append(above, &game.Players[i])
		}
	}
	if len(above) == 0 {
		return nil
	}

	if game.WinningThreshold == models.BaseWinningThreshold {
		if len(above) == 1 {
			return s.declareWinner(tx, game, above[0], roundPoints)
		}
		// Extension: two or more crossed 1000 in the same round.
		game.WinningThreshold = models.ExtendedWinningThreshold
		game.IsExtended = true
		return tx.Model(&models.Game{}).Where("id = ?", game.ID).
			Updates(map[string]interface{}{
				"winning_threshold": models.ExtendedWinningThreshold,
				"is_extended":       true,
			}).Error
	}

	if len(above) == 1 {
		return s.declareWinner(tx, game, above[0], roundPoints)
	}

	leader := above[0]
	tied := false
	for _, p := range above[1:] {
		if p.TotalScore > leader.TotalScore {
			leader = p
			tied = false
		} else if p.TotalScore == leader.TotalScore {
			tied = true
		}
	}
	if tied {
		// Equal totals at 1500: nobody wins this round, play continues.
		return nil
	}
	return s.declareWinner(tx, game, leader, roundPoints)
}

func (s *GameService) declareWinner(tx *gorm.DB, game *models.Game, winner *models.GamePlayer, roundPoints map[string]int) error {
	game.Status = models.GameStatusCompleted
	game.WinnerUserID = winner.UserID
	game.WinnerName = winner.DisplayName
	game.WinnerFinalScore = winner.TotalScore
	game.WinnerRoundPoints = roundPoints[winner.UserID]

	if err := tx.Model(&models.Game{}).Where("id = ?", game.ID).
		Updates(map[string]interface{}{
			"status":              models.GameStatusCompleted,
			"winner_user_id":      game.WinnerUserID,
			"winner_name":         game.WinnerName,
			"winner_final_score":  game.WinnerFinalScore,
			"winner_round_points": game.WinnerRoundPoints,
		}).Error; err != nil {
		return err
	}

	// The table follows the game: playing → completed.
	if err := tx.Model(&models.Table{}).Where("code = ?", game.TableCode).
		Update("status", models.TableStatusCompleted).Error; err != nil {
		return err
	}

	log.Printf("🏆 Game %s won by %s with %d points", game.ID, game.WinnerName, game.WinnerFinalScore)
	return nil
}

// EditLastRound replaces the scores of the most recent round and recomputes
// every player's total from the full round history — not by delta — so totals
// stay consistent no matter how many edits have happened.
func (s *GameService) EditLastRound(gameID string, roundNumber int, entries []RoundEntry) (*GameView, error) {
	var view *GameView
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		game, err := s.loadGame(tx, gameID)
		if err != nil {
			return err
		}
		if game.Status != models.GameStatusActive {
			return ErrSessionNotActive
		}
		if roundNumber < 1 || roundNumber != game.RoundCount {
			return ErrNotLastRound
		}
		if err := validateRound(game, entries); err != nil {
			return err
		}

		// Re-assert both guards with a conditioned write, the same way the
		// submission append is conditioned: a concurrent submission (or the
		// completion it triggered) landing after the read above makes this
		// affect zero rows, and the round we were about to rewrite is no
		// longer the last one.
		res := tx.Model(&models.Game{}).
			Where("id = ? AND round_count = ? AND status = ?", gameID, roundNumber, models.GameStatusActive).
			Update("round_count", roundNumber)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotLastRound
		}

		for _, e := range entries {
			if err := tx.Model(&models.GameRoundScore{}).
				Where("game_id = ? AND round_number = ? AND user_id = ?", gameID, roundNumber, e.UserID).
				Update("points", e.Points).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.GameRound{}).
			Where("game_id = ? AND round_number = ?", gameID, roundNumber).
			Update("edited", true).Error; err != nil {
			return err
		}

		if err := s.recomputeTotals(tx, game); err != nil {
			return err
		}

		view, err = s.assembleView(tx, game)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// recomputeTotals rebuilds every player's total from the score rows.
func (s *GameService) recomputeTotals(tx *gorm.DB, game *models.Game) error {
	var sums []struct {
		UserID string
		Total  int
	}
	if err := tx.Model(&models.GameRoundScore{}).
		Select("user_id, COALESCE(SUM(points), 0) AS total").
		Where("game_id = ?", game.ID).
		Group("user_id").
		Scan(&sums).Error; err != nil {
		return err
	}

	totals := make(map[string]int, len(sums))
	for _, row := range sums {
		totals[row.UserID] = row.Total
	}
	for i := range game.Players {
		p := &game.Players[i]
		p.TotalScore = totals[p.UserID]
		if err := tx.Model(&models.GamePlayer{}).Where("id = ?", p.ID).
			Update("total_score", p.TotalScore).Error; err != nil {
			return err
		}
	}
	return nil
}

// Get returns the full snapshot of a game.
func (s *GameService) Get(gameID string) (*GameView, error) {
	game, err := s.loadGame(s.DB, gameID)
	if err != nil {
		return nil, err
	}
	return s.assembleView(s.DB, game)
}

// ActiveForTable returns the table's current active game.
func (s *GameService) ActiveForTable(tableCode string) (*GameView, error) {
	var game models.Game
	err := s.DB.Preload("Players", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where("table_code = ? AND status = ?", tableCode, models.GameStatusActive).
		Order("created_at DESC").
		First(&game).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return s.assembleView(s.DB, &game)
}

// History lists completed games the user played in, newest first.
func (s *GameService) History(userID string, limit int) ([]models.Game, error) {
	var games []models.Game
	q := s.DB.Preload("Players", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Joins("JOIN game_players ON game_players.game_id = games.id").
		Where("game_players.user_id = ? AND games.status = ?", userID, models.GameStatusCompleted).
		Order("games.created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&games).Error; err != nil {
		return nil, err
	}
	return games, nil
}

func (s *GameService) loadGame(tx *gorm.DB, gameID string) (*models.Game, error) {
	var game models.Game
	err := tx.Preload("Players", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&game, "id = ?", gameID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return &game, nil
}

func (s *GameService) assembleView(tx *gorm.DB, game *models.Game) (*GameView, error) {
	var rounds []models.GameRound
	if err := tx.Where("game_id = ?", game.ID).
		Order("round_number ASC").
		Find(&rounds).Error; err != nil {
		return nil, err
	}

	var scores []models.GameRoundScore
	if err := tx.Where("game_id = ?", game.ID).
		Order("round_number ASC").
		Find(&scores).Error; err != nil {
		return nil, err
	}

	byRound := make(map[int][]RoundEntry, len(rounds))
	for _, sc := range scores {
		byRound[sc.RoundNumber] = append(byRound[sc.RoundNumber], RoundEntry{
			UserID: sc.UserID,
			Points: sc.Points,
		})
	}

	view := &GameView{
		Game:      game,
		Rounds:    make([]RoundView, 0, len(rounds)),
		Completed: game.Status == models.GameStatusCompleted,
	}
	for _, r := range rounds {
		view.Rounds = append(view.Rounds, RoundView{
			RoundNumber: r.RoundNumber,
			Edited:      r.Edited,
			Players:     byRound[r.RoundNumber],
		})
	}
	return view, nil
}

// --- HTTP handlers ---

func (s *GameService) GetGameDetails(c *fiber.Ctx) error {
	view, err := s.Get(c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(view)
}

func (s *GameService) GetActiveGame(c *fiber.Ctx) error {
	view, err := s.ActiveForTable(c.Params("code"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(view)
}

func (s *GameService) AddRound(c *fiber.Ctx) error {
	var req struct {
		RoundData      []RoundEntry `json:"round_data"`
		ExpectedRounds *int         `json:"expected_rounds"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	expected := -1
	if req.ExpectedRounds != nil {
		if *req.ExpectedRounds < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "expected_rounds must be non-negative"})
		}
		expected = *req.ExpectedRounds
	}

	view, err := s.SubmitRound(c.Params("id"), req.RoundData, expected)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(view)
}

func (s *GameService) EditRound(c *fiber.Ctx) error {
	roundNumber, err := c.ParamsInt("roundNumber")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid round number"})
	}

	var req struct {
		RoundData []RoundEntry `json:"round_data"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	view, err := s.EditLastRound(c.Params("id"), roundNumber, req.RoundData)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(view)
}

func (s *GameService) GetGameHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	games, err := s.History(c.Params("userId"), limit)
	if err != nil {
		log.Printf("DB Error fetching game history: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch game history"})
	}
	return c.JSON(games)
}
