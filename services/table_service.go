// services/table_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"hazari-game-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const tableCodePrefix = "HGS"

type TableService struct {
	DB     *gorm.DB
	Wallet WalletAPI
	Users  UserAPI
}

func NewTableService(db *gorm.DB, wallet WalletAPI, users UserAPI) *TableService {
	return &TableService{DB: db, Wallet: wallet, Users: users}
}

// generateTableCode produces a "HGS-NNNNNN" candidate. Uniqueness is checked
// against the database by allocateCode.
func generateTableCode() string {
	return fmt.Sprintf("%s-%d", tableCodePrefix, 100000+rand.Intn(900000))
}

func (s *TableService) allocateCode(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		code := generateTableCode()
		var count int64
		if err := tx.Model(&models.Table{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errors.New("could not allocate a unique table code")
}

// resolveDisplayName prefers the local user mirror, falls back to a live
// profile lookup (and backfills the mirror), and finally to the raw user ID.
func (s *TableService) resolveDisplayName(tx *gorm.DB, userID string) string {
	var mirror models.UserMirror
	if err := tx.Where("user_id = ?", userID).First(&mirror).Error; err == nil {
		return mirror.DisplayName
	}

	profile, err := s.Users.GetProfile(userID)
	if err != nil || profile.DisplayName == "" {
		return userID
	}

	now := time.Now().UTC()
	mirror = models.UserMirror{
		ID:          uuid.NewString(),
		UserID:      userID,
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL,
		IsActive:    true,
		SyncedAt:    now,
	}
	if err := tx.Create(&mirror).Error; err != nil {
		log.Printf("Failed to backfill user mirror for %s: %v", userID, err)
	}
	return profile.DisplayName
}

// Create allocates a table, seats the creator at position 1 and debits the
// match fee. A rejected debit rolls the whole thing back — no table exists.
func (s *TableService) Create(creatorID string, matchFee float64) (*models.Table, error) {
	var table *models.Table
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		code, err := s.allocateCode(tx)
		if err != nil {
			return err
		}

		table = &models.Table{
			Code:      code,
			CreatorID: creatorID,
			MatchFee:  matchFee,
			Prize:     matchFee * models.MaxSeats,
			Status:    models.TableStatusWaiting,
			Seats: []models.TableSeat{{
				ID:          uuid.NewString(),
				TableCode:   code,
				Position:    1,
				UserID:      creatorID,
				DisplayName: s.resolveDisplayName(tx, creatorID),
				IsCreator:   true,
				JoinedAt:    time.Now().UTC(),
			}},
		}
		if err := tx.Create(table).Error; err != nil {
			return err
		}

		// Debit last: a wallet rejection unwinds the table and seat rows.
		return s.Wallet.Debit(creatorID, matchFee)
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

// Join claims the lowest free seat for the user. Filling the 4th seat flips
// the table to playing and creates the game in the same transaction — there is
// no window where a playing table has no active game.
func (s *TableService) Join(code, userID string) (*models.Table, error) {
	var table *models.Table
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		t, err := s.loadTable(tx, code)
		if err != nil {
			return err
		}
		if t.SeatOf(userID) != nil {
			return ErrAlreadySeated
		}
		if len(t.Seats) >= models.MaxSeats {
			return ErrTableFull
		}
		if t.Status != models.TableStatusWaiting {
			return ErrInvalidState
		}

		if err := s.claimSeat(tx, t, userID, t.LowestFreePosition()); err != nil {
			return err
		}
		table = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

// Leave vacates the user's seat while the table is still waiting and refunds
// the match fee. Leaving a playing table is a client-side disconnect, not a
// state change.
func (s *TableService) Leave(code, userID string) (*models.Table, error) {
	var table *models.Table
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		t, err := s.loadTable(tx, code)
		if err != nil {
			return err
		}
		if t.Status != models.TableStatusWaiting {
			return ErrInvalidState
		}
		seat := t.SeatOf(userID)
		if seat == nil {
			return ErrNotSeated
		}

		if err := s.bumpVersion(tx, t); err != nil {
			return err
		}
		if err := tx.Delete(&models.TableSeat{}, "id = ?", seat.ID).Error; err != nil {
			return err
		}

		remaining := make([]models.TableSeat, 0, len(t.Seats)-1)
		for _, st := range t.Seats {
			if st.ID != seat.ID {
				remaining = append(remaining, st)
			}
		}
		t.Seats = remaining
		table = t

		return s.Wallet.Credit(userID, t.MatchFee)
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

// Reset starts a fresh game on a completed table, reusing the seat
// assignments. Totals and round history start from zero.
func (s *TableService) Reset(code string) (*models.Table, *models.Game, error) {
	var (
		table *models.Table
		game  *models.Game
	)
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		t, err := s.loadTable(tx, code)
		if err != nil {
			return err
		}
		if t.Status != models.TableStatusCompleted {
			return ErrInvalidState
		}

		if err := s.bumpVersion(tx, t); err != nil {
			return err
		}
		if err := tx.Model(&models.Table{}).Where("code = ?", t.Code).
			Update("status", models.TableStatusPlaying).Error; err != nil {
			return err
		}
		t.Status = models.TableStatusPlaying

		g, err := startGame(tx, t)
		if err != nil {
			return err
		}
		table, game = t, g
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return table, game, nil
}

// Get returns a table with its seats.
func (s *TableService) Get(code string) (*models.Table, error) {
	return s.loadTable(s.DB, code)
}

// ListActive returns tables still waiting for players, newest first.
func (s *TableService) ListActive(limit int) ([]models.Table, error) {
	var tables []models.Table
	q := s.DB.Preload("Seats").
		Where("status = ?", models.TableStatusWaiting).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&tables).Error; err != nil {
		return nil, err
	}
	return tables, nil
}

func (s *TableService) loadTable(tx *gorm.DB, code string) (*models.Table, error) {
	var t models.Table
	if err := tx.Preload("Seats", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&t, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTableNotFound
		}
		return nil, err
	}
	return &t, nil
}

// bumpVersion is the per-table serialization point. Conditioning the update on
// the version we read means two concurrent seat mutations cannot both land.
func (s *TableService) bumpVersion(tx *gorm.DB, t *models.Table) error {
	res := tx.Model(&models.Table{}).
		Where("code = ? AND version = ?", t.Code, t.Version).
		Update("version", t.Version+1)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSeatConflict
	}
	t.Version++
	return nil
}

// claimSeat writes one seat for the user at the given position, debits the
// fee, and handles the 4th-seat transition. Shared by Join and invitation
// acceptance; the caller has already validated position availability.
func (s *TableService) claimSeat(tx *gorm.DB, t *models.Table, userID string, position int) error {
	if err := s.bumpVersion(tx, t); err != nil {
		return err
	}

	seat := models.TableSeat{
		ID:          uuid.NewString(),
		TableCode:   t.Code,
		Position:    position,
		UserID:      userID,
		DisplayName: s.resolveDisplayName(tx, userID),
		JoinedAt:    time.Now().UTC(),
	}
	if err := tx.Create(&seat).Error; err != nil {
		return err
	}
	t.Seats = append(t.Seats, seat)

	if err := s.Wallet.Debit(userID, t.MatchFee); err != nil {
		return err
	}

	if len(t.Seats) == models.MaxSeats {
		if err := tx.Model(&models.Table{}).Where("code = ?", t.Code).
			Update("status", models.TableStatusPlaying).Error; err != nil {
			return err
		}
		t.Status = models.TableStatusPlaying
		if _, err := startGame(tx, t); err != nil {
			return err
		}
		log.Printf("🎮 Table %s is full — game started", t.Code)
	}
	return nil
}

// --- HTTP handlers ---

func (s *TableService) CreateTable(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		MatchFee float64 `json:"match_fee"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.MatchFee <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "match_fee must be a positive amount"})
	}

	table, err := s.Create(userID, req.MatchFee)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(table)
}

func (s *TableService) GetActiveTables(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	tables, err := s.ListActive(limit)
	if err != nil {
		log.Printf("DB Error fetching active tables: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch tables"})
	}
	return c.JSON(tables)
}

func (s *TableService) GetTableDetails(c *fiber.Ctx) error {
	table, err := s.Get(c.Params("code"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(table)
}

func (s *TableService) JoinTable(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	table, err := s.Join(c.Params("code"), userID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(table)
}

func (s *TableService) LeaveTable(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	table, err := s.Leave(c.Params("code"), userID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(table)
}

func (s *TableService) ResetTable(c *fiber.Ctx) error {
	table, game, err := s.Reset(c.Params("code"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"table": table, "game": game})
}
