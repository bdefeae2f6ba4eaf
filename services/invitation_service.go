// services/invitation_service.go
package services

import (
	"errors"
	"log"

	"hazari-game-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvitationService struct {
	DB     *gorm.DB
	Tables *TableService
}

func NewInvitationService(db *gorm.DB, tables *TableService) *InvitationService {
	return &InvitationService{DB: db, Tables: tables}
}

// Send reserves an empty seat for a target player, on behalf of someone
// already seated at the table. At most one pending invitation may target a
// given (table, position) pair.
func (s *InvitationService) Send(tableCode, fromUserID, targetPlayerID string, position int) (*models.Invitation, error) {
	if position < 1 || position > models.MaxSeats {
		return nil, ErrInvalidPosition
	}

	var invitation *models.Invitation
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		table, err := s.Tables.loadTable(tx, tableCode)
		if err != nil {
			return err
		}
		if table.SeatOf(fromUserID) == nil {
			return ErrNotSeated
		}
		if table.SeatAt(position) != nil {
			return ErrSeatOccupied
		}
		if table.SeatOf(targetPlayerID) != nil {
			return ErrAlreadySeated
		}

		var pending int64
		if err := tx.Model(&models.Invitation{}).
			Where("table_code = ? AND position = ? AND status = ?", tableCode, position, models.InvitationStatusPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return ErrDuplicateInvitation
		}

		invitation = &models.Invitation{
			ID:             uuid.NewString(),
			TableCode:      tableCode,
			FromUserID:     fromUserID,
			TargetPlayerID: targetPlayerID,
			Position:       position,
			Status:         models.InvitationStatusPending,
		}
		return tx.Create(invitation).Error
	})
	if err != nil {
		return nil, err
	}
	return invitation, nil
}

// Accept consumes a pending invitation and seats the target player at the
// reserved position. The seat is re-checked against the live table inside the
// transaction — a seat filled since the invitation was sent fails the accept
// and leaves the invitation pending.
func (s *InvitationService) Accept(invitationID string) (*models.Table, error) {
	var table *models.Table
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		inv, err := s.load(tx, invitationID)
		if err != nil {
			return err
		}

		t, err := s.Tables.loadTable(tx, inv.TableCode)
		if err != nil {
			return err
		}
		if t.SeatAt(inv.Position) != nil {
			return ErrSeatOccupied
		}
		if t.SeatOf(inv.TargetPlayerID) != nil {
			return ErrAlreadySeated
		}
		if t.Status != models.TableStatusWaiting {
			return ErrInvalidState
		}

		// pending → accepted is state-conditioned: a concurrent accept or a
		// prior reject makes this affect zero rows.
		res := tx.Model(&models.Invitation{}).
			Where("id = ? AND status = ?", invitationID, models.InvitationStatusPending).
			Update("status", models.InvitationStatusAccepted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvitationNotPending
		}

		if err := s.Tables.claimSeat(tx, t, inv.TargetPlayerID, inv.Position); err != nil {
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

// Reject marks the invitation rejected. Terminal — a second reject (or a
// reject after accept) fails.
func (s *InvitationService) Reject(invitationID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := s.load(tx, invitationID); err != nil {
			return err
		}
		res := tx.Model(&models.Invitation{}).
			Where("id = ? AND status = ?", invitationID, models.InvitationStatusPending).
			Update("status", models.InvitationStatusRejected)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvitationNotPending
		}
		return nil
	})
}

// ListForUser returns a player's invitations, pending first, newest first.
func (s *InvitationService) ListForUser(playerID string, pendingOnly bool) ([]models.Invitation, error) {
	var invitations []models.Invitation
	q := s.DB.Where("target_player_id = ?", playerID)
	if pendingOnly {
		q = q.Where("status = ?", models.InvitationStatusPending)
	}
	if err := q.Order("created_at DESC").Find(&invitations).Error; err != nil {
		return nil, err
	}
	return invitations, nil
}

// ListForTable returns all invitations sent from a table.
func (s *InvitationService) ListForTable(tableCode string) ([]models.Invitation, error) {
	var invitations []models.Invitation
	if err := s.DB.Where("table_code = ?", tableCode).
		Order("created_at DESC").
		Find(&invitations).Error; err != nil {
		return nil, err
	}
	return invitations, nil
}

func (s *InvitationService) load(tx *gorm.DB, id string) (*models.Invitation, error) {
	var inv models.Invitation
	if err := tx.First(&inv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// --- HTTP handlers ---

func (s *InvitationService) SendInvitation(c *fiber.Ctx) error {
	fromUserID := c.Locals("user_id").(string)

	var req struct {
		TableCode      string `json:"table_code"`
		TargetPlayerID string `json:"target_player_id"`
		Position       int    `json:"position"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.TableCode == "" || req.TargetPlayerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "table_code and target_player_id are required"})
	}

	invitation, err := s.Send(req.TableCode, fromUserID, req.TargetPlayerID, req.Position)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(invitation)
}

func (s *InvitationService) GetUserInvitations(c *fiber.Ctx) error {
	pendingOnly := c.Query("status") == models.InvitationStatusPending
	invitations, err := s.ListForUser(c.Params("playerId"), pendingOnly)
	if err != nil {
		log.Printf("DB Error fetching user invitations: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch invitations"})
	}
	return c.JSON(invitations)
}

func (s *InvitationService) GetTableInvitations(c *fiber.Ctx) error {
	invitations, err := s.ListForTable(c.Params("code"))
	if err != nil {
		log.Printf("DB Error fetching table invitations: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch invitations"})
	}
	return c.JSON(invitations)
}

func (s *InvitationService) AcceptInvitation(c *fiber.Ctx) error {
	table, err := s.Accept(c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(table)
}

func (s *InvitationService) RejectInvitation(c *fiber.Ctx) error {
	if err := s.Reject(c.Params("id")); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"message": "Invitation rejected"})
}
