// services/errors.go
package services

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Every rejected operation maps to one of these so callers can tell a
// validation problem (fix the input) from a state conflict (refetch and retry)
// from plain absence.
var (
	ErrTableNotFound        = errors.New("table not found")
	ErrTableFull            = errors.New("table is full")
	ErrAlreadySeated        = errors.New("user is already seated at this table")
	ErrInvalidState         = errors.New("operation not allowed in current table state")
	ErrSeatOccupied         = errors.New("seat is already occupied")
	ErrSeatConflict         = errors.New("seat was claimed concurrently, refetch and retry")
	ErrNotSeated            = errors.New("user is not seated at this table")
	ErrInsufficientFunds    = errors.New("insufficient wallet balance")
	ErrInvalidPosition      = errors.New("position must be between 1 and 4")
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrInvitationNotPending = errors.New("invitation is no longer pending")
	ErrDuplicateInvitation  = errors.New("a pending invitation already targets this seat")
	ErrGameNotFound         = errors.New("game not found")
	ErrSessionNotActive     = errors.New("game session is not active")
	ErrInvalidRoundTotal    = errors.New("round points must sum to exactly 360")
	ErrInvalidRoundPlayers  = errors.New("round must contain exactly the four seated players")
	ErrStaleRound           = errors.New("another round was submitted first, refetch and retry")
	ErrNotLastRound         = errors.New("only the most recent round can be edited")
	ErrGameNotCompleted     = errors.New("game has no winner yet")
)

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrTableNotFound),
		errors.Is(err, ErrInvitationNotFound),
		errors.Is(err, ErrGameNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrInvalidPosition),
		errors.Is(err, ErrInvalidRoundTotal),
		errors.Is(err, ErrInvalidRoundPlayers):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrInsufficientFunds):
		return fiber.StatusPaymentRequired
	case errors.Is(err, ErrTableFull),
		errors.Is(err, ErrAlreadySeated),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrSeatOccupied),
		errors.Is(err, ErrSeatConflict),
		errors.Is(err, ErrNotSeated),
		errors.Is(err, ErrInvitationNotPending),
		errors.Is(err, ErrDuplicateInvitation),
		errors.Is(err, ErrSessionNotActive),
		errors.Is(err, ErrStaleRound),
		errors.Is(err, ErrNotLastRound),
		errors.Is(err, ErrGameNotCompleted):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// errorResponse translates a service error into the standard JSON error shape.
func errorResponse(c *fiber.Ctx, err error) error {
	status := statusForError(err)
	if status == fiber.StatusInternalServerError {
		return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
