package services

import (
	"errors"
	"testing"

	"hazari-game-system/models"
)

func TestSendInvitation(t *testing.T) {
	env := newTestEnv(t)
	table, err := env.tables.Create("alice", 20)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	inv, err := env.invitations.Send(table.Code, "alice", "bob", 2)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if inv.Status != models.InvitationStatusPending {
		t.Errorf("expected pending invitation, got %s", inv.Status)
	}
	if inv.TargetPlayerID != "bob" || inv.Position != 2 {
		t.Errorf("invitation fields wrong: %+v", inv)
	}

	// One pending invitation per seat.
	if _, err := env.invitations.Send(table.Code, "alice", "carol", 2); !errors.Is(err, ErrDuplicateInvitation) {
		t.Errorf("expected ErrDuplicateInvitation, got %v", err)
	}
	// The creator's own seat is taken.
	if _, err := env.invitations.Send(table.Code, "alice", "bob", 1); !errors.Is(err, ErrSeatOccupied) {
		t.Errorf("expected ErrSeatOccupied, got %v", err)
	}
	// Position out of range is a validation failure, not a seat conflict.
	if _, err := env.invitations.Send(table.Code, "alice", "bob", 5); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("expected ErrInvalidPosition for position 5, got %v", err)
	}
	if _, err := env.invitations.Send(table.Code, "alice", "bob", 0); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("expected ErrInvalidPosition for position 0, got %v", err)
	}
	// Cannot invite someone already at the table.
	if _, err := env.invitations.Send(table.Code, "alice", "alice", 3); !errors.Is(err, ErrAlreadySeated) {
		t.Errorf("expected ErrAlreadySeated, got %v", err)
	}
	// Only a seated player may reserve seats at the table.
	if _, err := env.invitations.Send(table.Code, "mallory", "bob", 3); !errors.Is(err, ErrNotSeated) {
		t.Errorf("expected ErrNotSeated for unseated sender, got %v", err)
	}
}

func TestAcceptInvitation(t *testing.T) {
	env := newTestEnv(t)
	table, err := env.tables.Create("alice", 20)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	inv, err := env.invitations.Send(table.Code, "alice", "bob", 3)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	accepted, err := env.invitations.Accept(inv.ID)
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	seat := accepted.SeatOf("bob")
	if seat == nil || seat.Position != 3 {
		t.Fatalf("expected bob at reserved position 3, got %+v", seat)
	}
	if len(env.wallet.debitsFrom("bob")) != 1 {
		t.Errorf("accepting a seat must debit the match fee")
	}

	var reloaded models.Invitation
	if err := env.db.First(&reloaded, "id = ?", inv.ID).Error; err != nil {
		t.Fatalf("failed to reload invitation: %v", err)
	}
	if reloaded.Status != models.InvitationStatusAccepted {
		t.Errorf("expected accepted status, got %s", reloaded.Status)
	}

	// Terminal: a second accept fails.
	if _, err := env.invitations.Accept(inv.ID); !errors.Is(err, ErrInvitationNotPending) {
		t.Errorf("expected ErrInvitationNotPending on re-accept, got %v", err)
	}
}

func TestAcceptInvitation_SeatFilledMeanwhile(t *testing.T) {
	env := newTestEnv(t)
	table, err := env.tables.Create("alice", 20)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	inv, err := env.invitations.Send(table.Code, "alice", "bob", 2)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// Carol walks in and takes position 2 before bob accepts.
	if _, err := env.tables.Join(table.Code, "carol"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	if _, err := env.invitations.Accept(inv.ID); !errors.Is(err, ErrSeatOccupied) {
		t.Fatalf("expected ErrSeatOccupied, got %v", err)
	}

	// The failed accept leaves the invitation pending and bob unseated.
	var reloaded models.Invitation
	if err := env.db.First(&reloaded, "id = ?", inv.ID).Error; err != nil {
		t.Fatalf("failed to reload invitation: %v", err)
	}
	if reloaded.Status != models.InvitationStatusPending {
		t.Errorf("expected invitation still pending, got %s", reloaded.Status)
	}
	if len(env.wallet.debitsFrom("bob")) != 0 {
		t.Errorf("failed accept must not debit the target")
	}
}

func TestAcceptInvitation_FillsFourthSeat(t *testing.T) {
	env := newTestEnv(t)
	table, err := env.tables.Create("alice", 20)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for _, user := range []string{"bob", "carol"} {
		if _, err := env.tables.Join(table.Code, user); err != nil {
			t.Fatalf("Join failed: %v", err)
		}
	}
	inv, err := env.invitations.Send(table.Code, "alice", "dave", 4)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	accepted, err := env.invitations.Accept(inv.ID)
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if accepted.Status != models.TableStatusPlaying {
		t.Errorf("expected table playing after accept filled it, got %s", accepted.Status)
	}

	game, err := env.games.ActiveForTable(table.Code)
	if err != nil {
		t.Fatalf("expected active game after accept filled the table: %v", err)
	}
	if len(game.Players) != 4 {
		t.Errorf("expected 4 players in started game, got %d", len(game.Players))
	}
}

func TestRejectInvitation(t *testing.T) {
	env := newTestEnv(t)
	table, err := env.tables.Create("alice", 20)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	inv, err := env.invitations.Send(table.Code, "alice", "bob", 2)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if err := env.invitations.Reject(inv.ID); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if err := env.invitations.Reject(inv.ID); !errors.Is(err, ErrInvitationNotPending) {
		t.Errorf("expected ErrInvitationNotPending on second reject, got %v", err)
	}
	// Rejected invitations cannot be accepted.
	if _, err := env.invitations.Accept(inv.ID); !errors.Is(err, ErrInvitationNotPending) {
		t.Errorf("expected ErrInvitationNotPending accepting a rejected invitation, got %v", err)
	}

	// The seat it reserved is free again.
	if _, err := env.invitations.Send(table.Code, "alice", "carol", 2); err != nil {
		t.Errorf("seat should be invitable after reject, got %v", err)
	}
}

func TestListInvitations(t *testing.T) {
	env := newTestEnv(t)
	table, err := env.tables.Create("alice", 20)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	first, err := env.invitations.Send(table.Code, "alice", "bob", 2)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if _, err := env.invitations.Send(table.Code, "alice", "bob", 3); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if err := env.invitations.Reject(first.ID); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}

	all, err := env.invitations.ListForUser("bob", false)
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 invitations for bob, got %d", len(all))
	}

	pending, err := env.invitations.ListForUser("bob", true)
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if len(pending) != 1 || pending[0].Position != 3 {
		t.Errorf("expected one pending invitation at position 3, got %+v", pending)
	}

	forTable, err := env.invitations.ListForTable(table.Code)
	if err != nil {
		t.Fatalf("ListForTable failed: %v", err)
	}
	if len(forTable) != 2 {
		t.Errorf("expected 2 invitations for table, got %d", len(forTable))
	}
}
