package services

import (
	"fmt"
	"sync"
	"testing"

	"hazari-game-system/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// A single connection keeps the shared-cache memory DB alive for the test.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Table{},
		&models.TableSeat{},
		&models.Invitation{},
		&models.Game{},
		&models.GamePlayer{},
		&models.GameRound{},
		&models.GameRoundScore{},
		&models.UserMirror{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

type walletOp struct {
	UserID string
	Amount float64
}

// fakeWallet is a test double for the wallet collaborator.
type fakeWallet struct {
	mu           sync.Mutex
	debits       []walletOp
	credits      []walletOp
	insufficient map[string]bool
	creditErr    error
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{insufficient: make(map[string]bool)}
}

func (f *fakeWallet) Debit(userID string, amount float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insufficient[userID] {
		return ErrInsufficientFunds
	}
	f.debits = append(f.debits, walletOp{UserID: userID, Amount: amount})
	return nil
}

func (f *fakeWallet) Credit(userID string, amount float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.creditErr != nil {
		return f.creditErr
	}
	f.credits = append(f.credits, walletOp{UserID: userID, Amount: amount})
	return nil
}

func (f *fakeWallet) creditsTo(userID string) []walletOp {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []walletOp
	for _, op := range f.credits {
		if op.UserID == userID {
			out = append(out, op)
		}
	}
	return out
}

func (f *fakeWallet) debitsFrom(userID string) []walletOp {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []walletOp
	for _, op := range f.debits {
		if op.UserID == userID {
			out = append(out, op)
		}
	}
	return out
}

// fakeUsers is a test double for the user-service collaborator.
type fakeUsers struct {
	mu           sync.Mutex
	profiles     map[string]string // userID -> display name
	achievements map[string][]string
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		profiles:     make(map[string]string),
		achievements: make(map[string][]string),
	}
}

func (f *fakeUsers) GetProfile(userID string) (*UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("no profile for %s", userID)
	}
	return &UserProfile{UserID: userID, DisplayName: name}, nil
}

func (f *fakeUsers) RecordRoundAchievement(userID, kind string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.achievements[userID] = append(f.achievements[userID], kind)
	return nil
}

func (f *fakeUsers) countAchievements(userID, kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, k := range f.achievements[userID] {
		if k == kind {
			n++
		}
	}
	return n
}

// testEnv bundles the services under test with their fakes.
type testEnv struct {
	db          *gorm.DB
	wallet      *fakeWallet
	users       *fakeUsers
	tables      *TableService
	games       *GameService
	invitations *InvitationService
	settlement  *SettlementService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	wallet := newFakeWallet()
	users := newFakeUsers()

	tables := NewTableService(db, wallet, users)
	games := NewGameService(db)
	return &testEnv{
		db:          db,
		wallet:      wallet,
		users:       users,
		tables:      tables,
		games:       games,
		invitations: NewInvitationService(db, tables),
		settlement:  NewSettlementService(db, wallet, users, games),
	}
}

// playingTable creates a table for "alice" and fills the remaining seats with
// "bob", "carol" and "dave", returning the table and its active game.
func (e *testEnv) playingTable(t *testing.T, fee float64) (*models.Table, *GameView) {
	t.Helper()

	table, err := e.tables.Create("alice", fee)
	if err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	for _, user := range []string{"bob", "carol", "dave"} {
		if _, err := e.tables.Join(table.Code, user); err != nil {
			t.Fatalf("failed to join table as %s: %v", user, err)
		}
	}

	game, err := e.games.ActiveForTable(table.Code)
	if err != nil {
		t.Fatalf("no active game after filling table: %v", err)
	}
	table, err = e.tables.Get(table.Code)
	if err != nil {
		t.Fatalf("failed to reload table: %v", err)
	}
	return table, game
}

// round builds a four-entry round for alice/bob/carol/dave in that order.
func round(a, b, c, d int) []RoundEntry {
	return []RoundEntry{
		{UserID: "alice", Points: a},
		{UserID: "bob", Points: b},
		{UserID: "carol", Points: c},
		{UserID: "dave", Points: d},
	}
}

func totalFor(t *testing.T, view *GameView, userID string) int {
	t.Helper()
	for _, p := range view.Players {
		if p.UserID == userID {
			return p.TotalScore
		}
	}
	t.Fatalf("player %s not found in game", userID)
	return 0
}
