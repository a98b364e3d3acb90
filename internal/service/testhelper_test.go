package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/covenant-app/covenant-api/internal/billing"
	"github.com/covenant-app/covenant-api/internal/config"
	"github.com/covenant-app/covenant-api/internal/database/migrations"
	"github.com/covenant-app/covenant-api/internal/models"
	"github.com/covenant-app/covenant-api/internal/repository"
)

// setupTestRepos creates an in-memory database with migrations applied and
// returns repositories bound to it.
func setupTestRepos(t *testing.T) *repository.Repositories {
	t.Helper()

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	if err := migrations.Run(db, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	return repository.NewRepositories(db)
}

func testConfig() *config.Config {
	return &config.Config{
		InsuranceEnabled:     true,
		InsuranceProductID:   "covenant.insurance.revival",
		PurchaseTimeout:      time.Second,
		RevivalIH:            50,
		RestoreRevivalIH:     10,
		QuestPenaltyIH:       20,
		QuestRewardIH:        5,
		RolloverPollInterval: time.Minute,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedActiveIdentity inserts an identity at the given health and marks the
// app active, the state every post-onboarding test starts from.
func seedActiveIdentity(t *testing.T, repos *repository.Repositories, health int) {
	t.Helper()
	now := time.Now()
	err := repos.Identity.Create(context.Background(), &models.Identity{
		AntiVision:        "the hollow man",
		IdentityStatement: "I am a builder",
		OneYearMission:    "ship the thing",
		IdentityHealth:    health,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		t.Fatalf("failed to seed identity: %v", err)
	}
	if err := repos.AppState.SetState(context.Background(), models.AppStateActive); err != nil {
		t.Fatalf("failed to set app state: %v", err)
	}
}

func seedQuest(t *testing.T, repos *repository.Repositories, id, text string) {
	t.Helper()
	err := repos.Quest.Create(context.Background(), &models.Quest{
		ID:        id,
		QuestText: text,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to seed quest: %v", err)
	}
}

// stubProvider is a scriptable billing.Provider for tests.
type stubProvider struct {
	available bool
	product   *billing.Product
	result    billing.PurchaseResult
	finished  []string
}

func (s *stubProvider) Initialize(context.Context) bool             { return s.available }
func (s *stubProvider) GetProduct(context.Context) *billing.Product { return s.product }
func (s *stubProvider) Purchase(context.Context) billing.PurchaseResult {
	return s.result
}
func (s *stubProvider) FinishTransaction(_ context.Context, id string) error {
	s.finished = append(s.finished, id)
	return nil
}
func (s *stubProvider) CheckPendingTransactions(context.Context) []string { return nil }
