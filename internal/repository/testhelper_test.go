package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/covenant-app/covenant-api/internal/database/migrations"
	"github.com/covenant-app/covenant-api/internal/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
// It runs migrations and returns a database connection that will be
// cleaned up when the test completes.
func setupTestDB(t *testing.T) *sql.DB {
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

	return db
}

// setupTestRepos creates all repositories using a test database.
func setupTestRepos(t *testing.T) *Repositories {
	t.Helper()
	db := setupTestDB(t)
	return NewRepositories(db)
}

// insertTestIdentity is a helper to insert the singleton identity row.
func insertTestIdentity(t *testing.T, repos *Repositories, health int) {
	t.Helper()
	now := time.Now()
	err := repos.Identity.Create(context.Background(), &models.Identity{
		AntiVision:        "a hollow man scrolling his life away",
		IdentityStatement: "I am a builder",
		OneYearMission:    "ship the thing",
		IdentityHealth:    health,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		t.Fatalf("failed to insert test identity: %v", err)
	}
}

// insertTestQuest is a helper to insert one quest row.
func insertTestQuest(t *testing.T, repos *Repositories, id, text string) {
	t.Helper()
	err := repos.Quest.Create(context.Background(), &models.Quest{
		ID:        id,
		QuestText: text,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to insert test quest: %v", err)
	}
}
