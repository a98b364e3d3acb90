package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/covenant-app/covenant-api/internal/models"
)

func TestWipeLogRepository_AppendAndList(t *testing.T) {
	repos := setupTestRepos(t)

	older := time.Now().Add(-time.Hour)
	newer := time.Now()

	if err := repos.WipeLog.Append(context.Background(), &models.WipeLogEntry{
		ID: "w1", WipedAt: older, Reason: models.WipeReasonIHZero, FinalIHValue: 0,
	}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := repos.WipeLog.Append(context.Background(), &models.WipeLogEntry{
		ID: "w2", WipedAt: newer, Reason: models.WipeReasonUserRequest, FinalIHValue: 30,
	}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := repos.WipeLog.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "w2" {
		t.Errorf("expected most recent first, got %s", entries[0].ID)
	}
	if entries[1].Reason != models.WipeReasonIHZero {
		t.Errorf("unexpected reason: %s", entries[1].Reason)
	}
}

func TestWipeLogRepository_EnsureTableIdempotent(t *testing.T) {
	repos := setupTestRepos(t)

	if err := repos.WipeLog.EnsureTable(context.Background()); err != nil {
		t.Fatalf("EnsureTable failed: %v", err)
	}
	if err := repos.WipeLog.EnsureTable(context.Background()); err != nil {
		t.Fatalf("second EnsureTable failed: %v", err)
	}
}

func TestBackupRepository_RoundTrip(t *testing.T) {
	repos := setupTestRepos(t)

	backup, err := repos.Backup.Get(context.Background())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if backup != nil {
		t.Fatalf("expected no backup, got %+v", backup)
	}

	if err := repos.Backup.Upsert(context.Background(), &models.IdentityBackup{
		AntiVision:        "hollow",
		IdentityStatement: "builder",
		OneYearMission:    "ship",
		OriginalIH:        42,
		BackedUpAt:        time.Now(),
	}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	backup, err = repos.Backup.Get(context.Background())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if backup == nil {
		t.Fatal("expected backup")
	}
	if backup.OriginalIH != 42 || backup.IdentityStatement != "builder" {
		t.Errorf("round trip mismatch: %+v", backup)
	}

	// A second upsert replaces, never duplicates.
	if err := repos.Backup.Upsert(context.Background(), &models.IdentityBackup{
		AntiVision: "hollow", IdentityStatement: "builder", OneYearMission: "ship",
		OriginalIH: 7, BackedUpAt: time.Now(),
	}); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	backup, err = repos.Backup.Get(context.Background())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if backup.OriginalIH != 7 {
		t.Errorf("expected replacement, got original_ih %d", backup.OriginalIH)
	}

	if err := repos.Backup.Delete(context.Background()); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	backup, err = repos.Backup.Get(context.Background())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if backup != nil {
		t.Errorf("expected nil after delete, got %+v", backup)
	}
}

func TestInsuranceRepository_RecordAndList(t *testing.T) {
	repos := setupTestRepos(t)

	if err := repos.Insurance.RecordPurchase(context.Background(), &models.InsurancePurchase{
		ID:            "p1",
		TransactionID: "txn_123",
		ProductID:     "covenant.insurance.revival",
		PriceAmount:   9.99,
		PriceCurrency: "USD",
		LifeNumber:    1,
		PurchasedAt:   time.Now(),
		IHBefore:      0,
		IHAfter:       10,
	}); err != nil {
		t.Fatalf("RecordPurchase failed: %v", err)
	}

	purchases, err := repos.Insurance.ListPurchases(context.Background())
	if err != nil {
		t.Fatalf("ListPurchases failed: %v", err)
	}
	if len(purchases) != 1 {
		t.Fatalf("expected 1 purchase, got %d", len(purchases))
	}
	p := purchases[0]
	if p.TransactionID != "txn_123" || p.IHAfter != 10 || p.PriceAmount != 9.99 {
		t.Errorf("round trip mismatch: %+v", p)
	}
}

var errRollback = errors.New("boom")

func TestWithTx_RollsBackOnError(t *testing.T) {
	repos := setupTestRepos(t)
	insertTestIdentity(t, repos, 100)

	err := repos.WithTx(context.Background(), func(tx *Repositories) error {
		if err := tx.Identity.SetHealth(context.Background(), 5); err != nil {
			return err
		}
		return errRollback
	})
	if err != errRollback {
		t.Fatalf("expected rollback error, got %v", err)
	}

	health, err := repos.Identity.GetHealth(context.Background())
	if err != nil {
		t.Fatalf("GetHealth failed: %v", err)
	}
	if health != 100 {
		t.Errorf("expected rollback to 100, got %d", health)
	}
}
