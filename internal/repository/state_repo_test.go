package repository

import (
	"context"
	"testing"

	"github.com/covenant-app/covenant-api/internal/models"
)

func TestAppStateRepository_DefaultsToOnboarding(t *testing.T) {
	repos := setupTestRepos(t)

	state, err := repos.AppState.Get(context.Background())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if state.State != models.AppStateOnboarding {
		t.Errorf("expected onboarding default, got %s", state.State)
	}
	if state.LifeNumber != 1 {
		t.Errorf("expected life_number 1, got %d", state.LifeNumber)
	}
	if state.HasUsedInsurance {
		t.Error("expected insurance unused by default")
	}
}

func TestAppStateRepository_SetState(t *testing.T) {
	repos := setupTestRepos(t)

	if err := repos.AppState.SetState(context.Background(), models.AppStateActive); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}

	state, err := repos.AppState.Get(context.Background())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if state.State != models.AppStateActive {
		t.Errorf("expected active, got %s", state.State)
	}
}

func TestAppStateRepository_AdvanceLife(t *testing.T) {
	repos := setupTestRepos(t)

	if err := repos.AppState.SetState(context.Background(), models.AppStateActive); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}
	if err := repos.AppState.SetInsuranceUsed(context.Background(), true); err != nil {
		t.Fatalf("SetInsuranceUsed failed: %v", err)
	}

	if err := repos.AppState.AdvanceLife(context.Background()); err != nil {
		t.Fatalf("AdvanceLife failed: %v", err)
	}

	state, err := repos.AppState.Get(context.Background())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if state.LifeNumber != 2 {
		t.Errorf("expected life_number 2, got %d", state.LifeNumber)
	}
	if state.HasUsedInsurance {
		t.Error("advancing a life must reset the insurance flag")
	}
}

func TestDailyStateRepository_InitAndSet(t *testing.T) {
	repos := setupTestRepos(t)

	stored, err := repos.DailyState.InitIfAbsent(context.Background(), "2024-01-12")
	if err != nil {
		t.Fatalf("InitIfAbsent failed: %v", err)
	}
	if stored != "2024-01-12" {
		t.Errorf("expected 2024-01-12, got %s", stored)
	}

	// A second init does not overwrite the existing marker.
	stored, err = repos.DailyState.InitIfAbsent(context.Background(), "2024-01-13")
	if err != nil {
		t.Fatalf("InitIfAbsent failed: %v", err)
	}
	if stored != "2024-01-12" {
		t.Errorf("init must not overwrite, got %s", stored)
	}

	if err := repos.DailyState.SetDate(context.Background(), "2024-01-15"); err != nil {
		t.Fatalf("SetDate failed: %v", err)
	}
	state, err := repos.DailyState.Get(context.Background())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if state.CurrentDate != "2024-01-15" {
		t.Errorf("expected 2024-01-15, got %s", state.CurrentDate)
	}
}

func TestDailyStateRepository_DeleteAll(t *testing.T) {
	repos := setupTestRepos(t)

	if _, err := repos.DailyState.InitIfAbsent(context.Background(), "2024-01-12"); err != nil {
		t.Fatalf("InitIfAbsent failed: %v", err)
	}
	if err := repos.DailyState.DeleteAll(context.Background()); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}

	state, err := repos.DailyState.Get(context.Background())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if state != nil {
		t.Errorf("expected nil after delete, got %+v", state)
	}
}

func TestOnboardingRepository_StepPointer(t *testing.T) {
	repos := setupTestRepos(t)

	state, err := repos.Onboarding.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if state.CurrentStep != models.StepCovenant {
		t.Errorf("expected covenant default, got %s", state.CurrentStep)
	}

	if err := repos.Onboarding.SetStep(context.Background(), models.StepMission); err != nil {
		t.Fatalf("SetStep failed: %v", err)
	}
	state, err = repos.Onboarding.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if state.CurrentStep != models.StepMission {
		t.Errorf("expected mission, got %s", state.CurrentStep)
	}
}

func TestOnboardingRepository_UpsertFieldPreservesSiblings(t *testing.T) {
	repos := setupTestRepos(t)

	if err := repos.Onboarding.UpsertField(context.Background(), models.StepExcavation, "the hollow man"); err != nil {
		t.Fatalf("UpsertField failed: %v", err)
	}
	if err := repos.Onboarding.UpsertField(context.Background(), models.StepIdentity, "I am a builder"); err != nil {
		t.Fatalf("UpsertField failed: %v", err)
	}
	if err := repos.Onboarding.UpsertQuests(context.Background(), "train", "write"); err != nil {
		t.Fatalf("UpsertQuests failed: %v", err)
	}

	data, err := repos.Onboarding.GetData(context.Background())
	if err != nil {
		t.Fatalf("GetData failed: %v", err)
	}
	if data.AntiVision != "the hollow man" {
		t.Errorf("anti_vision lost: %q", data.AntiVision)
	}
	if data.IdentityStatement != "I am a builder" {
		t.Errorf("identity_statement lost: %q", data.IdentityStatement)
	}
	if data.Quest1 != "train" || data.Quest2 != "write" {
		t.Errorf("quests lost: %q / %q", data.Quest1, data.Quest2)
	}
}

func TestOnboardingRepository_UpsertFieldUnknownStep(t *testing.T) {
	repos := setupTestRepos(t)

	if err := repos.Onboarding.UpsertField(context.Background(), models.StepCovenant, "x"); err == nil {
		t.Error("expected error for step with no data column")
	}
}

func TestOnboardingRepository_Reset(t *testing.T) {
	repos := setupTestRepos(t)

	if err := repos.Onboarding.UpsertField(context.Background(), models.StepExcavation, "something"); err != nil {
		t.Fatalf("UpsertField failed: %v", err)
	}
	if err := repos.Onboarding.SetStep(context.Background(), models.StepQuests); err != nil {
		t.Fatalf("SetStep failed: %v", err)
	}

	if err := repos.Onboarding.Reset(context.Background()); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	state, err := repos.Onboarding.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if state.CurrentStep != models.StepCovenant {
		t.Errorf("expected covenant after reset, got %s", state.CurrentStep)
	}

	data, err := repos.Onboarding.GetData(context.Background())
	if err != nil {
		t.Fatalf("GetData failed: %v", err)
	}
	if data.AntiVision != "" {
		t.Errorf("expected cleared data, got %q", data.AntiVision)
	}
}
