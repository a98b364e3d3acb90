package service

import (
	"context"
	"testing"

	"github.com/covenant-app/covenant-api/internal/events"
	"github.com/covenant-app/covenant-api/internal/models"
)

func TestWipeService_ExecuteWipeClearsContent(t *testing.T) {
	repos := setupTestRepos(t)
	bus := events.New(testLogger())
	svc := NewWipeService(repos, bus, testLogger())
	seedActiveIdentity(t, repos, 100)
	seedQuest(t, repos, "q1", "train")

	result := svc.ExecuteWipe(context.Background(), models.WipeReasonIHZero, 0)

	if !result.Success {
		t.Fatal("expected wipe success")
	}
	if result.NextScreen != models.NextScreenOnboarding {
		t.Errorf("expected onboarding routing, got %s", result.NextScreen)
	}
	if len(result.TablesCleared) == 0 {
		t.Error("expected cleared tables reported")
	}

	identity, err := repos.Identity.Get(context.Background())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if identity != nil {
		t.Error("expected identity wiped")
	}
	quests, err := repos.Quest.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(quests) != 0 {
		t.Errorf("expected quests wiped, got %d", len(quests))
	}

	onboarding, err := repos.Onboarding.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if onboarding.CurrentStep != models.StepCovenant {
		t.Errorf("expected onboarding rewound to covenant, got %s", onboarding.CurrentStep)
	}
}

func TestWipeService_ExecuteWipeAppendsAuditAndAdvancesLife(t *testing.T) {
	repos := setupTestRepos(t)
	bus := events.New(testLogger())
	svc := NewWipeService(repos, bus, testLogger())
	seedActiveIdentity(t, repos, 100)

	svc.ExecuteWipe(context.Background(), models.WipeReasonUserRequest, 30)

	entries, err := repos.WipeLog.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	if entries[0].Reason != models.WipeReasonUserRequest || entries[0].FinalIHValue != 30 {
		t.Errorf("audit mismatch: %+v", entries[0])
	}

	state, err := repos.AppState.Get(context.Background())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if state.LifeNumber != 2 {
		t.Errorf("expected life 2 after wipe, got %d", state.LifeNumber)
	}
}

func TestWipeService_AuditSurvivesLaterWipes(t *testing.T) {
	repos := setupTestRepos(t)
	bus := events.New(testLogger())
	svc := NewWipeService(repos, bus, testLogger())

	svc.ExecuteWipe(context.Background(), models.WipeReasonIHZero, 0)
	svc.ExecuteWipe(context.Background(), models.WipeReasonQuestFail, 0)

	entries, err := repos.WipeLog.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected both audit entries to survive, got %d", len(entries))
	}
}

func TestWipeService_CompletionEventAlwaysFires(t *testing.T) {
	repos := setupTestRepos(t)
	bus := events.New(testLogger())
	svc := NewWipeService(repos, bus, testLogger())

	var got events.WipeCompleted
	fired := false
	bus.SubscribeWipeCompleted(func(ev events.WipeCompleted) {
		got = ev
		fired = true
	})

	svc.ExecuteWipe(context.Background(), models.WipeReasonIHZero, 0)

	if !fired {
		t.Fatal("expected completion event")
	}
	if got.NextScreen != models.NextScreenOnboarding {
		t.Errorf("expected onboarding routing, got %s", got.NextScreen)
	}
}

func TestDespairService_OnWipeEntersDespair(t *testing.T) {
	repos := setupTestRepos(t)
	bus := events.New(testLogger())
	wipeSvc := NewWipeService(repos, bus, testLogger())
	svc := NewDespairService(repos, wipeSvc, bus, testLogger())
	seedActiveIdentity(t, repos, 100)

	var entered events.DespairEntered
	bus.SubscribeDespairEntered(func(ev events.DespairEntered) { entered = ev })

	result := svc.OnWipe(context.Background(), models.WipeReasonIHZero, 0)

	if !result.Success {
		t.Error("expected success")
	}
	if result.NextScreen != models.NextScreenOnboarding {
		t.Errorf("expected onboarding routing, got %s", result.NextScreen)
	}

	inDespair, err := svc.IsDespairMode(context.Background())
	if err != nil {
		t.Fatalf("IsDespairMode failed: %v", err)
	}
	if !inDespair {
		t.Error("expected despair mode")
	}
	if entered.PreviousState != models.AppStateActive {
		t.Errorf("expected previous state active, got %s", entered.PreviousState)
	}
}

func TestDespairService_ExitDespairIdempotent(t *testing.T) {
	repos := setupTestRepos(t)
	bus := events.New(testLogger())
	wipeSvc := NewWipeService(repos, bus, testLogger())
	svc := NewDespairService(repos, wipeSvc, bus, testLogger())

	// Exiting without ever entering is allowed.
	if err := svc.ExitDespairMode(context.Background()); err != nil {
		t.Fatalf("ExitDespairMode failed: %v", err)
	}

	state, err := svc.CurrentState(context.Background())
	if err != nil {
		t.Fatalf("CurrentState failed: %v", err)
	}
	if state != models.AppStateOnboarding {
		t.Errorf("expected onboarding, got %s", state)
	}
}

func TestDespairService_NoLockout(t *testing.T) {
	repos := setupTestRepos(t)
	bus := events.New(testLogger())
	svc := NewDespairService(repos, NewWipeService(repos, bus, testLogger()), bus, testLogger())

	if !svc.CanResetup() {
		t.Error("re-setup must always be allowed")
	}
	if svc.HasLockoutPeriod() {
		t.Error("no lockout period exists")
	}
}
