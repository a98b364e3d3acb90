package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/covenant-app/covenant-api/internal/events"
	"github.com/covenant-app/covenant-api/internal/models"
	"github.com/covenant-app/covenant-api/internal/repository"
)

// DespairResult is the caller-facing outcome of a despair transition.
// Despite the app state being marked despair internally, the caller is
// always routed forward to onboarding: no screen is dedicated to despair.
type DespairResult struct {
	Success    bool              `json:"success"`
	NextScreen models.NextScreen `json:"next_screen"`
	Timestamp  time.Time         `json:"timestamp"`
	Reason     models.WipeReason `json:"reason"`
}

// DespairService is the app-level state machine over
// onboarding → active → despair, wrapping the wipe service and exposing
// re-setup gating.
type DespairService struct {
	repos   *repository.Repositories
	wipeSvc *WipeService
	bus     *events.Bus
	logger  *slog.Logger
}

// NewDespairService creates a new despair mode service.
func NewDespairService(repos *repository.Repositories, wipeSvc *WipeService, bus *events.Bus, logger *slog.Logger) *DespairService {
	return &DespairService{
		repos:   repos,
		wipeSvc: wipeSvc,
		bus:     bus,
		logger:  logger.With("component", "despair"),
	}
}

// OnWipe runs the wipe and transitions the app into despair. It never
// returns an error: any failure from the wipe or the state write degrades
// to {success:false, nextScreen:"onboarding"}.
func (s *DespairService) OnWipe(ctx context.Context, reason models.WipeReason, finalIH int) *DespairResult {
	now := time.Now()
	result := &DespairResult{
		NextScreen: models.NextScreenOnboarding,
		Timestamp:  now,
		Reason:     reason,
	}

	previousState := models.AppStateActive
	if appState, err := s.repos.AppState.Get(ctx); err == nil {
		previousState = appState.State
	}

	wipeResult := s.wipeSvc.ExecuteWipe(ctx, reason, finalIH)
	result.Success = wipeResult.Success

	if err := s.repos.AppState.SetState(ctx, models.AppStateDespair); err != nil {
		s.logger.Error("failed to mark despair state", "error", err)
		result.Success = false
	}

	s.bus.PublishDespairEntered(events.DespairEntered{
		Timestamp:     now,
		Reason:        reason,
		PreviousState: previousState,
	})

	return result
}

// IsDespairMode reports whether the app is currently in despair.
func (s *DespairService) IsDespairMode(ctx context.Context) (bool, error) {
	state, err := s.CurrentState(ctx)
	if err != nil {
		return false, err
	}
	return state == models.AppStateDespair, nil
}

// CurrentState returns the stored app lifecycle state.
func (s *DespairService) CurrentState(ctx context.Context) (models.AppStateValue, error) {
	appState, err := s.repos.AppState.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read app state: %w", err)
	}
	return appState.State, nil
}

// ExitDespairMode force-sets the app state to onboarding and notifies
// exit listeners. Idempotent: callable even when not currently in despair.
func (s *DespairService) ExitDespairMode(ctx context.Context) error {
	if err := s.repos.AppState.SetState(ctx, models.AppStateOnboarding); err != nil {
		return fmt.Errorf("failed to exit despair mode: %w", err)
	}
	s.bus.PublishDespairExited(events.DespairExited{Timestamp: time.Now()})
	return nil
}

// CanResetup reports whether the user may re-run onboarding. Always true:
// the only consequence of death is the data loss itself.
func (s *DespairService) CanResetup() bool {
	return true
}

// HasLockoutPeriod reports whether a cooldown gates re-setup. Always
// false.
func (s *DespairService) HasLockoutPeriod() bool {
	return false
}
