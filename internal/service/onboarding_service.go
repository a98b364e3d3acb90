package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/covenant-app/covenant-api/internal/events"
	"github.com/covenant-app/covenant-api/internal/models"
	"github.com/covenant-app/covenant-api/internal/repository"
)

// StepData is the payload for a single onboarding step. Ceremony steps
// take no payload; excavation/identity/mission carry Text; quests carries
// exactly two quest strings.
type StepData struct {
	Text   string   `json:"text,omitempty"`
	Quests []string `json:"quests,omitempty"`
}

// OnboardingService drives the seven-step ceremonial setup machine. Steps
// complete strictly in order; partial data persists across steps and
// survives process restarts.
type OnboardingService struct {
	repos  *repository.Repositories
	bus    *events.Bus
	logger *slog.Logger
}

// NewOnboardingService creates a new onboarding service.
func NewOnboardingService(repos *repository.Repositories, bus *events.Bus, logger *slog.Logger) *OnboardingService {
	return &OnboardingService{
		repos:  repos,
		bus:    bus,
		logger: logger.With("component", "onboarding"),
	}
}

// CurrentStep returns the step pointer.
func (s *OnboardingService) CurrentStep(ctx context.Context) (models.OnboardingStep, error) {
	state, err := s.repos.Onboarding.GetState(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read onboarding state: %w", err)
	}
	return state.CurrentStep, nil
}

// CompleteStep validates and persists one step, then advances the
// pointer. Validation failures leave all state unchanged. Completing the
// final step assembles the dataset, creates the baseline rows, and moves
// the app to active.
func (s *OnboardingService) CompleteStep(ctx context.Context, step models.OnboardingStep, data *StepData) (models.OnboardingStep, error) {
	if !models.KnownStep(step) || step == models.StepComplete {
		return "", NewValidationError(string(step), "unknown onboarding step")
	}

	current, err := s.CurrentStep(ctx)
	if err != nil {
		return "", err
	}
	if step != current {
		return "", NewValidationError(string(step), "step out of order: current step is %s", current)
	}

	cleaned, err := validateStepData(step, data)
	if err != nil {
		return "", err
	}

	next := models.NextStep(step)

	err = s.repos.WithTx(ctx, func(tx *repository.Repositories) error {
		switch step {
		case models.StepExcavation, models.StepIdentity, models.StepMission:
			if err := tx.Onboarding.UpsertField(ctx, step, cleaned.Text); err != nil {
				return err
			}
		case models.StepQuests:
			if err := tx.Onboarding.UpsertQuests(ctx, cleaned.Quests[0], cleaned.Quests[1]); err != nil {
				return err
			}
		}
		return tx.Onboarding.SetStep(ctx, next)
	})
	if err != nil {
		return "", fmt.Errorf("failed to persist step %s: %w", step, err)
	}

	now := time.Now()
	s.logger.Info("onboarding step completed", "from", step, "to", next)
	s.bus.PublishStepChanged(events.StepChanged{From: step, To: next, Timestamp: now})

	if next == models.StepComplete {
		if err := s.finalize(ctx, now); err != nil {
			return "", err
		}
	}

	return next, nil
}

// finalize creates the baseline rows from the assembled dataset and moves
// the app state to active.
func (s *OnboardingService) finalize(ctx context.Context, now time.Time) error {
	data, err := s.repos.Onboarding.GetData(ctx)
	if err != nil {
		return fmt.Errorf("failed to assemble onboarding data: %w", err)
	}

	err = s.repos.WithTx(ctx, func(tx *repository.Repositories) error {
		if err := tx.Identity.Create(ctx, &models.Identity{
			AntiVision:        data.AntiVision,
			IdentityStatement: data.IdentityStatement,
			OneYearMission:    data.OneYearMission,
			IdentityHealth:    models.MaxIdentityHealth,
			CreatedAt:         now,
			UpdatedAt:         now,
		}); err != nil {
			return err
		}

		for _, questText := range []string{data.Quest1, data.Quest2} {
			if err := tx.Quest.Create(ctx, &models.Quest{
				ID:        ulid.Make().String(),
				QuestText: questText,
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}

		if err := tx.Notification.Create(ctx, &models.Notification{
			ID:          ulid.Make().String(),
			Kind:        "daily_judgment",
			ScheduledAt: "21:00",
			CreatedAt:   now,
		}); err != nil {
			return err
		}

		if _, err := tx.DailyState.InitIfAbsent(ctx, now.Format("2006-01-02")); err != nil {
			return err
		}

		return tx.AppState.SetState(ctx, models.AppStateActive)
	})
	if err != nil {
		return fmt.Errorf("failed to finalize onboarding: %w", err)
	}

	s.logger.Info("onboarding completed, app active")
	s.bus.PublishOnboardingCompleted(events.OnboardingCompleted{Data: *data, Timestamp: now})
	return nil
}

// ResetOnboarding clears all onboarding-scoped data and rewinds the step
// pointer to the first step. This is the only path back into onboarding
// after a wipe or a failed first judgment.
func (s *OnboardingService) ResetOnboarding(ctx context.Context) error {
	err := s.repos.WithTx(ctx, func(tx *repository.Repositories) error {
		return tx.Onboarding.Reset(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to reset onboarding: %w", err)
	}
	s.logger.Info("onboarding reset")
	return nil
}

// validateStepData enforces the per-step payload rules and returns the
// trimmed payload. It never touches storage.
func validateStepData(step models.OnboardingStep, data *StepData) (*StepData, error) {
	if models.IsCeremonyStep(step) {
		// Ceremony steps carry no payload. JSON clients may send an empty
		// object instead of omitting the body, so an empty StepData is
		// treated the same as nil; only populated fields are rejected.
		if data != nil && (data.Text != "" || len(data.Quests) > 0) {
			return nil, NewValidationError(string(step), "ceremony steps take no data")
		}
		return &StepData{}, nil
	}

	if data == nil {
		return nil, NewValidationError(string(step), "data is required")
	}

	switch step {
	case models.StepExcavation, models.StepIdentity, models.StepMission:
		text := strings.TrimSpace(data.Text)
		if text == "" {
			return nil, NewValidationError(string(step), "a non-empty text field is required")
		}
		return &StepData{Text: text}, nil

	case models.StepQuests:
		if len(data.Quests) != 2 {
			return nil, NewValidationError(string(step), "exactly 2 quests are required, got %d", len(data.Quests))
		}
		quests := make([]string, 2)
		for i, q := range data.Quests {
			q = strings.TrimSpace(q)
			if q == "" {
				return nil, NewValidationError(string(step), "quest %d must not be empty", i+1)
			}
			quests[i] = q
		}
		return &StepData{Quests: quests}, nil
	}

	return nil, NewValidationError(string(step), "unknown onboarding step")
}
