package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/covenant-app/covenant-api/internal/models"
	"github.com/covenant-app/covenant-api/internal/repository"
)

// ResetService is the development reset: it clears all user content and
// returns the app directly to onboarding without entering despair,
// advancing the life counter, or writing the audit log. Not reachable
// from the normal lifecycle.
type ResetService struct {
	repos  *repository.Repositories
	logger *slog.Logger
}

// NewResetService creates a new reset service.
func NewResetService(repos *repository.Repositories, logger *slog.Logger) *ResetService {
	return &ResetService{
		repos:  repos,
		logger: logger.With("component", "reset"),
	}
}

// ResetAll clears content tables, onboarding progress, and the backup in
// one transaction, then sets the app state to onboarding.
func (s *ResetService) ResetAll(ctx context.Context) error {
	err := s.repos.WithTx(ctx, func(tx *repository.Repositories) error {
		if err := tx.Identity.Delete(ctx); err != nil {
			return err
		}
		if err := tx.Quest.DeleteAll(ctx); err != nil {
			return err
		}
		if err := tx.Notification.DeleteAll(ctx); err != nil {
			return err
		}
		if err := tx.DailyState.DeleteAll(ctx); err != nil {
			return err
		}
		if err := tx.Backup.Delete(ctx); err != nil {
			return err
		}
		if err := tx.Onboarding.Reset(ctx); err != nil {
			return err
		}
		return tx.AppState.SetState(ctx, models.AppStateOnboarding)
	})
	if err != nil {
		return fmt.Errorf("failed to reset: %w", err)
	}

	s.logger.Info("development reset completed")
	return nil
}
