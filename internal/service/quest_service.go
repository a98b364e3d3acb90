package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/covenant-app/covenant-api/internal/config"
	"github.com/covenant-app/covenant-api/internal/models"
	"github.com/covenant-app/covenant-api/internal/repository"
)

// QuestToggleResult reports the outcome of a completion toggle.
type QuestToggleResult struct {
	Quest         *models.Quest `json:"quest"`
	RewardGranted bool          `json:"reward_granted"`
	Health        int           `json:"health"`
}

// QuestService owns the daily quest cycle: listing, completion toggles,
// and the first-completion health reward.
type QuestService struct {
	repos       *repository.Repositories
	identitySvc *IdentityService
	cfg         *config.Config
	logger      *slog.Logger
}

// NewQuestService creates a new quest service.
func NewQuestService(repos *repository.Repositories, identitySvc *IdentityService, cfg *config.Config, logger *slog.Logger) *QuestService {
	return &QuestService{
		repos:       repos,
		identitySvc: identitySvc,
		cfg:         cfg,
		logger:      logger.With("component", "quests"),
	}
}

// List returns all quests in creation order.
func (s *QuestService) List(ctx context.Context) ([]*models.Quest, error) {
	return s.repos.Quest.List(ctx)
}

// Complete marks a quest done. The health reward is granted only on the
// first completion ever: a quest that was completed, unchecked, and
// re-checked keeps its original completion timestamp and earns nothing.
func (s *QuestService) Complete(ctx context.Context, id string) (*QuestToggleResult, error) {
	quest, err := s.repos.Quest.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read quest: %w", err)
	}
	if quest == nil {
		return nil, fmt.Errorf("quest %s not found", id)
	}

	firstCompletion := quest.CompletedAt == nil

	if err := s.repos.Quest.SetCompleted(ctx, id, true, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to complete quest: %w", err)
	}

	if firstCompletion {
		if err := s.identitySvc.RestoreHealth(ctx, s.cfg.QuestRewardIH); err != nil {
			return nil, err
		}
		s.logger.Info("quest completed", "quest_id", id, "reward", s.cfg.QuestRewardIH)
	} else {
		s.logger.Info("quest re-completed, no reward", "quest_id", id)
	}

	updated, err := s.repos.Quest.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read quest: %w", err)
	}

	health, err := s.repos.Identity.GetHealth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read health: %w", err)
	}

	return &QuestToggleResult{Quest: updated, RewardGranted: firstCompletion, Health: health}, nil
}

// Uncheck clears the completion flag without touching health or the
// completion timestamp. Unchecking grants and revokes nothing.
func (s *QuestService) Uncheck(ctx context.Context, id string) (*QuestToggleResult, error) {
	quest, err := s.repos.Quest.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read quest: %w", err)
	}
	if quest == nil {
		return nil, fmt.Errorf("quest %s not found", id)
	}

	if err := s.repos.Quest.SetCompleted(ctx, id, false, time.Time{}); err != nil {
		return nil, fmt.Errorf("failed to uncheck quest: %w", err)
	}

	updated, err := s.repos.Quest.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read quest: %w", err)
	}

	health, err := s.repos.Identity.GetHealth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read health: %w", err)
	}

	return &QuestToggleResult{Quest: updated, RewardGranted: false, Health: health}, nil
}
