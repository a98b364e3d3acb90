package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/covenant-app/covenant-api/internal/config"
	"github.com/covenant-app/covenant-api/internal/events"
	"github.com/covenant-app/covenant-api/internal/models"
	"github.com/covenant-app/covenant-api/internal/repository"
)

// triggerState is the zero-crossing guard. It has a single mutation point
// (noteHealth) so "at most one wipe trigger per crossing" holds by
// construction.
type triggerState int

const (
	triggerIdle triggerState = iota
	triggerFired
)

// HealthStatus is the result of a health query.
type HealthStatus struct {
	Health int  `json:"health"`
	IsDead bool `json:"is_dead"`
}

// IdentityService owns the identity health lifecycle: queries, damage,
// restoration, and the killing operation that marks the user dead.
type IdentityService struct {
	repos  *repository.Repositories
	bus    *events.Bus
	cfg    *config.Config
	logger *slog.Logger

	mu       sync.Mutex
	cachedIH int
	trigger  triggerState
}

// NewIdentityService creates a new identity lifecycle service.
func NewIdentityService(repos *repository.Repositories, bus *events.Bus, cfg *config.Config, logger *slog.Logger) *IdentityService {
	return &IdentityService{
		repos:  repos,
		bus:    bus,
		cfg:    cfg,
		logger: logger.With("component", "identity"),
	}
}

// CheckHealth reads the stored IH. When an active user's health has
// reached zero, the killing operation runs as a side effect and the
// result reports {0, true}. Outside the active state a zero reading is
// inert: during onboarding no identity row exists yet and the missing
// row reads as zero health, which is not a crossing.
func (s *IdentityService) CheckHealth(ctx context.Context) (*HealthStatus, error) {
	health, err := s.repos.Identity.GetHealth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity health: %w", err)
	}

	appState, err := s.repos.AppState.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read app state: %w", err)
	}

	if health <= 0 && appState.State == models.AppStateActive {
		// An observed zero counts as a crossing too, so the pre-death
		// backup listener runs before the content rows go away.
		s.noteHealth(health)
		if err := s.KillUser(ctx); err != nil {
			return nil, err
		}
		return &HealthStatus{Health: 0, IsDead: true}, nil
	}

	if health > 0 {
		s.noteHealth(health)
	}
	return &HealthStatus{Health: health, IsDead: appState.State == models.AppStateDespair}, nil
}

// ApplyDamage subtracts amount from IH inside a transaction, clamped at
// zero, then returns the post-damage health status.
func (s *IdentityService) ApplyDamage(ctx context.Context, amount int) (*HealthStatus, error) {
	var newHealth int
	err := s.repos.WithTx(ctx, func(tx *repository.Repositories) error {
		health, err := tx.Identity.GetHealth(ctx)
		if err != nil {
			return err
		}
		newHealth = models.ClampIH(health - amount)
		return tx.Identity.SetHealth(ctx, newHealth)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply damage: %w", err)
	}

	s.logger.Info("damage applied", "amount", amount, "health", newHealth)
	s.noteHealth(newHealth)

	return s.CheckHealth(ctx)
}

// ApplyQuestPenalty applies the day-rollover penalty for incomplete
// quests. The magnitude rule lives here: QuestPenaltyIH per missed quest.
func (s *IdentityService) ApplyQuestPenalty(ctx context.Context, completedCount, totalCount int) (*HealthStatus, error) {
	missed := totalCount - completedCount
	if missed <= 0 {
		return s.CheckHealth(ctx)
	}
	damage := missed * s.cfg.QuestPenaltyIH
	s.logger.Info("applying quest penalty", "completed", completedCount, "total", totalCount, "damage", damage)
	return s.ApplyDamage(ctx, damage)
}

// RestoreHealth adds amount to IH inside a transaction, clamped at 100.
func (s *IdentityService) RestoreHealth(ctx context.Context, amount int) error {
	var newHealth int
	err := s.repos.WithTx(ctx, func(tx *repository.Repositories) error {
		health, err := tx.Identity.GetHealth(ctx)
		if err != nil {
			return err
		}
		newHealth = models.ClampIH(health + amount)
		return tx.Identity.SetHealth(ctx, newHealth)
	})
	if err != nil {
		return fmt.Errorf("failed to restore health: %w", err)
	}

	s.noteHealth(newHealth)
	return nil
}

// KillUser deletes all user content rows and marks the app state despair,
// in one transaction. The in-memory cached IH is zeroed and the wipe
// trigger guard stays engaged until health rises above zero again.
func (s *IdentityService) KillUser(ctx context.Context) error {
	err := s.repos.WithTx(ctx, func(tx *repository.Repositories) error {
		if err := tx.Quest.DeleteAll(ctx); err != nil {
			return err
		}
		if err := tx.Notification.DeleteAll(ctx); err != nil {
			return err
		}
		if err := tx.DailyState.DeleteAll(ctx); err != nil {
			return err
		}
		if err := tx.Identity.Delete(ctx); err != nil {
			return err
		}
		return tx.AppState.SetState(ctx, models.AppStateDespair)
	})
	if err != nil {
		return fmt.Errorf("failed to kill user: %w", err)
	}

	s.mu.Lock()
	s.cachedIH = 0
	s.trigger = triggerFired
	s.mu.Unlock()

	s.logger.Info("user killed, app state set to despair")
	return nil
}

// UseInsurance revives the user on the legacy monetized path: baseline
// rows are re-created if absent, the app returns to active, and IH is
// force-set to the configured revival value.
func (s *IdentityService) UseInsurance(ctx context.Context) error {
	now := time.Now()
	err := s.repos.WithTx(ctx, func(tx *repository.Repositories) error {
		identity, err := tx.Identity.Get(ctx)
		if err != nil {
			return err
		}
		if identity == nil {
			identity = &models.Identity{CreatedAt: now, UpdatedAt: now}
		}
		identity.IdentityHealth = s.cfg.RevivalIH
		identity.UpdatedAt = now
		if err := tx.Identity.Create(ctx, identity); err != nil {
			return err
		}
		if _, err := tx.DailyState.InitIfAbsent(ctx, now.Format("2006-01-02")); err != nil {
			return err
		}
		return tx.AppState.SetState(ctx, models.AppStateActive)
	})
	if err != nil {
		return fmt.Errorf("failed to use insurance: %w", err)
	}

	s.noteHealth(s.cfg.RevivalIH)
	s.logger.Info("insurance applied", "revival_ih", s.cfg.RevivalIH)
	return nil
}

// GetAntiVision returns the stored anti-vision text, empty when absent.
func (s *IdentityService) GetAntiVision(ctx context.Context) (string, error) {
	identity, err := s.repos.Identity.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read identity: %w", err)
	}
	if identity == nil {
		return "", nil
	}
	return identity.AntiVision, nil
}

// noteHealth is the single mutation point for the cached IH and the
// zero-crossing guard. The wipe trigger fires at most once per crossing;
// a value above zero re-arms the guard.
func (s *IdentityService) noteHealth(v int) {
	s.mu.Lock()
	fire := false
	s.cachedIH = v
	if v <= 0 {
		if s.trigger == triggerIdle {
			s.trigger = triggerFired
			fire = true
		}
	} else {
		s.trigger = triggerIdle
	}
	s.mu.Unlock()

	if fire {
		s.bus.PublishWipeTrigger(events.WipeTrigger{FinalIH: 0, Timestamp: time.Now()})
	}
}

// NoteRevival re-arms the zero-crossing guard after a revival path wrote
// health directly through its own transaction.
func (s *IdentityService) NoteRevival(v int) {
	s.noteHealth(v)
}

// CachedHealth returns the in-memory IH value last observed by a mutator.
func (s *IdentityService) CachedHealth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cachedIH
}
