package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/covenant-app/covenant-api/internal/events"
	"github.com/covenant-app/covenant-api/internal/models"
	"github.com/covenant-app/covenant-api/internal/repository"
)

// contentTables are the user-content tables cleared by a wipe, in clearing
// order.
var contentTables = []string{"identity", "quests", "notifications", "daily_state", "identity_backup", "onboarding_data"}

// WipeResult reports the outcome of a destructive wipe. NextScreen is
// always "onboarding" regardless of success: callers must not depend on
// wipe success to route the user.
type WipeResult struct {
	Success       bool              `json:"success"`
	Timestamp     time.Time         `json:"timestamp"`
	Reason        models.WipeReason `json:"reason"`
	TablesCleared []string          `json:"tables_cleared"`
	NextScreen    models.NextScreen `json:"next_screen"`
}

// WipeService executes the irreversible destructive transaction: content
// deletion, audit logging, life advancement, and a fire-and-forget
// storage compaction pass. Stateless across calls except for the audit
// table it lazily creates.
type WipeService struct {
	repos  *repository.Repositories
	bus    *events.Bus
	logger *slog.Logger
}

// NewWipeService creates a new wipe service.
func NewWipeService(repos *repository.Repositories, bus *events.Bus, logger *slog.Logger) *WipeService {
	return &WipeService{
		repos:  repos,
		bus:    bus,
		logger: logger.With("component", "wipe"),
	}
}

// ExecuteWipe runs the destructive sequence and reports the result. Any
// storage failure yields success=false with the same nextScreen contract,
// and the completion event still fires.
func (s *WipeService) ExecuteWipe(ctx context.Context, reason models.WipeReason, finalIH int) *WipeResult {
	now := time.Now()
	result := &WipeResult{
		Timestamp:  now,
		Reason:     reason,
		NextScreen: models.NextScreenOnboarding,
	}

	err := s.execute(ctx, reason, finalIH, now)
	if err != nil {
		s.logger.Error("wipe failed", "reason", reason, "error", err)
	} else {
		result.Success = true
		result.TablesCleared = contentTables
		s.logger.Info("wipe completed", "reason", reason, "final_ih", finalIH)

		// Storage compaction runs detached: it can take a while on a
		// large database and its failure must never surface to the
		// caller of a wipe.
		go s.compact()
	}

	s.bus.PublishWipeCompleted(events.WipeCompleted{
		Success:    result.Success,
		NextScreen: result.NextScreen,
		Timestamp:  now,
	})

	return result
}

func (s *WipeService) execute(ctx context.Context, reason models.WipeReason, finalIH int, now time.Time) error {
	if err := s.repos.WipeLog.EnsureTable(ctx); err != nil {
		return fmt.Errorf("failed to ensure audit table: %w", err)
	}

	return s.repos.WithTx(ctx, func(tx *repository.Repositories) error {
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
		// Re-setup after a wipe starts from the first step.
		if err := tx.Onboarding.Reset(ctx); err != nil {
			return err
		}

		if err := tx.WipeLog.Append(ctx, &models.WipeLogEntry{
			ID:           ulid.Make().String(),
			WipedAt:      now,
			Reason:       reason,
			FinalIHValue: finalIH,
		}); err != nil {
			return err
		}

		return tx.AppState.AdvanceLife(ctx)
	})
}

// compact reclaims file space after the bulk deletes. Failures are logged
// and never surfaced.
func (s *WipeService) compact() {
	db := s.repos.DB()
	if db == nil {
		return
	}
	if _, err := db.Exec("VACUUM"); err != nil {
		s.logger.Warn("storage compaction failed", "error", err)
		return
	}
	s.logger.Debug("storage compaction completed")
}
