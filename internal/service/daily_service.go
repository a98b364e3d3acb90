package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/covenant-app/covenant-api/internal/events"
	"github.com/covenant-app/covenant-api/internal/models"
	"github.com/covenant-app/covenant-api/internal/repository"
)

// checkState is the rollover re-entrancy guard. Like the wipe trigger it
// has a single mutation point so at most one check runs at a time.
type checkState int

const (
	checkIdle checkState = iota
	checkInProgress
)

// DateChangeResult reports the outcome of a rollover check.
type DateChangeResult struct {
	DateChanged    bool   `json:"date_changed"`
	PreviousDate   string `json:"previous_date,omitempty"`
	CurrentDate    string `json:"current_date,omitempty"`
	PenaltyApplied bool   `json:"penalty_applied"`
}

// DailyService detects calendar-day rollover, applies the quest-completion
// penalty through the identity lifecycle, and notifies listeners. The
// rollover path must never crash the app: every failure degrades to
// {dateChanged:false, penaltyApplied:false}.
type DailyService struct {
	repos       *repository.Repositories
	identitySvc *IdentityService
	bus         *events.Bus
	logger      *slog.Logger

	// now is swappable for tests.
	now func() time.Time

	mu    sync.Mutex
	state checkState
}

// NewDailyService creates a new daily rollover service.
func NewDailyService(repos *repository.Repositories, identitySvc *IdentityService, bus *events.Bus, logger *slog.Logger) *DailyService {
	return &DailyService{
		repos:       repos,
		identitySvc: identitySvc,
		bus:         bus,
		logger:      logger.With("component", "daily"),
		now:         time.Now,
	}
}

// Init inserts today's daily state row if absent and performs the initial
// rollover check. Called once at startup.
func (s *DailyService) Init(ctx context.Context) error {
	today := s.today()
	if _, err := s.repos.DailyState.InitIfAbsent(ctx, today); err != nil {
		return err
	}
	s.CheckDateChange(ctx)
	return nil
}

// CheckDateChange compares today's local date with the stored marker and
// applies the rollover sequence when the day has advanced. A concurrent
// call observes the in-flight check and returns a no-op result
// immediately; it never queues or blocks.
func (s *DailyService) CheckDateChange(ctx context.Context) *DateChangeResult {
	s.mu.Lock()
	if s.state == checkInProgress {
		s.mu.Unlock()
		return &DateChangeResult{DateChanged: false}
	}
	s.state = checkInProgress
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state = checkIdle
		s.mu.Unlock()
	}()

	result, err := s.check(ctx)
	if err != nil {
		// Rollover detection must never crash the app.
		s.logger.Error("rollover check failed", "error", err)
		return &DateChangeResult{DateChanged: false, PenaltyApplied: false}
	}
	return result
}

func (s *DailyService) check(ctx context.Context) (*DateChangeResult, error) {
	today := s.today()

	state, err := s.repos.DailyState.Get(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		if _, err := s.repos.DailyState.InitIfAbsent(ctx, today); err != nil {
			return nil, err
		}
		return &DateChangeResult{DateChanged: false, CurrentDate: today}, nil
	}

	previousDate := state.CurrentDate
	if previousDate == today {
		return &DateChangeResult{DateChanged: false, CurrentDate: today}, nil
	}

	appState, err := s.repos.AppState.Get(ctx)
	if err != nil {
		return nil, err
	}

	penaltyApplied := false
	if appState.State != models.AppStateOnboarding {
		// The completion flags still reflect the day that just ended.
		completed, total, err := s.repos.Quest.CompletionCounts(ctx)
		if err != nil {
			return nil, err
		}
		if total > 0 && completed < total {
			if _, err := s.identitySvc.ApplyQuestPenalty(ctx, completed, total); err != nil {
				return nil, err
			}
			penaltyApplied = true
		}
	}

	// Advance the marker and uncheck quests for the new day regardless of
	// the penalty outcome. completed_at survives the uncheck.
	if err := s.repos.DailyState.SetDate(ctx, today); err != nil {
		return nil, err
	}
	if err := s.repos.Quest.ResetCompletion(ctx); err != nil {
		return nil, err
	}

	daysMissed := daysBetween(previousDate, today) - 1
	if daysMissed < 0 {
		daysMissed = 0
	}

	s.logger.Info("day rollover",
		"previous_date", previousDate,
		"new_date", today,
		"days_missed", daysMissed,
		"penalty_applied", penaltyApplied,
	)

	s.bus.PublishDateChanged(events.DateChanged{
		PreviousDate:        previousDate,
		NewDate:             today,
		DaysMissed:          daysMissed,
		QuestPenaltyApplied: penaltyApplied,
		Timestamp:           s.now(),
	})

	return &DateChangeResult{
		DateChanged:    true,
		PreviousDate:   previousDate,
		CurrentDate:    today,
		PenaltyApplied: penaltyApplied,
	}, nil
}

func (s *DailyService) today() string {
	return s.now().Format("2006-01-02")
}

// daysBetween returns the whole calendar days from date a to date b
// (YYYY-MM-DD, local time). Unparseable input counts as zero days.
func daysBetween(a, b string) int {
	ta, errA := time.ParseInLocation("2006-01-02", a, time.Local)
	tb, errB := time.ParseInLocation("2006-01-02", b, time.Local)
	if errA != nil || errB != nil {
		return 0
	}
	// Round absorbs DST-shortened or lengthened days.
	return int(tb.Sub(ta).Round(24*time.Hour).Hours() / 24)
}
