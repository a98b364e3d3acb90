// Package events provides the typed in-process event bus used for
// cross-component notification (wipe trigger, despair enter/exit,
// onboarding step changes, date rollover). Listeners run synchronously in
// registration order; a panicking listener is recovered and logged so it
// cannot stop the listeners after it.
package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/covenant-app/covenant-api/internal/models"
)

// WipeTrigger fires when identity health crosses zero. It fires at most
// once per crossing; the guard re-arms when health rises above zero.
type WipeTrigger struct {
	FinalIH   int
	Timestamp time.Time
}

// WipeCompleted fires after every executeWipe attempt, success or not.
// NextScreen is always "onboarding" under the current contract.
type WipeCompleted struct {
	Success    bool
	NextScreen models.NextScreen
	Timestamp  time.Time
}

// DespairEntered fires when the app state machine enters despair.
type DespairEntered struct {
	Timestamp     time.Time
	Reason        models.WipeReason
	PreviousState models.AppStateValue
}

// DespairExited fires when despair mode is left for onboarding.
type DespairExited struct {
	Timestamp time.Time
}

// StepChanged fires after an onboarding step pointer advances.
type StepChanged struct {
	From      models.OnboardingStep
	To        models.OnboardingStep
	Timestamp time.Time
}

// OnboardingCompleted fires once the final step lands, carrying the full
// assembled onboarding dataset.
type OnboardingCompleted struct {
	Data      models.OnboardingData
	Timestamp time.Time
}

// DateChanged fires after a detected calendar-day rollover.
type DateChanged struct {
	PreviousDate        string
	NewDate             string
	DaysMissed          int
	QuestPenaltyApplied bool
	Timestamp           time.Time
}

// listeners is an ordered, concurrency-safe list of handlers for one
// event kind.
type listeners[T any] struct {
	mu       sync.RWMutex
	handlers []func(T)
	logger   *slog.Logger
}

func (l *listeners[T]) subscribe(fn func(T)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append(l.handlers, fn)
}

func (l *listeners[T]) publish(ev T) {
	l.mu.RLock()
	handlers := make([]func(T), len(l.handlers))
	copy(handlers, l.handlers)
	l.mu.RUnlock()

	for _, fn := range handlers {
		invoke(fn, ev, l.logger)
	}
}

func invoke[T any](fn func(T), ev T, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event listener panicked", "event", ev, "panic", r)
		}
	}()
	fn(ev)
}

// Bus is the process-wide event bus. Construct one per application context
// with New; test harnesses construct fresh buses instead of resetting
// global state.
type Bus struct {
	wipeTrigger         listeners[WipeTrigger]
	wipeCompleted       listeners[WipeCompleted]
	despairEntered      listeners[DespairEntered]
	despairExited       listeners[DespairExited]
	stepChanged         listeners[StepChanged]
	onboardingCompleted listeners[OnboardingCompleted]
	dateChanged         listeners[DateChanged]
}

// New creates a new event bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "events")
	return &Bus{
		wipeTrigger:         listeners[WipeTrigger]{logger: logger},
		wipeCompleted:       listeners[WipeCompleted]{logger: logger},
		despairEntered:      listeners[DespairEntered]{logger: logger},
		despairExited:       listeners[DespairExited]{logger: logger},
		stepChanged:         listeners[StepChanged]{logger: logger},
		onboardingCompleted: listeners[OnboardingCompleted]{logger: logger},
		dateChanged:         listeners[DateChanged]{logger: logger},
	}
}

// SubscribeWipeTrigger registers a listener for zero-crossing events.
func (b *Bus) SubscribeWipeTrigger(fn func(WipeTrigger)) { b.wipeTrigger.subscribe(fn) }

// PublishWipeTrigger delivers a zero-crossing event to all listeners.
func (b *Bus) PublishWipeTrigger(ev WipeTrigger) { b.wipeTrigger.publish(ev) }

// SubscribeWipeCompleted registers a wipe completion listener.
func (b *Bus) SubscribeWipeCompleted(fn func(WipeCompleted)) { b.wipeCompleted.subscribe(fn) }

// PublishWipeCompleted delivers a wipe completion event.
func (b *Bus) PublishWipeCompleted(ev WipeCompleted) { b.wipeCompleted.publish(ev) }

// SubscribeDespairEntered registers an enter-despair listener.
func (b *Bus) SubscribeDespairEntered(fn func(DespairEntered)) { b.despairEntered.subscribe(fn) }

// PublishDespairEntered delivers an enter-despair event.
func (b *Bus) PublishDespairEntered(ev DespairEntered) { b.despairEntered.publish(ev) }

// SubscribeDespairExited registers an exit-despair listener.
func (b *Bus) SubscribeDespairExited(fn func(DespairExited)) { b.despairExited.subscribe(fn) }

// PublishDespairExited delivers an exit-despair event.
func (b *Bus) PublishDespairExited(ev DespairExited) { b.despairExited.publish(ev) }

// SubscribeStepChanged registers an onboarding step-change listener.
func (b *Bus) SubscribeStepChanged(fn func(StepChanged)) { b.stepChanged.subscribe(fn) }

// PublishStepChanged delivers a step-change event.
func (b *Bus) PublishStepChanged(ev StepChanged) { b.stepChanged.publish(ev) }

// SubscribeOnboardingCompleted registers an onboarding completion listener.
func (b *Bus) SubscribeOnboardingCompleted(fn func(OnboardingCompleted)) {
	b.onboardingCompleted.subscribe(fn)
}

// PublishOnboardingCompleted delivers an onboarding completion event.
func (b *Bus) PublishOnboardingCompleted(ev OnboardingCompleted) { b.onboardingCompleted.publish(ev) }

// SubscribeDateChanged registers a date-rollover listener.
func (b *Bus) SubscribeDateChanged(fn func(DateChanged)) { b.dateChanged.subscribe(fn) }

// PublishDateChanged delivers a date-rollover event.
func (b *Bus) PublishDateChanged(ev DateChanged) { b.dateChanged.publish(ev) }
