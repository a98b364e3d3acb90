package events

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBus_ListenersRunInRegistrationOrder(t *testing.T) {
	bus := New(testLogger())

	var order []int
	bus.SubscribeWipeTrigger(func(WipeTrigger) { order = append(order, 1) })
	bus.SubscribeWipeTrigger(func(WipeTrigger) { order = append(order, 2) })
	bus.SubscribeWipeTrigger(func(WipeTrigger) { order = append(order, 3) })

	bus.PublishWipeTrigger(WipeTrigger{Timestamp: time.Now()})

	if len(order) != 3 {
		t.Fatalf("expected 3 listeners to run, got %d", len(order))
	}
	for i, v := range order {
		if v != i+1 {
			t.Errorf("listener %d ran out of order: %v", v, order)
		}
	}
}

func TestBus_PanickingListenerDoesNotStopOthers(t *testing.T) {
	bus := New(testLogger())

	ran := false
	bus.SubscribeDateChanged(func(DateChanged) { panic("boom") })
	bus.SubscribeDateChanged(func(DateChanged) { ran = true })

	bus.PublishDateChanged(DateChanged{PreviousDate: "2024-01-01", NewDate: "2024-01-02"})

	if !ran {
		t.Error("listener after the panicking one did not run")
	}
}

func TestBus_PublishWithoutListenersIsNoop(t *testing.T) {
	bus := New(testLogger())
	bus.PublishDespairEntered(DespairEntered{Timestamp: time.Now()})
	bus.PublishDespairExited(DespairExited{Timestamp: time.Now()})
}

func TestBus_EventPayloadDelivered(t *testing.T) {
	bus := New(testLogger())

	var got DateChanged
	bus.SubscribeDateChanged(func(ev DateChanged) { got = ev })

	bus.PublishDateChanged(DateChanged{
		PreviousDate:        "2024-01-10",
		NewDate:             "2024-01-12",
		DaysMissed:          2,
		QuestPenaltyApplied: true,
	})

	if got.PreviousDate != "2024-01-10" || got.NewDate != "2024-01-12" {
		t.Errorf("unexpected dates: %+v", got)
	}
	if got.DaysMissed != 2 || !got.QuestPenaltyApplied {
		t.Errorf("unexpected rollover details: %+v", got)
	}
}

func TestBus_NilLoggerDefaults(t *testing.T) {
	bus := New(nil)
	bus.SubscribeWipeCompleted(func(WipeCompleted) { panic("boom") })
	bus.PublishWipeCompleted(WipeCompleted{Success: true})
}
