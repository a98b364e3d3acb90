package billing

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeProvider is a scriptable Provider for broker tests. delay holds the
// purchase open so concurrent and timeout behavior can be observed.
type fakeProvider struct {
	result PurchaseResult
	delay  time.Duration
}

func (f *fakeProvider) Initialize(context.Context) bool     { return true }
func (f *fakeProvider) GetProduct(context.Context) *Product { return &Product{ProductID: "p"} }

func (f *fakeProvider) Purchase(ctx context.Context) PurchaseResult {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
		}
	}
	return f.result
}

func (f *fakeProvider) FinishTransaction(context.Context, string) error   { return nil }
func (f *fakeProvider) CheckPendingTransactions(context.Context) []string { return nil }

func TestBroker_SuccessfulPurchase(t *testing.T) {
	provider := &fakeProvider{result: PurchaseResult{Success: true, TransactionID: "txn_1"}}
	broker := NewBroker(provider, time.Second, testLogger())

	res := broker.Purchase(context.Background())
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.TransactionID != "txn_1" {
		t.Errorf("unexpected transaction id: %s", res.TransactionID)
	}
}

func TestBroker_TimeoutResolvesRequest(t *testing.T) {
	provider := &fakeProvider{
		result: PurchaseResult{Success: true, TransactionID: "late"},
		delay:  time.Second,
	}
	broker := NewBroker(provider, 20*time.Millisecond, testLogger())

	res := broker.Purchase(context.Background())
	if res.Success {
		t.Fatal("expected timeout failure")
	}
	if res.Error != ErrTimeout {
		t.Errorf("expected %q, got %q", ErrTimeout, res.Error)
	}
}

func TestBroker_CallerCancellation(t *testing.T) {
	provider := &fakeProvider{
		result: PurchaseResult{Success: true},
		delay:  time.Second,
	}
	broker := NewBroker(provider, 5*time.Second, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res := broker.Purchase(ctx)
	if res.Success {
		t.Fatal("expected cancellation failure")
	}
	if res.Error != ErrCancelled {
		t.Errorf("expected %q, got %q", ErrCancelled, res.Error)
	}
}

func TestBroker_BusySlotRejectsSecondRequest(t *testing.T) {
	provider := &fakeProvider{
		result: PurchaseResult{Success: true, TransactionID: "txn_1"},
		delay:  100 * time.Millisecond,
	}
	broker := NewBroker(provider, time.Second, testLogger())

	var wg sync.WaitGroup
	wg.Add(1)
	var first PurchaseResult
	go func() {
		defer wg.Done()
		first = broker.Purchase(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	second := broker.Purchase(context.Background())
	if second.Success {
		t.Error("expected busy slot rejection")
	}
	if second.Error != "purchase already in progress" {
		t.Errorf("unexpected error: %q", second.Error)
	}

	wg.Wait()
	if !first.Success {
		t.Errorf("in-flight purchase should still resolve: %+v", first)
	}
}

func TestBroker_SlotFreesAfterResolution(t *testing.T) {
	provider := &fakeProvider{result: PurchaseResult{Success: true, TransactionID: "txn_1"}}
	broker := NewBroker(provider, time.Second, testLogger())

	if res := broker.Purchase(context.Background()); !res.Success {
		t.Fatalf("first purchase failed: %+v", res)
	}
	if res := broker.Purchase(context.Background()); !res.Success {
		t.Fatalf("slot not freed for second purchase: %+v", res)
	}
}

func TestBroker_ZeroTimeoutDefaults(t *testing.T) {
	broker := NewBroker(&fakeProvider{}, 0, testLogger())
	if broker.timeout != 15*time.Second {
		t.Errorf("expected 15s default, got %s", broker.timeout)
	}
}

func TestUnavailableProvider(t *testing.T) {
	p := UnavailableProvider{}
	if p.Initialize(context.Background()) {
		t.Error("unavailable provider must not initialize")
	}
	if p.GetProduct(context.Background()) != nil {
		t.Error("unavailable provider must not return a product")
	}
	if res := p.Purchase(context.Background()); res.Success {
		t.Error("unavailable provider must not sell")
	}
}
