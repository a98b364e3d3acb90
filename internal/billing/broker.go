package billing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Broker serializes purchase attempts through a single pending-request
// slot per process. A request resolves with whichever of success event,
// error event, or timeout fires first; later resolutions for the same
// request are ignored.
type Broker struct {
	provider Provider
	timeout  time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending bool
}

// NewBroker creates a purchase broker. timeout bounds how long a purchase
// may stay pending; zero means the 15 second default.
func NewBroker(provider Provider, timeout time.Duration, logger *slog.Logger) *Broker {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		provider: provider,
		timeout:  timeout,
		logger:   logger.With("component", "purchase_broker"),
	}
}

// Purchase runs one purchase attempt through the pending slot. A second
// call while a request is in flight observes the busy slot and fails
// immediately rather than queueing.
func (b *Broker) Purchase(ctx context.Context) PurchaseResult {
	b.mu.Lock()
	if b.pending {
		b.mu.Unlock()
		return PurchaseResult{Success: false, Error: "purchase already in progress"}
	}
	b.pending = true
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.pending = false
		b.mu.Unlock()
	}()

	purchaseCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	results := make(chan PurchaseResult, 1)
	go func() {
		results <- b.provider.Purchase(purchaseCtx)
	}()

	select {
	case res := <-results:
		return res
	case <-purchaseCtx.Done():
		// A late provider result lands in the buffered channel and is
		// dropped; the request already resolved.
		if ctx.Err() != nil {
			b.logger.Info("purchase cancelled by caller")
			return PurchaseResult{Success: false, Error: ErrCancelled}
		}
		b.logger.Warn("purchase timed out", "timeout", b.timeout)
		return PurchaseResult{Success: false, Error: ErrTimeout}
	}
}
