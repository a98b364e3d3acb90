// Package billing wraps the payment platform behind the collaborator
// contract the insurance flow depends on. The wrapper never panics and
// never returns transport errors to callers: an unreachable or
// unconfigured billing backend degrades to available=false and nil
// products, and purchase failures come back as values.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/paymentintent"
	"github.com/stripe/stripe-go/v78/price"
)

// Well-known purchase error values. Anything else is a generic failure
// string passed through from the backend.
const (
	ErrCancelled = "cancelled"
	ErrTimeout   = "timeout"
)

// Product describes the revival offer.
type Product struct {
	ProductID      string  `json:"product_id"`
	LocalizedPrice string  `json:"localized_price"`
	Currency       string  `json:"currency"`
	PriceAmount    float64 `json:"price_amount"`
}

// PurchaseResult is the outcome of a purchase attempt.
type PurchaseResult struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Provider is the billing collaborator contract.
type Provider interface {
	// Initialize reports whether the billing backend is reachable.
	Initialize(ctx context.Context) bool
	// GetProduct returns the revival product, or nil when unavailable.
	GetProduct(ctx context.Context) *Product
	// Purchase attempts the revival purchase.
	Purchase(ctx context.Context) PurchaseResult
	// FinishTransaction acknowledges a completed transaction.
	FinishTransaction(ctx context.Context, transactionID string) error
	// CheckPendingTransactions returns unfinished transaction ids.
	CheckPendingTransactions(ctx context.Context) []string
}

// StripeProvider implements Provider against Stripe. The configured
// product id is a Stripe price id.
type StripeProvider struct {
	secretKey string
	priceID   string
	logger    *slog.Logger
}

// NewStripeProvider creates a Stripe-backed billing provider.
func NewStripeProvider(secretKey, priceID string, logger *slog.Logger) *StripeProvider {
	if logger == nil {
		logger = slog.Default()
	}
	if secretKey != "" {
		stripe.Key = secretKey
	}
	return &StripeProvider{
		secretKey: secretKey,
		priceID:   priceID,
		logger:    logger.With("component", "billing"),
	}
}

// Initialize reports whether Stripe is configured and the revival price
// can be fetched.
func (p *StripeProvider) Initialize(ctx context.Context) bool {
	if p.secretKey == "" || p.priceID == "" {
		return false
	}
	if _, err := price.Get(p.priceID, &stripe.PriceParams{Params: stripe.Params{Context: ctx}}); err != nil {
		p.logger.Warn("billing backend unreachable", "error", err)
		return false
	}
	return true
}

// GetProduct returns the revival offer, or nil when the backend is
// unavailable.
func (p *StripeProvider) GetProduct(ctx context.Context) *Product {
	if p.secretKey == "" || p.priceID == "" {
		return nil
	}
	pr, err := price.Get(p.priceID, &stripe.PriceParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		p.logger.Warn("failed to fetch product", "price_id", p.priceID, "error", err)
		return nil
	}
	amount := float64(pr.UnitAmount) / 100
	currency := strings.ToUpper(string(pr.Currency))
	return &Product{
		ProductID:      pr.ID,
		LocalizedPrice: fmt.Sprintf("%.2f %s", amount, currency),
		Currency:       currency,
		PriceAmount:    amount,
	}
}

// Purchase creates and confirms a payment intent for the revival offer.
func (p *StripeProvider) Purchase(ctx context.Context) PurchaseResult {
	product := p.GetProduct(ctx)
	if product == nil {
		return PurchaseResult{Success: false, Error: "billing unavailable"}
	}

	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(int64(product.PriceAmount * 100)),
		Currency: stripe.String(strings.ToLower(product.Currency)),
		Metadata: map[string]string{"product_id": product.ProductID},
	}
	pi, err := paymentintent.New(params)
	if err != nil {
		return PurchaseResult{Success: false, Error: purchaseError(err)}
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusRequiresCapture:
		return PurchaseResult{Success: true, TransactionID: pi.ID}
	case stripe.PaymentIntentStatusCanceled:
		return PurchaseResult{Success: false, Error: ErrCancelled}
	default:
		return PurchaseResult{Success: false, Error: fmt.Sprintf("payment not completed: %s", pi.Status)}
	}
}

// FinishTransaction captures a held payment intent. Already-captured
// intents finish as a no-op.
func (p *StripeProvider) FinishTransaction(ctx context.Context, transactionID string) error {
	if p.secretKey == "" {
		return nil
	}
	pi, err := paymentintent.Get(transactionID, &stripe.PaymentIntentParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return fmt.Errorf("failed to look up transaction %s: %w", transactionID, err)
	}
	if pi.Status != stripe.PaymentIntentStatusRequiresCapture {
		return nil
	}
	if _, err := paymentintent.Capture(transactionID, &stripe.PaymentIntentCaptureParams{Params: stripe.Params{Context: ctx}}); err != nil {
		return fmt.Errorf("failed to capture transaction %s: %w", transactionID, err)
	}
	return nil
}

// CheckPendingTransactions returns payment intents held awaiting capture.
func (p *StripeProvider) CheckPendingTransactions(ctx context.Context) []string {
	if p.secretKey == "" {
		return nil
	}
	params := &stripe.PaymentIntentListParams{}
	params.Context = ctx
	params.Filters.AddFilter("limit", "", "10")

	var pending []string
	iter := paymentintent.List(params)
	for iter.Next() {
		pi := iter.PaymentIntent()
		if pi.Status == stripe.PaymentIntentStatusRequiresCapture {
			pending = append(pending, pi.ID)
		}
	}
	if err := iter.Err(); err != nil {
		p.logger.Warn("failed to list pending transactions", "error", err)
	}
	return pending
}

// purchaseError maps backend errors onto the contract's error strings.
func purchaseError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ErrCancelled
	}
	return err.Error()
}

// UnavailableProvider is the Provider used when no billing backend is
// configured. Every call degrades gracefully.
type UnavailableProvider struct{}

func (UnavailableProvider) Initialize(context.Context) bool { return false }

func (UnavailableProvider) GetProduct(context.Context) *Product { return nil }

func (UnavailableProvider) Purchase(context.Context) PurchaseResult {
	return PurchaseResult{Success: false, Error: "billing unavailable"}
}

func (UnavailableProvider) FinishTransaction(context.Context, string) error { return nil }

func (UnavailableProvider) CheckPendingTransactions(context.Context) []string { return nil }
