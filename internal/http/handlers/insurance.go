package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/covenant-app/covenant-api/internal/service"
)

// InsuranceHandler handles the paid revival endpoints.
type InsuranceHandler struct {
	insuranceSvc *service.InsuranceService
}

// NewInsuranceHandler creates a new insurance handler.
func NewInsuranceHandler(insuranceSvc *service.InsuranceService) *InsuranceHandler {
	return &InsuranceHandler{insuranceSvc: insuranceSvc}
}

// EligibilityOutput represents the eligibility check response.
type EligibilityOutput struct {
	Body service.Eligibility
}

// CheckEligibility evaluates the revival gates and returns the first
// failure reason, or eligible=true.
func (h *InsuranceHandler) CheckEligibility(ctx context.Context, input *struct{}) (*EligibilityOutput, error) {
	eligibility, err := h.insuranceSvc.CheckEligibility(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to check eligibility")
	}
	return &EligibilityOutput{Body: *eligibility}, nil
}

// GetProductOutput represents the revival product response.
type GetProductOutput struct {
	Body struct {
		Available      bool    `json:"available"`
		ProductID      string  `json:"product_id,omitempty"`
		LocalizedPrice string  `json:"localized_price,omitempty"`
		Currency       string  `json:"currency,omitempty"`
		PriceAmount    float64 `json:"price_amount,omitempty"`
	}
}

// GetProduct returns the revival offer, or available=false when the
// billing backend is unreachable.
func (h *InsuranceHandler) GetProduct(ctx context.Context, input *struct{}) (*GetProductOutput, error) {
	out := &GetProductOutput{}
	product := h.insuranceSvc.GetProduct(ctx)
	if product == nil {
		return out, nil
	}
	out.Body.Available = true
	out.Body.ProductID = product.ProductID
	out.Body.LocalizedPrice = product.LocalizedPrice
	out.Body.Currency = product.Currency
	out.Body.PriceAmount = product.PriceAmount
	return out, nil
}

// PurchaseOutput represents the purchase flow response.
type PurchaseOutput struct {
	Body service.PurchaseFlowResult
}

// Purchase runs the end-to-end revival purchase. Failures come back as
// values with a reason or error string, not HTTP errors.
func (h *InsuranceHandler) Purchase(ctx context.Context, input *struct{}) (*PurchaseOutput, error) {
	result, err := h.insuranceSvc.PurchaseRevival(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("purchase flow failed")
	}
	return &PurchaseOutput{Body: *result}, nil
}

// PurchaseHistoryOutput represents the purchase history response.
type PurchaseHistoryOutput struct {
	Body struct {
		Purchases []PurchaseEntry `json:"purchases"`
	}
}

// PurchaseEntry represents one recorded purchase in responses.
type PurchaseEntry struct {
	ID            string  `json:"id"`
	TransactionID string  `json:"transaction_id"`
	ProductID     string  `json:"product_id"`
	PriceAmount   float64 `json:"price_amount"`
	PriceCurrency string  `json:"price_currency"`
	LifeNumber    int     `json:"life_number"`
	PurchasedAt   string  `json:"purchased_at"`
	IHBefore      int     `json:"ih_before"`
	IHAfter       int     `json:"ih_after"`
}

// PurchaseHistory returns all recorded revival purchases.
func (h *InsuranceHandler) PurchaseHistory(ctx context.Context, input *struct{}) (*PurchaseHistoryOutput, error) {
	purchases, err := h.insuranceSvc.PurchaseHistory(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to read purchase history")
	}
	out := &PurchaseHistoryOutput{}
	out.Body.Purchases = make([]PurchaseEntry, 0, len(purchases))
	for _, p := range purchases {
		out.Body.Purchases = append(out.Body.Purchases, PurchaseEntry{
			ID:            p.ID,
			TransactionID: p.TransactionID,
			ProductID:     p.ProductID,
			PriceAmount:   p.PriceAmount,
			PriceCurrency: p.PriceCurrency,
			LifeNumber:    p.LifeNumber,
			PurchasedAt:   p.PurchasedAt.Format(time.RFC3339),
			IHBefore:      p.IHBefore,
			IHAfter:       p.IHAfter,
		})
	}
	return out, nil
}
