package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/covenant-app/covenant-api/internal/service"
)

// IdentityHandler handles identity health endpoints.
type IdentityHandler struct {
	identitySvc *service.IdentityService
}

// NewIdentityHandler creates a new identity handler.
func NewIdentityHandler(identitySvc *service.IdentityService) *IdentityHandler {
	return &IdentityHandler{identitySvc: identitySvc}
}

// GetHealthOutput represents the identity health response.
type GetHealthOutput struct {
	Body struct {
		Health int  `json:"health"`
		IsDead bool `json:"is_dead"`
	}
}

// GetHealth returns the current identity health. Reading health at zero
// triggers the killing operation as a side effect.
func (h *IdentityHandler) GetHealth(ctx context.Context, input *struct{}) (*GetHealthOutput, error) {
	status, err := h.identitySvc.CheckHealth(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to check health")
	}
	out := &GetHealthOutput{}
	out.Body.Health = status.Health
	out.Body.IsDead = status.IsDead
	return out, nil
}

// ApplyDamageInput represents a damage request.
type ApplyDamageInput struct {
	Body struct {
		Amount int `json:"amount" minimum:"1" doc:"Health points to subtract"`
	}
}

// ApplyDamage subtracts health and reports the post-damage status.
func (h *IdentityHandler) ApplyDamage(ctx context.Context, input *ApplyDamageInput) (*GetHealthOutput, error) {
	status, err := h.identitySvc.ApplyDamage(ctx, input.Body.Amount)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to apply damage")
	}
	out := &GetHealthOutput{}
	out.Body.Health = status.Health
	out.Body.IsDead = status.IsDead
	return out, nil
}

// RestoreHealthInput represents a restoration request.
type RestoreHealthInput struct {
	Body struct {
		Amount int `json:"amount" minimum:"1" doc:"Health points to add"`
	}
}

// RestoreHealth adds health, clamped at the maximum.
func (h *IdentityHandler) RestoreHealth(ctx context.Context, input *RestoreHealthInput) (*GetHealthOutput, error) {
	if err := h.identitySvc.RestoreHealth(ctx, input.Body.Amount); err != nil {
		return nil, huma.Error500InternalServerError("failed to restore health")
	}
	return h.GetHealth(ctx, &struct{}{})
}

// GetAntiVisionOutput represents the anti-vision response.
type GetAntiVisionOutput struct {
	Body struct {
		AntiVision string `json:"anti_vision"`
	}
}

// GetAntiVision returns the stored anti-vision text, empty when absent.
func (h *IdentityHandler) GetAntiVision(ctx context.Context, input *struct{}) (*GetAntiVisionOutput, error) {
	text, err := h.identitySvc.GetAntiVision(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to read anti-vision")
	}
	out := &GetAntiVisionOutput{}
	out.Body.AntiVision = text
	return out, nil
}
