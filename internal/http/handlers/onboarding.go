package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/covenant-app/covenant-api/internal/models"
	"github.com/covenant-app/covenant-api/internal/service"
)

// OnboardingHandler handles the ceremonial setup endpoints.
type OnboardingHandler struct {
	onboardingSvc *service.OnboardingService
}

// NewOnboardingHandler creates a new onboarding handler.
func NewOnboardingHandler(onboardingSvc *service.OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{onboardingSvc: onboardingSvc}
}

// GetOnboardingOutput represents the onboarding progress response.
type GetOnboardingOutput struct {
	Body struct {
		CurrentStep models.OnboardingStep   `json:"current_step"`
		Steps       []models.OnboardingStep `json:"steps"`
	}
}

// GetOnboarding returns the step pointer and the canonical step order.
func (h *OnboardingHandler) GetOnboarding(ctx context.Context, input *struct{}) (*GetOnboardingOutput, error) {
	step, err := h.onboardingSvc.CurrentStep(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to read onboarding state")
	}
	out := &GetOnboardingOutput{}
	out.Body.CurrentStep = step
	out.Body.Steps = models.OnboardingOrder
	return out, nil
}

// CompleteStepInput represents a step completion request.
type CompleteStepInput struct {
	Body struct {
		Step string            `json:"step" minLength:"1" doc:"Step being completed; must match the current step"`
		Data *service.StepData `json:"data,omitempty" doc:"Step payload; required only for data-bearing steps"`
	}
}

// CompleteStepOutput represents a step completion response.
type CompleteStepOutput struct {
	Body struct {
		NextStep models.OnboardingStep `json:"next_step"`
		Complete bool                  `json:"complete"`
	}
}

// CompleteStep validates and completes one onboarding step.
func (h *OnboardingHandler) CompleteStep(ctx context.Context, input *CompleteStepInput) (*CompleteStepOutput, error) {
	next, err := h.onboardingSvc.CompleteStep(ctx, models.OnboardingStep(input.Body.Step), input.Body.Data)
	if err != nil {
		if service.IsValidationError(err) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		return nil, huma.Error500InternalServerError("failed to complete step")
	}
	out := &CompleteStepOutput{}
	out.Body.NextStep = next
	out.Body.Complete = next == models.StepComplete
	return out, nil
}

// ResetOnboardingOutput represents the reset response.
type ResetOnboardingOutput struct {
	Body struct {
		CurrentStep models.OnboardingStep `json:"current_step"`
	}
}

// ResetOnboarding clears setup progress and rewinds to the first step.
func (h *OnboardingHandler) ResetOnboarding(ctx context.Context, input *struct{}) (*ResetOnboardingOutput, error) {
	if err := h.onboardingSvc.ResetOnboarding(ctx); err != nil {
		return nil, huma.Error500InternalServerError("failed to reset onboarding")
	}
	out := &ResetOnboardingOutput{}
	out.Body.CurrentStep = models.StepCovenant
	return out, nil
}
