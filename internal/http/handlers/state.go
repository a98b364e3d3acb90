package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/covenant-app/covenant-api/internal/models"
	"github.com/covenant-app/covenant-api/internal/service"
	"github.com/covenant-app/covenant-api/internal/worker"
)

// StateHandler handles app lifecycle state endpoints.
type StateHandler struct {
	despairSvc  *service.DespairService
	identitySvc *service.IdentityService
	dailySvc    *service.DailyService
	worker      *worker.Worker
	repos       wipeLogLister
}

// wipeLogLister is the slice of the repository layer the wipe history
// endpoint needs.
type wipeLogLister interface {
	List(ctx context.Context) ([]*models.WipeLogEntry, error)
}

// NewStateHandler creates a new state handler.
func NewStateHandler(despairSvc *service.DespairService, identitySvc *service.IdentityService, dailySvc *service.DailyService, w *worker.Worker, wipeLog wipeLogLister) *StateHandler {
	return &StateHandler{
		despairSvc:  despairSvc,
		identitySvc: identitySvc,
		dailySvc:    dailySvc,
		worker:      w,
		repos:       wipeLog,
	}
}

// GetStateOutput represents the app state response.
type GetStateOutput struct {
	Body struct {
		State       models.AppStateValue `json:"state"`
		DespairMode bool                 `json:"despair_mode"`
		CanResetup  bool                 `json:"can_resetup"`
	}
}

// GetState returns the app lifecycle state.
func (h *StateHandler) GetState(ctx context.Context, input *struct{}) (*GetStateOutput, error) {
	state, err := h.despairSvc.CurrentState(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to read app state")
	}
	out := &GetStateOutput{}
	out.Body.State = state
	out.Body.DespairMode = state == models.AppStateDespair
	out.Body.CanResetup = h.despairSvc.CanResetup()
	return out, nil
}

// ForegroundOutput represents the rollover check response.
type ForegroundOutput struct {
	Body service.DateChangeResult
}

// Foreground handles the client foreground signal: it runs a rollover
// check immediately and returns the outcome.
func (h *StateHandler) Foreground(ctx context.Context, input *struct{}) (*ForegroundOutput, error) {
	result := h.dailySvc.CheckDateChange(ctx)
	if h.worker != nil {
		h.worker.NotifyForeground()
	}
	return &ForegroundOutput{Body: *result}, nil
}

// AcceptDeathOutput represents the accepted-death wipe response.
type AcceptDeathOutput struct {
	Body service.DespairResult
}

// AcceptDeath runs the full destructive wipe. From despair this is the
// user declining revival; from any other state it is a user-requested
// wipe. Either way the caller is routed to onboarding.
func (h *StateHandler) AcceptDeath(ctx context.Context, input *struct{}) (*AcceptDeathOutput, error) {
	reason := models.WipeReasonUserRequest
	if inDespair, err := h.despairSvc.IsDespairMode(ctx); err == nil && inDespair {
		reason = models.WipeReasonIHZero
	}
	result := h.despairSvc.OnWipe(ctx, reason, h.identitySvc.CachedHealth())
	return &AcceptDeathOutput{Body: *result}, nil
}

// ExitDespairOutput represents the despair exit response.
type ExitDespairOutput struct {
	Body struct {
		State      models.AppStateValue `json:"state"`
		NextScreen models.NextScreen    `json:"next_screen"`
	}
}

// ExitDespair leaves despair mode for onboarding. Idempotent.
func (h *StateHandler) ExitDespair(ctx context.Context, input *struct{}) (*ExitDespairOutput, error) {
	if err := h.despairSvc.ExitDespairMode(ctx); err != nil {
		return nil, huma.Error500InternalServerError("failed to exit despair mode")
	}
	out := &ExitDespairOutput{}
	out.Body.State = models.AppStateOnboarding
	out.Body.NextScreen = models.NextScreenOnboarding
	return out, nil
}

// WipeHistoryOutput represents the wipe audit log response.
type WipeHistoryOutput struct {
	Body struct {
		Wipes []WipeEntry `json:"wipes"`
	}
}

// WipeEntry represents one wipe audit record in responses.
type WipeEntry struct {
	ID           string `json:"id"`
	WipedAt      string `json:"wiped_at"`
	Reason       string `json:"reason"`
	FinalIHValue int    `json:"final_ih_value"`
}

// WipeHistory returns the append-only wipe audit log, most recent first.
func (h *StateHandler) WipeHistory(ctx context.Context, input *struct{}) (*WipeHistoryOutput, error) {
	entries, err := h.repos.List(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to read wipe history")
	}

	out := &WipeHistoryOutput{}
	out.Body.Wipes = make([]WipeEntry, 0, len(entries))
	for _, e := range entries {
		out.Body.Wipes = append(out.Body.Wipes, WipeEntry{
			ID:           e.ID,
			WipedAt:      e.WipedAt.Format(time.RFC3339),
			Reason:       string(e.Reason),
			FinalIHValue: e.FinalIHValue,
		})
	}
	return out, nil
}
