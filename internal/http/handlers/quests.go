package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/covenant-app/covenant-api/internal/models"
	"github.com/covenant-app/covenant-api/internal/service"
)

// QuestHandler handles daily quest endpoints.
type QuestHandler struct {
	questSvc *service.QuestService
}

// NewQuestHandler creates a new quest handler.
func NewQuestHandler(questSvc *service.QuestService) *QuestHandler {
	return &QuestHandler{questSvc: questSvc}
}

// QuestResponse represents a quest in responses.
type QuestResponse struct {
	ID          string `json:"id"`
	QuestText   string `json:"quest_text"`
	IsCompleted bool   `json:"is_completed"`
	CompletedAt string `json:"completed_at,omitempty"`
}

func questResponse(q *models.Quest) QuestResponse {
	resp := QuestResponse{
		ID:          q.ID,
		QuestText:   q.QuestText,
		IsCompleted: q.IsCompleted,
	}
	if q.CompletedAt != nil {
		resp.CompletedAt = q.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

// ListQuestsOutput represents the quest list response.
type ListQuestsOutput struct {
	Body struct {
		Quests []QuestResponse `json:"quests"`
	}
}

// ListQuests returns all quests in creation order.
func (h *QuestHandler) ListQuests(ctx context.Context, input *struct{}) (*ListQuestsOutput, error) {
	quests, err := h.questSvc.List(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list quests")
	}
	out := &ListQuestsOutput{}
	out.Body.Quests = make([]QuestResponse, 0, len(quests))
	for _, q := range quests {
		out.Body.Quests = append(out.Body.Quests, questResponse(q))
	}
	return out, nil
}

// ToggleQuestInput identifies the quest being toggled.
type ToggleQuestInput struct {
	ID string `path:"id" doc:"Quest id"`
}

// ToggleQuestOutput represents the toggle response.
type ToggleQuestOutput struct {
	Body struct {
		Quest         QuestResponse `json:"quest"`
		RewardGranted bool          `json:"reward_granted"`
		Health        int           `json:"health"`
	}
}

// CompleteQuest marks a quest done. The health reward lands on first
// completion only.
func (h *QuestHandler) CompleteQuest(ctx context.Context, input *ToggleQuestInput) (*ToggleQuestOutput, error) {
	result, err := h.questSvc.Complete(ctx, input.ID)
	if err != nil {
		return nil, huma.Error404NotFound("quest not found")
	}
	return toggleOutput(result), nil
}

// UncheckQuest clears a quest's completion flag without touching health.
func (h *QuestHandler) UncheckQuest(ctx context.Context, input *ToggleQuestInput) (*ToggleQuestOutput, error) {
	result, err := h.questSvc.Uncheck(ctx, input.ID)
	if err != nil {
		return nil, huma.Error404NotFound("quest not found")
	}
	return toggleOutput(result), nil
}

func toggleOutput(result *service.QuestToggleResult) *ToggleQuestOutput {
	out := &ToggleQuestOutput{}
	out.Body.Quest = questResponse(result.Quest)
	out.Body.RewardGranted = result.RewardGranted
	out.Body.Health = result.Health
	return out
}
