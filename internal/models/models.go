// Package models defines the domain models for the application.
// The store is single-tenant: identity, app_state, daily_state,
// identity_backup, onboarding_state and onboarding_data each hold exactly
// one logical row. Only wipe_log and insurance_purchases grow over time.
package models

import (
	"time"
)

// MinIdentityHealth and MaxIdentityHealth bound the IH score.
// identity_health is always clamped into this range by the lifecycle
// service; values outside it never reach the store.
const (
	MinIdentityHealth = 0
	MaxIdentityHealth = 100
)

// Identity is the user's declared identity and its health score.
type Identity struct {
	AntiVision        string    `json:"anti_vision"`
	IdentityStatement string    `json:"identity_statement"`
	OneYearMission    string    `json:"one_year_mission"`
	IdentityHealth    int       `json:"identity_health"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Quest is a daily quest. CompletedAt is set on the first completion and
// never cleared by an uncheck; a non-nil CompletedAt on a re-check marks a
// re-completion, which must not grant a second health restoration.
type Quest struct {
	ID          string     `json:"id"`
	QuestText   string     `json:"quest_text"`
	IsCompleted bool       `json:"is_completed"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Notification is a scheduled reminder entry. Notification rows are user
// content: they are seeded at onboarding completion and destroyed by a wipe.
type Notification struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	ScheduledAt string    `json:"scheduled_at"` // HH:MM local
	CreatedAt   time.Time `json:"created_at"`
}

// AppStateValue is the top-level application state.
type AppStateValue string

const (
	AppStateOnboarding AppStateValue = "onboarding"
	AppStateActive     AppStateValue = "active"
	AppStateDespair    AppStateValue = "despair"
)

// AppState is the singleton app lifecycle row. It survives wipes.
// State transitions only along onboarding→active, active→despair,
// despair→onboarding. LifeNumber increments exactly once per completed wipe.
type AppState struct {
	State            AppStateValue `json:"state"`
	HasUsedInsurance bool          `json:"has_used_insurance"`
	LifeNumber       int           `json:"life_number"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// DailyState is the singleton day-rollover marker. CurrentDate is a local
// calendar date (YYYY-MM-DD) and is monotonically non-decreasing.
type DailyState struct {
	CurrentDate string    `json:"current_date"`
	LastResetAt time.Time `json:"last_reset_at"`
}

// WipeReason classifies why a wipe was executed.
type WipeReason string

const (
	WipeReasonIHZero      WipeReason = "IH_ZERO"
	WipeReasonQuestFail   WipeReason = "QUEST_FAIL"
	WipeReasonUserRequest WipeReason = "USER_REQUEST"
)

// WipeLogEntry is an append-only audit record of a wipe. Entries are never
// mutated or deleted, including by later wipes.
type WipeLogEntry struct {
	ID           string     `json:"id"`
	WipedAt      time.Time  `json:"wiped_at"`
	Reason       WipeReason `json:"reason"`
	FinalIHValue int        `json:"final_ih_value"`
}

// IdentityBackup is the singleton pre-death snapshot. It is created before
// a destructive sequence begins and consumed (deleted) by either a
// successful insurance restore or a completed wipe.
type IdentityBackup struct {
	AntiVision        string    `json:"anti_vision"`
	IdentityStatement string    `json:"identity_statement"`
	OneYearMission    string    `json:"one_year_mission"`
	OriginalIH        int       `json:"original_ih"`
	BackedUpAt        time.Time `json:"backed_up_at"`
}

// InsurancePurchase is an append-only record of a paid revival.
type InsurancePurchase struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	ProductID     string    `json:"product_id"`
	PriceAmount   float64   `json:"price_amount"`
	PriceCurrency string    `json:"price_currency"`
	LifeNumber    int       `json:"life_number"`
	PurchasedAt   time.Time `json:"purchased_at"`
	IHBefore      int       `json:"ih_before"`
	IHAfter       int       `json:"ih_after"`
}

// OnboardingStep is one of the eight ordered setup steps.
type OnboardingStep string

const (
	StepCovenant           OnboardingStep = "covenant"
	StepExcavation         OnboardingStep = "excavation"
	StepIdentity           OnboardingStep = "identity"
	StepMission            OnboardingStep = "mission"
	StepQuests             OnboardingStep = "quests"
	StepOpticalCalibration OnboardingStep = "optical_calibration"
	StepFirstJudgment      OnboardingStep = "first_judgment"
	StepComplete           OnboardingStep = "complete"
)

// OnboardingOrder is the canonical step sequence. CompleteStep only ever
// advances along this slice; there is no skipping and no re-entry.
var OnboardingOrder = []OnboardingStep{
	StepCovenant,
	StepExcavation,
	StepIdentity,
	StepMission,
	StepQuests,
	StepOpticalCalibration,
	StepFirstJudgment,
	StepComplete,
}

// IsCeremonyStep reports whether the step carries no payload and writes
// nothing but the step pointer.
func IsCeremonyStep(s OnboardingStep) bool {
	return s == StepCovenant || s == StepOpticalCalibration || s == StepFirstJudgment
}

// NextStep returns the step following s in the canonical order, or "" if s
// is the final step or unknown.
func NextStep(s OnboardingStep) OnboardingStep {
	for i, step := range OnboardingOrder {
		if step == s && i+1 < len(OnboardingOrder) {
			return OnboardingOrder[i+1]
		}
	}
	return ""
}

// KnownStep reports whether s is one of the eight step names.
func KnownStep(s OnboardingStep) bool {
	for _, step := range OnboardingOrder {
		if step == s {
			return true
		}
	}
	return false
}

// OnboardingState is the singleton step pointer row.
type OnboardingState struct {
	CurrentStep OnboardingStep `json:"current_step"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// OnboardingData is the singleton partial setup payload accumulated across
// steps. Writing one field must preserve previously written siblings.
type OnboardingData struct {
	AntiVision        string    `json:"anti_vision"`
	IdentityStatement string    `json:"identity_statement"`
	OneYearMission    string    `json:"one_year_mission"`
	Quest1            string    `json:"quest1"`
	Quest2            string    `json:"quest2"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NextScreen is where the UI routes after a destructive transition.
// The "despair" variant exists for forward compatibility; every current
// path produces "onboarding".
type NextScreen string

const (
	NextScreenOnboarding NextScreen = "onboarding"
	NextScreenDespair    NextScreen = "despair"
)

// ClampIH clamps a health value into [MinIdentityHealth, MaxIdentityHealth].
func ClampIH(v int) int {
	if v < MinIdentityHealth {
		return MinIdentityHealth
	}
	if v > MaxIdentityHealth {
		return MaxIdentityHealth
	}
	return v
}
