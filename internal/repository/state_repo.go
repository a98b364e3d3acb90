package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/covenant-app/covenant-api/internal/models"
)

// AppStateRepository persists the singleton app lifecycle row.
type AppStateRepository struct {
	q DBTX
}

// Get returns the app state, inserting the onboarding default if the row
// is absent.
func (r *AppStateRepository) Get(ctx context.Context) (*models.AppState, error) {
	query := `SELECT state, has_used_insurance, life_number, updated_at FROM app_state WHERE id = 1`
	var state models.AppState
	var updatedAt string
	err := r.q.QueryRowContext(ctx, query).Scan(&state.State, &state.HasUsedInsurance, &state.LifeNumber, &updatedAt)
	if err == sql.ErrNoRows {
		if err := r.ensureRow(ctx); err != nil {
			return nil, err
		}
		return &models.AppState{State: models.AppStateOnboarding, LifeNumber: 1, UpdatedAt: time.Now()}, nil
	}
	if err != nil {
		return nil, err
	}
	state.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &state, nil
}

func (r *AppStateRepository) ensureRow(ctx context.Context) error {
	query := `INSERT INTO app_state (id, state, has_used_insurance, life_number, updated_at)
		VALUES (1, 'onboarding', 0, 1, ?)
		ON CONFLICT(id) DO NOTHING`
	_, err := r.q.ExecContext(ctx, query, time.Now().Format(time.RFC3339))
	return err
}

// SetState writes the lifecycle state value.
func (r *AppStateRepository) SetState(ctx context.Context, state models.AppStateValue) error {
	if err := r.ensureRow(ctx); err != nil {
		return err
	}
	query := `UPDATE app_state SET state = ?, updated_at = ? WHERE id = 1`
	_, err := r.q.ExecContext(ctx, query, string(state), time.Now().Format(time.RFC3339))
	return err
}

// SetInsuranceUsed marks insurance as consumed for the current life.
func (r *AppStateRepository) SetInsuranceUsed(ctx context.Context, used bool) error {
	query := `UPDATE app_state SET has_used_insurance = ?, updated_at = ? WHERE id = 1`
	_, err := r.q.ExecContext(ctx, query, used, time.Now().Format(time.RFC3339))
	return err
}

// AdvanceLife resets the insurance flag and increments life_number.
// Called exactly once per completed wipe.
func (r *AppStateRepository) AdvanceLife(ctx context.Context) error {
	if err := r.ensureRow(ctx); err != nil {
		return err
	}
	query := `UPDATE app_state SET has_used_insurance = 0, life_number = life_number + 1, updated_at = ? WHERE id = 1`
	_, err := r.q.ExecContext(ctx, query, time.Now().Format(time.RFC3339))
	return err
}

// DailyStateRepository persists the singleton day-rollover marker.
type DailyStateRepository struct {
	q DBTX
}

// Get returns the daily state, or nil if the row is absent.
func (r *DailyStateRepository) Get(ctx context.Context) (*models.DailyState, error) {
	query := `SELECT "current_date", last_reset_at FROM daily_state WHERE id = 1`
	var state models.DailyState
	var lastResetAt string
	err := r.q.QueryRowContext(ctx, query).Scan(&state.CurrentDate, &lastResetAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	state.LastResetAt, _ = time.Parse(time.RFC3339, lastResetAt)
	return &state, nil
}

// InitIfAbsent inserts today's row when none exists. Returns the stored
// date either way.
func (r *DailyStateRepository) InitIfAbsent(ctx context.Context, today string) (string, error) {
	query := `INSERT INTO daily_state (id, "current_date", last_reset_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO NOTHING`
	if _, err := r.q.ExecContext(ctx, query, today, time.Now().Format(time.RFC3339)); err != nil {
		return "", err
	}
	state, err := r.Get(ctx)
	if err != nil {
		return "", err
	}
	if state == nil {
		return today, nil
	}
	return state.CurrentDate, nil
}

// SetDate advances the stored date. The caller guarantees monotonicity.
func (r *DailyStateRepository) SetDate(ctx context.Context, date string) error {
	query := `INSERT INTO daily_state (id, "current_date", last_reset_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET "current_date" = excluded."current_date", last_reset_at = excluded.last_reset_at`
	_, err := r.q.ExecContext(ctx, query, date, time.Now().Format(time.RFC3339))
	return err
}

// DeleteAll removes the daily state row.
func (r *DailyStateRepository) DeleteAll(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM daily_state`)
	return err
}

// OnboardingRepository persists the step pointer and the partial setup
// payload accumulated across steps.
type OnboardingRepository struct {
	q DBTX
}

// GetState returns the step pointer, defaulting to the first step when the
// row is absent.
func (r *OnboardingRepository) GetState(ctx context.Context) (*models.OnboardingState, error) {
	query := `SELECT current_step, updated_at FROM onboarding_state WHERE id = 1`
	var state models.OnboardingState
	var updatedAt string
	err := r.q.QueryRowContext(ctx, query).Scan(&state.CurrentStep, &updatedAt)
	if err == sql.ErrNoRows {
		return &models.OnboardingState{CurrentStep: models.StepCovenant, UpdatedAt: time.Now()}, nil
	}
	if err != nil {
		return nil, err
	}
	state.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &state, nil
}

// SetStep writes the step pointer.
func (r *OnboardingRepository) SetStep(ctx context.Context, step models.OnboardingStep) error {
	query := `INSERT INTO onboarding_state (id, current_step, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET current_step = excluded.current_step, updated_at = excluded.updated_at`
	_, err := r.q.ExecContext(ctx, query, string(step), time.Now().Format(time.RFC3339))
	return err
}

// GetData returns the accumulated partial payload. An absent row comes
// back as the zero value rather than nil.
func (r *OnboardingRepository) GetData(ctx context.Context) (*models.OnboardingData, error) {
	query := `SELECT anti_vision, identity_statement, one_year_mission, quest1, quest2, updated_at
		FROM onboarding_data WHERE id = 1`
	var data models.OnboardingData
	var updatedAt string
	err := r.q.QueryRowContext(ctx, query).Scan(
		&data.AntiVision, &data.IdentityStatement, &data.OneYearMission,
		&data.Quest1, &data.Quest2, &updatedAt)
	if err == sql.ErrNoRows {
		return &models.OnboardingData{}, nil
	}
	if err != nil {
		return nil, err
	}
	data.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &data, nil
}

// dataColumns maps payload-bearing steps to the column each one writes.
var dataColumns = map[models.OnboardingStep]string{
	models.StepExcavation: "anti_vision",
	models.StepIdentity:   "identity_statement",
	models.StepMission:    "one_year_mission",
}

// UpsertField writes one text field of the payload, preserving previously
// written siblings.
func (r *OnboardingRepository) UpsertField(ctx context.Context, step models.OnboardingStep, value string) error {
	column, ok := dataColumns[step]
	if !ok {
		return fmt.Errorf("step %s carries no data column", step)
	}
	// column comes from the fixed map above, never from input
	query := `INSERT INTO onboarding_data (id, ` + column + `, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET ` + column + ` = excluded.` + column + `, updated_at = excluded.updated_at`
	_, err := r.q.ExecContext(ctx, query, value, time.Now().Format(time.RFC3339))
	return err
}

// UpsertQuests writes both quest texts, preserving the other fields.
func (r *OnboardingRepository) UpsertQuests(ctx context.Context, quest1, quest2 string) error {
	query := `INSERT INTO onboarding_data (id, quest1, quest2, updated_at) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET quest1 = excluded.quest1, quest2 = excluded.quest2, updated_at = excluded.updated_at`
	_, err := r.q.ExecContext(ctx, query, quest1, quest2, time.Now().Format(time.RFC3339))
	return err
}

// Reset clears the payload row and rewinds the step pointer to the first
// step.
func (r *OnboardingRepository) Reset(ctx context.Context) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM onboarding_data`); err != nil {
		return err
	}
	return r.SetStep(ctx, models.StepCovenant)
}
