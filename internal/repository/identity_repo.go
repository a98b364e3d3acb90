package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/covenant-app/covenant-api/internal/models"
)

// IdentityRepository persists the singleton identity row.
type IdentityRepository struct {
	q DBTX
}

// Get returns the identity, or nil if no identity row exists.
func (r *IdentityRepository) Get(ctx context.Context) (*models.Identity, error) {
	query := `SELECT anti_vision, identity_statement, one_year_mission, identity_health, created_at, updated_at
		FROM identity WHERE id = 1`
	var identity models.Identity
	var createdAt, updatedAt string
	err := r.q.QueryRowContext(ctx, query).Scan(
		&identity.AntiVision, &identity.IdentityStatement, &identity.OneYearMission,
		&identity.IdentityHealth, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	identity.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	identity.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &identity, nil
}

// Create inserts the identity row, replacing any existing one.
func (r *IdentityRepository) Create(ctx context.Context, identity *models.Identity) error {
	query := `INSERT INTO identity (id, anti_vision, identity_statement, one_year_mission, identity_health, created_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			anti_vision = excluded.anti_vision,
			identity_statement = excluded.identity_statement,
			one_year_mission = excluded.one_year_mission,
			identity_health = excluded.identity_health,
			updated_at = excluded.updated_at`
	_, err := r.q.ExecContext(ctx, query,
		identity.AntiVision, identity.IdentityStatement, identity.OneYearMission,
		identity.IdentityHealth,
		identity.CreatedAt.Format(time.RFC3339), identity.UpdatedAt.Format(time.RFC3339))
	return err
}

// GetHealth returns the stored IH value. Returns 0 with no error when no
// identity row exists.
func (r *IdentityRepository) GetHealth(ctx context.Context) (int, error) {
	var health int
	err := r.q.QueryRowContext(ctx, `SELECT identity_health FROM identity WHERE id = 1`).Scan(&health)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return health, nil
}

// SetHealth writes the IH value. The caller is responsible for clamping.
func (r *IdentityRepository) SetHealth(ctx context.Context, health int) error {
	query := `UPDATE identity SET identity_health = ?, updated_at = ? WHERE id = 1`
	_, err := r.q.ExecContext(ctx, query, health, time.Now().Format(time.RFC3339))
	return err
}

// Delete removes the identity row entirely.
func (r *IdentityRepository) Delete(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM identity WHERE id = 1`)
	return err
}
