package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/covenant-app/covenant-api/internal/models"
)

// WipeLogRepository persists the append-only wipe audit log.
// Entries are never updated or deleted.
type WipeLogRepository struct {
	q DBTX
}

// EnsureTable lazily creates the audit table. The wipe path calls this
// before writing so a wipe can still be recorded on a database that
// predates the migration.
func (r *WipeLogRepository) EnsureTable(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS wipe_log (
		id TEXT PRIMARY KEY,
		wiped_at TEXT NOT NULL,
		reason TEXT NOT NULL,
		final_ih_value INTEGER NOT NULL
	)`)
	return err
}

// Append inserts one audit entry.
func (r *WipeLogRepository) Append(ctx context.Context, entry *models.WipeLogEntry) error {
	query := `INSERT INTO wipe_log (id, wiped_at, reason, final_ih_value) VALUES (?, ?, ?, ?)`
	_, err := r.q.ExecContext(ctx, query,
		entry.ID, entry.WipedAt.Format(time.RFC3339), string(entry.Reason), entry.FinalIHValue)
	return err
}

// List returns all wipe entries, most recent first.
func (r *WipeLogRepository) List(ctx context.Context) ([]*models.WipeLogEntry, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, wiped_at, reason, final_ih_value FROM wipe_log ORDER BY wiped_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []*models.WipeLogEntry
	for rows.Next() {
		var entry models.WipeLogEntry
		var wipedAt string
		if err := rows.Scan(&entry.ID, &wipedAt, &entry.Reason, &entry.FinalIHValue); err != nil {
			return nil, err
		}
		entry.WipedAt, _ = time.Parse(time.RFC3339, wipedAt)
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// BackupRepository persists the singleton pre-death identity snapshot.
type BackupRepository struct {
	q DBTX
}

// Upsert writes the snapshot, replacing any prior backup.
func (r *BackupRepository) Upsert(ctx context.Context, backup *models.IdentityBackup) error {
	query := `INSERT INTO identity_backup (id, anti_vision, identity_statement, one_year_mission, original_ih, backed_up_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			anti_vision = excluded.anti_vision,
			identity_statement = excluded.identity_statement,
			one_year_mission = excluded.one_year_mission,
			original_ih = excluded.original_ih,
			backed_up_at = excluded.backed_up_at`
	_, err := r.q.ExecContext(ctx, query,
		backup.AntiVision, backup.IdentityStatement, backup.OneYearMission,
		backup.OriginalIH, backup.BackedUpAt.Format(time.RFC3339))
	return err
}

// Get returns the snapshot, or nil if none exists.
func (r *BackupRepository) Get(ctx context.Context) (*models.IdentityBackup, error) {
	query := `SELECT anti_vision, identity_statement, one_year_mission, original_ih, backed_up_at
		FROM identity_backup WHERE id = 1`
	var backup models.IdentityBackup
	var backedUpAt string
	err := r.q.QueryRowContext(ctx, query).Scan(
		&backup.AntiVision, &backup.IdentityStatement, &backup.OneYearMission,
		&backup.OriginalIH, &backedUpAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	backup.BackedUpAt, _ = time.Parse(time.RFC3339, backedUpAt)
	return &backup, nil
}

// Delete consumes the snapshot.
func (r *BackupRepository) Delete(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM identity_backup`)
	return err
}

// InsuranceRepository persists the append-only purchase history.
type InsuranceRepository struct {
	q DBTX
}

// RecordPurchase inserts one purchase entry.
func (r *InsuranceRepository) RecordPurchase(ctx context.Context, p *models.InsurancePurchase) error {
	query := `INSERT INTO insurance_purchases
		(id, transaction_id, product_id, price_amount, price_currency, life_number, purchased_at, ih_before, ih_after)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.q.ExecContext(ctx, query,
		p.ID, p.TransactionID, p.ProductID, p.PriceAmount, p.PriceCurrency,
		p.LifeNumber, p.PurchasedAt.Format(time.RFC3339), p.IHBefore, p.IHAfter)
	return err
}

// ListPurchases returns the purchase history, most recent first.
func (r *InsuranceRepository) ListPurchases(ctx context.Context) ([]*models.InsurancePurchase, error) {
	query := `SELECT id, transaction_id, product_id, price_amount, price_currency, life_number, purchased_at, ih_before, ih_after
		FROM insurance_purchases ORDER BY purchased_at DESC`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var purchases []*models.InsurancePurchase
	for rows.Next() {
		var p models.InsurancePurchase
		var purchasedAt string
		if err := rows.Scan(&p.ID, &p.TransactionID, &p.ProductID, &p.PriceAmount, &p.PriceCurrency,
			&p.LifeNumber, &purchasedAt, &p.IHBefore, &p.IHAfter); err != nil {
			return nil, err
		}
		p.PurchasedAt, _ = time.Parse(time.RFC3339, purchasedAt)
		purchases = append(purchases, &p)
	}

	return purchases, rows.Err()
}
