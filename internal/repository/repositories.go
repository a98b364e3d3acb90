// Package repository contains the SQLite persistence layer.
// Every table from the data model has a repository; multi-statement
// mutations run through WithTx so that either all effects land or the
// transaction rolls back and the error propagates untouched.
package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repositories are written against it so the same code runs inside and
// outside an explicit transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repositories holds all repository instances bound to one DBTX.
type Repositories struct {
	Identity     *IdentityRepository
	Quest        *QuestRepository
	Notification *NotificationRepository
	AppState     *AppStateRepository
	DailyState   *DailyStateRepository
	Onboarding   *OnboardingRepository
	WipeLog      *WipeLogRepository
	Backup       *BackupRepository
	Insurance    *InsuranceRepository

	// db is the base connection; nil on a transaction-bound clone.
	db *sql.DB
}

// NewRepositories creates all repositories bound to the database.
func NewRepositories(db *sql.DB) *Repositories {
	r := bind(db)
	r.db = db
	return r
}

func bind(q DBTX) *Repositories {
	return &Repositories{
		Identity:     &IdentityRepository{q: q},
		Quest:        &QuestRepository{q: q},
		Notification: &NotificationRepository{q: q},
		AppState:     &AppStateRepository{q: q},
		DailyState:   &DailyStateRepository{q: q},
		Onboarding:   &OnboardingRepository{q: q},
		WipeLog:      &WipeLogRepository{q: q},
		Backup:       &BackupRepository{q: q},
		Insurance:    &InsuranceRepository{q: q},
	}
}

// WithTx runs fn inside a BEGIN/COMMIT/ROLLBACK block. fn receives a
// transaction-bound Repositories; any error rolls the transaction back and
// is returned to the caller unchanged.
func (r *Repositories) WithTx(ctx context.Context, fn func(*Repositories) error) error {
	if r.db == nil {
		// Already inside a transaction; run directly.
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(bind(tx)); err != nil {
		return err
	}

	return tx.Commit()
}

// DB returns the underlying connection for maintenance operations
// (VACUUM, dev resets). Nil on a transaction-bound clone.
func (r *Repositories) DB() *sql.DB {
	return r.db
}
