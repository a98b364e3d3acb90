package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/covenant-app/covenant-api/internal/models"
)

// QuestRepository persists daily quests.
type QuestRepository struct {
	q DBTX
}

// Create inserts a new quest.
func (r *QuestRepository) Create(ctx context.Context, quest *models.Quest) error {
	query := `INSERT INTO quests (id, quest_text, is_completed, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?)`
	var completedAt *string
	if quest.CompletedAt != nil {
		s := quest.CompletedAt.Format(time.RFC3339)
		completedAt = &s
	}
	_, err := r.q.ExecContext(ctx, query,
		quest.ID, quest.QuestText, quest.IsCompleted,
		quest.CreatedAt.Format(time.RFC3339), completedAt)
	return err
}

// GetByID returns a quest by id, or nil if it does not exist.
func (r *QuestRepository) GetByID(ctx context.Context, id string) (*models.Quest, error) {
	query := `SELECT id, quest_text, is_completed, created_at, completed_at FROM quests WHERE id = ?`
	return r.scanOne(r.q.QueryRowContext(ctx, query, id))
}

// List returns all quests ordered by creation time.
func (r *QuestRepository) List(ctx context.Context) ([]*models.Quest, error) {
	query := `SELECT id, quest_text, is_completed, created_at, completed_at FROM quests ORDER BY created_at`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var quests []*models.Quest
	for rows.Next() {
		var quest models.Quest
		var completedAt sql.NullString
		var createdAt string
		if err := rows.Scan(&quest.ID, &quest.QuestText, &quest.IsCompleted, &createdAt, &completedAt); err != nil {
			return nil, err
		}
		quest.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if completedAt.Valid {
			t, _ := time.Parse(time.RFC3339, completedAt.String)
			quest.CompletedAt = &t
		}
		quests = append(quests, &quest)
	}

	return quests, rows.Err()
}

// SetCompleted updates the completion flag. completed_at is only ever
// written when it is currently NULL, so an uncheck followed by a re-check
// keeps the original completion timestamp.
func (r *QuestRepository) SetCompleted(ctx context.Context, id string, completed bool, at time.Time) error {
	if completed {
		query := `UPDATE quests SET is_completed = 1,
			completed_at = COALESCE(completed_at, ?) WHERE id = ?`
		_, err := r.q.ExecContext(ctx, query, at.Format(time.RFC3339), id)
		return err
	}
	_, err := r.q.ExecContext(ctx, `UPDATE quests SET is_completed = 0 WHERE id = ?`, id)
	return err
}

// ResetCompletion clears the daily completion flags for a new day.
// completed_at is preserved: it marks that the quest has been rewarded
// once, which blocks double restoration on re-completion.
func (r *QuestRepository) ResetCompletion(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `UPDATE quests SET is_completed = 0`)
	return err
}

// CompletionCounts returns (completed, total) across all quests.
func (r *QuestRepository) CompletionCounts(ctx context.Context) (completed, total int, err error) {
	query := `SELECT COALESCE(SUM(is_completed), 0), COUNT(*) FROM quests`
	err = r.q.QueryRowContext(ctx, query).Scan(&completed, &total)
	return
}

// DeleteAll removes every quest row.
func (r *QuestRepository) DeleteAll(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM quests`)
	return err
}

func (r *QuestRepository) scanOne(row *sql.Row) (*models.Quest, error) {
	var quest models.Quest
	var completedAt sql.NullString
	var createdAt string
	err := row.Scan(&quest.ID, &quest.QuestText, &quest.IsCompleted, &createdAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	quest.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if completedAt.Valid {
		t, _ := time.Parse(time.RFC3339, completedAt.String)
		quest.CompletedAt = &t
	}
	return &quest, nil
}

// NotificationRepository persists scheduled reminder entries.
type NotificationRepository struct {
	q DBTX
}

// Create inserts a notification entry.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `INSERT INTO notifications (id, kind, scheduled_at, created_at) VALUES (?, ?, ?, ?)`
	_, err := r.q.ExecContext(ctx, query, n.ID, n.Kind, n.ScheduledAt, n.CreatedAt.Format(time.RFC3339))
	return err
}

// List returns all notification entries.
func (r *NotificationRepository) List(ctx context.Context) ([]*models.Notification, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, kind, scheduled_at, created_at FROM notifications ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var notifications []*models.Notification
	for rows.Next() {
		var n models.Notification
		var createdAt string
		if err := rows.Scan(&n.ID, &n.Kind, &n.ScheduledAt, &createdAt); err != nil {
			return nil, err
		}
		n.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		notifications = append(notifications, &n)
	}

	return notifications, rows.Err()
}

// DeleteAll removes every notification row.
func (r *NotificationRepository) DeleteAll(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM notifications`)
	return err
}
