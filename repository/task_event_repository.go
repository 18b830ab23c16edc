package repository

import (
	"context"
	"fmt"
	"time"

	"skillstreak/address"
	"skillstreak/database"
	"skillstreak/models"
)

// TaskEventRepository implements the TaskEventRepository interface
type TaskEventRepository struct {
	q queryable
}

// NewTaskEventRepository creates a new task event repository
func NewTaskEventRepository(db *database.DB) *TaskEventRepository {
	return &TaskEventRepository{q: db.Pool}
}

func newTaskEventRepositoryWithTx(tx queryable) *TaskEventRepository {
	return &TaskEventRepository{q: tx}
}

// Record appends a task completion
func (r *TaskEventRepository) Record(ctx context.Context, event *models.TaskEvent) error {
	query := `
		INSERT INTO task_events (user_address, owner, recorded_at, recorded_day)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.q.QueryRow(ctx, query,
		event.UserAddress,
		event.Owner,
		event.RecordedAt,
		event.RecordedDay,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to record task event for %s: %w", event.UserAddress, err)
	}
	return nil
}

// CountInWindow counts events with from <= recorded_at <= to
func (r *TaskEventRepository) CountInWindow(ctx context.Context, user address.Address, from, to int64) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM task_events
		WHERE user_address = $1 AND recorded_at >= $2 AND recorded_at <= $3
	`
	var count int64
	if err := r.q.QueryRow(ctx, query, user, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count task events for %s: %w", user, err)
	}
	return count, nil
}

// HasEventOnDay reports whether the user already has an event on the given UTC day
func (r *TaskEventRepository) HasEventOnDay(ctx context.Context, user address.Address, day time.Time) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM task_events WHERE user_address = $1 AND recorded_day = $2)`

	var exists bool
	if err := r.q.QueryRow(ctx, query, user, day).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check task events for %s: %w", user, err)
	}
	return exists, nil
}
