package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/storage"
)

// CreateTask stores a new task.
func (s *Store) CreateTask(ctx context.Context, task *core.ProcessingTask) error {
	data, err := storage.MarshalTask(task)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO gleaner_tasks (id, owner, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		task.ID, task.Owner, data, task.CreatedAt, task.UpdatedAt)
	return translate(err)
}

// UpdateTask applies a partial update under a row lock.
func (s *Store) UpdateTask(ctx context.Context, id string, update core.TaskUpdate) (*core.ProcessingTask, error) {
	var updated *core.ProcessingTask
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var data []byte
		err := tx.QueryRow(ctx, `SELECT data FROM gleaner_tasks WHERE id = $1 FOR UPDATE`, id).Scan(&data)
		if err != nil {
			return translate(err)
		}
		task, err := storage.UnmarshalTask(data)
		if err != nil {
			return err
		}

		update.Apply(task)
		task.UpdatedAt = time.Now().UTC()
		if data, err = storage.MarshalTask(task); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE gleaner_tasks SET data = $2, updated_at = $3 WHERE id = $1`,
			id, data, task.UpdatedAt)
		updated = task
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, id string) (*core.ProcessingTask, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM gleaner_tasks WHERE id = $1`, id).Scan(&data)
	if err != nil {
		return nil, translate(err)
	}
	return storage.UnmarshalTask(data)
}
