package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/storage"
)

// TaskRepository implements storage.TaskRepository for BadgerDB.
type TaskRepository struct {
	backend *Backend
}

var _ storage.TaskRepository = (*TaskRepository)(nil)

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(backend *Backend) *TaskRepository {
	return &TaskRepository{backend: backend}
}

// Close is a no-op; the backend is closed by its owner.
func (r *TaskRepository) Close() error {
	return nil
}

// CreateTask stores a new task.
func (r *TaskRepository) CreateTask(ctx context.Context, task *core.ProcessingTask) error {
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		key := makeTaskKey(task.ID)
		existing, err := readValue(tx, key, storage.UnmarshalTask)
		if err != nil {
			return err
		}
		if existing != nil {
			return storage.ErrDuplicateKey
		}
		return writeValue(tx, key, task, storage.MarshalTask)
	})
}

// UpdateTask applies a partial update to an existing task.
func (r *TaskRepository) UpdateTask(ctx context.Context, id string, update core.TaskUpdate) (*core.ProcessingTask, error) {
	var updated *core.ProcessingTask
	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		key := makeTaskKey(id)
		task, err := readValue(tx, key, storage.UnmarshalTask)
		if err != nil {
			return err
		}
		if task == nil {
			return storage.ErrNotFound
		}

		update.Apply(task)
		task.UpdatedAt = time.Now().UTC()
		updated = task
		return writeValue(tx, key, task, storage.MarshalTask)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetTask retrieves a task by ID.
func (r *TaskRepository) GetTask(ctx context.Context, id string) (*core.ProcessingTask, error) {
	var task *core.ProcessingTask
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		var err error
		task, err = readValue(tx, makeTaskKey(id), storage.UnmarshalTask)
		return err
	})
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, storage.ErrNotFound
	}
	return task, nil
}
