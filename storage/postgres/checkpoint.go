package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/storage"
)

// SaveCheckpoint stores the checkpoint under its name.
func (s *Store) SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error {
	checkpoint.UpdatedAt = time.Now().UTC()
	data, err := storage.MarshalCheckpoint(checkpoint)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO gleaner_checkpoints (name, data) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data`,
		checkpoint.Name, data)
	return err
}

// LoadCheckpoint returns the named checkpoint, or nil if none exists.
func (s *Store) LoadCheckpoint(ctx context.Context, name string) (*core.Checkpoint, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM gleaner_checkpoints WHERE name = $1`, name).Scan(&data)
	if err = translate(err); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return storage.UnmarshalCheckpoint(data)
}

// DeleteCheckpoint removes the named checkpoint.
func (s *Store) DeleteCheckpoint(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM gleaner_checkpoints WHERE name = $1`, name)
	return err
}
