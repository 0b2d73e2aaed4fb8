package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/ticker/internal/backend"
	"github.com/roach88/ticker/internal/task"
)

// ErrTaskNotFound is returned by updates that target a row that does not
// exist. Deletes are idempotent and do not report it.
var ErrTaskNotFound = errors.New("task not found")

// ListByOwner returns every task owned by ownerID in display order:
// position first, then newest created among equal positions. Until a
// reorder has stamped distinct positions this is pure creation order,
// newest first. UUIDv7 ids break created_at ties.
//
// Returns an empty slice (not nil) if the owner has no tasks.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]task.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, title, completed, position, created_at, updated_at
		FROM tasks
		WHERE owner_id = ?
		ORDER BY position, created_at DESC, id COLLATE BINARY DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	return tasks, nil
}

// Insert creates a task for ownerID and returns the created row.
// The new task goes on top: its position is one below the owner's current
// minimum, which keeps display order stable across reloads after a
// reorder has stamped positions 0..n-1. Publishes an insert event to the
// change feed.
func (s *Store) Insert(ctx context.Context, ownerID, title string) (task.Task, error) {
	id := s.ids.Generate()
	now := s.stamp()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, owner_id, title, completed, position, created_at, updated_at)
		VALUES (?, ?, ?, 0,
			(SELECT COALESCE(MIN(position) - 1, 0) FROM tasks WHERE owner_id = ?),
			?, ?)
	`, id, ownerID, title, ownerID, now, now)
	if err != nil {
		return task.Task{}, fmt.Errorf("insert task: %w", err)
	}

	t, err := s.readTask(ctx, id)
	if err != nil {
		return task.Task{}, err
	}

	s.publish(backend.Event{Type: backend.EventInsert, Task: t})
	return t, nil
}

// SetCompleted updates the completion flag of one task.
// Publishes an update event with the full new row.
func (s *Store) SetCompleted(ctx context.Context, id string, completed bool) error {
	return s.updateTask(ctx, id, `completed = ?`, completed)
}

// SetTitle updates the title of one task.
// Publishes an update event with the full new row.
func (s *Store) SetTitle(ctx context.Context, id, title string) error {
	return s.updateTask(ctx, id, `title = ?`, title)
}

// updateTask applies a single-column update plus the updated_at stamp,
// then publishes the resulting row.
func (s *Store) updateTask(ctx context.Context, id, setClause string, value any) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET `+setClause+`, updated_at = ? WHERE id = ?`,
		value, s.stamp(), id)
	if err != nil {
		return fmt.Errorf("update task %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update task %s: %w", id, ErrTaskNotFound)
	}

	t, err := s.readTask(ctx, id)
	if err != nil {
		return err
	}
	s.publish(backend.Event{Type: backend.EventUpdate, Task: t})
	return nil
}

// SetPositions updates display positions for a set of tasks in one
// transaction. Rows that no longer exist are skipped. Publishes an update
// event per changed row.
func (s *Store) SetPositions(ctx context.Context, positions map[string]int) error {
	if len(positions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin positions update: %w", err)
	}
	defer tx.Rollback()

	now := s.stamp()
	changed := make([]string, 0, len(positions))
	for id, pos := range positions {
		res, err := tx.ExecContext(ctx,
			`UPDATE tasks SET position = ?, updated_at = ? WHERE id = ?`,
			pos, now, id)
		if err != nil {
			return fmt.Errorf("update position of task %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			changed = append(changed, id)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit positions update: %w", err)
	}

	for _, id := range changed {
		t, err := s.readTask(ctx, id)
		if err != nil {
			continue // row deleted between commit and read-back
		}
		s.publish(backend.Event{Type: backend.EventUpdate, Task: t})
	}
	return nil
}

// Delete removes one task. Deleting a row that is already gone is a
// no-op; the feed event is only published for an actual removal.
func (s *Store) Delete(ctx context.Context, id string) error {
	t, err := s.readTask(ctx, id)
	if errors.Is(err, ErrTaskNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}

	s.publish(backend.Event{Type: backend.EventDelete, Task: t})
	return nil
}

// DeleteAll removes every task in ids in one statement. Unknown ids are
// ignored. Publishes a delete event per removed row.
func (s *Store) DeleteAll(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	// Read the doomed rows first so the feed can carry their last versions.
	removed := make([]task.Task, 0, len(ids))
	for _, id := range ids {
		t, err := s.readTask(ctx, id)
		if errors.Is(err, ErrTaskNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		removed = append(removed, t)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("delete %d tasks: %w", len(ids), err)
	}

	for _, t := range removed {
		s.publish(backend.Event{Type: backend.EventDelete, Task: t})
	}
	return nil
}

// readTask fetches a single row by id.
func (s *Store) readTask(ctx context.Context, id string) (task.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, completed, position, created_at, updated_at
		FROM tasks
		WHERE id = ?
	`, id)

	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, fmt.Errorf("read task %s: %w", id, ErrTaskNotFound)
	}
	if err != nil {
		return task.Task{}, err
	}
	return t, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (task.Task, error) {
	var (
		t                    task.Task
		createdAt, updatedAt string
	)
	if err := sc.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Completed, &t.Position, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return task.Task{}, err
		}
		return task.Task{}, fmt.Errorf("scan task: %w", err)
	}

	var err error
	if t.CreatedAt, err = parseStamp(createdAt); err != nil {
		return task.Task{}, err
	}
	if t.UpdatedAt, err = parseStamp(updatedAt); err != nil {
		return task.Task{}, err
	}
	return t, nil
}
