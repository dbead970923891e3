package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/arashn/taskqueue/internal/domain"
	"github.com/arashn/taskqueue/internal/store"
)

const taskColumns = `id, name, args, kwargs, state, result, error, retry_count, max_retries,
	next_retry_at, scheduled_at, started_at, completed_at, created_at,
	worker_id, locked_until, timeout_seconds, priority, tags, handler_version`

// Insert writes a new pending row.
func (s *Store) Insert(ctx context.Context, task *domain.Task) error {
	args, err := marshalJSON(task.Args)
	if err != nil {
		return fmt.Errorf("failed to marshal args: %w", err)
	}
	kwargs, err := marshalJSON(task.Kwargs)
	if err != nil {
		return fmt.Errorf("failed to marshal kwargs: %w", err)
	}
	tags, err := marshalJSON(task.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO tasks (id, name, args, kwargs, state, retry_count, max_retries,
			scheduled_at, created_at, timeout_seconds, priority, tags, handler_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		task.ID, task.Name, args, kwargs, task.State, task.RetryCount, task.MaxRetries,
		task.ScheduledAt, task.CreatedAt, task.TimeoutSeconds, task.Priority, tags, task.HandlerVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// ClaimOne implements the claim protocol of spec.md §4.4: one transaction,
// SELECT ... FOR UPDATE SKIP LOCKED followed by the running-state UPDATE.
// A row is due when scheduled_at has passed and it is pending, failed with
// retries remaining, or running with a lease (locked_until) already past.
func (s *Store) ClaimOne(ctx context.Context, workerID string, now time.Time, lockDuration time.Duration) (*domain.Task, error) {
	var claimed *domain.Task

	err := s.withTx(ctx, "claim_one", func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			SELECT `+taskColumns+`
			FROM tasks
			WHERE (state = 'pending'
			       OR (state = 'failed' AND retry_count < max_retries)
			       OR state = 'running')
			  AND scheduled_at <= $1
			  AND (locked_until IS NULL OR locked_until < $1)
			ORDER BY priority DESC, created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED`, now)

		task, err := scanTask(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to select claimable task: %w", err)
		}

		lockedUntil := now.Add(lockDuration)
		_, err = tx.Exec(ctx, `
			UPDATE tasks
			SET state = 'running', worker_id = $1, locked_until = $2, started_at = $3
			WHERE id = $4`, workerID, lockedUntil, now, task.ID)
		if err != nil {
			return fmt.Errorf("failed to mark task running: %w", err)
		}

		task.State = domain.StateRunning
		task.WorkerID = &workerID
		task.LockedUntil = &lockedUntil
		task.StartedAt = &now
		claimed = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Get returns the row with the given id.
func (s *Store) Get(ctx context.Context, id string) (*domain.Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	return task, nil
}

// List returns rows matching filters, most recently created first.
func (s *Store) List(ctx context.Context, filters store.Filters, limit int) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any
	n := 1

	if filters.State != nil {
		query += fmt.Sprintf(" AND state = $%d", n)
		args = append(args, *filters.State)
		n++
	}
	if filters.Name != nil {
		query += fmt.Sprintf(" AND name = $%d", n)
		args = append(args, *filters.Name)
		n++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", n)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task rows: %w", err)
	}
	return tasks, nil
}

// MarkCompleted records a successful terminal outcome.
func (s *Store) MarkCompleted(ctx context.Context, id string, result *domain.ResultEnvelope, now time.Time) error {
	var resultJSON []byte
	if result != nil {
		b, err := json.Marshal(map[string]any{"value": result.Value})
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		resultJSON = b
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE tasks
		SET state = 'completed', result = $1, error = NULL, completed_at = $2,
		    worker_id = NULL, locked_until = NULL
		WHERE id = $3`, resultJSON, now, id)
	if err != nil {
		return fmt.Errorf("failed to mark task completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// RecordFailure records a failure outcome per spec.md §4.6. When
// nextScheduleAt is nil the row becomes terminal (completed_at is set) and
// newRetryCount must equal the row's existing retry_count — retries are
// exhausted, not advanced; otherwise the row stays claim-eligible at
// *nextScheduleAt and newRetryCount is retry_count+1.
func (s *Store) RecordFailure(ctx context.Context, id string, errText string, now time.Time, nextScheduleAt *time.Time, newRetryCount int) error {
	var (
		tag pgx.CommandTag
		err error
	)

	if nextScheduleAt != nil {
		tag, err = s.pool.Exec(ctx, `
			UPDATE tasks
			SET state = 'failed', error = $1, retry_count = $2,
			    scheduled_at = $3, next_retry_at = $3,
			    worker_id = NULL, locked_until = NULL
			WHERE id = $4`, errText, newRetryCount, *nextScheduleAt, id)
	} else {
		tag, err = s.pool.Exec(ctx, `
			UPDATE tasks
			SET state = 'failed', error = $1, retry_count = $2,
			    completed_at = $3, worker_id = NULL, locked_until = NULL
			WHERE id = $4`, errText, newRetryCount, now, id)
	}
	if err != nil {
		return fmt.Errorf("failed to record task failure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// ListTerminalFailed returns failed rows with retry_count >= max_retries —
// the dead-letter-review supplement's read side.
func (s *Store) ListTerminalFailed(ctx context.Context, limit int) ([]*domain.Task, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE state = 'failed' AND retry_count >= max_retries
		ORDER BY completed_at DESC NULLS LAST
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list terminal failed tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task rows: %w", err)
	}
	return tasks, nil
}

// ListArchivable returns terminal rows completed at or before cutoff,
// oldest first, for the archiver's sweep.
func (s *Store) ListArchivable(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Task, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE completed_at IS NOT NULL
		  AND completed_at <= $1
		  AND (state = 'completed' OR (state = 'failed' AND retry_count >= max_retries))
		ORDER BY completed_at ASC
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list archivable tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task rows: %w", err)
	}
	return tasks, nil
}

// DeleteArchived permanently removes the given rows. Callers must have
// already durably archived them elsewhere.
func (s *Store) DeleteArchived(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("failed to delete archived tasks: %w", err)
	}
	return nil
}

func marshalJSON(v map[string]any) ([]byte, error) {
	if v == nil {
		v = map[string]any{}
	}
	return json.Marshal(v)
}

func unmarshalJSONMap(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// scanTask scans one task row, in taskColumns order, from anything that
// satisfies pgx's row-scanning interface (pgx.Row or pgx.Rows).
func scanTask(row interface {
	Scan(dest ...any) error
}) (*domain.Task, error) {
	var (
		t              domain.Task
		argsJSON       []byte
		kwargsJSON     []byte
		resultJSON     []byte
		tagsJSON       []byte
		errText        *string
		state          string
		handlerVersion *string
	)

	err := row.Scan(
		&t.ID, &t.Name, &argsJSON, &kwargsJSON, &state, &resultJSON, &errText,
		&t.RetryCount, &t.MaxRetries, &t.NextRetryAt, &t.ScheduledAt, &t.StartedAt,
		&t.CompletedAt, &t.CreatedAt, &t.WorkerID, &t.LockedUntil, &t.TimeoutSeconds,
		&t.Priority, &tagsJSON, &handlerVersion,
	)
	if err != nil {
		return nil, err
	}

	t.State = domain.State(state)
	t.Error = errText
	t.HandlerVersion = handlerVersion

	if t.Args, err = unmarshalJSONMap(argsJSON); err != nil {
		return nil, fmt.Errorf("failed to unmarshal args: %w", err)
	}
	if t.Kwargs, err = unmarshalJSONMap(kwargsJSON); err != nil {
		return nil, fmt.Errorf("failed to unmarshal kwargs: %w", err)
	}
	if t.Tags, err = unmarshalJSONMap(tagsJSON); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	if len(resultJSON) > 0 {
		var envelope struct {
			Value any `json:"value"`
		}
		if err := json.Unmarshal(resultJSON, &envelope); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		t.Result = &domain.ResultEnvelope{Value: envelope.Value}
	}

	return &t, nil
}
