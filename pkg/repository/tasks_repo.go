package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck/pkg/domain"
)

// TasksRepository handles task persistence. Every statement is conditioned
// on the owner, so a row belonging to another owner simply never matches —
// cross-owner access and a missing row produce the same not-found outcome.
type TasksRepository struct {
	db *sql.DB
}

// NewTasksRepository creates a new tasks repository.
func NewTasksRepository(db *sql.DB) *TasksRepository {
	return &TasksRepository{db: db}
}

// Create inserts a task and fills in its generated fields.
func (r *TasksRepository) Create(ctx context.Context, task *domain.Task) error {
	query := `
		INSERT INTO tasks (owner_id, title, description, completed)
		VALUES ($1, $2, $3, FALSE)
		RETURNING id, completed, created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query, task.OwnerID, task.Title, task.Description).Scan(
		&task.ID, &task.Completed, &task.CreatedAt, &task.UpdatedAt,
	)
}

// ListByOwner returns the owner's tasks, newest first, capped at limit.
func (r *TasksRepository) ListByOwner(ctx context.Context, owner uuid.UUID, status domain.StatusFilter, limit int) ([]domain.Task, error) {
	query := `
		SELECT id, owner_id, title, description, completed, created_at, updated_at
		FROM tasks
		WHERE owner_id = $1
		  AND ($2 = 'all' OR ($2 = 'completed') = completed)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, owner, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update applies a partial merge: only non-nil fields change. The mutation
// is conditioned on id AND owner in one statement; zero rows means not found.
func (r *TasksRepository) Update(ctx context.Context, owner uuid.UUID, id int64, title, description *string) (*domain.Task, error) {
	query := `
		UPDATE tasks
		SET title = COALESCE($3, title),
		    description = COALESCE($4, description),
		    updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING id, owner_id, title, description, completed, created_at, updated_at
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id, owner, title, description))
}

// Complete sets completed = TRUE unconditionally. Repeated calls leave the
// row completed with no error, so the operation is idempotent.
func (r *TasksRepository) Complete(ctx context.Context, owner uuid.UUID, id int64) (*domain.Task, error) {
	query := `
		UPDATE tasks
		SET completed = TRUE, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING id, owner_id, title, description, completed, created_at, updated_at
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id, owner))
}

// Delete removes the row matching id AND owner. A second delete of the same
// id reports not found because the row no longer exists.
func (r *TasksRepository) Delete(ctx context.Context, owner uuid.UUID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`, id, owner)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *TasksRepository) scanOne(row *sql.Row) (*domain.Task, error) {
	t := &domain.Task{}
	err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}
