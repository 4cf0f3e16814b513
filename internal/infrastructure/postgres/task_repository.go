package postgres

import (
	"context"
	"errors"
	"fmt"

	domain "taskboard/backend/internal/domain/task"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TaskRepository persists tasks in PostgreSQL.
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository constructs a repository.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

var _ domain.Repository = (*TaskRepository)(nil)

// sortColumns whitelists sortable fields against their columns.
var sortColumns = map[string]string{
	"taskId":   "task_id",
	"title":    "title",
	"dueDate":  "due_date",
	"status":   "status",
	"priority": "priority",
}

// Create inserts a new task and fills in its assigned TaskID.
func (r *TaskRepository) Create(ctx context.Context, t *domain.Task) error {
	const query = `
INSERT INTO tasks (title, description, due_date, status, priority, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING task_id
`
	return r.pool.QueryRow(ctx, query,
		t.Title,
		t.Description,
		t.DueDate,
		t.Status,
		t.Priority,
		t.CreatedAt,
		t.UpdatedAt,
	).Scan(&t.TaskID)
}

// GetByID fetches a task by its numeric id.
func (r *TaskRepository) GetByID(ctx context.Context, taskID int64) (*domain.Task, error) {
	const query = `
SELECT task_id, title, description, due_date, status, priority, created_at, updated_at
FROM tasks WHERE task_id = $1
`
	row := r.pool.QueryRow(ctx, query, taskID)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// List returns one page of tasks and the total count matching the filter.
func (r *TaskRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Task, int, error) {
	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "task_id"
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	where := ""
	var args []any
	if filter.Search != "" {
		where = "WHERE title ILIKE $1 OR description ILIKE $1"
		args = append(args, "%"+filter.Search+"%")
	}

	var total int
	countQuery := "SELECT count(*) FROM tasks " + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
SELECT task_id, title, description, due_date, status, priority, created_at, updated_at
FROM tasks %s
ORDER BY %s %s
OFFSET $%d LIMIT $%d
`, where, column, direction, len(args)+1, len(args)+2)
	args = append(args, filter.Offset, filter.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, t)
	}
	return tasks, total, rows.Err()
}

// Update writes task updates to the database.
func (r *TaskRepository) Update(ctx context.Context, t *domain.Task) error {
	const query = `
UPDATE tasks
SET title = $2,
    description = $3,
    due_date = $4,
    status = $5,
    priority = $6,
    updated_at = $7
WHERE task_id = $1
`
	tag, err := r.pool.Exec(ctx, query,
		t.TaskID,
		t.Title,
		t.Description,
		t.DueDate,
		t.Status,
		t.Priority,
		t.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a task by id.
func (r *TaskRepository) Delete(ctx context.Context, taskID int64) error {
	const query = `DELETE FROM tasks WHERE task_id = $1`
	tag, err := r.pool.Exec(ctx, query, taskID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// TitlesExisting reports which of the given titles are already stored.
func (r *TaskRepository) TitlesExisting(ctx context.Context, titles []string) ([]string, error) {
	const query = `SELECT title FROM tasks WHERE title = ANY($1)`
	rows, err := r.pool.Query(ctx, query, titles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var existing []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		existing = append(existing, title)
	}
	return existing, rows.Err()
}

// CreateBatch inserts all tasks in one transaction, filling in TaskIDs.
func (r *TaskRepository) CreateBatch(ctx context.Context, tasks []*domain.Task) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const query = `
INSERT INTO tasks (title, description, due_date, status, priority, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING task_id
`
	for _, t := range tasks {
		err := tx.QueryRow(ctx, query,
			t.Title,
			t.Description,
			t.DueDate,
			t.Status,
			t.Priority,
			t.CreatedAt,
			t.UpdatedAt,
		).Scan(&t.TaskID)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	err := row.Scan(
		&t.TaskID,
		&t.Title,
		&t.Description,
		&t.DueDate,
		&t.Status,
		&t.Priority,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
