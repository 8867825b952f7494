package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"task_manager/internal/model"

	"github.com/jackc/pgx/v5"
)

// TaskRepository defines operations for task data
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id int64) (*model.Task, error)
	// FindForUser returns tasks created by or assigned to userID, ordered by due date.
	FindForUser(ctx context.Context, userID int64, filters model.TaskFilters) ([]model.Task, error)
	// Update applies the patch in a single statement and returns the new row,
	// or nil if the task does not exist.
	Update(ctx context.Context, id int64, patch model.TaskPatch) (*model.Task, error)
	// Delete removes the task and returns the removed row, or nil if absent.
	Delete(ctx context.Context, id int64) (*model.Task, error)
}

type taskRepository struct {
	db DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db DB) TaskRepository {
	return &taskRepository{db: db}
}

const taskSelect = `SELECT t.id, t.title, t.description, t.due_date, t.priority, t.status,
       t.assigned_to, t.created_by, t.created_at, t.updated_at, u.username
  FROM tasks t JOIN users u ON u.id = t.assigned_to`

func scanTask(row pgx.Row) (*model.Task, error) {
	var t model.Task
	var assignee string
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.DueDate, &t.Priority, &t.Status,
		&t.AssignedTo, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt, &assignee,
	)
	if err != nil {
		return nil, err
	}
	t.Assignee = &model.UserSummary{ID: t.AssignedTo, Username: assignee}
	return &t, nil
}

// Create inserts a new task into the database
func (r *taskRepository) Create(ctx context.Context, t *model.Task) error {
	sql := `INSERT INTO tasks (title, description, due_date, priority, status, assigned_to, created_by)
            VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, sql, t.Title, t.Description, t.DueDate, t.Priority, t.Status, t.AssignedTo, t.CreatedBy).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// FindByID retrieves a task by its ID
func (r *taskRepository) FindByID(ctx context.Context, id int64) (*model.Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx, taskSelect+` WHERE t.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to find task by ID: %w", err)
	}
	return t, nil
}

// FindForUser retrieves the tasks visible to a user with optional filters
func (r *taskRepository) FindForUser(ctx context.Context, userID int64, filters model.TaskFilters) ([]model.Task, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(taskSelect)
	queryBuilder.WriteString(` WHERE (t.created_by = $1 OR t.assigned_to = $1)`)
	args := []interface{}{userID}
	argCount := 2

	if filters.Priority != nil && *filters.Priority != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND t.priority = $%d", argCount))
		args = append(args, *filters.Priority)
		argCount++
	}
	if filters.Status != nil && *filters.Status != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND t.status = $%d", argCount))
		args = append(args, *filters.Status)
		argCount++
	}
	if filters.DueDate != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND t.due_date = $%d", argCount))
		args = append(args, *filters.DueDate)
	}

	queryBuilder.WriteString(" ORDER BY t.due_date ASC, t.id ASC")

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks for user: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return tasks, nil
}

// Update modifies the given fields of an existing task
func (r *taskRepository) Update(ctx context.Context, id int64, p model.TaskPatch) (*model.Task, error) {
	sql := `WITH t AS (
              UPDATE tasks SET
                title       = COALESCE($1, title),
                description = COALESCE($2, description),
                due_date    = COALESCE($3, due_date),
                priority    = COALESCE($4, priority),
                status      = COALESCE($5, status),
                assigned_to = COALESCE($6, assigned_to),
                updated_at  = NOW()
              WHERE id = $7
              RETURNING *
            )
            SELECT t.id, t.title, t.description, t.due_date, t.priority, t.status,
                   t.assigned_to, t.created_by, t.created_at, t.updated_at, u.username
              FROM t JOIN users u ON u.id = t.assigned_to`
	t, err := scanTask(r.db.QueryRow(ctx, sql, p.Title, p.Description, p.DueDate, p.Priority, p.Status, p.AssignedTo, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return t, nil
}

// Delete removes a task from the database
func (r *taskRepository) Delete(ctx context.Context, id int64) (*model.Task, error) {
	sql := `WITH t AS (DELETE FROM tasks WHERE id = $1 RETURNING *)
            SELECT t.id, t.title, t.description, t.due_date, t.priority, t.status,
                   t.assigned_to, t.created_by, t.created_at, t.updated_at, u.username
              FROM t JOIN users u ON u.id = t.assigned_to`
	t, err := scanTask(r.db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to delete task: %w", err)
	}
	return t, nil
}
