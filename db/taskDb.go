package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"counsellor/models"
)

type TaskRepository interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, userID, taskID string) (*models.Task, error)
	ListTasks(ctx context.Context, userID string, filter models.TaskFilter) ([]*models.Task, error)
	DeleteAIGeneratedTasks(ctx context.Context, userID, universityID string) (int, error)
	UpdateTask(ctx context.Context, userID, taskID string, updates map[string]any) error
	DeleteTask(ctx context.Context, userID, taskID string) error
}

var taskUpdateColumns = map[string]bool{
	"title":       true,
	"description": true,
	"category":    true,
	"status":      true,
	"priority":    true,
	"est_hours":   true,
	"due_date":    true,
}

type PostgresTaskRepository struct {
	db *sql.DB
}

func NewPostgresTaskRepository(databaseURL string) (*PostgresTaskRepository, error) {
	db, err := openPostgres(databaseURL)
	if err != nil {
		return nil, err
	}

	return &PostgresTaskRepository{db: db}, nil
}

const taskColumns = `id, user_id, university_id, title, description, category, status,
	ai_generated, ai_meta, priority, est_hours, due_date, created_at, updated_at`

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var universityID, description sql.NullString
	var meta []byte
	var priority, estHours sql.NullInt64
	var dueDate sql.NullTime

	err := row.Scan(&task.ID, &task.UserID, &universityID, &task.Title, &description,
		&task.Category, &task.Status, &task.AIGenerated, &meta, &priority, &estHours,
		&dueDate, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if universityID.Valid {
		id := universityID.String
		task.UniversityID = &id
	}
	task.Description = nullableString(description)
	task.Priority = nullableInt(priority)
	task.EstHours = nullableInt(estHours)
	if dueDate.Valid {
		due := dueDate.Time
		task.DueDate = &due
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &task.AIMeta); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ai_meta: %w", err)
		}
	}

	return task, nil
}

func (r *PostgresTaskRepository) CreateTask(ctx context.Context, task *models.Task) error {
	var meta []byte
	if task.AIMeta != nil {
		var err error
		meta, err = json.Marshal(task.AIMeta)
		if err != nil {
			return fmt.Errorf("failed to marshal ai_meta: %w", err)
		}
	}

	query := `
		INSERT INTO counsellor.tasks (id, user_id, university_id, title, description, category,
			status, ai_generated, ai_meta, priority, est_hours, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`

	row := r.db.QueryRowContext(ctx, query, task.ID, task.UserID, task.UniversityID, task.Title,
		task.Description, task.Category, task.Status, task.AIGenerated, meta, task.Priority,
		task.EstHours, task.DueDate)

	if err := row.Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

func (r *PostgresTaskRepository) GetTask(ctx context.Context, userID, taskID string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM counsellor.tasks WHERE user_id = $1 AND id = $2`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, userID, taskID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

func (r *PostgresTaskRepository) ListTasks(ctx context.Context, userID string, filter models.TaskFilter) ([]*models.Task, error) {
	conditions := []string{"user_id = $1"}
	args := []any{userID}

	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.UniversityID != "" {
		args = append(args, filter.UniversityID)
		conditions = append(conditions, fmt.Sprintf("university_id = $%d", len(args)))
	}

	query := `SELECT ` + taskColumns + ` FROM counsellor.tasks WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over tasks: %w", err)
	}

	return tasks, nil
}

func (r *PostgresTaskRepository) DeleteAIGeneratedTasks(ctx context.Context, userID, universityID string) (int, error) {
	query := `
		DELETE FROM counsellor.tasks
		WHERE user_id = $1 AND university_id = $2 AND ai_generated = TRUE`

	result, err := r.db.ExecContext(ctx, query, userID, universityID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete generated tasks: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}

func (r *PostgresTaskRepository) UpdateTask(ctx context.Context, userID, taskID string, updates map[string]any) error {
	if len(updates) == 0 {
		return fmt.Errorf("no updates provided")
	}

	columns := make([]string, 0, len(updates))
	for column := range updates {
		if !taskUpdateColumns[column] {
			return fmt.Errorf("column %q cannot be updated", column)
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)

	setClauses := make([]string, 0, len(columns)+1)
	args := make([]any, 0, len(columns)+2)
	for _, column := range columns {
		args = append(args, updates[column])
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	setClauses = append(setClauses, "updated_at = NOW()")

	args = append(args, userID, taskID)
	query := fmt.Sprintf(`UPDATE counsellor.tasks SET %s WHERE user_id = $%d AND id = $%d`,
		strings.Join(setClauses, ", "), len(args)-1, len(args))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return expectOneRow(result, fmt.Sprintf("task %s", taskID))
}

func (r *PostgresTaskRepository) DeleteTask(ctx context.Context, userID, taskID string) error {
	query := `DELETE FROM counsellor.tasks WHERE user_id = $1 AND id = $2`

	result, err := r.db.ExecContext(ctx, query, userID, taskID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return expectOneRow(result, fmt.Sprintf("task %s", taskID))
}

func (r *PostgresTaskRepository) Close() error {
	return r.db.Close()
}
