package models

import "time"

const (
	TaskCategoryDocumentation = "documentation"
	TaskCategoryApplication   = "application"
	TaskCategoryTestPrep      = "test_prep"
	TaskCategoryResearch      = "research"
)

const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
)

var TaskCategories = []string{
	TaskCategoryDocumentation,
	TaskCategoryApplication,
	TaskCategoryTestPrep,
	TaskCategoryResearch,
}

type Task struct {
	ID           string         `json:"id" db:"id"`
	UserID       string         `json:"user_id" db:"user_id"`
	UniversityID *string        `json:"university_id,omitempty" db:"university_id"`
	Title        string         `json:"title" db:"title"`
	Description  string         `json:"description,omitempty" db:"description"`
	Category     string         `json:"category" db:"category"`
	Status       string         `json:"status" db:"status"`
	AIGenerated  bool           `json:"ai_generated" db:"ai_generated"`
	AIMeta       map[string]any `json:"ai_meta,omitempty" db:"ai_meta"`
	Priority     *int           `json:"priority,omitempty" db:"priority"`
	EstHours     *int           `json:"est_hours,omitempty" db:"est_hours"`
	DueDate      *time.Time     `json:"due_date,omitempty" db:"due_date"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

type TaskFilter struct {
	Category     string
	Status       string
	UniversityID string
	Search       string
}

type CreateTaskRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	UniversityID *string    `json:"university_id,omitempty"`
	Priority     *int       `json:"priority,omitempty"`
	EstHours     *int       `json:"est_hours,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
}

type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Priority    *int       `json:"priority,omitempty"`
	EstHours    *int       `json:"est_hours,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

type TaskListResponse struct {
	Tasks       []*Task `json:"tasks"`
	Total       int     `json:"total"`
	Completed   int     `json:"completed"`
	AIGenerated int     `json:"ai_generated"`
}
