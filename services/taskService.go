package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"counsellor/db"
	"counsellor/models"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
)

type TaskService struct {
	repo db.TaskRepository
}

func NewTaskService(repo db.TaskRepository) *TaskService {
	return &TaskService{repo: repo}
}

func (s *TaskService) ListTasks(ctx context.Context, userID string, filter models.TaskFilter) (*models.TaskListResponse, error) {
	log.Printf("[INFO] Starting task list for user %s (category=%q status=%q university=%q search=%q)",
		userID, filter.Category, filter.Status, filter.UniversityID, filter.Search)

	if filter.Category != "" && !lo.Contains(models.TaskCategories, filter.Category) {
		return nil, fmt.Errorf("%w: unknown task category %q", ErrInvalidInput, filter.Category)
	}
	if filter.Status != "" && filter.Status != models.TaskStatusPending && filter.Status != models.TaskStatusCompleted {
		return nil, fmt.Errorf("%w: unknown task status %q", ErrInvalidInput, filter.Status)
	}

	tasks, err := s.repo.ListTasks(ctx, userID, filter)
	if err != nil {
		log.Printf("[ERROR] Failed to list tasks for user %s: %v", userID, err)
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	if terms := strings.Fields(filter.Search); len(terms) > 0 {
		tasks = lo.Filter(tasks, func(task *models.Task, _ int) bool {
			return taskMatchesSearch(task, terms)
		})
	}

	response := &models.TaskListResponse{
		Tasks: tasks,
		Total: len(tasks),
		Completed: lo.CountBy(tasks, func(task *models.Task) bool {
			return task.Status == models.TaskStatusCompleted
		}),
		AIGenerated: lo.CountBy(tasks, func(task *models.Task) bool {
			return task.AIGenerated
		}),
	}

	log.Printf("[INFO] Returning %d tasks for user %s", response.Total, userID)
	return response, nil
}

func taskMatchesSearch(task *models.Task, terms []string) bool {
	text := task.Title + " " + task.Description
	words := lo.FilterMap(strings.Fields(strings.ToLower(text)), func(word string, _ int) (string, bool) {
		clean := strings.Trim(word, ".,!?;:()[]{}\"'-")
		return clean, clean != ""
	})

	// terms match within a single word, never across the whole text
	for _, term := range terms {
		if len(fuzzy.RankFindFold(term, words)) > 0 {
			return true
		}
	}
	return false
}

func (s *TaskService) CreateTask(ctx context.Context, userID string, req *models.CreateTaskRequest) (*models.Task, error) {
	log.Printf("[INFO] Starting task creation for user %s", userID)

	if err := validateCreateTaskRequest(req); err != nil {
		log.Printf("[ERROR] Task creation validation failed: %v", err)
		return nil, err
	}

	task := &models.Task{
		ID:           uuid.NewString(),
		UserID:       userID,
		UniversityID: req.UniversityID,
		Title:        strings.TrimSpace(req.Title),
		Description:  strings.TrimSpace(req.Description),
		Category:     req.Category,
		Status:       models.TaskStatusPending,
		Priority:     req.Priority,
		EstHours:     req.EstHours,
		DueDate:      req.DueDate,
	}

	if err := s.repo.CreateTask(ctx, task); err != nil {
		log.Printf("[ERROR] Failed to create task in repository: %v", err)
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	log.Printf("[INFO] Successfully created task %s", task.ID)
	return task, nil
}

func validateCreateTaskRequest(req *models.CreateTaskRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request cannot be nil", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if !lo.Contains(models.TaskCategories, req.Category) {
		return fmt.Errorf("%w: category must be one of %s", ErrInvalidInput, strings.Join(models.TaskCategories, ", "))
	}
	return nil
}

func (s *TaskService) ToggleTask(ctx context.Context, userID, taskID string) (*models.Task, error) {
	task, err := s.repo.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	next := models.TaskStatusCompleted
	if task.Status == models.TaskStatusCompleted {
		next = models.TaskStatusPending
	}

	if err := s.repo.UpdateTask(ctx, userID, taskID, map[string]any{"status": next}); err != nil {
		log.Printf("[ERROR] Failed to toggle task %s: %v", taskID, err)
		return nil, err
	}

	log.Printf("[INFO] Task %s moved from %s to %s", taskID, task.Status, next)
	task.Status = next
	return task, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, userID, taskID string, req *models.UpdateTaskRequest) (*models.Task, error) {
	log.Printf("[INFO] Starting update of task %s", taskID)

	if req == nil {
		return nil, fmt.Errorf("%w: request cannot be nil", ErrInvalidInput)
	}

	task, err := s.repo.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.AIGenerated {
		return nil, fmt.Errorf("%w: generated tasks can only be toggled", ErrInvalidInput)
	}

	updates := make(map[string]any)
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		updates["title"] = title
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		if !lo.Contains(models.TaskCategories, *req.Category) {
			return nil, fmt.Errorf("%w: unknown task category %q", ErrInvalidInput, *req.Category)
		}
		updates["category"] = *req.Category
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.EstHours != nil {
		updates["est_hours"] = *req.EstHours
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}

	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: no valid updates provided", ErrInvalidInput)
	}

	if err := s.repo.UpdateTask(ctx, userID, taskID, updates); err != nil {
		log.Printf("[ERROR] Failed to update task %s: %v", taskID, err)
		return nil, err
	}

	log.Printf("[INFO] Successfully updated task %s", taskID)
	return s.repo.GetTask(ctx, userID, taskID)
}

func (s *TaskService) DeleteTask(ctx context.Context, userID, taskID string) error {
	log.Printf("[INFO] Starting delete of task %s", taskID)

	if err := s.repo.DeleteTask(ctx, userID, taskID); err != nil {
		log.Printf("[ERROR] Failed to delete task %s: %v", taskID, err)
		return err
	}

	return nil
}

// RemoveGeneratedTasks deletes the generated checklist for one university.
// Tasks the user created are left alone.
func (s *TaskService) RemoveGeneratedTasks(ctx context.Context, userID, universityID string) (int, error) {
	removed, err := s.repo.DeleteAIGeneratedTasks(ctx, userID, universityID)
	if err != nil {
		log.Printf("[ERROR] Failed to remove generated tasks for university %s: %v", universityID, err)
		return 0, err
	}

	log.Printf("[INFO] Removed %d generated tasks for university %s", removed, universityID)
	return removed, nil
}
