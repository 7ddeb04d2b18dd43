package services

import (
	"context"
	"testing"

	"counsellor/db"
	"counsellor/models"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskMatchesSearch(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		terms       []string
		expected    bool
	}{
		{
			name:     "exact match",
			title:    "Prepare statement of purpose",
			terms:    []string{"statement"},
			expected: true,
		},
		{
			name:     "case insensitive match",
			title:    "Book IELTS slot",
			terms:    []string{"ielts"},
			expected: true,
		},
		{
			name:     "typo tolerance",
			title:    "Request transcript from registrar",
			terms:    []string{"transcrpt"},
			expected: true,
		},
		{
			name:        "description is searched",
			title:       "Visa",
			description: "Collect bank statements",
			terms:       []string{"bank"},
			expected:    true,
		},
		{
			name:     "no match",
			title:    "Email professor",
			terms:    []string{"visa"},
			expected: false,
		},
		{
			name:     "short term does not span words",
			title:    "Stanford - Prepare TOEFL",
			terms:    []string{"sop"},
			expected: false,
		},
		{
			name:     "short term matches a word",
			title:    "Stanford - Prepare SOP",
			terms:    []string{"sop"},
			expected: true,
		},
		{
			name:     "empty terms",
			title:    "Anything",
			terms:    []string{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &models.Task{Title: tt.title, Description: tt.description}
			assert.Equal(t, tt.expected, taskMatchesSearch(task, tt.terms))
		})
	}
}

func TestTaskService_CreateTaskValidation(t *testing.T) {
	ctx := context.Background()
	service := NewTaskService(db.NewMemoryStore())

	tests := []struct {
		name      string
		request   *models.CreateTaskRequest
		expectErr bool
	}{
		{name: "nil request", request: nil, expectErr: true},
		{name: "empty title", request: &models.CreateTaskRequest{Title: "  ", Category: models.TaskCategoryResearch}, expectErr: true},
		{name: "unknown category", request: &models.CreateTaskRequest{Title: "Call", Category: "errands"}, expectErr: true},
		{name: "valid", request: &models.CreateTaskRequest{Title: " Shortlist programs ", Category: models.TaskCategoryResearch}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := service.CreateTask(ctx, testUserID, tt.request)
			if tt.expectErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Shortlist programs", task.Title)
			assert.Equal(t, models.TaskStatusPending, task.Status)
			assert.False(t, task.AIGenerated)
			assert.NotEmpty(t, task.ID)
		})
	}
}

func TestTaskService_ListTasks(t *testing.T) {
	ctx := context.Background()
	svc := newTestServices(&stubRecommender{})

	_, err := svc.locks.Lock(ctx, testUserID, "uni-ucl")
	require.NoError(t, err)
	research, err := svc.tasks.CreateTask(ctx, testUserID, &models.CreateTaskRequest{
		Title:    "Compare scholarship options",
		Category: models.TaskCategoryResearch,
	})
	require.NoError(t, err)
	_, err = svc.tasks.ToggleTask(ctx, testUserID, research.ID)
	require.NoError(t, err)

	all, err := svc.tasks.ListTasks(ctx, testUserID, models.TaskFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)
	assert.Equal(t, 1, all.Completed)
	assert.Equal(t, 2, all.AIGenerated)

	docs, err := svc.tasks.ListTasks(ctx, testUserID, models.TaskFilter{Category: models.TaskCategoryDocumentation})
	require.NoError(t, err)
	assert.Equal(t, 2, docs.Total)

	completed, err := svc.tasks.ListTasks(ctx, testUserID, models.TaskFilter{Status: models.TaskStatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed.Tasks, 1)
	assert.Equal(t, research.ID, completed.Tasks[0].ID)

	byUniversity, err := svc.tasks.ListTasks(ctx, testUserID, models.TaskFilter{UniversityID: "uni-ucl"})
	require.NoError(t, err)
	assert.Equal(t, 2, byUniversity.Total)

	searched, err := svc.tasks.ListTasks(ctx, testUserID, models.TaskFilter{Search: "scholarship"})
	require.NoError(t, err)
	titles := lo.Map(searched.Tasks, func(task *models.Task, _ int) string { return task.Title })
	assert.Contains(t, titles, "Compare scholarship options")

	_, err = svc.tasks.ListTasks(ctx, testUserID, models.TaskFilter{Category: "errands"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.tasks.ListTasks(ctx, testUserID, models.TaskFilter{Status: "archived"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTaskService_ToggleTask(t *testing.T) {
	ctx := context.Background()
	service := NewTaskService(db.NewMemoryStore())

	task, err := service.CreateTask(ctx, testUserID, &models.CreateTaskRequest{Title: "Book test", Category: models.TaskCategoryTestPrep})
	require.NoError(t, err)

	toggled, err := service.ToggleTask(ctx, testUserID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, toggled.Status)

	toggled, err = service.ToggleTask(ctx, testUserID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, toggled.Status)

	_, err = service.ToggleTask(ctx, testUserID, "missing")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestTaskService_UpdateTask(t *testing.T) {
	ctx := context.Background()
	svc := newTestServices(&stubRecommender{})

	task, err := svc.tasks.CreateTask(ctx, testUserID, &models.CreateTaskRequest{Title: "Draft CV", Category: models.TaskCategoryDocumentation})
	require.NoError(t, err)

	updated, err := svc.tasks.UpdateTask(ctx, testUserID, task.ID, &models.UpdateTaskRequest{
		Title:    lo.ToPtr("Finalize CV"),
		Priority: lo.ToPtr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, "Finalize CV", updated.Title)
	require.NotNil(t, updated.Priority)
	assert.Equal(t, 1, *updated.Priority)

	_, err = svc.tasks.UpdateTask(ctx, testUserID, task.ID, &models.UpdateTaskRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.tasks.UpdateTask(ctx, testUserID, task.ID, &models.UpdateTaskRequest{Category: lo.ToPtr("errands")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	locked, err := svc.locks.Lock(ctx, testUserID, "uni-ucl")
	require.NoError(t, err)
	require.NotEmpty(t, locked.CreatedTasks)

	_, err = svc.tasks.UpdateTask(ctx, testUserID, locked.CreatedTasks[0].ID, &models.UpdateTaskRequest{Title: lo.ToPtr("Renamed")})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTaskService_DeleteTask(t *testing.T) {
	ctx := context.Background()
	service := NewTaskService(db.NewMemoryStore())

	task, err := service.CreateTask(ctx, testUserID, &models.CreateTaskRequest{Title: "Pay fee", Category: models.TaskCategoryApplication})
	require.NoError(t, err)

	require.NoError(t, service.DeleteTask(ctx, testUserID, task.ID))
	assert.ErrorIs(t, service.DeleteTask(ctx, testUserID, task.ID), db.ErrNotFound)
}
