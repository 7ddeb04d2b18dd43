package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"counsellor/db"
	"counsellor/models"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUniversityTasks(t *testing.T) {
	university := &models.University{UniversityID: "uni-1", Name: "Test University"}
	requirements := &models.RequirementProfile{
		Code:      "TEST",
		DocCodes:  []string{"sop", "lor"},
		TestCodes: []string{"ielts", "gre"},
	}

	tests := []struct {
		name          string
		visaRisk      string
		exams         models.ExamReadiness
		expectTitles  []string
		expectTests   int
		expectVisaJob bool
	}{
		{
			name:     "no scores, low visa risk",
			visaRisk: models.LevelLow,
			expectTitles: []string{
				"Test University - Prepare SOP",
				"Test University - Prepare LOR",
				"Test University - Prepare IELTS",
				"Test University - Prepare GRE",
			},
			expectTests: 2,
		},
		{
			name:     "english score present skips ielts",
			visaRisk: models.LevelLow,
			exams:    models.ExamReadiness{IELTSTOEFLScore: "7.5"},
			expectTitles: []string{
				"Test University - Prepare SOP",
				"Test University - Prepare LOR",
				"Test University - Prepare GRE",
			},
			expectTests: 1,
		},
		{
			name:     "not applicable counts as missing",
			visaRisk: models.LevelLow,
			exams:    models.ExamReadiness{IELTSTOEFLScore: "N/A", GREGMATScore: "320"},
			expectTitles: []string{
				"Test University - Prepare SOP",
				"Test University - Prepare LOR",
				"Test University - Prepare IELTS",
			},
			expectTests: 1,
		},
		{
			name:     "high visa risk adds visa task",
			visaRisk: models.LevelHigh,
			exams:    models.ExamReadiness{IELTSTOEFLScore: "110", GREGMATScore: "700"},
			expectTitles: []string{
				"Test University - Prepare SOP",
				"Test University - Prepare LOR",
				"Test University - Start visa documentation early",
			},
			expectVisaJob: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := *university
			u.VisaRiskLevel = tt.visaRisk
			profile := &models.Profile{ID: testUserID, ExamReadiness: tt.exams}

			tasks := BuildUniversityTasks(testUserID, &u, requirements, profile)

			titles := lo.Map(tasks, func(task *models.Task, _ int) string { return task.Title })
			assert.Equal(t, tt.expectTitles, titles)

			for _, task := range tasks {
				assert.True(t, task.AIGenerated)
				assert.Equal(t, models.TaskStatusPending, task.Status)
				require.NotNil(t, task.UniversityID)
				assert.Equal(t, "uni-1", *task.UniversityID)

				switch task.Category {
				case models.TaskCategoryDocumentation:
					assert.Equal(t, 2, *task.Priority)
					assert.Equal(t, 3, *task.EstHours)
				case models.TaskCategoryTestPrep:
					assert.Equal(t, 1, *task.Priority)
					assert.Equal(t, 40, *task.EstHours)
				case models.TaskCategoryApplication:
					assert.Equal(t, 1, *task.Priority)
					assert.Equal(t, 5, *task.EstHours)
				default:
					t.Fatalf("unexpected category %q", task.Category)
				}
			}

			testTasks := lo.CountBy(tasks, func(task *models.Task) bool { return task.Category == models.TaskCategoryTestPrep })
			assert.Equal(t, tt.expectTests, testTasks)

			visa := lo.ContainsBy(tasks, func(task *models.Task) bool { return task.Category == models.TaskCategoryApplication })
			assert.Equal(t, tt.expectVisaJob, visa)
		})
	}
}

func TestHasTestScore(t *testing.T) {
	profile := &models.Profile{ExamReadiness: models.ExamReadiness{IELTSTOEFLScore: "7", GREGMATScore: "n/a"}}

	assert.True(t, hasTestScore(profile, "IELTS"))
	assert.True(t, hasTestScore(profile, "toefl"))
	assert.False(t, hasTestScore(profile, "gre"))
	assert.False(t, hasTestScore(profile, "gmat"))
	assert.False(t, hasTestScore(profile, "duolingo"))
	assert.False(t, hasTestScore(nil, "ielts"))
}

type flakyTaskStore struct {
	*db.MemoryStore
	failTitleContains string
}

func (s *flakyTaskStore) CreateTask(ctx context.Context, task *models.Task) error {
	if strings.Contains(task.Title, s.failTitleContains) {
		return errors.New("insert failed")
	}
	return s.MemoryStore.CreateTask(ctx, task)
}

func TestTaskGenerator_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("missing requirement profile yields no tasks", func(t *testing.T) {
		store := seededStore()
		generator := NewTaskGenerator(store, store)
		university, err := store.GetUniversity(ctx, "uni-tum")
		require.NoError(t, err)

		tasks, err := generator.Generate(ctx, testUserID, university, &models.Profile{})
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("failed insert does not block the rest", func(t *testing.T) {
		store := seededStore()
		flaky := &flakyTaskStore{MemoryStore: store, failTitleContains: "LOR"}
		generator := NewTaskGenerator(store, flaky)
		university, err := store.GetUniversity(ctx, "uni-mit")
		require.NoError(t, err)

		tasks, err := generator.Generate(ctx, testUserID, university, &models.Profile{})
		require.NoError(t, err)
		// sop, transcript, ielts, gre, visa
		assert.Len(t, tasks, 5)

		count, err := store.CountAIGeneratedTasks(ctx, testUserID, "uni-mit")
		require.NoError(t, err)
		assert.Equal(t, 5, count)
	})

	t.Run("nil university is rejected", func(t *testing.T) {
		store := seededStore()
		generator := NewTaskGenerator(store, store)

		_, err := generator.Generate(ctx, testUserID, nil, nil)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}
