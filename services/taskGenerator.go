package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"counsellor/db"
	"counsellor/models"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	documentTaskHours    = 3
	documentTaskPriority = 2
	testTaskHours        = 40
	testTaskPriority     = 1
	visaTaskHours        = 5
	visaTaskPriority     = 1
)

// TaskGenerator turns a university's requirement profile into a checklist.
// It does not deduplicate; callers check for existing generated tasks first.
type TaskGenerator struct {
	universities db.UniversityRepository
	tasks        db.TaskRepository
}

func NewTaskGenerator(universities db.UniversityRepository, tasks db.TaskRepository) *TaskGenerator {
	return &TaskGenerator{universities: universities, tasks: tasks}
}

// Generate builds and stores the checklist for a locked university. A missing
// requirement profile yields no tasks. Inserts are best-effort: a failed
// insert is logged and the remaining tasks are still written.
func (g *TaskGenerator) Generate(ctx context.Context, userID string, university *models.University, profile *models.Profile) ([]*models.Task, error) {
	if university == nil {
		return nil, fmt.Errorf("%w: university cannot be nil", ErrInvalidInput)
	}

	log.Printf("[INFO] Generating tasks for %s (requirement profile %q)", university.Name, university.RequirementProfileCode)

	if university.RequirementProfileCode == "" {
		log.Printf("[WARN] University %s has no requirement profile code, skipping task generation", university.UniversityID)
		return []*models.Task{}, nil
	}

	requirements, err := g.universities.GetRequirementProfile(ctx, university.RequirementProfileCode)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			log.Printf("[WARN] No requirement profile found for code %q", university.RequirementProfileCode)
		} else {
			log.Printf("[ERROR] Failed to load requirement profile %q: %v", university.RequirementProfileCode, err)
		}
		return []*models.Task{}, nil
	}

	planned := BuildUniversityTasks(userID, university, requirements, profile)

	created := make([]*models.Task, 0, len(planned))
	for _, task := range planned {
		if err := g.tasks.CreateTask(ctx, task); err != nil {
			log.Printf("[ERROR] Failed to insert generated task %q: %v", task.Title, err)
			continue
		}
		created = append(created, task)
	}

	log.Printf("[INFO] Generated %d of %d tasks for %s", len(created), len(planned), university.Name)
	return created, nil
}

// BuildUniversityTasks is the pure part of generation: document tasks, then
// test preparation for exams without a score, then visa preparation when the
// visa risk is High.
func BuildUniversityTasks(userID string, university *models.University, requirements *models.RequirementProfile, profile *models.Profile) []*models.Task {
	tasks := make([]*models.Task, 0, len(requirements.DocCodes)+len(requirements.TestCodes)+1)

	for _, doc := range requirements.DocCodes {
		tasks = append(tasks, newGeneratedTask(userID, university,
			fmt.Sprintf("%s - Prepare %s", university.Name, strings.ToUpper(doc)),
			models.TaskCategoryDocumentation, documentTaskPriority, documentTaskHours,
			map[string]any{"source": "requirement_profile", "doc": doc}))
	}

	for _, test := range requirements.TestCodes {
		if hasTestScore(profile, test) {
			continue
		}
		tasks = append(tasks, newGeneratedTask(userID, university,
			fmt.Sprintf("%s - Prepare %s", university.Name, strings.ToUpper(test)),
			models.TaskCategoryTestPrep, testTaskPriority, testTaskHours,
			map[string]any{"source": "requirement_profile", "test": test}))
	}

	if university.VisaRiskLevel == models.LevelHigh {
		tasks = append(tasks, newGeneratedTask(userID, university,
			fmt.Sprintf("%s - Start visa documentation early", university.Name),
			models.TaskCategoryApplication, visaTaskPriority, visaTaskHours,
			map[string]any{"source": "visa_risk", "visa_risk_level": university.VisaRiskLevel}))
	}

	return tasks
}

func newGeneratedTask(userID string, university *models.University, title, category string, priority, hours int, meta map[string]any) *models.Task {
	return &models.Task{
		ID:           uuid.NewString(),
		UserID:       userID,
		UniversityID: lo.ToPtr(university.UniversityID),
		Title:        title,
		Category:     category,
		Status:       models.TaskStatusPending,
		AIGenerated:  true,
		AIMeta:       meta,
		Priority:     lo.ToPtr(priority),
		EstHours:     lo.ToPtr(hours),
	}
}

// hasTestScore reports whether the profile already records a usable score for
// the given test code. "N/A" means the student has not taken the test.
func hasTestScore(profile *models.Profile, testCode string) bool {
	if profile == nil {
		return false
	}

	var score string
	switch strings.ToLower(strings.TrimSpace(testCode)) {
	case "ielts", "toefl", "ielts_toefl":
		score = profile.ExamReadiness.IELTSTOEFLScore
	case "gre", "gmat", "gre_gmat":
		score = profile.ExamReadiness.GREGMATScore
	default:
		return false
	}

	score = strings.TrimSpace(score)
	return score != "" && !strings.EqualFold(score, models.NotApplicable)
}
