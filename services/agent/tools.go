package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"counsellor/models"
	"counsellor/services"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
)

const recommendToolLimit = 12

// AgentTool interface that all tools must implement
type AgentTool interface {
	Name() string
	Description() string
	Call(ctx context.Context, input string) (string, error)
	GetAnthropicToolSpec() anthropic.ToolInputSchemaParam
}

func generateAnthropicSchema[T any]() anthropic.ToolInputSchemaParam {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	return anthropic.ToolInputSchemaParam{
		Properties: schema.Properties,
	}
}

type RecommendUniversitiesToolInput struct{}

type RecommendUniversitiesTool struct {
	recommender services.Recommender
	profile     *models.Profile
}

func NewRecommendUniversitiesTool(recommender services.Recommender, profile *models.Profile) RecommendUniversitiesTool {
	return RecommendUniversitiesTool{recommender: recommender, profile: profile}
}

func (r RecommendUniversitiesTool) Name() string {
	return "recommend_universities"
}

func (r RecommendUniversitiesTool) Description() string {
	return `Recommend universities. Use ONLY for explicit requests like "find universities" or "suggest options". DO NOT USE for "Analyze profile".`
}

func (r RecommendUniversitiesTool) GetAnthropicToolSpec() anthropic.ToolInputSchemaParam {
	return generateAnthropicSchema[RecommendUniversitiesToolInput]()
}

type recommendedUniversity struct {
	UniversityID     string `json:"university_id"`
	Name             string `json:"name"`
	Country          string `json:"country"`
	City             string `json:"city"`
	ImageURL         string `json:"image_url,omitempty"`
	Bucket           string `json:"bucket"`
	AcceptanceChance string `json:"acceptanceChance"`
	CostLevel        string `json:"costLevel"`
	Why              string `json:"why,omitempty"`
	Risks            string `json:"risks,omitempty"`
}

func (r RecommendUniversitiesTool) Call(ctx context.Context, input string) (string, error) {
	ranked, err := r.recommender.Recommend(ctx, r.profile, recommendToolLimit)
	if err != nil {
		return "", fmt.Errorf("failed to recommend universities: %w", err)
	}

	out := lo.Map(ranked, func(u models.RankedUniversity, _ int) recommendedUniversity {
		return recommendedUniversity{
			UniversityID:     u.UniversityID,
			Name:             u.Name,
			Country:          u.Country,
			City:             u.City,
			ImageURL:         u.ImageURL,
			Bucket:           u.Bucket,
			AcceptanceChance: u.AcceptanceChance,
			CostLevel:        u.CostLevel,
			Why:              u.WhyStudentsChooseIt,
			Risks:            u.KnownRisks,
		}
	})

	result, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to marshal recommendations: %w", err)
	}
	return string(result), nil
}

type AddTaskToolInput struct {
	UniversityName string `json:"university_name" jsonschema:"required,description=Name of the university the task is for"`
	TaskTitle      string `json:"task_title" jsonschema:"required,description=Short actionable title of the task"`
	TaskCategory   string `json:"task_category" jsonschema:"required,enum=documentation,enum=application,enum=test_prep,enum=research"`
}

// AddTaskTool creates one user-directed task. The university is resolved
// against the student's own universities by name.
type AddTaskTool struct {
	tasks        *services.TaskService
	userID       string
	universities []models.LockedUniversity
}

func NewAddTaskTool(tasks *services.TaskService, userID string, universities []models.LockedUniversity) AddTaskTool {
	return AddTaskTool{tasks: tasks, userID: userID, universities: universities}
}

func (a AddTaskTool) Name() string {
	return "add_task"
}

func (a AddTaskTool) Description() string {
	return "Create a concrete application task for a LOCKED university."
}

func (a AddTaskTool) GetAnthropicToolSpec() anthropic.ToolInputSchemaParam {
	return generateAnthropicSchema[AddTaskToolInput]()
}

func (a AddTaskTool) Call(ctx context.Context, input string) (string, error) {
	var params AddTaskToolInput
	if err := json.Unmarshal([]byte(input), &params); err != nil {
		return "", fmt.Errorf("failed to parse add task tool input: %w", err)
	}

	params.TaskTitle = strings.TrimSpace(params.TaskTitle)
	if params.TaskTitle == "" {
		return "", fmt.Errorf("%w: task_title is required", services.ErrInvalidInput)
	}
	if !lo.Contains(models.TaskCategories, params.TaskCategory) {
		return "", fmt.Errorf("%w: task_category must be one of %s", services.ErrInvalidInput, strings.Join(models.TaskCategories, ", "))
	}

	req := &models.CreateTaskRequest{
		Title:    params.TaskTitle,
		Category: params.TaskCategory,
	}

	universityName := strings.TrimSpace(params.UniversityName)
	if university, ok := a.resolveUniversity(universityName); ok {
		universityName = university.Name
		req.UniversityID = lo.ToPtr(university.UniversityID)
	}
	if universityName != "" {
		req.Title = fmt.Sprintf("%s - %s", universityName, params.TaskTitle)
	}

	task, err := a.tasks.CreateTask(ctx, a.userID, req)
	if err != nil {
		return "", fmt.Errorf("failed to create task: %w", err)
	}

	return fmt.Sprintf("Task created: %s", task.Title), nil
}

// resolveUniversity finds the closest name among the student's universities.
func (a AddTaskTool) resolveUniversity(name string) (models.LockedUniversity, bool) {
	if name == "" {
		return models.LockedUniversity{}, false
	}

	if exact, ok := lo.Find(a.universities, func(u models.LockedUniversity) bool {
		return strings.EqualFold(u.Name, name)
	}); ok {
		return exact, true
	}

	names := lo.Map(a.universities, func(u models.LockedUniversity, _ int) string { return u.Name })
	ranks := fuzzy.RankFindFold(name, names)
	if len(ranks) == 0 {
		return models.LockedUniversity{}, false
	}

	best := lo.MinBy(ranks, func(x, y fuzzy.Rank) bool { return x.Distance < y.Distance })
	return a.universities[best.OriginalIndex], true
}
