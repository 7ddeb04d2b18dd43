package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"counsellor/models"
	"counsellor/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddTaskTool_Schema(t *testing.T) {
	spec := AddTaskTool{}.GetAnthropicToolSpec()

	raw, err := json.Marshal(spec.Properties)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"task_category"`)
	assert.Contains(t, string(raw), `"test_prep"`)
	assert.Contains(t, string(raw), `"university_name"`)
}

func TestAddTaskTool_ResolveUniversity(t *testing.T) {
	tool := NewAddTaskTool(nil, testUserID, []models.LockedUniversity{
		{University: models.University{UniversityID: "uni-tum", Name: "Technical University of Munich"}, Status: models.LockStatusLocked},
		{University: models.University{UniversityID: "uni-aalto", Name: "Aalto University"}, Status: models.LockStatusShortlisted},
	})

	tests := []struct {
		name   string
		input  string
		wantID string
		wantOK bool
	}{
		{"exact ignoring case", "aalto university", "uni-aalto", true},
		{"abbreviated", "TU Munich", "uni-tum", true},
		{"unknown", "Stanford", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tool.resolveUniversity(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, got.UniversityID)
		})
	}
}

func TestAddTaskTool_Validation(t *testing.T) {
	tool := NewAddTaskTool(nil, testUserID, nil)

	tests := []struct {
		name  string
		input string
	}{
		{"malformed", `{"task_title":`},
		{"missing title", `{"university_name":"TUM","task_category":"research"}`},
		{"bad category", `{"university_name":"TUM","task_title":"Book flights","task_category":"travel"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tool.Call(context.Background(), tt.input)
			assert.Error(t, err)
		})
	}

	_, err := tool.Call(context.Background(), `{"task_title":"x","task_category":"travel"}`)
	assert.ErrorIs(t, err, services.ErrInvalidInput)
}

func TestRecommendUniversitiesTool_Failure(t *testing.T) {
	tool := NewRecommendUniversitiesTool(&stubRecommender{err: errors.New("index unavailable")}, &models.Profile{})

	_, err := tool.Call(context.Background(), "{}")
	assert.ErrorContains(t, err, "index unavailable")
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := BuildSystemPrompt(&models.Profile{ID: testUserID}, nil)
	assert.Contains(t, prompt, noUniversitiesText)
	assert.Contains(t, prompt, "DO NOT call 'recommend_universities'")

	prompt = BuildSystemPrompt(nil, []models.LockedUniversity{
		{University: models.University{Name: "Aalto University", City: "Espoo", Country: "Finland"}, Status: models.LockStatusShortlisted},
	})
	assert.Contains(t, prompt, "- Aalto University (Espoo, Finland) [Status: SHORTLISTED]\n  Risks: None listed\n  Why fits: N/A")
}
