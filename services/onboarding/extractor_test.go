package onboarding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"counsellor/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// scriptedLLM answers each GenerateContent call with the next scripted reply.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []scriptedReply
	prompts []string
	tools   [][]llms.Tool
}

type scriptedReply struct {
	toolName  string
	arguments string
	err       error
	block     bool
}

func (s *scriptedLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	s.mu.Lock()
	for _, part := range messages[0].Parts {
		if text, ok := part.(llms.TextContent); ok {
			s.prompts = append(s.prompts, text.Text)
		}
	}
	s.tools = append(s.tools, opts.Tools)
	if len(s.replies) == 0 {
		s.mu.Unlock()
		return nil, errors.New("no scripted reply left")
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	s.mu.Unlock()

	if reply.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if reply.err != nil {
		return nil, reply.err
	}

	name := reply.toolName
	if name == "" {
		name = extractToolName
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				ToolCalls: []llms.ToolCall{
					{
						ID:   "call-1",
						Type: "function",
						FunctionCall: &llms.FunctionCall{
							Name:      name,
							Arguments: reply.arguments,
						},
					},
				},
			},
		},
	}, nil
}

func (s *scriptedLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", errors.New("not supported")
}

func reply(arguments string) scriptedReply {
	return scriptedReply{arguments: arguments}
}

func TestExtractor_ModelResult(t *testing.T) {
	llm := &scriptedLLM{replies: []scriptedReply{
		reply(`{"intended_degree":"Masters","field_of_study":"Computer Science","preferred_countries":["USA"]}`),
	}}
	extractor := NewExtractor(llm, time.Second)

	got := extractor.Extract(context.Background(), FieldIntendedDegree, "I want to do an MS in CS in the USA", &models.Profile{})

	assert.Equal(t, models.ExtractedFields{
		IntendedDegree:     "Masters",
		FieldOfStudy:       "Computer Science",
		PreferredCountries: []string{"USA"},
	}, got)

	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], `"intended_degree"`)
	assert.Contains(t, llm.prompts[0], "I want to do an MS in CS in the USA")

	require.Len(t, llm.tools[0], 1)
	tool := llm.tools[0][0]
	assert.Equal(t, extractToolName, tool.Function.Name)
	properties, ok := tool.Function.Parameters.(map[string]any)["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, properties, "budget_range")
	assert.Contains(t, properties, "sop_status")
}

func TestExtractor_Fallback(t *testing.T) {
	tests := []struct {
		name    string
		llm     llms.Model
		field   string
		text    string
		want    models.ExtractedFields
		timeout time.Duration
	}{
		{
			name:  "no model configured",
			llm:   nil,
			field: FieldEducationLevel,
			text:  "I have a bachelor's degree",
			want:  models.ExtractedFields{EducationLevel: "Bachelors"},
		},
		{
			name:  "model error",
			llm:   &scriptedLLM{replies: []scriptedReply{{err: errors.New("rate limited")}}},
			field: FieldGraduationYear,
			text:  "2023",
			want:  models.ExtractedFields{GraduationYear: 2023},
		},
		{
			name:  "model skipped the asked field",
			llm:   &scriptedLLM{replies: []scriptedReply{reply(`{"funding_source":"Scholarship"}`)}},
			field: FieldBudgetRange,
			text:  "around 25k, hoping for a scholarship",
			want:  models.ExtractedFields{BudgetRange: Budget20kTo30k, FundingSource: "Scholarship"},
		},
		{
			name:  "malformed arguments",
			llm:   &scriptedLLM{replies: []scriptedReply{reply(`{"gre_gmat_score":`)}},
			field: FieldGREGMATScore,
			text:  "GRE 318",
			want:  models.ExtractedFields{GREGMATScore: "GRE 318"},
		},
		{
			name:  "wrong tool name",
			llm:   &scriptedLLM{replies: []scriptedReply{{toolName: "something_else", arguments: `{"sop_status":"ready"}`}}},
			field: FieldSOPStatus,
			text:  "draft",
			want:  models.ExtractedFields{SOPStatus: models.SOPDraft},
		},
		{
			name:    "model timeout",
			llm:     &scriptedLLM{replies: []scriptedReply{{block: true}}},
			field:   FieldTargetIntake,
			text:    "Spring 2027",
			want:    models.ExtractedFields{TargetIntake: "Spring 2027"},
			timeout: 20 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timeout := tt.timeout
			if timeout == 0 {
				timeout = time.Second
			}
			extractor := NewExtractor(tt.llm, timeout)

			got := extractor.Extract(context.Background(), tt.field, tt.text, &models.Profile{})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractor_NothingFound(t *testing.T) {
	llm := &scriptedLLM{replies: []scriptedReply{reply(`{}`)}}
	extractor := NewExtractor(llm, time.Second)

	got := extractor.Extract(context.Background(), FieldFundingSource, "what do you mean?", &models.Profile{})
	assert.False(t, HasField(got, FieldFundingSource))

	got = extractor.Extract(context.Background(), FieldFundingSource, "   ", &models.Profile{})
	assert.Equal(t, models.ExtractedFields{}, got)
	assert.Len(t, llm.prompts, 1, "blank answers never reach the model")
}

func TestExtractionSchema(t *testing.T) {
	schema := extractionSchema()

	assert.Equal(t, "object", schema["type"])
	assert.NotContains(t, schema, "$schema")
	properties := schema["properties"].(map[string]any)
	for _, field := range Fields() {
		assert.Contains(t, properties, field)
	}

	education := properties[FieldEducationLevel].(map[string]any)
	enum := education["enum"].([]any)
	assert.Contains(t, enum, "Bachelors")
}
