package onboarding

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"counsellor/models"

	"github.com/invopop/jsonschema"
	"github.com/tmc/langchaingo/llms"
)

const (
	extractToolName = "extract_profile"

	EXTRACTION_PROMPT = `Extract student profile information from the user's input.
Strictly map to the schema of the extract_profile function and leave out anything the user did not say.

Context: the user is answering the question about "%s".
If they provide EXTRA information (e.g. "I want to do an MS in CS in the USA"), capture ALL of it.
Exam scores the user has not taken are "N/A". Budgets are annual amounts in USD and must be one of:
Under $10,000 | $10,000 - $20,000 | $20,000 - $30,000 | $30,000 - $50,000 | Above $50,000.

Already known about the student:
%s

User input: "%s"`
)

// Extractor reads profile values out of a free-text answer. The model is
// tried first; fixed parsing rules take over when it fails, times out or
// skips the field being asked about.
type Extractor struct {
	llm     llms.Model
	timeout time.Duration
	tools   []llms.Tool
}

// NewExtractor builds an extractor. A nil llm leaves only the parsing rules.
func NewExtractor(llm llms.Model, timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Extractor{
		llm:     llm,
		timeout: timeout,
		tools: []llms.Tool{
			{
				Type: "function",
				Function: &llms.FunctionDefinition{
					Name:        extractToolName,
					Description: "Record the student profile fields found in the user's message",
					Parameters:  extractionSchema(),
				},
			},
		},
	}
}

func extractionSchema() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(models.ExtractedFields{})

	raw, err := json.Marshal(schema)
	if err != nil {
		log.Printf("[ERROR] Failed to marshal extraction schema: %v", err)
		return map[string]any{"type": "object"}
	}

	var params map[string]any
	if err := json.Unmarshal(raw, &params); err != nil {
		log.Printf("[ERROR] Failed to decode extraction schema: %v", err)
		return map[string]any{"type": "object"}
	}
	delete(params, "$schema")
	delete(params, "$id")
	return params
}

// Extract returns every value found in text. The value for field, if any,
// comes from the model when it produced one and from the parsing rules
// otherwise. A result without field means the question must be asked again.
func (e *Extractor) Extract(ctx context.Context, field, text string, profile *models.Profile) models.ExtractedFields {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.ExtractedFields{}
	}

	extracted, err := e.extractWithModel(ctx, field, text, profile)
	if err != nil {
		log.Printf("[WARN] Model extraction failed for field %s, using fallback rules: %v", field, err)
		extracted = models.ExtractedFields{}
	}

	if HasField(extracted, field) {
		return extracted
	}

	log.Printf("[INFO] Field %s missing from model output, trying fallback rules", field)
	fallback, ok := ParseFallback(field, text)
	if !ok {
		log.Printf("[INFO] Fallback rules found no value for field %s", field)
		return extracted
	}

	merged, _ := Merge(&models.Profile{}, fallback)
	return overlay(extracted, merged, field)
}

func (e *Extractor) extractWithModel(ctx context.Context, field, text string, profile *models.Profile) (models.ExtractedFields, error) {
	var extracted models.ExtractedFields
	if e.llm == nil {
		return extracted, fmt.Errorf("no model configured")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	prompt := fmt.Sprintf(EXTRACTION_PROMPT, field, knownFacts(profile), text)
	messageHistory := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	log.Printf("[INFO] Calling LLM for profile extraction (field %s)", field)
	resp, err := e.llm.GenerateContent(ctx, messageHistory,
		llms.WithTools(e.tools),
		llms.WithTemperature(0),
		llms.WithToolChoice("required"))
	if err != nil {
		return extracted, fmt.Errorf("failed to generate extraction response: %w", err)
	}

	if len(resp.Choices) == 0 || len(resp.Choices[0].ToolCalls) == 0 {
		return extracted, fmt.Errorf("no tool calls in extraction response")
	}

	toolCall := resp.Choices[0].ToolCalls[0]
	if toolCall.FunctionCall == nil || toolCall.FunctionCall.Name != extractToolName {
		return extracted, fmt.Errorf("unexpected tool call in extraction response")
	}

	if err := json.Unmarshal([]byte(toolCall.FunctionCall.Arguments), &extracted); err != nil {
		return models.ExtractedFields{}, fmt.Errorf("failed to parse extraction arguments: %w", err)
	}

	log.Printf("[INFO] Model extracted: %s", toolCall.FunctionCall.Arguments)
	return extracted, nil
}

// overlay copies field from src into dst.
func overlay(dst models.ExtractedFields, src *models.Profile, field string) models.ExtractedFields {
	switch field {
	case FieldEducationLevel:
		dst.EducationLevel = src.AcademicBackground.EducationLevel
	case FieldDegreeMajor:
		dst.DegreeMajor = src.AcademicBackground.DegreeMajor
	case FieldGraduationYear:
		dst.GraduationYear = src.AcademicBackground.GraduationYear
	case FieldGPAPercentage:
		dst.GPAPercentage = src.AcademicBackground.GPAPercentage
	case FieldIntendedDegree:
		dst.IntendedDegree = src.StudyGoal.IntendedDegree
	case FieldFieldOfStudy:
		dst.FieldOfStudy = src.StudyGoal.FieldOfStudy
	case FieldTargetIntake:
		dst.TargetIntake = src.StudyGoal.TargetIntake
	case FieldPreferredCountries:
		dst.PreferredCountries = src.StudyGoal.PreferredCountries
	case FieldBudgetRange:
		dst.BudgetRange = src.Budget.BudgetRange
	case FieldFundingSource:
		dst.FundingSource = src.Budget.FundingSource
	case FieldIELTSTOEFLScore:
		dst.IELTSTOEFLScore = src.ExamReadiness.IELTSTOEFLScore
	case FieldGREGMATScore:
		dst.GREGMATScore = src.ExamReadiness.GREGMATScore
	case FieldSOPStatus:
		dst.SOPStatus = src.ExamReadiness.SOPStatus
	}
	return dst
}

func knownFacts(profile *models.Profile) string {
	if profile == nil {
		return "nothing yet"
	}
	raw, err := json.Marshal(profile.Sections())
	if err != nil {
		return "nothing yet"
	}
	return string(raw)
}
