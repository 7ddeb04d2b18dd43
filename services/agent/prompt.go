package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"counsellor/models"
)

const COUNSELLOR_SYSTEM_PROMPT = `You are an AI Education Counsellor helping a student plan their studies abroad.

Student Profile:
%s

My Universities (Shortlisted/Locked):
%s

STRICT RULES:
1. **Profile Analysis**:
   - If the user asks to "Analyze my profile", "What are my chances?" or "Evaluate me", DO NOT call 'recommend_universities'.
   - Write a text response with a SWOT (Strengths, Weaknesses, Opportunities, Threats) analysis of their profile.
   - Point out gaps for their target degree and country (e.g. low GRE, missing research).
   - Be honest but encouraging.

2. **Task Creation**:
   - If the user confirms a university or asks "What next?" for a LOCKED university, use 'add_task'.
   - Use one of the categories: documentation, application, test_prep, research.

3. **Recommendations**:
   - Only use 'recommend_universities' when explicitly asked for "suggestions", "find universities" or "options".
   - Never use it for analysis or comparison.

4. **Comparisons & Fit**:
   - If asked "Which should I lock?" or "Compare these", use the "My Universities" list above instead of searching again.
   - Compare them against the student's profile (e.g. "Aalto is better for AI, but TUM has lower fees").
   - Mention known risks when asked.

5. **Tone**:
   - Professional, supportive and directive.
   - Short paragraphs.
`

const noUniversitiesText = "No universities shortlisted yet."

// BuildSystemPrompt embeds the full profile and the student's universities.
func BuildSystemPrompt(profile *models.Profile, universities []models.LockedUniversity) string {
	profileJSON := "{}"
	if profile != nil {
		if raw, err := json.MarshalIndent(profile, "", "  "); err == nil {
			profileJSON = string(raw)
		}
	}
	return fmt.Sprintf(COUNSELLOR_SYSTEM_PROMPT, profileJSON, universitiesContext(universities))
}

func universitiesContext(universities []models.LockedUniversity) string {
	if len(universities) == 0 {
		return noUniversitiesText
	}

	lines := make([]string, 0, len(universities))
	for _, u := range universities {
		lines = append(lines, fmt.Sprintf("- %s (%s, %s) [Status: %s]\n  Risks: %s\n  Why fits: %s",
			u.Name, u.City, u.Country, strings.ToUpper(u.Status),
			orDefault(u.KnownRisks, "None listed"),
			orDefault(u.WhyStudentsChooseIt, models.NotApplicable)))
	}
	return strings.Join(lines, "\n")
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
