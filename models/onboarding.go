package models

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ExtractedFields holds whatever profile values could be read from one answer.
// Zero values mean "not extracted".
type ExtractedFields struct {
	EducationLevel     string   `json:"education_level,omitempty" jsonschema:"enum=High School,enum=Bachelors,enum=Masters,enum=PhD"`
	DegreeMajor        string   `json:"degree_major,omitempty"`
	GraduationYear     int      `json:"graduation_year,omitempty"`
	GPAPercentage      string   `json:"gpa_percentage,omitempty" jsonschema:"description=GPA or percentage exactly as written (3.5 or 85% or 8.5/10)"`
	IntendedDegree     string   `json:"intended_degree,omitempty" jsonschema:"enum=Bachelors,enum=Masters,enum=PhD,enum=MBA"`
	FieldOfStudy       string   `json:"field_of_study,omitempty"`
	TargetIntake       string   `json:"target_intake,omitempty" jsonschema:"description=Season and year such as Fall 2026"`
	PreferredCountries []string `json:"preferred_countries,omitempty"`
	BudgetRange        string   `json:"budget_range,omitempty" jsonschema:"description=Annual budget in USD binned into one of the five supported ranges"`
	FundingSource      string   `json:"funding_source,omitempty" jsonschema:"enum=Self-funded,enum=Scholarship,enum=Education Loan,enum=Sponsorship"`
	IELTSTOEFLScore    string   `json:"ielts_toefl_score,omitempty" jsonschema:"description=Score as written or N/A when not taken"`
	GREGMATScore       string   `json:"gre_gmat_score,omitempty" jsonschema:"description=Score as written or N/A when not taken"`
	SOPStatus          string   `json:"sop_status,omitempty" jsonschema:"enum=not_started,enum=draft,enum=ready"`
}

type OnboardingTurnRequest struct {
	Message  string    `json:"message"`
	Messages []Message `json:"messages,omitempty"`
}

type OnboardingTurnResponse struct {
	AssistantText  string   `json:"assistantText"`
	NextField      string   `json:"nextField"`
	Complete       bool     `json:"complete"`
	Error          bool     `json:"error,omitempty"`
	UpdatedProfile *Profile `json:"updatedProfile,omitempty"`
}
