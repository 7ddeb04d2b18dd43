package onboarding

import (
	"strings"

	"counsellor/models"
)

const (
	FieldEducationLevel     = "education_level"
	FieldDegreeMajor        = "degree_major"
	FieldGraduationYear     = "graduation_year"
	FieldGPAPercentage      = "gpa_percentage"
	FieldIntendedDegree     = "intended_degree"
	FieldFieldOfStudy       = "field_of_study"
	FieldTargetIntake       = "target_intake"
	FieldPreferredCountries = "preferred_countries"
	FieldBudgetRange        = "budget_range"
	FieldFundingSource      = "funding_source"
	FieldIELTSTOEFLScore    = "ielts_toefl_score"
	FieldGREGMATScore       = "gre_gmat_score"
	FieldSOPStatus          = "sop_status"

	// FieldComplete is returned once every field is present.
	FieldComplete = "complete"
)

type fieldSpec struct {
	id       string
	question string
	present  func(p *models.Profile) bool
}

func hasText(s string) bool {
	return strings.TrimSpace(s) != ""
}

// fieldOrder is the fixed asking order: academic background, study goal,
// budget, then exam readiness.
var fieldOrder = []fieldSpec{
	{
		id:       FieldEducationLevel,
		question: "Let's start building your profile. What is your current education level? (e.g. Bachelors, High School)",
		present:  func(p *models.Profile) bool { return hasText(p.AcademicBackground.EducationLevel) },
	},
	{
		id:       FieldDegreeMajor,
		question: "What is your major or field of study? (e.g. Computer Science, Business, Psychology)",
		present:  func(p *models.Profile) bool { return hasText(p.AcademicBackground.DegreeMajor) },
	},
	{
		id:       FieldGraduationYear,
		question: "When did you graduate (or when will you)? (e.g. 2024)",
		present:  func(p *models.Profile) bool { return p.AcademicBackground.GraduationYear != 0 },
	},
	{
		id:       FieldGPAPercentage,
		question: "What is your GPA or percentage? (e.g. 8.5/10, 3.5/4.0, or 85%)",
		present:  func(p *models.Profile) bool { return hasText(p.AcademicBackground.GPAPercentage) },
	},
	{
		id:       FieldIntendedDegree,
		question: "What degree are you planning to pursue? (e.g. Masters, PhD, MBA)",
		present:  func(p *models.Profile) bool { return hasText(p.StudyGoal.IntendedDegree) },
	},
	{
		id:       FieldFieldOfStudy,
		question: "What specialization are you looking for? (e.g. AI/ML, Data Science, Finance)",
		present:  func(p *models.Profile) bool { return hasText(p.StudyGoal.FieldOfStudy) },
	},
	{
		id:       FieldTargetIntake,
		question: "When do you plan to start your studies? (e.g. Fall 2025, Spring 2026)",
		present:  func(p *models.Profile) bool { return hasText(p.StudyGoal.TargetIntake) },
	},
	{
		id:       FieldPreferredCountries,
		question: "Which countries are you targeting?\n(We support: USA, UK, Canada, Germany, Australia)",
		present:  func(p *models.Profile) bool { return len(p.StudyGoal.PreferredCountries) > 0 },
	},
	{
		id:       FieldBudgetRange,
		question: "What is your annual tuition budget range in USD? (e.g. $20,000 - $30,000)",
		present:  func(p *models.Profile) bool { return hasText(p.Budget.BudgetRange) },
	},
	{
		id:       FieldFundingSource,
		question: "How do you plan to fund your education? (Self-funded, Education Loan, Scholarship, Sponsorship)",
		present:  func(p *models.Profile) bool { return hasText(p.Budget.FundingSource) },
	},
	{
		id:       FieldIELTSTOEFLScore,
		question: "Have you taken IELTS or TOEFL? If yes, what's your score? (e.g. IELTS: 7.5/9, TOEFL: 100/120)",
		present:  func(p *models.Profile) bool { return hasText(p.ExamReadiness.IELTSTOEFLScore) },
	},
	{
		id:       FieldGREGMATScore,
		question: "Have you taken GRE or GMAT? If yes, what's your score? (e.g. GRE: 320/340)",
		present:  func(p *models.Profile) bool { return hasText(p.ExamReadiness.GREGMATScore) },
	},
	{
		id:       FieldSOPStatus,
		question: "What is the status of your SOP (Statement of Purpose)? (Not started, Draft, Done)",
		present:  func(p *models.Profile) bool { return hasText(p.ExamReadiness.SOPStatus) },
	},
}

// Fields lists the profile fields in asking order.
func Fields() []string {
	ids := make([]string, len(fieldOrder))
	for i, f := range fieldOrder {
		ids[i] = f.id
	}
	return ids
}

// NextMissingField returns the first absent field in asking order, or
// FieldComplete. It has no side effects.
func NextMissingField(profile *models.Profile) string {
	if profile == nil {
		return fieldOrder[0].id
	}
	for _, f := range fieldOrder {
		if !f.present(profile) {
			return f.id
		}
	}
	return FieldComplete
}

// QuestionFor returns the prompt shown when asking for field.
func QuestionFor(field string) string {
	for _, f := range fieldOrder {
		if f.id == field {
			return f.question
		}
	}
	return "Could you tell me a bit more?"
}

// IsField reports whether id names one of the onboarding fields.
func IsField(id string) bool {
	for _, f := range fieldOrder {
		if f.id == id {
			return true
		}
	}
	return false
}
