package onboarding

import (
	"testing"

	"counsellor/models"

	"github.com/stretchr/testify/assert"
)

func fullProfile() *models.Profile {
	return &models.Profile{
		ID: "user-1",
		AcademicBackground: models.AcademicBackground{
			EducationLevel: "Bachelors",
			DegreeMajor:    "Computer Science",
			GraduationYear: 2023,
			GPAPercentage:  "8.5/10",
		},
		StudyGoal: models.StudyGoal{
			IntendedDegree:     "Masters",
			FieldOfStudy:       "Data Science",
			TargetIntake:       "Fall 2026",
			PreferredCountries: []string{"USA", "Germany"},
		},
		Budget: models.Budget{
			BudgetRange:   Budget30kTo50k,
			FundingSource: "Education Loan",
		},
		ExamReadiness: models.ExamReadiness{
			IELTSTOEFLScore: "IELTS 7.5",
			GREGMATScore:    models.NotApplicable,
			SOPStatus:       models.SOPDraft,
		},
	}
}

// clearField blanks the field in p so it counts as absent.
func clearField(p *models.Profile, field string) {
	switch field {
	case FieldEducationLevel:
		p.AcademicBackground.EducationLevel = ""
	case FieldDegreeMajor:
		p.AcademicBackground.DegreeMajor = "  "
	case FieldGraduationYear:
		p.AcademicBackground.GraduationYear = 0
	case FieldGPAPercentage:
		p.AcademicBackground.GPAPercentage = ""
	case FieldIntendedDegree:
		p.StudyGoal.IntendedDegree = ""
	case FieldFieldOfStudy:
		p.StudyGoal.FieldOfStudy = ""
	case FieldTargetIntake:
		p.StudyGoal.TargetIntake = ""
	case FieldPreferredCountries:
		p.StudyGoal.PreferredCountries = []string{}
	case FieldBudgetRange:
		p.Budget.BudgetRange = ""
	case FieldFundingSource:
		p.Budget.FundingSource = ""
	case FieldIELTSTOEFLScore:
		p.ExamReadiness.IELTSTOEFLScore = ""
	case FieldGREGMATScore:
		p.ExamReadiness.GREGMATScore = ""
	case FieldSOPStatus:
		p.ExamReadiness.SOPStatus = ""
	}
}

func TestNextMissingField(t *testing.T) {
	t.Run("empty profile starts with education level", func(t *testing.T) {
		assert.Equal(t, FieldEducationLevel, NextMissingField(&models.Profile{}))
		assert.Equal(t, FieldEducationLevel, NextMissingField(nil))
	})

	t.Run("full profile is complete", func(t *testing.T) {
		assert.Equal(t, FieldComplete, NextMissingField(fullProfile()))
	})

	t.Run("not applicable exam scores count as present", func(t *testing.T) {
		p := fullProfile()
		p.ExamReadiness.IELTSTOEFLScore = models.NotApplicable
		assert.Equal(t, FieldComplete, NextMissingField(p))
	})

	for _, field := range Fields() {
		t.Run("single missing "+field, func(t *testing.T) {
			p := fullProfile()
			clearField(p, field)
			assert.Equal(t, field, NextMissingField(p))
		})
	}

	t.Run("earliest missing field wins", func(t *testing.T) {
		p := fullProfile()
		clearField(p, FieldSOPStatus)
		clearField(p, FieldTargetIntake)
		clearField(p, FieldBudgetRange)
		assert.Equal(t, FieldTargetIntake, NextMissingField(p))
	})
}

func TestFieldsOrder(t *testing.T) {
	fields := Fields()
	assert.Len(t, fields, 13)
	assert.Equal(t, FieldEducationLevel, fields[0])
	assert.Equal(t, FieldSOPStatus, fields[len(fields)-1])
	assert.NotContains(t, fields, FieldComplete)
}

func TestQuestionFor(t *testing.T) {
	for _, field := range Fields() {
		assert.True(t, IsField(field))
		assert.NotEqual(t, "Could you tell me a bit more?", QuestionFor(field), field)
	}
	assert.False(t, IsField("favourite_colour"))
	assert.Equal(t, "Could you tell me a bit more?", QuestionFor("favourite_colour"))
	assert.Contains(t, QuestionFor(FieldPreferredCountries), "USA, UK, Canada, Germany, Australia")
}
