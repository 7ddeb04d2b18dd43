package onboarding

import (
	"slices"
	"strings"

	"counsellor/models"
)

// HasField reports whether extracted carries a usable value for field.
func HasField(extracted models.ExtractedFields, field string) bool {
	switch field {
	case FieldEducationLevel:
		return hasText(extracted.EducationLevel)
	case FieldDegreeMajor:
		return hasText(extracted.DegreeMajor)
	case FieldGraduationYear:
		return extracted.GraduationYear != 0
	case FieldGPAPercentage:
		return hasText(extracted.GPAPercentage)
	case FieldIntendedDegree:
		return hasText(extracted.IntendedDegree)
	case FieldFieldOfStudy:
		return hasText(extracted.FieldOfStudy)
	case FieldTargetIntake:
		return hasText(extracted.TargetIntake)
	case FieldPreferredCountries:
		return len(cleanList(extracted.PreferredCountries)) > 0
	case FieldBudgetRange:
		return hasText(extracted.BudgetRange)
	case FieldFundingSource:
		return hasText(extracted.FundingSource)
	case FieldIELTSTOEFLScore:
		return hasText(extracted.IELTSTOEFLScore)
	case FieldGREGMATScore:
		return hasText(extracted.GREGMATScore)
	case FieldSOPStatus:
		return models.NormalizeSOPStatus(extracted.SOPStatus) != ""
	default:
		return false
	}
}

// Merge writes every extracted value into a copy of profile and reports
// whether anything changed. Fields that were not extracted keep their
// current values.
func Merge(profile *models.Profile, extracted models.ExtractedFields) (*models.Profile, bool) {
	next := profile.Clone()
	changed := false

	setText := func(dst *string, value string) {
		value = strings.TrimSpace(value)
		if value != "" && value != *dst {
			*dst = value
			changed = true
		}
	}

	setText(&next.AcademicBackground.EducationLevel, extracted.EducationLevel)
	setText(&next.AcademicBackground.DegreeMajor, extracted.DegreeMajor)
	if extracted.GraduationYear != 0 && extracted.GraduationYear != next.AcademicBackground.GraduationYear {
		next.AcademicBackground.GraduationYear = extracted.GraduationYear
		changed = true
	}
	setText(&next.AcademicBackground.GPAPercentage, extracted.GPAPercentage)

	setText(&next.StudyGoal.IntendedDegree, extracted.IntendedDegree)
	setText(&next.StudyGoal.FieldOfStudy, extracted.FieldOfStudy)
	setText(&next.StudyGoal.TargetIntake, extracted.TargetIntake)
	if countries := cleanList(extracted.PreferredCountries); len(countries) > 0 && !slices.Equal(countries, next.StudyGoal.PreferredCountries) {
		next.StudyGoal.PreferredCountries = countries
		changed = true
	}

	setText(&next.Budget.BudgetRange, extracted.BudgetRange)
	setText(&next.Budget.FundingSource, extracted.FundingSource)

	setText(&next.ExamReadiness.IELTSTOEFLScore, extracted.IELTSTOEFLScore)
	setText(&next.ExamReadiness.GREGMATScore, extracted.GREGMATScore)
	setText(&next.ExamReadiness.SOPStatus, models.NormalizeSOPStatus(extracted.SOPStatus))

	return next, changed
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[strings.ToLower(v)] {
			continue
		}
		seen[strings.ToLower(v)] = true
		out = append(out, v)
	}
	return out
}
