package models

import (
	"strings"
	"time"
)

const (
	StageBuildingProfile = "building_profile"
	StageDiscovering     = "discovering"
	StageStrategizing    = "strategizing"
	StageApplying        = "applying"
)

const (
	SOPNotStarted = "not_started"
	SOPDraft      = "draft"
	SOPReady      = "ready"
)

// NotApplicable marks an exam field the student answered with "not taken".
// It counts as present.
const NotApplicable = "N/A"

type AcademicBackground struct {
	EducationLevel string `json:"education_level,omitempty"`
	DegreeMajor    string `json:"degree_major,omitempty"`
	GraduationYear int    `json:"graduation_year,omitempty"`
	GPAPercentage  string `json:"gpa_percentage,omitempty"`
}

type StudyGoal struct {
	IntendedDegree     string   `json:"intended_degree,omitempty"`
	FieldOfStudy       string   `json:"field_of_study,omitempty"`
	TargetIntake       string   `json:"target_intake,omitempty"`
	PreferredCountries []string `json:"preferred_countries,omitempty"`
}

type Budget struct {
	BudgetRange   string `json:"budget_range,omitempty"`
	FundingSource string `json:"funding_source,omitempty"`
}

type ExamReadiness struct {
	IELTSTOEFLScore string `json:"ielts_toefl_score,omitempty"`
	GREGMATScore    string `json:"gre_gmat_score,omitempty"`
	SOPStatus       string `json:"sop_status,omitempty"`
}

type Profile struct {
	ID                  string             `json:"id" db:"id"`
	AcademicBackground  AcademicBackground `json:"academic_background" db:"academic_background"`
	StudyGoal           StudyGoal          `json:"study_goal" db:"study_goal"`
	Budget              Budget             `json:"budget" db:"budget"`
	ExamReadiness       ExamReadiness      `json:"exam_readiness" db:"exam_readiness"`
	OnboardingCompleted bool               `json:"onboarding_completed" db:"onboarding_completed"`
	CurrentStage        string             `json:"current_stage" db:"current_stage"`
	UpdatedAt           time.Time          `json:"updated_at" db:"updated_at"`
}

// Clone returns a copy that shares no slices with p.
func (p *Profile) Clone() *Profile {
	c := *p
	if p.StudyGoal.PreferredCountries != nil {
		c.StudyGoal.PreferredCountries = append([]string(nil), p.StudyGoal.PreferredCountries...)
	}
	return &c
}

// NormalizeSOPStatus maps both SOP vocabularies onto not_started/draft/ready.
// Unknown values come back empty.
func NormalizeSOPStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	s = strings.ReplaceAll(s, "_", " ")
	switch {
	case s == "":
		return ""
	case strings.Contains(s, "not") || strings.Contains(s, "haven"):
		return SOPNotStarted
	case strings.Contains(s, "done") || strings.Contains(s, "complete") || strings.Contains(s, "ready") || strings.Contains(s, "finish"):
		return SOPReady
	case strings.Contains(s, "draft") || strings.Contains(s, "working") || strings.Contains(s, "progress"):
		return SOPDraft
	default:
		return ""
	}
}

type ProfileSections struct {
	AcademicBackground AcademicBackground `json:"academic_background"`
	StudyGoal          StudyGoal          `json:"study_goal"`
	Budget             Budget             `json:"budget"`
	ExamReadiness      ExamReadiness      `json:"exam_readiness"`
}

func (p *Profile) Sections() ProfileSections {
	c := p.Clone()
	return ProfileSections{
		AcademicBackground: c.AcademicBackground,
		StudyGoal:          c.StudyGoal,
		Budget:             c.Budget,
		ExamReadiness:      c.ExamReadiness,
	}
}

type UpdateProfileSectionRequest struct {
	AcademicBackground *AcademicBackground `json:"academic_background,omitempty"`
	StudyGoal          *StudyGoal          `json:"study_goal,omitempty"`
	Budget             *Budget             `json:"budget,omitempty"`
	ExamReadiness      *ExamReadiness      `json:"exam_readiness,omitempty"`
}
