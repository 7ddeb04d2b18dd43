package models

const (
	BucketSafe   = "Safe"
	BucketTarget = "Target"
	BucketDream  = "Dream"
)

const (
	LevelLow    = "Low"
	LevelMedium = "Medium"
	LevelHigh   = "High"
)

type University struct {
	UniversityID           string   `json:"university_id" db:"university_id"`
	Name                   string   `json:"name" db:"name"`
	Country                string   `json:"country,omitempty" db:"country"`
	City                   string   `json:"city,omitempty" db:"city"`
	GlobalRankingBand      string   `json:"global_ranking_band,omitempty" db:"global_ranking_band"`
	ProgramStrengths       string   `json:"program_strengths,omitempty" db:"program_strengths"`
	AvgAnnualTuitionUSD    *float64 `json:"avg_annual_tuition_usd,omitempty" db:"avg_annual_tuition_usd"`
	CostOfLivingUSD        *float64 `json:"cost_of_living_usd,omitempty" db:"cost_of_living_usd"`
	CompetitionLevel       string   `json:"competition_level,omitempty" db:"competition_level"`
	IntlAcceptanceEstimate string   `json:"intl_acceptance_estimate,omitempty" db:"intl_acceptance_estimate"`
	VisaRiskLevel          string   `json:"visa_risk_level,omitempty" db:"visa_risk_level"`
	BudgetCategory         string   `json:"budget_category,omitempty" db:"budget_category"`
	WhyStudentsChooseIt    string   `json:"why_students_choose_it,omitempty" db:"why_students_choose_it"`
	KnownRisks             string   `json:"known_risks,omitempty" db:"known_risks"`
	ConfidenceNote         string   `json:"confidence_note,omitempty" db:"confidence_note"`
	ReqGPARange            string   `json:"req_gpa_range,omitempty" db:"req_gpa_range"`
	ReqIELTSMin            *float64 `json:"req_ielts_min,omitempty" db:"req_ielts_min"`
	ReqGRERequirement      string   `json:"req_gre_requirement,omitempty" db:"req_gre_requirement"`
	TotalAnnualCostUSD     *float64 `json:"total_annual_cost_usd,omitempty" db:"total_annual_cost_usd"`
	RequirementProfileCode string   `json:"requirement_profile_code,omitempty" db:"requirement_profile_code"`
	ImageURL               string   `json:"image_url,omitempty" db:"image_url"`
}

// UniversityMatch is a similarity-search hit. Lower distance means closer.
type UniversityMatch struct {
	University
	Distance float64 `json:"distance"`
}

type RankedUniversity struct {
	UniversityMatch
	Bucket           string `json:"bucket"`
	AcceptanceChance string `json:"acceptanceChance"`
	CostLevel        string `json:"costLevel"`
}

type UniversityFit struct {
	Bucket           string `json:"bucket"`
	AcceptanceChance string `json:"acceptanceChance"`
	CostLevel        string `json:"costLevel"`
}

type RequirementProfile struct {
	Code      string   `json:"code" db:"code"`
	DocCodes  []string `json:"doc_codes" db:"doc_codes"`
	TestCodes []string `json:"test_codes" db:"test_codes"`
}

type RecommendRequest struct {
	Limit int `json:"limit"`
}

type RecommendResponse struct {
	Universities []RankedUniversity `json:"universities"`
	Error        string             `json:"error,omitempty"`
}

type FitRequest struct {
	UniversityIDs []string `json:"university_ids"`
}

type FitResponse struct {
	FitData map[string]UniversityFit `json:"fitData"`
}

// SearchFilter narrows a similarity search. Empty fields do not filter.
type SearchFilter struct {
	Country string
}
