package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"counsellor/models"

	"github.com/lib/pq"
)

type UniversityRepository interface {
	GetUniversity(ctx context.Context, universityID string) (*models.University, error)
	GetUniversitiesByIDs(ctx context.Context, universityIDs []string) ([]*models.University, error)
	ListUniversities(ctx context.Context, offset, limit int) ([]*models.University, error)
	GetRequirementProfile(ctx context.Context, code string) (*models.RequirementProfile, error)
}

type PostgresUniversityRepository struct {
	db *sql.DB
}

func NewPostgresUniversityRepository(databaseURL string) (*PostgresUniversityRepository, error) {
	db, err := openPostgres(databaseURL)
	if err != nil {
		return nil, err
	}

	return &PostgresUniversityRepository{db: db}, nil
}

const universityColumns = `university_id, name, country, city, global_ranking_band, program_strengths,
	avg_annual_tuition_usd, cost_of_living_usd, competition_level, intl_acceptance_estimate,
	visa_risk_level, budget_category, why_students_choose_it, known_risks, confidence_note,
	req_gpa_range, req_ielts_min, req_gre_requirement, total_annual_cost_usd,
	requirement_profile_code, image_url`

func scanUniversity(row rowScanner) (*models.University, error) {
	var (
		country, city, ranking, strengths, competition, acceptance sql.NullString
		visaRisk, budgetCategory, why, risks, confidence, gpaRange sql.NullString
		greRequirement, requirementCode, imageURL                  sql.NullString
		tuition, living, ieltsMin, totalCost                       sql.NullFloat64
	)

	u := &models.University{}
	err := row.Scan(&u.UniversityID, &u.Name, &country, &city, &ranking, &strengths,
		&tuition, &living, &competition, &acceptance, &visaRisk, &budgetCategory, &why,
		&risks, &confidence, &gpaRange, &ieltsMin, &greRequirement, &totalCost,
		&requirementCode, &imageURL)
	if err != nil {
		return nil, err
	}

	u.Country = nullableString(country)
	u.City = nullableString(city)
	u.GlobalRankingBand = nullableString(ranking)
	u.ProgramStrengths = nullableString(strengths)
	u.AvgAnnualTuitionUSD = nullableFloat(tuition)
	u.CostOfLivingUSD = nullableFloat(living)
	u.CompetitionLevel = nullableString(competition)
	u.IntlAcceptanceEstimate = nullableString(acceptance)
	u.VisaRiskLevel = nullableString(visaRisk)
	u.BudgetCategory = nullableString(budgetCategory)
	u.WhyStudentsChooseIt = nullableString(why)
	u.KnownRisks = nullableString(risks)
	u.ConfidenceNote = nullableString(confidence)
	u.ReqGPARange = nullableString(gpaRange)
	u.ReqIELTSMin = nullableFloat(ieltsMin)
	u.ReqGRERequirement = nullableString(greRequirement)
	u.TotalAnnualCostUSD = nullableFloat(totalCost)
	u.RequirementProfileCode = nullableString(requirementCode)
	u.ImageURL = nullableString(imageURL)

	return u, nil
}

func (r *PostgresUniversityRepository) GetUniversity(ctx context.Context, universityID string) (*models.University, error) {
	query := `SELECT ` + universityColumns + ` FROM counsellor.universities WHERE university_id = $1`

	u, err := scanUniversity(r.db.QueryRowContext(ctx, query, universityID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("university %s: %w", universityID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get university: %w", err)
	}

	return u, nil
}

func (r *PostgresUniversityRepository) GetUniversitiesByIDs(ctx context.Context, universityIDs []string) ([]*models.University, error) {
	if len(universityIDs) == 0 {
		return []*models.University{}, nil
	}

	query := `
		SELECT ` + universityColumns + `
		FROM counsellor.universities
		WHERE university_id = ANY($1)
		ORDER BY name`

	return r.queryUniversities(ctx, query, pq.Array(universityIDs))
}

func (r *PostgresUniversityRepository) ListUniversities(ctx context.Context, offset, limit int) ([]*models.University, error) {
	query := `
		SELECT ` + universityColumns + `
		FROM counsellor.universities
		ORDER BY university_id
		OFFSET $1 LIMIT $2`

	return r.queryUniversities(ctx, query, offset, limit)
}

func (r *PostgresUniversityRepository) queryUniversities(ctx context.Context, query string, args ...any) ([]*models.University, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query universities: %w", err)
	}
	defer rows.Close()

	universities := make([]*models.University, 0)
	for rows.Next() {
		u, err := scanUniversity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan university: %w", err)
		}
		universities = append(universities, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over universities: %w", err)
	}

	return universities, nil
}

func (r *PostgresUniversityRepository) GetRequirementProfile(ctx context.Context, code string) (*models.RequirementProfile, error) {
	query := `
		SELECT code, doc_codes, test_codes
		FROM counsellor.requirement_profiles
		WHERE code = $1`

	profile := &models.RequirementProfile{}
	err := r.db.QueryRowContext(ctx, query, code).Scan(&profile.Code,
		pq.Array(&profile.DocCodes), pq.Array(&profile.TestCodes))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("requirement profile %q: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get requirement profile: %w", err)
	}

	return profile, nil
}

func (r *PostgresUniversityRepository) Close() error {
	return r.db.Close()
}
