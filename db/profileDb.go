package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"counsellor/models"
)

type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpdateSections(ctx context.Context, userID string, sections models.ProfileSections) error
	UpdateSection(ctx context.Context, userID string, column string, value any) error
	MarkOnboardingComplete(ctx context.Context, userID string) (bool, error)
}

// profileSectionColumns whitelists the JSONB columns a direct edit may touch.
var profileSectionColumns = map[string]bool{
	"academic_background": true,
	"study_goal":          true,
	"budget":              true,
	"exam_readiness":      true,
}

type PostgresProfileRepository struct {
	db *sql.DB
}

func NewPostgresProfileRepository(databaseURL string) (*PostgresProfileRepository, error) {
	db, err := openPostgres(databaseURL)
	if err != nil {
		return nil, err
	}

	return &PostgresProfileRepository{db: db}, nil
}

func (r *PostgresProfileRepository) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	query := `
		SELECT id, academic_background, study_goal, budget, exam_readiness,
		       onboarding_completed, current_stage, updated_at
		FROM counsellor.profiles
		WHERE id = $1`

	profile := &models.Profile{}
	var academic, goal, budget, exams []byte
	var stage sql.NullString

	row := r.db.QueryRowContext(ctx, query, userID)
	err := row.Scan(&profile.ID, &academic, &goal, &budget, &exams,
		&profile.OnboardingCompleted, &stage, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.createProfile(ctx, userID)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	profile.CurrentStage = nullableString(stage)
	if profile.CurrentStage == "" {
		profile.CurrentStage = models.StageBuildingProfile
	}

	sections := []struct {
		raw    []byte
		target any
		name   string
	}{
		{academic, &profile.AcademicBackground, "academic_background"},
		{goal, &profile.StudyGoal, "study_goal"},
		{budget, &profile.Budget, "budget"},
		{exams, &profile.ExamReadiness, "exam_readiness"},
	}
	for _, s := range sections {
		if len(s.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(s.raw, s.target); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", s.name, err)
		}
	}

	return profile, nil
}

// createProfile inserts the empty profile a new user starts onboarding with.
func (r *PostgresProfileRepository) createProfile(ctx context.Context, userID string) (*models.Profile, error) {
	query := `
		INSERT INTO counsellor.profiles (id, current_stage)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, userID, models.StageBuildingProfile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return &models.Profile{
		ID:           userID,
		CurrentStage: models.StageBuildingProfile,
		UpdatedAt:    time.Now(),
	}, nil
}

// UpdateSections writes all four sections in a single statement so a failed
// write never leaves one section updated and another stale.
func (r *PostgresProfileRepository) UpdateSections(ctx context.Context, userID string, sections models.ProfileSections) error {
	academic, err := json.Marshal(sections.AcademicBackground)
	if err != nil {
		return fmt.Errorf("failed to marshal academic_background: %w", err)
	}
	goal, err := json.Marshal(sections.StudyGoal)
	if err != nil {
		return fmt.Errorf("failed to marshal study_goal: %w", err)
	}
	budget, err := json.Marshal(sections.Budget)
	if err != nil {
		return fmt.Errorf("failed to marshal budget: %w", err)
	}
	exams, err := json.Marshal(sections.ExamReadiness)
	if err != nil {
		return fmt.Errorf("failed to marshal exam_readiness: %w", err)
	}

	query := `
		UPDATE counsellor.profiles
		SET academic_background = $1, study_goal = $2, budget = $3, exam_readiness = $4, updated_at = NOW()
		WHERE id = $5`

	result, err := r.db.ExecContext(ctx, query, academic, goal, budget, exams, userID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	return expectOneRow(result, fmt.Sprintf("profile for user %s", userID))
}

func (r *PostgresProfileRepository) UpdateSection(ctx context.Context, userID string, column string, value any) error {
	if !profileSectionColumns[column] {
		return fmt.Errorf("unknown profile section %q", column)
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", column, err)
	}

	query := fmt.Sprintf(`UPDATE counsellor.profiles SET %s = $1, updated_at = NOW() WHERE id = $2`, column)

	result, err := r.db.ExecContext(ctx, query, payload, userID)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}

	return expectOneRow(result, fmt.Sprintf("profile for user %s", userID))
}

// MarkOnboardingComplete flips the completion flag once. It reports whether
// this call changed anything.
func (r *PostgresProfileRepository) MarkOnboardingComplete(ctx context.Context, userID string) (bool, error) {
	query := `
		UPDATE counsellor.profiles
		SET onboarding_completed = TRUE, current_stage = $1, updated_at = NOW()
		WHERE id = $2 AND onboarding_completed = FALSE`

	result, err := r.db.ExecContext(ctx, query, models.StageDiscovering, userID)
	if err != nil {
		return false, fmt.Errorf("failed to mark onboarding complete: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *PostgresProfileRepository) Close() error {
	return r.db.Close()
}

func expectOneRow(result sql.Result, what string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}

	return nil
}
