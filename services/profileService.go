package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"counsellor/db"
	"counsellor/models"
)

// sectionColumns maps the section keys used by the profile editor to columns.
var sectionColumns = map[string]string{
	"academic":   "academic_background",
	"study_goal": "study_goal",
	"budget":     "budget",
	"exams":      "exam_readiness",
}

type ProfileService struct {
	repo db.ProfileRepository
}

func NewProfileService(repo db.ProfileRepository) *ProfileService {
	return &ProfileService{repo: repo}
}

func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUnauthorized
	}

	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		log.Printf("[ERROR] Failed to get profile for user %s: %v", userID, err)
		return nil, err
	}

	return profile, nil
}

func (s *ProfileService) SaveSections(ctx context.Context, userID string, sections models.ProfileSections) error {
	log.Printf("[INFO] Saving profile sections for user %s", userID)

	sections.ExamReadiness.SOPStatus = models.NormalizeSOPStatus(sections.ExamReadiness.SOPStatus)

	if err := s.repo.UpdateSections(ctx, userID, sections); err != nil {
		log.Printf("[ERROR] Failed to save profile sections for user %s: %v", userID, err)
		return fmt.Errorf("failed to save profile: %w", err)
	}

	return nil
}

// MarkOnboardingComplete reports whether the flag changed on this call.
func (s *ProfileService) MarkOnboardingComplete(ctx context.Context, userID string) (bool, error) {
	changed, err := s.repo.MarkOnboardingComplete(ctx, userID)
	if err != nil {
		log.Printf("[ERROR] Failed to mark onboarding complete for user %s: %v", userID, err)
		return false, fmt.Errorf("failed to complete onboarding: %w", err)
	}

	if changed {
		log.Printf("[INFO] Onboarding completed for user %s, stage set to %s", userID, models.StageDiscovering)
	}
	return changed, nil
}

// UpdateSection replaces one profile section wholesale, as the profile editor does.
func (s *ProfileService) UpdateSection(ctx context.Context, userID, section string, payload json.RawMessage) (*models.Profile, error) {
	log.Printf("[INFO] Starting profile section update %q for user %s", section, userID)

	column, ok := sectionColumns[section]
	if !ok {
		return nil, fmt.Errorf("%w: unknown profile section %q", ErrInvalidInput, section)
	}

	// creates the row for a user who never onboarded
	if _, err := s.GetProfile(ctx, userID); err != nil {
		return nil, err
	}

	var value any
	switch column {
	case "academic_background":
		var v models.AcademicBackground
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		value = v
	case "study_goal":
		var v models.StudyGoal
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		value = v
	case "budget":
		var v models.Budget
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		value = v
	case "exam_readiness":
		var v models.ExamReadiness
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if v.SOPStatus != "" {
			normalized := models.NormalizeSOPStatus(v.SOPStatus)
			if normalized == "" {
				return nil, fmt.Errorf("%w: unknown sop_status %q", ErrInvalidInput, v.SOPStatus)
			}
			v.SOPStatus = normalized
		}
		value = v
	}

	if err := s.repo.UpdateSection(ctx, userID, column, value); err != nil {
		log.Printf("[ERROR] Failed to update section %s for user %s: %v", column, userID, err)
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	log.Printf("[INFO] Successfully updated section %s for user %s", column, userID)
	return s.repo.GetProfile(ctx, userID)
}
