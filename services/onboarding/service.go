package onboarding

import (
	"context"
	"errors"
	"log"
	"strings"

	"counsellor/models"
	"counsellor/services"
)

const (
	MSG_ALREADY_COMPLETE = "Great! Your profile is complete. Taking you to the dashboard..."
	MSG_JUST_COMPLETED   = "Perfect! I have everything I need. Setting up your dashboard..."
	MSG_SAVE_FAILED      = "I'm having trouble saving your data. Please try again later."
	MSG_LOAD_FAILED      = "I'm having trouble loading your profile. Please try again in a moment."
)

// Service runs the onboarding conversation one answer at a time.
type Service struct {
	profiles  *services.ProfileService
	extractor *Extractor
}

func NewService(profiles *services.ProfileService, extractor *Extractor) *Service {
	return &Service{
		profiles:  profiles,
		extractor: extractor,
	}
}

// ProcessTurn applies the user's latest answer to their profile and returns
// the next question. The profile is written before the next field is
// computed; a failed write leaves it untouched and repeats the question.
func (s *Service) ProcessTurn(ctx context.Context, userID string, req models.OnboardingTurnRequest) (*models.OnboardingTurnResponse, error) {
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, services.ErrUnauthorized) {
			return nil, err
		}
		log.Printf("[ERROR] Failed to load profile for onboarding user %s: %v", userID, err)
		return &models.OnboardingTurnResponse{
			AssistantText: MSG_LOAD_FAILED,
			Error:         true,
		}, nil
	}

	field := NextMissingField(profile)
	if field == FieldComplete {
		return s.complete(ctx, userID, profile, MSG_ALREADY_COMPLETE)
	}

	answer := lastUserMessage(req)
	if answer == "" {
		return s.ask(field, profile), nil
	}

	log.Printf("[INFO] Processing onboarding answer for user %s, field %s", userID, field)
	extracted := s.extractor.Extract(ctx, field, answer, profile)

	updated, changed := Merge(profile, extracted)
	if !changed {
		log.Printf("[INFO] No profile values found in answer for user %s, asking %s again", userID, field)
		return s.ask(field, profile), nil
	}

	if err := s.profiles.SaveSections(ctx, userID, updated.Sections()); err != nil {
		log.Printf("[ERROR] Onboarding answer for user %s not saved: %v", userID, err)
		return &models.OnboardingTurnResponse{
			AssistantText:  MSG_SAVE_FAILED + "\n\n" + QuestionFor(field),
			NextField:      field,
			Error:          true,
			UpdatedProfile: profile,
		}, nil
	}

	next := NextMissingField(updated)
	if next == FieldComplete {
		return s.complete(ctx, userID, updated, MSG_JUST_COMPLETED)
	}

	log.Printf("[INFO] Onboarding for user %s advanced from %s to %s", userID, field, next)
	return s.ask(next, updated), nil
}

func (s *Service) ask(field string, profile *models.Profile) *models.OnboardingTurnResponse {
	return &models.OnboardingTurnResponse{
		AssistantText:  QuestionFor(field),
		NextField:      field,
		UpdatedProfile: profile,
	}
}

func (s *Service) complete(ctx context.Context, userID string, profile *models.Profile, message string) (*models.OnboardingTurnResponse, error) {
	if _, err := s.profiles.MarkOnboardingComplete(ctx, userID); err != nil {
		return &models.OnboardingTurnResponse{
			AssistantText:  MSG_SAVE_FAILED,
			NextField:      FieldComplete,
			Error:          true,
			UpdatedProfile: profile,
		}, nil
	}

	completed := profile.Clone()
	completed.OnboardingCompleted = true
	if completed.CurrentStage == "" || completed.CurrentStage == models.StageBuildingProfile {
		completed.CurrentStage = models.StageDiscovering
	}

	return &models.OnboardingTurnResponse{
		AssistantText:  message,
		NextField:      FieldComplete,
		Complete:       true,
		UpdatedProfile: completed,
	}, nil
}

func lastUserMessage(req models.OnboardingTurnRequest) string {
	if text := strings.TrimSpace(req.Message); text != "" {
		return text
	}
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return strings.TrimSpace(req.Messages[i].Content)
		}
	}
	return ""
}
