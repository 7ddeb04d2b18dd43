package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"counsellor/db"
	"counsellor/models"

	"github.com/samber/lo"
)

// Recommender ranks universities for a profile.
type Recommender interface {
	Recommend(ctx context.Context, profile *models.Profile, limit int) ([]models.RankedUniversity, error)
}

// LockService owns the shortlist/lock lifecycle of a user's universities.
// At most one university per user is locked at any time.
type LockService struct {
	locks        db.LockRepository
	universities db.UniversityRepository
	profiles     *ProfileService
	tasks        *TaskService
	generator    *TaskGenerator
	recommender  Recommender
}

func NewLockService(
	locks db.LockRepository,
	universities db.UniversityRepository,
	profiles *ProfileService,
	tasks *TaskService,
	generator *TaskGenerator,
	recommender Recommender,
) *LockService {
	return &LockService{
		locks:        locks,
		universities: universities,
		profiles:     profiles,
		tasks:        tasks,
		generator:    generator,
		recommender:  recommender,
	}
}

func (s *LockService) ApplyAction(ctx context.Context, userID string, req *models.LockRequest) (*models.LockResult, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request cannot be nil", ErrInvalidInput)
	}

	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case models.LockActionLock:
		return s.Lock(ctx, userID, req.UniversityID)
	case models.LockActionUnlock:
		return s.Unlock(ctx, userID, req.UniversityID)
	case models.LockActionShortlist:
		return s.Shortlist(ctx, userID, req.UniversityID)
	case models.LockActionRemove:
		return s.Remove(ctx, userID, req.UniversityID)
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, req.Action)
	}
}

func validateLockTarget(userID, universityID string) error {
	if userID == "" {
		return ErrUnauthorized
	}
	if strings.TrimSpace(universityID) == "" {
		return fmt.Errorf("%w: university_id is required", ErrInvalidInput)
	}
	return nil
}

// Lock locks universityID and demotes any other locked university of the user
// to shortlisted. The checklist is generated only by the request that claimed
// it while holding the user's lock, so concurrent locks generate it once.
func (s *LockService) Lock(ctx context.Context, userID, universityID string) (*models.LockResult, error) {
	log.Printf("[INFO] Starting lock of university %s for user %s", universityID, userID)

	if err := validateLockTarget(userID, universityID); err != nil {
		return nil, err
	}

	university, err := s.universities.GetUniversity(ctx, universityID)
	if err != nil {
		log.Printf("[ERROR] Failed to load university %s: %v", universityID, err)
		return nil, err
	}

	exclusive, err := s.locks.LockExclusive(ctx, userID, universityID)
	if err != nil {
		log.Printf("[ERROR] Failed to lock university %s: %v", universityID, err)
		return nil, fmt.Errorf("failed to lock university: %w", err)
	}
	if len(exclusive.Demoted) > 0 {
		log.Printf("[INFO] Demoted %d previously locked universities to shortlisted: %v", len(exclusive.Demoted), exclusive.Demoted)
	}

	result := &models.LockResult{
		UniversityID: universityID,
		Status:       exclusive.Lock.Status,
		Locked:       true,
		Lock:         exclusive.Lock,
		CreatedTasks: []*models.Task{},
	}

	if !exclusive.ClaimedTasks {
		log.Printf("[INFO] Tasks for university %s already generated or being generated, skipping generation", universityID)
		return result, nil
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		log.Printf("[WARN] Failed to load profile for task generation, assuming no exam scores: %v", err)
		profile = &models.Profile{ID: userID}
	}

	created, err := s.generator.Generate(ctx, userID, university, profile)
	if err != nil {
		log.Printf("[ERROR] Task generation failed for university %s: %v", universityID, err)
		return result, nil
	}
	result.CreatedTasks = created

	log.Printf("[INFO] Successfully locked university %s with %d new tasks", universityID, len(created))
	return result, nil
}

// Unlock moves the university back to shortlisted and deletes its generated
// tasks. User-created tasks for the university are kept.
func (s *LockService) Unlock(ctx context.Context, userID, universityID string) (*models.LockResult, error) {
	log.Printf("[INFO] Starting unlock of university %s for user %s", universityID, userID)

	if err := validateLockTarget(userID, universityID); err != nil {
		return nil, err
	}

	lock, err := s.locks.SetStatus(ctx, userID, universityID, models.LockStatusShortlisted)
	if err != nil {
		log.Printf("[ERROR] Failed to unlock university %s: %v", universityID, err)
		return nil, err
	}

	removed, err := s.tasks.RemoveGeneratedTasks(ctx, userID, universityID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove generated tasks: %w", err)
	}

	return &models.LockResult{
		UniversityID:      universityID,
		Status:            lock.Status,
		Locked:            false,
		Lock:              lock,
		RemovedTasksCount: removed,
	}, nil
}

func (s *LockService) Shortlist(ctx context.Context, userID, universityID string) (*models.LockResult, error) {
	log.Printf("[INFO] Starting shortlist of university %s for user %s", universityID, userID)

	if err := validateLockTarget(userID, universityID); err != nil {
		return nil, err
	}

	if _, err := s.universities.GetUniversity(ctx, universityID); err != nil {
		log.Printf("[ERROR] Failed to load university %s: %v", universityID, err)
		return nil, err
	}

	lock, err := s.locks.UpsertShortlisted(ctx, userID, universityID)
	if err != nil {
		log.Printf("[ERROR] Failed to shortlist university %s: %v", universityID, err)
		return nil, fmt.Errorf("failed to shortlist university: %w", err)
	}

	return &models.LockResult{
		UniversityID: universityID,
		Status:       lock.Status,
		Locked:       false,
		Lock:         lock,
	}, nil
}

// Remove deletes the lock row only. Tasks are not touched.
func (s *LockService) Remove(ctx context.Context, userID, universityID string) (*models.LockResult, error) {
	log.Printf("[INFO] Starting removal of university %s for user %s", universityID, userID)

	if err := validateLockTarget(userID, universityID); err != nil {
		return nil, err
	}

	if err := s.locks.DeleteLock(ctx, userID, universityID); err != nil {
		log.Printf("[ERROR] Failed to remove university %s: %v", universityID, err)
		return nil, err
	}

	return &models.LockResult{UniversityID: universityID, Status: "removed"}, nil
}

// ListLocks returns the user's shortlisted and locked universities, locked first.
func (s *LockService) ListLocks(ctx context.Context, userID string) ([]models.LockedUniversity, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	locks, err := s.locks.ListLocks(ctx, userID)
	if err != nil {
		log.Printf("[ERROR] Failed to list locks for user %s: %v", userID, err)
		return nil, fmt.Errorf("failed to list locks: %w", err)
	}
	if len(locks) == 0 {
		return []models.LockedUniversity{}, nil
	}

	ids := lo.Map(locks, func(lock *models.UniversityLock, _ int) string { return lock.UniversityID })
	universities, err := s.universities.GetUniversitiesByIDs(ctx, ids)
	if err != nil {
		log.Printf("[ERROR] Failed to load locked universities: %v", err)
		return nil, fmt.Errorf("failed to load universities: %w", err)
	}
	byID := lo.KeyBy(universities, func(u *models.University) string { return u.UniversityID })

	result := make([]models.LockedUniversity, 0, len(locks))
	for _, lock := range locks {
		university, ok := byID[lock.UniversityID]
		if !ok {
			log.Printf("[WARN] Lock references unknown university %s", lock.UniversityID)
			continue
		}
		result = append(result, models.LockedUniversity{University: *university, Status: lock.Status})
	}

	// stable: locked entries first, repository order otherwise
	locked := lo.Filter(result, func(u models.LockedUniversity, _ int) bool { return u.Status == models.LockStatusLocked })
	rest := lo.Reject(result, func(u models.LockedUniversity, _ int) bool { return u.Status == models.LockStatusLocked })
	return append(locked, rest...), nil
}

// ShortlistRecommended shortlists every recommended university the user has
// not saved yet. Existing rows, including a locked one, are left as they are.
func (s *LockService) ShortlistRecommended(ctx context.Context, userID string, limit int) (*models.ShortlistResult, error) {
	log.Printf("[INFO] Starting shortlist of recommendations for user %s", userID)

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	ranked, err := s.recommender.Recommend(ctx, profile, limit)
	if err != nil {
		log.Printf("[ERROR] Recommendation failed while shortlisting: %v", err)
		return nil, err
	}

	result := &models.ShortlistResult{Universities: make([]*models.UniversityLock, 0, len(ranked))}
	for _, university := range ranked {
		lock, created, err := s.locks.InsertShortlistedIfAbsent(ctx, userID, university.UniversityID)
		if err != nil {
			log.Printf("[ERROR] Failed to shortlist recommended university %s: %v", university.UniversityID, err)
			continue
		}
		if created {
			result.Created++
		}
		result.Universities = append(result.Universities, lock)
	}

	log.Printf("[INFO] Shortlisted %d new universities out of %d recommended", result.Created, len(ranked))
	return result, nil
}
