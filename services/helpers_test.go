package services

import (
	"context"

	"counsellor/db"
	"counsellor/models"

	"github.com/samber/lo"
)

const testUserID = "6f1c2f7e-3b6a-4c55-9a39-1f2d7c1e0a11"

type stubRecommender struct {
	ranked []models.RankedUniversity
	err    error
}

func (r *stubRecommender) Recommend(ctx context.Context, profile *models.Profile, limit int) ([]models.RankedUniversity, error) {
	if r.err != nil {
		return nil, r.err
	}
	if limit > 0 && len(r.ranked) > limit {
		return r.ranked[:limit], nil
	}
	return r.ranked, nil
}

type testServices struct {
	store    *db.MemoryStore
	profiles *ProfileService
	tasks    *TaskService
	locks    *LockService
}

func newTestServices(recommender Recommender) *testServices {
	store := seededStore()
	profiles := NewProfileService(store)
	tasks := NewTaskService(store)
	generator := NewTaskGenerator(store, store)
	return &testServices{
		store:    store,
		profiles: profiles,
		tasks:    tasks,
		locks:    NewLockService(store, store, profiles, tasks, generator, recommender),
	}
}

func seededStore() *db.MemoryStore {
	store := db.NewMemoryStore()
	store.AddRequirementProfile(&models.RequirementProfile{
		Code:      "US_MS_STEM",
		DocCodes:  []string{"sop", "lor", "transcript"},
		TestCodes: []string{"ielts", "gre"},
	})
	store.AddRequirementProfile(&models.RequirementProfile{
		Code:     "UK_MSC",
		DocCodes: []string{"sop", "cv"},
	})
	store.AddUniversity(&models.University{
		UniversityID:           "uni-mit",
		Name:                   "Massachusetts Institute of Technology",
		Country:                "USA",
		City:                   "Cambridge",
		RequirementProfileCode: "US_MS_STEM",
		VisaRiskLevel:          models.LevelHigh,
		TotalAnnualCostUSD:     lo.ToPtr(78000.0),
	})
	store.AddUniversity(&models.University{
		UniversityID:           "uni-ucl",
		Name:                   "University College London",
		Country:                "UK",
		City:                   "London",
		RequirementProfileCode: "UK_MSC",
		VisaRiskLevel:          models.LevelLow,
		TotalAnnualCostUSD:     lo.ToPtr(52000.0),
	})
	store.AddUniversity(&models.University{
		UniversityID:           "uni-tum",
		Name:                   "Technical University of Munich",
		Country:                "Germany",
		City:                   "Munich",
		RequirementProfileCode: "DE_UNKNOWN",
		VisaRiskLevel:          models.LevelMedium,
	})
	return store
}
