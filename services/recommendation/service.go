package recommendation

import (
	"context"
	"fmt"
	"log"
	"strings"

	"counsellor/models"

	"github.com/samber/lo"
)

const (
	safeDistance   = 0.18
	targetDistance = 0.28

	lowCostCeiling    = 20000
	mediumCostCeiling = 35000

	DefaultLimit = 12
)

// Searcher finds the universities closest to a free-text profile summary.
// Distances are in [0, 2]; lower is closer.
type Searcher interface {
	SearchUniversities(ctx context.Context, query string, k int, filter models.SearchFilter) ([]models.UniversityMatch, error)
}

// UniversityLookup fills in the full university record for search hits.
type UniversityLookup interface {
	GetUniversitiesByIDs(ctx context.Context, universityIDs []string) ([]*models.University, error)
}

type Service struct {
	searcher       Searcher
	universities   UniversityLookup
	fitSearchLimit int
}

// NewService builds the recommender. universities may be nil, in which case
// the records carried by the search index are returned as they are.
func NewService(searcher Searcher, universities UniversityLookup, fitSearchLimit int) *Service {
	if fitSearchLimit <= 0 {
		fitSearchLimit = 50
	}
	return &Service{searcher: searcher, universities: universities, fitSearchLimit: fitSearchLimit}
}

// Recommend returns at most limit universities ranked by similarity to the
// profile, each tagged with a bucket, an acceptance chance and a cost level.
func (s *Service) Recommend(ctx context.Context, profile *models.Profile, limit int) ([]models.RankedUniversity, error) {
	if profile == nil {
		return nil, fmt.Errorf("profile cannot be nil")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	log.Printf("[INFO] Starting recommendation for user %s with limit %d", profile.ID, limit)

	matches, err := s.search(ctx, profile, limit)
	if err != nil {
		return nil, err
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}

	ranked := lo.Map(matches, func(match models.UniversityMatch, _ int) models.RankedUniversity {
		return Rank(match)
	})

	log.Printf("[INFO] Recommended %d universities (safe=%d target=%d dream=%d)", len(ranked),
		countBucket(ranked, models.BucketSafe), countBucket(ranked, models.BucketTarget), countBucket(ranked, models.BucketDream))
	return ranked, nil
}

// FitFor scores specific universities against one wide search. Ids that do
// not come back from the search are treated as Dream with a High cost level.
func (s *Service) FitFor(ctx context.Context, profile *models.Profile, universityIDs []string) (map[string]models.UniversityFit, error) {
	if profile == nil {
		return nil, fmt.Errorf("profile cannot be nil")
	}

	log.Printf("[INFO] Starting fit scoring for %d universities", len(universityIDs))

	fit := make(map[string]models.UniversityFit, len(universityIDs))
	if len(universityIDs) == 0 {
		return fit, nil
	}

	matches, err := s.search(ctx, profile, s.fitSearchLimit)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(matches, func(match models.UniversityMatch) string { return match.UniversityID })

	for _, id := range universityIDs {
		match, ok := byID[id]
		if !ok {
			fit[id] = models.UniversityFit{
				Bucket:           models.BucketDream,
				AcceptanceChance: models.LevelLow,
				CostLevel:        models.LevelHigh,
			}
			continue
		}
		ranked := Rank(match)
		fit[id] = models.UniversityFit{
			Bucket:           ranked.Bucket,
			AcceptanceChance: ranked.AcceptanceChance,
			CostLevel:        ranked.CostLevel,
		}
	}

	return fit, nil
}

func (s *Service) search(ctx context.Context, profile *models.Profile, k int) ([]models.UniversityMatch, error) {
	query := BuildProfileQuery(profile)
	filter := FilterFor(profile)

	matches, err := s.searcher.SearchUniversities(ctx, query, k, filter)
	if err != nil {
		log.Printf("[ERROR] University search failed: %v", err)
		return nil, fmt.Errorf("university search failed: %w", err)
	}

	return s.hydrate(ctx, matches), nil
}

// hydrate swaps index metadata for the stored university rows. A lookup
// failure keeps the metadata.
func (s *Service) hydrate(ctx context.Context, matches []models.UniversityMatch) []models.UniversityMatch {
	if s.universities == nil || len(matches) == 0 {
		return matches
	}

	ids := lo.Map(matches, func(match models.UniversityMatch, _ int) string { return match.UniversityID })
	rows, err := s.universities.GetUniversitiesByIDs(ctx, ids)
	if err != nil {
		log.Printf("[WARN] Failed to load universities for search results, using index metadata: %v", err)
		return matches
	}
	byID := lo.KeyBy(rows, func(u *models.University) string { return u.UniversityID })

	return lo.Map(matches, func(match models.UniversityMatch, _ int) models.UniversityMatch {
		if row, ok := byID[match.UniversityID]; ok {
			match.University = *row
		}
		return match
	})
}

// Rank applies the bucket and cost policy to one search hit.
func Rank(match models.UniversityMatch) models.RankedUniversity {
	bucket, chance := Classify(match.Distance)
	return models.RankedUniversity{
		UniversityMatch:  match,
		Bucket:           bucket,
		AcceptanceChance: chance,
		CostLevel:        CostLevelFor(match.TotalAnnualCostUSD),
	}
}

// Classify maps a similarity distance to a bucket and acceptance chance.
// Lower bounds are inclusive: 0.18 is Target and 0.28 is Dream.
func Classify(distance float64) (bucket, acceptanceChance string) {
	switch {
	case distance < safeDistance:
		return models.BucketSafe, models.LevelHigh
	case distance < targetDistance:
		return models.BucketTarget, models.LevelMedium
	default:
		return models.BucketDream, models.LevelLow
	}
}

// CostLevelFor buckets total annual cost in USD. Unknown cost is High.
func CostLevelFor(totalAnnualCostUSD *float64) string {
	if totalAnnualCostUSD == nil {
		return models.LevelHigh
	}
	switch cost := *totalAnnualCostUSD; {
	case cost < lowCostCeiling:
		return models.LevelLow
	case cost < mediumCostCeiling:
		return models.LevelMedium
	default:
		return models.LevelHigh
	}
}

// BuildProfileQuery renders the profile as the short text that is embedded
// for similarity search.
func BuildProfileQuery(profile *models.Profile) string {
	ielts := orNotApplicable(profile.ExamReadiness.IELTSTOEFLScore)
	gre := orNotApplicable(profile.ExamReadiness.GREGMATScore)

	return fmt.Sprintf("Student: %s.\nDegree wanted: %s in %s.\nBudget: %s.\nIntake: %s.\nScores: IELTS %s, GRE %s.",
		profile.AcademicBackground.DegreeMajor,
		profile.StudyGoal.IntendedDegree,
		profile.StudyGoal.FieldOfStudy,
		profile.Budget.BudgetRange,
		profile.StudyGoal.TargetIntake,
		ielts, gre)
}

// FilterFor restricts the search to the first preferred country, if any.
func FilterFor(profile *models.Profile) models.SearchFilter {
	country, _ := lo.Find(profile.StudyGoal.PreferredCountries, func(c string) bool {
		return strings.TrimSpace(c) != ""
	})
	return models.SearchFilter{Country: strings.TrimSpace(country)}
}

func orNotApplicable(s string) string {
	if strings.TrimSpace(s) == "" {
		return models.NotApplicable
	}
	return s
}

func countBucket(ranked []models.RankedUniversity, bucket string) int {
	return lo.CountBy(ranked, func(r models.RankedUniversity) bool { return r.Bucket == bucket })
}
