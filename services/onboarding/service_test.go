package onboarding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"counsellor/db"
	"counsellor/models"
	"counsellor/services"
	"counsellor/services/recommendation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID = "0b7d1f0c-9a53-4f1e-8f7a-5c2d3e4f5a6b"

// flakyProfileStore fails profile writes while failing is set, and profile
// reads while failingReads is set.
type flakyProfileStore struct {
	*db.MemoryStore
	mu           sync.Mutex
	failing      bool
	failingReads bool
}

func (s *flakyProfileStore) setFailingReads(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failingReads = failing
}

func (s *flakyProfileStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	s.mu.Lock()
	failing := s.failingReads
	s.mu.Unlock()
	if failing {
		return nil, errors.New("connection refused")
	}
	return s.MemoryStore.GetProfile(ctx, userID)
}

func (s *flakyProfileStore) setFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

func (s *flakyProfileStore) UpdateSections(ctx context.Context, userID string, sections models.ProfileSections) error {
	s.mu.Lock()
	failing := s.failing
	s.mu.Unlock()
	if failing {
		return errors.New("connection reset by peer")
	}
	return s.MemoryStore.UpdateSections(ctx, userID, sections)
}

type fixedSearcher struct {
	matches []models.UniversityMatch
}

func (s *fixedSearcher) SearchUniversities(ctx context.Context, query string, k int, filter models.SearchFilter) ([]models.UniversityMatch, error) {
	if len(s.matches) > k {
		return s.matches[:k], nil
	}
	return s.matches, nil
}

func newTestService(llm *scriptedLLM) (*Service, *flakyProfileStore) {
	store := &flakyProfileStore{MemoryStore: db.NewMemoryStore()}
	extractor := NewExtractor(nil, time.Second)
	if llm != nil {
		extractor = NewExtractor(llm, time.Second)
	}
	return NewService(services.NewProfileService(store), extractor), store
}

func turn(t *testing.T, svc *Service, message string) *models.OnboardingTurnResponse {
	t.Helper()
	resp, err := svc.ProcessTurn(context.Background(), testUserID, models.OnboardingTurnRequest{Message: message})
	require.NoError(t, err)
	return resp
}

func TestProcessTurn_FirstQuestion(t *testing.T) {
	svc, _ := newTestService(nil)

	resp := turn(t, svc, "")

	assert.Equal(t, FieldEducationLevel, resp.NextField)
	assert.Equal(t, QuestionFor(FieldEducationLevel), resp.AssistantText)
	assert.False(t, resp.Complete)
}

func TestProcessTurn_EndToEnd(t *testing.T) {
	llm := &scriptedLLM{replies: []scriptedReply{
		reply(`{"education_level":"Bachelors"}`),
		reply(`{"degree_major":"Computer Science"}`),
		reply(`{"graduation_year":2023,"gpa_percentage":"8.5/10"}`),
		reply(`{"intended_degree":"Masters","field_of_study":"Data Science"}`),
		reply(`{"target_intake":"Fall 2026"}`),
		reply(`{"preferred_countries":["USA","Germany"]}`),
		reply(`{"budget_range":"$30,000 - $50,000"}`),
		reply(`{"funding_source":"Education Loan"}`),
		reply(`{"ielts_toefl_score":"IELTS 7.5","gre_gmat_score":"N/A"}`),
		reply(`{"sop_status":"Draft"}`),
	}}
	svc, store := newTestService(llm)

	steps := []struct {
		answer string
		next   string
	}{
		{"I have a bachelor's degree", FieldDegreeMajor},
		{"Computer Science", FieldGraduationYear},
		{"Graduated in 2023 with 8.5/10", FieldIntendedDegree},
		{"An MS in Data Science", FieldTargetIntake},
		{"Fall 2026", FieldPreferredCountries},
		{"USA and Germany", FieldBudgetRange},
		{"Somewhere between 30k and 40k", FieldFundingSource},
		{"Education loan", FieldIELTSTOEFLScore},
		{"IELTS 7.5, haven't taken the GRE", FieldSOPStatus},
		{"I have a draft", FieldComplete},
	}

	var resp *models.OnboardingTurnResponse
	for i, step := range steps {
		resp = turn(t, svc, step.answer)
		require.False(t, resp.Error, "step %d", i+1)
		require.Equal(t, step.next, resp.NextField, "step %d", i+1)
	}

	assert.True(t, resp.Complete)
	assert.Equal(t, MSG_JUST_COMPLETED, resp.AssistantText)

	profile, err := store.GetProfile(context.Background(), testUserID)
	require.NoError(t, err)
	assert.True(t, profile.OnboardingCompleted)
	assert.Equal(t, models.StageDiscovering, profile.CurrentStage)
	assert.Equal(t, []string{"USA", "Germany"}, profile.StudyGoal.PreferredCountries)
	assert.Equal(t, models.SOPDraft, profile.ExamReadiness.SOPStatus)
	assert.Equal(t, FieldComplete, NextMissingField(profile))

	matches := make([]models.UniversityMatch, 0, 15)
	for i := range 15 {
		matches = append(matches, models.UniversityMatch{
			University: models.University{UniversityID: fmt.Sprintf("uni-%02d", i), Name: fmt.Sprintf("University %d", i)},
			Distance:   0.1 + float64(i)*0.02,
		})
	}
	recommender := recommendation.NewService(&fixedSearcher{matches: matches}, nil, 0)

	ranked, err := recommender.Recommend(context.Background(), profile, 12)
	require.NoError(t, err)
	assert.NotEmpty(t, ranked)
	assert.LessOrEqual(t, len(ranked), 12)
	for _, r := range ranked {
		assert.Contains(t, []string{models.BucketSafe, models.BucketTarget, models.BucketDream}, r.Bucket)
	}
}

func TestProcessTurn_FallbackOnly(t *testing.T) {
	svc, _ := newTestService(nil)

	resp := turn(t, svc, "I have a bachelor's degree")
	assert.Equal(t, FieldDegreeMajor, resp.NextField)
	assert.Equal(t, "Bachelors", resp.UpdatedProfile.AcademicBackground.EducationLevel)

	resp = turn(t, svc, "Mechanical Engineering")
	assert.Equal(t, FieldGraduationYear, resp.NextField)
	assert.Equal(t, QuestionFor(FieldGraduationYear), resp.AssistantText)
}

func TestProcessTurn_NoValueRepeatsQuestion(t *testing.T) {
	svc, store := newTestService(nil)
	before, err := store.GetProfile(context.Background(), testUserID)
	require.NoError(t, err)

	resp := turn(t, svc, "why do you need that?")

	assert.Equal(t, FieldEducationLevel, resp.NextField)
	assert.Equal(t, QuestionFor(FieldEducationLevel), resp.AssistantText)
	assert.False(t, resp.Error)

	after, err := store.GetProfile(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

func TestProcessTurn_AlreadyCompleteIsIdempotent(t *testing.T) {
	svc, store := newTestService(nil)
	profile := fullProfile()
	profile.ID = testUserID
	store.PutProfile(profile)

	first := turn(t, svc, "anything")
	stored, err := store.GetProfile(context.Background(), testUserID)
	require.NoError(t, err)

	for range 3 {
		resp := turn(t, svc, "hello again")
		assert.Equal(t, first.AssistantText, resp.AssistantText)
		assert.Equal(t, first.NextField, resp.NextField)
		assert.True(t, resp.Complete)
		assert.Equal(t, MSG_ALREADY_COMPLETE, resp.AssistantText)
	}

	again, err := store.GetProfile(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Equal(t, models.StageDiscovering, again.CurrentStage)
	assert.Equal(t, stored.UpdatedAt, again.UpdatedAt)
}

func TestProcessTurn_PersistFailureKeepsProfile(t *testing.T) {
	svc, store := newTestService(nil)
	store.setFailing(true)

	resp := turn(t, svc, "I have a bachelor's degree")

	assert.True(t, resp.Error)
	assert.Equal(t, FieldEducationLevel, resp.NextField)
	assert.Contains(t, resp.AssistantText, MSG_SAVE_FAILED)
	assert.Contains(t, resp.AssistantText, QuestionFor(FieldEducationLevel))

	profile, err := store.GetProfile(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Empty(t, profile.AcademicBackground.EducationLevel)

	store.setFailing(false)
	resp = turn(t, svc, "I have a bachelor's degree")
	assert.False(t, resp.Error)
	assert.Equal(t, FieldDegreeMajor, resp.NextField)
}

func TestProcessTurn_LoadFailureAsksToRetry(t *testing.T) {
	svc, store := newTestService(nil)
	store.setFailingReads(true)

	resp, err := svc.ProcessTurn(context.Background(), testUserID, models.OnboardingTurnRequest{Message: "Masters"})
	require.NoError(t, err)
	assert.True(t, resp.Error)
	assert.Equal(t, MSG_LOAD_FAILED, resp.AssistantText)
	assert.False(t, resp.Complete)

	store.setFailingReads(false)
	resp = turn(t, svc, "Masters")
	assert.False(t, resp.Error)
	assert.Equal(t, FieldDegreeMajor, resp.NextField)
}

func TestProcessTurn_UsesLastUserMessage(t *testing.T) {
	svc, _ := newTestService(nil)

	resp, err := svc.ProcessTurn(context.Background(), testUserID, models.OnboardingTurnRequest{
		Messages: []models.Message{
			{Role: "assistant", Content: QuestionFor(FieldEducationLevel)},
			{Role: "user", Content: "Masters"},
			{Role: "assistant", Content: "thanks"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, FieldDegreeMajor, resp.NextField)
	assert.Equal(t, "Masters", resp.UpdatedProfile.AcademicBackground.EducationLevel)
}

func TestProcessTurn_RequiresUser(t *testing.T) {
	svc, _ := newTestService(nil)

	_, err := svc.ProcessTurn(context.Background(), "", models.OnboardingTurnRequest{Message: "Masters"})
	assert.ErrorIs(t, err, services.ErrUnauthorized)
}

func TestProcessTurn_ConcurrentTurns(t *testing.T) {
	svc, store := newTestService(nil)
	answers := []string{"I have a bachelor's degree", "Currently doing my masters"}

	var wg sync.WaitGroup
	errs := make([]error, len(answers))
	for i, answer := range answers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.ProcessTurn(context.Background(), testUserID, models.OnboardingTurnRequest{Message: answer})
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}

	profile, err := store.GetProfile(context.Background(), testUserID)
	require.NoError(t, err)
	// last write wins
	assert.Contains(t, []string{"Bachelors", "Masters"}, profile.AcademicBackground.EducationLevel)
}
