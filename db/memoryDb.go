package db

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"counsellor/models"
)

// MemoryStore keeps profiles, locks, tasks and the university corpus in
// process memory. It satisfies every repository interface in this package
// and is used when no database is configured.
type MemoryStore struct {
	mu           sync.Mutex
	profiles     map[string]*models.Profile
	locks        map[string]map[string]*models.UniversityLock
	tasks        []*models.Task
	universities map[string]*models.University
	requirements map[string]*models.RequirementProfile
	now          func() time.Time
	tick         time.Duration
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:     make(map[string]*models.Profile),
		locks:        make(map[string]map[string]*models.UniversityLock),
		universities: make(map[string]*models.University),
		requirements: make(map[string]*models.RequirementProfile),
		now:          time.Now,
	}
}

// timestamp returns strictly increasing times so ordering by time is stable
// even when the clock does not advance between calls.
func (m *MemoryStore) timestamp() time.Time {
	m.tick += time.Microsecond
	return m.now().Add(m.tick)
}

func (m *MemoryStore) AddUniversity(university *models.University) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := *university
	m.universities[u.UniversityID] = &u
}

func (m *MemoryStore) AddRequirementProfile(requirements *models.RequirementProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rp := *requirements
	m.requirements[rp.Code] = &rp
}

func (m *MemoryStore) PutProfile(profile *models.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.ID] = profile.Clone()
}

// MemorySeed is the JSON document LoadSeed reads: the university catalogue
// and the requirement profiles its rows point at.
type MemorySeed struct {
	Universities        []*models.University         `json:"universities"`
	RequirementProfiles []*models.RequirementProfile `json:"requirement_profiles"`
}

// LoadSeed adds every university and requirement profile in r to the store.
func (m *MemoryStore) LoadSeed(r io.Reader) (int, error) {
	var seed MemorySeed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return 0, fmt.Errorf("failed to decode seed: %w", err)
	}

	for _, university := range seed.Universities {
		if university == nil || university.UniversityID == "" {
			return 0, fmt.Errorf("seed university without university_id")
		}
	}

	for _, requirements := range seed.RequirementProfiles {
		if requirements != nil {
			m.AddRequirementProfile(requirements)
		}
	}
	for _, university := range seed.Universities {
		m.AddUniversity(university)
	}
	return len(seed.Universities), nil
}

// Profiles

func (m *MemoryStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	profile, ok := m.profiles[userID]
	if !ok {
		profile = &models.Profile{ID: userID, CurrentStage: models.StageBuildingProfile, UpdatedAt: m.timestamp()}
		m.profiles[userID] = profile
	}
	return profile.Clone(), nil
}

func (m *MemoryStore) UpdateSections(ctx context.Context, userID string, sections models.ProfileSections) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	profile, ok := m.profiles[userID]
	if !ok {
		return fmt.Errorf("profile for user %s: %w", userID, ErrNotFound)
	}

	next := (&models.Profile{
		AcademicBackground: sections.AcademicBackground,
		StudyGoal:          sections.StudyGoal,
		Budget:             sections.Budget,
		ExamReadiness:      sections.ExamReadiness,
	}).Clone()
	profile.AcademicBackground = next.AcademicBackground
	profile.StudyGoal = next.StudyGoal
	profile.Budget = next.Budget
	profile.ExamReadiness = next.ExamReadiness
	profile.UpdatedAt = m.timestamp()
	return nil
}

func (m *MemoryStore) UpdateSection(ctx context.Context, userID string, column string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	profile, ok := m.profiles[userID]
	if !ok {
		return fmt.Errorf("profile for user %s: %w", userID, ErrNotFound)
	}

	switch v := value.(type) {
	case models.AcademicBackground:
		profile.AcademicBackground = v
	case models.StudyGoal:
		v.PreferredCountries = append([]string(nil), v.PreferredCountries...)
		profile.StudyGoal = v
	case models.Budget:
		profile.Budget = v
	case models.ExamReadiness:
		profile.ExamReadiness = v
	default:
		return fmt.Errorf("unknown profile section %q", column)
	}
	profile.UpdatedAt = m.timestamp()
	return nil
}

func (m *MemoryStore) MarkOnboardingComplete(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	profile, ok := m.profiles[userID]
	if !ok || profile.OnboardingCompleted {
		return false, nil
	}
	profile.OnboardingCompleted = true
	profile.CurrentStage = models.StageDiscovering
	profile.UpdatedAt = m.timestamp()
	return true, nil
}

// Locks

func (m *MemoryStore) userLocks(userID string) map[string]*models.UniversityLock {
	locks, ok := m.locks[userID]
	if !ok {
		locks = make(map[string]*models.UniversityLock)
		m.locks[userID] = locks
	}
	return locks
}

func (m *MemoryStore) putLock(userID, universityID, status string) *models.UniversityLock {
	locks := m.userLocks(userID)
	now := m.timestamp()
	lock, ok := locks[universityID]
	if !ok {
		lock = &models.UniversityLock{UserID: userID, UniversityID: universityID, CreatedAt: now}
		locks[universityID] = lock
	}
	lock.Status = status
	lock.StatusChangedAt = now
	copied := *lock
	return &copied
}

func (m *MemoryStore) ListLocks(ctx context.Context, userID string) ([]*models.UniversityLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	locks := make([]*models.UniversityLock, 0, len(m.locks[userID]))
	for _, lock := range m.locks[userID] {
		copied := *lock
		locks = append(locks, &copied)
	}
	sort.Slice(locks, func(i, j int) bool {
		return locks[i].StatusChangedAt.After(locks[j].StatusChangedAt)
	})
	return locks, nil
}

func (m *MemoryStore) GetLock(ctx context.Context, userID, universityID string) (*models.UniversityLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[userID][universityID]
	if !ok {
		return nil, fmt.Errorf("lock on university %s: %w", universityID, ErrNotFound)
	}
	copied := *lock
	return &copied, nil
}

func (m *MemoryStore) UpsertShortlisted(ctx context.Context, userID, universityID string) (*models.UniversityLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putLock(userID, universityID, models.LockStatusShortlisted), nil
}

func (m *MemoryStore) InsertShortlistedIfAbsent(ctx context.Context, userID, universityID string) (*models.UniversityLock, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lock, ok := m.locks[userID][universityID]; ok {
		copied := *lock
		return &copied, false, nil
	}
	return m.putLock(userID, universityID, models.LockStatusShortlisted), true, nil
}

func (m *MemoryStore) LockExclusive(ctx context.Context, userID, universityID string) (*ExclusiveLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	demoted := make([]string, 0)
	for id, lock := range m.userLocks(userID) {
		if id != universityID && lock.Status == models.LockStatusLocked {
			lock.Status = models.LockStatusShortlisted
			lock.StatusChangedAt = m.timestamp()
			demoted = append(demoted, id)
		}
	}
	sort.Strings(demoted)

	m.putLock(userID, universityID, models.LockStatusLocked)
	lock := m.locks[userID][universityID]

	claimed := lock.TasksGeneratedAt == nil && m.countGenerated(userID, universityID) == 0
	if claimed {
		generatedAt := m.timestamp()
		lock.TasksGeneratedAt = &generatedAt
	}

	copied := *lock
	return &ExclusiveLock{Lock: &copied, Demoted: demoted, ClaimedTasks: claimed}, nil
}

func (m *MemoryStore) SetStatus(ctx context.Context, userID, universityID, status string) (*models.UniversityLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[userID][universityID]
	if !ok {
		return nil, fmt.Errorf("lock on university %s: %w", universityID, ErrNotFound)
	}
	if status != models.LockStatusLocked {
		lock.TasksGeneratedAt = nil
	}
	return m.putLock(userID, universityID, status), nil
}

func (m *MemoryStore) DeleteLock(ctx context.Context, userID, universityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.locks[userID][universityID]; !ok {
		return fmt.Errorf("lock on university %s: %w", universityID, ErrNotFound)
	}
	delete(m.locks[userID], universityID)
	return nil
}

// Tasks

func copyTask(task *models.Task) *models.Task {
	copied := *task
	if task.AIMeta != nil {
		copied.AIMeta = make(map[string]any, len(task.AIMeta))
		for k, v := range task.AIMeta {
			copied.AIMeta[k] = v
		}
	}
	return &copied
}

func (m *MemoryStore) CreateTask(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.timestamp()
	task.CreatedAt = now
	task.UpdatedAt = now
	m.tasks = append(m.tasks, copyTask(task))
	return nil
}

func (m *MemoryStore) findTask(userID, taskID string) (int, bool) {
	for i, task := range m.tasks {
		if task.UserID == userID && task.ID == taskID {
			return i, true
		}
	}
	return -1, false
}

func (m *MemoryStore) GetTask(ctx context.Context, userID, taskID string) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.findTask(userID, taskID)
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	return copyTask(m.tasks[i]), nil
}

func (m *MemoryStore) ListTasks(ctx context.Context, userID string, filter models.TaskFilter) ([]*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tasks := make([]*models.Task, 0)
	for i := len(m.tasks) - 1; i >= 0; i-- {
		task := m.tasks[i]
		if task.UserID != userID {
			continue
		}
		if filter.Category != "" && task.Category != filter.Category {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.UniversityID != "" && (task.UniversityID == nil || *task.UniversityID != filter.UniversityID) {
			continue
		}
		tasks = append(tasks, copyTask(task))
	}
	return tasks, nil
}

func (m *MemoryStore) isGeneratedFor(task *models.Task, userID, universityID string) bool {
	return task.UserID == userID && task.AIGenerated &&
		task.UniversityID != nil && *task.UniversityID == universityID
}

func (m *MemoryStore) countGenerated(userID, universityID string) int {
	count := 0
	for _, task := range m.tasks {
		if m.isGeneratedFor(task, userID, universityID) {
			count++
		}
	}
	return count
}

func (m *MemoryStore) CountAIGeneratedTasks(ctx context.Context, userID, universityID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countGenerated(userID, universityID), nil
}

func (m *MemoryStore) DeleteAIGeneratedTasks(ctx context.Context, userID, universityID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.tasks[:0]
	removed := 0
	for _, task := range m.tasks {
		if m.isGeneratedFor(task, userID, universityID) {
			removed++
			continue
		}
		kept = append(kept, task)
	}
	m.tasks = kept
	return removed, nil
}

func (m *MemoryStore) UpdateTask(ctx context.Context, userID, taskID string, updates map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(updates) == 0 {
		return fmt.Errorf("no updates provided")
	}
	for column := range updates {
		if !taskUpdateColumns[column] {
			return fmt.Errorf("column %q cannot be updated", column)
		}
	}

	i, ok := m.findTask(userID, taskID)
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	task := m.tasks[i]

	for column, value := range updates {
		switch column {
		case "title":
			task.Title = value.(string)
		case "description":
			task.Description = value.(string)
		case "category":
			task.Category = value.(string)
		case "status":
			task.Status = value.(string)
		case "priority":
			p := value.(int)
			task.Priority = &p
		case "est_hours":
			h := value.(int)
			task.EstHours = &h
		case "due_date":
			d := value.(time.Time)
			task.DueDate = &d
		}
	}
	task.UpdatedAt = m.timestamp()
	return nil
}

func (m *MemoryStore) DeleteTask(ctx context.Context, userID, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.findTask(userID, taskID)
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
	return nil
}

// Universities

func (m *MemoryStore) GetUniversity(ctx context.Context, universityID string) (*models.University, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	university, ok := m.universities[universityID]
	if !ok {
		return nil, fmt.Errorf("university %s: %w", universityID, ErrNotFound)
	}
	copied := *university
	return &copied, nil
}

func (m *MemoryStore) GetUniversitiesByIDs(ctx context.Context, universityIDs []string) ([]*models.University, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	universities := make([]*models.University, 0, len(universityIDs))
	for _, id := range universityIDs {
		if university, ok := m.universities[id]; ok {
			copied := *university
			universities = append(universities, &copied)
		}
	}
	sort.Slice(universities, func(i, j int) bool { return universities[i].Name < universities[j].Name })
	return universities, nil
}

func (m *MemoryStore) ListUniversities(ctx context.Context, offset, limit int) ([]*models.University, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.universities))
	for id := range m.universities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	universities := make([]*models.University, 0, limit)
	for i := offset; i < len(ids) && len(universities) < limit; i++ {
		copied := *m.universities[ids[i]]
		universities = append(universities, &copied)
	}
	return universities, nil
}

func (m *MemoryStore) GetRequirementProfile(ctx context.Context, code string) (*models.RequirementProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	requirements, ok := m.requirements[code]
	if !ok {
		return nil, fmt.Errorf("requirement profile %q: %w", code, ErrNotFound)
	}
	copied := *requirements
	copied.DocCodes = append([]string(nil), requirements.DocCodes...)
	copied.TestCodes = append([]string(nil), requirements.TestCodes...)
	return &copied, nil
}
