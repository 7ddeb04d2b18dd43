package models

import "time"

const (
	LockStatusShortlisted = "shortlisted"
	LockStatusLocked      = "locked"
)

const (
	LockActionLock      = "lock"
	LockActionUnlock    = "unlock"
	LockActionShortlist = "shortlist"
	LockActionRemove    = "remove"
)

type UniversityLock struct {
	UserID          string    `json:"user_id" db:"user_id"`
	UniversityID    string    `json:"university_id" db:"university_id"`
	Status          string    `json:"status" db:"status"`
	StatusChangedAt time.Time `json:"status_changed_at" db:"status_changed_at"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	// TasksGeneratedAt is set once the checklist for the locked university
	// has been claimed for generation, and cleared again on unlock.
	TasksGeneratedAt *time.Time `json:"tasks_generated_at,omitempty" db:"tasks_generated_at"`
}

type LockRequest struct {
	UniversityID string `json:"university_id"`
	Action       string `json:"action"`
}

type LockResult struct {
	UniversityID      string          `json:"university_id"`
	Status            string          `json:"status"`
	Locked            bool            `json:"locked"`
	Lock              *UniversityLock `json:"lock,omitempty"`
	CreatedTasks      []*Task         `json:"createdTasks,omitempty"`
	RemovedTasksCount int             `json:"removedTasksCount"`
}

type ShortlistResult struct {
	Created      int               `json:"created"`
	Universities []*UniversityLock `json:"universities"`
}

// LockedUniversity joins a lock row with the university it points at.
type LockedUniversity struct {
	University
	Status string `json:"status"`
}
