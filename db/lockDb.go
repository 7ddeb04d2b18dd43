package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"counsellor/models"
)

type LockRepository interface {
	ListLocks(ctx context.Context, userID string) ([]*models.UniversityLock, error)
	GetLock(ctx context.Context, userID, universityID string) (*models.UniversityLock, error)
	UpsertShortlisted(ctx context.Context, userID, universityID string) (*models.UniversityLock, error)
	InsertShortlistedIfAbsent(ctx context.Context, userID, universityID string) (*models.UniversityLock, bool, error)
	LockExclusive(ctx context.Context, userID, universityID string) (*ExclusiveLock, error)
	SetStatus(ctx context.Context, userID, universityID, status string) (*models.UniversityLock, error)
	DeleteLock(ctx context.Context, userID, universityID string) error
}

// ExclusiveLock is the outcome of LockExclusive. ClaimedTasks is true for
// exactly one lock request per lock lifecycle of a university: the one that
// has to generate its checklist.
type ExclusiveLock struct {
	Lock         *models.UniversityLock
	Demoted      []string
	ClaimedTasks bool
}

type PostgresLockRepository struct {
	db *sql.DB
}

func NewPostgresLockRepository(databaseURL string) (*PostgresLockRepository, error) {
	db, err := openPostgres(databaseURL)
	if err != nil {
		return nil, err
	}

	return &PostgresLockRepository{db: db}, nil
}

const lockColumns = `user_id, university_id, status, status_changed_at, created_at, tasks_generated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLock(row rowScanner) (*models.UniversityLock, error) {
	lock := &models.UniversityLock{}
	var generatedAt sql.NullTime
	err := row.Scan(&lock.UserID, &lock.UniversityID, &lock.Status, &lock.StatusChangedAt, &lock.CreatedAt, &generatedAt)
	if err != nil {
		return nil, err
	}
	if generatedAt.Valid {
		lock.TasksGeneratedAt = &generatedAt.Time
	}
	return lock, nil
}

func (r *PostgresLockRepository) ListLocks(ctx context.Context, userID string) ([]*models.UniversityLock, error) {
	query := `
		SELECT ` + lockColumns + `
		FROM counsellor.user_university_locks
		WHERE user_id = $1
		ORDER BY status_changed_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query locks: %w", err)
	}
	defer rows.Close()

	locks := make([]*models.UniversityLock, 0)
	for rows.Next() {
		lock, err := scanLock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lock: %w", err)
		}
		locks = append(locks, lock)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over locks: %w", err)
	}

	return locks, nil
}

func (r *PostgresLockRepository) GetLock(ctx context.Context, userID, universityID string) (*models.UniversityLock, error) {
	query := `
		SELECT ` + lockColumns + `
		FROM counsellor.user_university_locks
		WHERE user_id = $1 AND university_id = $2`

	lock, err := scanLock(r.db.QueryRowContext(ctx, query, userID, universityID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("lock on university %s: %w", universityID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get lock: %w", err)
	}

	return lock, nil
}

func (r *PostgresLockRepository) UpsertShortlisted(ctx context.Context, userID, universityID string) (*models.UniversityLock, error) {
	query := `
		INSERT INTO counsellor.user_university_locks (user_id, university_id, status, status_changed_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, university_id)
		DO UPDATE SET status = EXCLUDED.status, status_changed_at = NOW()
		RETURNING ` + lockColumns

	lock, err := scanLock(r.db.QueryRowContext(ctx, query, userID, universityID, models.LockStatusShortlisted))
	if err != nil {
		return nil, fmt.Errorf("failed to shortlist university: %w", err)
	}

	return lock, nil
}

// InsertShortlistedIfAbsent never touches an existing row, so a locked
// university stays locked.
func (r *PostgresLockRepository) InsertShortlistedIfAbsent(ctx context.Context, userID, universityID string) (*models.UniversityLock, bool, error) {
	query := `
		INSERT INTO counsellor.user_university_locks (user_id, university_id, status, status_changed_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, university_id) DO NOTHING
		RETURNING ` + lockColumns

	lock, err := scanLock(r.db.QueryRowContext(ctx, query, userID, universityID, models.LockStatusShortlisted))
	if err == nil {
		return lock, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to shortlist university: %w", err)
	}

	existing, err := r.GetLock(ctx, userID, universityID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// LockExclusive demotes every other locked row of the user, locks
// universityID and claims checklist generation inside one transaction. The
// advisory lock keyed on the user serialises concurrent lock requests from the
// same user, so at most one of them sees ClaimedTasks.
func (r *PostgresLockRepository) LockExclusive(ctx context.Context, userID, universityID string) (*ExclusiveLock, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin lock transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
		return nil, fmt.Errorf("failed to acquire user lock: %w", err)
	}

	demoteQuery := `
		UPDATE counsellor.user_university_locks
		SET status = $1, status_changed_at = NOW()
		WHERE user_id = $2 AND status = $3 AND university_id <> $4
		RETURNING university_id`

	rows, err := tx.QueryContext(ctx, demoteQuery, models.LockStatusShortlisted, userID, models.LockStatusLocked, universityID)
	if err != nil {
		return nil, fmt.Errorf("failed to demote locked universities: %w", err)
	}
	demoted := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan demoted university: %w", err)
		}
		demoted = append(demoted, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating over demoted universities: %w", err)
	}
	rows.Close()

	upsertQuery := `
		INSERT INTO counsellor.user_university_locks (user_id, university_id, status, status_changed_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, university_id)
		DO UPDATE SET status = EXCLUDED.status, status_changed_at = NOW()
		RETURNING ` + lockColumns

	lock, err := scanLock(tx.QueryRowContext(ctx, upsertQuery, userID, universityID, models.LockStatusLocked))
	if err != nil {
		return nil, fmt.Errorf("failed to lock university: %w", err)
	}

	// Generated tasks that outlived their lock row (remove keeps tasks)
	// block a new claim.
	claimQuery := `
		UPDATE counsellor.user_university_locks
		SET tasks_generated_at = NOW()
		WHERE user_id = $1 AND university_id = $2 AND tasks_generated_at IS NULL
		AND NOT EXISTS (
			SELECT 1 FROM counsellor.tasks
			WHERE user_id = $1 AND university_id = $2 AND ai_generated = TRUE
		)
		RETURNING tasks_generated_at`

	claimed := true
	var generatedAt time.Time
	if err := tx.QueryRowContext(ctx, claimQuery, userID, universityID).Scan(&generatedAt); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to claim task generation: %w", err)
		}
		claimed = false
	} else {
		lock.TasksGeneratedAt = &generatedAt
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit lock transaction: %w", err)
	}

	return &ExclusiveLock{Lock: lock, Demoted: demoted, ClaimedTasks: claimed}, nil
}

// SetStatus clears the generation claim whenever the row leaves the locked
// state, so the next lock generates a fresh checklist.
func (r *PostgresLockRepository) SetStatus(ctx context.Context, userID, universityID, status string) (*models.UniversityLock, error) {
	query := `
		UPDATE counsellor.user_university_locks
		SET status = $1, status_changed_at = NOW(),
			tasks_generated_at = CASE WHEN $1 = 'locked' THEN tasks_generated_at ELSE NULL END
		WHERE user_id = $2 AND university_id = $3
		RETURNING ` + lockColumns

	lock, err := scanLock(r.db.QueryRowContext(ctx, query, status, userID, universityID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("lock on university %s: %w", universityID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update lock status: %w", err)
	}

	return lock, nil
}

func (r *PostgresLockRepository) DeleteLock(ctx context.Context, userID, universityID string) error {
	query := `DELETE FROM counsellor.user_university_locks WHERE user_id = $1 AND university_id = $2`

	result, err := r.db.ExecContext(ctx, query, userID, universityID)
	if err != nil {
		return fmt.Errorf("failed to delete lock: %w", err)
	}

	return expectOneRow(result, fmt.Sprintf("lock on university %s", universityID))
}

func (r *PostgresLockRepository) Close() error {
	return r.db.Close()
}
