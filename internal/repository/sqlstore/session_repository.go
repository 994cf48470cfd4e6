package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/vytor/learner/internal/db"
	"github.com/vytor/learner/internal/logger"
	"github.com/vytor/learner/internal/models"
	"github.com/vytor/learner/internal/repository"
	"github.com/vytor/learner/internal/session"
)

const sessionColumns = `id, user_id, session_type, status, planned_duration_minutes, actual_duration_minutes,
       started_at, ended_at, abandon_reason, created_at`

const activityColumns = `id, session_id, activity_type, topic_id, content_id, started_at, ended_at, performance_data`

type sessionRepository struct {
	db *db.DB
}

// NewSessionRepository creates a new SessionRepository implementation
func NewSessionRepository(database *db.DB) repository.SessionRepository {
	return &sessionRepository{db: database}
}

func (r *sessionRepository) Start(ctx context.Context, s models.Session) (*models.Session, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("starting session: id=%s, user_id=%s", s.ID, s.UserID)

	var started models.Session
	err := tx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
INSERT INTO sessions (id, user_id, session_type, status, planned_duration_minutes, started_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`), s.ID, s.UserID, s.Type, models.SessionPlanned, s.PlannedDurationMinutes, utc(s.StartedAt), utc(s.CreatedAt)); err != nil {
			return err
		}

		// The partial unique index on in-progress sessions rejects a second active session here.
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
UPDATE sessions SET status = ?, started_at = ?
WHERE id = ? AND status = ?
`), models.SessionInProgress, utc(s.StartedAt), s.ID, models.SessionPlanned); err != nil {
			return err
		}

		return tx.GetContext(ctx, &started, tx.Rebind(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`), s.ID)
	})
	if db.IsUniqueViolation(err) {
		log.Debug("user already has an in-progress session: user_id=%s", s.UserID)
		return nil, repository.ErrConflict
	}
	if err != nil {
		log.Error("failed to start session: %v", err)
		return nil, err
	}
	return &started, nil
}

func (r *sessionRepository) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("getting session: id=%s", id)

	var s models.Session
	err := r.db.GetContext(ctx, &s, r.db.Rebind(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("session not found: id=%s", id)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get session: %v", err)
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepository) GetActive(ctx context.Context, userID uuid.UUID) (*models.Session, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")

	var s models.Session
	err := r.db.GetContext(ctx, &s, r.db.Rebind(`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? AND status = ?`),
		userID, models.SessionInProgress)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get active session: %v", err)
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepository) History(ctx context.Context, filter models.HistoryFilter) ([]models.Session, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("listing session history: user_id=%s, limit=%d, include_abandoned=%t",
		filter.UserID, filter.Limit, filter.IncludeAbandoned)

	statuses := []string{string(models.SessionCompleted)}
	if filter.IncludeAbandoned {
		statuses = append(statuses, string(models.SessionAbandoned))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}

	query, args, err := r.db.Builder().
		Select("id", "user_id", "session_type", "status", "planned_duration_minutes", "actual_duration_minutes",
			"started_at", "ended_at", "abandon_reason", "created_at").
		From("sessions").
		Where(squirrel.Eq{"user_id": filter.UserID.String()}).
		Where(squirrel.Eq{"status": statuses}).
		OrderBy("started_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		log.Error("failed to list session history: %v", err)
		return nil, err
	}
	log.Debug("found %d sessions", len(sessions))
	return sessions, nil
}

func (r *sessionRepository) Finish(ctx context.Context, req models.FinishRequest, advance repository.StreakAdvancer) (*models.Session, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("finishing session: id=%s, status=%s", req.SessionID, req.Status)

	endedAt := utc(req.EndedAt)
	var finished models.Session
	err := tx(ctx, r.db, func(tx *sqlx.Tx) error {
		var current models.Session
		err := tx.GetContext(ctx, &current, tx.Rebind(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`), req.SessionID)
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		if err != nil {
			return err
		}
		if !session.CanTransition(current.Status, req.Status) {
			return repository.ErrInvalidTransition
		}

		minutes := int(endedAt.Sub(current.StartedAt).Minutes())
		if minutes < 0 {
			minutes = 0
		}

		// Conditional on the status so only one of two racing finishes succeeds.
		res, err := tx.ExecContext(ctx, tx.Rebind(`
UPDATE sessions
SET status = ?, ended_at = ?, actual_duration_minutes = ?, abandon_reason = ?
WHERE id = ? AND status = ?
`), req.Status, endedAt, minutes, req.AbandonReason, req.SessionID, models.SessionInProgress)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return repository.ErrInvalidTransition
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`
UPDATE session_activities SET ended_at = ?
WHERE session_id = ? AND ended_at IS NULL
`), endedAt, req.SessionID); err != nil {
			return err
		}

		if req.Status == models.SessionCompleted && advance != nil {
			if err := advanceStreak(ctx, tx, current.UserID, endedAt, advance); err != nil {
				return err
			}
		}

		return tx.GetContext(ctx, &finished, tx.Rebind(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`), req.SessionID)
	})
	if err != nil {
		if !errors.Is(err, repository.ErrInvalidTransition) && !errors.Is(err, repository.ErrNotFound) {
			log.Error("failed to finish session: %v", err)
		}
		return nil, err
	}
	log.Debug("session finished: id=%s, status=%s", finished.ID, finished.Status)
	return &finished, nil
}

func advanceStreak(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, now time.Time, advance repository.StreakAdvancer) error {
	streak := models.Streak{UserID: userID}
	err := tx.GetContext(ctx, &streak, tx.Rebind(`
SELECT user_id, current_streak, longest_streak, last_session_date, total_sessions, updated_at
FROM streaks WHERE user_id = ?
`), userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	next := advance(streak)
	_, err = tx.ExecContext(ctx, tx.Rebind(`
INSERT INTO streaks (user_id, current_streak, longest_streak, last_session_date, total_sessions, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
    current_streak = excluded.current_streak,
    longest_streak = excluded.longest_streak,
    last_session_date = excluded.last_session_date,
    total_sessions = excluded.total_sessions,
    updated_at = excluded.updated_at
`), userID, next.CurrentStreak, next.LongestStreak, utcPtr(next.LastSessionDate), next.TotalSessions, now)
	return err
}

func (r *sessionRepository) Activities(ctx context.Context, sessionID uuid.UUID) ([]models.SessionActivity, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("listing activities: session_id=%s", sessionID)

	var out []models.SessionActivity
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
SELECT `+activityColumns+`
FROM session_activities
WHERE session_id = ?
ORDER BY started_at ASC, id ASC
`), sessionID); err != nil {
		log.Error("failed to list activities: %v", err)
		return nil, err
	}
	return out, nil
}

func (r *sessionRepository) GetActivity(ctx context.Context, sessionID, activityID uuid.UUID) (*models.SessionActivity, error) {
	var a models.SessionActivity
	err := r.db.GetContext(ctx, &a, r.db.Rebind(`SELECT `+activityColumns+` FROM session_activities WHERE id = ? AND session_id = ?`),
		activityID, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		logger.FromContext(ctx).WithPrefix("session_repo").Error("failed to get activity: %v", err)
		return nil, err
	}
	return &a, nil
}

// lockInProgress touches the session row so concurrent finishes wait for this transaction.
func lockInProgress(ctx context.Context, tx *sqlx.Tx, sessionID uuid.UUID) error {
	res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE sessions SET status = status WHERE id = ? AND status = ?`),
		sessionID, models.SessionInProgress)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrInvalidTransition
	}
	return nil
}

func (r *sessionRepository) OpenActivity(ctx context.Context, a models.SessionActivity) error {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("opening activity: session_id=%s, type=%s", a.SessionID, a.ActivityType)

	err := tx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockInProgress(ctx, tx, a.SessionID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
UPDATE session_activities SET ended_at = ?
WHERE session_id = ? AND ended_at IS NULL
`), utc(a.StartedAt), a.SessionID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(`
INSERT INTO session_activities (id, session_id, activity_type, topic_id, content_id, started_at, ended_at, performance_data)
VALUES (?, ?, ?, ?, ?, ?, NULL, ?)
`), a.ID, a.SessionID, a.ActivityType, a.TopicID, a.ContentID, utc(a.StartedAt), a.PerformanceData)
		return err
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrInvalidTransition):
		return err
	case db.IsUniqueViolation(err):
		return repository.ErrConflict
	case db.IsForeignKeyViolation(err):
		return repository.ErrNotFound
	default:
		log.Error("failed to open activity: %v", err)
		return err
	}
}

func (r *sessionRepository) CompleteActivity(ctx context.Context, sessionID, activityID uuid.UUID, performance models.PerformanceData, endedAt time.Time) (*models.SessionActivity, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("completing activity: session_id=%s, activity_id=%s", sessionID, activityID)

	var a models.SessionActivity
	err := tx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockInProgress(ctx, tx, sessionID); err != nil {
			return err
		}
		err := tx.GetContext(ctx, &a, tx.Rebind(`SELECT `+activityColumns+` FROM session_activities WHERE id = ? AND session_id = ?`),
			activityID, sessionID)
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		if err != nil {
			return err
		}
		if a.EndedAt != nil {
			return repository.ErrInvalidTransition
		}

		a.PerformanceData = a.PerformanceData.Merge(performance)
		end := utc(endedAt)
		a.EndedAt = &end
		_, err = tx.ExecContext(ctx, tx.Rebind(`
UPDATE session_activities SET ended_at = ?, performance_data = ?
WHERE id = ? AND ended_at IS NULL
`), end, a.PerformanceData, a.ID)
		return err
	})
	if err != nil {
		if !errors.Is(err, repository.ErrInvalidTransition) && !errors.Is(err, repository.ErrNotFound) {
			log.Error("failed to complete activity: %v", err)
		}
		return nil, err
	}
	return &a, nil
}

func (r *sessionRepository) GetStreak(ctx context.Context, userID uuid.UUID) (*models.Streak, error) {
	var s models.Streak
	err := r.db.GetContext(ctx, &s, r.db.Rebind(`
SELECT user_id, current_streak, longest_streak, last_session_date, total_sessions, updated_at
FROM streaks WHERE user_id = ?
`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		logger.FromContext(ctx).WithPrefix("session_repo").Error("failed to get streak: %v", err)
		return nil, err
	}
	return &s, nil
}
