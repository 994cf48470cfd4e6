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
)

var progressColumns = []string{
	"id", "user_id", "topic_id", "proficiency_level", "ease_factor", "interval_days",
	"last_practiced", "next_review", "practice_count", "version", "created_at", "updated_at",
}

type progressRepository struct {
	db *db.DB
}

// NewProgressRepository creates a new ProgressRepository implementation
func NewProgressRepository(database *db.DB) repository.ProgressRepository {
	return &progressRepository{db: database}
}

func (r *progressRepository) Get(ctx context.Context, userID, topicID uuid.UUID) (*models.TopicProgress, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_repo")
	log.Debug("getting progress: user_id=%s, topic_id=%s", userID, topicID)

	p, err := getProgress(ctx, r.db, r.db.Builder(), userID, topicID)
	if err != nil {
		log.Error("failed to get progress: %v", err)
		return nil, err
	}
	if p == nil {
		log.Debug("no progress yet")
	}
	return p, nil
}

func (r *progressRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.TopicProgress, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_repo")
	log.Debug("listing progress: user_id=%s", userID)

	query, args, err := r.db.Builder().Select(progressColumns...).
		From("topic_progress").
		Where(squirrel.Eq{"user_id": userID.String()}).
		OrderBy("proficiency_level ASC", "topic_id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	var out []models.TopicProgress
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		log.Error("failed to list progress: %v", err)
		return nil, err
	}
	log.Debug("found %d progress records", len(out))
	return out, nil
}

func (r *progressRepository) DueForReview(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]models.TopicProgress, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_repo")
	log.Debug("listing due reviews: user_id=%s, limit=%d", userID, limit)

	q := r.db.Builder().Select(progressColumns...).
		From("topic_progress").
		Where(squirrel.Eq{"user_id": userID.String()}).
		Where(squirrel.NotEq{"next_review": nil}).
		Where(squirrel.LtOrEq{"next_review": utc(now)}).
		OrderBy("next_review ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	var out []models.TopicProgress
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		log.Error("failed to list due reviews: %v", err)
		return nil, err
	}
	log.Debug("found %d due reviews", len(out))
	return out, nil
}

func (r *progressRepository) CountDueByUser(ctx context.Context, now time.Time) ([]models.DueCount, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_repo")

	query, args, err := r.db.Builder().Select("user_id", "COUNT(*) AS due").
		From("topic_progress").
		Where(squirrel.NotEq{"next_review": nil}).
		Where(squirrel.LtOrEq{"next_review": utc(now)}).
		GroupBy("user_id").
		OrderBy("user_id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var out []models.DueCount
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		log.Error("failed to count due reviews: %v", err)
		return nil, err
	}
	return out, nil
}

func (r *progressRepository) Insert(ctx context.Context, p models.TopicProgress) error {
	log := logger.FromContext(ctx).WithPrefix("progress_repo")
	log.Debug("inserting progress: user_id=%s, topic_id=%s", p.UserID, p.TopicID)

	err := insertProgress(ctx, r.db, p)
	if db.IsUniqueViolation(err) {
		log.Debug("progress already exists for pair")
		return repository.ErrConflict
	}
	if err != nil {
		log.Error("failed to insert progress: %v", err)
	}
	return err
}

func (r *progressRepository) Update(ctx context.Context, p models.TopicProgress, expectedVersion int64) error {
	log := logger.FromContext(ctx).WithPrefix("progress_repo")
	log.Debug("updating progress: id=%s, expected_version=%d", p.ID, expectedVersion)

	err := updateProgress(ctx, r.db, p, expectedVersion)
	if errors.Is(err, repository.ErrVersionConflict) {
		log.Debug("version conflict: expected_version=%d", expectedVersion)
		return err
	}
	if err != nil {
		log.Error("failed to update progress: %v", err)
	}
	return err
}

// The helpers below run against either the pool or an open transaction.

func getProgress(ctx context.Context, q sqlx.QueryerContext, b squirrel.StatementBuilderType, userID, topicID uuid.UUID) (*models.TopicProgress, error) {
	query, args, err := b.Select(progressColumns...).
		From("topic_progress").
		Where(squirrel.Eq{"user_id": userID.String(), "topic_id": topicID.String()}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var p models.TopicProgress
	err = sqlx.GetContext(ctx, q, &p, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func insertProgress(ctx context.Context, e sqlx.ExtContext, p models.TopicProgress) error {
	_, err := e.ExecContext(ctx, e.Rebind(`
INSERT INTO topic_progress (id, user_id, topic_id, proficiency_level, ease_factor, interval_days,
                            last_practiced, next_review, practice_count, version, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`), p.ID, p.UserID, p.TopicID, p.ProficiencyLevel, p.EaseFactor, p.IntervalDays,
		utcPtr(p.LastPracticed), utcPtr(p.NextReview), p.PracticeCount, p.Version, utc(p.CreatedAt), utc(p.UpdatedAt))
	return err
}

// updateProgress fails with ErrVersionConflict when the stored version is not expectedVersion.
func updateProgress(ctx context.Context, e sqlx.ExtContext, p models.TopicProgress, expectedVersion int64) error {
	res, err := e.ExecContext(ctx, e.Rebind(`
UPDATE topic_progress
SET proficiency_level = ?, ease_factor = ?, interval_days = ?, last_practiced = ?, next_review = ?,
    practice_count = ?, version = ?, updated_at = ?
WHERE user_id = ? AND topic_id = ? AND version = ?
`), p.ProficiencyLevel, p.EaseFactor, p.IntervalDays, utcPtr(p.LastPracticed), utcPtr(p.NextReview),
		p.PracticeCount, p.Version, utc(p.UpdatedAt), p.UserID, p.TopicID, expectedVersion)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrVersionConflict
	}
	return nil
}
