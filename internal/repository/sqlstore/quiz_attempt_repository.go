package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/vytor/learner/internal/db"
	"github.com/vytor/learner/internal/logger"
	"github.com/vytor/learner/internal/models"
	"github.com/vytor/learner/internal/repository"
)

var quizAttemptColumns = []string{
	"id", "quiz_id", "user_id", "answers", "score", "time_taken_seconds", "topic_ids", "gaps_identified", "attempted_at",
}

type quizAttemptRepository struct {
	db *db.DB
}

// NewQuizAttemptRepository creates a new QuizAttemptRepository implementation
func NewQuizAttemptRepository(database *db.DB) repository.QuizAttemptRepository {
	return &quizAttemptRepository{db: database}
}

func (r *quizAttemptRepository) Insert(ctx context.Context, a models.QuizAttempt) error {
	log := logger.FromContext(ctx).WithPrefix("quiz_attempt_repo")
	log.Debug("inserting quiz attempt: id=%s, quiz_id=%s, score=%.2f", a.ID, a.QuizID, a.Score)

	err := r.insertAttempt(ctx, r.db, a)
	if err != nil && !errors.Is(err, repository.ErrConflict) && !errors.Is(err, repository.ErrNotFound) {
		log.Error("failed to insert quiz attempt: %v", err)
	}
	return err
}

func (r *quizAttemptRepository) Submit(ctx context.Context, a models.QuizAttempt, apply repository.ProgressApplier) error {
	log := logger.FromContext(ctx).WithPrefix("quiz_attempt_repo")
	log.Debug("submitting quiz attempt: id=%s, topics=%d", a.ID, len(a.TopicIDs))

	err := tx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := r.insertAttempt(ctx, tx, a); err != nil {
			return err
		}
		for _, topicID := range a.TopicIDs {
			current, err := getProgress(ctx, tx, r.db.Builder(), a.UserID, topicID)
			if err != nil {
				return err
			}
			next, err := apply(topicID, current)
			if err != nil {
				return err
			}
			if next == nil {
				continue
			}
			if current == nil {
				err = insertProgress(ctx, tx, *next)
				if db.IsUniqueViolation(err) {
					// Another writer created the pair first.
					return repository.ErrVersionConflict
				}
			} else {
				err = updateProgress(ctx, tx, *next, current.Version)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	switch {
	case err == nil:
		log.Debug("quiz attempt submitted: id=%s", a.ID)
	case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrNotFound),
		errors.Is(err, repository.ErrVersionConflict):
		log.Debug("quiz attempt rejected: id=%s, reason=%v", a.ID, err)
	default:
		log.Error("failed to submit quiz attempt: %v", err)
	}
	return err
}

func (r *quizAttemptRepository) insertAttempt(ctx context.Context, e sqlx.ExecerContext, a models.QuizAttempt) error {
	query, args, err := r.db.Builder().Insert("quiz_attempts").
		Columns(quizAttemptColumns...).
		Values(a.ID.String(), a.QuizID.String(), a.UserID.String(), a.Answers, a.Score, a.TimeTakenSeconds,
			a.TopicIDs, a.GapsIdentified, utc(a.AttemptedAt)).
		ToSql()
	if err != nil {
		return err
	}

	_, err = e.ExecContext(ctx, query, args...)
	if db.IsUniqueViolation(err) {
		return repository.ErrConflict
	}
	if db.IsForeignKeyViolation(err) {
		return repository.ErrNotFound
	}
	return err
}

func (r *quizAttemptRepository) Get(ctx context.Context, id uuid.UUID) (*models.QuizAttempt, error) {
	query, args, err := r.db.Builder().Select(quizAttemptColumns...).
		From("quiz_attempts").
		Where(squirrel.Eq{"id": id.String()}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var a models.QuizAttempt
	err = r.db.GetContext(ctx, &a, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		logger.FromContext(ctx).WithPrefix("quiz_attempt_repo").Error("failed to get quiz attempt: %v", err)
		return nil, err
	}
	return &a, nil
}

func (r *quizAttemptRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.QuizAttempt, error) {
	log := logger.FromContext(ctx).WithPrefix("quiz_attempt_repo")
	log.Debug("listing quiz attempts: user_id=%s, limit=%d", userID, limit)

	q := r.db.Builder().Select(quizAttemptColumns...).
		From("quiz_attempts").
		Where(squirrel.Eq{"user_id": userID.String()}).
		OrderBy("attempted_at DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	var out []models.QuizAttempt
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		log.Error("failed to list quiz attempts: %v", err)
		return nil, err
	}
	return out, nil
}
