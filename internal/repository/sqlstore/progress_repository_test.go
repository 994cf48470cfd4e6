package sqlstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/vytor/learner/internal/db"
	"github.com/vytor/learner/internal/models"
	"github.com/vytor/learner/internal/repository"
	"github.com/vytor/learner/internal/repository/sqlstore"
	"github.com/vytor/learner/internal/testutil"
)

type ProgressRepositorySuite struct {
	suite.Suite
	db   *db.DB
	repo repository.ProgressRepository
	user models.User
}

func (s *ProgressRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = sqlstore.NewProgressRepository(s.db)
	s.user = testutil.SeedUser(s.T(), s.db)
}

func (s *ProgressRepositorySuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *ProgressRepositorySuite) newProgress(topicID uuid.UUID, nextReview *time.Time) models.TopicProgress {
	now := time.Now().UTC().Truncate(time.Second)
	return models.TopicProgress{
		ID:               uuid.New(),
		UserID:           s.user.ID,
		TopicID:          topicID,
		ProficiencyLevel: 0.5,
		EaseFactor:       2.5,
		IntervalDays:     1,
		LastPracticed:    &now,
		NextReview:       nextReview,
		PracticeCount:    1,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (s *ProgressRepositorySuite) TestInsertAndGet() {
	ctx := context.Background()
	topic := testutil.SeedTopic(s.T(), s.db, "algebra")
	next := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	p := s.newProgress(topic.ID, &next)

	s.Require().NoError(s.repo.Insert(ctx, p))

	got, err := s.repo.Get(ctx, s.user.ID, topic.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(p.ID, got.ID)
	s.InDelta(0.5, got.ProficiencyLevel, 1e-9)
	s.Equal(int64(1), got.Version)
	s.Require().NotNil(got.NextReview)
	s.True(next.Equal(*got.NextReview))
}

func (s *ProgressRepositorySuite) TestGet_Missing() {
	got, err := s.repo.Get(context.Background(), s.user.ID, uuid.New())
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *ProgressRepositorySuite) TestInsert_DuplicatePairConflicts() {
	ctx := context.Background()
	topic := testutil.SeedTopic(s.T(), s.db, "algebra")

	s.Require().NoError(s.repo.Insert(ctx, s.newProgress(topic.ID, nil)))
	err := s.repo.Insert(ctx, s.newProgress(topic.ID, nil))
	s.ErrorIs(err, repository.ErrConflict)
}

func (s *ProgressRepositorySuite) TestUpdate_CompareAndSwap() {
	ctx := context.Background()
	topic := testutil.SeedTopic(s.T(), s.db, "algebra")
	p := s.newProgress(topic.ID, nil)
	s.Require().NoError(s.repo.Insert(ctx, p))

	updated := p
	updated.EaseFactor = 2.6
	updated.IntervalDays = 3
	updated.Version = 2
	s.Require().NoError(s.repo.Update(ctx, updated, 1))

	// A writer holding the old version loses.
	stale := p
	stale.EaseFactor = 1.3
	stale.Version = 2
	s.ErrorIs(s.repo.Update(ctx, stale, 1), repository.ErrVersionConflict)

	got, err := s.repo.Get(ctx, s.user.ID, topic.ID)
	s.Require().NoError(err)
	s.InDelta(2.6, got.EaseFactor, 1e-9)
	s.Equal(3, got.IntervalDays)
	s.Equal(int64(2), got.Version)
}

func (s *ProgressRepositorySuite) TestDueForReview_OrderedAndLimited() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	var due []uuid.UUID
	for i, offset := range []time.Duration{-1 * time.Hour, -72 * time.Hour, 48 * time.Hour, -24 * time.Hour} {
		topic := testutil.SeedTopic(s.T(), s.db, "topic")
		next := now.Add(offset)
		p := s.newProgress(topic.ID, &next)
		s.Require().NoError(s.repo.Insert(ctx, p), "insert %d", i)
		if offset < 0 {
			due = append(due, topic.ID)
		}
	}
	// Never practiced records are not due.
	s.Require().NoError(s.repo.Insert(ctx, s.newProgress(testutil.SeedTopic(s.T(), s.db, "new").ID, nil)))

	got, err := s.repo.DueForReview(ctx, s.user.ID, now, 0)
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal(due[1], got[0].TopicID) // -72h
	s.Equal(due[2], got[1].TopicID) // -24h
	s.Equal(due[0], got[2].TopicID) // -1h

	limited, err := s.repo.DueForReview(ctx, s.user.ID, now, 2)
	s.Require().NoError(err)
	s.Len(limited, 2)

	counts, err := s.repo.CountDueByUser(ctx, now)
	s.Require().NoError(err)
	s.Require().Len(counts, 1)
	s.Equal(s.user.ID, counts[0].UserID)
	s.Equal(3, counts[0].Due)
}

func (s *ProgressRepositorySuite) TestListByUser() {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.repo.Insert(ctx, s.newProgress(testutil.SeedTopic(s.T(), s.db, "t").ID, nil)))
	}
	other := testutil.SeedUser(s.T(), s.db)
	p := s.newProgress(testutil.SeedTopic(s.T(), s.db, "t").ID, nil)
	p.UserID = other.ID
	s.Require().NoError(s.repo.Insert(ctx, p))

	got, err := s.repo.ListByUser(ctx, s.user.ID)
	s.Require().NoError(err)
	s.Len(got, 3)
}

func (s *ProgressRepositorySuite) TestDeletingUserCascades() {
	ctx := context.Background()
	topic := testutil.SeedTopic(s.T(), s.db, "algebra")
	s.Require().NoError(s.repo.Insert(ctx, s.newProgress(topic.ID, nil)))

	s.Require().NoError(sqlstore.NewUserRepository(s.db).Delete(ctx, s.user.ID))

	got, err := s.repo.Get(ctx, s.user.ID, topic.ID)
	s.Require().NoError(err)
	s.Nil(got)
}

func TestProgressRepositorySuite(t *testing.T) {
	suite.Run(t, new(ProgressRepositorySuite))
}
