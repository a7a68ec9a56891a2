package attemptsrvc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// BestAttempt is the materialized "best submission so far" of a contestant
// on a problem within a contest. It exists for resume/display purposes and
// can always be rebuilt from submission history; contest scoring never
// reads it.
type BestAttempt struct {
	ContestantID uuid.UUID
	ProblemID    uuid.UUID
	ContestID    uuid.UUID
	Points       float64
	SourceRef    string
	UpdatedAt    time.Time
}

// AttemptRepo persists best attempts keyed by (contestant, problem,
// contest). Upsert must be atomic per key: it creates a missing record and
// otherwise overwrites only when the new points are greater than or equal
// to the stored ones.
type AttemptRepo interface {
	Upsert(ctx context.Context, attempt BestAttempt) error
	Get(ctx context.Context, contestantID, problemID, contestID uuid.UUID) (BestAttempt, error)
}

type AttemptSrvc struct {
	repo   AttemptRepo
	logger *slog.Logger
}

func NewAttemptSrvc(repo AttemptRepo, logger *slog.Logger) *AttemptSrvc {
	if logger == nil {
		logger = slog.Default()
	}
	return &AttemptSrvc{repo: repo, logger: logger}
}

// RecordAttempt applies the cache update policy: a new graded submission
// replaces the cached one whenever its points are greater than or equal,
// so among equal scores the most recent attempt always wins.
func (s *AttemptSrvc) RecordAttempt(ctx context.Context, contestantID, problemID, contestID uuid.UUID, points float64, sourceRef string, at time.Time) error {
	err := s.repo.Upsert(ctx, BestAttempt{
		ContestantID: contestantID,
		ProblemID:    problemID,
		ContestID:    contestID,
		Points:       points,
		SourceRef:    sourceRef,
		UpdatedAt:    at,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert best attempt: %w", err)
	}
	return nil
}

func (s *AttemptSrvc) GetBestAttempt(ctx context.Context, contestantID, problemID, contestID uuid.UUID) (BestAttempt, error) {
	return s.repo.Get(ctx, contestantID, problemID, contestID)
}
