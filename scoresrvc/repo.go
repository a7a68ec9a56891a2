package scoresrvc

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RecomputeInputs is everything a recompute job reads. A repo gathers it
// inside the same transaction that later persists the result, so a job
// never observes half of one state and half of another.
type RecomputeInputs struct {
	Contest       Contest
	Participation Participation
	Problems      []ContestProblem
	// History holds the participation's graded submissions, unfiltered;
	// the aggregator applies the lock cutoff.
	History []SubmissionRecord
}

// ScoreRepo is the storage contract of the scoring engine. Implemented by
// pgScoreRepo for production and inMemScoreRepo for tests and local runs.
type ScoreRepo interface {
	StoreContest(ctx context.Context, contest Contest) error
	GetContest(ctx context.Context, id uuid.UUID) (Contest, error)

	PutContestProblem(ctx context.Context, cp ContestProblem) error
	// DeleteContestProblem removes the problem from the contest; its
	// scoring contribution disappears on the next recompute.
	DeleteContestProblem(ctx context.Context, id uuid.UUID) error
	ListContestProblems(ctx context.Context, contestID uuid.UUID) ([]ContestProblem, error)

	StoreParticipation(ctx context.Context, part Participation) error
	GetParticipation(ctx context.Context, id uuid.UUID) (Participation, error)
	ListParticipations(ctx context.Context, contestID uuid.UUID) ([]Participation, error)

	StoreSubmission(ctx context.Context, sub SubmissionRecord) error
	GetSubmission(ctx context.Context, id uuid.UUID) (SubmissionRecord, error)
	DeleteSubmission(ctx context.Context, id uuid.UUID) error

	// Recompute runs fn against a transactionally-consistent snapshot of
	// the participation's inputs and persists the returned result before
	// the transaction commits. On error nothing is written.
	Recompute(ctx context.Context, participationID uuid.UUID, fn func(in RecomputeInputs) (Result, error)) error

	// StampContestLock atomically persists the cutoff on the contest, its
	// non-virtual participations and their submissions. Returns the ids of
	// every participation whose result must be recomputed.
	StampContestLock(ctx context.Context, contestID uuid.UUID, cutoff *time.Time) ([]uuid.UUID, error)

	// StampParticipationLock is the per-participation variant.
	StampParticipationLock(ctx context.Context, participationID uuid.UUID, cutoff *time.Time) error
}
