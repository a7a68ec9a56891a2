package scoresrvc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// AttemptRecorder is the best-attempt cache facade. The cache is a
// best-effort materialized view; a failure to update it never fails the
// scoring path.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, contestantID, problemID, contestID uuid.UUID, points float64, sourceRef string, at time.Time) error
}

// ScoreSrvc is the contest scoring and ranking recomputation engine. It
// consumes judging and admin events, keeps every participation's derived
// result current and serves ranking queries.
type ScoreSrvc struct {
	repo       ScoreRepo
	formats    *FormatRegistry
	aggregator *aggregator
	dispatcher *dispatcher
	attempts   AttemptRecorder
	logger     *slog.Logger
}

func NewScoreSrvc(repo ScoreRepo, attempts AttemptRecorder, workers int, logger *slog.Logger) *ScoreSrvc {
	if logger == nil {
		logger = slog.Default()
	}
	formats := NewFormatRegistry()
	agg := newAggregator(repo, formats, logger)
	srvc := &ScoreSrvc{
		repo:       repo,
		formats:    formats,
		aggregator: agg,
		attempts:   attempts,
		logger:     logger,
	}
	srvc.dispatcher = newDispatcher(workers, agg.Recompute, logger)
	return srvc
}

// Close drains the recompute queue and stops the worker pool.
func (s *ScoreSrvc) Close() {
	s.dispatcher.Close()
}

// WaitIdle blocks until every enqueued recompute has finished. Rankings
// read before a triggered rescore has drained are stale.
func (s *ScoreSrvc) WaitIdle() {
	s.dispatcher.WaitIdle()
}

// Handle routes a typed trigger event to its handler.
func (s *ScoreSrvc) Handle(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case SubmissionGraded:
		return s.HandleSubmissionGraded(ctx, e)
	case SubmissionDeleted:
		return s.HandleSubmissionDeleted(ctx, e)
	case SubmissionUnlinked:
		return s.HandleSubmissionUnlinked(ctx, e)
	case ParticipationDisqualified:
		return s.HandleDisqualified(ctx, e)
	case LockCutoffSet:
		return s.HandleLockCutoffSet(ctx, e)
	case ContestFormatChanged:
		return s.SetContestFormat(ctx, e.ContestID, e.FormatID, e.Config)
	case RejudgeRequested:
		return s.HandleRejudge(ctx, e)
	default:
		return fmt.Errorf("unhandled event type %q", ev.Type())
	}
}

// HandleSubmissionGraded persists the judged state, feeds the best-attempt
// cache and marks the owning participation dirty. Re-delivery of the same
// grading is harmless: the stored record and the recompute are idempotent.
func (s *ScoreSrvc) HandleSubmissionGraded(ctx context.Context, ev SubmissionGraded) error {
	part, err := s.repo.GetParticipation(ctx, ev.ParticipationID)
	if err != nil {
		return fmt.Errorf("failed to load participation: %w", err)
	}

	sub := SubmissionRecord{
		ID:              ev.SubmissionID,
		ParticipationID: ev.ParticipationID,
		ProblemID:       ev.ProblemID,
		Points:          ev.Points,
		SubmittedAt:     ev.SubmittedAt,
		Judged:          true,
		LockedAfter:     part.LockedAfter,
		SourceRef:       ev.SourceRef,
	}
	if err := s.repo.StoreSubmission(ctx, sub); err != nil {
		return fmt.Errorf("failed to store graded submission: %w", err)
	}

	if s.attempts != nil {
		err := s.attempts.RecordAttempt(ctx,
			part.ContestantID, ev.ProblemID, part.ContestID,
			ev.Points, ev.SourceRef, ev.SubmittedAt)
		if err != nil {
			s.logger.Warn("failed to update best-attempt cache",
				"submission_id", ev.SubmissionID, "error", err)
		}
	}

	s.dispatcher.MarkDirty(ev.ParticipationID)
	return nil
}

func (s *ScoreSrvc) HandleSubmissionDeleted(ctx context.Context, ev SubmissionDeleted) error {
	if err := s.repo.DeleteSubmission(ctx, ev.SubmissionID); err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}
	s.dispatcher.MarkDirty(ev.ParticipationID)
	return nil
}

func (s *ScoreSrvc) HandleSubmissionUnlinked(ctx context.Context, ev SubmissionUnlinked) error {
	sub, err := s.repo.GetSubmission(ctx, ev.SubmissionID)
	if err != nil {
		return fmt.Errorf("failed to load submission: %w", err)
	}
	if err := s.repo.DeleteSubmission(ctx, ev.SubmissionID); err != nil {
		return fmt.Errorf("failed to unlink submission: %w", err)
	}
	s.dispatcher.MarkDirty(sub.ParticipationID)
	return nil
}

func (s *ScoreSrvc) HandleDisqualified(ctx context.Context, ev ParticipationDisqualified) error {
	part, err := s.repo.GetParticipation(ctx, ev.ParticipationID)
	if err != nil {
		return fmt.Errorf("failed to load participation: %w", err)
	}
	part.Disqualified = ev.Disqualified
	if err := s.repo.StoreParticipation(ctx, part); err != nil {
		return fmt.Errorf("failed to store participation: %w", err)
	}
	s.dispatcher.MarkDirty(ev.ParticipationID)
	return nil
}

// HandleRejudge fans out one recompute per participation owning an
// affected submission. The judging subsystem delivers the new verdicts as
// separate SubmissionGraded events.
func (s *ScoreSrvc) HandleRejudge(ctx context.Context, ev RejudgeRequested) error {
	seen := map[uuid.UUID]bool{}
	for _, id := range ev.SubmissionIDs {
		sub, err := s.repo.GetSubmission(ctx, id)
		if err != nil {
			s.logger.Warn("rejudge requested for unknown submission",
				"submission_id", id, "error", err)
			continue
		}
		if !seen[sub.ParticipationID] {
			seen[sub.ParticipationID] = true
			s.dispatcher.MarkDirty(sub.ParticipationID)
		}
	}
	return nil
}

// SetContestFormat validates the strategy config before anything is
// persisted; on rejection the contest keeps its previous valid format.
// Acceptance invalidates every participation's breakdown, so the whole
// contest is fanned out for rescoring.
func (s *ScoreSrvc) SetContestFormat(ctx context.Context, contestID uuid.UUID, formatID string, config map[string]any) error {
	if err := s.formats.Validate(formatID, config); err != nil {
		return ErrInvalidFormatConfig().SetDebug(err)
	}

	contest, err := s.repo.GetContest(ctx, contestID)
	if err != nil {
		return fmt.Errorf("failed to load contest: %w", err)
	}
	contest.FormatID = formatID
	contest.FormatConfig = config
	if err := s.repo.StoreContest(ctx, contest); err != nil {
		return fmt.Errorf("failed to store contest: %w", err)
	}

	return s.RescoreContest(ctx, contestID)
}

// RescoreContest marks every participation of the contest dirty. Jobs are
// independent and idempotent, so a rescore superseded by a newer change
// simply gets one more pass.
func (s *ScoreSrvc) RescoreContest(ctx context.Context, contestID uuid.UUID) error {
	parts, err := s.repo.ListParticipations(ctx, contestID)
	if err != nil {
		return fmt.Errorf("failed to list participations: %w", err)
	}
	for _, part := range parts {
		s.dispatcher.MarkDirty(part.ID)
	}
	s.logger.Info("contest rescore enqueued",
		"contest_id", contestID, "participations", len(parts))
	return nil
}

func (s *ScoreSrvc) SetContestVisibility(ctx context.Context, contestID uuid.UUID, visible bool) error {
	contest, err := s.repo.GetContest(ctx, contestID)
	if err != nil {
		return fmt.Errorf("failed to load contest: %w", err)
	}
	contest.Visible = visible
	if err := s.repo.StoreContest(ctx, contest); err != nil {
		return fmt.Errorf("failed to store contest: %w", err)
	}
	return nil
}

// CreateContest validates the initial format before persisting.
func (s *ScoreSrvc) CreateContest(ctx context.Context, contest Contest) error {
	if err := s.formats.Validate(contest.FormatID, contest.FormatConfig); err != nil {
		return ErrInvalidFormatConfig().SetDebug(err)
	}
	return s.repo.StoreContest(ctx, contest)
}

// PutContestProblem attaches or updates a problem and rescoring follows,
// since point values and the problem set shape every breakdown.
func (s *ScoreSrvc) PutContestProblem(ctx context.Context, cp ContestProblem) error {
	if err := s.repo.PutContestProblem(ctx, cp); err != nil {
		return err
	}
	return s.RescoreContest(ctx, cp.ContestID)
}

// RemoveContestProblem detaches a problem; the next recompute drops its
// entry from every breakdown.
func (s *ScoreSrvc) RemoveContestProblem(ctx context.Context, id uuid.UUID, contestID uuid.UUID) error {
	if err := s.repo.DeleteContestProblem(ctx, id); err != nil {
		return err
	}
	return s.RescoreContest(ctx, contestID)
}

// JoinContest creates a participation with zero score and enqueues the
// initial recompute that materializes its zero-valued breakdown cells.
func (s *ScoreSrvc) JoinContest(ctx context.Context, part Participation) error {
	if part.Breakdown == nil {
		part.Breakdown = map[uuid.UUID]ProblemCell{}
	}
	if err := s.repo.StoreParticipation(ctx, part); err != nil {
		return fmt.Errorf("failed to store participation: %w", err)
	}
	s.dispatcher.MarkDirty(part.ID)
	return nil
}

func (s *ScoreSrvc) GetParticipationResult(ctx context.Context, participationID uuid.UUID) (Participation, error) {
	part, err := s.repo.GetParticipation(ctx, participationID)
	if err != nil {
		return Participation{}, ErrParticipationNotFound().SetDebug(err)
	}
	return part, nil
}

// GetProblemCell returns one scoreboard cell. Problems without a breakdown
// entry yet (join recompute still in flight) read as all zeroes.
func (s *ScoreSrvc) GetProblemCell(ctx context.Context, participationID, problemID uuid.UUID) (ProblemCell, error) {
	part, err := s.repo.GetParticipation(ctx, participationID)
	if err != nil {
		return ProblemCell{}, ErrParticipationNotFound().SetDebug(err)
	}
	return part.Breakdown[problemID], nil
}

func (s *ScoreSrvc) GetContestRanking(ctx context.Context, contestID uuid.UUID) ([]Participation, error) {
	if _, err := s.repo.GetContest(ctx, contestID); err != nil {
		return nil, ErrContestNotFound().SetDebug(err)
	}
	parts, err := s.repo.ListParticipations(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participations: %w", err)
	}
	sortRanking(parts)
	return parts, nil
}

// Formats exposes the registry for config validation at the API boundary.
func (s *ScoreSrvc) Formats() *FormatRegistry {
	return s.formats
}
