package scoresrvc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// HandleLockCutoffSet applies a contest-wide or per-participation cutoff.
func (s *ScoreSrvc) HandleLockCutoffSet(ctx context.Context, ev LockCutoffSet) error {
	switch {
	case ev.ContestID != nil:
		return s.SetContestLockCutoff(ctx, *ev.ContestID, ev.Cutoff)
	case ev.ParticipationID != nil:
		return s.SetParticipationLockCutoff(ctx, *ev.ParticipationID, ev.Cutoff)
	default:
		return fmt.Errorf("lock cutoff event names neither contest nor participation")
	}
}

// SetContestLockCutoff stamps the cutoff onto the contest, its non-virtual
// participations and their submissions in one atomic operation, then fans
// out recompute over every affected participation. Clearing (nil) follows
// the same path because previously-excluded submissions may now count.
func (s *ScoreSrvc) SetContestLockCutoff(ctx context.Context, contestID uuid.UUID, cutoff *time.Time) error {
	affected, err := s.repo.StampContestLock(ctx, contestID, cutoff)
	if err != nil {
		return fmt.Errorf("failed to stamp contest lock: %w", err)
	}
	for _, id := range affected {
		s.dispatcher.MarkDirty(id)
	}
	s.logger.Info("contest lock cutoff set",
		"contest_id", contestID, "cutoff", cutoff, "participations", len(affected))
	return nil
}

func (s *ScoreSrvc) SetParticipationLockCutoff(ctx context.Context, participationID uuid.UUID, cutoff *time.Time) error {
	if err := s.repo.StampParticipationLock(ctx, participationID, cutoff); err != nil {
		return fmt.Errorf("failed to stamp participation lock: %w", err)
	}
	s.dispatcher.MarkDirty(participationID)
	return nil
}
