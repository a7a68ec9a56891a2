package scoresrvc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// aggregator re-derives one participation's result from its current
// submission history and the contest's active format strategy.
type aggregator struct {
	repo    ScoreRepo
	formats *FormatRegistry
	logger  *slog.Logger
}

func newAggregator(repo ScoreRepo, formats *FormatRegistry, logger *slog.Logger) *aggregator {
	return &aggregator{repo: repo, formats: formats, logger: logger}
}

// Recompute is deterministic and idempotent: with an unchanged history and
// problem set it writes byte-identical results on every invocation.
func (a *aggregator) Recompute(ctx context.Context, participationID uuid.UUID) error {
	return a.repo.Recompute(ctx, participationID, func(in RecomputeInputs) (Result, error) {
		strategy, err := a.formats.Get(in.Contest.FormatID)
		if err != nil {
			return Result{}, fmt.Errorf("contest %s: %w", in.Contest.ID, err)
		}

		history := filterHistory(in, a.logger)
		return strategy.ComputeParticipation(in.Contest, in.Participation, in.Problems, history), nil
	})
}

// filterHistory drops submissions past the applicable lock cutoff and logs
// clock-skew anomalies (submissions timestamped before the participation
// start, which the strategies clamp to zero solve time).
func filterHistory(in RecomputeInputs, logger *slog.Logger) []SubmissionRecord {
	cutoff := effectiveCutoff(in)
	history := make([]SubmissionRecord, 0, len(in.History))
	for _, sub := range in.History {
		if cutoff != nil && sub.SubmittedAt.After(*cutoff) {
			continue
		}
		if sub.SubmittedAt.Before(in.Participation.StartedAt) {
			logger.Warn("submission timestamped before participation start",
				"submission_id", sub.ID,
				"participation_id", in.Participation.ID,
				"submitted_at", sub.SubmittedAt,
				"started_at", in.Participation.StartedAt)
		}
		history = append(history, sub)
	}
	return history
}

// effectiveCutoff resolves the applicable lock cutoff. The stamped
// per-participation value always wins. Contest-level cutoffs (the
// contest-wide lock, then the contest end) govern the live run only:
// virtual re-attempts happen after contest end and are never stamped by a
// contest-wide lock, so for them no contest-level fallback applies. Nil
// means no cutoff.
func effectiveCutoff(in RecomputeInputs) *time.Time {
	if in.Participation.LockedAfter != nil {
		return in.Participation.LockedAfter
	}
	if in.Participation.Virtual != 0 {
		return nil
	}
	if in.Contest.LockedAfter != nil {
		return in.Contest.LockedAfter
	}
	return in.Contest.EndTime
}
