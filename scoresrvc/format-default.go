package scoresrvc

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// DefaultFormat scores each problem by the maximum points among its graded
// submissions. Solve time is the earliest submission with a positive score,
// counted from the participation start. Cumtime sums solve times over
// solved problems only; unsolved problems contribute nothing no matter how
// many attempts were made. Tiebreaker is always 0.
type DefaultFormat struct{}

func (DefaultFormat) ID() string { return "default" }

// ValidateConfig accepts only nil or an empty map.
func (DefaultFormat) ValidateConfig(config map[string]any) error {
	if len(config) != 0 {
		return fmt.Errorf("default format expects no config, got %d keys", len(config))
	}
	return nil
}

func (DefaultFormat) ComputeParticipation(contest Contest, part Participation, problems []ContestProblem, history []SubmissionRecord) Result {
	breakdown := make(map[uuid.UUID]ProblemCell, len(problems))
	for _, cp := range problems {
		breakdown[cp.ID] = ProblemCell{}
	}

	firstSolved := map[uuid.UUID]time.Time{}
	for _, sub := range history {
		cell, ok := breakdown[sub.ProblemID]
		if !ok {
			// submission against a problem no longer attached to the contest
			continue
		}
		cell.Attempts++
		if sub.Points > cell.Points {
			cell.Points = sub.Points
		}
		if sub.Points > 0 {
			if first, ok := firstSolved[sub.ProblemID]; !ok || sub.SubmittedAt.Before(first) {
				firstSolved[sub.ProblemID] = sub.SubmittedAt
			}
		}
		breakdown[sub.ProblemID] = cell
	}

	var points float64
	var cumtime int64
	for id, cell := range breakdown {
		if cell.Points > 0 {
			cell.TimeSec = solveSeconds(firstSolved[id], part.StartedAt)
			cumtime += cell.TimeSec
			breakdown[id] = cell
		}
		points += cell.Points
	}

	return Result{
		Score:      roundPoints(points, contest.PointsPrecision),
		CumTime:    cumtime,
		Tiebreaker: 0,
		Breakdown:  breakdown,
	}
}

// solveSeconds clamps clock-skewed submissions (timestamped before the
// participation start) to zero instead of failing; the aggregator logs the
// anomaly separately.
func solveSeconds(solvedAt, startedAt time.Time) int64 {
	dt := int64(solvedAt.Sub(startedAt) / time.Second)
	if dt < 0 {
		return 0
	}
	return dt
}

func roundPoints(points float64, precision int) float64 {
	shift := math.Pow(10, float64(precision))
	return math.Round(points*shift) / shift
}
