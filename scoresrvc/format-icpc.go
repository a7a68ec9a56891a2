package scoresrvc

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// icpcDefaultPenaltyMin is the wrong-attempt penalty applied when the
// contest config does not override it.
const icpcDefaultPenaltyMin = 20

// IcpcFormat scores like DefaultFormat but adds a per-wrong-attempt time
// penalty for every solved problem and breaks ties by the latest first
// solve, so whoever reached the same score earlier ranks higher.
type IcpcFormat struct{}

func (IcpcFormat) ID() string { return "icpc" }

// ValidateConfig accepts nil, or a map whose only key is "penalty" holding
// a non-negative number of minutes.
func (IcpcFormat) ValidateConfig(config map[string]any) error {
	if len(config) == 0 {
		return nil
	}
	for key := range config {
		if key != "penalty" {
			return fmt.Errorf("unknown config key %q", key)
		}
	}
	penalty, err := penaltyMinutes(config)
	if err != nil {
		return err
	}
	if penalty < 0 {
		return fmt.Errorf("penalty must be non-negative, got %d", penalty)
	}
	return nil
}

func (IcpcFormat) ComputeParticipation(contest Contest, part Participation, problems []ContestProblem, history []SubmissionRecord) Result {
	penalty, err := penaltyMinutes(contest.FormatConfig)
	if err != nil {
		// config was validated at write time; fall back rather than corrupt
		penalty = icpcDefaultPenaltyMin
	}

	breakdown := make(map[uuid.UUID]ProblemCell, len(problems))
	for _, cp := range problems {
		breakdown[cp.ID] = ProblemCell{}
	}

	firstSolved := map[uuid.UUID]time.Time{}
	for _, sub := range history {
		cell, ok := breakdown[sub.ProblemID]
		if !ok {
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
	var tiebreaker float64
	for id, cell := range breakdown {
		if cell.Points > 0 {
			solvedAt := firstSolved[id]
			cell.TimeSec = solveSeconds(solvedAt, part.StartedAt)
			breakdown[id] = cell

			wrong := wrongAttemptsBefore(history, id, solvedAt)
			cumtime += cell.TimeSec + int64(wrong)*int64(penalty)*60
			if float64(cell.TimeSec) > tiebreaker {
				tiebreaker = float64(cell.TimeSec)
			}
		}
		points += cell.Points
	}

	return Result{
		Score:      roundPoints(points, contest.PointsPrecision),
		CumTime:    cumtime,
		Tiebreaker: tiebreaker,
		Breakdown:  breakdown,
	}
}

func wrongAttemptsBefore(history []SubmissionRecord, problemID uuid.UUID, solvedAt time.Time) int {
	wrong := 0
	for _, sub := range history {
		if sub.ProblemID == problemID && sub.Points <= 0 && sub.SubmittedAt.Before(solvedAt) {
			wrong++
		}
	}
	return wrong
}

func penaltyMinutes(config map[string]any) (int, error) {
	raw, ok := config["penalty"]
	if !ok {
		return icpcDefaultPenaltyMin, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("penalty must be a whole number of minutes, got %v", v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("penalty must be a number, got %T", raw)
	}
}
