package scoresrvc

import (
	"time"

	"github.com/google/uuid"
)

// Contest is the configuration scope a participation is scored against.
type Contest struct {
	ID              uuid.UUID
	Title           string
	FormatID        string
	FormatConfig    map[string]any
	PointsPrecision int
	StartTime       time.Time
	EndTime         *time.Time
	LockedAfter     *time.Time
	Visible         bool
}

// ContestProblem is a problem's inclusion record within a contest. Identity
// is immutable once created; points and order are contest-specific.
type ContestProblem struct {
	ID        uuid.UUID
	ContestID uuid.UUID
	Points    float64
	Partial   bool
	Order     int
}

// Participation is one contestant's attempt instance in one contest.
// Virtual is 0 for the live run and a positive re-attempt index otherwise.
// Score, CumTime, Tiebreaker and Breakdown are owned by the recompute
// pipeline and must never be written by submission-handling code.
type Participation struct {
	ID           uuid.UUID
	ContestID    uuid.UUID
	ContestantID uuid.UUID
	Virtual      int
	StartedAt    time.Time
	Score        float64
	CumTime      int64
	Tiebreaker   float64
	Breakdown    map[uuid.UUID]ProblemCell
	LockedAfter  *time.Time
	Disqualified bool
}

// SubmissionRecord is one judged attempt against a contest problem.
type SubmissionRecord struct {
	ID              uuid.UUID
	ParticipationID uuid.UUID
	ProblemID       uuid.UUID
	Points          float64
	SubmittedAt     time.Time
	Judged          bool
	LockedAfter     *time.Time
	SourceRef       string
}

// ProblemCell is the computed per-problem entry of a breakdown.
// TimeSec is seconds from the participation start to the first submission
// with a positive score, 0 while the problem is unsolved.
type ProblemCell struct {
	Points   float64 `json:"points"`
	TimeSec  int64   `json:"time"`
	Attempts int     `json:"attempts"`
}

// Result is what a format strategy derives from a submission history.
type Result struct {
	Score      float64
	CumTime    int64
	Tiebreaker float64
	Breakdown  map[uuid.UUID]ProblemCell
}
