package scoresrvc

import (
	"time"

	"github.com/google/uuid"
)

const (
	MsgTypeSubmissionGraded          = "submission_graded"
	MsgTypeSubmissionDeleted         = "submission_deleted"
	MsgTypeSubmissionUnlinked        = "submission_unlinked_from_contest"
	MsgTypeParticipationDisqualified = "participation_disqualified"
	MsgTypeLockCutoffSet             = "lock_cutoff_set"
	MsgTypeContestFormatChanged      = "contest_format_changed"
	MsgTypeRejudgeRequested          = "rejudge_requested"
)

// Event is a typed recompute trigger. The engine only reacts to named
// events with typed payloads, never to generic "row saved" hooks.
type Event interface {
	Type() string
}

// SubmissionGraded is produced by the judging subsystem once a verdict
// exists. The same submission id reappears after a rejudge.
type SubmissionGraded struct {
	SubmissionID    uuid.UUID
	ParticipationID uuid.UUID
	ProblemID       uuid.UUID
	Points          float64
	SubmittedAt     time.Time
	SourceRef       string
}

func (e SubmissionGraded) Type() string { return MsgTypeSubmissionGraded }

type SubmissionDeleted struct {
	SubmissionID    uuid.UUID
	ParticipationID uuid.UUID
	ProblemID       uuid.UUID
}

func (e SubmissionDeleted) Type() string { return MsgTypeSubmissionDeleted }

// SubmissionUnlinked means the submission's contest association was
// cleared; it stops counting towards its participation.
type SubmissionUnlinked struct {
	SubmissionID uuid.UUID
}

func (e SubmissionUnlinked) Type() string { return MsgTypeSubmissionUnlinked }

type ParticipationDisqualified struct {
	ParticipationID uuid.UUID
	Disqualified    bool
}

func (e ParticipationDisqualified) Type() string { return MsgTypeParticipationDisqualified }

// LockCutoffSet carries either a contest-wide or a per-participation
// cutoff. A nil Cutoff clears the lock.
type LockCutoffSet struct {
	ContestID       *uuid.UUID
	ParticipationID *uuid.UUID
	Cutoff          *time.Time
}

func (e LockCutoffSet) Type() string { return MsgTypeLockCutoffSet }

type ContestFormatChanged struct {
	ContestID uuid.UUID
	FormatID  string
	Config    map[string]any
}

func (e ContestFormatChanged) Type() string { return MsgTypeContestFormatChanged }

type RejudgeRequested struct {
	SubmissionIDs []uuid.UUID
}

func (e RejudgeRequested) Type() string { return MsgTypeRejudgeRequested }
