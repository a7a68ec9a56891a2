package scoresrvc_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contestrank/backend/attemptsrvc"
	"github.com/contestrank/backend/scoresrvc"
)

type testFixture struct {
	srvc     *scoresrvc.ScoreSrvc
	attempts *attemptsrvc.AttemptSrvc
	contest  scoresrvc.Contest
	probA    scoresrvc.ContestProblem
	probB    scoresrvc.ContestProblem
	probC    scoresrvc.ContestProblem
	part     scoresrvc.Participation
	t0       time.Time
}

// newFixture builds a service on the in-memory repo with one contest of
// three 100-point problems and one joined participation.
func newFixture(t *testing.T, formatID string) *testFixture {
	t.Helper()
	ctx := context.Background()

	attempts := attemptsrvc.NewAttemptSrvc(attemptsrvc.NewInMemAttemptRepo(), slog.Default())
	srvc := scoresrvc.NewScoreSrvc(scoresrvc.NewInMemScoreRepo(), attempts, 4, slog.Default())
	t.Cleanup(srvc.Close)

	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	contest := scoresrvc.Contest{
		ID:              uuid.New(),
		Title:           "weekly round",
		FormatID:        formatID,
		PointsPrecision: 2,
		StartTime:       t0,
		Visible:         true,
	}
	require.NoError(t, srvc.CreateContest(ctx, contest))

	f := &testFixture{srvc: srvc, attempts: attempts, contest: contest, t0: t0}
	f.probA = scoresrvc.ContestProblem{ID: uuid.New(), ContestID: contest.ID, Points: 100, Order: 0}
	f.probB = scoresrvc.ContestProblem{ID: uuid.New(), ContestID: contest.ID, Points: 100, Order: 1}
	f.probC = scoresrvc.ContestProblem{ID: uuid.New(), ContestID: contest.ID, Points: 100, Order: 2}
	require.NoError(t, srvc.PutContestProblem(ctx, f.probA))
	require.NoError(t, srvc.PutContestProblem(ctx, f.probB))
	require.NoError(t, srvc.PutContestProblem(ctx, f.probC))

	f.part = scoresrvc.Participation{
		ID:           uuid.New(),
		ContestID:    contest.ID,
		ContestantID: uuid.New(),
		StartedAt:    t0,
	}
	require.NoError(t, srvc.JoinContest(ctx, f.part))
	srvc.WaitIdle()
	return f
}

func (f *testFixture) grade(t *testing.T, problemID uuid.UUID, points float64, offset time.Duration) scoresrvc.SubmissionGraded {
	t.Helper()
	ev := scoresrvc.SubmissionGraded{
		SubmissionID:    uuid.New(),
		ParticipationID: f.part.ID,
		ProblemID:       problemID,
		Points:          points,
		SubmittedAt:     f.t0.Add(offset),
	}
	require.NoError(t, f.srvc.HandleSubmissionGraded(context.Background(), ev))
	return ev
}

func (f *testFixture) result(t *testing.T) scoresrvc.Participation {
	t.Helper()
	f.srvc.WaitIdle()
	part, err := f.srvc.GetParticipationResult(context.Background(), f.part.ID)
	require.NoError(t, err)
	return part
}

func TestJoinMaterializesZeroBreakdown(t *testing.T) {
	f := newFixture(t, "default")
	part := f.result(t)

	assert.Equal(t, 0.0, part.Score)
	assert.Equal(t, int64(0), part.CumTime)
	require.Len(t, part.Breakdown, 3)
	assert.Equal(t, scoresrvc.ProblemCell{}, part.Breakdown[f.probA.ID])
}

func TestGradedEventsProduceReferenceResult(t *testing.T) {
	f := newFixture(t, "default")

	f.grade(t, f.probA.ID, 100, 120*time.Second)
	f.grade(t, f.probB.ID, 0, 60*time.Second)
	f.grade(t, f.probB.ID, 0, 300*time.Second)

	part := f.result(t)
	assert.Equal(t, 100.0, part.Score)
	assert.Equal(t, int64(120), part.CumTime)
	assert.Equal(t, scoresrvc.ProblemCell{Points: 100, TimeSec: 120, Attempts: 1}, part.Breakdown[f.probA.ID])
	assert.Equal(t, scoresrvc.ProblemCell{Points: 0, TimeSec: 0, Attempts: 2}, part.Breakdown[f.probB.ID])
	assert.Equal(t, scoresrvc.ProblemCell{}, part.Breakdown[f.probC.ID])

	cell, err := f.srvc.GetProblemCell(context.Background(), f.part.ID, f.probB.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, cell.Attempts)
}

// Locking at T0+100s excludes the only submission to A (made at T0+120s)
// from score, cumtime and attempt count.
func TestLockCutoffExcludesLaterSubmissions(t *testing.T) {
	f := newFixture(t, "default")
	ctx := context.Background()

	f.grade(t, f.probA.ID, 100, 120*time.Second)
	f.grade(t, f.probB.ID, 0, 60*time.Second)
	f.grade(t, f.probB.ID, 0, 300*time.Second)
	f.srvc.WaitIdle()

	cutoff := f.t0.Add(100 * time.Second)
	require.NoError(t, f.srvc.SetContestLockCutoff(ctx, f.contest.ID, &cutoff))

	part := f.result(t)
	assert.Equal(t, 0.0, part.Score)
	assert.Equal(t, int64(0), part.CumTime)
	assert.Equal(t, scoresrvc.ProblemCell{Points: 0, TimeSec: 0, Attempts: 0}, part.Breakdown[f.probA.ID])
	assert.Equal(t, scoresrvc.ProblemCell{Points: 0, TimeSec: 0, Attempts: 1}, part.Breakdown[f.probB.ID])

	// clearing the lock re-includes everything
	require.NoError(t, f.srvc.SetContestLockCutoff(ctx, f.contest.ID, nil))
	part = f.result(t)
	assert.Equal(t, 100.0, part.Score)
	assert.Equal(t, int64(120), part.CumTime)
}

// A contest-wide lock stamps only the live run. A virtual re-attempt runs
// after contest end, so neither the contest lock nor the contest end may
// cut its history.
func TestContestLockLeavesVirtualParticipationsUnlocked(t *testing.T) {
	f := newFixture(t, "default")
	ctx := context.Background()

	virtual := scoresrvc.Participation{
		ID:           uuid.New(),
		ContestID:    f.contest.ID,
		ContestantID: uuid.New(),
		Virtual:      1,
		StartedAt:    f.t0,
	}
	require.NoError(t, f.srvc.JoinContest(ctx, virtual))

	f.grade(t, f.probA.ID, 100, 120*time.Second)
	err := f.srvc.HandleSubmissionGraded(ctx, scoresrvc.SubmissionGraded{
		SubmissionID:    uuid.New(),
		ParticipationID: virtual.ID,
		ProblemID:       f.probA.ID,
		Points:          100,
		SubmittedAt:     f.t0.Add(120 * time.Second),
	})
	require.NoError(t, err)
	f.srvc.WaitIdle()

	cutoff := f.t0.Add(100 * time.Second)
	require.NoError(t, f.srvc.SetContestLockCutoff(ctx, f.contest.ID, &cutoff))
	require.NoError(t, f.srvc.RescoreContest(ctx, f.contest.ID))
	f.srvc.WaitIdle()

	live, err := f.srvc.GetParticipationResult(ctx, f.part.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, live.Score)

	got, err := f.srvc.GetParticipationResult(ctx, virtual.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LockedAfter)
	assert.Equal(t, 100.0, got.Score)
	assert.Equal(t, int64(120), got.CumTime)
}

// A per-participation cutoff is stamped and honored independently of the
// contest-wide lock, and clearing it re-includes the excluded history.
func TestParticipationLockCutoffSetAndClear(t *testing.T) {
	f := newFixture(t, "default")
	ctx := context.Background()

	f.grade(t, f.probA.ID, 100, 120*time.Second)
	require.Equal(t, 100.0, f.result(t).Score)

	cutoff := f.t0.Add(100 * time.Second)
	err := f.srvc.Handle(ctx, scoresrvc.LockCutoffSet{
		ParticipationID: &f.part.ID,
		Cutoff:          &cutoff,
	})
	require.NoError(t, err)

	part := f.result(t)
	assert.Equal(t, 0.0, part.Score)
	require.NotNil(t, part.LockedAfter)
	assert.True(t, part.LockedAfter.Equal(cutoff))

	require.NoError(t, f.srvc.SetParticipationLockCutoff(ctx, f.part.ID, nil))
	part = f.result(t)
	assert.Nil(t, part.LockedAfter)
	assert.Equal(t, 100.0, part.Score)

	// a cutoff event naming neither scope is rejected
	require.Error(t, f.srvc.Handle(ctx, scoresrvc.LockCutoffSet{Cutoff: &cutoff}))
}

func TestDeletingSubmissionNeverIncreasesScore(t *testing.T) {
	f := newFixture(t, "default")
	ctx := context.Background()

	best := f.grade(t, f.probA.ID, 100, 60*time.Second)
	f.grade(t, f.probA.ID, 40, 30*time.Second)

	before := f.result(t)
	require.Equal(t, 100.0, before.Score)

	err := f.srvc.HandleSubmissionDeleted(ctx, scoresrvc.SubmissionDeleted{
		SubmissionID:    best.SubmissionID,
		ParticipationID: f.part.ID,
		ProblemID:       f.probA.ID,
	})
	require.NoError(t, err)

	after := f.result(t)
	assert.LessOrEqual(t, after.Score, before.Score)
	assert.Equal(t, 40.0, after.Score)
	assert.Equal(t, 1, after.Breakdown[f.probA.ID].Attempts)
}

func TestUnlinkedSubmissionStopsCounting(t *testing.T) {
	f := newFixture(t, "default")
	ctx := context.Background()

	ev := f.grade(t, f.probA.ID, 100, 60*time.Second)
	require.Equal(t, 100.0, f.result(t).Score)

	err := f.srvc.HandleSubmissionUnlinked(ctx, scoresrvc.SubmissionUnlinked{
		SubmissionID: ev.SubmissionID,
	})
	require.NoError(t, err)

	assert.Equal(t, 0.0, f.result(t).Score)
}

// Switching the format rescores every participation and the new breakdown
// carries no stale entries.
func TestFormatChangeRescoresContest(t *testing.T) {
	f := newFixture(t, "default")
	ctx := context.Background()

	f.grade(t, f.probA.ID, 0, 60*time.Second)
	f.grade(t, f.probA.ID, 100, 300*time.Second)
	require.Equal(t, int64(300), f.result(t).CumTime)

	err := f.srvc.SetContestFormat(ctx, f.contest.ID, "icpc", map[string]any{"penalty": 10})
	require.NoError(t, err)

	part := f.result(t)
	assert.Equal(t, 100.0, part.Score)
	assert.Equal(t, int64(300+10*60), part.CumTime)
	assert.Equal(t, 300.0, part.Tiebreaker)
	require.Len(t, part.Breakdown, 3)
}

// An invalid config is rejected synchronously and the previous valid
// format stays active.
func TestInvalidFormatConfigRejected(t *testing.T) {
	f := newFixture(t, "default")
	ctx := context.Background()

	f.grade(t, f.probA.ID, 100, 60*time.Second)
	require.Equal(t, 100.0, f.result(t).Score)

	err := f.srvc.SetContestFormat(ctx, f.contest.ID, "icpc", map[string]any{"penalty": -1})
	require.Error(t, err)
	err = f.srvc.SetContestFormat(ctx, f.contest.ID, "no-such-format", nil)
	require.Error(t, err)

	part := f.result(t)
	assert.Equal(t, 100.0, part.Score)
	assert.Equal(t, 0.0, part.Tiebreaker) // still default format
}

func TestRemovedProblemDisappearsFromBreakdown(t *testing.T) {
	f := newFixture(t, "default")
	ctx := context.Background()

	f.grade(t, f.probA.ID, 100, 60*time.Second)
	require.Equal(t, 100.0, f.result(t).Score)

	require.NoError(t, f.srvc.RemoveContestProblem(ctx, f.probA.ID, f.contest.ID))

	part := f.result(t)
	assert.Equal(t, 0.0, part.Score)
	require.Len(t, part.Breakdown, 2)
	_, stale := part.Breakdown[f.probA.ID]
	assert.False(t, stale)
}

func TestDisqualifiedSortsLastInRanking(t *testing.T) {
	f := newFixture(t, "default")
	ctx := context.Background()

	rival := scoresrvc.Participation{
		ID:           uuid.New(),
		ContestID:    f.contest.ID,
		ContestantID: uuid.New(),
		StartedAt:    f.t0,
	}
	require.NoError(t, f.srvc.JoinContest(ctx, rival))

	f.grade(t, f.probA.ID, 100, 60*time.Second)
	f.srvc.WaitIdle()

	ranking, err := f.srvc.GetContestRanking(ctx, f.contest.ID)
	require.NoError(t, err)
	require.Len(t, ranking, 2)
	assert.Equal(t, f.part.ID, ranking[0].ID)

	err = f.srvc.HandleDisqualified(ctx, scoresrvc.ParticipationDisqualified{
		ParticipationID: f.part.ID,
		Disqualified:    true,
	})
	require.NoError(t, err)
	f.srvc.WaitIdle()

	ranking, err = f.srvc.GetContestRanking(ctx, f.contest.ID)
	require.NoError(t, err)
	assert.Equal(t, rival.ID, ranking[0].ID)
	assert.Equal(t, f.part.ID, ranking[1].ID)
}

func TestRejudgeMarksOwningParticipation(t *testing.T) {
	f := newFixture(t, "default")
	ctx := context.Background()

	ev := f.grade(t, f.probA.ID, 100, 60*time.Second)
	require.Equal(t, 100.0, f.result(t).Score)

	// rejudge delivers a lower verdict for the same submission id
	regraded := ev
	regraded.Points = 20
	require.NoError(t, f.srvc.HandleSubmissionGraded(ctx, regraded))
	err := f.srvc.HandleRejudge(ctx, scoresrvc.RejudgeRequested{
		SubmissionIDs: []uuid.UUID{ev.SubmissionID},
	})
	require.NoError(t, err)

	assert.Equal(t, 20.0, f.result(t).Score)
}

// Re-delivering the same grading event leaves the result untouched.
func TestGradedEventIsIdempotent(t *testing.T) {
	f := newFixture(t, "default")
	ctx := context.Background()

	ev := f.grade(t, f.probA.ID, 100, 120*time.Second)
	first := f.result(t)

	require.NoError(t, f.srvc.HandleSubmissionGraded(ctx, ev))
	second := f.result(t)

	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.CumTime, second.CumTime)
	assert.Equal(t, first.Breakdown, second.Breakdown)
}

func TestGradedEventFeedsBestAttemptCache(t *testing.T) {
	f := newFixture(t, "default")
	ctx := context.Background()

	ev := scoresrvc.SubmissionGraded{
		SubmissionID:    uuid.New(),
		ParticipationID: f.part.ID,
		ProblemID:       f.probA.ID,
		Points:          70,
		SubmittedAt:     f.t0.Add(60 * time.Second),
		SourceRef:       "sub-1",
	}
	require.NoError(t, f.srvc.HandleSubmissionGraded(ctx, ev))

	attempt, err := f.attempts.GetBestAttempt(ctx, f.part.ContestantID, f.probA.ID, f.contest.ID)
	require.NoError(t, err)
	assert.Equal(t, 70.0, attempt.Points)
	assert.Equal(t, "sub-1", attempt.SourceRef)
}
