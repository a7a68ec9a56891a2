package attemptsrvc_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contestrank/backend/attemptsrvc"
)

func newSrvc() *attemptsrvc.AttemptSrvc {
	return attemptsrvc.NewAttemptSrvc(attemptsrvc.NewInMemAttemptRepo(), slog.Default())
}

func TestRecordAttemptCreatesOnFirstSubmission(t *testing.T) {
	srvc := newSrvc()
	ctx := context.Background()
	contestant, problem, contest := uuid.New(), uuid.New(), uuid.New()

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, srvc.RecordAttempt(ctx, contestant, problem, contest, 40, "first", at))

	attempt, err := srvc.GetBestAttempt(ctx, contestant, problem, contest)
	require.NoError(t, err)
	assert.Equal(t, 40.0, attempt.Points)
	assert.Equal(t, "first", attempt.SourceRef)
}

// Equal points promote the most recent attempt: last among equals wins.
func TestRecordAttemptEqualPointsLastWins(t *testing.T) {
	srvc := newSrvc()
	ctx := context.Background()
	contestant, problem, contest := uuid.New(), uuid.New(), uuid.New()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, srvc.RecordAttempt(ctx, contestant, problem, contest, 60, "earlier", at))
	require.NoError(t, srvc.RecordAttempt(ctx, contestant, problem, contest, 60, "later", at.Add(time.Minute)))

	attempt, err := srvc.GetBestAttempt(ctx, contestant, problem, contest)
	require.NoError(t, err)
	assert.Equal(t, "later", attempt.SourceRef)
	assert.Equal(t, at.Add(time.Minute), attempt.UpdatedAt)
}

func TestRecordAttemptLowerScoreDoesNotOverwrite(t *testing.T) {
	srvc := newSrvc()
	ctx := context.Background()
	contestant, problem, contest := uuid.New(), uuid.New(), uuid.New()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, srvc.RecordAttempt(ctx, contestant, problem, contest, 90, "best", at))
	require.NoError(t, srvc.RecordAttempt(ctx, contestant, problem, contest, 30, "worse", at.Add(time.Minute)))

	attempt, err := srvc.GetBestAttempt(ctx, contestant, problem, contest)
	require.NoError(t, err)
	assert.Equal(t, 90.0, attempt.Points)
	assert.Equal(t, "best", attempt.SourceRef)
}

// The key space is shared across a contestant's participations; the cache
// still keys per contest.
func TestRecordAttemptSeparateContests(t *testing.T) {
	srvc := newSrvc()
	ctx := context.Background()
	contestant, problem := uuid.New(), uuid.New()
	contestX, contestY := uuid.New(), uuid.New()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, srvc.RecordAttempt(ctx, contestant, problem, contestX, 100, "live", at))
	require.NoError(t, srvc.RecordAttempt(ctx, contestant, problem, contestY, 50, "virtual", at))

	x, err := srvc.GetBestAttempt(ctx, contestant, problem, contestX)
	require.NoError(t, err)
	y, err := srvc.GetBestAttempt(ctx, contestant, problem, contestY)
	require.NoError(t, err)
	assert.Equal(t, 100.0, x.Points)
	assert.Equal(t, 50.0, y.Points)
}

// Concurrent writers only ever apply the compare-and-overwrite rule; the
// surviving record is always one with maximal points.
func TestRecordAttemptConcurrentWriters(t *testing.T) {
	srvc := newSrvc()
	ctx := context.Background()
	contestant, problem, contest := uuid.New(), uuid.New(), uuid.New()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(points float64) {
			defer wg.Done()
			_ = srvc.RecordAttempt(ctx, contestant, problem, contest, points, "src", at)
		}(float64(i % 10))
	}
	wg.Wait()

	attempt, err := srvc.GetBestAttempt(ctx, contestant, problem, contest)
	require.NoError(t, err)
	assert.Equal(t, 9.0, attempt.Points)
}

func TestGetBestAttemptMissing(t *testing.T) {
	srvc := newSrvc()
	_, err := srvc.GetBestAttempt(context.Background(), uuid.New(), uuid.New(), uuid.New())
	require.Error(t, err)
}
