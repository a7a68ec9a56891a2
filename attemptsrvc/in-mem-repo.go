package attemptsrvc

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type attemptKey struct {
	contestant uuid.UUID
	problem    uuid.UUID
	contest    uuid.UUID
}

// inMemAttemptRepo guards the whole key space with one mutex, which makes
// each Upsert a per-key atomic check-and-set.
type inMemAttemptRepo struct {
	mu       sync.Mutex
	attempts map[attemptKey]BestAttempt
}

func NewInMemAttemptRepo() AttemptRepo {
	return &inMemAttemptRepo{attempts: map[attemptKey]BestAttempt{}}
}

func (r *inMemAttemptRepo) Upsert(ctx context.Context, attempt BestAttempt) error {
	key := attemptKey{attempt.ContestantID, attempt.ProblemID, attempt.ContestID}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.attempts[key]; ok && attempt.Points < prev.Points {
		return nil
	}
	r.attempts[key] = attempt
	return nil
}

func (r *inMemAttemptRepo) Get(ctx context.Context, contestantID, problemID, contestID uuid.UUID) (BestAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt, ok := r.attempts[attemptKey{contestantID, problemID, contestID}]
	if !ok {
		return BestAttempt{}, fmt.Errorf("best attempt not found")
	}
	return attempt, nil
}
