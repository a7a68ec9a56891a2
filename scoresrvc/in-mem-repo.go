package scoresrvc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// inMemScoreRepo keeps everything in maps behind one mutex, which also
// gives Recompute its atomicity. Used by tests and local development.
type inMemScoreRepo struct {
	mu             sync.Mutex
	contests       map[uuid.UUID]Contest
	problems       map[uuid.UUID]ContestProblem
	participations map[uuid.UUID]Participation
	submissions    map[uuid.UUID]SubmissionRecord
}

func NewInMemScoreRepo() ScoreRepo {
	return &inMemScoreRepo{
		contests:       map[uuid.UUID]Contest{},
		problems:       map[uuid.UUID]ContestProblem{},
		participations: map[uuid.UUID]Participation{},
		submissions:    map[uuid.UUID]SubmissionRecord{},
	}
}

func (r *inMemScoreRepo) StoreContest(ctx context.Context, contest Contest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contests[contest.ID] = contest
	return nil
}

func (r *inMemScoreRepo) GetContest(ctx context.Context, id uuid.UUID) (Contest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	contest, ok := r.contests[id]
	if !ok {
		return Contest{}, fmt.Errorf("contest %s not found", id)
	}
	return contest, nil
}

func (r *inMemScoreRepo) PutContestProblem(ctx context.Context, cp ContestProblem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.problems[cp.ID] = cp
	return nil
}

func (r *inMemScoreRepo) DeleteContestProblem(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.problems, id)
	return nil
}

func (r *inMemScoreRepo) ListContestProblems(ctx context.Context, contestID uuid.UUID) ([]ContestProblem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listProblemsLocked(contestID), nil
}

func (r *inMemScoreRepo) listProblemsLocked(contestID uuid.UUID) []ContestProblem {
	var out []ContestProblem
	for _, cp := range r.problems {
		if cp.ContestID == contestID {
			out = append(out, cp)
		}
	}
	return out
}

func (r *inMemScoreRepo) StoreParticipation(ctx context.Context, part Participation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participations[part.ID] = part
	return nil
}

func (r *inMemScoreRepo) GetParticipation(ctx context.Context, id uuid.UUID) (Participation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	part, ok := r.participations[id]
	if !ok {
		return Participation{}, fmt.Errorf("participation %s not found", id)
	}
	return part, nil
}

func (r *inMemScoreRepo) ListParticipations(ctx context.Context, contestID uuid.UUID) ([]Participation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Participation
	for _, part := range r.participations {
		if part.ContestID == contestID {
			out = append(out, part)
		}
	}
	return out, nil
}

func (r *inMemScoreRepo) StoreSubmission(ctx context.Context, sub SubmissionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submissions[sub.ID] = sub
	return nil
}

func (r *inMemScoreRepo) GetSubmission(ctx context.Context, id uuid.UUID) (SubmissionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.submissions[id]
	if !ok {
		return SubmissionRecord{}, fmt.Errorf("submission %s not found", id)
	}
	return sub, nil
}

func (r *inMemScoreRepo) DeleteSubmission(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.submissions, id)
	return nil
}

func (r *inMemScoreRepo) Recompute(ctx context.Context, participationID uuid.UUID, fn func(in RecomputeInputs) (Result, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	part, ok := r.participations[participationID]
	if !ok {
		return fmt.Errorf("participation %s not found", participationID)
	}
	contest, ok := r.contests[part.ContestID]
	if !ok {
		return fmt.Errorf("contest %s not found", part.ContestID)
	}

	var history []SubmissionRecord
	for _, sub := range r.submissions {
		if sub.ParticipationID == participationID && sub.Judged {
			history = append(history, sub)
		}
	}

	res, err := fn(RecomputeInputs{
		Contest:       contest,
		Participation: part,
		Problems:      r.listProblemsLocked(part.ContestID),
		History:       history,
	})
	if err != nil {
		return err
	}

	part.Score = res.Score
	part.CumTime = res.CumTime
	part.Tiebreaker = res.Tiebreaker
	part.Breakdown = res.Breakdown
	r.participations[participationID] = part
	return nil
}

func (r *inMemScoreRepo) StampContestLock(ctx context.Context, contestID uuid.UUID, cutoff *time.Time) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contest, ok := r.contests[contestID]
	if !ok {
		return nil, fmt.Errorf("contest %s not found", contestID)
	}
	contest.LockedAfter = cutoff
	r.contests[contestID] = contest

	var affected []uuid.UUID
	for id, part := range r.participations {
		if part.ContestID != contestID || part.Virtual != 0 {
			continue
		}
		part.LockedAfter = cutoff
		r.participations[id] = part
		affected = append(affected, id)
		r.stampSubmissionsLocked(id, cutoff)
	}
	return affected, nil
}

func (r *inMemScoreRepo) StampParticipationLock(ctx context.Context, participationID uuid.UUID, cutoff *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	part, ok := r.participations[participationID]
	if !ok {
		return fmt.Errorf("participation %s not found", participationID)
	}
	part.LockedAfter = cutoff
	r.participations[participationID] = part
	r.stampSubmissionsLocked(participationID, cutoff)
	return nil
}

func (r *inMemScoreRepo) stampSubmissionsLocked(participationID uuid.UUID, cutoff *time.Time) {
	for id, sub := range r.submissions {
		if sub.ParticipationID == participationID {
			sub.LockedAfter = cutoff
			r.submissions[id] = sub
		}
	}
}
