package attemptsrvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgAttemptRepo struct {
	pool *pgxpool.Pool
}

func NewPgAttemptRepo(pool *pgxpool.Pool) AttemptRepo {
	return &pgAttemptRepo{pool: pool}
}

// Upsert relies on the conditional ON CONFLICT update for the per-key
// check-and-set, so two concurrent equal-or-higher submissions cannot race
// past each other.
func (r *pgAttemptRepo) Upsert(ctx context.Context, attempt BestAttempt) error {
	query := `
		INSERT INTO best_attempts (
			contestant_id, problem_id, contest_id, points, source_ref, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (contestant_id, problem_id, contest_id) DO UPDATE SET
			points = EXCLUDED.points,
			source_ref = EXCLUDED.source_ref,
			updated_at = EXCLUDED.updated_at
		WHERE EXCLUDED.points >= best_attempts.points
	`
	_, err := r.pool.Exec(ctx, query,
		attempt.ContestantID, attempt.ProblemID, attempt.ContestID,
		attempt.Points, attempt.SourceRef, attempt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert best attempt: %w", err)
	}
	return nil
}

func (r *pgAttemptRepo) Get(ctx context.Context, contestantID, problemID, contestID uuid.UUID) (BestAttempt, error) {
	var attempt BestAttempt
	err := r.pool.QueryRow(ctx, `
		SELECT contestant_id, problem_id, contest_id, points, source_ref, updated_at
		FROM best_attempts
		WHERE contestant_id = $1 AND problem_id = $2 AND contest_id = $3
	`, contestantID, problemID, contestID).Scan(
		&attempt.ContestantID, &attempt.ProblemID, &attempt.ContestID,
		&attempt.Points, &attempt.SourceRef, &attempt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BestAttempt{}, fmt.Errorf("best attempt not found: %w", err)
		}
		return BestAttempt{}, fmt.Errorf("failed to query best attempt: %w", err)
	}
	return attempt, nil
}
