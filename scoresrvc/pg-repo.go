package scoresrvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contestrank/backend/logger"
)

type pgScoreRepo struct {
	pool *pgxpool.Pool
}

func NewPgScoreRepo(pool *pgxpool.Pool) ScoreRepo {
	return &pgScoreRepo{pool: pool}
}

func (r *pgScoreRepo) StoreContest(ctx context.Context, contest Contest) error {
	configJson, err := json.Marshal(contest.FormatConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal format config: %w", err)
	}
	query := `
		INSERT INTO contests (
			id, title, format_id, format_config, points_precision,
			start_time, end_time, locked_after, visible
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			format_id = EXCLUDED.format_id,
			format_config = EXCLUDED.format_config,
			points_precision = EXCLUDED.points_precision,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			locked_after = EXCLUDED.locked_after,
			visible = EXCLUDED.visible
	`
	_, err = r.pool.Exec(ctx, query,
		contest.ID, contest.Title, contest.FormatID, configJson,
		contest.PointsPrecision, contest.StartTime, contest.EndTime,
		contest.LockedAfter, contest.Visible,
	)
	if err != nil {
		return fmt.Errorf("failed to store contest: %w", err)
	}
	return nil
}

func (r *pgScoreRepo) GetContest(ctx context.Context, id uuid.UUID) (Contest, error) {
	return scanContest(r.pool.QueryRow(ctx, `
		SELECT id, title, format_id, format_config, points_precision,
		       start_time, end_time, locked_after, visible
		FROM contests WHERE id = $1
	`, id))
}

func scanContest(row pgx.Row) (Contest, error) {
	var contest Contest
	var configJson []byte
	err := row.Scan(
		&contest.ID, &contest.Title, &contest.FormatID, &configJson,
		&contest.PointsPrecision, &contest.StartTime, &contest.EndTime,
		&contest.LockedAfter, &contest.Visible,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contest{}, fmt.Errorf("contest not found: %w", err)
		}
		return Contest{}, fmt.Errorf("failed to query contest: %w", err)
	}
	if len(configJson) > 0 {
		if err := json.Unmarshal(configJson, &contest.FormatConfig); err != nil {
			return Contest{}, fmt.Errorf("failed to unmarshal format config: %w", err)
		}
	}
	return contest, nil
}

func (r *pgScoreRepo) PutContestProblem(ctx context.Context, cp ContestProblem) error {
	query := `
		INSERT INTO contest_problems (id, contest_id, points, partial, ord)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			points = EXCLUDED.points,
			partial = EXCLUDED.partial,
			ord = EXCLUDED.ord
	`
	_, err := r.pool.Exec(ctx, query, cp.ID, cp.ContestID, cp.Points, cp.Partial, cp.Order)
	if err != nil {
		return fmt.Errorf("failed to store contest problem: %w", err)
	}
	return nil
}

func (r *pgScoreRepo) DeleteContestProblem(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM contest_problems WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete contest problem: %w", err)
	}
	return nil
}

func (r *pgScoreRepo) ListContestProblems(ctx context.Context, contestID uuid.UUID) ([]ContestProblem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, contest_id, points, partial, ord
		FROM contest_problems WHERE contest_id = $1 ORDER BY ord
	`, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contest problems: %w", err)
	}
	defer rows.Close()
	return collectProblems(rows)
}

func collectProblems(rows pgx.Rows) ([]ContestProblem, error) {
	var out []ContestProblem
	for rows.Next() {
		var cp ContestProblem
		if err := rows.Scan(&cp.ID, &cp.ContestID, &cp.Points, &cp.Partial, &cp.Order); err != nil {
			return nil, fmt.Errorf("failed to scan contest problem: %w", err)
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

func (r *pgScoreRepo) StoreParticipation(ctx context.Context, part Participation) error {
	breakdownJson, err := json.Marshal(part.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal breakdown: %w", err)
	}
	query := `
		INSERT INTO participations (
			id, contest_id, contestant_id, virtual, started_at,
			score, cumtime, tiebreaker, breakdown, locked_after, disqualified
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			virtual = EXCLUDED.virtual,
			started_at = EXCLUDED.started_at,
			score = EXCLUDED.score,
			cumtime = EXCLUDED.cumtime,
			tiebreaker = EXCLUDED.tiebreaker,
			breakdown = EXCLUDED.breakdown,
			locked_after = EXCLUDED.locked_after,
			disqualified = EXCLUDED.disqualified
	`
	_, err = r.pool.Exec(ctx, query,
		part.ID, part.ContestID, part.ContestantID, part.Virtual, part.StartedAt,
		part.Score, part.CumTime, part.Tiebreaker, breakdownJson,
		part.LockedAfter, part.Disqualified,
	)
	if err != nil {
		return fmt.Errorf("failed to store participation: %w", err)
	}
	return nil
}

const participationColumns = `
	id, contest_id, contestant_id, virtual, started_at,
	score, cumtime, tiebreaker, breakdown, locked_after, disqualified
`

func (r *pgScoreRepo) GetParticipation(ctx context.Context, id uuid.UUID) (Participation, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+participationColumns+` FROM participations WHERE id = $1`, id)
	return scanParticipation(row)
}

func scanParticipation(row pgx.Row) (Participation, error) {
	var part Participation
	var breakdownJson []byte
	err := row.Scan(
		&part.ID, &part.ContestID, &part.ContestantID, &part.Virtual, &part.StartedAt,
		&part.Score, &part.CumTime, &part.Tiebreaker, &breakdownJson,
		&part.LockedAfter, &part.Disqualified,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Participation{}, fmt.Errorf("participation not found: %w", err)
		}
		return Participation{}, fmt.Errorf("failed to query participation: %w", err)
	}
	if len(breakdownJson) > 0 {
		if err := json.Unmarshal(breakdownJson, &part.Breakdown); err != nil {
			return Participation{}, fmt.Errorf("failed to unmarshal breakdown: %w", err)
		}
	}
	return part, nil
}

func (r *pgScoreRepo) ListParticipations(ctx context.Context, contestID uuid.UUID) ([]Participation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+participationColumns+` FROM participations WHERE contest_id = $1`, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participations: %w", err)
	}
	defer rows.Close()

	var out []Participation
	for rows.Next() {
		part, err := scanParticipation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, part)
	}
	return out, rows.Err()
}

func (r *pgScoreRepo) StoreSubmission(ctx context.Context, sub SubmissionRecord) error {
	query := `
		INSERT INTO submissions (
			id, participation_id, problem_id, points, submitted_at,
			judged, locked_after, source_ref
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			points = EXCLUDED.points,
			judged = EXCLUDED.judged,
			locked_after = EXCLUDED.locked_after,
			source_ref = EXCLUDED.source_ref
	`
	_, err := r.pool.Exec(ctx, query,
		sub.ID, sub.ParticipationID, sub.ProblemID, sub.Points,
		sub.SubmittedAt, sub.Judged, sub.LockedAfter, sub.SourceRef,
	)
	if err != nil {
		return fmt.Errorf("failed to store submission: %w", err)
	}
	return nil
}

func (r *pgScoreRepo) GetSubmission(ctx context.Context, id uuid.UUID) (SubmissionRecord, error) {
	var sub SubmissionRecord
	err := r.pool.QueryRow(ctx, `
		SELECT id, participation_id, problem_id, points, submitted_at,
		       judged, locked_after, source_ref
		FROM submissions WHERE id = $1
	`, id).Scan(
		&sub.ID, &sub.ParticipationID, &sub.ProblemID, &sub.Points,
		&sub.SubmittedAt, &sub.Judged, &sub.LockedAfter, &sub.SourceRef,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SubmissionRecord{}, fmt.Errorf("submission not found: %w", err)
		}
		return SubmissionRecord{}, fmt.Errorf("failed to query submission: %w", err)
	}
	return sub, nil
}

func (r *pgScoreRepo) DeleteSubmission(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}
	return nil
}

// Recompute reads the participation's inputs and writes the result inside
// one serializable transaction, so a concurrent grading or lock change
// either fully precedes or fully follows this job.
func (r *pgScoreRepo) Recompute(ctx context.Context, participationID uuid.UUID, fn func(in RecomputeInputs) (Result, error)) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("failed to begin recompute tx: %w", err)
	}
	defer tx.Rollback(ctx)

	part, err := scanParticipation(tx.QueryRow(ctx,
		`SELECT `+participationColumns+` FROM participations WHERE id = $1 FOR UPDATE`,
		participationID))
	if err != nil {
		return err
	}

	contest, err := scanContest(tx.QueryRow(ctx, `
		SELECT id, title, format_id, format_config, points_precision,
		       start_time, end_time, locked_after, visible
		FROM contests WHERE id = $1
	`, part.ContestID))
	if err != nil {
		return err
	}

	problemRows, err := tx.Query(ctx, `
		SELECT id, contest_id, points, partial, ord
		FROM contest_problems WHERE contest_id = $1 ORDER BY ord
	`, part.ContestID)
	if err != nil {
		return fmt.Errorf("failed to query contest problems: %w", err)
	}
	problems, err := collectProblems(problemRows)
	problemRows.Close()
	if err != nil {
		return err
	}

	subRows, err := tx.Query(ctx, `
		SELECT id, participation_id, problem_id, points, submitted_at,
		       judged, locked_after, source_ref
		FROM submissions WHERE participation_id = $1 AND judged
	`, participationID)
	if err != nil {
		return fmt.Errorf("failed to query submissions: %w", err)
	}
	var history []SubmissionRecord
	for subRows.Next() {
		var sub SubmissionRecord
		err := subRows.Scan(
			&sub.ID, &sub.ParticipationID, &sub.ProblemID, &sub.Points,
			&sub.SubmittedAt, &sub.Judged, &sub.LockedAfter, &sub.SourceRef,
		)
		if err != nil {
			subRows.Close()
			return fmt.Errorf("failed to scan submission: %w", err)
		}
		history = append(history, sub)
	}
	subRows.Close()
	if err := subRows.Err(); err != nil {
		return fmt.Errorf("failed to read submissions: %w", err)
	}

	res, err := fn(RecomputeInputs{
		Contest:       contest,
		Participation: part,
		Problems:      problems,
		History:       history,
	})
	if err != nil {
		return err
	}

	breakdownJson, err := json.Marshal(res.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal breakdown: %w", err)
	}
	_, err = tx.Exec(ctx, `
		UPDATE participations
		SET score = $1, cumtime = $2, tiebreaker = $3, breakdown = $4
		WHERE id = $5
	`, res.Score, res.CumTime, res.Tiebreaker, breakdownJson, participationID)
	if err != nil {
		return fmt.Errorf("failed to persist recompute result: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit recompute tx: %w", err)
	}
	return nil
}

func (r *pgScoreRepo) StampContestLock(ctx context.Context, contestID uuid.UUID, cutoff *time.Time) ([]uuid.UUID, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin lock tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE contests SET locked_after = $1 WHERE id = $2`, cutoff, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to stamp contest lock: %w", err)
	}

	rows, err := tx.Query(ctx, `
		UPDATE participations SET locked_after = $1
		WHERE contest_id = $2 AND virtual = 0
		RETURNING id
	`, cutoff, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to stamp participation locks: %w", err)
	}
	var affected []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan participation id: %w", err)
		}
		affected = append(affected, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read participation ids: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE submissions SET locked_after = $1
		WHERE participation_id IN (
			SELECT id FROM participations WHERE contest_id = $2 AND virtual = 0
		)
	`, cutoff, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to stamp submission locks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit lock tx: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info("stamped contest lock", "contest_id", contestID, "participations", len(affected))
	return affected, nil
}

func (r *pgScoreRepo) StampParticipationLock(ctx context.Context, participationID uuid.UUID, cutoff *time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin lock tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE participations SET locked_after = $1 WHERE id = $2`, cutoff, participationID)
	if err != nil {
		return fmt.Errorf("failed to stamp participation lock: %w", err)
	}
	_, err = tx.Exec(ctx,
		`UPDATE submissions SET locked_after = $1 WHERE participation_id = $2`, cutoff, participationID)
	if err != nil {
		return fmt.Errorf("failed to stamp submission locks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit lock tx: %w", err)
	}
	return nil
}
