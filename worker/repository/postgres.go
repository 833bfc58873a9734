package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	StatePending   = "pending"
	StateRunning   = "running"
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
)

var (
	ErrJobNotFound = errors.New("job not found")

	// ErrIllegalTransition is the redelivery signal: the job exists but is
	// already past the state this transition moves from.
	ErrIllegalTransition = errors.New("illegal job state transition")
)

// transitionSources must stay in sync with the API side's state machine.
// The running self-edge lets a redelivered descriptor take over a job whose
// previous worker crashed mid-compute.
var transitionSources = map[string][]string{
	StateRunning:   {StatePending, StateRunning},
	StateSucceeded: {StateRunning},
	StateFailed:    {StateRunning, StatePending},
}

type Repository interface {
	TransitionJob(ctx context.Context, jobID, to, errorMessage, resultRef string) error
	UpdateProgress(ctx context.Context, jobID string, progress int) error
}

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// TransitionJob moves a job along the state machine with a guarded UPDATE:
// the row only changes when its current state is a legal source, so a
// redelivered descriptor racing a terminal transition loses cleanly.
func (r *PostgresRepo) TransitionJob(ctx context.Context, jobID, to, errorMessage, resultRef string) error {
	from, ok := transitionSources[to]
	if !ok {
		return ErrIllegalTransition
	}

	query := `
		UPDATE jobs
		SET state = $1, error_message = $2, result_ref = $3, updated_at = NOW()
	`
	if to == StateSucceeded || to == StateFailed {
		query += `, completed_at = NOW()`
	}
	if to == StateSucceeded {
		query += `, progress = 100`
	}
	query += ` WHERE id = $4 AND state = ANY($5)`

	result, err := r.db.Exec(ctx, query, to, errorMessage, resultRef, jobID, from)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		var current string
		err := r.db.QueryRow(ctx, `SELECT state FROM jobs WHERE id = $1`, jobID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrJobNotFound
		}
		if err != nil {
			return err
		}
		return ErrIllegalTransition
	}

	return nil
}

// UpdateProgress is best-effort and only touches running jobs, so a late
// progress write can never regress a terminal outcome.
func (r *PostgresRepo) UpdateProgress(ctx context.Context, jobID string, progress int) error {
	query := `
		UPDATE jobs
		SET progress = $1, updated_at = NOW()
		WHERE id = $2 AND state = $3
	`

	_, err := r.db.Exec(ctx, query, progress, jobID, StateRunning)
	return err
}
