package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"imageUpscaler/api/database"
	"imageUpscaler/api/models"
)

type PostgresRepo struct {
	db *database.DB
}

func NewPostgresRepo(db *database.DB) Repository {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CreateJob(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (id, trace_id, original_filename, state, progress, error_message, result_ref)
		VALUES ($1, $2, $3, $4, 0, '', '')
		RETURNING created_at, updated_at
	`

	return r.db.Pool.QueryRow(ctx, query,
		job.ID,
		job.TraceID,
		job.OriginalFilename,
		job.State,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
}

func (r *PostgresRepo) GetJob(ctx context.Context, id string) (*models.Job, error) {
	query := `
		SELECT id, trace_id, original_filename, state, progress, error_message, result_ref, created_at, updated_at, completed_at
		FROM jobs
		WHERE id = $1
	`

	row := r.db.Pool.QueryRow(ctx, query, id)

	var job models.Job
	err := row.Scan(
		&job.ID,
		&job.TraceID,
		&job.OriginalFilename,
		&job.State,
		&job.Progress,
		&job.ErrorMessage,
		&job.ResultRef,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	return &job, nil
}

// TransitionJob applies a state change as a single guarded UPDATE: the row is
// only touched when its current state is a legal source for the target state,
// so concurrent transitions on the same job serialize at the row and the
// loser is rejected instead of silently applied.
func (r *PostgresRepo) TransitionJob(ctx context.Context, id string, to models.JobState, fields TransitionFields) error {
	sources := models.SourcesOf(to)
	if len(sources) == 0 {
		return ErrIllegalTransition
	}

	from := make([]string, len(sources))
	for i, s := range sources {
		from[i] = string(s)
	}

	query := `
		UPDATE jobs
		SET state = $1, error_message = $2, result_ref = $3, updated_at = NOW()
	`
	if to.Terminal() {
		query += `, completed_at = NOW()`
	}
	if to == models.StateSucceeded {
		query += `, progress = 100`
	}
	query += ` WHERE id = $4 AND state = ANY($5)`

	result, err := r.db.Pool.Exec(ctx, query, to, fields.ErrorMessage, fields.ResultRef, id, from)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		// Distinguish a missing job from one already past the source state.
		var current string
		err := r.db.Pool.QueryRow(ctx, `SELECT state FROM jobs WHERE id = $1`, id).Scan(&current)
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
