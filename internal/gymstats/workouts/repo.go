package workouts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/2beens/fittracker/internal/auth"
	"github.com/2beens/fittracker/internal/pagination"
	"github.com/2beens/fittracker/internal/telemetry/tracing"
	"github.com/2beens/fittracker/pkg"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const workoutColumns = `id, user_id, date, exercises, notes, created_at, updated_at`

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, workout Workout) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if workout.ID == uuid.Nil {
		workout.ID = uuid.New()
	}
	now := time.Now()
	if workout.CreatedAt.IsZero() {
		workout.CreatedAt = now
	}
	workout.UpdatedAt = workout.CreatedAt
	span.SetAttributes(attribute.String("workout.id", workout.ID.String()))

	exercisesJson, err := json.Marshal(workout.Exercises)
	if err != nil {
		return nil, fmt.Errorf("marshal exercises: %w", err)
	}

	if _, err := r.db.Exec(
		ctx,
		`INSERT INTO workouts
				(id, user_id, date, exercises, notes, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7);`,
		workout.ID, workout.OwnerID, workout.Date, exercisesJson, workout.Notes, workout.CreatedAt, workout.UpdatedAt,
	); err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}

	return &workout, nil
}

// Update overwrites the stored workout of the same owner and sets UpdatedAt.
func (r *Repo) Update(ctx context.Context, workout *Workout) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", workout.ID.String()))

	exercisesJson, err := json.Marshal(workout.Exercises)
	if err != nil {
		return fmt.Errorf("marshal exercises: %w", err)
	}

	workout.UpdatedAt = time.Now()
	tag, err := r.db.Exec(
		ctx,
		`UPDATE workouts SET date = $1, exercises = $2, notes = $3, updated_at = $4 WHERE id = $5 AND user_id = $6;`,
		workout.Date, exercisesJson, workout.Notes, workout.UpdatedAt, workout.ID, workout.OwnerID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, ownerID, id uuid.UUID) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", id.String()))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM workouts WHERE id = $1 AND user_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, ownerID, id uuid.UUID) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", id.String()))

	rows, err := r.db.Query(
		ctx,
		`SELECT `+workoutColumns+` FROM workouts WHERE id = $1 AND user_id = $2;`,
		id, ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workouts, err := rows2workouts(rows)
	if err != nil {
		return nil, err
	}

	if len(workouts) != 1 {
		return nil, ErrWorkoutNotFound
	}

	return &workouts[0], nil
}

// List returns one page of the owner's workouts, newest first, and the
// total count matching the date filter.
func (r *Repo) List(ctx context.Context, ownerID uuid.UUID, params pagination.Params) (_ []Workout, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("page", params.Page))
	span.SetAttributes(attribute.Int("limit", params.Limit))
	setRangeAttributes(span, params)

	total, err = r.Count(ctx, ownerID, params)
	if err != nil {
		return nil, -1, err
	}
	span.SetAttributes(attribute.Int("count_all", total))

	rows, err := r.db.Query(
		ctx,
		`SELECT `+workoutColumns+` FROM workouts
			WHERE user_id = $1
			AND ($2::timestamptz IS NULL OR date >= $2)
			AND ($3::timestamptz IS NULL OR date <= $3)
			ORDER BY date DESC, created_at DESC
			LIMIT $4
			OFFSET $5;`,
		ownerID, params.From, params.To,
		params.Limit, params.Offset(),
	)
	if err != nil {
		return nil, -1, err
	}
	defer rows.Close()

	workouts, err := rows2workouts(rows)
	if err != nil {
		return nil, -1, err
	}
	return workouts, total, nil
}

func (r *Repo) Count(ctx context.Context, ownerID uuid.UUID, params pagination.Params) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var count int
	if err := r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM workouts
			WHERE user_id = $1
			AND ($2::timestamptz IS NULL OR date >= $2)
			AND ($3::timestamptz IS NULL OR date <= $3);`,
		ownerID, params.From, params.To,
	).Scan(&count); err != nil {
		return -1, fmt.Errorf("count workouts: %w", err)
	}
	return count, nil
}

// ListAll returns every workout of the owner, newest first.
func (r *Repo) ListAll(ctx context.Context, ownerID uuid.UUID) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.listall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT `+workoutColumns+` FROM workouts WHERE user_id = $1 ORDER BY date DESC, created_at DESC;`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	workouts, err := rows2workouts(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2workouts: %w", err)
	}
	return workouts, nil
}

func rows2workouts(rows pgx.Rows) ([]Workout, error) {
	var workouts []Workout
	for rows.Next() {
		var w Workout
		var exercisesJson []byte
		if err := rows.Scan(
			&w.ID, &w.OwnerID, &w.Date, &exercisesJson, &w.Notes, &w.CreatedAt, &w.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		if err := json.Unmarshal(exercisesJson, &w.Exercises); err != nil {
			return nil, fmt.Errorf("unmarshal exercises: %w", err)
		}
		w.Date = w.Date.UTC()
		workouts = append(workouts, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return workouts, nil
}

func setRangeAttributes(span trace.Span, params pagination.Params) {
	if params.From != nil {
		span.SetAttributes(attribute.String("from", params.From.String()))
	}
	if params.To != nil {
		span.SetAttributes(attribute.String("to", params.To.String()))
	}
}
