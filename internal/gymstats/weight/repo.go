package weight

import (
	"context"
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
)

const entryColumns = `id, user_id, weight, date, notes, created_at, updated_at`

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Upsert stores the entry for its (owner, date). An existing entry of that day
// gets the new weight and notes and keeps its id; inserted reports which case happened.
// Concurrent upserts of the same day are last write wins.
func (r *Repo) Upsert(ctx context.Context, entry Entry) (_ *Entry, inserted bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.weight.upsert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	now := time.Now()

	var stored Entry
	if err := r.db.QueryRow(
		ctx,
		`INSERT INTO weight_entries
				(id, user_id, weight, date, notes, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $6)
			ON CONFLICT (user_id, date) DO UPDATE
				SET weight = EXCLUDED.weight, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at
			RETURNING `+entryColumns+`, (xmax = 0) AS inserted;`,
		entry.ID, entry.OwnerID, entry.Weight, entry.Date, entry.Notes, now,
	).Scan(
		&stored.ID, &stored.OwnerID, &stored.Weight, &stored.Date, &stored.Notes,
		&stored.CreatedAt, &stored.UpdatedAt, &inserted,
	); err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			return nil, false, auth.ErrUserNotFound
		}
		return nil, false, err
	}
	stored.Date = stored.Date.UTC()

	span.SetAttributes(attribute.String("entry.id", stored.ID.String()))
	span.SetAttributes(attribute.Bool("inserted", inserted))
	return &stored, inserted, nil
}

// Update overwrites the stored entry of the same owner and sets UpdatedAt.
func (r *Repo) Update(ctx context.Context, entry *Entry) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.weight.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("entry.id", entry.ID.String()))

	entry.UpdatedAt = time.Now()
	tag, err := r.db.Exec(
		ctx,
		`UPDATE weight_entries SET weight = $1, date = $2, notes = $3, updated_at = $4 WHERE id = $5 AND user_id = $6;`,
		entry.Weight, entry.Date, entry.Notes, entry.UpdatedAt, entry.ID, entry.OwnerID,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrDateTaken
		}
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrWeightEntryNotFound
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, ownerID, id uuid.UUID) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.weight.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("entry.id", id.String()))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM weight_entries WHERE id = $1 AND user_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWeightEntryNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, ownerID, id uuid.UUID) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.weight.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("entry.id", id.String()))

	rows, err := r.db.Query(
		ctx,
		`SELECT `+entryColumns+` FROM weight_entries WHERE id = $1 AND user_id = $2;`,
		id, ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries, err := rows2entries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) != 1 {
		return nil, ErrWeightEntryNotFound
	}
	return &entries[0], nil
}

func (r *Repo) List(ctx context.Context, ownerID uuid.UUID, params pagination.Params) (_ []Entry, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.weight.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("page", params.Page))
	span.SetAttributes(attribute.Int("limit", params.Limit))

	total, err = r.Count(ctx, ownerID, params)
	if err != nil {
		return nil, -1, err
	}
	span.SetAttributes(attribute.Int("count_all", total))

	rows, err := r.db.Query(
		ctx,
		`SELECT `+entryColumns+` FROM weight_entries
			WHERE user_id = $1
			AND ($2::timestamptz IS NULL OR date >= $2)
			AND ($3::timestamptz IS NULL OR date <= $3)
			ORDER BY date DESC
			LIMIT $4
			OFFSET $5;`,
		ownerID, params.From, params.To,
		params.Limit, params.Offset(),
	)
	if err != nil {
		return nil, -1, err
	}
	defer rows.Close()

	entries, err := rows2entries(rows)
	if err != nil {
		return nil, -1, err
	}
	return entries, total, nil
}

func (r *Repo) Count(ctx context.Context, ownerID uuid.UUID, params pagination.Params) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.weight.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var count int
	if err := r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM weight_entries
			WHERE user_id = $1
			AND ($2::timestamptz IS NULL OR date >= $2)
			AND ($3::timestamptz IS NULL OR date <= $3);`,
		ownerID, params.From, params.To,
	).Scan(&count); err != nil {
		return -1, fmt.Errorf("count weight entries: %w", err)
	}
	return count, nil
}

func (r *Repo) ListAll(ctx context.Context, ownerID uuid.UUID) (_ []Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.weight.listall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT `+entryColumns+` FROM weight_entries WHERE user_id = $1 ORDER BY date DESC;`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	entries, err := rows2entries(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2entries: %w", err)
	}
	return entries, nil
}

func rows2entries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.OwnerID, &e.Weight, &e.Date, &e.Notes, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		e.Date = e.Date.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
