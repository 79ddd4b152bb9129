package repository

import (
	"context"
	"fmt"

	"github.com/glizzus/gymbot/internal/generator"
	"github.com/glizzus/gymbot/internal/schedule"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresEntryRepository struct {
	db    *pgxpool.Pool
	idGen generator.Generator[string]
}

func NewPostgresEntryRepository(db *pgxpool.Pool, idGen generator.Generator[string]) *PostgresEntryRepository {
	if idGen == nil {
		idGen = &generator.UUIDV4Generator{}
	}
	return &PostgresEntryRepository{db: db, idGen: idGen}
}

func (r *PostgresEntryRepository) List(ctx context.Context, ownerID string) ([]Entry, error) {
	const query = `
	SELECT id, owner_id, weekday, hour, minute, lead_minutes, created_at, updated_at
	FROM reminder_entry
	WHERE owner_id = $1
	ORDER BY weekday, hour, minute, created_at
	`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminder entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		var weekday int
		err := row.Scan(
			&e.ID,
			&e.OwnerID,
			&weekday,
			&e.Rule.Hour,
			&e.Rule.Minute,
			&e.Rule.LeadMinutes,
			&e.CreatedAt,
			&e.UpdatedAt,
		)
		e.Rule.Weekday = schedule.Weekday(weekday)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan reminder entries: %w", err)
	}
	return entries, nil
}

func (r *PostgresEntryRepository) Count(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM reminder_entry WHERE owner_id = $1`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count reminder entries: %w", err)
	}
	return count, nil
}

func (r *PostgresEntryRepository) Owners(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT owner_id FROM reminder_entry ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query owners: %w", err)
	}
	owners, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan owners: %w", err)
	}
	return owners, nil
}

func (r *PostgresEntryRepository) Add(ctx context.Context, ownerID string, rule schedule.Rule) (Entry, error) {
	const query = `
	INSERT INTO reminder_entry (id, owner_id, weekday, hour, minute, lead_minutes)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING created_at, updated_at
	`

	id, err := r.idGen.Next()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to generate entry id: %w", err)
	}

	e := Entry{ID: id, OwnerID: ownerID, Rule: rule}
	err = r.db.QueryRow(ctx, query, entryToRowParams(e)...).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to insert reminder entry: %w", err)
	}
	return e, nil
}

func (r *PostgresEntryRepository) Update(ctx context.Context, ownerID, id string, rule schedule.Rule) (bool, error) {
	const query = `
	UPDATE reminder_entry
	SET weekday = $3, hour = $4, minute = $5, lead_minutes = $6, updated_at = now()
	WHERE id = $1 AND owner_id = $2
	`

	tag, err := r.db.Exec(ctx, query, entryToRowParams(Entry{ID: id, OwnerID: ownerID, Rule: rule})...)
	if err != nil {
		return false, fmt.Errorf("failed to update reminder entry: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresEntryRepository) Remove(ctx context.Context, ownerID, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM reminder_entry WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("failed to delete reminder entry: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func entryToRowParams(e Entry) []any {
	return []any{
		e.ID,
		e.OwnerID,
		int(e.Rule.Weekday),
		e.Rule.Hour,
		e.Rule.Minute,
		e.Rule.LeadMinutes,
	}
}

var _ EntryRepository = (*PostgresEntryRepository)(nil)
