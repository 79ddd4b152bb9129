package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/glizzus/gymbot/internal/generator"
	"github.com/glizzus/gymbot/internal/schedule"
)

// SQLiteEntryRepository stores entries in an embedded SQLite database.
// Timestamps are kept as unix nanoseconds.
type SQLiteEntryRepository struct {
	db    *sql.DB
	idGen generator.Generator[string]
	now   func() time.Time
}

func NewSQLiteEntryRepository(db *sql.DB, idGen generator.Generator[string]) *SQLiteEntryRepository {
	if idGen == nil {
		idGen = &generator.UUIDV4Generator{}
	}
	return &SQLiteEntryRepository{db: db, idGen: idGen, now: time.Now}
}

func (r *SQLiteEntryRepository) List(ctx context.Context, ownerID string) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, weekday, hour, minute, lead_minutes, created_at, updated_at
		FROM reminder_entry
		WHERE owner_id = ?
		ORDER BY weekday, hour, minute, created_at`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminder entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			weekday   int
			createdAt int64
			updatedAt int64
		)
		if err := rows.Scan(
			&e.ID, &e.OwnerID, &weekday, &e.Rule.Hour, &e.Rule.Minute,
			&e.Rule.LeadMinutes, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reminder entry: %w", err)
		}
		e.Rule.Weekday = schedule.Weekday(weekday)
		e.CreatedAt = time.Unix(0, createdAt).UTC()
		e.UpdatedAt = time.Unix(0, updatedAt).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reminder entries: %w", err)
	}
	return entries, nil
}

func (r *SQLiteEntryRepository) Count(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM reminder_entry WHERE owner_id = ?`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count reminder entries: %w", err)
	}
	return count, nil
}

func (r *SQLiteEntryRepository) Owners(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT owner_id FROM reminder_entry ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

func (r *SQLiteEntryRepository) Add(ctx context.Context, ownerID string, rule schedule.Rule) (Entry, error) {
	id, err := r.idGen.Next()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to generate entry id: %w", err)
	}

	now := r.now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO reminder_entry (id, owner_id, weekday, hour, minute, lead_minutes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, ownerID, int(rule.Weekday), rule.Hour, rule.Minute, rule.LeadMinutes, now.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to insert reminder entry: %w", err)
	}
	return Entry{ID: id, OwnerID: ownerID, Rule: rule, CreatedAt: now, UpdatedAt: now}, nil
}

func (r *SQLiteEntryRepository) Update(ctx context.Context, ownerID, id string, rule schedule.Rule) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reminder_entry
		SET weekday = ?, hour = ?, minute = ?, lead_minutes = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		int(rule.Weekday), rule.Hour, rule.Minute, rule.LeadMinutes, r.now().UTC().UnixNano(), id, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update reminder entry: %w", err)
	}
	return affectedOne(res)
}

func (r *SQLiteEntryRepository) Remove(ctx context.Context, ownerID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reminder_entry WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("failed to delete reminder entry: %w", err)
	}
	return affectedOne(res)
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

var _ EntryRepository = (*SQLiteEntryRepository)(nil)
