package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"trackra-engine/internal/domain"
)

type Reminder struct {
	ID            int64               `json:"id"`
	ApplicationID string              `json:"applicationId"`
	ActivityType  domain.ActivityType `json:"activityType"`
	ActivityDate  string              `json:"activityDate"` // YYYY-MM-DD
	DueAt         time.Time           `json:"dueAt"`
	Company       string              `json:"company"`
	Role          string              `json:"role"`
	FiredAt       *time.Time          `json:"firedAt,omitempty"`
}

// InsertReminder ignores a reminder already scheduled for the same
// application, activity type and day. It reports whether a row was added.
func InsertReminder(ctx context.Context, db *sql.DB, r Reminder) (bool, error) {
	res, err := db.ExecContext(ctx, `
INSERT INTO reminders(application_id, activity_type, activity_date, due_at, company, role)
VALUES(?,?,?,?,?,?)
ON CONFLICT(application_id, activity_type, activity_date) DO NOTHING;`,
		r.ApplicationID, string(r.ActivityType), r.ActivityDate, formatTime(r.DueAt), r.Company, r.Role)
	if err != nil {
		return false, fmt.Errorf("insert reminder: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// DueReminders returns unfired reminders due at or before now, oldest first.
func DueReminders(ctx context.Context, db *sql.DB, now time.Time) ([]Reminder, error) {
	return queryReminders(ctx, db, `
SELECT id, application_id, activity_type, activity_date, due_at, company, role, fired_at
FROM reminders
WHERE fired_at IS NULL AND due_at <= ?
ORDER BY due_at, id;`, formatTime(now))
}

// PendingReminders returns every unfired reminder, soonest first.
func PendingReminders(ctx context.Context, db *sql.DB) ([]Reminder, error) {
	return queryReminders(ctx, db, `
SELECT id, application_id, activity_type, activity_date, due_at, company, role, fired_at
FROM reminders
WHERE fired_at IS NULL
ORDER BY due_at, id;`)
}

func MarkReminderFired(ctx context.Context, db *sql.DB, id int64, at time.Time) (bool, error) {
	res, err := db.ExecContext(ctx, `UPDATE reminders SET fired_at = ? WHERE id = ? AND fired_at IS NULL;`, formatTime(at), id)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// CleanupFiredReminders drops reminders fired before cutoff.
func CleanupFiredReminders(ctx context.Context, db *sql.DB, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM reminders WHERE fired_at IS NOT NULL AND fired_at < ?;`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("cleanup reminders: %w", err)
	}
	return res.RowsAffected()
}

func queryReminders(ctx context.Context, db *sql.DB, query string, args ...any) ([]Reminder, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Reminder{}
	for rows.Next() {
		var (
			r     Reminder
			typ   string
			due   string
			fired sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.ApplicationID, &typ, &r.ActivityDate, &due, &r.Company, &r.Role, &fired); err != nil {
			return nil, err
		}
		r.ActivityType = domain.ActivityType(typ)
		r.DueAt = parseTime(due)
		if fired.Valid {
			t := parseTime(fired.String)
			r.FiredAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
