package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"trackra-engine/internal/domain"
)

// InsertNotification stores n unless a notification with the same id is
// already present. It reports whether a row was added.
func InsertNotification(ctx context.Context, db *sql.DB, n domain.AppNotification, receivedAt time.Time) (bool, error) {
	res, err := db.ExecContext(ctx, `
INSERT INTO notifications(id, application_id, type, occurred_at, note, is_read, received_at)
VALUES(?,?,?,?,?,?,?)
ON CONFLICT(id) DO NOTHING;`,
		n.ID, n.ApplicationID, string(n.Type), formatTime(n.OccurredAt), n.Note, boolInt(n.IsRead), formatTime(receivedAt))
	if err != nil {
		return false, fmt.Errorf("insert notification %s: %w", n.ID, err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// ListNotifications returns every stored notification, newest first.
func ListNotifications(ctx context.Context, db *sql.DB) ([]domain.AppNotification, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, application_id, type, occurred_at, note, is_read
FROM notifications
ORDER BY occurred_at DESC, received_at DESC, id;
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.AppNotification{}
	for rows.Next() {
		var (
			n        domain.AppNotification
			typ      string
			occurred string
			read     int
		)
		if err := rows.Scan(&n.ID, &n.ApplicationID, &typ, &occurred, &n.Note, &read); err != nil {
			return nil, err
		}
		n.Type = domain.NotificationType(typ)
		n.OccurredAt = parseTime(occurred)
		n.IsRead = read != 0
		out = append(out, n)
	}
	return out, rows.Err()
}

func UnreadCount(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE is_read = 0;`).Scan(&n)
	return n, err
}

// MarkNotificationRead reports false when id is unknown.
func MarkNotificationRead(ctx context.Context, db *sql.DB, id string) (bool, error) {
	res, err := db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?;`, id)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func MarkAllNotificationsRead(ctx context.Context, db *sql.DB) (int64, error) {
	res, err := db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE is_read = 0;`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func ClearNotifications(ctx context.Context, db *sql.DB) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM notifications;`)
	if err != nil {
		return 0, fmt.Errorf("clear notifications: %w", err)
	}
	return res.RowsAffected()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
