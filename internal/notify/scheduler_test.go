package notify

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"trackra-engine/internal/domain"
	"trackra-engine/internal/gateway"
	"trackra-engine/internal/secrets"
	"trackra-engine/internal/store"
)

// fakeGateway only answers notification fetches; the embedded nil Client
// panics if anything else is called.
type fakeGateway struct {
	gateway.Client
	mu    sync.Mutex
	items []domain.AppNotification
	err   error
	calls int
}

func (f *fakeGateway) FetchNotifications(context.Context, string) ([]domain.AppNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return append([]domain.AppNotification(nil), f.items...), f.err
}

type recorder struct {
	mu     sync.Mutex
	alerts []Alert
}

func (r *recorder) Deliver(_ context.Context, a Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return nil
}

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestScheduler(t *testing.T, gw gateway.Client, token string, rec Deliverer) *Scheduler {
	t.Helper()
	db, err := store.OpenMigrated(filepath.Join(t.TempDir(), "notify.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(Options{
		Gateway:     gw,
		Credentials: secrets.NewMemoryStore(token),
		DB:          db.Pool,
		Deliverer:   rec,
		Reminders:   ReminderSettings{Enabled: true, Lead: 24 * time.Hour},
		Logger:      log.New(io.Discard, "", 0),
		Now:         func() time.Time { return fixedNow },
		Location:    time.UTC,
	})
}

func TestPollWithoutTokenDoesNothing(t *testing.T) {
	gw := &fakeGateway{}
	s := newTestScheduler(t, gw, "", &recorder{})
	n, err := s.Poll(context.Background())
	if err != nil || n != 0 || gw.calls != 0 {
		t.Fatalf("n=%d err=%v calls=%d", n, err, gw.calls)
	}
}

func TestPollDedupesByID(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{items: []domain.AppNotification{
		{ID: "n1", ApplicationID: "a", Type: domain.NotificationRejected, OccurredAt: fixedNow, Note: "Acme passed"},
		{ID: "n2", ApplicationID: "b", Type: domain.NotificationNoResponse, OccurredAt: fixedNow.Add(-time.Hour)},
	}}
	rec := &recorder{}
	s := newTestScheduler(t, gw, "token", rec)

	n, err := s.Poll(ctx)
	if err != nil || n != 2 {
		t.Fatalf("first poll n=%d err=%v", n, err)
	}
	if err := s.MarkRead(ctx, "n1"); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	// The same ids come back, one with a changed note: the stored entries
	// win and the read flag survives.
	gw.items[0].Note = "changed"
	n, err = s.Poll(ctx)
	if err != nil || n != 0 {
		t.Fatalf("second poll n=%d err=%v", n, err)
	}
	list, _ := s.List(ctx)
	if len(list) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(list))
	}
	if list[0].ID != "n1" || !list[0].IsRead || list[0].Note != "Acme passed" {
		t.Fatalf("unexpected first entry %+v", list[0])
	}
	if c, _ := s.UnreadCount(ctx); c != 1 {
		t.Fatalf("unread=%d", c)
	}
	if len(rec.alerts) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(rec.alerts))
	}
	if rec.alerts[0].Title != "Application Rejected" || rec.alerts[0].Badge != 2 {
		t.Fatalf("unexpected alert %+v", rec.alerts[0])
	}
}

func TestPollFetchError(t *testing.T) {
	gw := &fakeGateway{err: &gateway.Error{Kind: gateway.ErrUnreachable, Op: "fetchNotifications", Err: errors.New("offline")}}
	s := newTestScheduler(t, gw, "token", &recorder{})
	if _, err := s.Poll(context.Background()); !errors.Is(err, gateway.ErrUnreachable) {
		t.Fatalf("expected unreachable, got %v", err)
	}
}

func TestReadFlagsAndClear(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{items: []domain.AppNotification{
		{ID: "n1", Type: domain.NotificationRejected, OccurredAt: fixedNow},
		{ID: "n2", Type: domain.NotificationRejected, OccurredAt: fixedNow},
	}}
	s := newTestScheduler(t, gw, "token", &recorder{})
	_, _ = s.Poll(ctx)

	if err := s.MarkRead(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.MarkAllRead(ctx); err != nil {
		t.Fatalf("mark all: %v", err)
	}
	if c, _ := s.UnreadCount(ctx); c != 0 {
		t.Fatalf("unread=%d", c)
	}
	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if list, _ := s.List(ctx); len(list) != 0 {
		t.Fatalf("expected empty list")
	}
}

func TestActivityLoggedSchedulesReminder(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	s := newTestScheduler(t, &fakeGateway{}, "token", rec)

	future := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	evt := domain.ActivityLogged{ApplicationID: "a", Type: domain.ActivityPanelInterview, OccurredAt: future, Company: "Acme", Role: "SRE"}
	if err := s.ActivityLogged(ctx, evt); err != nil {
		t.Fatalf("activity logged: %v", err)
	}
	_ = s.ActivityLogged(ctx, evt)

	// Notes, past activities and same-day activities get no reminder.
	_ = s.ActivityLogged(ctx, domain.ActivityLogged{ApplicationID: "a", Type: domain.ActivityNote, OccurredAt: future})
	_ = s.ActivityLogged(ctx, domain.ActivityLogged{ApplicationID: "a", Type: domain.ActivityTechnicalTest, OccurredAt: fixedNow.AddDate(0, 0, -2)})
	_ = s.ActivityLogged(ctx, domain.ActivityLogged{ApplicationID: "a", Type: domain.ActivityTechnicalTest, OccurredAt: fixedNow})

	pending, err := s.PendingReminders(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected one pending reminder, got %v %v", pending, err)
	}
	want := time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC)
	if !pending[0].DueAt.Equal(want) || pending[0].ActivityDate != "2026-03-14" {
		t.Fatalf("unexpected reminder %+v", pending[0])
	}

	if due, _ := s.DueReminders(ctx); len(due) != 0 {
		t.Fatalf("nothing should be due yet")
	}
	s.now = func() time.Time { return want.Add(time.Minute) }
	n, err := s.FireDueReminders(ctx)
	if err != nil || n != 1 {
		t.Fatalf("fire n=%d err=%v", n, err)
	}
	if len(rec.alerts) != 1 || rec.alerts[0].Body != "SRE at Acme" || rec.alerts[0].Kind != "reminder" {
		t.Fatalf("unexpected alerts %+v", rec.alerts)
	}
	if n, _ := s.FireDueReminders(ctx); n != 0 {
		t.Fatalf("reminder fired twice")
	}
}

func TestRemindersDisabled(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t, &fakeGateway{}, "token", &recorder{})
	s.SetReminders(ReminderSettings{Enabled: false})
	_ = s.ActivityLogged(ctx, domain.ActivityLogged{ApplicationID: "a", Type: domain.ActivityOnsiteInterview, OccurredAt: fixedNow.AddDate(0, 0, 5)})
	if pending, _ := s.PendingReminders(ctx); len(pending) != 0 {
		t.Fatalf("reminders disabled but one was stored")
	}
}

func TestPollDeliversStoredRowsWhenInsertFails(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{items: []domain.AppNotification{
		{ID: "n1", ApplicationID: "a", Type: domain.NotificationRejected, OccurredAt: fixedNow},
		{ID: "broken", ApplicationID: "b", Type: domain.NotificationNoResponse, OccurredAt: fixedNow},
		{ID: "n3", ApplicationID: "c", Type: domain.NotificationNoResponse, OccurredAt: fixedNow},
	}}
	rec := &recorder{}
	s := newTestScheduler(t, gw, "token", rec)
	if _, err := s.db.ExecContext(ctx, `
CREATE TRIGGER reject_broken BEFORE INSERT ON notifications
WHEN NEW.id = 'broken'
BEGIN SELECT RAISE(ABORT, 'disk full'); END;`); err != nil {
		t.Fatalf("trigger: %v", err)
	}

	n, err := s.Poll(ctx)
	if err == nil {
		t.Fatalf("expected insert error")
	}
	if n != 1 || len(rec.alerts) != 1 || rec.alerts[0].ID != "n1" {
		t.Fatalf("stored row not delivered: n=%d alerts=%+v", n, rec.alerts)
	}

	// n1 is known now and is not delivered a second time
	if _, err := s.db.ExecContext(ctx, `DROP TRIGGER reject_broken`); err != nil {
		t.Fatalf("drop trigger: %v", err)
	}
	n, err = s.Poll(ctx)
	if err != nil || n != 2 {
		t.Fatalf("second poll n=%d err=%v", n, err)
	}
	if len(rec.alerts) != 3 {
		t.Fatalf("expected 3 deliveries in total, got %d", len(rec.alerts))
	}
}
