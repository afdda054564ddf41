// Package notify owns the notification collection and local reminders. It
// polls the backend for new notifications, keeps read flags locally, and
// turns upcoming interviews and tests into reminders.
package notify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"trackra-engine/internal/domain"
	"trackra-engine/internal/gateway"
	"trackra-engine/internal/scheduler"
	"trackra-engine/internal/secrets"
	"trackra-engine/internal/store"
)

var ErrNotFound = errors.New("not found")

type Logger interface {
	Printf(format string, v ...any)
}

type ReminderSettings struct {
	Enabled bool
	Lead    time.Duration
}

type Options struct {
	Gateway     gateway.Client
	Credentials secrets.Store
	DB          *sql.DB
	Deliverer   Deliverer
	Reminders   ReminderSettings
	Logger      Logger
	// Now and Location default to time.Now and time.Local.
	Now      func() time.Time
	Location *time.Location
}

type Scheduler struct {
	gw        gateway.Client
	creds     secrets.Store
	db        *sql.DB
	deliverer Deliverer
	log       Logger
	now       func() time.Time
	loc       *time.Location

	reminders atomic.Value // ReminderSettings
	pollMu    sync.Mutex
}

func New(opts Options) *Scheduler {
	s := &Scheduler{
		gw:        opts.Gateway,
		creds:     opts.Credentials,
		db:        opts.DB,
		deliverer: opts.Deliverer,
		log:       opts.Logger,
		now:       opts.Now,
		loc:       opts.Location,
	}
	if s.log == nil {
		s.log = log.Default()
	}
	if s.deliverer == nil {
		s.deliverer = LogDeliverer{Logger: s.log}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	s.reminders.Store(opts.Reminders)
	return s
}

// SetReminders swaps reminder settings, used on config reload.
func (s *Scheduler) SetReminders(r ReminderSettings) {
	s.reminders.Store(r)
}

func (s *Scheduler) reminderSettings() ReminderSettings {
	return s.reminders.Load().(ReminderSettings)
}

// Poll fetches notifications and stores the ones whose id is not yet known.
// Each new one is delivered. Without a token it does nothing. It returns
// the number of new notifications.
func (s *Scheduler) Poll(ctx context.Context) (int, error) {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	token, ok := s.creds.Token()
	if !ok {
		return 0, nil
	}
	fetched, err := s.gw.FetchNotifications(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("fetch notifications: %w", err)
	}

	now := s.now()
	var (
		fresh     []domain.AppNotification
		insertErr error
	)
	for _, n := range fetched {
		n.IsRead = false
		added, err := store.InsertNotification(ctx, s.db, n, now)
		if err != nil {
			// rows already stored count as known from now on, so they
			// are delivered before giving up
			insertErr = err
			break
		}
		if added {
			fresh = append(fresh, n)
		}
	}
	if len(fresh) == 0 {
		return 0, insertErr
	}

	unread, err := store.UnreadCount(ctx, s.db)
	if err != nil {
		s.log.Printf("[notify] unread count: %v", err)
		unread = len(fresh)
	}
	for _, n := range fresh {
		a := Alert{ID: n.ID, Kind: "notification", Title: n.Type.Title(), Body: n.Note, Badge: unread}
		if err := s.deliverer.Deliver(ctx, a); err != nil {
			s.log.Printf("[notify] deliver %s: %v", n.ID, err)
		}
	}
	if insertErr != nil {
		s.log.Printf("[notify] poll partial new=%d err=%v", len(fresh), insertErr)
		return len(fresh), insertErr
	}
	s.log.Printf("[notify] poll ok new=%d unread=%d", len(fresh), unread)
	return len(fresh), nil
}

// List returns stored notifications, newest first.
func (s *Scheduler) List(ctx context.Context) ([]domain.AppNotification, error) {
	return store.ListNotifications(ctx, s.db)
}

func (s *Scheduler) UnreadCount(ctx context.Context) (int, error) {
	return store.UnreadCount(ctx, s.db)
}

func (s *Scheduler) MarkRead(ctx context.Context, id string) error {
	ok, err := store.MarkNotificationRead(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Scheduler) MarkAllRead(ctx context.Context) error {
	_, err := store.MarkAllNotificationsRead(ctx, s.db)
	return err
}

func (s *Scheduler) ClearAll(ctx context.Context) error {
	_, err := store.ClearNotifications(ctx, s.db)
	return err
}

// ActivityLogged schedules a reminder for an upcoming interview or test. It
// is called by the sync engine after the server accepted the activity.
func (s *Scheduler) ActivityLogged(ctx context.Context, evt domain.ActivityLogged) error {
	settings := s.reminderSettings()
	if !settings.Enabled || !remindable(evt.Type) {
		return nil
	}
	y, m, d := evt.OccurredAt.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	now := s.now()
	if !start.After(now) {
		return nil
	}
	due := start.Add(-settings.Lead)
	if due.Before(now) {
		due = now
	}
	added, err := store.InsertReminder(ctx, s.db, store.Reminder{
		ApplicationID: evt.ApplicationID,
		ActivityType:  evt.Type,
		ActivityDate:  domain.FormatDate(evt.OccurredAt),
		DueAt:         due,
		Company:       evt.Company,
		Role:          evt.Role,
	})
	if err != nil {
		return err
	}
	if added {
		s.log.Printf("[notify] reminder scheduled app=%s type=%s due=%s", evt.ApplicationID, evt.Type, due.Format(time.RFC3339))
	}
	return nil
}

func (s *Scheduler) DueReminders(ctx context.Context) ([]store.Reminder, error) {
	return store.DueReminders(ctx, s.db, s.now())
}

func (s *Scheduler) PendingReminders(ctx context.Context) ([]store.Reminder, error) {
	return store.PendingReminders(ctx, s.db)
}

func (s *Scheduler) MarkReminderFired(ctx context.Context, id int64) error {
	ok, err := store.MarkReminderFired(ctx, s.db, id, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("reminder %d: %w", id, ErrNotFound)
	}
	return nil
}

// FireDueReminders delivers every due reminder and marks it fired.
func (s *Scheduler) FireDueReminders(ctx context.Context) (int, error) {
	due, err := s.DueReminders(ctx)
	if err != nil {
		return 0, err
	}
	fired := 0
	for _, r := range due {
		a := Alert{
			ID:    fmt.Sprintf("reminder-%d", r.ID),
			Kind:  "reminder",
			Title: r.ActivityType.DisplayName() + " on " + r.ActivityDate,
			Body:  reminderBody(r),
		}
		if err := s.deliverer.Deliver(ctx, a); err != nil {
			s.log.Printf("[notify] deliver reminder %d: %v", r.ID, err)
			continue
		}
		if err := s.MarkReminderFired(ctx, r.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return fired, err
		}
		fired++
	}
	return fired, nil
}

// Start polls and fires reminders every interval until ctx is done.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) error {
	return scheduler.Every(ctx, interval, "notify", func(ctx context.Context) error {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		_, pollErr := s.Poll(pctx)
		_, fireErr := s.FireDueReminders(pctx)
		if _, err := store.CleanupFiredReminders(pctx, s.db, s.now().AddDate(0, -3, 0)); err != nil {
			s.log.Printf("[notify] cleanup: %v", err)
		}
		return errors.Join(pollErr, fireErr)
	})
}

func remindable(t domain.ActivityType) bool {
	st, ok := t.AssociatedStatus()
	return ok && (st == domain.StatusInterview || st == domain.StatusTechnicalTest)
}

func reminderBody(r store.Reminder) string {
	switch {
	case r.Role != "" && r.Company != "":
		return r.Role + " at " + r.Company
	case r.Company != "":
		return r.Company
	}
	return r.Role
}
