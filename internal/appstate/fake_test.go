package appstate

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"trackra-engine/internal/domain"
	"trackra-engine/internal/gateway"
	"trackra-engine/internal/secrets"
)

// fakeGateway is an in-memory backend. Status updates and new activities are
// applied to its own copy so a reload observes them.
type fakeGateway struct {
	mu   sync.Mutex
	apps []domain.Application
	seq  int

	fetchErr          error
	createAppErr      error
	createActivityErr error
	updateStatusErr   error
	deleteErr         error

	// onCreateActivity runs before the fake answers, while the engine is
	// still in its optimistic phase.
	onCreateActivity func()

	fetchCalls  int
	statusCalls []domain.ApplicationStatus
}

var _ gateway.Client = (*fakeGateway)(nil)

func (f *fakeGateway) CheckHealth(context.Context) (bool, error) { return true, nil }

func (f *fakeGateway) Login(context.Context, string, string) (string, error) {
	return "token", nil
}

func (f *fakeGateway) FetchApplications(_ context.Context, token string) ([]domain.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if token == "" {
		return nil, gateway.Unauthenticated("fetchApplications")
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := domain.CloneApplications(f.apps)
	if out == nil {
		out = []domain.Application{}
	}
	return out, nil
}

func (f *fakeGateway) CreateApplication(_ context.Context, _ string, fields domain.ApplicationFields) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createAppErr != nil {
		return "", f.createAppErr
	}
	f.seq++
	id := fmt.Sprintf("app-%d", f.seq)
	f.apps = append(f.apps, domain.Application{
		ID:        id,
		Role:      fields.Role,
		Company:   fields.Company,
		AppliedAt: fields.AppliedAt,
		Source:    fields.Source,
		CreatedAt: time.Now().UTC(),
		Status:    domain.StatusApplied,
	})
	return id, nil
}

func (f *fakeGateway) CreateActivity(_ context.Context, _ string, appID string, typ domain.ActivityType, at time.Time, note string) (string, error) {
	if f.onCreateActivity != nil {
		f.onCreateActivity()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createActivityErr != nil {
		return "", f.createActivityErr
	}
	for i := range f.apps {
		if f.apps[i].ID != appID {
			continue
		}
		f.seq++
		id := fmt.Sprintf("act-%d", f.seq)
		f.apps[i].Activities = append([]domain.Activity{{
			ID: id, ApplicationID: appID, Type: typ, OccurredAt: at, Note: note,
		}}, f.apps[i].Activities...)
		return id, nil
	}
	return "", fmt.Errorf("%w: no application %s", gateway.ErrServerRejected, appID)
}

func (f *fakeGateway) UpdateStatus(_ context.Context, _ string, appID string, status domain.ApplicationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, status)
	if f.updateStatusErr != nil {
		return f.updateStatusErr
	}
	for i := range f.apps {
		if f.apps[i].ID == appID {
			f.apps[i].Status = status
		}
	}
	return nil
}

func (f *fakeGateway) DeleteApplication(_ context.Context, _ string, appID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.apps {
		if f.apps[i].ID == appID {
			f.apps = append(f.apps[:i], f.apps[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeGateway) FetchNotifications(context.Context, string) ([]domain.AppNotification, error) {
	return nil, nil
}

func (f *fakeGateway) setErr(target *error, err error) {
	f.mu.Lock()
	*target = err
	f.mu.Unlock()
}

type listenerFunc func(ctx context.Context, evt domain.ActivityLogged) error

func (fn listenerFunc) ActivityLogged(ctx context.Context, evt domain.ActivityLogged) error {
	return fn(ctx, evt)
}

func day(d int) time.Time {
	return time.Date(2026, 3, d, 12, 0, 0, 0, time.UTC)
}

func seedApps() []domain.Application {
	return []domain.Application{
		{ID: "a", Role: "SRE", Company: "Acme", AppliedAt: day(1), CreatedAt: day(1), Status: domain.StatusApplied},
		{ID: "b", Role: "Backend", Company: "Globex", AppliedAt: day(3), CreatedAt: day(3), Status: domain.StatusApplied,
			Activities: []domain.Activity{{ID: "b1", ApplicationID: "b", Type: domain.ActivityHRScreen, OccurredAt: day(4)}}},
		{ID: "c", Role: "Platform", Company: "Initech", AppliedAt: day(2), CreatedAt: day(2), Status: domain.StatusInterview},
	}
}

func newTestEngine(gw *fakeGateway, token string) *Engine {
	return New(Options{
		Gateway:     gw,
		Credentials: secrets.NewMemoryStore(token),
		Logger:      log.New(io.Discard, "", 0),
	})
}
