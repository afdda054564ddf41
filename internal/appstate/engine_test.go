package appstate

import (
	"context"
	"errors"
	"io"
	"log"
	"reflect"
	"strings"
	"testing"
	"time"

	"trackra-engine/internal/domain"
	"trackra-engine/internal/events"
	"trackra-engine/internal/gateway"
	"trackra-engine/internal/rank"
	"trackra-engine/internal/secrets"
)

func TestLoadWithoutTokenIsSilentNoOp(t *testing.T) {
	gw := &fakeGateway{apps: seedApps()}
	eng := newTestEngine(gw, "")

	if err := eng.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(eng.Applications()) != 0 {
		t.Fatalf("expected no applications")
	}
	if eng.LastError() != nil {
		t.Fatalf("expected no error, got %v", eng.LastError())
	}
	if eng.IsLoading() {
		t.Fatalf("expected not loading")
	}
	if gw.fetchCalls != 0 {
		t.Fatalf("expected no fetch, got %d", gw.fetchCalls)
	}
}

func TestLoadFailureKeepsPreviousApplications(t *testing.T) {
	gw := &fakeGateway{apps: seedApps()}
	eng := newTestEngine(gw, "token")
	ctx := context.Background()
	if err := eng.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	before := eng.Applications()

	boom := &gateway.Error{Kind: gateway.ErrUnreachable, Op: "fetchApplications", Err: errors.New("connection reset")}
	gw.setErr(&gw.fetchErr, boom)
	if err := eng.Load(ctx); !errors.Is(err, gateway.ErrUnreachable) {
		t.Fatalf("expected unreachable, got %v", err)
	}
	if !reflect.DeepEqual(before, eng.Applications()) {
		t.Fatalf("failed load clobbered applications")
	}
	if !errors.Is(eng.LastError(), gateway.ErrUnreachable) {
		t.Fatalf("expected last error to be set")
	}

	gw.setErr(&gw.fetchErr, nil)
	if err := eng.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if eng.LastError() != nil {
		t.Fatalf("refresh should clear the error")
	}
}

func TestFirstActivityDerivesStatus(t *testing.T) {
	ctx := context.Background()
	for _, typ := range domain.ActivityTypes {
		target, ok := rank.Derive(typ)
		if !ok {
			continue
		}
		gw := &fakeGateway{apps: []domain.Application{
			{ID: "a", Role: "SRE", Company: "Acme", AppliedAt: day(1), Status: domain.StatusApplied},
		}}
		eng := newTestEngine(gw, "token")
		if err := eng.Load(ctx); err != nil {
			t.Fatalf("load: %v", err)
		}
		if err := eng.CreateActivity(ctx, "a", typ, day(5), ""); err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
		app, _ := eng.Application("a")
		if app.Status != target {
			t.Fatalf("%s: expected %s, got %s", typ, target, app.Status)
		}
		if len(app.Activities) != 1 || strings.HasPrefix(app.Activities[0].ID, TempIDPrefix) {
			t.Fatalf("%s: expected the server's activity after reconcile, got %+v", typ, app.Activities)
		}
	}
}

func TestNonDerivingActivityKeepsStatus(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{apps: seedApps()}
	eng := newTestEngine(gw, "token")
	_ = eng.Load(ctx)

	if err := eng.CreateActivity(ctx, "c", domain.ActivityNote, day(9), "sent thank you"); err != nil {
		t.Fatalf("note: %v", err)
	}
	app, _ := eng.Application("c")
	if app.Status != domain.StatusInterview {
		t.Fatalf("note changed status to %s", app.Status)
	}
	if len(gw.statusCalls) != 0 {
		t.Fatalf("expected no status call, got %v", gw.statusCalls)
	}
}

func TestSameDayTieBreakIsOrderIndependent(t *testing.T) {
	cases := []struct {
		name  string
		order []domain.ActivityType
	}{
		{"offer then rejected", []domain.ActivityType{domain.ActivityOfferReceived, domain.ActivityRejected}},
		{"rejected then offer", []domain.ActivityType{domain.ActivityRejected, domain.ActivityOfferReceived}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			gw := &fakeGateway{apps: []domain.Application{
				{ID: "a", Role: "SRE", Company: "Acme", AppliedAt: day(1), Status: domain.StatusApplied},
			}}
			eng := newTestEngine(gw, "token")
			_ = eng.Load(ctx)
			for _, typ := range tc.order {
				if err := eng.CreateActivity(ctx, "a", typ, day(5), ""); err != nil {
					t.Fatalf("%s: %v", typ, err)
				}
			}
			app, _ := eng.Application("a")
			if app.Status != domain.StatusOffering {
				t.Fatalf("expected offering, got %s", app.Status)
			}
		})
	}
}

func TestOlderActivityDoesNotOverrideStatus(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{apps: []domain.Application{
		{ID: "a", AppliedAt: day(1), Status: domain.StatusInterview,
			Activities: []domain.Activity{{ID: "x", ApplicationID: "a", Type: domain.ActivityPanelInterview, OccurredAt: day(10)}}},
	}}
	eng := newTestEngine(gw, "token")
	_ = eng.Load(ctx)

	if err := eng.CreateActivity(ctx, "a", domain.ActivityTechnicalTest, day(4), ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	app, _ := eng.Application("a")
	if app.Status != domain.StatusInterview {
		t.Fatalf("backdated activity changed status to %s", app.Status)
	}
}

func TestCreateActivityFailureRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{apps: seedApps()}
	eng := newTestEngine(gw, "token")
	if err := eng.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	before := eng.Applications()

	sawOptimistic := false
	gw.onCreateActivity = func() {
		app, _ := eng.Application("b")
		sawOptimistic = eng.ProcessingID() == "b" &&
			len(app.Activities) == 2 &&
			strings.HasPrefix(app.Activities[0].ID, TempIDPrefix)
	}
	rejected := &gateway.Error{Kind: gateway.ErrServerRejected, Op: "createActivity", Message: "quota exceeded"}
	gw.setErr(&gw.createActivityErr, rejected)

	err := eng.CreateActivity(ctx, "b", domain.ActivityOfferReceived, day(6), "verbal")
	if !errors.Is(err, gateway.ErrServerRejected) {
		t.Fatalf("expected server rejected, got %v", err)
	}
	if !sawOptimistic {
		t.Fatalf("expected the optimistic activity while the call was in flight")
	}
	if !reflect.DeepEqual(before, eng.Applications()) {
		t.Fatalf("applications differ after revert:\nbefore %+v\nafter  %+v", before, eng.Applications())
	}
	if eng.ProcessingID() != "" {
		t.Fatalf("processing id not cleared")
	}
	if !errors.Is(eng.LastError(), gateway.ErrServerRejected) {
		t.Fatalf("expected last error, got %v", eng.LastError())
	}
	if eng.IsLoading() {
		t.Fatalf("still loading")
	}
}

func TestCreateActivityUnknownApplicationIsNoOp(t *testing.T) {
	gw := &fakeGateway{apps: seedApps()}
	eng := newTestEngine(gw, "token")
	_ = eng.Load(context.Background())

	if err := eng.CreateActivity(context.Background(), "missing", domain.ActivityNote, day(2), ""); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
	if eng.LastError() != nil {
		t.Fatalf("unexpected error %v", eng.LastError())
	}
}

func TestTrailingStatusFailureKeepsActivity(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{apps: seedApps()}
	eng := newTestEngine(gw, "token")
	_ = eng.Load(ctx)

	gw.setErr(&gw.updateStatusErr, &gateway.Error{Kind: gateway.ErrServerRejected, Op: "updateStatus", Message: "locked"})
	err := eng.CreateActivity(ctx, "a", domain.ActivityOfferReceived, day(7), "")
	if !errors.Is(err, gateway.ErrServerRejected) {
		t.Fatalf("expected trailing server rejected, got %v", err)
	}
	app, _ := eng.Application("a")
	if len(app.Activities) != 1 || app.Activities[0].Type != domain.ActivityOfferReceived {
		t.Fatalf("activity should stay after a failed status push: %+v", app.Activities)
	}
	if app.Status != domain.StatusApplied {
		t.Fatalf("status should be unchanged, got %s", app.Status)
	}
	if eng.LastError() == nil {
		t.Fatalf("expected trailing error in last error")
	}
}

func TestActivityListenerReceivesEvent(t *testing.T) {
	ctx := context.Background()
	got := make(chan domain.ActivityLogged, 1)
	gw := &fakeGateway{apps: seedApps()}
	eng := New(Options{
		Gateway:     gw,
		Credentials: secrets.NewMemoryStore("token"),
		Listener: listenerFunc(func(_ context.Context, evt domain.ActivityLogged) error {
			got <- evt
			return errors.New("scheduler offline")
		}),
		Logger: log.New(io.Discard, "", 0),
	})
	_ = eng.Load(ctx)

	if err := eng.CreateActivity(ctx, "a", domain.ActivityInterviewScheduled, day(20), ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	select {
	case evt := <-got:
		if evt.ApplicationID != "a" || evt.Company != "Acme" || evt.Role != "SRE" || evt.Type != domain.ActivityInterviewScheduled {
			t.Fatalf("unexpected event %+v", evt)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("listener not called")
	}
	if eng.LastError() != nil {
		t.Fatalf("listener failure must not reach the engine: %v", eng.LastError())
	}
}

func TestUpdateStatusRollback(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{apps: seedApps()}
	eng := newTestEngine(gw, "token")
	_ = eng.Load(ctx)
	before := eng.Applications()

	gw.setErr(&gw.updateStatusErr, &gateway.Error{Kind: gateway.ErrUnreachable, Op: "updateStatus", Err: errors.New("timeout")})
	if err := eng.UpdateStatus(ctx, "c", domain.StatusWithdrawn); !errors.Is(err, gateway.ErrUnreachable) {
		t.Fatalf("expected unreachable, got %v", err)
	}
	if !reflect.DeepEqual(before, eng.Applications()) {
		t.Fatalf("status not reverted")
	}

	gw.setErr(&gw.updateStatusErr, nil)
	if err := eng.UpdateStatus(ctx, "c", domain.StatusWithdrawn); err != nil {
		t.Fatalf("update: %v", err)
	}
	app, _ := eng.Application("c")
	if app.Status != domain.StatusWithdrawn {
		t.Fatalf("expected withdrawn, got %s", app.Status)
	}
	if eng.SuccessMessage() != "Status updated to Withdrawn" {
		t.Fatalf("unexpected success message %q", eng.SuccessMessage())
	}
}

func TestDeleteFailureRestoresOriginalIndex(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{apps: seedApps()}
	eng := newTestEngine(gw, "token")
	_ = eng.Load(ctx)
	if err := eng.Select("b"); err != nil {
		t.Fatalf("select: %v", err)
	}
	before := eng.Applications()

	gw.setErr(&gw.deleteErr, &gateway.Error{Kind: gateway.ErrServerRejected, Op: "deleteApplication", Message: "nope"})
	if err := eng.DeleteApplication(ctx, "b"); err == nil {
		t.Fatalf("expected error")
	}
	if !reflect.DeepEqual(before, eng.Applications()) {
		t.Fatalf("expected original order restored, got %+v", eng.Applications())
	}
	if eng.SelectedID() != "b" {
		t.Fatalf("selection should be restored, got %q", eng.SelectedID())
	}
}

func TestDeleteClearsSelection(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{apps: seedApps()}
	eng := newTestEngine(gw, "token")
	_ = eng.Load(ctx)
	_ = eng.Select("a")

	if err := eng.DeleteApplication(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if eng.SelectedID() != "" {
		t.Fatalf("selection not cleared")
	}
	if _, ok := eng.SelectedApplication(); ok {
		t.Fatalf("selected application should be gone")
	}
	if len(eng.Applications()) != 2 {
		t.Fatalf("expected two applications left")
	}
	if gw.fetchCalls != 1 {
		t.Fatalf("delete should not reload, fetches=%d", gw.fetchCalls)
	}
}

func TestMutationsRequireToken(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(&fakeGateway{}, "")

	if _, err := eng.CreateApplication(ctx, domain.ApplicationFields{Role: "SRE", Company: "Acme", AppliedAt: day(1)}); !errors.Is(err, gateway.ErrUnauthenticated) {
		t.Fatalf("create application: %v", err)
	}
	if !errors.Is(eng.LastError(), gateway.ErrUnauthenticated) {
		t.Fatalf("expected last error set")
	}
	if err := eng.CreateActivity(ctx, "a", domain.ActivityNote, day(1), ""); !errors.Is(err, gateway.ErrUnauthenticated) {
		t.Fatalf("create activity: %v", err)
	}
	if err := eng.UpdateStatus(ctx, "a", domain.StatusRejected); !errors.Is(err, gateway.ErrUnauthenticated) {
		t.Fatalf("update status: %v", err)
	}
	if err := eng.DeleteApplication(ctx, "a"); !errors.Is(err, gateway.ErrUnauthenticated) {
		t.Fatalf("delete: %v", err)
	}
}

func TestCreateApplicationReloads(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{}
	eng := newTestEngine(gw, "token")

	id, err := eng.CreateApplication(ctx, domain.ApplicationFields{Role: "SRE", Company: "Acme", AppliedAt: day(2)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	app, ok := eng.Application(id)
	if !ok || app.Company != "Acme" || app.Status != domain.StatusApplied {
		t.Fatalf("expected reloaded application, got %+v ok=%v", app, ok)
	}

	if _, err := eng.CreateApplication(ctx, domain.ApplicationFields{Company: "Acme"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestSnapshotIsSortedAndIsolated(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{apps: seedApps()}
	eng := newTestEngine(gw, "token")
	_ = eng.Load(ctx)
	_ = eng.Select("c")

	snap := eng.Snapshot()
	var ids []string
	for _, a := range snap.Applications {
		ids = append(ids, a.ID)
	}
	if strings.Join(ids, ",") != "b,c,a" {
		t.Fatalf("unexpected order %v", ids)
	}
	if snap.Selected == nil || snap.Selected.ID != "c" {
		t.Fatalf("expected selected c")
	}
	snap.Applications[0].Activities[0].Note = "mutated"
	if again := eng.SortedApplications(); again[0].Activities[0].Note == "mutated" {
		t.Fatalf("snapshot shares memory with engine state")
	}
	if err := eng.Select("nope"); !errors.Is(err, ErrUnknownApplication) {
		t.Fatalf("expected unknown application, got %v", err)
	}
}

func TestSubscribeSeesStateChanges(t *testing.T) {
	gw := &fakeGateway{apps: seedApps()}
	eng := newTestEngine(gw, "token")
	ch, cancel := eng.Subscribe()
	defer cancel()

	_ = eng.Load(context.Background())
	select {
	case msg := <-ch:
		e, err := events.Parse(msg)
		if err != nil || e.Type != events.TypeStateChanged {
			t.Fatalf("unexpected event %q (%v)", msg, err)
		}
	case <-time.After(time.Second):
		t.Fatalf("no event published")
	}
}

func TestResetDropsState(t *testing.T) {
	gw := &fakeGateway{apps: seedApps()}
	eng := newTestEngine(gw, "token")
	_ = eng.Load(context.Background())
	_ = eng.Select("a")
	eng.Reset()
	if len(eng.Applications()) != 0 || eng.SelectedID() != "" {
		t.Fatalf("reset left state behind")
	}
}

// disconnectingGateway cancels the caller's context as soon as the server
// accepts the activity, the way a closed UI connection would, and fails
// later calls made on a cancelled context.
type disconnectingGateway struct {
	*fakeGateway
	cancel context.CancelFunc
}

func (g *disconnectingGateway) CreateActivity(ctx context.Context, token, appID string, typ domain.ActivityType, at time.Time, note string) (string, error) {
	id, err := g.fakeGateway.CreateActivity(ctx, token, appID, typ, at, note)
	g.cancel()
	return id, err
}

func (g *disconnectingGateway) UpdateStatus(ctx context.Context, token, appID string, status domain.ApplicationStatus) error {
	if err := ctx.Err(); err != nil {
		return &gateway.Error{Kind: gateway.ErrUnreachable, Op: "updateStatus", Err: err}
	}
	return g.fakeGateway.UpdateStatus(ctx, token, appID, status)
}

func (g *disconnectingGateway) FetchApplications(ctx context.Context, token string) ([]domain.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, &gateway.Error{Kind: gateway.ErrUnreachable, Op: "fetchApplications", Err: err}
	}
	return g.fakeGateway.FetchApplications(ctx, token)
}

func TestCreateActivityFinishesAfterCallerCancels(t *testing.T) {
	inner := &fakeGateway{apps: seedApps()}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gw := &disconnectingGateway{fakeGateway: inner, cancel: cancel}
	eng := New(Options{
		Gateway:     gw,
		Credentials: secrets.NewMemoryStore("token"),
		Logger:      log.New(io.Discard, "", 0),
	})
	if err := eng.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := eng.CreateActivity(ctx, "a", domain.ActivityOfferReceived, day(8), ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(inner.statusCalls) != 1 || inner.statusCalls[0] != domain.StatusOffering {
		t.Fatalf("status push skipped after cancel: %v", inner.statusCalls)
	}
	app, _ := eng.Application("a")
	if app.Status != domain.StatusOffering {
		t.Fatalf("expected offering, got %s", app.Status)
	}
	if len(app.Activities) != 1 || strings.HasPrefix(app.Activities[0].ID, TempIDPrefix) {
		t.Fatalf("temporary activity not reconciled: %+v", app.Activities)
	}
	if eng.LastError() != nil || eng.IsLoading() || eng.ProcessingID() != "" {
		t.Fatalf("state not settled: err=%v loading=%v processing=%q", eng.LastError(), eng.IsLoading(), eng.ProcessingID())
	}
}

func TestUpdateStatusKeepsOtherRecordProcessing(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{apps: seedApps()}
	eng := newTestEngine(gw, "token")
	_ = eng.Load(ctx)

	var during string
	gw.onCreateActivity = func() {
		if err := eng.UpdateStatus(ctx, "c", domain.StatusWithdrawn); err != nil {
			t.Errorf("update: %v", err)
		}
		during = eng.ProcessingID()
	}
	if err := eng.CreateActivity(ctx, "a", domain.ActivityNote, day(9), "ping"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if during != "a" {
		t.Fatalf("processing mark moved off the in-flight record: %q", during)
	}
	if eng.ProcessingID() != "" {
		t.Fatalf("processing id not cleared: %q", eng.ProcessingID())
	}
}
