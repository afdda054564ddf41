package appstate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"trackra-engine/internal/domain"
	"trackra-engine/internal/events"
	"trackra-engine/internal/gateway"
	"trackra-engine/internal/rank"
)

// Load replaces the collection with the server's. Without a token it does
// nothing. On failure the previous collection is kept.
func (e *Engine) Load(ctx context.Context) error {
	token, ok := e.token()
	if !ok {
		return nil
	}
	e.update("load_started", func() bool {
		e.loading++
		e.lastErr = nil
		return true
	})

	apps, err := e.gw.FetchApplications(ctx, token)

	e.update("loaded", func() bool {
		e.loading--
		if err != nil {
			e.lastErr = err
			return true
		}
		e.apps = apps
		return true
	})
	if err != nil {
		e.log.Printf("[sync] load failed: %v", err)
	}
	return err
}

// Refresh clears the last error and reloads.
func (e *Engine) Refresh(ctx context.Context) error {
	e.update("refresh", func() bool {
		e.lastErr = nil
		return true
	})
	return e.Load(ctx)
}

// CreateApplication submits a new application and reloads to pick up the
// server-assigned id and computed fields. It returns the new id.
func (e *Engine) CreateApplication(ctx context.Context, fields domain.ApplicationFields) (string, error) {
	const op = "createApplication"
	token, ok := e.token()
	if !ok {
		return "", e.fail(op, gateway.Unauthenticated(op))
	}
	if err := fields.Validate(); err != nil {
		return "", e.fail(op, fmt.Errorf("%w: %w", ErrInvalidInput, err))
	}

	e.update("create_started", func() bool {
		e.loading++
		e.lastErr = nil
		return true
	})

	id, err := e.gw.CreateApplication(ctx, token, fields)
	if err == nil {
		err = e.Load(context.WithoutCancel(ctx))
	}

	e.update("created", func() bool {
		e.loading--
		if err != nil {
			e.lastErr = err
			return true
		}
		e.success = "Application added successfully!"
		return true
	})
	if err != nil {
		return id, err
	}
	e.log.Printf("[sync] created application %s (%s at %s)", id, fields.Role, fields.Company)
	return id, nil
}

// CreateActivity logs an activity on an existing application. The activity
// shows up immediately under a temporary id; if the server rejects it the
// application is restored exactly. When the new activity outranks the
// application's timeline and implies a different status, the status is
// pushed too; a failure of that second call is returned but the activity
// stays.
func (e *Engine) CreateActivity(ctx context.Context, applicationID string, typ domain.ActivityType, occurredAt time.Time, note string) error {
	const op = "createActivity"
	token, ok := e.token()
	if !ok {
		return e.fail(op, gateway.Unauthenticated(op))
	}
	if !typ.Valid() {
		return e.fail(op, fmt.Errorf("%w: unknown activity type %q", ErrInvalidInput, string(typ)))
	}

	unlock := e.lockRecord(applicationID)
	defer unlock()

	var original domain.Application
	found := false
	e.update("activity_pending", func() bool {
		i := e.indexOf(applicationID)
		if i < 0 {
			return false
		}
		found = true
		original = e.apps[i].Clone()

		pending := e.apps[i].Clone()
		pending.Activities = append([]domain.Activity{{
			ID:            TempIDPrefix + uuid.NewString(),
			ApplicationID: applicationID,
			Type:          typ,
			OccurredAt:    occurredAt,
			Note:          note,
		}}, pending.Activities...)
		e.apps[i] = pending
		e.processingID = applicationID
		e.loading++
		e.lastErr = nil
		return true
	})
	if !found {
		return nil
	}

	id, err := e.gw.CreateActivity(ctx, token, applicationID, typ, occurredAt, note)
	if err != nil {
		e.update("activity_reverted", func() bool {
			if i := e.indexOf(applicationID); i >= 0 {
				e.apps[i] = original
			}
			if e.processingID == applicationID {
				e.processingID = ""
			}
			e.loading--
			e.lastErr = err
			return true
		})
		e.log.Printf("[sync] activity on %s reverted: %v", applicationID, err)
		return err
	}

	// The server has the activity now; the status push and the reload must
	// finish even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	logged := domain.Activity{ID: id, ApplicationID: applicationID, Type: typ, OccurredAt: occurredAt, Note: note}
	var trailing error
	if target, ok := rank.StatusUpdateFor(logged, original.Status, original.Activities); ok {
		if err := e.gw.UpdateStatus(ctx, token, applicationID, target); err != nil {
			trailing = fmt.Errorf("activity saved but status change to %s failed: %w", target, err)
			e.log.Printf("[sync] %v", trailing)
		}
	}

	e.activityLogged(domain.ActivityLogged{
		ApplicationID: applicationID,
		Type:          typ,
		OccurredAt:    occurredAt,
		Company:       original.Company,
		Role:          original.Role,
	})

	result := errors.Join(trailing, e.Load(ctx))

	e.update("activity_logged", func() bool {
		if e.processingID == applicationID {
			e.processingID = ""
		}
		e.loading--
		if result != nil {
			e.lastErr = result
			return true
		}
		e.success = successMessageFor(typ)
		return true
	})
	return result
}

// UpdateStatus writes the status locally, pushes it, and reloads. On
// failure the application is restored.
func (e *Engine) UpdateStatus(ctx context.Context, applicationID string, status domain.ApplicationStatus) error {
	const op = "updateStatus"
	token, ok := e.token()
	if !ok {
		return e.fail(op, gateway.Unauthenticated(op))
	}
	if !status.Valid() {
		return e.fail(op, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, string(status)))
	}

	unlock := e.lockRecord(applicationID)
	defer unlock()

	var original domain.Application
	found := false
	e.update("status_pending", func() bool {
		i := e.indexOf(applicationID)
		if i < 0 {
			return false
		}
		found = true
		original = e.apps[i].Clone()
		pending := e.apps[i].Clone()
		pending.Status = status
		e.apps[i] = pending
		// an in-flight activity on another record keeps its mark
		if e.processingID == "" {
			e.processingID = applicationID
		}
		e.lastErr = nil
		return true
	})
	if !found {
		return nil
	}

	err := e.gw.UpdateStatus(ctx, token, applicationID, status)
	if err != nil {
		e.update("status_reverted", func() bool {
			if i := e.indexOf(applicationID); i >= 0 {
				e.apps[i] = original
			}
			if e.processingID == applicationID {
				e.processingID = ""
			}
			e.lastErr = err
			return true
		})
		e.log.Printf("[sync] status change on %s reverted: %v", applicationID, err)
		return err
	}

	err = e.Load(context.WithoutCancel(ctx))
	e.update("status_updated", func() bool {
		if e.processingID == applicationID {
			e.processingID = ""
		}
		if err == nil {
			e.success = "Status updated to " + status.DisplayName()
		}
		return true
	})
	return err
}

// DeleteApplication removes the application locally, then on the server. A
// failed delete puts it back at its original position.
func (e *Engine) DeleteApplication(ctx context.Context, applicationID string) error {
	const op = "deleteApplication"
	token, ok := e.token()
	if !ok {
		return e.fail(op, gateway.Unauthenticated(op))
	}

	unlock := e.lockRecord(applicationID)
	defer unlock()

	var (
		removed     domain.Application
		index       = -1
		wasSelected bool
	)
	e.update("delete_pending", func() bool {
		index = e.indexOf(applicationID)
		if index < 0 {
			return false
		}
		removed = e.apps[index].Clone()
		e.apps = slices.Delete(slices.Clone(e.apps), index, index+1)
		if e.selectedID == applicationID {
			e.selectedID = ""
			wasSelected = true
		}
		e.lastErr = nil
		return true
	})
	if index < 0 {
		return nil
	}

	if err := e.gw.DeleteApplication(ctx, token, applicationID); err != nil {
		e.update("delete_reverted", func() bool {
			if e.indexOf(applicationID) < 0 {
				at := min(index, len(e.apps))
				e.apps = slices.Insert(slices.Clone(e.apps), at, removed)
			}
			if wasSelected && e.selectedID == "" {
				e.selectedID = applicationID
			}
			e.lastErr = err
			return true
		})
		e.log.Printf("[sync] delete of %s reverted: %v", applicationID, err)
		return err
	}

	e.update("deleted", func() bool {
		e.success = "Application deleted successfully"
		return true
	})
	return nil
}

// Select points the selection at id. An empty id clears it.
func (e *Engine) Select(id string) error {
	var err error
	e.update("selected", func() bool {
		if id != "" && e.indexOf(id) < 0 {
			err = fmt.Errorf("%w: %s", ErrUnknownApplication, id)
			return false
		}
		if e.selectedID == id {
			return false
		}
		e.selectedID = id
		return true
	})
	return err
}

// Reset drops all state, used after logout.
func (e *Engine) Reset() {
	e.update("reset", func() bool {
		e.apps = nil
		e.selectedID = ""
		e.lastErr = nil
		e.processingID = ""
		e.success = ""
		return true
	})
}

// DismissMessages clears the error and success slots.
func (e *Engine) DismissMessages() {
	e.update("dismissed", func() bool {
		changed := e.lastErr != nil || e.success != ""
		e.lastErr = nil
		e.success = ""
		return changed
	})
}

func (e *Engine) activityLogged(evt domain.ActivityLogged) {
	e.hub.Publish(events.MakeEvent("", events.TypeActivityLogged, 1, evt))
	if e.listener == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.log.Printf("[sync] activity listener panic: %v", r)
			}
		}()
		if err := e.listener.ActivityLogged(context.Background(), evt); err != nil {
			e.log.Printf("[sync] activity listener: %v", err)
		}
	}()
}

func successMessageFor(t domain.ActivityType) string {
	switch t {
	case domain.ActivityInterviewScheduled:
		return "Interview scheduled successfully!"
	case domain.ActivityInterviewDone:
		return "Interview marked as done!"
	case domain.ActivityFollowUp:
		return "Follow-up added successfully!"
	case domain.ActivityOfferReceived:
		return "Offer received! Congratulations!"
	case domain.ActivityRejected:
		return "Application marked as rejected"
	case domain.ActivityNote:
		return "Note added successfully!"
	}
	return t.DisplayName() + " added successfully!"
}
