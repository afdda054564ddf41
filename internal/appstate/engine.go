// Package appstate is the application sync engine. It owns the local
// collection of applications, applies user intents optimistically, and
// reconciles with the backend or reverts when a call fails.
package appstate

import (
	"context"
	"errors"
	"log"
	"sync"

	"trackra-engine/internal/domain"
	"trackra-engine/internal/events"
	"trackra-engine/internal/gateway"
	"trackra-engine/internal/rank"
	"trackra-engine/internal/secrets"
)

// TempIDPrefix marks activities that exist only locally while their create
// call is in flight.
const TempIDPrefix = "local-"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnknownApplication = errors.New("unknown application")
)

type Logger interface {
	Printf(format string, v ...any)
}

// ActivityListener is told about every activity the server accepted. It runs
// detached from the engine; its errors are logged only.
type ActivityListener interface {
	ActivityLogged(ctx context.Context, evt domain.ActivityLogged) error
}

type Options struct {
	Gateway     gateway.Client
	Credentials secrets.Store
	Listener    ActivityListener
	// Hub receives state_changed and activity_logged events. A private hub
	// is created when nil.
	Hub    *events.Hub
	Logger Logger
}

type Engine struct {
	gw       gateway.Client
	creds    secrets.Store
	listener ActivityListener
	hub      *events.Hub
	log      Logger

	mu           sync.RWMutex
	apps         []domain.Application
	selectedID   string
	loading      int
	lastErr      error
	processingID string
	success      string

	locksMu sync.Mutex
	locks   map[string]*recordLock
}

type recordLock struct {
	mu   sync.Mutex
	refs int
}

func New(opts Options) *Engine {
	e := &Engine{
		gw:       opts.Gateway,
		creds:    opts.Credentials,
		listener: opts.Listener,
		hub:      opts.Hub,
		log:      opts.Logger,
		locks:    make(map[string]*recordLock),
	}
	if e.hub == nil {
		e.hub = events.NewHub()
	}
	if e.log == nil {
		e.log = log.Default()
	}
	return e
}

// Snapshot is a consistent read of the whole state. Applications are in
// display order.
type Snapshot struct {
	Applications   []domain.Application `json:"applications"`
	SelectedID     string               `json:"selectedId,omitempty"`
	Selected       *domain.Application  `json:"selectedApplication,omitempty"`
	IsLoading      bool                 `json:"isLoading"`
	LastError      string               `json:"lastError,omitempty"`
	ProcessingID   string               `json:"processingId,omitempty"`
	SuccessMessage string               `json:"successMessage,omitempty"`
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := Snapshot{
		Applications:   rank.ByRecentActivity(e.apps),
		SelectedID:     e.selectedID,
		IsLoading:      e.loading > 0,
		LastError:      gateway.Describe(e.lastErr),
		ProcessingID:   e.processingID,
		SuccessMessage: e.success,
	}
	if s.Applications == nil {
		s.Applications = []domain.Application{}
	}
	if i := e.indexOf(e.selectedID); i >= 0 {
		sel := e.apps[i].Clone()
		s.Selected = &sel
	}
	return s
}

// Applications returns the collection in source order.
func (e *Engine) Applications() []domain.Application {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return domain.CloneApplications(e.apps)
}

// SortedApplications orders by latest activity (or applied date), most
// recent first.
func (e *Engine) SortedApplications() []domain.Application {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return rank.ByRecentActivity(e.apps)
}

func (e *Engine) Application(id string) (domain.Application, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	i := e.indexOf(id)
	if i < 0 {
		return domain.Application{}, false
	}
	return e.apps[i].Clone(), true
}

func (e *Engine) SelectedApplication() (domain.Application, bool) {
	e.mu.RLock()
	id := e.selectedID
	e.mu.RUnlock()
	if id == "" {
		return domain.Application{}, false
	}
	return e.Application(id)
}

func (e *Engine) SelectedID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.selectedID
}

func (e *Engine) IsLoading() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loading > 0
}

func (e *Engine) LastError() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastErr
}

func (e *Engine) ProcessingID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.processingID
}

func (e *Engine) SuccessMessage() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.success
}

// Subscribe delivers an encoded event after every state change. Call cancel
// when done.
func (e *Engine) Subscribe() (<-chan string, func()) {
	return e.hub.Subscribe()
}

// update runs fn under the state lock and publishes a state_changed event
// when fn reports a change.
func (e *Engine) update(reason string, fn func() bool) {
	e.mu.Lock()
	changed := fn()
	e.mu.Unlock()
	if changed {
		e.hub.Publish(events.MakeEvent("", events.TypeStateChanged, 1, map[string]string{"reason": reason}))
	}
}

// indexOf must be called with e.mu held.
func (e *Engine) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range e.apps {
		if e.apps[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) token() (string, bool) {
	if e.creds == nil {
		return "", false
	}
	tok, ok := e.creds.Token()
	if !ok || tok == "" {
		return "", false
	}
	return tok, true
}

// lockRecord serializes mutations on one application for their whole
// optimistic, await, reconcile sequence.
func (e *Engine) lockRecord(id string) func() {
	e.locksMu.Lock()
	l := e.locks[id]
	if l == nil {
		l = &recordLock{}
		e.locks[id] = l
	}
	l.refs++
	e.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, id)
		}
		e.locksMu.Unlock()
	}
}

func (e *Engine) fail(reason string, err error) error {
	e.update(reason, func() bool {
		e.lastErr = err
		return true
	})
	return err
}
