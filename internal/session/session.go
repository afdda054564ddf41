// Package session tracks whether the user is signed in and drives the login
// and logout flow against the backend and the credential store.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"trackra-engine/internal/events"
	"trackra-engine/internal/gateway"
	"trackra-engine/internal/secrets"
)

// ErrMissingCredentials is returned by Login before any network call.
var ErrMissingCredentials = errors.New("email and password are required")

type State string

const (
	StateSplash        State = "splash"
	StateLogin         State = "login"
	StateAuthenticated State = "authenticated"
)

type Logger interface {
	Printf(format string, v ...any)
}

type Options struct {
	Gateway     gateway.Client
	Credentials secrets.Store
	Hub         *events.Hub
	Logger      Logger
}

// Status is what the login screen renders.
type Status struct {
	State      State  `json:"state"`
	Email      string `json:"email,omitempty"`
	SavedEmail string `json:"savedEmail,omitempty"`
	IsLoading  bool   `json:"isLoading"`
	Error      string `json:"error,omitempty"`
}

type Manager struct {
	gw    gateway.Client
	creds secrets.Store
	hub   *events.Hub
	log   Logger

	mu      sync.Mutex
	state   State
	email   string
	loading bool
	errMsg  string
}

// New starts in the splash state, or authenticated when a token survived
// from a previous run.
func New(opts Options) *Manager {
	m := &Manager{
		gw:    opts.Gateway,
		creds: opts.Credentials,
		hub:   opts.Hub,
		log:   opts.Logger,
		state: StateSplash,
	}
	if m.log == nil {
		m.log = log.Default()
	}
	m.Restore()
	return m
}

// Restore picks up a stored token and identity.
func (m *Manager) Restore() State {
	tok, ok := m.creds.Token()
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok && tok != "" {
		m.state = StateAuthenticated
		m.email, _ = m.creds.Identity()
	}
	return m.state
}

// CheckHealth probes the backend to leave the splash screen. A failed probe
// still lands on the login screen.
func (m *Manager) CheckHealth(ctx context.Context) State {
	healthy, err := m.gw.CheckHealth(ctx)
	if err != nil {
		m.log.Printf("[session] health check failed, continuing to login: %v", err)
	}
	next := StateLogin
	if err == nil && healthy {
		if _, ok := m.creds.Token(); ok {
			next = StateAuthenticated
		}
	}
	m.set(func() {
		m.state = next
		if next == StateAuthenticated {
			m.email, _ = m.creds.Identity()
		}
	})
	return next
}

// Login exchanges credentials for a token and stores it. The identity is
// kept only when rememberMe is set. On failure nothing is stored.
func (m *Manager) Login(ctx context.Context, email, password string, rememberMe bool) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		m.set(func() { m.errMsg = ErrMissingCredentials.Error() })
		return ErrMissingCredentials
	}
	m.set(func() {
		m.loading = true
		m.errMsg = ""
	})

	token, err := m.gw.Login(ctx, email, password)
	if err == nil {
		err = m.persist(token, email, rememberMe)
	}
	if err != nil {
		m.set(func() {
			m.loading = false
			m.errMsg = gateway.Describe(err)
		})
		m.log.Printf("[session] login failed for %s: %v", email, err)
		return err
	}

	m.set(func() {
		m.loading = false
		m.email = email
		m.state = StateAuthenticated
	})
	m.log.Printf("[session] signed in as %s (token %s)", email, secrets.Mask(token))
	return nil
}

func (m *Manager) persist(token, email string, rememberMe bool) error {
	if err := m.creds.SaveToken(token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if rememberMe {
		if err := m.creds.SaveIdentity(email); err != nil {
			return fmt.Errorf("save identity: %w", err)
		}
		return nil
	}
	if err := m.creds.DeleteIdentity(); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return nil
}

// Logout forgets the token and identity.
func (m *Manager) Logout() error {
	err := m.creds.Clear()
	if err != nil {
		m.log.Printf("[session] clear credentials: %v", err)
	}
	m.set(func() {
		m.email = ""
		m.errMsg = ""
		m.state = StateLogin
	})
	return err
}

func (m *Manager) Status() Status {
	saved, _ := m.creds.Identity()
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		State:      m.state,
		Email:      m.email,
		SavedEmail: saved,
		IsLoading:  m.loading,
		Error:      m.errMsg,
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) set(fn func()) {
	m.mu.Lock()
	fn()
	st := m.state
	m.mu.Unlock()
	if m.hub != nil {
		m.hub.Publish(events.MakeEvent("", events.TypeSessionChanged, 1, map[string]State{"state": st}))
	}
}
