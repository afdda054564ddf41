package secrets

import (
	"errors"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	// DefaultService groups the app's secrets in the OS keychain.
	DefaultService = "co.kamy.Trackra"

	tokenAccount    = "apiKey"
	identityAccount = "userEmail"
)

// Store holds the session token and the remembered identity. Both survive
// process restarts in the keychain implementation.
type Store interface {
	Token() (string, bool)
	Identity() (string, bool)
	SaveToken(token string) error
	SaveIdentity(identity string) error
	DeleteIdentity() error
	Clear() error
}

type KeyringStore struct {
	service string
}

func NewKeyringStore(service string) *KeyringStore {
	if strings.TrimSpace(service) == "" {
		service = DefaultService
	}
	return &KeyringStore{service: service}
}

func (k *KeyringStore) Token() (string, bool) {
	return k.get(tokenAccount)
}

func (k *KeyringStore) Identity() (string, bool) {
	return k.get(identityAccount)
}

func (k *KeyringStore) SaveToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("token is empty")
	}
	return keyring.Set(k.service, tokenAccount, token)
}

func (k *KeyringStore) SaveIdentity(identity string) error {
	if strings.TrimSpace(identity) == "" {
		return errors.New("identity is empty")
	}
	return keyring.Set(k.service, identityAccount, identity)
}

func (k *KeyringStore) DeleteIdentity() error {
	return k.delete(identityAccount)
}

func (k *KeyringStore) Clear() error {
	return errors.Join(k.delete(tokenAccount), k.delete(identityAccount))
}

func (k *KeyringStore) get(account string) (string, bool) {
	v, err := keyring.Get(k.service, account)
	if err != nil || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

func (k *KeyringStore) delete(account string) error {
	err := keyring.Delete(k.service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// MemoryStore keeps credentials for the life of the process. Used by tests
// and by the terminal client when no keychain is available.
type MemoryStore struct {
	mu       sync.Mutex
	token    string
	identity string
}

func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (m *MemoryStore) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, strings.TrimSpace(m.token) != ""
}

func (m *MemoryStore) Identity() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity, m.identity != ""
}

func (m *MemoryStore) SaveToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("token is empty")
	}
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) SaveIdentity(identity string) error {
	if strings.TrimSpace(identity) == "" {
		return errors.New("identity is empty")
	}
	m.mu.Lock()
	m.identity = identity
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeleteIdentity() error {
	m.mu.Lock()
	m.identity = ""
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	m.token, m.identity = "", ""
	m.mu.Unlock()
	return nil
}

// Mask shortens a secret for log lines.
func Mask(s string) string {
	if len(s) <= 10 {
		return "****"
	}
	return s[:4] + "…" + s[len(s)-4:]
}
