package secrets

import (
	"testing"

	"github.com/zalando/go-keyring"
)

func TestKeyringStoreRoundTrip(t *testing.T) {
	keyring.MockInit()
	s := NewKeyringStore("")

	if _, ok := s.Token(); ok {
		t.Fatalf("expected no token on a fresh keychain")
	}
	if err := s.SaveToken("key_abc"); err != nil {
		t.Fatalf("save token: %v", err)
	}
	if err := s.SaveIdentity("me@example.com"); err != nil {
		t.Fatalf("save identity: %v", err)
	}
	if tok, ok := s.Token(); !ok || tok != "key_abc" {
		t.Fatalf("unexpected token %q %v", tok, ok)
	}
	if id, ok := s.Identity(); !ok || id != "me@example.com" {
		t.Fatalf("unexpected identity %q %v", id, ok)
	}

	if err := s.DeleteIdentity(); err != nil {
		t.Fatalf("delete identity: %v", err)
	}
	if _, ok := s.Identity(); ok {
		t.Fatalf("identity should be gone")
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("clear should ignore missing entries: %v", err)
	}
	if _, ok := s.Token(); ok {
		t.Fatalf("token should be gone")
	}
}

func TestSaveRejectsEmptyValues(t *testing.T) {
	keyring.MockInit()
	s := NewKeyringStore("test")
	if err := s.SaveToken("  "); err == nil {
		t.Fatalf("expected error for empty token")
	}
	m := NewMemoryStore("")
	if err := m.SaveIdentity(""); err == nil {
		t.Fatalf("expected error for empty identity")
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore("tok")
	if tok, ok := m.Token(); !ok || tok != "tok" {
		t.Fatalf("unexpected token %q", tok)
	}
	_ = m.Clear()
	if _, ok := m.Token(); ok {
		t.Fatalf("expected cleared token")
	}
}

func TestMask(t *testing.T) {
	if Mask("short") != "****" {
		t.Fatalf("short secrets must be fully masked")
	}
	if got := Mask("abcdefghijklmnop"); got != "abcd…mnop" {
		t.Fatalf("got %q", got)
	}
}
