package session

import (
	"context"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/oakline/storefront-core/internal/gateway"
)

type memoryTokenStore struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemoryTokenStore() *memoryTokenStore {
	return &memoryTokenStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryTokenStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryTokenStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return "", redislib.Nil
}

func (m *memoryTokenStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

type prefixKeyer struct{}

func (prefixKeyer) SessionKey(sessionID string) string { return "test:session:" + sessionID }

func newTestStore() (*Store, *memoryTokenStore) {
	mem := newMemoryTokenStore()
	return &Store{store: mem, keyer: prefixKeyer{}, ttl: time.Hour}, mem
}

func TestCreateLookupRoundTrip(t *testing.T) {
	store, mem := newTestStore()
	creds := gateway.Credentials{AccessToken: "access", RefreshToken: "refresh"}

	id, err := store.Create(context.Background(), creds)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty session id")
	}
	if mem.ttls["test:session:"+id] != time.Hour {
		t.Fatal("expected ttl applied")
	}

	got, err := store.Lookup(context.Background(), id)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got != creds {
		t.Fatalf("expected %+v got %+v", creds, got)
	}
}

func TestCreateRequiresAccessToken(t *testing.T) {
	store, _ := newTestStore()
	if _, err := store.Create(context.Background(), gateway.Credentials{}); err == nil {
		t.Fatal("expected error without access token")
	}
}

func TestLookupMissingSession(t *testing.T) {
	store, _ := newTestStore()
	if _, err := store.Lookup(context.Background(), "nope"); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRevokeRemovesSession(t *testing.T) {
	store, _ := newTestStore()
	id, err := store.Create(context.Background(), gateway.Credentials{AccessToken: "access"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.Revoke(context.Background(), id); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := store.Lookup(context.Background(), id); err != ErrSessionNotFound {
		t.Fatalf("expected session gone, got %v", err)
	}
}

func TestSessionIDsAreUnique(t *testing.T) {
	store, _ := newTestStore()
	seen := map[string]bool{}
	for i := 0; i < 16; i++ {
		id, err := store.Create(context.Background(), gateway.Credentials{AccessToken: "access"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if seen[id] {
			t.Fatal("duplicate session id generated")
		}
		seen[id] = true
	}
}
