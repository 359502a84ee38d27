package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/oakline/storefront-core/internal/gateway"
)

type stubAuth struct {
	session *gateway.Session
	err     error
}

func (s *stubAuth) SignIn(context.Context, string, string) (gateway.Credentials, error) {
	return gateway.Credentials{}, errors.New("not implemented")
}

func (s *stubAuth) SignOut(context.Context, string) error { return nil }

func (s *stubAuth) CurrentSession(context.Context, string) (*gateway.Session, error) {
	return s.session, s.err
}

func TestRestoreDeliversInitialStateOnce(t *testing.T) {
	userID := uuid.New()
	tr := NewTracker(&stubAuth{session: &gateway.Session{UserID: userID}}, nil)

	var calls []*Identity
	tr.OnChange(func(id *Identity) {
		calls = append(calls, id)
	})

	if len(calls) != 0 {
		t.Fatal("expected no delivery before restore completes")
	}

	tr.Restore(context.Background(), "token")

	if len(calls) != 1 {
		t.Fatalf("expected one delivery, got %d", len(calls))
	}
	if calls[0] == nil || calls[0].UserID != userID {
		t.Fatalf("unexpected identity %v", calls[0])
	}
	if tr.Current() == nil || tr.Current().UserID != userID {
		t.Fatal("expected current identity after restore")
	}
}

func TestRestoreFailsClosed(t *testing.T) {
	tr := NewTracker(&stubAuth{err: errors.New("auth unreachable")}, nil)

	tr.Restore(context.Background(), "token")

	if tr.Current() != nil {
		t.Fatal("expected signed-out identity when session check fails")
	}
}

func TestOnChangeAfterRestoreDeliversImmediately(t *testing.T) {
	tr := NewTracker(&stubAuth{}, nil)
	tr.Restore(context.Background(), "")

	fired := 0
	tr.OnChange(func(id *Identity) {
		fired++
		if id != nil {
			t.Fatalf("expected nil identity, got %v", id)
		}
	})

	if fired != 1 {
		t.Fatalf("expected immediate delivery, got %d", fired)
	}
}

func TestSameIdentityDoesNotRefire(t *testing.T) {
	tr := NewTracker(&stubAuth{}, nil)
	identity := Identity{UserID: uuid.New()}

	fired := 0
	tr.OnChange(func(*Identity) { fired++ })

	tr.SetSignedIn(identity)
	tr.SetSignedIn(identity)
	tr.SetSignedOut()
	tr.SetSignedOut()

	if fired != 2 {
		t.Fatalf("expected two transitions, got %d", fired)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	tr := NewTracker(&stubAuth{}, nil)

	fired := 0
	unsub := tr.OnChange(func(*Identity) { fired++ })
	unsub()

	tr.SetSignedIn(Identity{UserID: uuid.New()})

	if fired != 0 {
		t.Fatalf("expected no delivery after unsubscribe, got %d", fired)
	}
}
