package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/oakline/storefront-core/pkg/config"
	pkgerrors "github.com/oakline/storefront-core/pkg/errors"
)

func testClient(t *testing.T, server *httptest.Server, secret string) *Client {
	t.Helper()
	t.Cleanup(server.Close)
	client, err := New(config.GatewayConfig{
		BaseURL:       server.URL,
		AnonKey:       "anon-key",
		Timeout:       2 * time.Second,
		ReadRetries:   2,
		RetryBackoff:  time.Millisecond,
		JWTSecret:     secret,
		SessionLeeway: time.Second,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(config.GatewayConfig{}); err == nil {
		t.Fatal("expected error for missing base url")
	}
}

func TestFetchCartLinesMapsRows(t *testing.T) {
	userID := uuid.New()
	lineID := uuid.New()
	productID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/cart_lines" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("user_id"); got != "eq."+userID.String() {
			t.Errorf("unexpected user filter %q", got)
		}
		if got := r.Header.Get("apikey"); got != "anon-key" {
			t.Errorf("unexpected apikey header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{
			"id": "` + lineID.String() + `",
			"product_id": "` + productID.String() + `",
			"variant_id": null,
			"quantity": 3,
			"product": {
				"id": "` + productID.String() + `",
				"name": "Walnut Side Table",
				"slug": "walnut-side-table",
				"base_price": 120.00,
				"sale_price": 99.50,
				"image_url": "https://cdn.example/side-table.jpg"
			}
		}]`))
	}))
	defer server.Close()

	client := testClient(t, server, "secret")
	lines, err := client.FetchCartLines(context.Background(), userID)
	if err != nil {
		t.Fatalf("FetchCartLines returned error: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	line := lines[0]
	if line.ID != lineID || line.ProductID != productID || line.Quantity != 3 {
		t.Fatalf("line mapped incorrectly: %+v", line)
	}
	if line.Product.Name != "Walnut Side Table" {
		t.Fatalf("unexpected product name %q", line.Product.Name)
	}
	if got := line.Product.EffectivePrice().StringFixed(2); got != "99.50" {
		t.Fatalf("expected sale price to win, got %s", got)
	}
}

func TestFetchCartLinesRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := testClient(t, server, "secret")
	if _, err := client.FetchCartLines(context.Background(), uuid.New()); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestFetchCartLinesDoesNotRetryRejections(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := testClient(t, server, "secret")
	_, err := client.FetchCartLines(context.Background(), uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeRemoteRead) {
		t.Fatalf("expected remote read failure, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestInsertCartLineReturnsRepresentation(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	lineID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("Prefer"); got != "return=representation" {
			t.Errorf("unexpected Prefer header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[{
			"id": "` + lineID.String() + `",
			"product_id": "` + productID.String() + `",
			"quantity": 2,
			"product": {"id": "` + productID.String() + `", "name": "Oak Bench", "slug": "oak-bench", "base_price": 240}
		}]`))
	}))
	defer server.Close()

	client := testClient(t, server, "secret")
	line, err := client.InsertCartLine(context.Background(), userID, productID, nil, 2)
	if err != nil {
		t.Fatalf("InsertCartLine returned error: %v", err)
	}
	if line.ID != lineID || line.Quantity != 2 {
		t.Fatalf("line mapped incorrectly: %+v", line)
	}
}

func TestInsertCartLineWriteFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	client := testClient(t, server, "secret")
	_, err := client.InsertCartLine(context.Background(), uuid.New(), uuid.New(), nil, 1)
	if !pkgerrors.HasCode(err, pkgerrors.CodeRemoteWrite) {
		t.Fatalf("expected remote write failure, got %v", err)
	}
}

func TestFetchFavoritesOrdersNewestFirst(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("order"); got != "created_at.desc" {
			t.Errorf("unexpected order param %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := testClient(t, server, "secret")
	if _, err := client.FetchFavorites(context.Background(), uuid.New()); err != nil {
		t.Fatalf("FetchFavorites returned error: %v", err)
	}
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := testClient(t, server, "secret")
	_, err := client.SignIn(context.Background(), "user@example.com", "wrong")
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotAuthenticated) {
		t.Fatalf("expected not-authenticated, got %v", err)
	}
}

func signToken(t *testing.T, secret string, claims accessClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestCurrentSessionValidToken(t *testing.T) {
	client := testClient(t, httptest.NewServer(http.NotFoundHandler()), "secret")
	userID := uuid.New()

	token := signToken(t, "secret", accessClaims{
		Email: "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	session, err := client.CurrentSession(context.Background(), token)
	if err != nil {
		t.Fatalf("CurrentSession returned error: %v", err)
	}
	if session.UserID != userID || session.Email != "user@example.com" {
		t.Fatalf("session mapped incorrectly: %+v", session)
	}
}

func TestCurrentSessionFailsClosed(t *testing.T) {
	client := testClient(t, httptest.NewServer(http.NotFoundHandler()), "secret")
	userID := uuid.New()

	expired := signToken(t, "secret", accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	wrongKey := signToken(t, "other-secret", accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	badSubject := signToken(t, "secret", accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	for name, token := range map[string]string{
		"empty":         "",
		"garbage":       "not.a.token",
		"expired":       expired,
		"wrong key":     wrongKey,
		"bad subject":   badSubject,
		"missing parts": "header.payload",
	} {
		if _, err := client.CurrentSession(context.Background(), token); !pkgerrors.HasCode(err, pkgerrors.CodeNotAuthenticated) {
			t.Errorf("%s: expected not-authenticated, got %v", name, err)
		}
	}
}
