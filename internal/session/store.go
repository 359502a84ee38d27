package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/oakline/storefront-core/internal/gateway"
	"github.com/oakline/storefront-core/pkg/config"
	redisclient "github.com/oakline/storefront-core/pkg/redis"
)

const sessionIDBytes = 32

var ErrSessionNotFound = errors.New("browser session not found")

type tokenStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	SessionKey(sessionID string) string
}

// Store maps opaque browser-session identifiers to the remote-store tokens
// they were issued. Tokens never leave the server side; the browser only
// ever holds the session id.
type Store struct {
	store tokenStore
	keyer sessionKeyer
	ttl   time.Duration
}

type storedSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// NewStore constructs a session store backed by Redis.
func NewStore(client *redisclient.Client, cfg config.SessionConfig) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.TokenTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("session token ttl must be positive")
	}
	return &Store{
		store: client,
		keyer: client,
		ttl:   ttl,
	}, nil
}

// Create persists the credentials under a fresh session id.
func (s *Store) Create(ctx context.Context, creds gateway.Credentials) (string, error) {
	if strings.TrimSpace(creds.AccessToken) == "" {
		return "", fmt.Errorf("access token is required")
	}
	sessionID, err := generateSessionID()
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(storedSession{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
	})
	if err != nil {
		return "", fmt.Errorf("encoding session: %w", err)
	}
	if err := s.store.Set(ctx, s.keyer.SessionKey(sessionID), string(payload), s.ttl); err != nil {
		return "", err
	}
	return sessionID, nil
}

// Lookup resolves a session id back to its credentials.
func (s *Store) Lookup(ctx context.Context, sessionID string) (gateway.Credentials, error) {
	if strings.TrimSpace(sessionID) == "" {
		return gateway.Credentials{}, ErrSessionNotFound
	}
	raw, err := s.store.Get(ctx, s.keyer.SessionKey(sessionID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return gateway.Credentials{}, ErrSessionNotFound
		}
		return gateway.Credentials{}, err
	}
	var stored storedSession
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return gateway.Credentials{}, fmt.Errorf("decoding session: %w", err)
	}
	return gateway.Credentials{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
	}, nil
}

// Revoke deletes the session mapping.
func (s *Store) Revoke(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	return s.store.Del(ctx, s.keyer.SessionKey(sessionID))
}

func generateSessionID() (string, error) {
	bytes := make([]byte, sessionIDBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
