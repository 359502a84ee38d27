package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/oakline/storefront-core/api/responses"
	"github.com/oakline/storefront-core/internal/gateway"
	"github.com/oakline/storefront-core/internal/session"
	pkgerrors "github.com/oakline/storefront-core/pkg/errors"
	"github.com/oakline/storefront-core/pkg/logger"
)

// SessionLookup resolves a browser session id to stored credentials.
type SessionLookup interface {
	Lookup(ctx context.Context, sessionID string) (gateway.Credentials, error)
}

// Auth resolves the bearer session id to an identity and seeds the request
// context. Any doubt about the session fails closed with 401.
func Auth(store SessionLookup, auth gateway.AuthProvider, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "missing credentials"))
				return
			}

			sessionID := raw
			if strings.HasPrefix(strings.ToLower(sessionID), "bearer ") {
				sessionID = strings.TrimSpace(sessionID[7:])
			}
			if sessionID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "missing credentials"))
				return
			}

			creds, err := store.Lookup(r.Context(), sessionID)
			if err != nil {
				if errors.Is(err, session.ErrSessionNotFound) {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "session unavailable"))
					return
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
				return
			}

			remote, err := auth.CurrentSession(r.Context(), creds.AccessToken)
			if err != nil || remote == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotAuthenticated, err, "session expired"))
				return
			}

			identity := &session.Identity{UserID: remote.UserID, Email: remote.Email}
			ctx := WithIdentity(r.Context(), identity)
			ctx = WithSessionID(ctx, sessionID)

			if logg != nil {
				ctx = logg.WithUserID(ctx, remote.UserID.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
