package controllers

import (
	"net/http"

	"go.uber.org/multierr"

	"github.com/oakline/storefront-core/api/middleware"
	"github.com/oakline/storefront-core/api/responses"
	"github.com/oakline/storefront-core/api/validators"
	"github.com/oakline/storefront-core/internal/gateway"
	"github.com/oakline/storefront-core/internal/registry"
	"github.com/oakline/storefront-core/internal/session"
	pkgerrors "github.com/oakline/storefront-core/pkg/errors"
	"github.com/oakline/storefront-core/pkg/logger"
)

type signInPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// SessionSignIn exchanges credentials for a browser session id.
func SessionSignIn(auth gateway.AuthProvider, store *session.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload signInPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		creds, err := auth.SignIn(ctx, payload.Email, payload.Password)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		sessionID, err := store.Create(ctx, creds)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist session"))
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"session_id": sessionID})
	}
}

// SessionCurrent echoes the authenticated identity.
func SessionCurrent(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"user_id": identity.UserID.String(),
			"email":   identity.Email,
		})
	}
}

// SessionSignOut revokes the browser session and empties the user's synced
// state. Local state clears even when the remote revocation fails.
func SessionSignOut(auth gateway.AuthProvider, store *session.Store, reg *registry.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		sessionID := middleware.SessionIDFromContext(ctx)

		var errs error
		if creds, lookupErr := store.Lookup(ctx, sessionID); lookupErr == nil {
			errs = multierr.Append(errs, auth.SignOut(ctx, creds.AccessToken))
		}
		errs = multierr.Append(errs, store.Revoke(ctx, sessionID))

		// Local scope always empties, whatever the remote said.
		reg.SignOut(identity.UserID)

		if errs != nil && logg != nil {
			logg.Warn(logg.WithField(ctx, "error", errs.Error()), "session.signout.partial")
		}

		responses.WriteSuccess(w, map[string]bool{"signed_out": true})
	}
}
