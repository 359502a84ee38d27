package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/oakline/storefront-core/internal/gateway"
	pkgerrors "github.com/oakline/storefront-core/pkg/errors"
)

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SignIn exchanges credentials for an access and refresh token pair.
func (c *Client) SignIn(ctx context.Context, email, password string) (gateway.Credentials, error) {
	payload := map[string]string{
		"email":    email,
		"password": password,
	}

	var creds gateway.Credentials
	err := c.do(ctx, http.MethodPost, c.authURL("/token?grant_type=password"), payload, nil, &creds)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && (se.status == http.StatusBadRequest || se.status == http.StatusUnauthorized) {
			return gateway.Credentials{}, pkgerrors.Wrap(pkgerrors.CodeNotAuthenticated, err, "invalid credentials")
		}
		return gateway.Credentials{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign in")
	}
	if creds.AccessToken == "" {
		return gateway.Credentials{}, pkgerrors.New(pkgerrors.CodeDependency, "sign in: empty access token")
	}
	return creds, nil
}

// SignOut revokes the access token at the auth service.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	headers := map[string]string{"Authorization": "Bearer " + accessToken}
	if err := c.do(ctx, http.MethodPost, c.authURL("/logout"), nil, headers, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign out")
	}
	return nil
}

// CurrentSession verifies the access token locally and returns the session
// it asserts. Verification fails closed: a malformed, expired, or
// wrongly-signed token yields no session, never a guess.
func (c *Client) CurrentSession(_ context.Context, accessToken string) (*gateway.Session, error) {
	if accessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "no access token")
	}

	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(accessToken, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "unexpected signing method")
		}
		return c.jwtSecret, nil
	}, jwt.WithLeeway(c.sessionLeeway), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotAuthenticated, err, "invalid session token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotAuthenticated, err, "invalid session subject")
	}

	return &gateway.Session{
		UserID:    userID,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
