package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/solarmon/solarmon/pkg/log"
	"github.com/solarmon/solarmon/pkg/session"
	"github.com/solarmon/solarmon/pkg/types"
)

// ErrInvalidLoginResponse is returned when login succeeds without a token or
// email in the response.
var ErrInvalidLoginResponse = errors.New("server returned an invalid login response")

// Auth covers sign-in, sign-up and password management.
type Auth struct {
	c Client
}

// Login signs in and stores the returned tokens. With remember set they go
// to the persistent scope, otherwise to the session scope; the access token
// in the other scope is removed so it cannot shadow the new one.
func (a *Auth) Login(ctx context.Context, email, password string, remember bool) (*types.AuthResponse, error) {
	var out types.AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := write(ctx, a.c, "log in", http.MethodPost, "/api/auth/login", nil, body, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" || out.Email == "" {
		return nil, ErrInvalidLoginResponse
	}

	scope, other := session.Session, session.Persistent
	if remember {
		scope, other = session.Persistent, session.Session
	}
	creds := a.c.Credentials()
	if err := creds.Set(ctx, scope, session.KeyToken, out.AccessToken); err != nil {
		return nil, fmt.Errorf("failed to store access token: %w", err)
	}
	if err := creds.Delete(ctx, other, session.KeyToken); err != nil {
		return nil, fmt.Errorf("failed to clear access token: %w", err)
	}
	if out.RefreshToken != "" {
		if err := creds.Set(ctx, scope, session.KeyRefreshToken, out.RefreshToken); err != nil {
			return nil, fmt.Errorf("failed to store refresh token: %w", err)
		}
		if err := creds.Delete(ctx, other, session.KeyRefreshToken); err != nil {
			return nil, fmt.Errorf("failed to clear refresh token: %w", err)
		}
	}
	log.Ctx(ctx).InfoContext(ctx, "logged in",
		slog.String("email", out.Email),
		slog.String("role", string(out.Role)),
		slog.String("scope", string(scope)),
	)
	return &out, nil
}

// Logout removes every stored credential.
func (a *Auth) Logout(ctx context.Context) error {
	if err := a.c.Credentials().Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// Register creates an account. The backend sends a verification email.
func (a *Auth) Register(ctx context.Context, r types.Registration) (*types.User, error) {
	var out types.User
	if err := write(ctx, a.c, "register", http.MethodPost, "/api/auth/register", nil, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyEmail confirms an address with the token from the verification
// email.
func (a *Auth) VerifyEmail(ctx context.Context, token string) (*types.User, error) {
	var out types.User
	if err := write(ctx, a.c, "verify email", http.MethodGet, "/api/auth/verify-email/"+url.PathEscape(token), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResendVerification sends another verification email.
func (a *Auth) ResendVerification(ctx context.Context, email string) error {
	return write(ctx, a.c, "resend verification", http.MethodPost, "/api/auth/resend-verification", url.Values{"email": {email}}, nil, nil)
}

// ChangePassword replaces the password of email. The current password
// travels as a query parameter.
func (a *Auth) ChangePassword(ctx context.Context, email, currentPassword, newPassword string) error {
	body := map[string]string{
		"email":           email,
		"newPassword":     newPassword,
		"confirmPassword": newPassword,
	}
	q := url.Values{"currentPassword": {currentPassword}}
	return write(ctx, a.c, "change password", http.MethodPost, "/api/auth/change-password", q, body, nil)
}

// CheckEmail reports whether email is free to register. Failures report it
// as taken.
func (a *Auth) CheckEmail(ctx context.Context, email string) bool {
	var out struct {
		Available bool `json:"available"`
	}
	if err := a.c.JSON(ctx, http.MethodGet, "/api/auth/check-email", url.Values{"email": {email}}, nil, &out); err != nil {
		readFailed(ctx, "check email", err)
		return false
	}
	return out.Available
}
