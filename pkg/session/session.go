package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/solarmon/solarmon/pkg/log"
)

// Scope selects which backend holds a credential.
type Scope string

const (
	// Persistent survives restarts ("remember me").
	Persistent Scope = "persistent"
	// Session lives only as long as the process.
	Session Scope = "session"
)

const (
	KeyToken        = "token"
	KeyRefreshToken = "refreshToken"
)

// Backend stores values for a single scope. Get returns "" with a nil error
// when the key is absent.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// purger is implemented by backends that can drop everything they hold.
type purger interface {
	Purge(ctx context.Context) error
}

// Store holds session credentials across the two scopes. Reads prefer the
// persistent scope.
type Store struct {
	persistent Backend
	session    Backend
}

// New returns a Store over the given backends. A nil session backend is
// replaced by a MemoryBackend.
func New(persistent, sess Backend) *Store {
	if persistent == nil {
		persistent = NewMemoryBackend()
	}
	if sess == nil {
		sess = NewMemoryBackend()
	}
	return &Store{persistent: persistent, session: sess}
}

// NewMemory returns a Store whose scopes both live in memory.
func NewMemory() *Store {
	return New(nil, nil)
}

func (s *Store) backend(scope Scope) (Backend, error) {
	switch scope {
	case Persistent:
		return s.persistent, nil
	case Session:
		return s.session, nil
	default:
		return nil, fmt.Errorf("unknown session scope: %q", scope)
	}
}

// Get returns the value of key in scope.
func (s *Store) Get(ctx context.Context, scope Scope, key string) (string, error) {
	b, err := s.backend(scope)
	if err != nil {
		return "", err
	}
	return b.Get(ctx, key)
}

// Set stores value under key in scope.
func (s *Store) Set(ctx context.Context, scope Scope, key, value string) error {
	b, err := s.backend(scope)
	if err != nil {
		return err
	}
	return b.Set(ctx, key, value)
}

// Delete removes key from scope.
func (s *Store) Delete(ctx context.Context, scope Scope, key string) error {
	b, err := s.backend(scope)
	if err != nil {
		return err
	}
	return b.Delete(ctx, key)
}

// Lookup returns the value of key and the scope that held it, checking the
// persistent scope first. An empty scope means neither scope had a value.
func (s *Store) Lookup(ctx context.Context, key string) (string, Scope, error) {
	v, err := s.persistent.Get(ctx, key)
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s from persistent scope: %w", key, err)
	}
	if v != "" {
		return v, Persistent, nil
	}
	v, err = s.session.Get(ctx, key)
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s from session scope: %w", key, err)
	}
	if v != "" {
		return v, Session, nil
	}
	return "", "", nil
}

// Token returns the access token and its scope.
func (s *Store) Token(ctx context.Context) (string, Scope, error) {
	return s.Lookup(ctx, KeyToken)
}

// RefreshToken returns the refresh token and its scope.
func (s *Store) RefreshToken(ctx context.Context) (string, Scope, error) {
	return s.Lookup(ctx, KeyRefreshToken)
}

// Clear removes both credentials from both scopes. Every delete is attempted
// even if an earlier one fails.
func (s *Store) Clear(ctx context.Context) error {
	var errs []error
	for _, b := range []Backend{s.persistent, s.session} {
		if p, ok := b.(purger); ok {
			if err := p.Purge(ctx); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		for _, key := range []string{KeyToken, KeyRefreshToken} {
			if err := b.Delete(ctx, key); err != nil {
				errs = append(errs, fmt.Errorf("failed to delete %s: %w", key, err))
			}
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to clear session credentials", slog.Any("error", err))
	} else {
		log.Ctx(ctx).DebugContext(ctx, "cleared session credentials")
	}
	return err
}

// Close closes both backends.
func (s *Store) Close() error {
	return errors.Join(s.persistent.Close(), s.session.Close())
}
