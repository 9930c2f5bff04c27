package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/solarmon/solarmon/pkg/log"
	"github.com/solarmon/solarmon/pkg/session"
)

type sessionResponse struct {
	Authenticated bool          `json:"authenticated"`
	Scope         session.Scope `json:"scope,omitempty"`
	Subject       string        `json:"subject,omitempty"`
	ExpiresAt     time.Time     `json:"expiresAt,omitzero"`
	Expired       bool          `json:"expired"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token, scope, err := s.tokens.Token(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to read access token", slog.Any("error", err))
		writeJSONError(w, "failed to read session", http.StatusInternalServerError)
		return
	}
	if token == "" {
		writeJSON(w, sessionResponse{})
		return
	}

	resp := sessionResponse{
		Authenticated: true,
		Scope:         scope,
	}
	// opaque tokens are still a session, just without an expiry to report
	if info, err := session.Inspect(token); err != nil {
		log.Ctx(ctx).DebugContext(ctx, "access token is not a JWT", slog.Any("error", err))
	} else {
		resp.Subject = info.Subject
		resp.ExpiresAt = info.ExpiresAt
		resp.Expired = info.Expired(s.now())
	}
	writeJSON(w, resp)
}
