package apiclient

import (
	"context"
	"log/slog"

	"github.com/solarmon/solarmon/pkg/log"
)

// Notifier surfaces request failures to the user.
type Notifier interface {
	Notify(ctx context.Context, err error)
}

// Redirector sends the user to the login view after an unrecoverable
// authentication failure.
type Redirector interface {
	Redirect(ctx context.Context, location string)
}

const (
	loginPath           = "/login"
	reasonExpired       = "expired"
	reasonRefreshFailed = "refresh_failed"
)

func loginLocation(reason string) string {
	if reason == "" {
		return loginPath
	}
	return loginPath + "?reason=" + reason
}

// LogNotifier logs failures at warn level.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, err error) {
	log.Ctx(ctx).WarnContext(ctx, "network error: failed to connect to the server", slog.Any("error", err))
}

// LogRedirector logs the location the user should be sent to.
type LogRedirector struct{}

func (LogRedirector) Redirect(ctx context.Context, location string) {
	log.Ctx(ctx).WarnContext(ctx, "authentication required", slog.String("location", location))
}
