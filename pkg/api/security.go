package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/solarmon/solarmon/pkg/types"
)

// Security covers tamper events, their responses and the security audit
// trail.
type Security struct {
	c Client
}

// Alerts returns every tamper event visible to an admin.
func (s *Security) Alerts(ctx context.Context) []types.TamperEvent {
	return readList[types.TamperEvent](ctx, s.c, "fetch security alerts", "/api/security/admin/alerts", nil)
}

// UnresolvedAlerts is Alerts without the resolved events.
func (s *Security) UnresolvedAlerts(ctx context.Context) []types.TamperEvent {
	all := s.Alerts(ctx)
	out := make([]types.TamperEvent, 0, len(all))
	for _, e := range all {
		if !e.Resolved {
			out = append(out, e)
		}
	}
	return out
}

// InstallationAlerts returns the first page of an installation's events as a
// list.
func (s *Security) InstallationAlerts(ctx context.Context, installationID int64) []types.TamperEvent {
	return readList[types.TamperEvent](ctx, s.c, "fetch installation alerts", "/api/security/installations/"+id(installationID)+"/events", nil)
}

// InstallationEvents returns a page of an installation's events.
func (s *Security) InstallationEvents(ctx context.Context, installationID int64, page, size int) types.Page[types.TamperEvent] {
	return readPage[types.TamperEvent](ctx, s.c, "fetch installation events", "/api/security/installations/"+id(installationID)+"/events", nil, page, size)
}

// EventsBetween returns a page of an installation's events between start and
// end.
func (s *Security) EventsBetween(ctx context.Context, installationID int64, start, end time.Time, page, size int) types.Page[types.TamperEvent] {
	q := url.Values{
		"startTime": {types.FormatDateTime(start)},
		"endTime":   {types.FormatDateTime(end)},
	}
	path := "/api/security/installations/" + id(installationID) + "/events/time-range"
	return readPage[types.TamperEvent](ctx, s.c, "fetch events by time range", path, q, page, size)
}

// Event returns one tamper event, or nil.
func (s *Security) Event(ctx context.Context, eventID int64) *types.TamperEvent {
	return readOne[types.TamperEvent](ctx, s.c, "fetch tamper event", "/api/security/tamper-events/"+id(eventID), nil)
}

// AuditLogs returns a page of the admin audit trail, optionally filtered by
// activityType.
func (s *Security) AuditLogs(ctx context.Context, activityType string, page, size int) types.Page[types.SecurityLog] {
	q := url.Values{}
	if activityType != "" {
		q.Set("activityType", activityType)
	}
	return readPage[types.SecurityLog](ctx, s.c, "fetch security audit logs", "/api/security/admin/audit", q, page, size)
}

// Acknowledge marks an event as seen.
func (s *Security) Acknowledge(ctx context.Context, eventID int64) (*types.TamperEvent, error) {
	var out types.TamperEvent
	if err := write(ctx, s.c, "acknowledge event", http.MethodPut, "/api/security/events/"+id(eventID)+"/acknowledge", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateEventStatus moves an event to status.
func (s *Security) UpdateEventStatus(ctx context.Context, eventID int64, status types.TamperEventStatus) (*types.TamperEvent, error) {
	var out types.TamperEvent
	body := map[string]string{"status": string(status)}
	if err := write(ctx, s.c, "update event status", http.MethodPut, "/api/security/admin/events/"+id(eventID)+"/status", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Resolve closes an event with the given resolution details.
func (s *Security) Resolve(ctx context.Context, eventID int64, details map[string]any) (*types.TamperEvent, error) {
	var out types.TamperEvent
	if err := write(ctx, s.c, "resolve event", http.MethodPost, "/api/security/admin/events/"+id(eventID)+"/resolve", nil, details, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Responses returns the actions taken for an event.
func (s *Security) Responses(ctx context.Context, eventID int64) []types.TamperResponse {
	return readList[types.TamperResponse](ctx, s.c, "fetch tamper responses", "/api/security/responses/events/"+id(eventID), nil)
}

// Respond records an action taken for an event.
func (s *Security) Respond(ctx context.Context, eventID int64, resp types.TamperResponse) (*types.TamperResponse, error) {
	var out types.TamperResponse
	if err := write(ctx, s.c, "create tamper response", http.MethodPost, "/api/security/responses/events/"+id(eventID), nil, resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
