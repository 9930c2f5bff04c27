package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/solarmon/solarmon/pkg/apiclient"
	"github.com/solarmon/solarmon/pkg/log"
	"github.com/solarmon/solarmon/pkg/types"
)

// ErrInvalidStatus is returned by UpdateStatus for states the backend does
// not accept.
var ErrInvalidStatus = errors.New("invalid service status")

const noActiveStatus = "No active service status found"

// ServiceControl covers installation service states, device commands and the
// operational log.
type ServiceControl struct {
	c Client
}

// CurrentStatus returns the active status of an installation. An
// installation that has never had a status gets a PENDING record instead of
// an error.
func (s *ServiceControl) CurrentStatus(ctx context.Context, installationID int64) (*types.ServiceStatus, error) {
	var out types.ServiceStatus
	err := s.c.JSON(ctx, http.MethodGet, "/api/service/status/"+id(installationID), nil, nil, &out)
	if err == nil {
		return &out, nil
	}
	if apiclient.StatusCode(err) == http.StatusInternalServerError && strings.Contains(apiclient.Message(err), noActiveStatus) {
		log.Ctx(ctx).DebugContext(ctx, "no service status yet", slog.Int64("installationId", installationID))
		return &types.ServiceStatus{
			InstallationID: id(installationID),
			Status:         types.ServicePending,
			UpdatedAt:      types.NewLocalTime(time.Now()),
			UpdatedBy:      "System",
			StatusReason:   "Initial status",
			Active:         true,
		}, nil
	}
	return nil, fmt.Errorf("failed to fetch service status: %w", err)
}

// UpdateStatus changes an installation's state. The state is upper-cased and
// must be one of types.SettableServiceStates.
func (s *ServiceControl) UpdateStatus(ctx context.Context, installationID int64, update types.ServiceStatusUpdate) (*types.ServiceStatus, error) {
	st, ok := types.ParseServiceState(string(update.Status))
	if !ok {
		return nil, fmt.Errorf("failed to update service status: %w: %q", ErrInvalidStatus, update.Status)
	}
	update.Status = st
	if update.UpdatedBy == "" {
		update.UpdatedBy = "SYSTEM"
	}
	var out types.ServiceStatus
	err := s.c.JSON(ctx, http.MethodPut, "/api/service/status/"+id(installationID), nil, update, &out)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to update service status",
			slog.Int64("installationId", installationID),
			slog.String("status", string(st)),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("failed to update service status: %s: %w", apiclient.Message(err), err)
	}
	return &out, nil
}

// StatusHistory returns a page of an installation's past statuses.
func (s *ServiceControl) StatusHistory(ctx context.Context, installationID int64, page, size int) types.Page[types.ServiceStatus] {
	return readPage[types.ServiceStatus](ctx, s.c, "fetch status history", "/api/service/status/"+id(installationID)+"/history", nil, page, size)
}

func (s *ServiceControl) statusAction(ctx context.Context, what string, installationID int64, action string, q url.Values, body any) (*types.ServiceStatus, error) {
	var out types.ServiceStatus
	path := "/api/service/status/" + id(installationID) + "/" + action
	if err := write(ctx, s.c, what, http.MethodPost, path, q, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SuspendForPayment suspends service for non-payment.
func (s *ServiceControl) SuspendForPayment(ctx context.Context, installationID int64, reason string) (*types.ServiceStatus, error) {
	return s.statusAction(ctx, "suspend service for payment", installationID, "suspend/payment", url.Values{"reason": {reason}}, nil)
}

// SuspendForSecurity suspends service after a security incident.
func (s *ServiceControl) SuspendForSecurity(ctx context.Context, installationID int64, reason string) (*types.ServiceStatus, error) {
	return s.statusAction(ctx, "suspend service for security", installationID, "suspend/security", url.Values{"reason": {reason}}, nil)
}

// SuspendForMaintenance suspends service for a maintenance window.
func (s *ServiceControl) SuspendForMaintenance(ctx context.Context, installationID int64, reason string) (*types.ServiceStatus, error) {
	body := map[string]string{"reason": reason}
	return s.statusAction(ctx, "suspend service for maintenance", installationID, "suspend/maintenance", nil, body)
}

// Restore reactivates a suspended service.
func (s *ServiceControl) Restore(ctx context.Context, installationID int64, reason string) (*types.ServiceStatus, error) {
	return s.statusAction(ctx, "restore service", installationID, "restore", url.Values{"reason": {reason}}, nil)
}

// ScheduleChange schedules a transition to target at when.
func (s *ServiceControl) ScheduleChange(ctx context.Context, installationID int64, target types.ServiceState, reason string, when time.Time) (*types.ServiceStatus, error) {
	st, ok := types.ParseServiceState(string(target))
	if !ok {
		return nil, fmt.Errorf("failed to schedule status change: %w: %q", ErrInvalidStatus, target)
	}
	q := url.Values{
		"targetStatus":  {string(st)},
		"reason":        {reason},
		"scheduledTime": {types.FormatDateTime(when)},
	}
	return s.statusAction(ctx, "schedule status change", installationID, "schedule", q, nil)
}

// CancelScheduledChange drops a pending scheduled transition.
func (s *ServiceControl) CancelScheduledChange(ctx context.Context, installationID int64) error {
	return write(ctx, s.c, "cancel scheduled change", http.MethodDelete, "/api/service/status/"+id(installationID)+"/schedule", nil, nil, nil)
}

// StatusesForUser returns the statuses of every installation of a user.
func (s *ServiceControl) StatusesForUser(ctx context.Context, userID int64) []types.ServiceStatus {
	return readList[types.ServiceStatus](ctx, s.c, "fetch user statuses", "/api/service/status/user/"+id(userID), nil)
}

// StatusesByState returns a page of installations in state.
func (s *ServiceControl) StatusesByState(ctx context.Context, state types.ServiceState, page, size int) types.Page[types.ServiceStatus] {
	q := url.Values{"status": {string(state)}}
	return readPage[types.ServiceStatus](ctx, s.c, "fetch statuses by state", "/api/service/status/by-state", q, page, size)
}

// BatchStatuses returns the statuses of several installations in one call.
// Non-numeric IDs are dropped. When the backend cannot answer, every
// requested ID gets an UNKNOWN placeholder so tables keep their rows.
func (s *ServiceControl) BatchStatuses(ctx context.Context, installationIDs []string) []types.ServiceStatus {
	ids := make([]int64, 0, len(installationIDs))
	for _, v := range installationIDs {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			log.Ctx(ctx).DebugContext(ctx, "dropping non-numeric installation id", slog.String("id", v))
			continue
		}
		ids = append(ids, n)
	}
	if len(ids) == 0 {
		return []types.ServiceStatus{}
	}

	var out []types.ServiceStatus
	if err := s.c.JSON(ctx, http.MethodPost, "/api/service/status/batch", nil, ids, &out); err != nil {
		readFailed(ctx, "fetch batch statuses", err)
		now := types.NewLocalTime(time.Now())
		placeholders := make([]types.ServiceStatus, len(ids))
		for i, n := range ids {
			placeholders[i] = types.ServiceStatus{
				InstallationID:   id(n),
				InstallationName: "Installation #" + id(n),
				Status:           types.ServiceUnknown,
				UpdatedAt:        now,
				UpdatedBy:        "System",
				StatusReason:     "Could not retrieve status",
				Active:           true,
			}
		}
		return placeholders
	}
	if out == nil {
		out = []types.ServiceStatus{}
	}
	return out
}

// SendCommand sends command with params to an installation's controller.
func (s *ServiceControl) SendCommand(ctx context.Context, installationID int64, command string, params map[string]any) (*types.DeviceCommand, error) {
	if params == nil {
		params = map[string]any{}
	}
	var out types.DeviceCommand
	q := url.Values{"command": {command}}
	if err := write(ctx, s.c, "send command", http.MethodPost, "/api/service/commands/"+id(installationID), q, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendBatchCommand sends one command to several installations.
func (s *ServiceControl) SendBatchCommand(ctx context.Context, batch types.BatchCommand) ([]types.DeviceCommand, error) {
	var out []types.DeviceCommand
	if err := write(ctx, s.c, "send batch command", http.MethodPost, "/api/service/commands/batch", nil, batch, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []types.DeviceCommand{}
	}
	return out, nil
}

// Commands returns a page of an installation's commands.
func (s *ServiceControl) Commands(ctx context.Context, installationID int64, page, size int) types.Page[types.DeviceCommand] {
	return readPage[types.DeviceCommand](ctx, s.c, "fetch commands", "/api/service/commands/"+id(installationID), nil, page, size)
}

// CommandsByStatus returns every command in status.
func (s *ServiceControl) CommandsByStatus(ctx context.Context, status types.CommandStatus) []types.DeviceCommand {
	return readList[types.DeviceCommand](ctx, s.c, "fetch commands by status", "/api/service/commands/status/"+string(status), nil)
}

// PendingCommands returns an installation's undelivered commands.
func (s *ServiceControl) PendingCommands(ctx context.Context, installationID int64) []types.DeviceCommand {
	return readList[types.DeviceCommand](ctx, s.c, "fetch pending commands", "/api/service/commands/"+id(installationID)+"/pending", nil)
}

// Command returns one command, or nil.
func (s *ServiceControl) Command(ctx context.Context, commandID int64) *types.DeviceCommand {
	return readOne[types.DeviceCommand](ctx, s.c, "fetch command", "/api/service/commands/id/"+id(commandID), nil)
}

// CommandsByCorrelation returns the commands sharing a correlation ID.
func (s *ServiceControl) CommandsByCorrelation(ctx context.Context, correlationID string) []types.DeviceCommand {
	return readList[types.DeviceCommand](ctx, s.c, "fetch correlated commands", "/api/service/commands/correlation/"+url.PathEscape(correlationID), nil)
}

// CancelCommand cancels a command that has not executed yet.
func (s *ServiceControl) CancelCommand(ctx context.Context, commandID int64) (*types.DeviceCommand, error) {
	var out types.DeviceCommand
	if err := write(ctx, s.c, "cancel command", http.MethodPost, "/api/service/commands/"+id(commandID)+"/cancel", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RetryCommand resends a failed or expired command.
func (s *ServiceControl) RetryCommand(ctx context.Context, commandID int64) (*types.DeviceCommand, error) {
	var out types.DeviceCommand
	if err := write(ctx, s.c, "retry command", http.MethodPost, "/api/service/commands/"+id(commandID)+"/retry", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CommandStatusCounts returns how many commands are in each status.
func (s *ServiceControl) CommandStatusCounts(ctx context.Context) map[types.CommandStatus]int {
	out := readOne[map[types.CommandStatus]int](ctx, s.c, "fetch command stats", "/api/service/commands/stats/status-counts", nil)
	if out == nil || *out == nil {
		return map[types.CommandStatus]int{}
	}
	return *out
}

// Logs returns a page of the operational log.
func (s *ServiceControl) Logs(ctx context.Context, page, size int) types.Page[types.OperationalLog] {
	if size <= 0 {
		size = 25
	}
	return readPage[types.OperationalLog](ctx, s.c, "fetch operational logs", "/api/service/logs", nil, page, size)
}

// LogsBetween returns a page of the operational log between start and end.
func (s *ServiceControl) LogsBetween(ctx context.Context, start, end time.Time, page, size int) types.Page[types.OperationalLog] {
	q := url.Values{
		"start": {types.FormatDateTime(start)},
		"end":   {types.FormatDateTime(end)},
	}
	return readPage[types.OperationalLog](ctx, s.c, "fetch operational logs by time range", "/api/service/logs/time-range", q, page, size)
}

// InstallationLogs returns a page of an installation's operational log.
func (s *ServiceControl) InstallationLogs(ctx context.Context, installationID int64, page, size int) types.Page[types.OperationalLog] {
	return readPage[types.OperationalLog](ctx, s.c, "fetch installation logs", "/api/service/logs/installation/"+id(installationID), nil, page, size)
}
