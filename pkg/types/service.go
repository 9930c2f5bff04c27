package types

import "strings"

// ServiceState is the operational state of an installation's service.
type ServiceState string

const (
	ServiceActive               ServiceState = "ACTIVE"
	ServiceSuspendedPayment     ServiceState = "SUSPENDED_PAYMENT"
	ServiceSuspendedSecurity    ServiceState = "SUSPENDED_SECURITY"
	ServiceSuspendedMaintenance ServiceState = "SUSPENDED_MAINTENANCE"
	ServiceTransitioning        ServiceState = "TRANSITIONING"
	ServicePending              ServiceState = "PENDING"
	// ServiceUnknown is never sent by the backend; it marks placeholders for
	// statuses that could not be fetched.
	ServiceUnknown ServiceState = "UNKNOWN"
)

var settableServiceStates = []ServiceState{
	ServiceActive,
	ServiceSuspendedPayment,
	ServiceSuspendedSecurity,
	ServiceSuspendedMaintenance,
	ServiceTransitioning,
	ServicePending,
}

// ParseServiceState normalizes s and reports whether it is a state the
// backend accepts in an update.
func ParseServiceState(s string) (ServiceState, bool) {
	st := ServiceState(strings.ToUpper(strings.TrimSpace(s)))
	for _, v := range settableServiceStates {
		if v == st {
			return st, true
		}
	}
	return st, false
}

// SettableServiceStates returns the states accepted by a status update.
func SettableServiceStates() []ServiceState {
	out := make([]ServiceState, len(settableServiceStates))
	copy(out, settableServiceStates)
	return out
}

// ServiceStatus is the current or historical service state of an installation.
type ServiceStatus struct {
	ID               *int64       `json:"id"`
	InstallationID   string       `json:"installationId"`
	InstallationName string       `json:"installationName"`
	Status           ServiceState `json:"status"`
	UpdatedAt        LocalTime    `json:"updatedAt"`
	UpdatedBy        string       `json:"updatedBy"`
	ScheduledChange  ServiceState `json:"scheduledChange,omitempty"`
	ScheduledTime    LocalTime    `json:"scheduledTime"`
	StatusReason     string       `json:"statusReason"`
	Active           bool         `json:"active"`
}

// ServiceStatusUpdate is the body of a status change.
type ServiceStatusUpdate struct {
	Status          ServiceState  `json:"status"`
	StatusReason    string        `json:"statusReason"`
	UpdatedBy       string        `json:"updatedBy"`
	ScheduledChange *ServiceState `json:"scheduledChange"`
	ScheduledTime   *string       `json:"scheduledTime"`
}

// CommandStatus is the delivery state of a device command.
type CommandStatus string

const (
	CommandPending   CommandStatus = "PENDING"
	CommandSent      CommandStatus = "SENT"
	CommandDelivered CommandStatus = "DELIVERED"
	CommandExecuted  CommandStatus = "EXECUTED"
	CommandFailed    CommandStatus = "FAILED"
	CommandExpired   CommandStatus = "EXPIRED"
	CommandCancelled CommandStatus = "CANCELLED"
	CommandQueued    CommandStatus = "QUEUED"
)

// DeviceCommand is a command sent to an installation's controller.
type DeviceCommand struct {
	ID               int64         `json:"id"`
	InstallationID   int64         `json:"installationId"`
	InstallationName string        `json:"installationName,omitempty"`
	Command          string        `json:"command"`
	Parameters       string        `json:"parameters,omitempty"`
	Status           CommandStatus `json:"status"`
	SentAt           LocalTime     `json:"sentAt"`
	ProcessedAt      LocalTime     `json:"processedAt"`
	ExpiresAt        LocalTime     `json:"expiresAt"`
	ResponseMessage  string        `json:"responseMessage,omitempty"`
	InitiatedBy      string        `json:"initiatedBy,omitempty"`
	RetryCount       int           `json:"retryCount"`
	CorrelationID    string        `json:"correlationId,omitempty"`
}

// BatchCommand sends one command to several installations.
type BatchCommand struct {
	InstallationIDs []int64        `json:"installationIds"`
	Command         string         `json:"command"`
	Parameters      map[string]any `json:"parameters,omitempty"`
}

// OperationalLog is an entry of the service control audit trail.
type OperationalLog struct {
	ID             int64     `json:"id"`
	InstallationID int64     `json:"installationId,omitempty"`
	Operation      string    `json:"operation"`
	SourceSystem   string    `json:"sourceSystem,omitempty"`
	Details        string    `json:"details,omitempty"`
	Success        bool      `json:"success"`
	Timestamp      LocalTime `json:"timestamp"`
	UserID         string    `json:"userId,omitempty"`
}
