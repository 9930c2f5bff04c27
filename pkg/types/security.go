package types

// TamperSeverity ranks tamper events.
type TamperSeverity string

const (
	SeverityLow      TamperSeverity = "LOW"
	SeverityMedium   TamperSeverity = "MEDIUM"
	SeverityHigh     TamperSeverity = "HIGH"
	SeverityCritical TamperSeverity = "CRITICAL"
)

// TamperEventStatus is the triage state of a tamper event.
type TamperEventStatus string

const (
	TamperNew           TamperEventStatus = "NEW"
	TamperAcknowledged  TamperEventStatus = "ACKNOWLEDGED"
	TamperInvestigating TamperEventStatus = "INVESTIGATING"
	TamperResolved      TamperEventStatus = "RESOLVED"
)

// TamperEvent is a security event raised by an installation's sensors.
type TamperEvent struct {
	ID                   int64             `json:"id"`
	InstallationID       int64             `json:"installationId"`
	InstallationLocation string            `json:"installationLocation,omitempty"`
	EventType            string            `json:"eventType"`
	Timestamp            LocalTime         `json:"timestamp"`
	Severity             TamperSeverity    `json:"severity"`
	Description          string            `json:"description"`
	Resolved             bool              `json:"resolved"`
	ResolvedAt           LocalTime         `json:"resolvedAt"`
	ResolvedBy           string            `json:"resolvedBy,omitempty"`
	ConfidenceScore      float64           `json:"confidenceScore"`
	Status               TamperEventStatus `json:"status"`
}

// TamperResponse is an action taken in response to a tamper event.
type TamperResponse struct {
	ID              int64     `json:"id"`
	TamperEventID   int64     `json:"tamperEventId"`
	ResponseType    string    `json:"responseType"`
	ExecutedAt      LocalTime `json:"executedAt"`
	Success         bool      `json:"success"`
	ResponseDetails string    `json:"responseDetails,omitempty"`
	ExecutedBy      string    `json:"executedBy,omitempty"`
}

// SecurityLog is an audit trail entry for security activity.
type SecurityLog struct {
	ID             int64     `json:"id"`
	InstallationID int64     `json:"installationId,omitempty"`
	Timestamp      LocalTime `json:"timestamp"`
	ActivityType   string    `json:"activityType"`
	Details        string    `json:"details"`
	IPAddress      string    `json:"ipAddress,omitempty"`
	Location       string    `json:"location,omitempty"`
	UserID         string    `json:"userId,omitempty"`
}

// MonitoringStatus reports whether tamper monitoring runs for an installation.
type MonitoringStatus struct {
	InstallationID int64 `json:"installationId,omitempty"`
	Monitoring     bool  `json:"isMonitoring"`
}

// AlertConfig holds per-installation detection thresholds.
type AlertConfig struct {
	ID                              int64              `json:"id,omitempty"`
	InstallationID                  int64              `json:"installationId"`
	AlertLevel                      string             `json:"alertLevel,omitempty"`
	PhysicalMovementThreshold       float64            `json:"physicalMovementThreshold,omitempty"`
	VoltageFluctuationThreshold     float64            `json:"voltageFluctuationThreshold,omitempty"`
	ConnectionInterruptionThreshold float64            `json:"connectionInterruptionThreshold,omitempty"`
	SamplingRateSeconds             int                `json:"samplingRateSeconds,omitempty"`
	AutoResponseEnabled             bool               `json:"autoResponseEnabled"`
	Thresholds                      map[string]float64 `json:"thresholds,omitempty"`
}
