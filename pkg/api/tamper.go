package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/solarmon/solarmon/pkg/types"
)

// TamperDetection controls tamper monitoring and its thresholds. The last
// monitoring state seen per installation is kept so status reads still answer
// while the backend is unreachable.
type TamperDetection struct {
	c Client

	lastKnown sync.Map // int64 -> bool
}

func newTamperDetection(c Client) *TamperDetection {
	return &TamperDetection{c: c}
}

func detectionPath(installationID int64, action string) string {
	return "/api/security/detection/installations/" + id(installationID) + "/" + action
}

// Start begins monitoring an installation.
func (t *TamperDetection) Start(ctx context.Context, installationID int64) error {
	if err := write(ctx, t.c, "start monitoring", http.MethodPost, detectionPath(installationID, "start"), nil, nil, nil); err != nil {
		return err
	}
	t.lastKnown.Store(installationID, true)
	return nil
}

// Stop ends monitoring of an installation.
func (t *TamperDetection) Stop(ctx context.Context, installationID int64) error {
	if err := write(ctx, t.c, "stop monitoring", http.MethodPost, detectionPath(installationID, "stop"), nil, nil, nil); err != nil {
		return err
	}
	t.lastKnown.Store(installationID, false)
	return nil
}

// MonitoringStatus returns whether an installation is monitored. On failure
// it answers with the last state it saw, or not monitored.
func (t *TamperDetection) MonitoringStatus(ctx context.Context, installationID int64) types.MonitoringStatus {
	var out types.MonitoringStatus
	if err := t.c.JSON(ctx, http.MethodGet, detectionPath(installationID, "status"), nil, nil, &out); err != nil {
		readFailed(ctx, "fetch monitoring status", err)
		last, _ := t.lastKnown.Load(installationID)
		monitoring, _ := last.(bool)
		return types.MonitoringStatus{InstallationID: installationID, Monitoring: monitoring}
	}
	out.InstallationID = installationID
	t.lastKnown.Store(installationID, out.Monitoring)
	return out
}

// IsMonitoring is MonitoringStatus reduced to its flag.
func (t *TamperDetection) IsMonitoring(ctx context.Context, installationID int64) bool {
	return t.MonitoringStatus(ctx, installationID).Monitoring
}

// RunDiagnostics asks the installation to check its sensors. The result is
// backend-defined and returned as-is.
func (t *TamperDetection) RunDiagnostics(ctx context.Context, installationID int64) (map[string]any, error) {
	var out map[string]any
	if err := write(ctx, t.c, "run diagnostics", http.MethodPost, detectionPath(installationID, "diagnostics"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AdjustSensitivity sets the threshold of one event type.
func (t *TamperDetection) AdjustSensitivity(ctx context.Context, installationID int64, eventType string, threshold float64) error {
	body := map[string]float64{"threshold": threshold}
	return write(ctx, t.c, "adjust sensitivity", http.MethodPut, detectionPath(installationID, "sensitivity/"+eventType), nil, body, nil)
}

// Sensitivity returns an installation's alert configuration.
func (t *TamperDetection) Sensitivity(ctx context.Context, installationID int64) (*types.AlertConfig, error) {
	var out types.AlertConfig
	if err := write(ctx, t.c, "fetch sensitivity", http.MethodGet, "/api/security/installations/"+id(installationID)+"/sensitivity", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSensitivity replaces an installation's alert configuration.
func (t *TamperDetection) UpdateSensitivity(ctx context.Context, installationID int64, cfg types.AlertConfig) (*types.AlertConfig, error) {
	var out types.AlertConfig
	if err := write(ctx, t.c, "update sensitivity", http.MethodPut, "/api/security/installations/"+id(installationID)+"/sensitivity", nil, cfg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
