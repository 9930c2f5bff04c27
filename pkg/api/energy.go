package api

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/solarmon/solarmon/pkg/types"
)

// Energy covers readings, dashboards and summaries.
type Energy struct {
	c Client
}

// SubmitReading records a reading.
func (e *Energy) SubmitReading(ctx context.Context, r types.EnergyReading) (*types.EnergyReading, error) {
	var out types.EnergyReading
	if err := write(ctx, e.c, "submit energy reading", http.MethodPost, "/monitoring/readings", nil, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SystemOverview returns the admin-wide overview, or nil.
func (e *Energy) SystemOverview(ctx context.Context) *types.SystemOverview {
	return readOne[types.SystemOverview](ctx, e.c, "fetch system overview", "/monitoring/installations/overview", nil)
}

// CustomerDashboard returns the dashboard of a customer, or nil.
func (e *Energy) CustomerDashboard(ctx context.Context, customerID int64) *types.CustomerDashboard {
	return readOne[types.CustomerDashboard](ctx, e.c, "fetch customer dashboard", "/monitoring/dashboard/customer/"+id(customerID), nil)
}

// InstallationDashboard returns the dashboard of an installation, or nil.
func (e *Energy) InstallationDashboard(ctx context.Context, installationID int64) *types.InstallationDashboard {
	return readOne[types.InstallationDashboard](ctx, e.c, "fetch installation dashboard", "/monitoring/dashboard/installation/"+id(installationID), nil)
}

// RecentReadings returns up to limit of the latest readings.
func (e *Energy) RecentReadings(ctx context.Context, installationID int64, limit int) []types.EnergyReading {
	if limit <= 0 {
		limit = 10
	}
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	return readList[types.EnergyReading](ctx, e.c, "fetch recent readings", "/monitoring/readings/recent/"+id(installationID), q)
}

// ReadingsHistory returns the readings between start and end.
func (e *Energy) ReadingsHistory(ctx context.Context, installationID int64, start, end time.Time) []types.EnergyReading {
	q := url.Values{
		"startDate": {types.FormatDateTime(start)},
		"endDate":   {types.FormatDateTime(end)},
	}
	return readList[types.EnergyReading](ctx, e.c, "fetch reading history", "/monitoring/readings/history/"+id(installationID), q)
}

// GenerateSummary asks the backend to compute the summary of the current
// period.
func (e *Energy) GenerateSummary(ctx context.Context, installationID int64, period types.SummaryPeriod) (*types.EnergySummary, error) {
	var out types.EnergySummary
	path := "/monitoring/summaries/" + id(installationID) + "/generate/" + strings.ToLower(string(period))
	if err := write(ctx, e.c, "generate "+strings.ToLower(string(period))+" summary", http.MethodPost, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Summaries returns the summaries of period, optionally limited to a date
// range. Zero times leave that side open.
func (e *Energy) Summaries(ctx context.Context, installationID int64, period types.SummaryPeriod, start, end time.Time) []types.EnergySummary {
	q := url.Values{}
	if !start.IsZero() {
		q.Set("startDate", types.FormatDate(start))
	}
	if !end.IsZero() {
		q.Set("endDate", types.FormatDate(end))
	}
	path := "/monitoring/summaries/" + id(installationID) + "/" + strings.ToLower(string(period))
	return readList[types.EnergySummary](ctx, e.c, "fetch "+strings.ToLower(string(period))+" summaries", path, q)
}

// AverageEfficiency averages generation/consumption over the last 30
// readings, capped at 100% per reading and rounded to two decimals. Without
// usable readings it falls back to the dashboard figure, and to 0 without a
// dashboard.
func (e *Energy) AverageEfficiency(ctx context.Context, installationID int64) float64 {
	dash := e.InstallationDashboard(ctx, installationID)
	if dash == nil {
		return 0
	}
	var sum float64
	var n int
	for _, r := range e.RecentReadings(ctx, installationID, 30) {
		if r.PowerGenerationWatts > 0 && r.PowerConsumptionWatts > 0 {
			sum += math.Min(100, r.PowerGenerationWatts/r.PowerConsumptionWatts*100)
			n++
		}
	}
	if n == 0 {
		return dash.CurrentEfficiencyPercentage
	}
	return math.Round(sum/float64(n)*100) / 100
}
