package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/solarmon/solarmon/pkg/chart"
	"github.com/solarmon/solarmon/pkg/log"
	"github.com/solarmon/solarmon/pkg/types"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := installationID(w, r)
	if !ok {
		return
	}
	dash := s.energy.InstallationDashboard(r.Context(), id)
	if dash == nil {
		// an empty object lets the page render its empty state
		writeJSON(w, struct{}{})
		return
	}
	writeJSON(w, dash)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	id, ok := installationID(w, r)
	if !ok {
		return
	}
	writeJSON(w, s.alerts.InstallationAlerts(r.Context(), id))
}

type chartResponse struct {
	Period     chart.Period  `json:"period"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	Normalized bool          `json:"normalized"`
	Points     []chart.Point `json:"points"`
	Totals     chart.Point   `json:"totals"`
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := installationID(w, r)
	if !ok {
		return
	}
	period := chart.Day
	if v := r.URL.Query().Get("period"); v != "" {
		p, err := chart.ParsePeriod(v)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		period = p
	}

	end := s.now().In(s.location)
	start := periodStart(period, end)
	points, err := s.series(ctx, id, period, start, end)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to aggregate chart", slog.String("period", string(period)), slog.Any("error", err))
		writeJSONError(w, "failed to build chart", http.StatusInternalServerError)
		return
	}

	resp := chartResponse{
		Period: period,
		Start:  start,
		End:    end,
		Points: points,
	}
	if s.normalize {
		if gen, cons, ok := s.expectedTotals(ctx, id, period); ok {
			resp.Points = chart.Normalize(points, gen, cons)
			resp.Normalized = true
		}
	}
	resp.Totals = chart.Totals(resp.Points)
	writeJSON(w, resp)
}

// periodStart returns the beginning of the period that contains now. Weeks
// start on Monday.
func periodStart(p chart.Period, now time.Time) time.Time {
	day := truncateDay(now)
	switch p {
	case chart.Week:
		return day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
	case chart.Month:
		return day.AddDate(0, 0, 1-day.Day())
	case chart.Year:
		return time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, day.Location())
	default:
		return day
	}
}

// series builds the buckets of period from backend summaries, falling back
// to raw readings when the backend has not summarized the period yet. Days
// always use raw readings.
func (s *Server) series(ctx context.Context, id int64, period chart.Period, start, end time.Time) ([]chart.Point, error) {
	var summaryPeriod types.SummaryPeriod
	switch period {
	case chart.Week, chart.Month:
		summaryPeriod = types.SummaryDaily
	case chart.Year:
		summaryPeriod = types.SummaryMonthly
	}
	if summaryPeriod != "" {
		summaries := s.energy.Summaries(ctx, id, summaryPeriod, start, end)
		if len(summaries) > 0 {
			return chart.AggregateSummaries(summaries, period)
		}
		log.Ctx(ctx).DebugContext(ctx, "no summaries, using readings", slog.String("period", string(period)))
	}
	readings := s.energy.ReadingsHistory(ctx, id, start, end)
	return chart.Aggregate(within(readings, start, end), period, s.location)
}

// within drops readings outside [start, end] so they cannot fill a bucket of
// another day or a future hour.
func within(readings []types.EnergyReading, start, end time.Time) []types.EnergyReading {
	out := make([]types.EnergyReading, 0, len(readings))
	for _, r := range readings {
		if r.Timestamp.Before(start) || r.Timestamp.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// expectedTotals returns the dashboard's to-date totals for period.
func (s *Server) expectedTotals(ctx context.Context, id int64, period chart.Period) (float64, float64, bool) {
	dash := s.energy.InstallationDashboard(ctx, id)
	if dash == nil {
		return 0, 0, false
	}
	switch period {
	case chart.Day:
		return dash.TodayGenerationKWh, dash.TodayConsumptionKWh, true
	case chart.Week:
		return dash.WeekToDateGenerationKWh, dash.WeekToDateConsumptionKWh, true
	case chart.Month:
		return dash.MonthToDateGenerationKWh, dash.MonthToDateConsumptionKWh, true
	case chart.Year:
		return dash.YearToDateGenerationKWh, dash.YearToDateConsumptionKWh, true
	default:
		return 0, 0, false
	}
}
