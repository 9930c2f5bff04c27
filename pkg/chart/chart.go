// Package chart turns energy readings and summaries into bucketed series for
// the dashboard charts.
package chart

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/solarmon/solarmon/pkg/types"
)

// Period selects the bucket layout of a series.
type Period string

const (
	Day   Period = "day"
	Week  Period = "week"
	Month Period = "month"
	Year  Period = "year"
)

// ParsePeriod returns the Period named by s, ignoring case.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case Day, Week, Month, Year:
		return p, nil
	default:
		return "", fmt.Errorf("unknown chart period %q", s)
	}
}

// Point is one bucket of a series. Export, Import and SelfConsumption are
// derived from Generation and Consumption by NewPoint.
type Point struct {
	Label           string  `json:"label"`
	Generation      float64 `json:"generation"`
	Consumption     float64 `json:"consumption"`
	Export          float64 `json:"export"`
	Import          float64 `json:"import"`
	SelfConsumption float64 `json:"selfConsumption"`
}

// NewPoint returns a Point with its derived metrics filled in.
func NewPoint(label string, generation, consumption float64) Point {
	return Point{
		Label:           label,
		Generation:      generation,
		Consumption:     consumption,
		Export:          max(0, generation-consumption),
		Import:          max(0, consumption-generation),
		SelfConsumption: min(generation, consumption),
	}
}

var (
	weekdayLabels = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	monthLabels   = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
)

type sample struct {
	at          time.Time
	generation  float64
	consumption float64
}

// Aggregate buckets readings for period. Power values are converted from W
// to kW and summed per bucket. Readings without a timestamp are skipped.
// Timestamps are bucketed in loc, or UTC when loc is nil.
func Aggregate(readings []types.EnergyReading, period Period, loc *time.Location) ([]Point, error) {
	samples := make([]sample, 0, len(readings))
	for _, r := range readings {
		if r.Timestamp.IsZero() {
			continue
		}
		samples = append(samples, sample{
			at:          r.Timestamp.Time,
			generation:  r.PowerGenerationWatts / 1000,
			consumption: r.PowerConsumptionWatts / 1000,
		})
	}
	return bucket(samples, period, loc)
}

// AggregateSummaries buckets summaries, already in kWh, by their calendar
// date. Summary dates are not shifted between time zones.
func AggregateSummaries(summaries []types.EnergySummary, period Period) ([]Point, error) {
	samples := make([]sample, 0, len(summaries))
	for _, s := range summaries {
		at := s.Date.Time
		if at.IsZero() {
			at = s.PeriodStart.Time
		}
		if at.IsZero() {
			continue
		}
		samples = append(samples, sample{
			at:          time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC),
			generation:  s.TotalGenerationKWh,
			consumption: s.TotalConsumptionKWh,
		})
	}
	return bucket(samples, period, time.UTC)
}

func bucket(samples []sample, period Period, loc *time.Location) ([]Point, error) {
	if loc == nil {
		loc = time.UTC
	}
	var (
		labels []string
		index  func(t time.Time) int
	)
	switch period {
	case Day:
		labels = make([]string, 24)
		for h := range labels {
			labels[h] = strconv.Itoa(h) + ":00"
		}
		index = func(t time.Time) int { return t.Hour() }
	case Week:
		labels = weekdayLabels[:]
		// time.Weekday starts on Sunday
		index = func(t time.Time) int { return (int(t.Weekday()) + 6) % 7 }
	case Month:
		return byDayOfMonth(samples, loc), nil
	case Year:
		labels = monthLabels[:]
		index = func(t time.Time) int { return int(t.Month()) - 1 }
	default:
		return nil, fmt.Errorf("unknown chart period %q", period)
	}

	gen := make([]float64, len(labels))
	cons := make([]float64, len(labels))
	for _, s := range samples {
		i := index(s.at.In(loc))
		gen[i] += s.generation
		cons[i] += s.consumption
	}
	points := make([]Point, len(labels))
	for i, l := range labels {
		points[i] = NewPoint(l, gen[i], cons[i])
	}
	return points, nil
}

// byDayOfMonth only emits days that have samples, in ascending order.
func byDayOfMonth(samples []sample, loc *time.Location) []Point {
	var gen, cons [32]float64
	var seen [32]bool
	for _, s := range samples {
		d := s.at.In(loc).Day()
		gen[d] += s.generation
		cons[d] += s.consumption
		seen[d] = true
	}
	points := []Point{}
	for d := 1; d <= 31; d++ {
		if seen[d] {
			points = append(points, NewPoint(strconv.Itoa(d), gen[d], cons[d]))
		}
	}
	return points
}

// Normalize scales generation and consumption independently so their totals
// match the expected totals, as reported by the installation dashboard. A
// side whose total or expected total is zero is left unscaled. points is not
// modified.
func Normalize(points []Point, expectedGeneration, expectedConsumption float64) []Point {
	total := Totals(points)
	genFactor := factor(total.Generation, expectedGeneration)
	consFactor := factor(total.Consumption, expectedConsumption)

	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = NewPoint(p.Label, p.Generation*genFactor, p.Consumption*consFactor)
	}
	return out
}

func factor(total, expected float64) float64 {
	if total <= 0 || expected <= 0 {
		return 1
	}
	return expected / total
}

// Totals sums a series. The derived metrics are summed per bucket, so Export
// and Import of the total reflect each bucket's surplus and deficit.
func Totals(points []Point) Point {
	t := Point{Label: "total"}
	for _, p := range points {
		t.Generation += p.Generation
		t.Consumption += p.Consumption
		t.Export += p.Export
		t.Import += p.Import
		t.SelfConsumption += p.SelfConsumption
	}
	return t
}
