package chart

import (
	"testing"
	"time"

	"github.com/solarmon/solarmon/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reading(ts string, gen, cons float64) types.EnergyReading {
	r := types.EnergyReading{PowerGenerationWatts: gen, PowerConsumptionWatts: cons}
	if ts != "" {
		lt, err := types.ParseLocalTime(ts)
		if err != nil {
			panic(err)
		}
		r.Timestamp = lt
	}
	return r
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod(" Week ")
	require.NoError(t, err)
	assert.Equal(t, Week, p)

	_, err = ParsePeriod("decade")
	assert.Error(t, err)
}

func TestNewPoint(t *testing.T) {
	for _, tt := range []struct{ gen, cons float64 }{
		{5, 3}, {3, 5}, {0, 0}, {2.5, 2.5}, {0, 1.25}, {7.75, 0},
	} {
		p := NewPoint("x", tt.gen, tt.cons)
		assert.GreaterOrEqual(t, p.Export, 0.0)
		assert.GreaterOrEqual(t, p.Import, 0.0)
		assert.Equal(t, tt.gen-tt.cons, p.Export-p.Import)
		assert.Equal(t, min(tt.gen, tt.cons), p.SelfConsumption)
	}
}

func TestAggregateDay(t *testing.T) {
	points, err := Aggregate([]types.EnergyReading{
		reading("2024-05-01T13:15:00", 5000, 3000),
	}, Day, nil)
	require.NoError(t, err)
	require.Len(t, points, 24)
	assert.Equal(t, "0:00", points[0].Label)
	assert.Equal(t, "23:00", points[23].Label)

	assert.Equal(t, Point{
		Label:           "13:00",
		Generation:      5,
		Consumption:     3,
		Export:          2,
		Import:          0,
		SelfConsumption: 3,
	}, points[13])
	assert.Equal(t, NewPoint("12:00", 0, 0), points[12])
}

func TestAggregateSkipsMissingTimestamps(t *testing.T) {
	points, err := Aggregate([]types.EnergyReading{
		reading("", 9000, 9000),
		reading("2024-05-01T08:00:00", 1000, 500),
		reading("2024-05-01T08:30:00", 1000, 500),
	}, Day, nil)
	require.NoError(t, err)
	total := Totals(points)
	assert.Equal(t, 2.0, total.Generation)
	assert.Equal(t, 1.0, total.Consumption)
	assert.Equal(t, 2.0, points[8].Generation)
}

func TestAggregateWeek(t *testing.T) {
	// 2024-05-05 is a Sunday, 2024-05-06 a Monday
	points, err := Aggregate([]types.EnergyReading{
		reading("2024-05-05T10:00:00", 2000, 1000),
		reading("2024-05-06T10:00:00", 4000, 1000),
	}, Week, nil)
	require.NoError(t, err)
	require.Len(t, points, 7)
	assert.Equal(t, "Mon", points[0].Label)
	assert.Equal(t, 4.0, points[0].Generation)
	assert.Equal(t, "Sun", points[6].Label)
	assert.Equal(t, 2.0, points[6].Generation)
}

func TestAggregateMonth(t *testing.T) {
	points, err := Aggregate([]types.EnergyReading{
		reading("2024-05-17T10:00:00", 1000, 0),
		reading("2024-05-03T10:00:00", 2000, 0),
		reading("2024-05-17T11:00:00", 1000, 0),
	}, Month, nil)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "3", points[0].Label)
	assert.Equal(t, "17", points[1].Label)
	assert.Equal(t, 2.0, points[1].Generation)

	points, err = Aggregate(nil, Month, nil)
	require.NoError(t, err)
	assert.NotNil(t, points)
	assert.Empty(t, points)
}

func TestAggregateYear(t *testing.T) {
	points, err := Aggregate([]types.EnergyReading{
		reading("2024-12-31T23:00:00", 1000, 2000),
	}, Year, nil)
	require.NoError(t, err)
	require.Len(t, points, 12)
	assert.Equal(t, "Jan", points[0].Label)
	assert.Equal(t, "Dec", points[11].Label)
	assert.Equal(t, 1.0, points[11].Import)
}

func TestAggregateLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	points, err := Aggregate([]types.EnergyReading{
		reading("2024-05-01T23:00:00Z", 1000, 0),
	}, Day, loc)
	require.NoError(t, err)
	assert.Equal(t, 1.0, points[1].Generation)
}

func TestAggregateUnknownPeriod(t *testing.T) {
	_, err := Aggregate(nil, Period("hour"), nil)
	assert.Error(t, err)
}

func TestAggregateIdempotent(t *testing.T) {
	readings := []types.EnergyReading{
		reading("2024-05-01T06:00:00", 1200, 800),
		reading("2024-05-01T06:45:00", 3400, 900),
		reading("2024-05-02T18:00:00", 0, 2100),
	}
	for _, p := range []Period{Day, Week, Month, Year} {
		a, err := Aggregate(readings, p, nil)
		require.NoError(t, err)
		b, err := Aggregate(readings, p, nil)
		require.NoError(t, err)
		assert.Equal(t, a, b, p)
	}
}

func TestAggregateSummaries(t *testing.T) {
	date := func(s string) types.LocalTime {
		lt, err := types.ParseLocalTime(s)
		require.NoError(t, err)
		return lt
	}
	points, err := AggregateSummaries([]types.EnergySummary{
		{Date: date("2024-02-10"), TotalGenerationKWh: 12, TotalConsumptionKWh: 8},
		{Date: date("2024-02-11"), TotalGenerationKWh: 10, TotalConsumptionKWh: 9},
		{PeriodStart: date("2024-03-01"), TotalGenerationKWh: 4, TotalConsumptionKWh: 6},
		{TotalGenerationKWh: 99},
	}, Year)
	require.NoError(t, err)
	assert.Equal(t, NewPoint("Feb", 22, 17), points[1])
	assert.Equal(t, NewPoint("Mar", 4, 6), points[2])
	assert.Equal(t, 26.0, Totals(points).Generation)
}

func TestNormalize(t *testing.T) {
	points := []Point{NewPoint("a", 1, 2), NewPoint("b", 3, 2)}

	out := Normalize(points, 8, 2)
	assert.Equal(t, NewPoint("a", 2, 1), out[0])
	assert.Equal(t, NewPoint("b", 6, 1), out[1])
	assert.Equal(t, NewPoint("a", 1, 2), points[0], "input untouched")

	// no expected consumption keeps consumption as-is
	out = Normalize(points, 8, 0)
	assert.Equal(t, 2.0, out[0].Consumption)
	assert.Equal(t, 2.0, out[0].Generation)

	empty := []Point{NewPoint("a", 0, 0)}
	assert.Equal(t, empty, Normalize(empty, 10, 10))
}

func TestTotals(t *testing.T) {
	total := Totals([]Point{NewPoint("a", 5, 3), NewPoint("b", 1, 4)})
	assert.Equal(t, Point{
		Label:           "total",
		Generation:      6,
		Consumption:     7,
		Export:          2,
		Import:          3,
		SelfConsumption: 4,
	}, total)
}
