package server

import (
	"context"
	"time"

	"github.com/solarmon/solarmon/pkg/session"
	"github.com/solarmon/solarmon/pkg/stream"
	"github.com/solarmon/solarmon/pkg/types"
	"github.com/stretchr/testify/mock"
)

type mockEnergy struct {
	mock.Mock
}

func (m *mockEnergy) InstallationDashboard(ctx context.Context, installationID int64) *types.InstallationDashboard {
	args := m.Called(ctx, installationID)
	d, _ := args.Get(0).(*types.InstallationDashboard)
	return d
}

func (m *mockEnergy) ReadingsHistory(ctx context.Context, installationID int64, start, end time.Time) []types.EnergyReading {
	args := m.Called(ctx, installationID, start, end)
	r, _ := args.Get(0).([]types.EnergyReading)
	return r
}

func (m *mockEnergy) Summaries(ctx context.Context, installationID int64, period types.SummaryPeriod, start, end time.Time) []types.EnergySummary {
	args := m.Called(ctx, installationID, period, start, end)
	s, _ := args.Get(0).([]types.EnergySummary)
	return s
}

type mockAlerts struct {
	mock.Mock
}

func (m *mockAlerts) InstallationAlerts(ctx context.Context, installationID int64) []types.TamperEvent {
	args := m.Called(ctx, installationID)
	e, _ := args.Get(0).([]types.TamperEvent)
	return e
}

type mockTokens struct {
	mock.Mock
}

func (m *mockTokens) Token(ctx context.Context) (string, session.Scope, error) {
	args := m.Called(ctx)
	return args.String(0), args.Get(1).(session.Scope), args.Error(2)
}

// fakeFeed hands its subscriber to the test so messages can be pushed
// synchronously.
type fakeFeed struct {
	connected bool
	handler   stream.Handler
}

func (f *fakeFeed) Subscribe(h stream.Handler) func() {
	f.handler = h
	return func() { f.handler = nil }
}

func (f *fakeFeed) IsConnected() bool {
	return f.connected
}
