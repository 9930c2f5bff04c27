package types

// EnergyReading is a single instantaneous power sample from an installation.
type EnergyReading struct {
	ID                    int64     `json:"id,omitempty"`
	InstallationID        int64     `json:"installationId"`
	PowerGenerationWatts  float64   `json:"powerGenerationWatts"`
	PowerConsumptionWatts float64   `json:"powerConsumptionWatts"`
	Timestamp             LocalTime `json:"timestamp"`
	DailyYieldKWh         float64   `json:"dailyYieldKWh,omitempty"`
	TotalYieldKWh         float64   `json:"totalYieldKWh,omitempty"`
	Simulated             bool      `json:"isSimulated,omitempty"`
}

// SummaryPeriod is the granularity of an EnergySummary.
type SummaryPeriod string

const (
	SummaryDaily   SummaryPeriod = "DAILY"
	SummaryWeekly  SummaryPeriod = "WEEKLY"
	SummaryMonthly SummaryPeriod = "MONTHLY"
)

// EnergySummary is a backend-computed rollup of readings over a period.
type EnergySummary struct {
	ID                   int64         `json:"id"`
	InstallationID       int64         `json:"installationId"`
	Date                 LocalTime     `json:"date"`
	Period               SummaryPeriod `json:"period"`
	TotalGenerationKWh   float64       `json:"totalGenerationKWh"`
	TotalConsumptionKWh  float64       `json:"totalConsumptionKWh"`
	PeakGenerationWatts  float64       `json:"peakGenerationWatts"`
	PeakConsumptionWatts float64       `json:"peakConsumptionWatts"`
	EfficiencyPercentage float64       `json:"efficiencyPercentage"`
	ReadingsCount        int           `json:"readingsCount"`
	PeriodStart          LocalTime     `json:"periodStart"`
	PeriodEnd            LocalTime     `json:"periodEnd"`
}

// Installation describes a solar installation.
type Installation struct {
	ID                  int64     `json:"id"`
	UserID              int64     `json:"userId,omitempty"`
	Name                string    `json:"name"`
	InstalledCapacityKW float64   `json:"installedCapacityKW"`
	Location            string    `json:"location"`
	InstallationDate    LocalTime `json:"installationDate"`
	Status              string    `json:"status"`
	TamperDetected      bool      `json:"tamperDetected"`
	LastTamperCheck     LocalTime `json:"lastTamperCheck"`
	Type                string    `json:"type,omitempty"`
}

// InstallationDashboard is the per-installation dashboard payload.
type InstallationDashboard struct {
	InstallationID               int64           `json:"installationId"`
	CurrentPowerGenerationWatts  float64         `json:"currentPowerGenerationWatts"`
	CurrentPowerConsumptionWatts float64         `json:"currentPowerConsumptionWatts"`
	TodayGenerationKWh           float64         `json:"todayGenerationKWh"`
	TodayConsumptionKWh          float64         `json:"todayConsumptionKWh"`
	WeekToDateGenerationKWh      float64         `json:"weekToDateGenerationKWh"`
	WeekToDateConsumptionKWh     float64         `json:"weekToDateConsumptionKWh"`
	MonthToDateGenerationKWh     float64         `json:"monthToDateGenerationKWh"`
	MonthToDateConsumptionKWh    float64         `json:"monthToDateConsumptionKWh"`
	YearToDateGenerationKWh      float64         `json:"yearToDateGenerationKWh"`
	YearToDateConsumptionKWh     float64         `json:"yearToDateConsumptionKWh"`
	LifetimeGenerationKWh        float64         `json:"lifetimeGenerationKWh"`
	LifetimeConsumptionKWh       float64         `json:"lifetimeConsumptionKWh"`
	CurrentEfficiencyPercentage  float64         `json:"currentEfficiencyPercentage"`
	AverageEfficiencyPercentage  float64         `json:"averageEfficiencyPercentage"`
	LastUpdated                  LocalTime       `json:"lastUpdated"`
	RecentReadings               []EnergyReading `json:"recentReadings"`
	InstallationDetails          *Installation   `json:"installationDetails,omitempty"`
}

// CustomerDashboard aggregates all installations belonging to a customer.
type CustomerDashboard struct {
	UserID                   int64           `json:"userId"`
	TotalInstallations       int             `json:"totalInstallations"`
	TotalCapacityKW          float64         `json:"totalCapacityKW"`
	TodayGenerationKWh       float64         `json:"todayGenerationKWh"`
	MonthToDateGenerationKWh float64         `json:"monthToDateGenerationKWh"`
	LifetimeGenerationKWh    float64         `json:"lifetimeGenerationKWh"`
	Installations            []Installation  `json:"installations"`
	RecentReadings           []EnergyReading `json:"recentReadings"`
}

// SystemOverview is the admin-wide energy overview.
type SystemOverview struct {
	TotalActiveInstallations int     `json:"totalActiveInstallations"`
	TotalSystemCapacityKW    float64 `json:"totalSystemCapacityKW"`
	CurrentGenerationWatts   float64 `json:"currentSystemGenerationWatts"`
	TodayTotalGenerationKWh  float64 `json:"todayTotalGenerationKWh"`
	MonthToDateGenerationKWh float64 `json:"monthToDateGenerationKWh"`
	YearToDateGenerationKWh  float64 `json:"yearToDateGenerationKWh"`
	AverageEfficiency        float64 `json:"averageSystemEfficiency"`
	InstallationsWithIssues  int     `json:"installationsWithIssues"`
	UnderperformingCount     int     `json:"underperformingInstallations"`
}
