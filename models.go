package main

import "time"

// MeterRole distinguishes the two logical series a metering point can report.
type MeterRole string

const (
	RoleConsumption MeterRole = "consumption"
	RoleProduction  MeterRole = "production"
)

// PriceQuote is one hourly spot price. CentsPerKWh is the retail-facing value;
// TaxIncluded records whether VAT has already been applied so it is never
// applied twice.
type PriceQuote struct {
	Timestamp   time.Time
	CentsPerKWh float64
	TaxIncluded bool
	PriceArea   string
}

// WithVAT returns the quote with VAT applied. Quotes that already include tax
// are returned unchanged, so applying it twice never changes the value.
func (q PriceQuote) WithVAT(rate float64) PriceQuote {
	if q.TaxIncluded {
		return q
	}
	q.CentsPerKWh *= 1 + rate
	q.TaxIncluded = true
	return q
}

// CombinedRecord is one reconciled hour: net consumption joined to its price.
// NetKWh is signed; negative means the site exported more than it drew, and
// the cost follows that sign (an export hour is a credit at spot+margin).
type CombinedRecord struct {
	Timestamp   time.Time
	NetKWh      float64
	CentsPerKWh float64
	MarginCents float64
	CostEuros   float64
}

// CombineResult is the engine output: the ordered records plus the gap
// accounting the run summary reports.
type CombineResult struct {
	Records []CombinedRecord
	// MissingPriceHours counts consumption hours dropped because no price
	// quote existed for them.
	MissingPriceHours int
	// ProductionOnlyHours counts production hours with no matching
	// consumption entry; they never enter the output.
	ProductionOnlyHours int
}

// Analysis summarises a combined record set against an optional fixed tariff.
type Analysis struct {
	Records         int     `json:"records"`
	TotalKWh        float64 `json:"total_kWh"`
	TotalCostEuros  float64 `json:"total_cost_euros"`
	AveragePrice    float64 `json:"average_price_cents_per_kWh"`
	FixedPriceCents float64 `json:"fixed_price_cents_per_kWh,omitempty"`
	FixedCostEuros  float64 `json:"fixed_cost_euros,omitempty"`
	SavingsEuros    float64 `json:"savings_euros,omitempty"`
	FirstTimestamp  string  `json:"first_timestamp,omitempty"`
	LastTimestamp   string  `json:"last_timestamp,omitempty"`
	MissingPrice    int     `json:"missing_price_hours"`
	ProductionOnly  int     `json:"production_only_hours"`
}

// canonicalHour truncates t to the hour and normalizes it to UTC. All join
// keys go through this; time.Time map keys only compare equal when their
// locations match, so both series must land in the same zone.
func canonicalHour(t time.Time) time.Time {
	return t.Truncate(time.Hour).UTC()
}
