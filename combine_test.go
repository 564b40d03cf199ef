package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func hourKey(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func quoteAt(ts time.Time, cents float64) PriceQuote {
	return PriceQuote{Timestamp: ts, CentsPerKWh: cents, TaxIncluded: true}
}

func TestCombineCostArithmetic(t *testing.T) {
	ts := hourKey(2024, 6, 1, 12)
	consumption := map[time.Time]float64{ts: 10}
	prices := map[time.Time]PriceQuote{ts: quoteAt(ts, 5.0)}

	result := Combine(consumption, nil, prices, 0.5)
	require.Len(t, result.Records, 1)

	rec := result.Records[0]
	require.Equal(t, 10.0, rec.NetKWh)
	require.Equal(t, 5.0, rec.CentsPerKWh)
	require.Equal(t, 0.5, rec.MarginCents)
	require.Equal(t, 0.55, rec.CostEuros, "10 kWh at 5.5 c/kWh is 0.55 EUR exactly")
}

func TestCombineInnerJoinDropsUnpricedHours(t *testing.T) {
	day := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	consumption := map[time.Time]float64{}
	prices := map[time.Time]PriceQuote{}
	for h := 0; h < 24; h++ {
		ts := day.Add(time.Duration(h) * time.Hour)
		consumption[ts] = 1
		if h < 23 { // the last hour has no quote
			prices[ts] = quoteAt(ts, 10)
		}
	}

	result := Combine(consumption, nil, prices, 0)
	require.Len(t, result.Records, 23)
	require.Equal(t, 1, result.MissingPriceHours)

	// Every output hour has both sides of the join.
	for _, rec := range result.Records {
		_, inConsumption := consumption[rec.Timestamp]
		_, inPrices := prices[rec.Timestamp]
		require.True(t, inConsumption && inPrices)
	}
}

func TestCombineNetting(t *testing.T) {
	ts := hourKey(2024, 7, 1, 13)
	prices := map[time.Time]PriceQuote{ts: quoteAt(ts, 10)}

	tests := []struct {
		name        string
		consumption float64
		production  float64
		expectNet   float64
		expectCost  float64
	}{
		{"import exceeds export", 8, 5, 3, 3 * 10.5 / 100},
		{"export exceeds import", 5, 8, -3, -3 * 10.5 / 100},
		{"exact balance", 5, 5, 0, 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := Combine(
				map[time.Time]float64{ts: test.consumption},
				map[time.Time]float64{ts: test.production},
				prices, 0.5)
			require.Len(t, result.Records, 1)
			require.Equal(t, test.expectNet, result.Records[0].NetKWh)
			require.Equal(t, test.expectCost, result.Records[0].CostEuros)
		})
	}
}

func TestCombineWithoutProductionSeries(t *testing.T) {
	ts := hourKey(2024, 1, 1, 0)
	result := Combine(
		map[time.Time]float64{ts: 4},
		nil,
		map[time.Time]PriceQuote{ts: quoteAt(ts, 10)}, 0)

	require.Len(t, result.Records, 1)
	require.Equal(t, 4.0, result.Records[0].NetKWh)
}

func TestCombineCountsProductionOnlyHours(t *testing.T) {
	shared := hourKey(2024, 5, 1, 10)
	lonely := hourKey(2024, 5, 1, 11)

	result := Combine(
		map[time.Time]float64{shared: 2},
		map[time.Time]float64{shared: 1, lonely: 3},
		map[time.Time]PriceQuote{
			shared: quoteAt(shared, 10),
			lonely: quoteAt(lonely, 10),
		}, 0)

	require.Len(t, result.Records, 1, "production-only hours never enter the output")
	require.Equal(t, 1, result.ProductionOnlyHours)
	require.Equal(t, shared, result.Records[0].Timestamp)
}

func TestCombineSortsAscending(t *testing.T) {
	consumption := map[time.Time]float64{}
	prices := map[time.Time]PriceQuote{}
	for h := 0; h < 48; h++ {
		ts := hourKey(2024, 3, 1, 0).Add(time.Duration(h) * time.Hour)
		consumption[ts] = 1
		prices[ts] = quoteAt(ts, 5)
	}

	result := Combine(consumption, nil, prices, 0)
	require.Len(t, result.Records, 48)
	for i := 1; i < len(result.Records); i++ {
		require.True(t, result.Records[i-1].Timestamp.Before(result.Records[i].Timestamp))
	}
}

func TestCombineJoinsDSTFallBackHours(t *testing.T) {
	// Helsinki 2024-10-27: the local clock shows 03:00 twice. The two
	// instants are distinct and must each join their own price.
	first := time.Date(2024, 10, 27, 0, 0, 0, 0, time.UTC)  // first 03:00 local
	second := time.Date(2024, 10, 27, 1, 0, 0, 0, time.UTC) // repeated 03:00 local
	require.NotEqual(t, first, second)

	consumption := map[time.Time]float64{first: 1, second: 2}
	prices := map[time.Time]PriceQuote{
		first:  quoteAt(first, 10),
		second: quoteAt(second, 20),
	}

	result := Combine(consumption, nil, prices, 0)
	require.Len(t, result.Records, 2)
	require.Equal(t, 0, result.MissingPriceHours)
	require.Equal(t, 0.1, result.Records[0].CostEuros)
	require.Equal(t, 0.4, result.Records[1].CostEuros)
}

func TestAnalyze(t *testing.T) {
	ts := hourKey(2024, 1, 1, 0)
	result := &CombineResult{
		Records: []CombinedRecord{
			{Timestamp: ts, NetKWh: 10, CentsPerKWh: 4, CostEuros: 0.4},
			{Timestamp: ts.Add(time.Hour), NetKWh: 10, CentsPerKWh: 6, CostEuros: 0.6},
		},
		MissingPriceHours: 2,
	}

	a := Analyze(result, 8.5)
	require.Equal(t, 2, a.Records)
	require.Equal(t, 20.0, a.TotalKWh)
	require.InDelta(t, 1.0, a.TotalCostEuros, 1e-9)
	require.Equal(t, 5.0, a.AveragePrice)
	require.Equal(t, 2, a.MissingPrice)

	// Fixed tariff: 20 kWh at 8.5 c/kWh = 1.70 EUR; spot cost 1.00 EUR.
	require.InDelta(t, 1.7, a.FixedCostEuros, 1e-9)
	require.InDelta(t, 0.7, a.SavingsEuros, 1e-9)
}

func TestAnalyzeEmpty(t *testing.T) {
	a := Analyze(&CombineResult{}, 8.5)
	require.Zero(t, a.TotalKWh)
	require.Zero(t, a.FixedCostEuros)
	require.Zero(t, a.AveragePrice)
}
