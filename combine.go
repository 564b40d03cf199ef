package main

import (
	"sort"
	"time"
)

// Combine inner-joins consumption with prices on the canonical hour and nets
// production off first. Hours present only in the production series are
// dropped (there is nothing to bill), and consumption hours without a price
// are dropped because no cost can be computed; both are counted rather than
// treated as errors. Records come back sorted ascending by timestamp.
//
// cost_euros = net_kWh * (price_cents + margin_cents) / 100, so an export
// hour (negative net) carries a negative cost: a credit at spot+margin.
func Combine(consumption, production map[time.Time]float64, prices map[time.Time]PriceQuote, marginCents float64) *CombineResult {
	result := &CombineResult{}

	for ts := range production {
		if _, ok := consumption[ts]; !ok {
			result.ProductionOnlyHours++
		}
	}

	for ts, kwh := range consumption {
		net := kwh
		if prod, ok := production[ts]; ok {
			net -= prod
		}

		quote, ok := prices[ts]
		if !ok {
			result.MissingPriceHours++
			continue
		}

		result.Records = append(result.Records, CombinedRecord{
			Timestamp:   ts,
			NetKWh:      net,
			CentsPerKWh: quote.CentsPerKWh,
			MarginCents: marginCents,
			CostEuros:   net * (quote.CentsPerKWh + marginCents) / 100,
		})
	}

	sort.Slice(result.Records, func(i, j int) bool {
		return result.Records[i].Timestamp.Before(result.Records[j].Timestamp)
	})

	return result
}

// Analyze totals a combined record set and, when fixedPriceCents is positive,
// compares the spot cost against the equivalent fixed-tariff cost.
// A positive savings figure means spot was cheaper.
func Analyze(result *CombineResult, fixedPriceCents float64) Analysis {
	a := Analysis{
		Records:        len(result.Records),
		MissingPrice:   result.MissingPriceHours,
		ProductionOnly: result.ProductionOnlyHours,
	}
	if len(result.Records) == 0 {
		return a
	}

	var priceSum float64
	for _, r := range result.Records {
		a.TotalKWh += r.NetKWh
		a.TotalCostEuros += r.CostEuros
		priceSum += r.CentsPerKWh
	}
	a.AveragePrice = priceSum / float64(len(result.Records))
	a.FirstTimestamp = result.Records[0].Timestamp.Format(time.RFC3339)
	a.LastTimestamp = result.Records[len(result.Records)-1].Timestamp.Format(time.RFC3339)

	if fixedPriceCents > 0 {
		a.FixedPriceCents = fixedPriceCents
		a.FixedCostEuros = a.TotalKWh * fixedPriceCents / 100
		a.SavingsEuros = a.FixedCostEuros - a.TotalCostEuros
	}
	return a
}
