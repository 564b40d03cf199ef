package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const vattenfallBaseURL = "https://www.vattenfall.fi"

// VattenfallService fetches hourly spot prices for a date range. Prices come
// back exclusive of VAT in cents/kWh.
type VattenfallService struct {
	BaseURL string
	Fetcher *Fetcher
}

func NewVattenfallService(f *Fetcher) *VattenfallService {
	return &VattenfallService{BaseURL: vattenfallBaseURL, Fetcher: f}
}

// spotPriceRecord is the provider shape. The value field is sometimes a JSON
// number and sometimes a locale-formatted string with a comma decimal
// separator.
type spotPriceRecord struct {
	TimeStamp string       `json:"timeStamp"`
	Value     decimalValue `json:"value"`
	PriceArea string       `json:"priceArea"`
	Unit      string       `json:"unit"`
}

type decimalValue float64

func (d *decimalValue) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if strings.HasPrefix(s, `"`) {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		s = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid price value %s: %w", s, err)
	}
	*d = decimalValue(v)
	return nil
}

// FetchSpotPrices retrieves the hourly quotes for one calendar year.
func (s *VattenfallService) FetchSpotPrices(ctx context.Context, year int) ([]spotPriceRecord, error) {
	u := fmt.Sprintf("%s/api/price/spot/%d-01-01/%d-12-31?lang=fi", s.BaseURL, year, year)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	var out []spotPriceRecord
	if err := s.Fetcher.FetchJSON(ctx, req, "vattenfall prices", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NormalizePrices builds the hourly price mapping. VAT is applied exactly
// once: quotes flagged as tax-included pass through unchanged, everything
// else is multiplied by 1+vatRate and flagged. Duplicate hours with the same
// value keep the first quote; a differing value aborts the series.
func NormalizePrices(records []spotPriceRecord, loc *time.Location, vatRate float64, taxIncluded bool) (map[time.Time]PriceQuote, error) {
	out := make(map[time.Time]PriceQuote, len(records))

	for _, r := range records {
		ts, err := parseProviderTime(r.TimeStamp, loc)
		if err != nil {
			return nil, &DataShapeError{Source: "vattenfall prices",
				Detail: fmt.Sprintf("bad timestamp %q: %v", r.TimeStamp, err)}
		}
		key := canonicalHour(ts)

		q := PriceQuote{
			Timestamp:   key,
			CentsPerKWh: float64(r.Value),
			TaxIncluded: taxIncluded,
			PriceArea:   r.PriceArea,
		}
		q = q.WithVAT(vatRate)

		if existing, ok := out[key]; ok {
			if existing.CentsPerKWh != q.CentsPerKWh {
				return nil, &DuplicatePriceError{Timestamp: key, Existing: existing.CentsPerKWh, New: q.CentsPerKWh}
			}
			continue
		}
		out[key] = q
	}

	return out, nil
}
