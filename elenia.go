package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const eleniaBaseURL = "https://public.sgp-prod.aws.elenia.fi/api/gen"

// Markers the customer metadata uses to tag metering point roles.
const (
	consumptionPointMarker = "Liittymällä tuotannon käyttöpaikka."
	productionDeviceName   = "Tuotannon virtuaalilaite"
)

// EleniaService fetches yearly hourly meter readings. The session bootstrap
// exchanges the externally supplied Cognito bearer token for the API token
// and discovers the customer id and metering point GSRNs.
type EleniaService struct {
	BaseURL         string
	Fetcher         *Fetcher
	Token           string
	CustomerID      string
	ConsumptionGSRN string
	ProductionGSRN  string
}

type customerMetadata struct {
	Token         string                  `json:"token"`
	CustomerDatas map[string]customerData `json:"customer_datas"`
}

type customerData struct {
	MeteringPoints []meteringPoint `json:"meteringpoints"`
}

type meteringPoint struct {
	GSRN                  string `json:"gsrn"`
	AdditionalInformation string `json:"additional_information"`
	Device                struct {
		Name string `json:"name"`
	} `json:"device"`
}

// meterReadingResponse is the provider shape: readings grouped by calendar
// month, each month an ordered sequence of hourly values. The t field is
// optional; when absent the position within the month defines the hour.
type meterReadingResponse struct {
	Months []monthReadings `json:"months"`
}

type monthReadings struct {
	Month              int           `json:"month"`
	HourlyValues       []hourlyValue `json:"hourly_values"`
	HourlyValuesNetted []hourlyValue `json:"hourly_values_netted"`
}

type hourlyValue struct {
	T string  `json:"t"`
	V float64 `json:"v"`
}

// subjectClaim extracts the sub claim without verifying the signature.
// Verification is the identity provider's job; the token is opaque input here.
func subjectClaim(bearerToken string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(bearerToken, claims); err != nil {
		return "", fmt.Errorf("parsing bearer token: %w", err)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("bearer token has no sub claim")
	}
	return sub, nil
}

// NewEleniaService bootstraps a session from the bearer token: it reads the
// customer metadata, swaps to the API token it carries, and picks out the
// consumption and production GSRNs. A missing production point is fine;
// single-meter customers simply have no production series. The metadata
// request runs under ctx, so a hung endpoint cannot block startup forever.
func NewEleniaService(ctx context.Context, f *Fetcher, bearerToken string) (*EleniaService, error) {
	sub, err := subjectClaim(bearerToken)
	if err != nil {
		return nil, err
	}
	log.Printf("Authenticated subject %s", sub)

	s := &EleniaService{BaseURL: eleniaBaseURL, Fetcher: f, Token: bearerToken}

	var meta customerMetadata
	req, err := s.newRequest(ctx, "/customer_data_and_token", nil)
	if err != nil {
		return nil, err
	}
	if err := f.FetchJSON(ctx, req, "elenia metadata", &meta); err != nil {
		return nil, fmt.Errorf("fetching customer metadata: %w", err)
	}
	if meta.Token == "" || len(meta.CustomerDatas) == 0 {
		return nil, &DataShapeError{Source: "elenia metadata", Detail: "no token or customer data in response"}
	}
	s.Token = meta.Token

	// Map iteration order is random; sort so the chosen customer is stable.
	ids := make([]string, 0, len(meta.CustomerDatas))
	for id := range meta.CustomerDatas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	s.CustomerID = ids[0]

	for _, mp := range meta.CustomerDatas[s.CustomerID].MeteringPoints {
		if mp.AdditionalInformation == consumptionPointMarker {
			s.ConsumptionGSRN = mp.GSRN
		}
		if mp.Device.Name == productionDeviceName {
			s.ProductionGSRN = mp.GSRN
		}
	}
	if s.ConsumptionGSRN == "" {
		// Single metering point without production markers: use it directly.
		mps := meta.CustomerDatas[s.CustomerID].MeteringPoints
		if len(mps) == 1 {
			s.ConsumptionGSRN = mps[0].GSRN
		}
	}
	if s.ConsumptionGSRN == "" {
		return nil, &DataShapeError{Source: "elenia metadata", Detail: "no consumption metering point found"}
	}

	log.Printf("Customer %s: consumption GSRN %s, production GSRN %q",
		s.CustomerID, s.ConsumptionGSRN, s.ProductionGSRN)
	return s, nil
}

func (s *EleniaService) newRequest(ctx context.Context, path string, query url.Values) (*http.Request, error) {
	u := s.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// FetchReadings retrieves the yearly hourly readings for one metering point.
func (s *EleniaService) FetchReadings(ctx context.Context, gsrn string, year int) (*meterReadingResponse, error) {
	q := url.Values{}
	q.Set("gsrn", gsrn)
	q.Set("customer_ids", s.CustomerID)
	q.Set("year", strconv.Itoa(year))

	req, err := s.newRequest(ctx, "/meter_reading_yh", q)
	if err != nil {
		return nil, err
	}
	var out meterReadingResponse
	if err := s.Fetcher.FetchJSON(ctx, req, "elenia readings", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// NormalizeReadings flattens the monthly structure into a mapping from
// canonical hour to kWh. Readings without an explicit timestamp are
// reconstructed positionally as month_start + index hours; the addition is on
// the zone-aware instant, so DST transitions shift the local clock without
// dropping or duplicating hours. Raw values are Wh.
//
// Duplicate policy: an identical value for an hour already seen is ignored
// (first wins); a differing value aborts the series.
func NormalizeReadings(resp *meterReadingResponse, year int, loc *time.Location, netted bool) (map[time.Time]float64, error) {
	out := make(map[time.Time]float64)

	for _, month := range resp.Months {
		if month.Month < 1 || month.Month > 12 {
			return nil, &DataShapeError{Source: "elenia readings",
				Detail: fmt.Sprintf("month %d out of range", month.Month)}
		}

		values := month.HourlyValues
		if netted && len(month.HourlyValuesNetted) > 0 {
			values = month.HourlyValuesNetted
		}
		if len(values) == 0 {
			continue
		}

		monthStart := time.Date(year, time.Month(month.Month), 1, 0, 0, 0, 0, loc)
		monthHours := int(monthStart.AddDate(0, 1, 0).Sub(monthStart).Hours())
		if len(values) > monthHours {
			return nil, &DataShapeError{Source: "elenia readings",
				Detail: fmt.Sprintf("month %d has %d readings for %d hours", month.Month, len(values), monthHours)}
		}

		for i, hv := range values {
			var ts time.Time
			if hv.T != "" {
				var err error
				ts, err = parseProviderTime(hv.T, loc)
				if err != nil {
					return nil, &DataShapeError{Source: "elenia readings",
						Detail: fmt.Sprintf("bad timestamp %q: %v", hv.T, err)}
				}
			} else {
				ts = monthStart.Add(time.Duration(i) * time.Hour)
			}

			key := canonicalHour(ts)
			kwh := hv.V / 1000

			if existing, ok := out[key]; ok {
				if existing != kwh {
					return nil, &DuplicateTimestampError{Timestamp: key, Existing: existing, New: kwh}
				}
				continue
			}
			out[key] = kwh
		}
	}

	return out, nil
}

// parseProviderTime accepts RFC3339 timestamps or the naive local form both
// providers use. The offset form is preferred since it is unambiguous across
// the DST fall-back hour.
func parseProviderTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", s, loc)
}
