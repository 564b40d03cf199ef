package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path"
	"sync"
	"time"
)

// App manages application dependencies and logic.
type App struct {
	Config     *Config
	Fetcher    *Fetcher
	Elenia     *EleniaService
	Vattenfall *VattenfallService
	Location   *time.Location
}

func NewApp(config *Config) (*App, error) {
	rt := http.DefaultTransport

	if config.CacheDirectory != "disable" {
		cacheDir := config.CacheDirectory
		if cacheDir == "" {
			cacheDir = os.TempDir()
		}
		if err := os.MkdirAll(cacheDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache dir: %w", err)
		}

		rt = &CachingRoundTripper{
			UnderlyingTransport: http.DefaultTransport, CacheDir: path.Clean(cacheDir),
		}

		log.Printf("HTTP caching enabled in directory: %s", cacheDir)
	} else {
		log.Println("HTTP caching disabled")
	}

	fetcher := NewFetcher(&http.Client{Transport: rt})

	loc, err := time.LoadLocation("Europe/Helsinki")
	if err != nil {
		return nil, fmt.Errorf("loading timezone: %w", err)
	}

	// With explicit identifiers the metadata discovery round-trip is skipped
	// and the supplied token is used for data requests directly.
	var elenia *EleniaService
	if config.CustomerID != "" && config.ConsumptionGSRN != "" {
		elenia = &EleniaService{
			BaseURL:         eleniaBaseURL,
			Fetcher:         fetcher,
			Token:           config.Token,
			CustomerID:      config.CustomerID,
			ConsumptionGSRN: config.ConsumptionGSRN,
			ProductionGSRN:  config.ProductionGSRN,
		}
	} else {
		// The bootstrap shares the fetch-phase deadline so a hung metadata
		// endpoint cannot stall startup indefinitely.
		ctx, cancel := context.WithTimeout(context.Background(), config.FetchTimeout)
		defer cancel()
		elenia, err = NewEleniaService(ctx, fetcher, config.Token)
		if err != nil {
			return nil, categorize(err, "customer metadata")
		}
	}

	return &App{
		Config:     config,
		Fetcher:    fetcher,
		Elenia:     elenia,
		Vattenfall: NewVattenfallService(fetcher),
		Location:   loc,
	}, nil
}

// RunPipeline executes one full fetch-normalize-combine cycle. The three
// fetches run as independent tasks, each building its own mapping; nothing is
// shared until all of them have finished. A production failure degrades to a
// consumption-only run; consumption or price failures abort.
func (app *App) RunPipeline(ctx context.Context) (*CombineResult, Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, app.Config.FetchTimeout)
	defer cancel()

	log.Printf("Fetching data for year %d...", app.Config.Year)

	var (
		wg          sync.WaitGroup
		consumption map[time.Time]float64
		production  map[time.Time]float64
		prices      map[time.Time]PriceQuote
		consErr     error
		prodErr     error
		priceErr    error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		consumption, consErr = app.fetchReadings(ctx, app.Elenia.ConsumptionGSRN)
	}()

	if app.Elenia.ProductionGSRN != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			production, prodErr = app.fetchReadings(ctx, app.Elenia.ProductionGSRN)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		var records []spotPriceRecord
		records, priceErr = app.Vattenfall.FetchSpotPrices(ctx, app.Config.Year)
		if priceErr == nil {
			prices, priceErr = NormalizePrices(records, app.Location, app.Config.VATRate, app.Config.PricesIncludeTax)
		}
	}()

	wg.Wait()

	if consErr != nil {
		return nil, Analysis{}, categorize(consErr, "consumption data")
	}
	if priceErr != nil {
		return nil, Analysis{}, categorize(priceErr, "price data")
	}
	if prodErr != nil {
		// Production data absent is non-fatal: combine without netting.
		log.Printf("Warning: production data unavailable, continuing without it: %v", prodErr)
		production = nil
	}

	if len(consumption) == 0 {
		return nil, Analysis{}, &DataShapeError{Source: "elenia readings", Detail: "no consumption records at all"}
	}
	log.Printf("Fetched %d consumption, %d production, %d price records",
		len(consumption), len(production), len(prices))

	result := Combine(consumption, production, prices, app.Config.Margin())
	analysis := Analyze(result, app.Config.FixedPrice)
	recordRunMetrics(result, time.Now().Unix())

	log.Printf("Combined %d records (%d hours without price, %d production-only hours)",
		len(result.Records), result.MissingPriceHours, result.ProductionOnlyHours)
	log.Printf("Total %.3f kWh for %.2f EUR (average spot %.2f c/kWh)",
		analysis.TotalKWh, analysis.TotalCostEuros, analysis.AveragePrice)
	if analysis.FixedPriceCents > 0 {
		if analysis.SavingsEuros >= 0 {
			log.Printf("Spot beat the %.2f c/kWh fixed tariff by %.2f EUR",
				analysis.FixedPriceCents, analysis.SavingsEuros)
		} else {
			log.Printf("The %.2f c/kWh fixed tariff would have been %.2f EUR cheaper",
				analysis.FixedPriceCents, -analysis.SavingsEuros)
		}
	}

	return result, analysis, nil
}

func (app *App) fetchReadings(ctx context.Context, gsrn string) (map[time.Time]float64, error) {
	resp, err := app.Elenia.FetchReadings(ctx, gsrn, app.Config.Year)
	if err != nil {
		return nil, err
	}
	return NormalizeReadings(resp, app.Config.Year, app.Location, app.Config.Netted)
}

// Run executes the pipeline once and writes the configured sinks.
func (app *App) Run() error {
	log.Println("Starting application...")

	result, _, err := app.RunPipeline(context.Background())
	if err != nil {
		return err
	}

	if err := writeCombinedFile(app.Config.OutputCSV, result.Records, app.Location); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	log.Printf("Wrote CSV to %s", app.Config.OutputCSV)

	if app.Config.OutputXLSX != "" {
		if err := writeCombinedXLSX(app.Config.OutputXLSX, result.Records, app.Location); err != nil {
			return fmt.Errorf("failed to write XLSX: %w", err)
		}
		log.Printf("Wrote XLSX to %s", app.Config.OutputXLSX)
	}

	return nil
}

// categorize turns a fetch-layer failure into an actionable, categorized
// message: credentials, upstream availability, or data shape.
func categorize(err error, what string) error {
	var shapeErr *DataShapeError
	var transientErr *TransientNetworkError
	switch {
	case IsAuthError(err):
		return fmt.Errorf("authentication rejected while fetching %s, check credentials: %w", what, err)
	case errors.As(err, &shapeErr):
		return fmt.Errorf("malformed %s from upstream: %w", what, err)
	case errors.As(err, &transientErr):
		return fmt.Errorf("upstream unavailable while fetching %s: %w", what, err)
	default:
		return fmt.Errorf("failed to fetch %s: %w", what, err)
	}
}
