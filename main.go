package main

import (
	"flag"
	"log"
	"os"
	"strconv"
	"time"
)

// envOrString returns the environment variable value if set, otherwise returns the default value.
func envOrString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func parseFlags() *Config {
	cfg := defaultConfig()

	configPath := flag.String("config", envOrString("CONFIG_FILE", ""), "Optional YAML config file")
	token := flag.String("token", envOrString("ELENIA_TOKEN", ""), "Bearer token from the credential provider")
	year := flag.String("year", envOrString("YEAR", ""), "Target calendar year")
	margin := flag.String("margin", envOrString("SPOT_MARGIN", ""), "Supplier margin in cents/kWh added to the spot price")
	fixedPrice := flag.String("fixedPrice", envOrString("FIXED_PRICE", ""), "Fixed tariff in cents/kWh for the savings comparison (optional)")
	vatRate := flag.String("vatRate", envOrString("VAT_RATE", ""), "VAT rate applied to quotes that do not include tax")
	pricesIncludeTax := flag.Bool("pricesIncludeTax", false, "Treat upstream price quotes as already including VAT")
	netted := flag.Bool("netted", false, "Prefer provider-netted hourly values when present")
	customerID := flag.String("customerID", envOrString("ELENIA_CUSTOMER_ID", ""), "Customer ID (skips metadata discovery when set with -gsrn)")
	gsrn := flag.String("gsrn", envOrString("ELENIA_GSRN", ""), "Consumption metering point GSRN")
	productionGsrn := flag.String("productionGsrn", envOrString("ELENIA_PRODUCTION_GSRN", ""), "Production metering point GSRN (optional)")
	outCSV := flag.String("out", envOrString("OUTPUT_CSV", ""), "Output CSV file")
	outXLSX := flag.String("xlsx", envOrString("OUTPUT_XLSX", ""), "Optional output XLSX file")
	cacheDir := flag.String("cache", envOrString("CACHE_DIR", ""), "Directory for HTTP cache ('disable' to disable)")
	timeout := flag.String("timeout", envOrString("FETCH_TIMEOUT", ""), "Deadline for the whole fetch phase, e.g. 5m")
	listen := flag.String("listen", envOrString("LISTEN_ADDR", ""), "Serve mode listen address (empty runs the pipeline once)")
	refreshAt := flag.String("refreshAt", envOrString("REFRESH_AT", ""), "Serve mode daily refresh time, HH:MM")
	flag.Parse()

	if *configPath != "" {
		if err := cfg.applyFile(*configPath); err != nil {
			log.Fatalf("Config file error: %v", err)
		}
	}

	// Flags and their env fallbacks override the file.
	if *token != "" {
		cfg.Token = *token
	}
	if *year != "" {
		y, err := strconv.Atoi(*year)
		if err != nil {
			log.Fatalf("Invalid year %q: %v", *year, err)
		}
		cfg.Year = y
	}
	if *margin != "" {
		m, err := strconv.ParseFloat(*margin, 64)
		if err != nil {
			log.Fatalf("Invalid margin %q: %v", *margin, err)
		}
		cfg.SpotMargin = &m
	}
	if *fixedPrice != "" {
		fp, err := strconv.ParseFloat(*fixedPrice, 64)
		if err != nil {
			log.Fatalf("Invalid fixed price %q: %v", *fixedPrice, err)
		}
		cfg.FixedPrice = fp
	}
	if *vatRate != "" {
		vr, err := strconv.ParseFloat(*vatRate, 64)
		if err != nil {
			log.Fatalf("Invalid VAT rate %q: %v", *vatRate, err)
		}
		cfg.VATRate = vr
	}
	if flagWasSet("pricesIncludeTax") {
		cfg.PricesIncludeTax = *pricesIncludeTax
	}
	if flagWasSet("netted") {
		cfg.Netted = *netted
	}
	if *customerID != "" {
		cfg.CustomerID = *customerID
	}
	if *gsrn != "" {
		cfg.ConsumptionGSRN = *gsrn
	}
	if *productionGsrn != "" {
		cfg.ProductionGSRN = *productionGsrn
	}
	if *outCSV != "" {
		cfg.OutputCSV = *outCSV
	}
	if *outXLSX != "" {
		cfg.OutputXLSX = *outXLSX
	}
	if *cacheDir != "" {
		cfg.CacheDirectory = *cacheDir
	}
	if *timeout != "" {
		d, err := time.ParseDuration(*timeout)
		if err != nil {
			log.Fatalf("Invalid timeout %q: %v", *timeout, err)
		}
		cfg.FetchTimeout = d
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *refreshAt != "" {
		cfg.RefreshAt = *refreshAt
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v. Usage: %s -token=... -year=... -margin=...", err, os.Args[0])
	}

	return cfg
}

func main() {
	cfg := parseFlags()

	app, err := NewApp(cfg)
	if err != nil {
		log.Fatalf("Initialization error: %v", err)
	}

	if cfg.Listen != "" {
		if err := app.Serve(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
		return
	}

	if err := app.Run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}
