package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains configuration for the application. Values come from flags
// with environment fallbacks, optionally overlaid on a YAML file.
type Config struct {
	Token            string   `yaml:"token"`
	Year             int      `yaml:"year"`
	SpotMargin       *float64 `yaml:"spot_margin"`
	FixedPrice       float64  `yaml:"fixed_price"`
	VATRate          float64  `yaml:"vat_rate"`
	PricesIncludeTax bool     `yaml:"prices_include_tax"`
	Netted           bool     `yaml:"netted"`
	CustomerID       string   `yaml:"customer_id"`
	ConsumptionGSRN  string   `yaml:"consumption_gsrn"`
	ProductionGSRN   string   `yaml:"production_gsrn"`
	OutputCSV        string   `yaml:"output_csv"`
	OutputXLSX       string   `yaml:"output_xlsx"`
	CacheDirectory   string   `yaml:"cache_dir"`
	Listen           string   `yaml:"listen"`
	RefreshAt        string   `yaml:"refresh_at"`

	FetchTimeout time.Duration `yaml:"-"`
}

func defaultConfig() *Config {
	return &Config{
		VATRate:        0.255,
		OutputCSV:      "processed/combined_data.csv",
		CacheDirectory: "disable",
		RefreshAt:      "02:00",
		FetchTimeout:   5 * time.Minute,
	}
}

// applyFile overlays the YAML file at path onto c.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// Validate checks that everything the pipeline needs is present before any
// fetch starts. Absence of a required option is a fatal configuration error.
func (c *Config) Validate() error {
	var missing []string
	if c.Token == "" {
		missing = append(missing, "token (ELENIA_TOKEN)")
	}
	if c.Year == 0 {
		missing = append(missing, "year (YEAR)")
	}
	if c.SpotMargin == nil {
		missing = append(missing, "margin (SPOT_MARGIN)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.VATRate < 0 || c.VATRate >= 1 {
		return fmt.Errorf("vat rate %v out of range", c.VATRate)
	}
	return nil
}

// Margin returns the supplier margin in cents/kWh.
func (c *Config) Margin() float64 {
	if c.SpotMargin == nil {
		return 0
	}
	return *c.SpotMargin
}
