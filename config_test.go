package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigValidateReportsEverythingMissing(t *testing.T) {
	cfg := defaultConfig()
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "token")
	require.Contains(t, err.Error(), "year")
	require.Contains(t, err.Error(), "margin")
}

func TestConfigValidateAcceptsComplete(t *testing.T) {
	margin := 0.45
	cfg := defaultConfig()
	cfg.Token = "bearer"
	cfg.Year = 2024
	cfg.SpotMargin = &margin
	require.NoError(t, cfg.Validate())
	require.Equal(t, 0.45, cfg.Margin())
}

func TestConfigValidateRejectsBadVATRate(t *testing.T) {
	margin := 0.45
	cfg := defaultConfig()
	cfg.Token = "bearer"
	cfg.Year = 2024
	cfg.SpotMargin = &margin
	cfg.VATRate = 1.5
	require.Error(t, cfg.Validate())
}

func TestConfigApplyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
token: from-file
year: 2024
spot_margin: 0.59
fixed_price: 8.5
vat_rate: 0.24
netted: true
output_csv: out/data.csv
`), 0644))

	cfg := defaultConfig()
	require.NoError(t, cfg.applyFile(path))
	require.NoError(t, cfg.Validate())

	require.Equal(t, "from-file", cfg.Token)
	require.Equal(t, 2024, cfg.Year)
	require.Equal(t, 0.59, cfg.Margin())
	require.Equal(t, 8.5, cfg.FixedPrice)
	require.Equal(t, 0.24, cfg.VATRate)
	require.True(t, cfg.Netted)
	require.Equal(t, "out/data.csv", cfg.OutputCSV)

	// Values the file does not mention keep their defaults.
	require.Equal(t, "02:00", cfg.RefreshAt)
	require.Equal(t, "disable", cfg.CacheDirectory)
}

func TestConfigApplyFileErrors(t *testing.T) {
	cfg := defaultConfig()
	require.Error(t, cfg.applyFile(filepath.Join(t.TempDir(), "missing.yaml")))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0644))
	require.Error(t, cfg.applyFile(path))
}
