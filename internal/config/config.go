package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"price-delta/internal/compare"

	"github.com/shopspring/decimal"
)

// Report formats understood by the emitter.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

type Config struct {
	// Sources
	BaselineDir    string // searched recursively for the baseline price list
	DescriptionDir string // EAN/description workbook; empty disables enrichment
	SupplierRoot   string // one 3-letter subdirectory per supplier

	// Significance filter
	ThresholdRatio   float64
	BenignDifference decimal.Decimal // shipping-pallet surcharge
	FilterMode       string

	// Report
	OutputDir    string
	ReportPrefix string
	ReportFormat string

	// Dropbox upload
	UploadEnabled bool
	DropboxToken  string
	DropboxFolder string
	DropboxAPIURL string

	// Optional run archive
	DatabaseURL string

	LogLevel string

	// values present in the environment that could not be parsed
	loadErrs []error
}

func Load() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	var env envReader
	cfg := &Config{
		BaselineDir:    expandHome(getEnv("BASELINE_DIR", filepath.Join(home, "for_import_basis_file")), home),
		DescriptionDir: expandHome(getEnv("DESCRIPTION_DIR", filepath.Join(home, "ean_numbers_basisfiles")), home),
		SupplierRoot:   expandHome(getEnv("SUPPLIER_ROOT", home), home),

		ThresholdRatio:   env.float("THRESHOLD_RATIO", 0.05),
		BenignDifference: env.decimal("BENIGN_DIFFERENCE", decimal.Zero),
		FilterMode:       getEnv("FILTER_MODE", "absolute"),

		OutputDir:    getEnv("OUTPUT_DIR", "."),
		ReportPrefix: getEnv("REPORT_PREFIX", "price_delta"),
		ReportFormat: strings.ToLower(getEnv("REPORT_FORMAT", FormatCSV)),

		UploadEnabled: env.bool("UPLOAD_ENABLED", true),
		DropboxToken:  getEnv("DROPBOX", ""),
		DropboxFolder: getEnv("DROPBOX_FOLDER", "/gebruikers/peter"),
		DropboxAPIURL: getEnv("DROPBOX_API_URL", "https://content.dropboxapi.com"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
	cfg.loadErrs = env.errs
	return cfg
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.loadErrs...)
	if c.BaselineDir == "" {
		errs = append(errs, errors.New("BASELINE_DIR is empty"))
	}
	if c.SupplierRoot == "" {
		errs = append(errs, errors.New("SUPPLIER_ROOT is empty"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("OUTPUT_DIR is empty"))
	}
	if c.ReportPrefix == "" {
		errs = append(errs, errors.New("REPORT_PREFIX is empty"))
	}
	if math.IsNaN(c.ThresholdRatio) || math.IsInf(c.ThresholdRatio, 0) {
		errs = append(errs, fmt.Errorf("THRESHOLD_RATIO must be a finite number, got %v", c.ThresholdRatio))
	} else if c.ThresholdRatio < 0 {
		errs = append(errs, fmt.Errorf("THRESHOLD_RATIO must not be negative, got %v", c.ThresholdRatio))
	}
	if c.BenignDifference.IsNegative() {
		errs = append(errs, fmt.Errorf("BENIGN_DIFFERENCE must not be negative, got %s", c.BenignDifference))
	}
	if _, err := compare.ParseFilterMode(c.FilterMode); err != nil {
		errs = append(errs, fmt.Errorf("FILTER_MODE: %w", err))
	}
	switch c.ReportFormat {
	case FormatCSV, FormatXLSX:
	default:
		errs = append(errs, fmt.Errorf("REPORT_FORMAT must be csv or xlsx, got %q", c.ReportFormat))
	}
	return errors.Join(errs...)
}

// UploadConfigured reports whether a finished report should be pushed to Dropbox.
func (c *Config) UploadConfigured() bool {
	return c.UploadEnabled && c.DropboxToken != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader parses typed values and remembers the ones it had to reject.
type envReader struct {
	errs []error
}

func (r *envReader) float(key string, defaultValue float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid number %q", key, value))
		return defaultValue
	}
	return f
}

func (r *envReader) bool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid boolean %q", key, value))
		return defaultValue
	}
	return b
}

func (r *envReader) decimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(value, ",", "."))
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid amount %q", key, value))
		return defaultValue
	}
	return d
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
