package config

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{"BASELINE_DIR", "DESCRIPTION_DIR", "SUPPLIER_ROOT", "THRESHOLD_RATIO", "BENIGN_DIFFERENCE",
		"FILTER_MODE", "OUTPUT_DIR", "REPORT_PREFIX", "REPORT_FORMAT", "UPLOAD_ENABLED", "DROPBOX", "DROPBOX_FOLDER",
		"DROPBOX_API_URL", "DATABASE_URL", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.BaselineDir != filepath.Join(home, "for_import_basis_file") {
		t.Fatalf("unexpected baseline dir %q", cfg.BaselineDir)
	}
	if cfg.DescriptionDir != filepath.Join(home, "ean_numbers_basisfiles") {
		t.Fatalf("unexpected description dir %q", cfg.DescriptionDir)
	}
	if cfg.SupplierRoot != home {
		t.Fatalf("unexpected supplier root %q", cfg.SupplierRoot)
	}
	if cfg.ThresholdRatio != 0.05 || !cfg.BenignDifference.IsZero() || cfg.FilterMode != "absolute" {
		t.Fatalf("unexpected filter defaults %+v", cfg)
	}
	if cfg.ReportFormat != FormatCSV || cfg.ReportPrefix != "price_delta" {
		t.Fatalf("unexpected report defaults %+v", cfg)
	}
	if cfg.UploadConfigured() {
		t.Fatal("upload should not be configured without a token")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("BASELINE_DIR", "~/base")
	t.Setenv("SUPPLIER_ROOT", "/srv/suppliers")
	t.Setenv("THRESHOLD_RATIO", "0.1")
	t.Setenv("BENIGN_DIFFERENCE", "6,50")
	t.Setenv("FILTER_MODE", "signed")
	t.Setenv("REPORT_FORMAT", "XLSX")
	t.Setenv("DROPBOX", "token")
	t.Setenv("UPLOAD_ENABLED", "true")

	cfg := Load()
	if cfg.BaselineDir != filepath.Join(home, "base") {
		t.Fatalf("expected home expansion, got %q", cfg.BaselineDir)
	}
	if cfg.SupplierRoot != "/srv/suppliers" {
		t.Fatalf("unexpected supplier root %q", cfg.SupplierRoot)
	}
	if cfg.ThresholdRatio != 0.1 {
		t.Fatalf("unexpected ratio %v", cfg.ThresholdRatio)
	}
	if !cfg.BenignDifference.Equal(decimal.RequireFromString("6.50")) {
		t.Fatalf("unexpected benign difference %s", cfg.BenignDifference)
	}
	if cfg.FilterMode != "signed" || cfg.ReportFormat != FormatXLSX {
		t.Fatalf("unexpected mode/format %q/%q", cfg.FilterMode, cfg.ReportFormat)
	}
	if !cfg.UploadConfigured() {
		t.Fatal("expected upload to be configured")
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	cases := []struct {
		key, value string
	}{
		{"THRESHOLD_RATIO", "five percent"},
		{"BENIGN_DIFFERENCE", "6.50 EUR"},
		{"BENIGN_DIFFERENCE", "abc"},
		{"UPLOAD_ENABLED", "maybe"},
	}
	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv("BASELINE_DIR", "b")
			t.Setenv("SUPPLIER_ROOT", "s")
			t.Setenv(tc.key, tc.value)

			err := Load().Validate()
			if err == nil {
				t.Fatalf("expected %s=%q to be rejected", tc.key, tc.value)
			}
			if !strings.Contains(err.Error(), tc.key) || !strings.Contains(err.Error(), tc.value) {
				t.Fatalf("expected error naming %s and %q, got %v", tc.key, tc.value, err)
			}
		})
	}
}

func TestLoadNonFiniteThreshold(t *testing.T) {
	for _, value := range []string{"NaN", "Inf", "-Inf"} {
		t.Run(value, func(t *testing.T) {
			t.Setenv("BASELINE_DIR", "b")
			t.Setenv("SUPPLIER_ROOT", "s")
			t.Setenv("THRESHOLD_RATIO", value)

			err := Load().Validate()
			if err == nil || !strings.Contains(err.Error(), "finite") {
				t.Fatalf("expected non-finite ratio to be rejected, got %v", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			BaselineDir:  "b",
			SupplierRoot: "s",
			OutputDir:    ".",
			ReportPrefix: "price_delta",
			ReportFormat: FormatCSV,
			FilterMode:   "absolute",
		}
	}
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative ratio", func(c *Config) { c.ThresholdRatio = -0.1 }, "THRESHOLD_RATIO"},
		{"negative benign", func(c *Config) { c.BenignDifference = decimal.NewFromInt(-1) }, "BENIGN_DIFFERENCE"},
		{"nan ratio", func(c *Config) { c.ThresholdRatio = math.NaN() }, "THRESHOLD_RATIO"},
		{"infinite ratio", func(c *Config) { c.ThresholdRatio = math.Inf(1) }, "THRESHOLD_RATIO"},
		{"unknown mode", func(c *Config) { c.FilterMode = "both" }, "FILTER_MODE"},
		{"unknown format", func(c *Config) { c.ReportFormat = "pdf" }, "REPORT_FORMAT"},
		{"missing baseline", func(c *Config) { c.BaselineDir = "" }, "BASELINE_DIR"},
		{"missing supplier root", func(c *Config) { c.SupplierRoot = "" }, "SUPPLIER_ROOT"},
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	for _, mode := range []string{"Signed", " signed ", "ABSOLUTE\t"} {
		cfg := valid()
		cfg.FilterMode = mode
		if err := cfg.Validate(); err != nil {
			t.Fatalf("mode %q rejected: %v", mode, err)
		}
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}
