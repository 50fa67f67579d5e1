// Package loader discovers and reads the baseline price list, the EAN
// description workbook and the per-supplier Vendit exports.
package loader

import (
	"errors"
	"fmt"
	"path/filepath"

	"price-delta/internal/models"

	"github.com/rs/zerolog"
)

// Options locates the sources of one run.
type Options struct {
	BaselineDir    string
	DescriptionDir string // empty disables description enrichment
	SupplierRoot   string
	Schemas        Schemas
}

// Sources is everything read for one run.
type Sources struct {
	BaselinePath    string
	DescriptionPath string
	Baseline        []models.BaselineRecord
	Suppliers       []models.SupplierRecord
	SupplierFiles   map[string]string // supplier code -> export path
	Skipped         []*SupplierError
}

type Loader struct {
	opts   Options
	logger zerolog.Logger
}

func New(opts Options, logger zerolog.Logger) *Loader {
	if opts.Schemas.Default.SKU == "" {
		opts.Schemas = DefaultSchemas()
	}
	return &Loader{opts: opts, logger: logger.With().Str("component", "loader").Logger()}
}

// Load reads all sources. Baseline and description failures are fatal,
// supplier failures are collected in Sources.Skipped.
func (l *Loader) Load() (*Sources, error) {
	src := &Sources{SupplierFiles: map[string]string{}}

	baselinePath, baseline, err := l.LoadBaseline()
	if err != nil {
		return nil, err
	}
	src.BaselinePath = baselinePath
	src.Baseline = baseline

	if l.opts.DescriptionDir != "" {
		descPath, descriptions, err := l.LoadDescriptions()
		if err != nil {
			return nil, err
		}
		src.DescriptionPath = descPath
		Enrich(src.Baseline, descriptions)
	}

	codes, err := SupplierDirs(l.opts.SupplierRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: supplier root %s: %v", ErrMissingSource, l.opts.SupplierRoot, err)
	}
	for _, code := range codes {
		path, records, err := l.LoadSupplier(code)
		if err != nil {
			var se *SupplierError
			if !errors.As(err, &se) {
				se = &SupplierError{Code: code, Path: path, Err: err}
			}
			l.logger.Warn().Err(se.Err).Str("supplier", code).Str("path", se.Path).Msg("skipping supplier")
			src.Skipped = append(src.Skipped, se)
			continue
		}
		src.SupplierFiles[code] = path
		src.Suppliers = append(src.Suppliers, records...)
	}
	if len(src.SupplierFiles) == 0 {
		return nil, fmt.Errorf("%w below %s (%d skipped)", ErrNoSupplierSources, l.opts.SupplierRoot, len(src.Skipped))
	}
	return src, nil
}

// LoadBaseline reads the most recently modified baseline price list.
func (l *Loader) LoadBaseline() (string, []models.BaselineRecord, error) {
	path, err := LatestModified(l.opts.BaselineDir, BaselinePattern)
	if err != nil {
		return "", nil, fmt.Errorf("%w: baseline: %v", ErrMissingSource, err)
	}
	t, err := readCSV(path)
	if err != nil {
		return path, nil, fmt.Errorf("%w: baseline: %v", ErrMissingSource, err)
	}
	records, stats, err := parseBaseline(t)
	if err != nil {
		return path, nil, fmt.Errorf("%w: baseline %s: %v", ErrMissingSource, path, err)
	}
	l.logRows(l.rowEvent(stats).Str("path", path), len(records), stats).Msg("baseline loaded")
	return path, records, nil
}

// LoadDescriptions reads the most recently modified EAN description workbook.
func (l *Loader) LoadDescriptions() (string, []models.Description, error) {
	path, err := LatestModified(l.opts.DescriptionDir, DescriptionPattern)
	if err != nil {
		return "", nil, fmt.Errorf("%w: descriptions: %v", ErrMissingSource, err)
	}
	t, err := readWorkbook(path)
	if err != nil {
		return path, nil, fmt.Errorf("%w: descriptions: %v", ErrMissingSource, err)
	}
	descriptions, err := parseDescriptions(t)
	if err != nil {
		return path, nil, fmt.Errorf("%w: descriptions %s: %v", ErrMissingSource, path, err)
	}
	l.logger.Info().Str("path", path).Int("rows", len(descriptions)).Msg("descriptions loaded")
	return path, descriptions, nil
}

// LoadSupplier reads the newest export of one supplier.
func (l *Loader) LoadSupplier(code string) (string, []models.SupplierRecord, error) {
	dir := filepath.Join(l.opts.SupplierRoot, code)
	path, err := LatestByName(dir, SupplierPattern(code))
	if err != nil {
		return "", nil, &SupplierError{Code: code, Err: err}
	}
	t, err := readCSV(path)
	if err != nil {
		return path, nil, &SupplierError{Code: code, Path: path, Err: err}
	}
	records, stats, err := parseSupplier(code, l.opts.Schemas.For(code), t)
	if err != nil {
		return path, nil, &SupplierError{Code: code, Path: path, Err: err}
	}
	l.logRows(l.rowEvent(stats).Str("supplier", code).Str("path", path), len(records), stats).Msg("supplier loaded")
	return path, records, nil
}

// rowEvent escalates to a warning when rows had to be discarded as invalid.
func (l *Loader) rowEvent(stats rowStats) *zerolog.Event {
	if stats.Invalid > 0 {
		return l.logger.Warn()
	}
	return l.logger.Info()
}

func (l *Loader) logRows(e *zerolog.Event, rows int, stats rowStats) *zerolog.Event {
	e = e.Int("rows", rows)
	if stats.Empty > 0 {
		e = e.Int("empty", stats.Empty)
	}
	if stats.Invalid > 0 {
		e = e.Int("invalid", stats.Invalid)
	}
	return e
}
