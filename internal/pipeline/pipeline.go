// Package pipeline runs one price comparison from sources to uploaded report.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"price-delta/internal/compare"
	"price-delta/internal/loader"
	"price-delta/internal/models"
	"price-delta/internal/services/dropbox"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Source produces the baseline and supplier records of one run.
type Source interface {
	Load() (*loader.Sources, error)
}

// Emitter writes the final report and returns its path.
type Emitter interface {
	Emit(deltas []models.PriceDelta) (string, error)
}

// Uploader hands a finished report to remote storage.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (*dropbox.FileMetadata, error)
}

// Archiver stores a finished run.
type Archiver interface {
	SaveRun(ctx context.Context, run *models.ReportRun, rows []models.PriceDeltaRow) error
}

// Runner wires the components of one run. Uploader and Archiver are optional.
type Runner struct {
	Source   Source
	Filter   compare.FilterConfig
	Emitter  Emitter
	Uploader Uploader
	Archiver Archiver
	Logger   zerolog.Logger
}

// Result summarizes a run.
type Result struct {
	RunID        string
	BaselinePath string
	Suppliers    int
	Skipped      []*loader.SupplierError
	Joined       int
	Rejected     []models.Rejection
	Deltas       []models.PriceDelta
	ReportPath   string
	Upload       *dropbox.FileMetadata
	Archived     bool
	Duration     time.Duration
}

// Compare runs merge, calculate, filter and sort over loaded sources.
func Compare(src *loader.Sources, cfg compare.FilterConfig) ([]models.PriceDelta, []models.JoinedRecord, []models.Rejection) {
	joined := compare.Merge(src.Baseline, src.Suppliers)
	deltas, rejected := compare.Calculate(joined)
	kept := compare.Filter(deltas, cfg)
	compare.Sort(kept)
	return kept, joined, rejected
}

// Run executes the whole pipeline. Load and emit failures abort the run.
// Upload and archive failures are returned with the partially filled Result,
// after the report file already exists.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.NewString()}
	log := r.Logger.With().Str("run_id", res.RunID).Logger()

	src, err := r.Source.Load()
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}
	res.BaselinePath = src.BaselinePath
	res.Suppliers = len(src.SupplierFiles)
	res.Skipped = src.Skipped

	deltas, joined, rejected := Compare(src, r.Filter)
	res.Joined = len(joined)
	res.Rejected = rejected
	res.Deltas = deltas
	for _, rej := range rejected {
		log.Warn().Str("product_id", rej.Record.ID.String()).Err(rej.Reason).Msg("record excluded")
	}
	log.Info().
		Int("baseline", len(src.Baseline)).
		Int("supplier_rows", len(src.Suppliers)).
		Int("joined", len(joined)).
		Int("rejected", len(rejected)).
		Int("significant", len(deltas)).
		Msg("prices compared")

	path, err := r.Emitter.Emit(deltas)
	if err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	res.ReportPath = path
	log.Info().Str("path", path).Int("rows", len(deltas)).Msg("report written")

	if r.Uploader != nil {
		meta, err := r.Uploader.Upload(ctx, path)
		if err != nil {
			res.Duration = time.Since(start)
			return res, fmt.Errorf("upload report: %w", err)
		}
		res.Upload = meta
		log.Info().Str("remote", meta.PathDisplay).Int64("bytes", meta.Size).Msg("report uploaded")
	} else {
		log.Info().Msg("upload disabled")
	}

	if r.Archiver != nil {
		run := &models.ReportRun{
			RunID:            res.RunID,
			ReportFile:       path,
			BaselineFile:     src.BaselinePath,
			FilterMode:       string(r.Filter.Mode),
			ThresholdRatio:   r.Filter.ThresholdRatio,
			BenignDifference: r.Filter.BenignDifference,
			SupplierCount:    res.Suppliers,
			SkippedCount:     len(res.Skipped),
			RecordCount:      len(deltas),
		}
		if err := r.Archiver.SaveRun(ctx, run, models.NewPriceDeltaRows(res.RunID, deltas)); err != nil {
			res.Duration = time.Since(start)
			return res, fmt.Errorf("archive run: %w", err)
		}
		res.Archived = true
		log.Info().Msg("run archived")
	}

	res.Duration = time.Since(start)
	return res, nil
}
