package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"price-delta/internal/compare"
	"price-delta/internal/config"
	"price-delta/internal/database"
	"price-delta/internal/loader"
	"price-delta/internal/pipeline"
	"price-delta/internal/report"
	"price-delta/internal/services/dropbox"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

// Exit codes
const (
	ExitSuccess     = 0
	ExitRunFailure  = 1
	ExitConfigError = 2
)

func main() {
	app := &cli.App{
		Name:  "price-delta",
		Usage: "report material purchase price changes per supplier",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "dotenv file with settings"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn, error (overrides LOG_LEVEL)"},
		},
		Before: setup,
		Commands: []*cli.Command{
			runCommand(),
			uploadCommand(),
			historyCommand(),
		},
		DefaultCommand: "run",
		// exit codes are handled below so they go through the logger
		ExitErrHandler: func(*cli.Context, error) {},
	}

	if err := app.Run(os.Args); err != nil {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			log.Error().Msg(exitErr.Error())
			os.Exit(exitErr.ExitCode())
		}
		log.Error().Err(err).Msg("price-delta failed")
		os.Exit(ExitRunFailure)
	}
}

func setup(c *cli.Context) error {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	// Load environment variables
	if err := godotenv.Load(c.String("env-file")); err != nil {
		log.Debug().Str("file", c.String("env-file")).Msg("no env file loaded")
	}

	level := os.Getenv("LOG_LEVEL")
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid log level %q", level), ExitConfigError)
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "compare prices, write the report and upload it",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "threshold", Usage: "relative threshold, e.g. 0.05 (overrides THRESHOLD_RATIO)"},
			&cli.StringFlag{Name: "benign", Usage: "benign absolute difference, e.g. 6.50 (overrides BENIGN_DIFFERENCE)"},
			&cli.StringFlag{Name: "mode", Usage: "absolute or signed (overrides FILTER_MODE)"},
			&cli.StringFlag{Name: "format", Usage: "csv or xlsx (overrides REPORT_FORMAT)"},
			&cli.StringFlag{Name: "output", Usage: "report directory (overrides OUTPUT_DIR)"},
			&cli.BoolFlag{Name: "no-upload", Usage: "skip the Dropbox upload"},
			&cli.BoolFlag{Name: "no-archive", Usage: "skip the database archive"},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg := config.Load()
	if err := applyRunFlags(c, cfg); err != nil {
		return cli.Exit(err.Error(), ExitConfigError)
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), ExitConfigError)
	}
	mode, err := compare.ParseFilterMode(cfg.FilterMode)
	if err != nil {
		return cli.Exit(err.Error(), ExitConfigError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := &pipeline.Runner{
		Source: loader.New(loader.Options{
			BaselineDir:    cfg.BaselineDir,
			DescriptionDir: cfg.DescriptionDir,
			SupplierRoot:   cfg.SupplierRoot,
		}, log.Logger),
		Filter: compare.FilterConfig{
			ThresholdRatio:   decimal.NewFromFloat(cfg.ThresholdRatio),
			BenignDifference: cfg.BenignDifference,
			Mode:             mode,
		},
		Emitter: &report.Emitter{Dir: cfg.OutputDir, Prefix: cfg.ReportPrefix, Format: cfg.ReportFormat},
		Logger:  log.Logger,
	}

	if cfg.UploadConfigured() && !c.Bool("no-upload") {
		runner.Uploader = dropbox.NewDropboxService(cfg.DropboxToken, cfg.DropboxFolder, cfg.DropboxAPIURL)
	} else if cfg.UploadEnabled && cfg.DropboxToken == "" && !c.Bool("no-upload") {
		log.Warn().Msg("DROPBOX token not set, report will not be uploaded")
	}

	if cfg.DatabaseURL != "" && !c.Bool("no-archive") {
		db, err := database.Initialize(cfg.DatabaseURL, log.Logger)
		if err != nil {
			return cli.Exit(fmt.Sprintf("archive database: %v", err), ExitRunFailure)
		}
		runner.Archiver = database.NewArchive(db)
	}

	log.Info().
		Float64("threshold", cfg.ThresholdRatio).
		Str("benign", cfg.BenignDifference.StringFixed(2)).
		Str("mode", string(mode)).
		Str("format", cfg.ReportFormat).
		Msg("starting price comparison")

	res, err := runner.Run(ctx)
	if res != nil {
		for _, s := range res.Skipped {
			log.Warn().Str("supplier", s.Code).Err(s.Err).Msg("supplier skipped")
		}
	}
	if err != nil {
		return cli.Exit(err.Error(), ExitRunFailure)
	}

	log.Info().
		Str("report", res.ReportPath).
		Int("suppliers", res.Suppliers).
		Int("skipped", len(res.Skipped)).
		Int("joined", res.Joined).
		Int("rejected", len(res.Rejected)).
		Int("significant", len(res.Deltas)).
		Dur("took", res.Duration).
		Msg("run complete")
	return nil
}

func applyRunFlags(c *cli.Context, cfg *config.Config) error {
	if c.IsSet("threshold") {
		cfg.ThresholdRatio = c.Float64("threshold")
	}
	if c.IsSet("benign") {
		d, err := decimal.NewFromString(c.String("benign"))
		if err != nil {
			return fmt.Errorf("invalid --benign %q: %w", c.String("benign"), err)
		}
		cfg.BenignDifference = d
	}
	if c.IsSet("mode") {
		cfg.FilterMode = c.String("mode")
	}
	if c.IsSet("format") {
		cfg.ReportFormat = c.String("format")
	}
	if c.IsSet("output") {
		cfg.OutputDir = c.String("output")
	}
	return nil
}

func uploadCommand() *cli.Command {
	return &cli.Command{
		Name:  "upload",
		Usage: "upload an existing report (default: the newest one in OUTPUT_DIR)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "report to upload"},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			if cfg.DropboxToken == "" {
				return cli.Exit("DROPBOX token not set", ExitConfigError)
			}

			path := c.String("file")
			if path == "" {
				latest, err := report.Latest(cfg.OutputDir, cfg.ReportPrefix)
				if err != nil {
					return cli.Exit(err.Error(), ExitRunFailure)
				}
				path = latest
			}

			svc := dropbox.NewDropboxService(cfg.DropboxToken, cfg.DropboxFolder, cfg.DropboxAPIURL)
			meta, err := svc.Upload(c.Context, path)
			if err != nil {
				return cli.Exit(err.Error(), ExitRunFailure)
			}
			log.Info().Str("file", path).Str("remote", meta.PathDisplay).Int64("bytes", meta.Size).Msg("report uploaded")
			return nil
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "list archived deltas of one product",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "product", Required: true, Usage: "product id, e.g. EXL12345"},
			&cli.IntFlag{Name: "limit", Value: 20},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			db, err := database.Initialize(cfg.DatabaseURL, log.Logger)
			if err != nil {
				return cli.Exit(err.Error(), ExitConfigError)
			}
			rows, err := database.NewArchive(db).History(c.Context, c.String("product"), c.Int("limit"))
			if err != nil {
				return cli.Exit(err.Error(), ExitRunFailure)
			}
			if len(rows) == 0 {
				fmt.Printf("no archived deltas for %s\n", c.String("product"))
				return nil
			}
			fmt.Printf("%-20s %-36s %10s %10s %10s %8s\n", "date", "run", "old", "new", "diff", "pct")
			for _, r := range rows {
				fmt.Printf("%-20s %-36s %10s %10s %10s %7s%%\n",
					r.CreatedAt.Format("2006-01-02 15:04"), r.RunID,
					r.OldPurchasePrice.StringFixed(2), r.NewPurchasePrice.StringFixed(2),
					r.PriceDifference.StringFixed(2), r.PercentageDifference.StringFixed(2))
			}
			return nil
		},
	}
}
