// etl scrapt, bereinigt und lädt Konfliktdaten in die Datenbank.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"red-subcontinent/config"
	"red-subcontinent/database"
	"red-subcontinent/etl"
	"red-subcontinent/models"
	"red-subcontinent/storage"
)

const geocodeCacheFile = "geocode_cache.json"

// app hält den gemeinsamen Zustand aller Unterbefehle.
type app struct {
	sourcesFile string
	outputDir   string
	cacheDir    string
	development bool

	cfg *config.Config
	log *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "etl",
		Short: "Red SubContinent ETL pipeline",
		Long: `Scrapes historical conflict data, normalises dates, casualties and places,
and loads the cleaned records into the conflict database.

Steps can run individually (scrape, clean, seed) or together (run, schedule).`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.sourcesFile, "sources", "", "YAML source list (default: Wikipedia pages)")
	pf.StringVar(&a.outputDir, "output-dir", "", "directory for raw and cleaned JSON (overrides ETL_OUTPUT_DIR)")
	pf.StringVar(&a.cacheDir, "cache-dir", "", "directory for page and geocode caches (overrides ETL_CACHE_DIR)")
	pf.BoolVar(&a.development, "dev", false, "human-readable development logging")

	root.AddCommand(a.scrapeCmd(), a.cleanCmd(), a.seedCmd(), a.runCmd(), a.scheduleCmd())
	return root
}

func (a *app) init() error {
	cfg, err := config.LoadETL()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.outputDir != "" {
		cfg.ETLOutputDir = a.outputDir
	}
	if a.cacheDir != "" {
		cfg.ETLCacheDir = a.cacheDir
	}
	if a.sourcesFile != "" {
		cfg.ETLSourcesFile = a.sourcesFile
	}
	a.cfg = cfg

	if a.development || cfg.LogDevelopment {
		a.log, err = zap.NewDevelopment()
	} else {
		a.log, err = zap.NewProduction()
	}
	return err
}

// pipeline baut die Pipeline ohne Datenbank und Archiv.
func (a *app) pipeline() (*etl.Pipeline, error) {
	sources, err := LoadSources(a.cfg.ETLSourcesFile)
	if err != nil {
		return nil, err
	}
	return &etl.Pipeline{
		Providers: sources.Providers(a.cfg, a.log),
		Geocoder: etl.NewGeocoder(etl.GeocoderConfig{
			BaseURL:   a.cfg.NominatimURL,
			UserAgent: a.cfg.ETLUserAgent,
			Interval:  a.cfg.NominatimInterval,
			CacheFile: filepath.Join(a.cfg.ETLCacheDir, geocodeCacheFile),
			Timeout:   a.cfg.ETLTimeout,
		}, a.log.Named("geocoder")),
		Casualties: etl.NewCasualtyParser(nil),
		OutputDir:  a.cfg.ETLOutputDir,
		Logger:     a.log,
	}, nil
}

// attachStore verbindet Datenbank und, falls konfiguriert, das S3-Archiv.
func (a *app) attachStore(ctx context.Context, p *etl.Pipeline, withArchive bool) error {
	if err := a.cfg.RequireDatabase(); err != nil {
		return err
	}
	db, err := database.Open(a.cfg, a.log)
	if err != nil {
		return err
	}
	if a.cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
	}
	p.DB = db

	if !withArchive {
		return nil
	}
	archive, err := storage.FromConfig(ctx, a.cfg)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		a.log.Info("No S3 bucket configured, skipping archive")
	case err != nil:
		return err
	default:
		p.Archive = archive
	}
	return nil
}

func (a *app) defaultFile(name string) string {
	return filepath.Join(a.cfg.ETLOutputDir, name)
}

func printSummary(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (a *app) scrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Fetch raw records from all sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.pipeline()
			if err != nil {
				return err
			}
			raws, err := p.Scrape(cmd.Context())
			if err != nil {
				return err
			}
			path, err := p.WriteJSON(etl.RawFileName, raws)
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), etl.RunResult{Scraped: len(raws), Files: []string{path}})
		},
	}
}

func (a *app) cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [raw.json]",
		Short: "Normalise raw records into validated conflict records",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := a.defaultFile(etl.RawFileName)
			if len(args) == 1 {
				in = args[0]
			}
			p, err := a.pipeline()
			if err != nil {
				return err
			}
			raws, err := etl.ReadRaw(in)
			if err != nil {
				return err
			}
			conflicts, res := p.Clean(cmd.Context(), raws)
			path, err := p.WriteJSON(etl.CleanedFileName, conflicts)
			if err != nil {
				return err
			}
			if err := p.Geocoder.SaveCache(); err != nil {
				a.log.Warn("Failed to save geocode cache", zap.Error(err))
			}
			res.Files = []string{path}
			return printSummary(cmd.OutOrStdout(), res)
		},
	}
}

func (a *app) seedCmd() *cobra.Command {
	var fromRaw bool
	cmd := &cobra.Command{
		Use:   "seed [cleaned.json]",
		Short: "Load cleaned records into the database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := a.defaultFile(etl.CleanedFileName)
			if fromRaw {
				in = a.defaultFile(etl.RawFileName)
			}
			if len(args) == 1 {
				in = args[0]
			}
			p, err := a.pipeline()
			if err != nil {
				return err
			}
			if err := a.attachStore(cmd.Context(), p, false); err != nil {
				return err
			}

			var res etl.RunResult
			conflicts, err := etl.ReadCleaned(in)
			if fromRaw {
				var raws []models.RawConflict
				raws, err = etl.ReadRaw(in)
				if err == nil {
					conflicts, res = p.Clean(cmd.Context(), raws)
				}
			}
			if err != nil {
				return err
			}
			loaded, err := p.Load(cmd.Context(), conflicts)
			if err != nil {
				return err
			}
			res.Loaded = loaded
			return printSummary(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVar(&fromRaw, "raw", false, "input is a raw file and is cleaned before loading")
	return cmd
}

func (a *app) runCmd() *cobra.Command {
	var noDB bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape, clean, load and archive in one pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.pipeline()
			if err != nil {
				return err
			}
			if !noDB {
				if err := a.attachStore(cmd.Context(), p, true); err != nil {
					return err
				}
			}
			res, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVar(&noDB, "no-db", false, "skip database load and archive, only write JSON files")
	return cmd
}

func (a *app) scheduleCmd() *cobra.Command {
	var (
		schedule string
		runNow   bool
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on a cron schedule and serve /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if schedule == "" {
				schedule = a.cfg.ETLCronSchedule
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			job := func() {
				a.log.Info("Running scheduled ETL job...")
				p, err := a.pipeline()
				if err == nil {
					err = a.attachStore(ctx, p, true)
				}
				if err != nil {
					a.log.Error("Cron job setup failed", zap.Error(err))
					return
				}
				res, err := p.Run(ctx)
				if err != nil {
					a.log.Error("Cron job failed", zap.Error(err))
					return
				}
				a.log.Info("Cron job completed", zap.Int("cleaned", res.Cleaned), zap.Int("loaded", res.Loaded))
			}

			scheduler := newScheduler(a.log)
			if _, err := scheduler.AddFunc(schedule, job); err != nil {
				return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
			}
			scheduler.Start()
			if runNow {
				go scheduler.Entries()[0].WrappedJob.Run()
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{
				Addr:              ":" + a.cfg.ETLMetricsPort,
				Handler:           mux,
				ReadHeaderTimeout: 15 * time.Second,
			}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					a.log.Error("Metrics server failed", zap.Error(err))
				}
			}()
			a.log.Info("ETL scheduler started", zap.String("schedule", schedule), zap.String("metrics_port", a.cfg.ETLMetricsPort))

			<-ctx.Done()
			a.log.Info("Shutting down ETL scheduler")
			<-scheduler.Stop().Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&schedule, "cron", "", "cron expression (overrides ETL_CRON_SCHEDULE)")
	cmd.Flags().BoolVar(&runNow, "now", false, "run once immediately after start")
	return cmd
}

// newScheduler liefert einen Cron-Scheduler, der überlappende Läufe überspringt.
func newScheduler(log *zap.Logger) *cron.Cron {
	cl := cronLogger{log.Named("cron").Sugar()}
	return cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
}

// cronLogger leitet die Meldungen von robfig/cron an zap weiter.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
