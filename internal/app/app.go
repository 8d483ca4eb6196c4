// Package app wires configuration, extraction, the HTTP server and the upload
// sweeper together.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/gmsas95/invoice-audit/internal/api"
	"github.com/gmsas95/invoice-audit/internal/batch"
	"github.com/gmsas95/invoice-audit/internal/config"
	apperrors "github.com/gmsas95/invoice-audit/internal/errors"
	"github.com/gmsas95/invoice-audit/internal/extract"
	"github.com/gmsas95/invoice-audit/internal/ledger"
	"github.com/gmsas95/invoice-audit/internal/metrics"
	"github.com/gmsas95/invoice-audit/internal/reconcile"
	"github.com/gmsas95/invoice-audit/internal/sweeper"
)

type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Sweeper *sweeper.Sweeper
	Version string
}

func New(cfg *config.Config, logger *zap.Logger, version string) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.Default(),
		Version: version,
	}
}

// NewLogger returns a production logger in production and a development
// logger everywhere else.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg != nil && cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// Policy returns the matching policy selected by the reconcile config.
func (app *App) Policy() reconcile.Policy {
	return reconcile.DefaultPolicy().WithGrossNetCritical(app.Config.Reconcile.GrossNetCritical)
}

// LedgerOptions resolves the sheet and column map used to read ledgers.
func (app *App) LedgerOptions() (ledger.Options, error) {
	columns, err := ledger.LoadColumns(app.Config.Ledger.ColumnMapFile)
	if err != nil {
		return ledger.Options{}, err
	}
	return ledger.Options{Sheet: app.Config.Ledger.Sheet, Columns: columns}, nil
}

// BatchConfig maps the extraction settings onto the batch runner.
func (app *App) BatchConfig() batch.Config {
	ex := app.Config.Extraction
	cfg := batch.DefaultConfig()
	cfg.BatchSize = ex.BatchSize
	cfg.BatchDelay = ex.BatchDelay
	cfg.RPM = ex.RPM
	cfg.Timeout = ex.RequestTimeout
	return cfg
}

// NewExtractor builds the Ghostscript + Gemini pipeline. The returned close
// function releases the Gemini client. Without an API key it returns an
// AI-unavailable error.
func (app *App) NewExtractor(ctx context.Context) (*extract.Extractor, func() error, error) {
	ex := app.Config.Extraction
	if !app.Config.HasVisionModel() {
		return nil, nil, apperrors.New(apperrors.CodeAIUnavailable,
			"no vision model configured: set GEMINI_API_KEY or extraction.api_key")
	}

	gemini, err := extract.NewGeminiAnalyzer(ctx, ex.APIKey, ex.Model)
	if err != nil {
		return nil, nil, err
	}

	analyzer := extract.WithBreaker(gemini, extract.BreakerOptions{
		MaxFailures:   ex.BreakerFailures,
		OpenTimeout:   ex.BreakerTimeout,
		OnStateChange: app.Metrics.SetBreakerState,
	}, app.Logger)

	raster := extract.NewGhostscript(extract.GhostscriptOptions{
		Binary:      ex.GhostscriptPath,
		Resolution:  ex.Resolution,
		JPEGQuality: ex.JPEGQuality,
		MaxPages:    ex.MaxPages,
	})

	extractor := extract.NewExtractor(raster, analyzer, extract.Options{
		Batch:   app.BatchConfig(),
		Metrics: app.Metrics,
	}, app.Logger)
	return extractor, gemini.Close, nil
}

// NewServer builds the HTTP server. A missing vision model is logged and the
// server still starts; only /compare needs it.
func (app *App) NewServer(ctx context.Context) (*api.Server, func() error, error) {
	ledgerOpts, err := app.LedgerOptions()
	if err != nil {
		return nil, nil, err
	}

	opts := api.Options{
		Ledger:  ledgerOpts,
		Metrics: app.Metrics,
		Version: app.Version,
	}

	closeFn := func() error { return nil }
	extractor, closer, err := app.NewExtractor(ctx)
	switch {
	case err == nil:
		opts.Extractor = extractor
		closeFn = closer
	case apperrors.GetCode(err) == apperrors.CodeAIUnavailable:
		app.Logger.Warn("Vision model disabled", zap.Error(err))
	default:
		return nil, nil, err
	}

	return api.New(app.Config, opts, app.Logger), closeFn, nil
}

// RunServer starts the API server and the upload sweeper and blocks until
// SIGINT or SIGTERM.
func (app *App) RunServer() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, closeExtractor, err := app.NewServer(ctx)
	if err != nil {
		return err
	}
	defer closeExtractor()

	sw, err := sweeper.New(sweeper.Config{
		Dir:      app.Config.Storage.UploadDir,
		TTL:      app.Config.Storage.UploadTTL,
		Schedule: app.Config.Storage.SweepSchedule,
	}, app.Metrics, app.Logger)
	if err != nil {
		return err
	}
	if err := sw.Start(); err != nil {
		return err
	}
	app.Sweeper = sw
	defer sw.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	app.Logger.Info("Server started",
		zap.String("address", app.Config.ListenAddr()),
		zap.String("version", app.Version),
		zap.String("environment", app.Config.Environment),
		zap.String("url", fmt.Sprintf("http://localhost:%d", app.Config.Server.Port)),
	)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	app.Logger.Info("Shutting down...")
	if err := server.Shutdown(); err != nil {
		app.Logger.Error("Server shutdown failed", zap.Error(err))
		return err
	}
	app.Logger.Info("Goodbye!")
	return nil
}
