package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gmsas95/invoice-audit/internal/config"
	"github.com/gmsas95/invoice-audit/internal/extract"
	"github.com/gmsas95/invoice-audit/internal/ledger"
	"github.com/gmsas95/invoice-audit/internal/metrics"
	"github.com/gmsas95/invoice-audit/internal/reconcile"
	"github.com/gmsas95/invoice-audit/internal/security"
)

// InvoiceExtractor turns an invoice PDF into product lines.
type InvoiceExtractor interface {
	Extract(ctx context.Context, pdfPath string, pages []int) ([]reconcile.ExtractedLine, error)
}

// Server handles the comparison HTTP API
type Server struct {
	app        *fiber.App
	config     *config.Config
	extractor  InvoiceExtractor
	reconciler *reconcile.Reconciler
	ledger     ledger.Options
	countPages func(path string) (int, error)
	uploads    security.UploadPolicy
	metrics    *metrics.Metrics
	version    string
	logger     *zap.Logger
}

// Options holds the collaborators of a Server. Extractor may be nil when no
// vision model is configured; /compare then answers 503.
type Options struct {
	Extractor   InvoiceExtractor
	Ledger      ledger.Options
	Metrics     *metrics.Metrics
	PageCounter func(path string) (int, error)
	Version     string
}

// New creates a new API server
func New(cfg *config.Config, opts Options, logger *zap.Logger) *Server {
	if opts.Metrics == nil {
		opts.Metrics = metrics.Default()
	}
	if opts.PageCounter == nil {
		opts.PageCounter = extract.CountPages
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	policy := reconcile.DefaultPolicy().WithGrossNetCritical(cfg.Reconcile.GrossNetCritical)

	s := &Server{
		config:     cfg,
		extractor:  opts.Extractor,
		reconciler: reconcile.NewReconciler(policy),
		ledger:     opts.Ledger,
		countPages: opts.PageCounter,
		uploads:    security.DefaultUploadPolicy(),
		metrics:    opts.Metrics,
		version:    opts.Version,
		logger:     logger,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "invoice-audit",
		ReadTimeout:           time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:           120 * time.Second,
		BodyLimit:             cfg.Server.BodyLimitMB * 1024 * 1024,
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})

	s.setupRoutes()
	return s
}

// App exposes the fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// ==================== Request / response bodies ====================

// PageCountResponse answers /get-page-count.
type PageCountResponse struct {
	PageCount        int     `json:"pageCount"`
	EstimatedSeconds float64 `json:"estimatedSeconds"`
}

// ReconcileRequest runs the core directly on already extracted data.
type ReconcileRequest struct {
	Lines []reconcile.ExtractedLine `json:"lines"`
	Rows  []reconcile.LedgerRow     `json:"rows"`
}

// DownloadRequest carries the result a report is generated from.
type DownloadRequest struct {
	Data reconcile.Result `json:"data"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Detail  string `json:"detail,omitempty"`
}
