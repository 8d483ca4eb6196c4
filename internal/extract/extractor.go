package extract

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/gmsas95/invoice-audit/internal/batch"
	apperrors "github.com/gmsas95/invoice-audit/internal/errors"
	"github.com/gmsas95/invoice-audit/internal/metrics"
	"github.com/gmsas95/invoice-audit/internal/reconcile"
	"github.com/gmsas95/invoice-audit/internal/security"
)

// Extractor runs the PDF → page images → vision model → lines pipeline.
type Extractor struct {
	raster   Rasterizer
	analyzer Analyzer
	batch    batch.Config
	workDir  string
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// Options configures an Extractor.
type Options struct {
	Batch batch.Config
	// WorkDir holds the temporary page images; os.TempDir() when empty.
	WorkDir string
	Metrics *metrics.Metrics
}

func NewExtractor(raster Rasterizer, analyzer Analyzer, opts Options, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Default()
	}
	return &Extractor{
		raster:   raster,
		analyzer: analyzer,
		batch:    opts.Batch,
		workDir:  opts.WorkDir,
		logger:   logger,
		metrics:  opts.Metrics,
	}
}

// Extract returns the product lines of every selected page in page order.
// pages lists 1-based page numbers; nil selects all pages. A page that
// fails contributes no lines. Only whole-call failures are returned.
func (e *Extractor) Extract(ctx context.Context, pdfPath string, pages []int) ([]reconcile.ExtractedLine, error) {
	dir, err := os.MkdirTemp(e.workDir, "pages-*")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeExtraction, "failed to create image directory")
	}
	defer os.RemoveAll(dir)

	rendered, err := e.raster.Rasterize(ctx, pdfPath, dir)
	if err != nil {
		return nil, err
	}

	selected := selectPages(rendered, pages)
	if len(selected) == 0 {
		return nil, apperrors.New(apperrors.CodeExtraction, "no pages selected for extraction")
	}

	e.logger.Info("Extracting invoice",
		zap.String("model", e.analyzer.Name()),
		zap.Int("rendered_pages", len(rendered)),
		zap.Int("selected_pages", len(selected)),
	)

	proc := batch.NewProcessor(e.analyzePage, e.batch, e.logger)
	result, err := proc.Run(ctx, selected)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeExtraction, "extraction interrupted")
	}

	lines := make([]reconcile.ExtractedLine, 0)
	for _, pageLines := range result.Values() {
		lines = append(lines, pageLines...)
	}

	e.logger.Info("Invoice extracted",
		zap.Int("pages", result.Total),
		zap.Int("failed_pages", result.Failed),
		zap.Int("lines", len(lines)),
		zap.Duration("duration", result.Duration),
	)
	return lines, nil
}

func (e *Extractor) analyzePage(ctx context.Context, page Page) ([]reconcile.ExtractedLine, error) {
	start := time.Now()
	lines, err := e.readAndAnalyze(ctx, page)

	status := "ok"
	switch {
	case apperrors.GetCode(err) == apperrors.CodeAIUnavailable:
		status = "rejected"
	case err != nil:
		status = "failed"
	}
	e.metrics.RecordPage(status, len(lines), time.Since(start))

	if err != nil {
		e.logger.Warn("Page extraction failed",
			zap.Int("page", page.Number),
			zap.String("status", status),
			zap.String("error", security.RedactSecrets(err.Error())),
		)
		return nil, err
	}

	e.logger.Debug("Page extracted",
		zap.Int("page", page.Number),
		zap.Int("lines", len(lines)),
	)
	return lines, nil
}

func (e *Extractor) readAndAnalyze(ctx context.Context, page Page) ([]reconcile.ExtractedLine, error) {
	image, err := os.ReadFile(page.Path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeExtraction, "failed to read page image")
	}
	_ = os.Remove(page.Path)

	text, err := e.analyzer.Analyze(ctx, image)
	if err != nil {
		return nil, err
	}
	return ParseResponse(text, page.Number)
}

// selectPages keeps the rendered pages whose number is in want, in page
// order. Requested pages beyond the document are ignored.
func selectPages(rendered []Page, want []int) []Page {
	if len(want) == 0 {
		return rendered
	}

	keep := make(map[int]struct{}, len(want))
	for _, n := range want {
		keep[n] = struct{}{}
	}

	selected := make([]Page, 0, len(want))
	for _, p := range rendered {
		if _, ok := keep[p.Number]; ok {
			selected = append(selected, p)
		}
	}
	return selected
}
