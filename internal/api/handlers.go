package api

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/gmsas95/invoice-audit/internal/errors"
	"github.com/gmsas95/invoice-audit/internal/extract"
	"github.com/gmsas95/invoice-audit/internal/ledger"
	"github.com/gmsas95/invoice-audit/internal/report"
	"github.com/gmsas95/invoice-audit/internal/security"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "healthy",
		"version":     s.version,
		"visionModel": s.extractor != nil,
		"timestamp":   time.Now().Unix(),
	})
}

func (s *Server) handleMetricsJSON(c *fiber.Ctx) error {
	return c.JSON(s.metrics.Snapshot())
}

func (s *Server) handlePageCount(c *fiber.Ctx) error {
	path, err := s.saveUpload(c, "pdfFile")
	if err != nil {
		return s.respondError(c, err)
	}
	defer s.removeUpload(path)

	count, err := s.countPages(path)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(PageCountResponse{
		PageCount:        count,
		EstimatedSeconds: extract.EstimateSeconds(count),
	})
}

// handleCompare reads the uploaded ledger, extracts the uploaded invoice and
// reconciles the two. Both uploads are removed before responding.
func (s *Server) handleCompare(c *fiber.Ctx) error {
	if !hasFile(c, "excelFile") || !hasFile(c, "docsFile") {
		return s.respondError(c, apperrors.New(apperrors.CodeUploadMissing, "both files are required"))
	}

	excelPath, err := s.saveUpload(c, "excelFile")
	if err != nil {
		return s.respondError(c, err)
	}
	defer s.removeUpload(excelPath)

	docsPath, err := s.saveUpload(c, "docsFile")
	if err != nil {
		return s.respondError(c, err)
	}
	defer s.removeUpload(docsPath)

	pages, err := extract.ParsePages(c.FormValue("pages"), s.config.Extraction.MaxPages)
	if err != nil {
		return s.respondError(c, err)
	}

	rows, err := ledger.ReadFile(excelPath, s.ledger)
	if err != nil {
		return s.respondError(c, err)
	}

	if s.extractor == nil {
		return s.respondError(c, apperrors.New(apperrors.CodeAIUnavailable, "no vision model configured"))
	}

	lines, err := s.extractor.Extract(c.UserContext(), docsPath, pages)
	if err != nil {
		return s.respondError(c, err)
	}

	result := s.reconciler.Reconcile(lines, rows)
	s.metrics.RecordReconciliation(len(rows), len(result.MissingProducts), len(result.NameMismatches))

	s.logger.Info("Comparison complete",
		zap.Int("invoice_lines", result.TotalInvoiceLines),
		zap.Int("ledger_rows", result.TotalLedgerRows),
		zap.Int("missing", len(result.MissingProducts)),
		zap.Int("name_mismatches", len(result.NameMismatches)),
	)
	return c.JSON(result)
}

func (s *Server) handleReconcile(c *fiber.Ctx) error {
	var req ReconcileRequest
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid request body"))
	}
	if err := extract.SanitizeLines(req.Lines); err != nil {
		return s.respondError(c, err)
	}

	result := s.reconciler.Reconcile(req.Lines, req.Rows)
	s.metrics.RecordReconciliation(len(req.Rows), len(result.MissingProducts), len(result.NameMismatches))
	return c.JSON(result)
}

func (s *Server) handleDownload(c *fiber.Ctx) error {
	kind, err := report.ParseKind(c.Params("type"))
	if err != nil {
		return s.respondError(c, apperrors.Wrap(err, apperrors.CodeReportKind, "Invalid report type"))
	}

	var req DownloadRequest
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid request body"))
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, req.Data, kind); err != nil {
		return s.respondError(c, apperrors.Wrap(err, apperrors.CodeInternal, "Error generating Excel file"))
	}
	s.metrics.RecordReport(string(kind))

	c.Set(fiber.HeaderContentType, report.ContentType)
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+kind.Filename())
	return c.Send(buf.Bytes())
}

// ==================== Uploads ====================

func hasFile(c *fiber.Ctx, field string) bool {
	fh, err := c.FormFile(field)
	return err == nil && fh != nil
}

// saveUpload stores the multipart file under a random name in the upload
// directory and returns its path.
func (s *Server) saveUpload(c *fiber.Ctx, field string) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeUploadMissing, field+" is required")
	}

	ext, err := s.uploads.CheckFilename(fh.Filename)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeUploadRejected,
			"invalid file type: only Excel (.xlsx, .xls), PDF and Word documents are allowed")
	}

	dir := s.config.Storage.UploadDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeInternal, "failed to create upload directory")
	}

	path, err := security.ContainedIn(filepath.Join(dir, uuid.NewString()+ext), dir)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeInternal, "invalid upload path")
	}
	if err := c.SaveFile(fh, path); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeInternal, "failed to save upload")
	}
	return path, nil
}

func (s *Server) removeUpload(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to remove upload", zap.String("path", path), zap.Error(err))
	}
}
