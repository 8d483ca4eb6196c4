// Package extract turns a scanned invoice PDF into reconcile.ExtractedLine
// records: pages are rasterized with Ghostscript, every page image is sent to
// a vision model, and the model's JSON answer is parsed and validated.
package extract

import (
	"context"
)

// Page is one rasterized invoice page.
type Page struct {
	// Number is the 1-based page number in the source PDF.
	Number int
	// Path is the JPEG file on disk.
	Path string
}

// Rasterizer renders the pages of a PDF into image files under outDir,
// ordered by page number.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outDir string) ([]Page, error)
}

// Analyzer sends one page image to a vision model and returns the model's
// raw text answer.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte) (string, error)
	Name() string
}
