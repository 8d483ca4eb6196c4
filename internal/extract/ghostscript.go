package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	apperrors "github.com/gmsas95/invoice-audit/internal/errors"
)

var pageFilePattern = regexp.MustCompile(`^page-(\d+)\.jpg$`)

// GhostscriptOptions configures the gs invocation.
type GhostscriptOptions struct {
	Binary      string
	Resolution  int
	JPEGQuality int
	MaxPages    int
}

// ghostscript implements Rasterizer by shelling out to gs
type ghostscript struct {
	opts GhostscriptOptions
}

// NewGhostscript creates a Rasterizer backed by the gs binary.
func NewGhostscript(opts GhostscriptOptions) Rasterizer {
	if opts.Binary == "" {
		opts.Binary = "gs"
	}
	if opts.Resolution <= 0 {
		opts.Resolution = 300
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = 100
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	return &ghostscript{opts: opts}
}

func (g *ghostscript) args(pdfPath, outDir string) []string {
	return []string{
		"-dSAFER",
		"-dBATCH",
		"-dNOPAUSE",
		"-sDEVICE=jpeg",
		fmt.Sprintf("-r%d", g.opts.Resolution),
		fmt.Sprintf("-dJPEGQ=%d", g.opts.JPEGQuality),
		"-dFirstPage=1",
		fmt.Sprintf("-dLastPage=%d", g.opts.MaxPages),
		"-sOutputFile=" + filepath.Join(outDir, "page-%d.jpg"),
		pdfPath,
	}
}

// Rasterize renders every page of pdfPath, up to MaxPages, as page-N.jpg.
func (g *ghostscript) Rasterize(ctx context.Context, pdfPath, outDir string) ([]Page, error) {
	if _, err := exec.LookPath(g.opts.Binary); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeExtraction, "ghostscript not found (install ghostscript)")
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeExtraction, "failed to create image directory")
	}

	cmd := exec.CommandContext(ctx, g.opts.Binary, g.args(pdfPath, outDir)...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, apperrors.Wrap(fmt.Errorf("%w (output: %s)", err, string(output)),
			apperrors.CodeExtraction, "ghostscript failed")
	}

	pages, err := collectPages(outDir)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeExtraction, "failed to list page images")
	}
	if len(pages) == 0 {
		return nil, apperrors.New(apperrors.CodeExtraction, "PDF produced no pages")
	}
	return pages, nil
}

// collectPages lists page-N.jpg files in dir ordered numerically.
func collectPages(dir string) ([]Page, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var pages []Page
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := pageFilePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		pages = append(pages, Page{Number: n, Path: filepath.Join(dir, entry.Name())})
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })
	return pages, nil
}
