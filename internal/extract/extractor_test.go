package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gmsas95/invoice-audit/internal/batch"
	apperrors "github.com/gmsas95/invoice-audit/internal/errors"
	"github.com/gmsas95/invoice-audit/internal/metrics"
)

// fakeRasterizer writes one image per page whose content is the page number.
type fakeRasterizer struct {
	pages int
	err   error
}

func (f *fakeRasterizer) Rasterize(ctx context.Context, pdfPath, outDir string) ([]Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	var pages []Page
	for n := 1; n <= f.pages; n++ {
		path := filepath.Join(outDir, fmt.Sprintf("page-%d.jpg", n))
		if err := os.WriteFile(path, []byte(fmt.Sprint(n)), 0644); err != nil {
			return nil, err
		}
		pages = append(pages, Page{Number: n, Path: path})
	}
	return pages, nil
}

// fakeAnalyzer answers per image content ("1", "2", ...).
type fakeAnalyzer struct {
	mu      sync.Mutex
	answers map[string]string
	errs    map[string]error
	seen    []string
}

func (f *fakeAnalyzer) Name() string { return "fake" }

func (f *fakeAnalyzer) Analyze(ctx context.Context, image []byte) (string, error) {
	key := string(image)
	f.mu.Lock()
	f.seen = append(f.seen, key)
	f.mu.Unlock()

	if err := f.errs[key]; err != nil {
		return "", err
	}
	if answer, ok := f.answers[key]; ok {
		return answer, nil
	}
	return "[]", nil
}

func pageAnswer(vno string, products int) string {
	out := "["
	for i := 0; i < products; i++ {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"VNo": %q, "Quantity": %d, "grossnet": [1, 1]}`, vno, i+1)
	}
	return out + "]"
}

func newTestExtractor(r Rasterizer, a Analyzer, workDir string) *Extractor {
	return NewExtractor(r, a, Options{
		Batch:   batch.Config{BatchSize: 2},
		WorkDir: workDir,
		Metrics: metrics.New(),
	}, zap.NewNop())
}

func TestExtract_AllPagesInOrder(t *testing.T) {
	analyzer := &fakeAnalyzer{answers: map[string]string{
		"1": pageAnswer("INV-1", 2),
		"2": pageAnswer("INV-2", 1),
		"3": pageAnswer("INV-3", 3),
	}}
	ex := newTestExtractor(&fakeRasterizer{pages: 3}, analyzer, t.TempDir())

	lines, err := ex.Extract(context.Background(), "invoice.pdf", nil)
	require.NoError(t, err)
	require.Len(t, lines, 6)

	var pages []int
	for _, l := range lines {
		pages = append(pages, l.PageNumber)
	}
	assert.Equal(t, []int{1, 1, 2, 3, 3, 3}, pages)
	assert.Equal(t, "INV-2", lines[2].InvoiceNumber)
}

func TestExtract_SelectedPagesKeepRealNumbers(t *testing.T) {
	analyzer := &fakeAnalyzer{answers: map[string]string{
		"2": pageAnswer("INV-2", 1),
		"4": pageAnswer("INV-4", 1),
	}}
	ex := newTestExtractor(&fakeRasterizer{pages: 4}, analyzer, t.TempDir())

	lines, err := ex.Extract(context.Background(), "invoice.pdf", []int{4, 2, 9})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, 2, lines[0].PageNumber)
	assert.Equal(t, 4, lines[1].PageNumber)
	assert.ElementsMatch(t, []string{"2", "4"}, analyzer.seen)
}

func TestExtract_PageFailureYieldsNothingForThatPage(t *testing.T) {
	analyzer := &fakeAnalyzer{
		answers: map[string]string{
			"1": pageAnswer("INV-1", 1),
			"2": "not json",
			"3": pageAnswer("INV-3", 1),
		},
		errs: map[string]error{"3": errors.New("quota exceeded")},
	}
	m := metrics.New()
	ex := NewExtractor(&fakeRasterizer{pages: 3}, analyzer, Options{
		Batch:   batch.Config{BatchSize: 3},
		WorkDir: t.TempDir(),
		Metrics: m,
	}, zap.NewNop())

	lines, err := ex.Extract(context.Background(), "invoice.pdf", nil)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].PageNumber)

	s := m.Snapshot()
	assert.Equal(t, int64(1), s.PagesOK)
	assert.Equal(t, int64(2), s.PagesFailed)
}

func TestExtract_NoSelectedPages(t *testing.T) {
	ex := newTestExtractor(&fakeRasterizer{pages: 2}, &fakeAnalyzer{}, t.TempDir())

	_, err := ex.Extract(context.Background(), "invoice.pdf", []int{5})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeExtraction, apperrors.GetCode(err))
}

func TestExtract_RasterizerFailure(t *testing.T) {
	rasterErr := apperrors.New(apperrors.CodeExtraction, "ghostscript not found")
	ex := newTestExtractor(&fakeRasterizer{err: rasterErr}, &fakeAnalyzer{}, t.TempDir())

	_, err := ex.Extract(context.Background(), "invoice.pdf", nil)
	assert.ErrorIs(t, err, rasterErr)
}

func TestExtract_CleansUpImages(t *testing.T) {
	workDir := t.TempDir()
	ex := newTestExtractor(&fakeRasterizer{pages: 2}, &fakeAnalyzer{}, workDir)

	_, err := ex.Extract(context.Background(), "invoice.pdf", nil)
	require.NoError(t, err)

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtract_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ex := NewExtractor(&fakeRasterizer{pages: 3}, &fakeAnalyzer{}, Options{
		Batch:   batch.Config{BatchSize: 1, BatchDelay: time.Hour},
		WorkDir: t.TempDir(),
		Metrics: metrics.New(),
	}, zap.NewNop())

	_, err := ex.Extract(ctx, "invoice.pdf", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSelectPages(t *testing.T) {
	rendered := []Page{{Number: 1}, {Number: 2}, {Number: 3}}

	assert.Equal(t, rendered, selectPages(rendered, nil))
	assert.Equal(t, []Page{{Number: 1}, {Number: 3}}, selectPages(rendered, []int{3, 1, 1}))
	assert.Empty(t, selectPages(rendered, []int{7}))
}
