package extract

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	apperrors "github.com/gmsas95/invoice-audit/internal/errors"
)

// SecondsPerPage is the average extraction time per page, used for the
// estimate shown before a comparison starts.
const SecondsPerPage = 1.7

// DefaultMaxPages is the most pages rasterized from one PDF.
const DefaultMaxPages = 100

// CountPages returns the number of pages in the PDF at path.
func CountPages(path string) (int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeBadRequest, "failed to read PDF")
	}
	defer f.Close()

	return r.NumPage(), nil
}

// EstimateSeconds returns the expected extraction time for pages pages.
func EstimateSeconds(pages int) float64 {
	return float64(pages) * SecondsPerPage
}

// ParsePages parses a page selection such as "1,3,5-7" into sorted, unique
// 1-based page numbers. An empty selection returns nil, meaning all pages.
// Pages above maxPage are rejected; maxPage <= 0 means DefaultMaxPages.
func ParsePages(input string, maxPage int) ([]int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	if maxPage <= 0 {
		maxPage = DefaultMaxPages
	}

	seen := make(map[int]struct{})
	add := func(n int) error {
		if n < 1 {
			return fmt.Errorf("page numbers start at 1: %d", n)
		}
		if n > maxPage {
			return fmt.Errorf("page %d exceeds the limit of %d pages", n, maxPage)
		}
		seen[n] = struct{}{}
		return nil
	}

	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if lo, hi, ok := strings.Cut(part, "-"); ok {
			from, err1 := strconv.Atoi(strings.TrimSpace(lo))
			to, err2 := strconv.Atoi(strings.TrimSpace(hi))
			if err1 != nil || err2 != nil || from > to {
				return nil, apperrors.New(apperrors.CodeBadRequest, "invalid page range: "+part)
			}
			if to > maxPage {
				return nil, apperrors.New(apperrors.CodeBadRequest,
					fmt.Sprintf("invalid page range: %s exceeds the limit of %d pages", part, maxPage))
			}
			for n := from; n <= to; n++ {
				if err := add(n); err != nil {
					return nil, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid page range: "+part)
				}
			}
			continue
		}

		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid page number: "+part)
		}
		if err := add(n); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid page number: "+part)
		}
	}

	pages := make([]int, 0, len(seen))
	for n := range seen {
		pages = append(pages, n)
	}
	sort.Ints(pages)
	return pages, nil
}
