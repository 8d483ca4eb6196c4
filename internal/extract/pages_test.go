package extract

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/gmsas95/invoice-audit/internal/errors"
)

func TestParsePages(t *testing.T) {
	tests := []struct {
		input string
		want  []int
	}{
		{"", nil},
		{"  ", nil},
		{"3", []int{3}},
		{"1,3,7", []int{1, 3, 7}},
		{"7, 3 ,1", []int{1, 3, 7}},
		{"2-4", []int{2, 3, 4}},
		{"1,3-5,4", []int{1, 3, 4, 5}},
		{"1,,2", []int{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePages(tt.input, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePages_Invalid(t *testing.T) {
	for _, input := range []string{"a", "0", "5-3", "1-x", "-2"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParsePages(input, 0)
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeBadRequest, apperrors.GetCode(err))
		})
	}
}

func TestParsePages_Limit(t *testing.T) {
	got, err := ParsePages("1,9-10", 10)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 9, 10}, got)

	for _, input := range []string{"11", "1-20000000", "5,99999"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParsePages(input, 10)
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeBadRequest, apperrors.GetCode(err))
		})
	}

	_, err = ParsePages("1-101", 0)
	require.Error(t, err)
	got, err = ParsePages("100", 0)
	require.NoError(t, err)
	assert.Equal(t, []int{DefaultMaxPages}, got)
}

func TestEstimateSeconds(t *testing.T) {
	assert.InDelta(t, 17.0, EstimateSeconds(10), 1e-9)
	assert.Equal(t, 0.0, EstimateSeconds(0))
}

func TestCountPages_MissingFile(t *testing.T) {
	_, err := CountPages(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeBadRequest, apperrors.GetCode(err))
}
