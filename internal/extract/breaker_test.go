package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/gmsas95/invoice-audit/internal/errors"
)

type countingAnalyzer struct {
	calls int
	err   error
}

func (c *countingAnalyzer) Name() string { return "counting" }

func (c *countingAnalyzer) Analyze(ctx context.Context, image []byte) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return "[]", nil
}

func TestWithBreaker_PassesThrough(t *testing.T) {
	next := &countingAnalyzer{}
	a := WithBreaker(next, BreakerOptions{}, zap.NewNop())

	text, err := a.Analyze(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "[]", text)
	assert.Equal(t, "counting", a.Name())
}

func TestWithBreaker_OpensAfterFailures(t *testing.T) {
	next := &countingAnalyzer{err: errors.New("503 service unavailable")}
	var states []int
	a := WithBreaker(next, BreakerOptions{
		MaxFailures:   2,
		OpenTimeout:   time.Hour,
		OnStateChange: func(name string, state int) { states = append(states, state) },
	}, zap.NewNop())

	for i := 0; i < 2; i++ {
		_, err := a.Analyze(context.Background(), nil)
		require.Error(t, err)
		assert.NotEqual(t, apperrors.CodeAIUnavailable, apperrors.GetCode(err))
	}

	_, err := a.Analyze(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAIUnavailable, apperrors.GetCode(err))
	assert.Equal(t, 2, next.calls, "open breaker must not call the model")
	assert.Equal(t, []int{2}, states)
}

func TestWithBreaker_CancellationDoesNotTrip(t *testing.T) {
	next := &countingAnalyzer{err: context.Canceled}
	a := WithBreaker(next, BreakerOptions{MaxFailures: 1, OpenTimeout: time.Hour}, zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := a.Analyze(context.Background(), nil)
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, 3, next.calls)
}
