package extract

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	apperrors "github.com/gmsas95/invoice-audit/internal/errors"
)

// BreakerOptions configures the circuit breaker around an Analyzer.
type BreakerOptions struct {
	// MaxFailures consecutive failures open the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before a trial call.
	OpenTimeout time.Duration
	// OnStateChange, if set, is called with the new state (0 closed,
	// 1 half-open, 2 open).
	OnStateChange func(name string, state int)
}

// breakerAnalyzer stops calling the model after repeated failures so a
// quota or outage fails the remaining pages fast.
type breakerAnalyzer struct {
	next   Analyzer
	cb     *gobreaker.CircuitBreaker[string]
	logger *zap.Logger
}

// WithBreaker wraps next in a circuit breaker.
func WithBreaker(next Analyzer, opts BreakerOptions, logger *zap.Logger) Analyzer {
	if opts.MaxFailures == 0 {
		opts.MaxFailures = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	settings := gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			// a caller giving up is not a model failure
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Vision model breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if opts.OnStateChange != nil {
				opts.OnStateChange(name, int(to))
			}
		},
	}

	return &breakerAnalyzer{
		next:   next,
		cb:     gobreaker.NewCircuitBreaker[string](settings),
		logger: logger,
	}
}

func (b *breakerAnalyzer) Name() string {
	return b.next.Name()
}

func (b *breakerAnalyzer) Analyze(ctx context.Context, image []byte) (string, error) {
	text, err := b.cb.Execute(func() (string, error) {
		return b.next.Analyze(ctx, image)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", apperrors.Wrap(err, apperrors.CodeAIUnavailable, "vision model unavailable")
	}
	return text, err
}
