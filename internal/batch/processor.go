// Package batch runs a function over a list of items in fixed-size concurrent
// batches with a pause between batches and an optional request-rate limit.
package batch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Config struct {
	// BatchSize items run concurrently; the next batch starts after all of
	// them finished and BatchDelay elapsed.
	BatchSize  int
	BatchDelay time.Duration

	// RPM - Requests Per Minute (0 = unlimited)
	RPM   int
	Burst int

	Timeout    time.Duration
	RetryCount int
	RetryDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize:  10,
		BatchDelay: 80 * time.Second,
		Burst:      1,
		Timeout:    90 * time.Second,
	}
}

// Func processes one item.
type Func[T, R any] func(ctx context.Context, item T) (R, error)

// Outcome is the result of one item, kept at the item's input position.
type Outcome[R any] struct {
	Index    int
	Value    R
	Err      error
	Duration time.Duration
}

type Result[R any] struct {
	Total     int
	Success   int
	Failed    int
	Batches   int
	Duration  time.Duration
	Items     []Outcome[R]
	StartTime time.Time
	EndTime   time.Time
}

type Processor[T, R any] struct {
	fn      Func[T, R]
	config  Config
	logger  *zap.Logger
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewProcessor[T, R any](fn Func[T, R], cfg Config, logger *zap.Logger) *Processor[T, R] {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Processor[T, R]{
		fn:     fn,
		config: cfg,
		logger: logger,
		sleep:  sleepContext,
	}

	// RPM limiter: convert to requests per second
	if cfg.RPM > 0 {
		rps := float64(cfg.RPM) / 60.0
		p.limiter = rate.NewLimiter(rate.Limit(rps), cfg.Burst)
	}

	return p
}

// Run processes items batch by batch. Item failures are recorded in their
// Outcome and never abort the run. Run only returns an error when ctx is
// cancelled, together with the outcomes gathered so far.
func (p *Processor[T, R]) Run(ctx context.Context, items []T) (*Result[R], error) {
	startTime := time.Now()
	result := &Result[R]{
		Total:     len(items),
		StartTime: startTime,
		Items:     make([]Outcome[R], len(items)),
	}
	for i := range result.Items {
		result.Items[i].Index = i
	}

	progress := &ProgressTracker{
		Total:     len(items),
		StartTime: startTime,
	}

	batches := (len(items) + p.config.BatchSize - 1) / p.config.BatchSize

	p.logger.Info("Starting batch processing",
		zap.Int("total_items", len(items)),
		zap.Int("batch_size", p.config.BatchSize),
		zap.Int("batches", batches),
		zap.Duration("batch_delay", p.config.BatchDelay),
		zap.Int("rpm_limit", p.config.RPM),
	)

	var runErr error
	for b := 0; b < batches; b++ {
		if b > 0 && p.config.BatchDelay > 0 {
			p.logger.Info("Waiting before next batch",
				zap.Int("batch", b+1),
				zap.Duration("delay", p.config.BatchDelay),
			)
			if err := p.sleep(ctx, p.config.BatchDelay); err != nil {
				runErr = err
				break
			}
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		start := b * p.config.BatchSize
		end := min(start+p.config.BatchSize, len(items))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				result.Items[i] = p.processItem(ctx, i, items[i])
				progress.Increment()
			}(i)
		}
		wg.Wait()
		result.Batches++

		p.logger.Info("Batch progress",
			zap.Int("batch", b+1),
			zap.Int("completed", progress.Done()),
			zap.Int("total", progress.Total),
			zap.Float64("percent", progress.Percent()),
			zap.Duration("elapsed", progress.Elapsed()),
			zap.Duration("eta", progress.ETA()),
		)
	}

	for i := range result.Items {
		if i >= result.Batches*p.config.BatchSize {
			result.Items[i].Err = runErr
		}
		if result.Items[i].Err == nil {
			result.Success++
		} else {
			result.Failed++
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	p.logger.Info("Batch processing complete",
		zap.Int("total", result.Total),
		zap.Int("success", result.Success),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration),
	)

	return result, runErr
}

func (p *Processor[T, R]) processItem(ctx context.Context, index int, item T) Outcome[R] {
	out := Outcome[R]{Index: index}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			out.Err = fmt.Errorf("rate limit error: %w", err)
			return out
		}
	}

	start := time.Now()
	for attempt := 0; attempt <= p.config.RetryCount; attempt++ {
		itemCtx, cancel := ctx, context.CancelFunc(func() {})
		if p.config.Timeout > 0 {
			itemCtx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		}
		out.Value, out.Err = p.fn(itemCtx, item)
		cancel()

		if out.Err == nil || ctx.Err() != nil {
			break
		}
		if attempt < p.config.RetryCount {
			if err := p.sleep(ctx, p.config.RetryDelay); err != nil {
				break
			}
		}
	}
	out.Duration = time.Since(start)

	if out.Err != nil {
		p.logger.Warn("Batch item failed",
			zap.Int("index", index),
			zap.Error(out.Err),
		)
	}
	return out
}

// Values returns the item values in input order, using the zero value for
// failed items.
func (r *Result[R]) Values() []R {
	values := make([]R, len(r.Items))
	for i, item := range r.Items {
		if item.Err == nil {
			values[i] = item.Value
		}
	}
	return values
}

func (r *Result[R]) Summary() string {
	var sb strings.Builder
	sb.WriteString("=== Batch Processing Summary ===\n")
	sb.WriteString(fmt.Sprintf("Total:     %d\n", r.Total))
	sb.WriteString(fmt.Sprintf("Success:   %d\n", r.Success))
	sb.WriteString(fmt.Sprintf("Failed:    %d\n", r.Failed))
	sb.WriteString(fmt.Sprintf("Batches:   %d\n", r.Batches))
	sb.WriteString(fmt.Sprintf("Duration:  %v\n", r.Duration))
	return sb.String()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
