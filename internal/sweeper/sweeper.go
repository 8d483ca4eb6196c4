// Package sweeper removes stale files from the upload directory on a cron
// schedule.
package sweeper

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/gmsas95/invoice-audit/internal/metrics"
)

// Config holds sweeper configuration
type Config struct {
	Dir      string        // Directory to sweep
	TTL      time.Duration // Files older than this are removed
	Schedule string        // Cron spec, e.g. "@every 15m" or "*/10 * * * *"
}

// Sweeper manages the scheduled cleanup
type Sweeper struct {
	config  Config
	cron    *cron.Cron
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	running bool
	mu      sync.Mutex
}

// New creates a sweeper. The schedule is validated here so a bad spec fails
// at startup rather than silently never running.
func New(config Config, m *metrics.Metrics, logger *zap.Logger) (*Sweeper, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("sweeper: directory is required")
	}
	if config.TTL <= 0 {
		config.TTL = time.Hour
	}
	if config.Schedule == "" {
		config.Schedule = "@every 15m"
	}
	if m == nil {
		m = metrics.Default()
	}

	s := &Sweeper{
		config:  config,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}

	cl := cronLogger{logger.Sugar()}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := s.cron.AddFunc(config.Schedule, s.runScheduled); err != nil {
		return nil, fmt.Errorf("sweeper: invalid schedule %q: %w", config.Schedule, err)
	}
	return s, nil
}

// Start creates the directory if needed and starts the schedule.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("sweeper already running")
	}
	if err := os.MkdirAll(s.config.Dir, 0755); err != nil {
		return fmt.Errorf("sweeper: failed to create %s: %w", s.config.Dir, err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("Upload sweeper started",
		zap.String("dir", s.config.Dir),
		zap.Duration("ttl", s.config.TTL),
		zap.String("schedule", s.config.Schedule),
	)
	return nil
}

// Stop stops the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("Upload sweeper stopped")
}

// IsRunning returns whether the schedule is active
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Sweeper) runScheduled() {
	if _, err := s.Sweep(); err != nil {
		s.logger.Error("Upload sweep failed", zap.Error(err))
	}
}

// Sweep removes regular files in the directory whose modification time is
// older than the TTL and returns how many were removed. Subdirectories are
// left alone.
func (s *Sweeper) Sweep() (int, error) {
	entries, err := os.ReadDir(s.config.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := s.now().Add(-s.config.TTL)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(s.config.Dir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("Failed to remove stale upload", zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		s.metrics.RecordUploadsSwept(removed)
		s.logger.Info("Removed stale uploads", zap.Int("count", removed))
	}
	return removed, nil
}

// cronLogger adapts zap to cron's logger interface.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
