package batch

import (
	"sync"
	"time"
)

// ProgressTracker tracks batch processing progress
type ProgressTracker struct {
	Total     int
	StartTime time.Time

	mu        sync.RWMutex
	completed int
}

func (p *ProgressTracker) Increment() {
	p.mu.Lock()
	p.completed++
	p.mu.Unlock()
}

func (p *ProgressTracker) Done() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.completed
}

func (p *ProgressTracker) Percent() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.Total == 0 {
		return 0
	}
	return float64(p.completed) / float64(p.Total) * 100
}

func (p *ProgressTracker) Elapsed() time.Duration {
	return time.Since(p.StartTime)
}

func (p *ProgressTracker) ETA() time.Duration {
	p.mu.RLock()
	completed := p.completed
	total := p.Total
	p.mu.RUnlock()

	if completed == 0 {
		return 0
	}

	elapsed := p.Elapsed()
	perItem := elapsed / time.Duration(completed)
	return perItem * time.Duration(total-completed)
}
