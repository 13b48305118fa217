package consultations

import (
	"sync"
	"time"
)

// DefaultPollInterval is how often the list refreshes while any visible
// consultation is still in the AI pipeline
const DefaultPollInterval = 5 * time.Second

// pollSession owns the background refresh timer for one list view. Start is
// idempotent while a session is running, Stop is safe to call repeatedly and
// on a session that never started. The tick callback runs in its own
// goroutine so a slow fetch never delays the next tick; the view's generation
// counter handles the out-of-order responses that allows.
type pollSession struct {
	mu       sync.Mutex
	interval time.Duration
	stopCh   chan struct{}
	tick     func()
}

func newPollSession(interval time.Duration, tick func()) *pollSession {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &pollSession{interval: interval, tick: tick}
}

// Start begins ticking. A second Start while running is a no-op, so callers
// may request polling on every refresh without tracking state themselves.
func (p *pollSession) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopCh != nil {
		return
	}
	stopCh := make(chan struct{})
	p.stopCh = stopCh

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				go p.tick()
			}
		}
	}()
}

// Stop halts ticking. Safe to call when not running.
func (p *pollSession) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopCh == nil {
		return
	}
	close(p.stopCh)
	p.stopCh = nil
}

// Running reports whether the session is currently ticking
func (p *pollSession) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopCh != nil
}
