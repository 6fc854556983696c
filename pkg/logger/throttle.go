package logger

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Throttled suppresses repeats of the same message key within a minimum
// interval. The network loops use it so a flapping peer or a storm of
// malformed datagrams cannot flood the log file.
type Throttled struct {
	mu       sync.Mutex
	interval time.Duration
	lastLog  map[string]time.Time
	sugar    *zap.SugaredLogger
}

// NewThrottled wraps the package logger. An interval of zero disables
// suppression entirely.
func NewThrottled(interval time.Duration) *Throttled {
	return &Throttled{
		interval: interval,
		lastLog:  make(map[string]time.Time),
		sugar:    Sugar,
	}
}

func (t *Throttled) allow(key string) bool {
	if t.interval <= 0 {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if last, ok := t.lastLog[key]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.lastLog[key] = now
	return true
}

func (t *Throttled) Infof(key, template string, args ...any) {
	if t.allow(key) {
		t.sugar.Infof(template, args...)
	}
}

func (t *Throttled) Warnf(key, template string, args ...any) {
	if t.allow(key) {
		t.sugar.Warnf(template, args...)
	}
}

func (t *Throttled) Errorf(key, template string, args ...any) {
	if t.allow(key) {
		t.sugar.Errorf(template, args...)
	}
}
