package api

import "time"

// SetClock replaces the limiter's time source.
func (l *LocalLimiter) SetClock(now func() time.Time) { l.now = now }

// Buckets reports how many keys the limiter currently tracks.
func (l *LocalLimiter) Buckets() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
