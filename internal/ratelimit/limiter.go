// Package ratelimit implements a per-student sliding-window request limiter.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter counts admitted requests per student within a trailing window.
// Admit-and-increment is a single step under the mutex, so two concurrent
// calls can never both take the last remaining slot.
type Limiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	buckets map[string][]time.Time
	now     func() time.Time
}

// New creates a limiter allowing max admissions per window for each student.
func New(window time.Duration, max int) *Limiter {
	return &Limiter{
		window:  window,
		max:     max,
		buckets: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Admit reports whether the student may proceed. An admitted request
// consumes one slot; a rejected one consumes nothing, so capacity fully
// recovers after one idle window.
func (l *Limiter) Admit(studentID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	times := l.prune(studentID, now)

	if len(times) >= l.max {
		return false
	}

	l.buckets[studentID] = append(times, now)
	return true
}

// Remaining returns how many admissions the student has left in the
// current window.
func (l *Limiter) Remaining(studentID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	times := l.prune(studentID, l.now())
	if remaining := l.max - len(times); remaining > 0 {
		return remaining
	}
	return 0
}

// prune drops timestamps older than the window and evicts empty buckets.
// Caller must hold the mutex.
func (l *Limiter) prune(studentID string, now time.Time) []time.Time {
	times := l.buckets[studentID]
	cutoff := now.Add(-l.window)

	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) == 0 {
		delete(l.buckets, studentID)
		return nil
	}
	l.buckets[studentID] = kept
	return kept
}
