package handlers

import (
	"sync"
	"time"
)

// SlidingWindow allows at most limit events per key within any window-long
// interval.
type SlidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string][]time.Time
}

func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
	}
}

// Allow records an attempt for key at now and reports whether it is within
// the limit. Rejected attempts are not recorded.
func (w *SlidingWindow) Allow(key string, now time.Time) bool {
	if w.limit <= 0 {
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	recent := w.trim(w.hits[key], now)
	if len(recent) >= w.limit {
		w.hits[key] = recent
		return false
	}
	w.hits[key] = append(recent, now)
	return true
}

func (w *SlidingWindow) Forget(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.hits, key)
}

// Prune drops keys with no attempts inside the window.
func (w *SlidingWindow) Prune(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for key, hits := range w.hits {
		if recent := w.trim(hits, now); len(recent) == 0 {
			delete(w.hits, key)
		} else {
			w.hits[key] = recent
		}
	}
}

func (w *SlidingWindow) trim(hits []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}
