package stats

import (
	"sort"
	"sync"
)

// TimeoutSet is a deduplicated, insert-only set of URLs that exhausted their
// retries due to timeouts. Shared across chunk workers for the whole run.
type TimeoutSet struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

// NewTimeoutSet creates an empty timeout set.
func NewTimeoutSet() *TimeoutSet {
	return &TimeoutSet{urls: make(map[string]struct{})}
}

// Add inserts a URL into the set.
func (t *TimeoutSet) Add(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.urls[url] = struct{}{}
}

// Len returns the number of distinct URLs in the set.
func (t *TimeoutSet) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.urls)
}

// Sorted returns the URLs in lexicographic order.
func (t *TimeoutSet) Sorted() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, 0, len(t.urls))
	for url := range t.urls {
		out = append(out, url)
	}
	sort.Strings(out)
	return out
}
