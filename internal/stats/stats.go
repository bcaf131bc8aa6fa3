// Package stats provides thread-safe aggregation of URL check outcomes.
package stats

import (
	"sort"
	"sync"

	"github.com/jonesrussell/linkclean/internal/urlcheck"
)

// notFoundStatus is the status code reported separately from other invalid
// responses.
const notFoundStatus = 404

// RedirectPair records a single observed redirect.
type RedirectPair struct {
	Source string
	Target string
}

// FieldStats holds the counters for a single URL-bearing field. For every
// field the counters satisfy
// TotalURLs == ValidURLs + InvalidURLs + NotFound + Timeouts + Errors;
// redirects are a subset of ValidURLs.
type FieldStats struct {
	TotalURLs     int64
	ValidURLs     int64
	InvalidURLs   int64
	Redirects     int64
	NotFound      int64
	Timeouts      int64
	Errors        int64
	Domains       map[string]int64
	RedirectPairs []RedirectPair
}

// DomainCount pairs a domain with the number of URLs observed for it.
type DomainCount struct {
	Domain string
	Count  int64
}

// TopDomains returns the n most frequent domains, ordered by descending
// count, then by name.
func (f *FieldStats) TopDomains(n int) []DomainCount {
	counts := make([]DomainCount, 0, len(f.Domains))
	for domain, count := range f.Domains {
		counts = append(counts, DomainCount{Domain: domain, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Domain < counts[j].Domain
	})
	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// clone returns a deep copy of the field stats.
func (f *FieldStats) clone() FieldStats {
	out := *f
	out.Domains = make(map[string]int64, len(f.Domains))
	for k, v := range f.Domains {
		out.Domains[k] = v
	}
	out.RedirectPairs = append([]RedirectPair(nil), f.RedirectPairs...)
	return out
}

// Statistics accumulates FieldStats across concurrently executing chunk
// workers. All mutation goes through the mutex; the per-field maps are never
// handed out directly.
type Statistics struct {
	mu     sync.Mutex
	fields map[string]*FieldStats
}

// New creates an empty Statistics instance.
func New() *Statistics {
	return &Statistics{fields: make(map[string]*FieldStats)}
}

// fieldLocked returns the stats for a field, creating them on first use.
// Callers must hold the mutex.
func (s *Statistics) fieldLocked(field string) *FieldStats {
	fs, ok := s.fields[field]
	if !ok {
		fs = &FieldStats{Domains: make(map[string]int64)}
		s.fields[field] = fs
	}
	return fs
}

// AddURLCheck records the outcome of one network check. The domain is taken
// from the original, pre-redirect URL.
func (s *Statistics) AddURLCheck(field, url string, outcome urlcheck.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fs := s.fieldLocked(field)
	fs.TotalURLs++
	fs.Domains[urlcheck.Domain(url)]++

	switch {
	case outcome.TimedOut:
		fs.Timeouts++
	case !outcome.Valid:
		if outcome.StatusCode == notFoundStatus {
			fs.NotFound++
		} else {
			fs.InvalidURLs++
		}
	case outcome.Redirected(url):
		fs.Redirects++
		fs.ValidURLs++
	default:
		fs.ValidURLs++
	}
}

// AddRedirect records a rewrite from source to target in the given field.
func (s *Statistics) AddRedirect(field, source, target string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fs := s.fieldLocked(field)
	fs.RedirectPairs = append(fs.RedirectPairs, RedirectPair{Source: source, Target: target})
}

// AddError records a check that failed with a transport error after all
// retries. Counted so per-field totals stay consistent even when the run is
// about to abort.
func (s *Statistics) AddError(field, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fs := s.fieldLocked(field)
	fs.TotalURLs++
	fs.Domains[urlcheck.Domain(url)]++
	fs.Errors++
}

// FieldNames returns the observed field names in lexicographic order.
func (s *Statistics) FieldNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.fields))
	for name := range s.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Field returns a copy of the stats for one field.
func (s *Statistics) Field(name string) (FieldStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fs, ok := s.fields[name]
	if !ok {
		return FieldStats{}, false
	}
	return fs.clone(), true
}

// AllRedirectPairs returns the deduplicated redirect pairs across all fields,
// sorted by source then target.
func (s *Statistics) AllRedirectPairs() []RedirectPair {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[RedirectPair]struct{})
	for _, fs := range s.fields {
		for _, pair := range fs.RedirectPairs {
			seen[pair] = struct{}{}
		}
	}

	pairs := make([]RedirectPair, 0, len(seen))
	for pair := range seen {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Source != pairs[j].Source {
			return pairs[i].Source < pairs[j].Source
		}
		return pairs[i].Target < pairs[j].Target
	})
	return pairs
}

// Totals holds run-wide counter sums.
type Totals struct {
	URLs     int64
	Valid    int64
	Timeouts int64
	NotFound int64
	Errors   int64
}

// Totals sums the counters across all fields.
func (s *Statistics) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()

	var t Totals
	for _, fs := range s.fields {
		t.URLs += fs.TotalURLs
		t.Valid += fs.ValidURLs
		t.Timeouts += fs.Timeouts
		t.NotFound += fs.NotFound
		t.Errors += fs.Errors
	}
	return t
}
