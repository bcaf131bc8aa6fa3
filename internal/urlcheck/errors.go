package urlcheck

import "fmt"

// NetworkError reports a transport-level failure (connection refused, DNS
// failure, ...) that survived all retry attempts. It is deliberately distinct
// from a timeout outcome: the dispatcher fails the enclosing chunk on a
// NetworkError instead of silently skipping the URL.
type NetworkError struct {
	URL      string
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error checking %s after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}
