// Package output persists the artifacts of a cleaning run: the cleaned
// records, the timeout-URL list, and the redirect map. All sidecar files are
// written in a deterministic, sorted form independent of processing order.
package output

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonesrussell/linkclean/internal/stats"
)

// DerivePath returns the default output path for an input file: the input's
// stem plus suffix, keeping the directory and extension.
func DerivePath(inputPath, suffix string) string {
	dir := filepath.Dir(inputPath)
	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, stem+suffix+ext)
}

// CreateRecordsFile opens the cleaned-records output file for writing. The
// caller must call the returned flush function before closing.
func CreateRecordsFile(path string) (*os.File, *bufio.Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file %s: %w", path, err)
	}
	return f, bufio.NewWriter(f), nil
}

// WriteTimeoutList writes one URL per line, lexicographically sorted and
// deduplicated. Nothing is written when the set is empty.
func WriteTimeoutList(path string, set *stats.TimeoutSet) error {
	urls := set.Sorted()
	if len(urls) == 0 {
		return nil
	}

	lines := make([]string, 0, len(urls))
	lines = append(lines, urls...)
	return writeLines(path, lines)
}

// WriteRedirectMap writes `source;target` lines, sorted and deduplicated.
// Nothing is written when there are no pairs.
func WriteRedirectMap(path string, pairs []stats.RedirectPair) error {
	if len(pairs) == 0 {
		return nil
	}

	lines := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		lines = append(lines, pair.Source+";"+pair.Target)
	}
	return writeLines(path, lines)
}

// writeLines writes the given lines to path, newline-terminated.
func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, writeErr := w.WriteString(line + "\n"); writeErr != nil {
			return fmt.Errorf("write %s: %w", path, writeErr)
		}
	}
	if flushErr := w.Flush(); flushErr != nil {
		return fmt.Errorf("flush %s: %w", path, flushErr)
	}
	return nil
}
