package stats

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// topDomainCount is how many domains are shown per field in verbose mode.
const topDomainCount = 5

// SummaryRenderer formats the collected statistics as plain-text tables.
type SummaryRenderer struct {
	stats *Statistics
}

// NewSummaryRenderer creates a renderer for the given statistics.
func NewSummaryRenderer(s *Statistics) *SummaryRenderer {
	return &SummaryRenderer{stats: s}
}

// Render writes the per-field summary table to w. With verbose set, a second
// table lists the most frequent domains per field.
func (r *SummaryRenderer) Render(w io.Writer, verbose bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Field", "Total", "Valid", "Redirects", "Invalid", "Not Found", "Timeouts", "Errors"})

	for _, name := range r.stats.FieldNames() {
		fs, ok := r.stats.Field(name)
		if !ok {
			continue
		}
		t.AppendRow(table.Row{
			name,
			fs.TotalURLs,
			fs.ValidURLs,
			fs.Redirects,
			fs.InvalidURLs,
			fs.NotFound,
			fs.Timeouts,
			fs.Errors,
		})
	}

	totals := r.stats.Totals()
	t.AppendFooter(table.Row{
		"Total",
		totals.URLs,
		totals.Valid,
		"",
		"",
		totals.NotFound,
		totals.Timeouts,
		totals.Errors,
	})
	t.Render()

	if verbose {
		r.renderTopDomains(w)
	}
}

// renderTopDomains writes the per-field top-domain table.
func (r *SummaryRenderer) renderTopDomains(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Field", "Domain", "URLs"})

	for _, name := range r.stats.FieldNames() {
		fs, ok := r.stats.Field(name)
		if !ok {
			continue
		}
		for _, dc := range fs.TopDomains(topDomainCount) {
			t.AppendRow(table.Row{name, dc.Domain, dc.Count})
		}
	}
	t.Render()
}
