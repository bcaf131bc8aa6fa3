package stats_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/linkclean/internal/stats"
	"github.com/jonesrussell/linkclean/internal/urlcheck"
)

func TestSummaryRenderListsFieldsAndTotals(t *testing.T) {
	s := stats.New()
	s.AddURLCheck("url", "https://a.example", okOutcome("https://a.example"))
	s.AddURLCheck("links", "https://b.example", urlcheck.Outcome{StatusCode: 404})

	var buf bytes.Buffer
	stats.NewSummaryRenderer(s).Render(&buf, false)

	out := buf.String()
	assert.Contains(t, out, "url")
	assert.Contains(t, out, "links")
	assert.Contains(t, out, "Total")
	assert.NotContains(t, out, "Domain")
}

func TestSummaryRenderVerboseIncludesDomains(t *testing.T) {
	s := stats.New()
	s.AddURLCheck("url", "https://a.example/x", okOutcome("https://a.example/x"))

	var buf bytes.Buffer
	stats.NewSummaryRenderer(s).Render(&buf, true)

	assert.Contains(t, buf.String(), "a.example")
}
