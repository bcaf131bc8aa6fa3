package pipeline

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
)

// Reporter receives progress updates from chunk workers.
type Reporter interface {
	// Add reports n more records processed.
	Add(n int64)

	// Finish marks the run complete and stops any rendering.
	Finish()
}

// renderUpdateFrequency controls how often the progress bar redraws.
const renderUpdateFrequency = 100 * time.Millisecond

// TrackerReporter renders a live progress bar. Total may be 0 when the input
// length is unknown up front; the tracker then shows counts only.
type TrackerReporter struct {
	writer  progress.Writer
	tracker *progress.Tracker
}

// NewTrackerReporter creates and starts a progress renderer writing to w.
func NewTrackerReporter(w io.Writer, total int64) *TrackerReporter {
	pw := progress.NewWriter()
	pw.SetOutputWriter(w)
	pw.SetUpdateFrequency(renderUpdateFrequency)
	pw.SetAutoStop(false)
	pw.Style().Visibility.ETA = total > 0

	tracker := &progress.Tracker{
		Message: "Processing records",
		Total:   total,
		Units:   progress.UnitsDefault,
	}
	pw.AppendTracker(tracker)

	go pw.Render()

	return &TrackerReporter{writer: pw, tracker: tracker}
}

// Add reports n more records processed.
func (r *TrackerReporter) Add(n int64) {
	r.tracker.Increment(n)
}

// Finish marks the tracker done and stops rendering.
func (r *TrackerReporter) Finish() {
	r.tracker.MarkAsDone()
	r.writer.Stop()
}
