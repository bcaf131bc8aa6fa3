package processor_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/linkclean/internal/domain"
	"github.com/jonesrussell/linkclean/internal/logger"
	"github.com/jonesrussell/linkclean/internal/processor"
	"github.com/jonesrussell/linkclean/internal/stats"
	"github.com/jonesrussell/linkclean/internal/urlcheck"
)

// mockChecker maps URLs to canned outcomes. URLs without an entry fail the
// test; errored URLs return a NetworkError.
type mockChecker struct {
	t        *testing.T
	outcomes map[string]urlcheck.Outcome
	failing  map[string]bool
	calls    []string
}

func newMockChecker(t *testing.T) *mockChecker {
	return &mockChecker{
		t:        t,
		outcomes: make(map[string]urlcheck.Outcome),
		failing:  make(map[string]bool),
	}
}

func (m *mockChecker) ok(url string) {
	m.outcomes[url] = urlcheck.Outcome{Valid: true, ResolvedURL: url, StatusCode: 200}
}

func (m *mockChecker) redirect(url, target string) {
	m.outcomes[url] = urlcheck.Outcome{Valid: true, ResolvedURL: target, StatusCode: 301}
}

func (m *mockChecker) notFound(url string) {
	m.outcomes[url] = urlcheck.Outcome{StatusCode: 404}
}

func (m *mockChecker) timeout(url string) {
	m.outcomes[url] = urlcheck.Outcome{TimedOut: true}
}

func (m *mockChecker) fail(url string) {
	m.failing[url] = true
}

func (m *mockChecker) Check(_ context.Context, rawURL string) (urlcheck.Outcome, error) {
	m.calls = append(m.calls, rawURL)
	if m.failing[rawURL] {
		return urlcheck.Outcome{}, &urlcheck.NetworkError{URL: rawURL, Attempts: 3}
	}
	outcome, ok := m.outcomes[rawURL]
	if !ok {
		m.t.Fatalf("unexpected check of %s", rawURL)
	}
	return outcome, nil
}

type fixture struct {
	checker  *mockChecker
	stats    *stats.Statistics
	timeouts *stats.TimeoutSet
	proc     *processor.Processor
}

func newFixture(t *testing.T, fields []string, policy processor.Policy) *fixture {
	checker := newMockChecker(t)
	st := stats.New()
	timeouts := stats.NewTimeoutSet()
	return &fixture{
		checker:  checker,
		stats:    st,
		timeouts: timeouts,
		proc:     processor.New(checker, fields, policy, st, timeouts, logger.NewNoOp()),
	}
}

func record(t *testing.T, line string) *domain.Record {
	t.Helper()
	rec, err := domain.ParseRecord([]byte(line))
	require.NoError(t, err)
	return rec
}

func marshal(t *testing.T, rec *domain.Record) string {
	t.Helper()
	out, err := json.Marshal(rec)
	require.NoError(t, err)
	return string(out)
}

func TestProcessKeepsValidURL(t *testing.T) {
	f := newFixture(t, []string{"url"}, processor.Policy{})
	f.checker.ok("https://example.com")

	rec := record(t, `{"id":1,"url":"https://example.com"}`)
	require.NoError(t, f.proc.Process(context.Background(), rec))

	assert.Equal(t, `{"id":1,"url":"https://example.com"}`, marshal(t, rec))

	fs, ok := f.stats.Field("url")
	require.True(t, ok)
	assert.Equal(t, int64(1), fs.TotalURLs)
	assert.Equal(t, int64(1), fs.ValidURLs)
}

func TestProcessDeletesUnreachableURL(t *testing.T) {
	f := newFixture(t, []string{"url"}, processor.Policy{})
	f.checker.notFound("https://gone.example")

	rec := record(t, `{"id":1,"url":"https://gone.example"}`)
	require.NoError(t, f.proc.Process(context.Background(), rec))

	assert.Equal(t, `{"id":1}`, marshal(t, rec))

	fs, _ := f.stats.Field("url")
	assert.Equal(t, int64(1), fs.NotFound)
	assert.Equal(t, int64(0), fs.ValidURLs)
}

func TestProcessDeletesSyntacticallyInvalidURLWithoutChecking(t *testing.T) {
	f := newFixture(t, []string{"url"}, processor.Policy{})

	rec := record(t, `{"url":"not a url","other":true}`)
	require.NoError(t, f.proc.Process(context.Background(), rec))

	assert.Equal(t, `{"other":true}`, marshal(t, rec))

	// Malformed URLs never reach the network or the counters.
	assert.Empty(t, f.checker.calls)
	_, ok := f.stats.Field("url")
	assert.False(t, ok)
}

func TestProcessTimeoutKeptByDefault(t *testing.T) {
	f := newFixture(t, []string{"url"}, processor.Policy{})
	f.checker.timeout("https://slow.example")

	rec := record(t, `{"url":"https://slow.example"}`)
	require.NoError(t, f.proc.Process(context.Background(), rec))

	assert.Equal(t, `{"url":"https://slow.example"}`, marshal(t, rec))
	assert.Equal(t, []string{"https://slow.example"}, f.timeouts.Sorted())
}

func TestProcessTimeoutDeletedByPolicy(t *testing.T) {
	f := newFixture(t, []string{"url"}, processor.Policy{DeleteTimeouts: true})
	f.checker.timeout("https://slow.example")

	rec := record(t, `{"url":"https://slow.example"}`)
	require.NoError(t, f.proc.Process(context.Background(), rec))

	assert.Equal(t, `{}`, marshal(t, rec))
	// The timeout is recorded even when the URL is deleted.
	assert.Equal(t, []string{"https://slow.example"}, f.timeouts.Sorted())
}

func TestProcessRedirectRewrittenOnlyWhenFollowing(t *testing.T) {
	t.Run("following", func(t *testing.T) {
		f := newFixture(t, []string{"url"}, processor.Policy{FollowRedirects: true})
		f.checker.redirect("https://old.example", "https://new.example")

		rec := record(t, `{"url":"https://old.example"}`)
		require.NoError(t, f.proc.Process(context.Background(), rec))

		assert.Equal(t, `{"url":"https://new.example"}`, marshal(t, rec))
		assert.Equal(t, []stats.RedirectPair{
			{Source: "https://old.example", Target: "https://new.example"},
		}, f.stats.AllRedirectPairs())
	})

	t.Run("not following", func(t *testing.T) {
		f := newFixture(t, []string{"url"}, processor.Policy{})
		f.checker.redirect("https://old.example", "https://new.example")

		rec := record(t, `{"url":"https://old.example"}`)
		require.NoError(t, f.proc.Process(context.Background(), rec))

		assert.Equal(t, `{"url":"https://old.example"}`, marshal(t, rec))
		assert.Empty(t, f.stats.AllRedirectPairs())
	})
}

func TestProcessListFiltersElements(t *testing.T) {
	f := newFixture(t, []string{"links"}, processor.Policy{})
	f.checker.ok("https://a.example")
	f.checker.notFound("https://dead.example")
	f.checker.ok("https://b.example")

	rec := record(t, `{"links":["https://a.example","https://dead.example","bogus","https://b.example"]}`)
	require.NoError(t, f.proc.Process(context.Background(), rec))

	assert.Equal(t, `{"links":["https://a.example","https://b.example"]}`, marshal(t, rec))
}

func TestProcessListDeletedWhenEmpty(t *testing.T) {
	f := newFixture(t, []string{"links"}, processor.Policy{})
	f.checker.notFound("https://dead.example")

	rec := record(t, `{"links":["https://dead.example"],"keep":1}`)
	require.NoError(t, f.proc.Process(context.Background(), rec))

	assert.Equal(t, `{"keep":1}`, marshal(t, rec))
}

func TestProcessListKeepsTimeoutsUnlessDeleted(t *testing.T) {
	f := newFixture(t, []string{"links"}, processor.Policy{})
	f.checker.timeout("https://slow.example")
	f.checker.ok("https://fast.example")

	rec := record(t, `{"links":["https://slow.example","https://fast.example"]}`)
	require.NoError(t, f.proc.Process(context.Background(), rec))
	assert.Equal(t, `{"links":["https://slow.example","https://fast.example"]}`, marshal(t, rec))

	del := newFixture(t, []string{"links"}, processor.Policy{DeleteTimeouts: true})
	del.checker.timeout("https://slow.example")
	del.checker.ok("https://fast.example")

	rec = record(t, `{"links":["https://slow.example","https://fast.example"]}`)
	require.NoError(t, del.proc.Process(context.Background(), rec))
	assert.Equal(t, `{"links":["https://fast.example"]}`, marshal(t, rec))
}

func TestProcessDeletesNonURLValues(t *testing.T) {
	f := newFixture(t, []string{"url"}, processor.Policy{})

	rec := record(t, `{"url":42,"id":"x"}`)
	require.NoError(t, f.proc.Process(context.Background(), rec))

	assert.Equal(t, `{"id":"x"}`, marshal(t, rec))
	assert.Empty(t, f.checker.calls)
}

func TestProcessSkipsAbsentFields(t *testing.T) {
	f := newFixture(t, []string{"url", "homepage"}, processor.Policy{})
	f.checker.ok("https://example.com")

	rec := record(t, `{"url":"https://example.com"}`)
	require.NoError(t, f.proc.Process(context.Background(), rec))

	assert.Equal(t, `{"url":"https://example.com"}`, marshal(t, rec))
	assert.Equal(t, []string{"https://example.com"}, f.checker.calls)
}

func TestProcessPropagatesNetworkError(t *testing.T) {
	f := newFixture(t, []string{"url"}, processor.Policy{})
	f.checker.fail("https://down.example")

	rec := record(t, `{"url":"https://down.example"}`)
	err := f.proc.Process(context.Background(), rec)
	require.Error(t, err)

	var netErr *urlcheck.NetworkError
	assert.ErrorAs(t, err, &netErr)

	// The failed check is still counted.
	fs, ok := f.stats.Field("url")
	require.True(t, ok)
	assert.Equal(t, int64(1), fs.Errors)
	assert.Equal(t, int64(1), fs.TotalURLs)
}

func TestProcessNeverTouchesUnconfiguredFields(t *testing.T) {
	f := newFixture(t, []string{"url"}, processor.Policy{})
	f.checker.ok("https://example.com")

	rec := record(t, `{"url":"https://example.com","other_url":"not checked","nested":{"deep":"https://skip.example"}}`)
	require.NoError(t, f.proc.Process(context.Background(), rec))

	assert.Equal(t,
		`{"url":"https://example.com","other_url":"not checked","nested":{"deep":"https://skip.example"}}`,
		marshal(t, rec))
	assert.Equal(t, []string{"https://example.com"}, f.checker.calls)
}
