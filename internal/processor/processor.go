// Package processor applies URL checks to the configured fields of a record
// and mutates the record according to the cleaning policy.
package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonesrussell/linkclean/internal/domain"
	"github.com/jonesrussell/linkclean/internal/logger"
	"github.com/jonesrussell/linkclean/internal/stats"
	"github.com/jonesrussell/linkclean/internal/urlcheck"
)

// CheckClient probes a single URL. Implemented by *urlcheck.Checker; tests
// substitute a mock.
type CheckClient interface {
	Check(ctx context.Context, rawURL string) (urlcheck.Outcome, error)
}

// Policy holds the configured behaviors governing how a checked URL's outcome
// mutates its owning record.
type Policy struct {
	// DeleteTimeouts removes URLs whose checks timed out. The default is to
	// keep them; timed-out URLs are recorded in the timeout set either way.
	// The same policy applies to scalar fields and list elements.
	DeleteTimeouts bool

	// FollowRedirects rewrites redirecting URLs to their single-hop target.
	FollowRedirects bool
}

// Processor runs URL checks for the configured fields of records.
type Processor struct {
	checker  CheckClient
	fields   []string
	policy   Policy
	stats    *stats.Statistics
	timeouts *stats.TimeoutSet
	log      logger.Interface
}

// New creates a processor. The statistics and timeout set are shared across
// all processors of a run; the checker is owned by this processor's chunk.
func New(
	checker CheckClient,
	fields []string,
	policy Policy,
	st *stats.Statistics,
	timeouts *stats.TimeoutSet,
	log logger.Interface,
) *Processor {
	return &Processor{
		checker:  checker,
		fields:   fields,
		policy:   policy,
		stats:    st,
		timeouts: timeouts,
		log:      log,
	}
}

// Process checks every configured URL-bearing field of the record, mutating
// it in place. Fields not in the configured list are never touched. A
// returned error is a transport failure that survived retries (or a cancelled
// context); the caller decides whether to fail the enclosing chunk.
func (p *Processor) Process(ctx context.Context, rec *domain.Record) error {
	for _, field := range p.fields {
		raw, ok := rec.Get(field)
		if !ok {
			continue
		}

		value := domain.ResolveValue(raw)
		switch value.Kind {
		case domain.KindScalar:
			if err := p.processScalar(ctx, rec, field, value.Scalar); err != nil {
				return err
			}
		case domain.KindList:
			if err := p.processList(ctx, rec, field, value.List); err != nil {
				return err
			}
		case domain.KindOther:
			// A configured URL field holding a non-string, non-list value is
			// treated as invalid rather than left alone.
			p.log.Debug("removing field with non-URL value", "field", field)
			rec.Delete(field)
		default:
			return fmt.Errorf("unhandled value kind %v in field %q", value.Kind, field)
		}
	}
	return nil
}

// processScalar handles a single string-valued field.
func (p *Processor) processScalar(ctx context.Context, rec *domain.Record, field, url string) error {
	if !urlcheck.IsValidURL(url) {
		p.log.Debug("removing field with malformed URL", "field", field, "url", url)
		rec.Delete(field)
		return nil
	}

	outcome, err := p.check(ctx, field, url)
	if err != nil {
		return err
	}

	switch {
	case outcome.TimedOut:
		p.timeouts.Add(url)
		if p.policy.DeleteTimeouts {
			p.log.Debug("removing field after timeout", "field", field, "url", url)
			rec.Delete(field)
		}
	case !outcome.Valid:
		p.log.Debug("removing field with unreachable URL",
			"field", field,
			"url", url,
			"status", outcome.StatusCode,
		)
		rec.Delete(field)
	case outcome.Redirected(url):
		if p.policy.FollowRedirects {
			p.log.Debug("rewriting redirected URL",
				"field", field,
				"url", url,
				"target", outcome.ResolvedURL,
			)
			if setErr := rec.SetString(field, outcome.ResolvedURL); setErr != nil {
				return setErr
			}
			p.stats.AddRedirect(field, url, outcome.ResolvedURL)
		}
	}
	return nil
}

// processList handles an array-valued field element by element. Elements
// failing validation or liveness are dropped; an empty result removes the
// field entirely.
func (p *Processor) processList(ctx context.Context, rec *domain.Record, field string, urls []string) error {
	kept := make([]string, 0, len(urls))

	for _, url := range urls {
		if !urlcheck.IsValidURL(url) {
			p.log.Debug("dropping malformed URL from list", "field", field, "url", url)
			continue
		}

		outcome, err := p.check(ctx, field, url)
		if err != nil {
			return err
		}

		switch {
		case outcome.TimedOut:
			p.timeouts.Add(url)
			if !p.policy.DeleteTimeouts {
				kept = append(kept, url)
			}
		case !outcome.Valid:
			p.log.Debug("dropping unreachable URL from list",
				"field", field,
				"url", url,
				"status", outcome.StatusCode,
			)
		case outcome.Redirected(url):
			if p.policy.FollowRedirects {
				kept = append(kept, outcome.ResolvedURL)
				p.stats.AddRedirect(field, url, outcome.ResolvedURL)
			} else {
				kept = append(kept, url)
			}
		default:
			kept = append(kept, url)
		}
	}

	if len(kept) == 0 {
		rec.Delete(field)
		return nil
	}
	return rec.SetStringList(field, kept)
}

// check probes one URL and records its outcome. Transport failures are
// counted before being propagated.
func (p *Processor) check(ctx context.Context, field, url string) (urlcheck.Outcome, error) {
	outcome, err := p.checker.Check(ctx, url)
	if err != nil {
		var netErr *urlcheck.NetworkError
		if errors.As(err, &netErr) {
			p.stats.AddError(field, url)
		}
		return urlcheck.Outcome{}, err
	}

	p.stats.AddURLCheck(field, url, outcome)
	return outcome, nil
}
