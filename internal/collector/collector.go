// Package collector implements the cursor-based pagination loop shared by all
// platform scrapers: fetch a page, normalize it, deduplicate by item ID, and
// stop on well-defined termination conditions.
package collector

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ibeckermayer/stash4me/internal/types"
)

// DefaultMaxPages bounds a collection run even against an API that always
// returns a valid cursor.
const DefaultMaxPages = 50

// DefaultPageDelay is the backoff between consecutive page fetches.
const DefaultPageDelay = 500 * time.Millisecond

// FetchFunc fetches one page of the feed. An empty cursor requests the first
// page.
type FetchFunc[P any] func(ctx context.Context, cursor string) (P, error)

// ParseFunc normalizes a raw page into zero or more posts. Malformed items
// must be skipped by the parser, never surfaced as an error.
type ParseFunc[P any] func(page P) []types.SavedPost

// CursorFunc extracts the continuation cursor from a page. An empty string
// means no more pages.
type CursorFunc[P any] func(page P) string

// Options are the safety bounds for one collection run.
type Options struct {
	// Limit caps the number of returned posts. 0 means no cap.
	Limit int
	// MaxPages is the hard iteration bound. 0 means DefaultMaxPages.
	MaxPages int
	// PageDelay is the minimum spacing between page fetches. 0 means
	// DefaultPageDelay.
	PageDelay time.Duration
	// Log defaults to the standard logrus logger.
	Log *logrus.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.PageDelay <= 0 {
		o.PageDelay = DefaultPageDelay
	}
	if o.Log == nil {
		o.Log = logrus.StandardLogger()
	}
	return o
}

// Collect drives the pagination loop until one of: the page budget is spent,
// the limit is reached, a page yields zero new items, the cursor runs out, or
// a fetch fails. Fetch failures and cancellation are terminal for the run but
// never an error to the caller: whatever was collected so far is returned.
// Page fetches are strictly sequential; each cursor depends on the previous
// response.
func Collect[P any](ctx context.Context, fetch FetchFunc[P], parse ParseFunc[P], next CursorFunc[P], opts Options) []types.SavedPost {
	opts = opts.withDefaults()
	log := opts.Log

	limiter := rate.NewLimiter(rate.Every(opts.PageDelay), 1)

	results := make([]types.SavedPost, 0)
	seenIDs := make(map[string]struct{})
	cursor := ""
	pageCount := 0

	for pageCount < opts.MaxPages && (opts.Limit == 0 || len(results) < opts.Limit) {
		pageCount++

		if err := limiter.Wait(ctx); err != nil {
			log.WithError(err).Warn("collection cancelled, returning partial results")
			break
		}

		page, err := fetch(ctx, cursor)
		if err != nil {
			// Fetch failures are terminal, not retried: the API surface is
			// undocumented and rate-limited.
			log.WithError(err).WithField("page", pageCount).Warn("page fetch failed, returning partial results")
			break
		}

		added := 0
		for _, post := range parse(page) {
			if _, ok := seenIDs[post.ID]; ok {
				continue
			}
			seenIDs[post.ID] = struct{}{}
			results = append(results, post)
			added++
		}

		log.WithFields(logrus.Fields{
			"page":  pageCount,
			"added": added,
			"total": len(results),
		}).Info("collected page")

		if added == 0 {
			// The platform is repeating content; treat as end-of-data.
			log.Info("no new items on page, stopping")
			break
		}

		if opts.Limit > 0 && len(results) >= opts.Limit {
			log.WithField("limit", opts.Limit).Info("reached limit")
			break
		}

		cursor = next(page)
		if cursor == "" {
			log.Info("no more pages")
			break
		}
	}

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	return results
}
