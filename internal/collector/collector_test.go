package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/stash4me/internal/types"
)

type fakePage struct {
	IDs    []string
	Cursor string
}

func fakeFetcher(pages []fakePage) FetchFunc[fakePage] {
	i := 0
	return func(_ context.Context, _ string) (fakePage, error) {
		if i >= len(pages) {
			return fakePage{}, nil
		}
		p := pages[i]
		i++
		return p, nil
	}
}

func parseFake(p fakePage) []types.SavedPost {
	posts := make([]types.SavedPost, 0, len(p.IDs))
	for _, id := range p.IDs {
		posts = append(posts, types.SavedPost{ID: id, Platform: types.PlatformReddit})
	}
	return posts
}

func nextFake(p fakePage) string { return p.Cursor }

// fastOpts keeps tests from sleeping on the inter-page limiter.
func fastOpts() Options {
	return Options{PageDelay: time.Microsecond}
}

func collectIDs(posts []types.SavedPost) []string {
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestCollectEndToEnd(t *testing.T) {
	pages := []fakePage{
		{IDs: []string{"a", "b"}, Cursor: "c1"},
		{IDs: []string{"b", "c"}, Cursor: ""},
	}

	fetch := fakeFetcher(pages)
	opts := fastOpts()
	opts.MaxPages = 10

	posts := Collect(context.Background(), fetch, parseFake, nextFake, opts)

	// Dedup across pages, first-seen order preserved, stop on absent cursor.
	assert.Equal(t, []string{"a", "b", "c"}, collectIDs(posts))
}

func TestCollectDedupPreservesOrder(t *testing.T) {
	pages := []fakePage{
		{IDs: []string{"x", "y", "x"}, Cursor: "c1"},
		{IDs: []string{"y", "z", "x"}, Cursor: ""},
	}

	posts := Collect(context.Background(), fakeFetcher(pages), parseFake, nextFake, fastOpts())
	assert.Equal(t, []string{"x", "y", "z"}, collectIDs(posts))
}

func TestCollectBoundedUnderInfinitePagination(t *testing.T) {
	// Adversarial feed: every page has fresh items and a valid cursor.
	n := 0
	fetch := func(_ context.Context, _ string) (fakePage, error) {
		n++
		return fakePage{IDs: []string{string(rune('a' + n))}, Cursor: "more"}, nil
	}

	opts := fastOpts()
	opts.MaxPages = 7

	posts := Collect(context.Background(), fetch, parseFake, nextFake, opts)
	assert.Equal(t, 7, n, "loop must halt within MaxPages fetches")
	assert.Len(t, posts, 7)
}

func TestCollectStopsOnZeroNewItems(t *testing.T) {
	pages := []fakePage{
		{IDs: []string{"a", "b"}, Cursor: "c1"},
		// All duplicates: must stop here even though a cursor is present.
		{IDs: []string{"a", "b"}, Cursor: "c2"},
		{IDs: []string{"never"}, Cursor: ""},
	}

	fetched := 0
	inner := fakeFetcher(pages)
	fetch := func(ctx context.Context, cursor string) (fakePage, error) {
		fetched++
		return inner(ctx, cursor)
	}

	posts := Collect(context.Background(), fetch, parseFake, nextFake, fastOpts())
	assert.Equal(t, 2, fetched)
	assert.Equal(t, []string{"a", "b"}, collectIDs(posts))
}

func TestCollectLimitTruncates(t *testing.T) {
	pages := []fakePage{
		{IDs: []string{"a", "b", "c"}, Cursor: "c1"},
		{IDs: []string{"d", "e"}, Cursor: ""},
	}

	opts := fastOpts()
	opts.Limit = 2

	posts := Collect(context.Background(), fakeFetcher(pages), parseFake, nextFake, opts)
	assert.Equal(t, []string{"a", "b"}, collectIDs(posts))
}

func TestCollectTransportErrorYieldsPartialResults(t *testing.T) {
	calls := 0
	fetch := func(_ context.Context, _ string) (fakePage, error) {
		calls++
		if calls == 1 {
			return fakePage{IDs: []string{"a"}, Cursor: "c1"}, nil
		}
		return fakePage{}, errors.New("HTTP 429")
	}

	posts := Collect(context.Background(), fetch, parseFake, nextFake, fastOpts())
	assert.Equal(t, []string{"a"}, collectIDs(posts), "partial results, no error to the caller")
}

func TestCollectCancellationReturnsPartials(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	fetch := func(_ context.Context, _ string) (fakePage, error) {
		calls++
		if calls == 1 {
			cancel()
			return fakePage{IDs: []string{"a"}, Cursor: "c1"}, nil
		}
		return fakePage{IDs: []string{"b"}, Cursor: ""}, nil
	}

	opts := Options{PageDelay: time.Hour} // limiter would block without cancellation
	posts := Collect(ctx, fetch, parseFake, nextFake, opts)

	require.Equal(t, 1, calls)
	assert.Equal(t, []string{"a"}, collectIDs(posts))
}

func TestCollectEmptyFirstPage(t *testing.T) {
	pages := []fakePage{{IDs: nil, Cursor: "c1"}}
	posts := Collect(context.Background(), fakeFetcher(pages), parseFake, nextFake, fastOpts())
	assert.Empty(t, posts)
}
