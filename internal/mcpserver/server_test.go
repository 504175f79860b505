package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/stash4me/internal/bootstrap"
	"github.com/ibeckermayer/stash4me/internal/cache"
	"github.com/ibeckermayer/stash4me/internal/config"
	"github.com/ibeckermayer/stash4me/internal/types"
)

func redditItem(id, kind, content string) types.SavedPost {
	return types.SavedPost{
		ID:       id,
		Platform: types.PlatformReddit,
		Content:  content,
		Metadata: map[string]any{"kind": kind, "subreddit": "golang"},
	}
}

// countingFetcher returns canned pages and counts invocations.
type countingFetcher struct {
	posts []types.SavedPost
	err   error
	calls int
}

func (f *countingFetcher) fetch(ctx context.Context, limit int) ([]types.SavedPost, error) {
	f.calls++
	return f.posts, f.err
}

func newTestServer(t *testing.T, redditF, xF *countingFetcher) *Server {
	t.Helper()
	store, err := cache.New()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return New(config.Default(), store, redditF.fetch, xF.fetch, nil)
}

func TestCollectFillsAndServesCache(t *testing.T) {
	redditF := &countingFetcher{posts: []types.SavedPost{
		redditItem("a", "post", "first"),
		redditItem("b", "comment", "second"),
	}}
	srv := newTestServer(t, redditF, &countingFetcher{})

	posts, err := srv.collect(context.Background(), types.PlatformReddit, false)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, 1, redditF.calls)

	// Warm cache: no second fetch.
	posts, err = srv.collect(context.Background(), types.PlatformReddit, false)
	require.NoError(t, err)
	assert.Len(t, posts, 2)
	assert.Equal(t, "a", posts[0].ID, "cache preserves first-seen order")
	assert.Equal(t, 1, redditF.calls)
}

func TestCollectForceRefresh(t *testing.T) {
	redditF := &countingFetcher{posts: []types.SavedPost{redditItem("a", "post", "x")}}
	srv := newTestServer(t, redditF, &countingFetcher{})

	_, err := srv.collect(context.Background(), types.PlatformReddit, false)
	require.NoError(t, err)

	redditF.posts = []types.SavedPost{redditItem("b", "post", "y")}
	posts, err := srv.collect(context.Background(), types.PlatformReddit, true)
	require.NoError(t, err)
	assert.Equal(t, 2, redditF.calls)
	require.Len(t, posts, 1)
	assert.Equal(t, "b", posts[0].ID, "refresh replaces the cache")
}

func TestCollectPlatformsAreIndependent(t *testing.T) {
	redditF := &countingFetcher{posts: []types.SavedPost{redditItem("r1", "post", "reddit")}}
	xF := &countingFetcher{posts: []types.SavedPost{{ID: "x1", Platform: types.PlatformX, Content: "tweet"}}}
	srv := newTestServer(t, redditF, xF)

	_, err := srv.collect(context.Background(), types.PlatformReddit, false)
	require.NoError(t, err)

	posts, err := srv.collect(context.Background(), types.PlatformX, false)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "x1", posts[0].ID)
	assert.Equal(t, 1, redditF.calls)
	assert.Equal(t, 1, xF.calls)
}

func TestCollectFetchErrorLeavesCacheCold(t *testing.T) {
	redditF := &countingFetcher{err: errors.New("boom")}
	srv := newTestServer(t, redditF, &countingFetcher{})

	_, err := srv.collect(context.Background(), types.PlatformReddit, false)
	require.Error(t, err)

	// A later call retries instead of serving an empty cache as truth.
	redditF.err = nil
	redditF.posts = []types.SavedPost{redditItem("a", "post", "x")}
	posts, err := srv.collect(context.Background(), types.PlatformReddit, false)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, 2, redditF.calls)
}

func TestToolErrorUnauthenticatedIsActionable(t *testing.T) {
	srv := newTestServer(t, &countingFetcher{}, &countingFetcher{})

	result := srv.toolError(types.PlatformReddit, fmt.Errorf("capture: %w", bootstrap.ErrUnauthenticated))
	require.True(t, result.IsError)
	text := resultText(t, result)
	assert.Contains(t, text, "stash4me login reddit")
	assert.Contains(t, text, "REDDIT_COOKIES_FILE")

	result = srv.toolError(types.PlatformX, errors.New("connection reset"))
	require.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "failed to collect x feed")
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return text.Text
}

func TestTruncate(t *testing.T) {
	posts := []types.SavedPost{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	assert.Len(t, truncate(posts, 2), 2)
	assert.Len(t, truncate(posts, 0), 3)
	assert.Len(t, truncate(posts, 10), 3)
}

func TestStringArg(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{
		"queries": []any{"golang", "generics", 42},
		"single":  "just one",
		"bad":     123,
	}

	assert.Equal(t, []string{"golang", "generics"}, stringArg(req, "queries"))
	assert.Equal(t, []string{"just one"}, stringArg(req, "single"))
	assert.Nil(t, stringArg(req, "bad"))
	assert.Nil(t, stringArg(req, "missing"))
}
