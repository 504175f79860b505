// Package mcpserver exposes the collected feeds to MCP hosts over stdio.
// Collection is lazy: the first tool call for a platform fills the in-memory
// cache, later calls serve from it until a caller forces a refresh.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/ibeckermayer/stash4me/internal/bootstrap"
	"github.com/ibeckermayer/stash4me/internal/cache"
	"github.com/ibeckermayer/stash4me/internal/config"
	"github.com/ibeckermayer/stash4me/internal/reddit"
	"github.com/ibeckermayer/stash4me/internal/search"
	"github.com/ibeckermayer/stash4me/internal/types"
)

const (
	serverName    = "stash4me"
	serverVersion = "0.1.0"
)

// Fetcher collects a platform's full feed. A zero limit means everything the
// source will serve.
type Fetcher func(ctx context.Context, limit int) ([]types.SavedPost, error)

// Server is the MCP surface over the reddit and x collectors.
type Server struct {
	mcp   *server.MCPServer
	cfg   *config.Config
	store *cache.Cache
	log   *logrus.Logger

	// One in-flight collection per platform; concurrent tool calls for the
	// same platform share the result through the cache.
	mu map[types.Platform]*sync.Mutex

	fetch map[types.Platform]Fetcher
}

// New wires the tools and resources onto a fresh MCP server. The fetchers own
// their browser sessions and credentials; the server only orchestrates.
func New(cfg *config.Config, store *cache.Cache, fetchReddit, fetchX Fetcher, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}

	s := &Server{
		cfg:   cfg,
		store: store,
		log:   log,
		mu: map[types.Platform]*sync.Mutex{
			types.PlatformReddit: {},
			types.PlatformX:      {},
		},
		fetch: map[types.Platform]Fetcher{
			types.PlatformReddit: fetchReddit,
			types.PlatformX:      fetchX,
		},
	}

	s.mcp = server.NewMCPServer(serverName, serverVersion,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
	)

	s.registerTools()
	s.registerResources()
	return s
}

// Serve runs the stdio transport until the host disconnects. Logging must
// stay on stderr; stdout belongs to the protocol.
func (s *Server) Serve() error {
	s.log.Info("starting mcp server on stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("get_reddit_saved",
		mcp.WithDescription("Get the user's saved Reddit posts and comments."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of items to return (0 = all).")),
		mcp.WithBoolean("force_refresh", mcp.Description("Re-collect from Reddit instead of serving the cache.")),
	), s.handleGetReddit(reddit.FilterNone))

	s.mcp.AddTool(mcp.NewTool("get_reddit_saved_posts",
		mcp.WithDescription("Get only the user's saved Reddit posts (submissions)."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of items to return (0 = all).")),
		mcp.WithBoolean("force_refresh", mcp.Description("Re-collect from Reddit instead of serving the cache.")),
	), s.handleGetReddit(reddit.FilterPosts))

	s.mcp.AddTool(mcp.NewTool("get_reddit_saved_comments",
		mcp.WithDescription("Get only the user's saved Reddit comments."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of items to return (0 = all).")),
		mcp.WithBoolean("force_refresh", mcp.Description("Re-collect from Reddit instead of serving the cache.")),
	), s.handleGetReddit(reddit.FilterComments))

	s.mcp.AddTool(mcp.NewTool("search_reddit_saved",
		mcp.WithDescription("Search the user's saved Reddit items with fuzzy matching."),
		mcp.WithArray("queries",
			mcp.Required(),
			mcp.Description("Search terms. Multi-word terms match word by word."),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithBoolean("match_all", mcp.Description("Require every term to match (AND) instead of any (OR).")),
		mcp.WithNumber("fuzzy_threshold", mcp.Description("Typo tolerance from 0 (exact) to 10 (very loose).")),
		mcp.WithString("subreddit", mcp.Description("Restrict results to one subreddit.")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (0 = all).")),
		mcp.WithBoolean("force_refresh", mcp.Description("Re-collect from Reddit instead of serving the cache.")),
	), s.handleSearchReddit)

	s.mcp.AddTool(mcp.NewTool("get_x_bookmarks",
		mcp.WithDescription("Get the user's X (Twitter) bookmarks."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of items to return (0 = all).")),
		mcp.WithBoolean("force_refresh", mcp.Description("Re-collect from X instead of serving the cache.")),
	), s.handleGetX)

	s.mcp.AddTool(mcp.NewTool("search_x_bookmarks",
		mcp.WithDescription("Search the user's X bookmarks with fuzzy matching."),
		mcp.WithArray("queries",
			mcp.Required(),
			mcp.Description("Search terms. Multi-word terms match word by word."),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithBoolean("match_all", mcp.Description("Require every term to match (AND) instead of any (OR).")),
		mcp.WithNumber("fuzzy_threshold", mcp.Description("Typo tolerance from 0 (exact) to 10 (very loose).")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (0 = all).")),
		mcp.WithBoolean("force_refresh", mcp.Description("Re-collect from X instead of serving the cache.")),
	), s.handleSearchX)
}

func (s *Server) registerResources() {
	s.mcp.AddResource(mcp.NewResource("reddit://saved", "Reddit saved items",
		mcp.WithResourceDescription("All saved Reddit posts and comments, cached."),
		mcp.WithMIMEType("application/json"),
	), s.resourceHandler(types.PlatformReddit, reddit.FilterNone))

	s.mcp.AddResource(mcp.NewResource("reddit://saved/posts", "Reddit saved posts",
		mcp.WithResourceDescription("Only saved Reddit submissions, cached."),
		mcp.WithMIMEType("application/json"),
	), s.resourceHandler(types.PlatformReddit, reddit.FilterPosts))

	s.mcp.AddResource(mcp.NewResource("x://bookmarks", "X bookmarks",
		mcp.WithResourceDescription("All X bookmarks, cached."),
		mcp.WithMIMEType("application/json"),
	), s.resourceHandler(types.PlatformX, reddit.FilterNone))
}

// collect serves a platform's feed from the cache, collecting on a cold cache
// or when forced. Concurrent callers for one platform serialize on its mutex.
func (s *Server) collect(ctx context.Context, platform types.Platform, force bool) ([]types.SavedPost, error) {
	mu := s.mu[platform]
	mu.Lock()
	defer mu.Unlock()

	if !force {
		posts, err := s.store.Get(platform)
		if err != nil {
			return nil, err
		}
		if len(posts) > 0 {
			s.log.WithFields(logrus.Fields{"platform": platform, "count": len(posts)}).Debug("serving from cache")
			return posts, nil
		}
	}

	s.log.WithField("platform", platform).Info("collecting fresh feed")
	posts, err := s.fetch[platform](ctx, 0)
	if err != nil {
		return nil, err
	}

	if err := s.store.Replace(platform, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *Server) handleGetReddit(filter reddit.FilterType) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		posts, err := s.collect(ctx, types.PlatformReddit, req.GetBool("force_refresh", false))
		if err != nil {
			return s.toolError(types.PlatformReddit, err), nil
		}

		posts = reddit.FilterItems(posts, filter)
		return jsonResult(truncate(posts, req.GetInt("limit", 0)))
	}
}

func (s *Server) handleSearchReddit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	queries := stringArg(req, "queries")
	if len(queries) == 0 {
		return mcp.NewToolResultError("queries must be a non-empty array of strings"), nil
	}

	posts, err := s.collect(ctx, types.PlatformReddit, req.GetBool("force_refresh", false))
	if err != nil {
		return s.toolError(types.PlatformReddit, err), nil
	}

	results := reddit.SearchSaved(posts, queries,
		req.GetBool("match_all", s.cfg.Search.MatchAll),
		req.GetInt("fuzzy_threshold", s.cfg.Search.FuzzyThreshold),
		req.GetInt("limit", 0),
		req.GetString("subreddit", ""),
	)
	return jsonResult(results)
}

func (s *Server) handleGetX(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	posts, err := s.collect(ctx, types.PlatformX, req.GetBool("force_refresh", false))
	if err != nil {
		return s.toolError(types.PlatformX, err), nil
	}
	return jsonResult(truncate(posts, req.GetInt("limit", 0)))
}

func (s *Server) handleSearchX(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	queries := stringArg(req, "queries")
	if len(queries) == 0 {
		return mcp.NewToolResultError("queries must be a non-empty array of strings"), nil
	}

	posts, err := s.collect(ctx, types.PlatformX, req.GetBool("force_refresh", false))
	if err != nil {
		return s.toolError(types.PlatformX, err), nil
	}

	results := search.Filter(posts, queries,
		req.GetBool("match_all", s.cfg.Search.MatchAll),
		req.GetInt("fuzzy_threshold", s.cfg.Search.FuzzyThreshold),
		req.GetInt("limit", 0),
	)
	return jsonResult(results)
}

func (s *Server) resourceHandler(platform types.Platform, filter reddit.FilterType) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		posts, err := s.collect(ctx, platform, false)
		if err != nil {
			return nil, err
		}

		posts = reddit.FilterItems(posts, filter)
		payload, err := json.MarshalIndent(posts, "", "  ")
		if err != nil {
			return nil, err
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(payload),
			},
		}, nil
	}
}

// toolError maps collection failures onto actionable tool errors; an expired
// session is the one condition the caller can fix.
func (s *Server) toolError(platform types.Platform, err error) *mcp.CallToolResult {
	if errors.Is(err, bootstrap.ErrUnauthenticated) {
		return mcp.NewToolResultError(fmt.Sprintf(
			"%s session is missing or expired: run `stash4me login %s` or point %s_COOKIES_FILE at a fresh cookie export",
			platform, platform, platformEnvPrefix(platform)))
	}
	s.log.WithError(err).WithField("platform", platform).Error("collection failed")
	return mcp.NewToolResultError(fmt.Sprintf("failed to collect %s feed: %v", platform, err))
}

func platformEnvPrefix(platform types.Platform) string {
	if platform == types.PlatformX {
		return "X"
	}
	return "REDDIT"
}

func jsonResult(posts []types.SavedPost) (*mcp.CallToolResult, error) {
	if posts == nil {
		posts = []types.SavedPost{}
	}
	payload, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func truncate(posts []types.SavedPost, limit int) []types.SavedPost {
	if limit > 0 && len(posts) > limit {
		return posts[:limit]
	}
	return posts
}

// stringArg reads an array-of-strings tool argument, tolerating the untyped
// []any the JSON decoder produces.
func stringArg(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key]
	if !ok {
		return nil
	}

	items, ok := raw.([]any)
	if !ok {
		if single, ok := raw.(string); ok && single != "" {
			return []string{single}
		}
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
