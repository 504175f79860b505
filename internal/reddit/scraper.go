// Package reddit collects a user's saved posts and comments, either through
// the hybrid browser-bootstrapped saved.json feed or the formal Reddit API.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/ibeckermayer/stash4me/internal/auth"
	"github.com/ibeckermayer/stash4me/internal/bootstrap"
	"github.com/ibeckermayer/stash4me/internal/collector"
	"github.com/ibeckermayer/stash4me/internal/search"
	"github.com/ibeckermayer/stash4me/internal/types"
)

// CookieDomains are the domains Reddit session cookies live on.
var CookieDomains = []string{".reddit.com", "reddit.com"}

// TargetDomain is the domain cookies are normalized to.
const TargetDomain = ".reddit.com"

const (
	savedURLFormat = "https://www.reddit.com/user/%s/saved.json"
	pageSize       = 100
)

// FilterType restricts collection to a single item kind.
type FilterType string

const (
	FilterNone     FilterType = ""
	FilterPosts    FilterType = "posts"
	FilterComments FilterType = "comments"
)

// Scraper fetches saved items with the hybrid approach: bootstrap headers
// through a real page load, then page through saved.json directly.
type Scraper struct {
	username  string
	creds     auth.Credentials
	boot      *bootstrap.Bootstrapper
	http      *resty.Client
	maxPages  int
	pageDelay time.Duration
	log       *logrus.Logger
}

// NewScraper creates a scraper for the given user. The bootstrapper's
// browser session is owned by the caller.
func NewScraper(username string, creds auth.Credentials, boot *bootstrap.Bootstrapper, maxPages int, pageDelay time.Duration, log *logrus.Logger) *Scraper {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scraper{
		username:  username,
		creds:     creds,
		boot:      boot,
		http:      resty.New().SetTimeout(30 * time.Second),
		maxPages:  maxPages,
		pageDelay: pageDelay,
		log:       log,
	}
}

// GetSaved fetches saved items. The only hard failure is an invalid session
// (bootstrap.ErrUnauthenticated); anything after that returns a partial but
// valid result.
func (s *Scraper) GetSaved(ctx context.Context, limit int, filter FilterType) ([]types.SavedPost, error) {
	target := fmt.Sprintf(savedURLFormat, s.username)

	s.log.WithField("url", target).Info("bootstrapping reddit session")
	sess, err := s.boot.Capture(ctx, s.creds, target, bootstrap.URLContains("saved.json"), 0)
	if err != nil {
		return nil, err
	}

	fetch := func(ctx context.Context, cursor string) (json.RawMessage, error) {
		return s.fetchSavedPage(ctx, sess, cursor)
	}
	parse := func(raw json.RawMessage) []types.SavedPost {
		return parsePage(raw, filter)
	}

	posts := collector.Collect(ctx, fetch, parse, extractAfter, collector.Options{
		Limit:     limit,
		MaxPages:  s.maxPages,
		PageDelay: s.pageDelay,
		Log:       s.log,
	})

	s.log.WithField("total", len(posts)).Info("reddit collection finished")
	return posts, nil
}

// GetSavedPosts fetches only saved submissions.
func (s *Scraper) GetSavedPosts(ctx context.Context, limit int) ([]types.SavedPost, error) {
	return s.GetSaved(ctx, limit, FilterPosts)
}

// GetSavedComments fetches only saved comments.
func (s *Scraper) GetSavedComments(ctx context.Context, limit int) ([]types.SavedPost, error) {
	return s.GetSaved(ctx, limit, FilterComments)
}

// fetchSavedPage issues one direct saved.json call with the captured
// session.
func (s *Scraper) fetchSavedPage(ctx context.Context, sess *bootstrap.CapturedSession, after string) (json.RawMessage, error) {
	req := s.http.R().
		SetContext(ctx).
		SetHeaders(sess.Headers).
		SetCookies(auth.Credentials{Cookies: sess.Cookies}.HTTPCookies()).
		SetQueryParams(map[string]string{
			"limit":    fmt.Sprintf("%d", pageSize),
			"raw_json": "1",
		})
	if after != "" {
		req.SetQueryParam("after", after)
	}

	resp, err := req.Get(fmt.Sprintf(savedURLFormat, s.username))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode(), resp.Status())
	}

	return json.RawMessage(resp.Body()), nil
}

// FilterItems restricts already-collected items to a single kind using the
// metadata discriminant, preserving order.
func FilterItems(posts []types.SavedPost, filter FilterType) []types.SavedPost {
	if filter == FilterNone {
		return posts
	}

	want := "post"
	if filter == FilterComments {
		want = "comment"
	}

	out := make([]types.SavedPost, 0, len(posts))
	for _, p := range posts {
		kind, _ := p.Metadata["kind"].(string)
		if kind == want {
			out = append(out, p)
		}
	}
	return out
}

// SearchSaved filters posts by subreddit (optional) and fuzzy content
// matching.
func SearchSaved(posts []types.SavedPost, queries []string, matchAll bool, fuzzyThreshold, limit int, subreddit string) []types.SavedPost {
	scoped := posts
	if subreddit != "" {
		want := strings.ToLower(subreddit)
		scoped = make([]types.SavedPost, 0, len(posts))
		for _, p := range posts {
			name, _ := p.Metadata["subreddit"].(string)
			if strings.ToLower(name) == want {
				scoped = append(scoped, p)
			}
		}
	}

	return search.Filter(scoped, queries, matchAll, fuzzyThreshold, limit)
}
