// Package x collects a user's X bookmarks, either through the hybrid
// browser-bootstrapped GraphQL feed or the formal v2 API.
package x

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/ibeckermayer/stash4me/internal/auth"
	"github.com/ibeckermayer/stash4me/internal/bootstrap"
	"github.com/ibeckermayer/stash4me/internal/collector"
	"github.com/ibeckermayer/stash4me/internal/search"
	"github.com/ibeckermayer/stash4me/internal/types"
)

// CookieDomains are the domains X session cookies live on.
var CookieDomains = []string{".x.com", "x.com", ".twitter.com", "twitter.com"}

// TargetDomain is the domain cookies are normalized to.
const TargetDomain = ".x.com"

const (
	bookmarksURL    = "https://x.com/i/bookmarks"
	graphqlEndpoint = "https://x.com/i/api/graphql/E6jlrZG4703s0mcA9DfNKQ/Bookmarks"
	graphqlCount    = 800
)

// graphqlFeatures is the feature-flag payload the Bookmarks query requires.
// The set drifts with X's frontend; a stale set degrades the response rather
// than hard-failing.
const graphqlFeatures = `{
	"rweb_video_screen_enabled": false,
	"profile_label_improvements_pcf_label_in_post_enabled": true,
	"responsive_web_profile_redirect_enabled": false,
	"rweb_tipjar_consumption_enabled": true,
	"verified_phone_label_enabled": false,
	"creator_subscriptions_tweet_preview_api_enabled": true,
	"responsive_web_graphql_timeline_navigation_enabled": true,
	"responsive_web_graphql_skip_user_profile_image_extensions_enabled": false,
	"premium_content_api_read_enabled": false,
	"communities_web_enable_tweet_community_results_fetch": true,
	"c9s_tweet_anatomy_moderator_badge_enabled": true,
	"responsive_web_grok_analyze_button_fetch_trends_enabled": false,
	"responsive_web_grok_analyze_post_followups_enabled": true,
	"responsive_web_jetfuel_frame": true,
	"responsive_web_grok_share_attachment_enabled": true,
	"articles_preview_enabled": true,
	"responsive_web_edit_tweet_api_enabled": true,
	"graphql_is_translatable_rweb_tweet_is_translatable_enabled": true,
	"view_counts_everywhere_api_enabled": true,
	"longform_notetweets_consumption_enabled": true,
	"responsive_web_twitter_article_tweet_consumption_enabled": true,
	"tweet_awards_web_tipping_enabled": false,
	"responsive_web_grok_show_grok_translated_post": true,
	"responsive_web_grok_analysis_button_from_backend": true,
	"creator_subscriptions_quote_tweet_preview_enabled": false,
	"freedom_of_speech_not_reach_fetch_enabled": true,
	"standardized_nudges_misinfo": true,
	"tweet_with_visibility_results_prefer_gql_limited_actions_policy_enabled": true,
	"longform_notetweets_rich_text_read_enabled": true,
	"longform_notetweets_inline_media_enabled": true,
	"responsive_web_grok_image_annotation_enabled": true,
	"responsive_web_grok_imagine_annotation_enabled": true,
	"responsive_web_grok_community_note_auto_translation_is_enabled": false,
	"responsive_web_enhance_cards_enabled": false
}`

// Scraper fetches bookmarks with the hybrid approach: bootstrap headers by
// loading the bookmarks page, then page through the GraphQL endpoint
// directly.
type Scraper struct {
	creds     auth.Credentials
	boot      *bootstrap.Bootstrapper
	http      *resty.Client
	maxPages  int
	pageDelay time.Duration
	log       *logrus.Logger
}

// NewScraper creates a bookmarks scraper. The bootstrapper's browser session
// is owned by the caller.
func NewScraper(creds auth.Credentials, boot *bootstrap.Bootstrapper, maxPages int, pageDelay time.Duration, log *logrus.Logger) *Scraper {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scraper{
		creds:     creds,
		boot:      boot,
		http:      resty.New().SetTimeout(30 * time.Second),
		maxPages:  maxPages,
		pageDelay: pageDelay,
		log:       log,
	}
}

// GetBookmarks fetches bookmarked tweets. The only hard failure is an
// invalid session (bootstrap.ErrUnauthenticated); anything after that
// returns a partial but valid result.
func (s *Scraper) GetBookmarks(ctx context.Context, limit int) ([]types.SavedPost, error) {
	s.log.WithField("url", bookmarksURL).Info("bootstrapping x session")
	sess, err := s.boot.Capture(ctx, s.creds, bookmarksURL, bootstrap.URLContains("graphql", "Bookmarks"), 0)
	if err != nil {
		return nil, err
	}
	if sess.Synthesized {
		// The GraphQL call needs the captured csrf/authorization headers;
		// synthesized ones will likely 401, which the collector treats as a
		// terminal-but-partial condition.
		s.log.Warn("proceeding with synthesized headers, capture may be degraded")
	}

	fetch := func(ctx context.Context, cursor string) (json.RawMessage, error) {
		return s.fetchBookmarksPage(ctx, sess, cursor)
	}

	posts := collector.Collect(ctx, fetch, parseTimeline, extractCursor, collector.Options{
		Limit:     limit,
		MaxPages:  s.maxPages,
		PageDelay: s.pageDelay,
		Log:       s.log,
	})

	s.log.WithField("total", len(posts)).Info("x collection finished")
	return posts, nil
}

// fetchBookmarksPage issues one direct GraphQL call with the captured
// session.
func (s *Scraper) fetchBookmarksPage(ctx context.Context, sess *bootstrap.CapturedSession, cursor string) (json.RawMessage, error) {
	variables := map[string]any{
		"count":                  graphqlCount,
		"includePromotedContent": true,
	}
	if cursor != "" {
		variables["cursor"] = cursor
	}

	variablesJSON, err := json.Marshal(variables)
	if err != nil {
		return nil, err
	}

	resp, err := s.http.R().
		SetContext(ctx).
		SetHeaders(sess.Headers).
		SetCookies(auth.Credentials{Cookies: sess.Cookies}.HTTPCookies()).
		SetQueryParams(map[string]string{
			"variables": string(variablesJSON),
			"features":  graphqlFeatures,
		}).
		Get(graphqlEndpoint)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode(), resp.Status())
	}

	return json.RawMessage(resp.Body()), nil
}

// SearchBookmarks filters posts by fuzzy content matching.
func SearchBookmarks(posts []types.SavedPost, queries []string, matchAll bool, fuzzyThreshold, limit int) []types.SavedPost {
	return search.Filter(posts, queries, matchAll, fuzzyThreshold, limit)
}
