package x

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/ibeckermayer/stash4me/internal/auth"
	"github.com/ibeckermayer/stash4me/internal/collector"
	"github.com/ibeckermayer/stash4me/internal/types"
)

const (
	apiBase     = "https://api.twitter.com/2"
	authURL     = "https://twitter.com/i/oauth2/authorize"
	tokenURL    = "https://api.twitter.com/2/oauth2/token"
	oauthScopes = "tweet.read users.read bookmark.read offline.access"

	// apiBookmarkCap is the hard ceiling the v2 bookmarks endpoint serves.
	apiBookmarkCap = 800
	apiPageSize    = 100
)

// OAuthConfig builds the oauth2 configuration for the X v2 API.
func OAuthConfig(clientID, clientSecret, redirectURI string) oauth2.Config {
	return oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       strings.Fields(oauthScopes),
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		},
	}
}

// APIClient talks to the formal X API v2 with OAuth2 user-context tokens.
type APIClient struct {
	oauth  *auth.OAuthHandler
	http   *resty.Client
	userID string
	log    *logrus.Logger
}

// NewAPIClient creates a v2 API client over an OAuth handler with a stored
// token.
func NewAPIClient(oauth *auth.OAuthHandler, log *logrus.Logger) *APIClient {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &APIClient{
		oauth: oauth,
		http:  resty.New().SetBaseURL(apiBase).SetTimeout(30 * time.Second),
		log:   log,
	}
}

// APIUser describes the authenticated user.
type APIUser struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profile_image_url"`
}

type apiTweet struct {
	ID             string `json:"id"`
	Text           string `json:"text"`
	CreatedAt      string `json:"created_at"`
	AuthorID       string `json:"author_id"`
	ConversationID string `json:"conversation_id"`
	PublicMetrics  struct {
		RetweetCount int `json:"retweet_count"`
		LikeCount    int `json:"like_count"`
		ReplyCount   int `json:"reply_count"`
		QuoteCount   int `json:"quote_count"`
	} `json:"public_metrics"`
	Attachments struct {
		MediaKeys []string `json:"media_keys"`
	} `json:"attachments"`
}

type apiMedia struct {
	MediaKey        string `json:"media_key"`
	Type            string `json:"type"`
	URL             string `json:"url"`
	PreviewImageURL string `json:"preview_image_url"`
}

// bookmarksPage is one page of the v2 bookmarks response.
type bookmarksPage struct {
	Data     []apiTweet `json:"data"`
	Includes struct {
		Users []APIUser  `json:"users"`
		Media []apiMedia `json:"media"`
	} `json:"includes"`
	Meta struct {
		NextToken string `json:"next_token"`
	} `json:"meta"`
}

func (c *APIClient) authHeader(ctx context.Context) (string, error) {
	token, err := c.oauth.AccessToken(ctx)
	if err != nil {
		return "", err
	}
	return "Bearer " + token, nil
}

// GetMe returns the authenticated user's information.
func (c *APIClient) GetMe(ctx context.Context) (*APIUser, error) {
	header, err := c.authHeader(ctx)
	if err != nil {
		return nil, err
	}

	var body struct {
		Data APIUser `json:"data"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", header).
		SetQueryParam("user.fields", "id,username,name,profile_image_url").
		SetResult(&body).
		Get("/users/me")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode(), resp.Status())
	}

	return &body.Data, nil
}

// userIDCached resolves and caches the authenticated user's ID.
func (c *APIClient) userIDCached(ctx context.Context) (string, error) {
	if c.userID != "" {
		return c.userID, nil
	}
	me, err := c.GetMe(ctx)
	if err != nil {
		return "", err
	}
	c.userID = me.ID
	return c.userID, nil
}

// GetBookmarksPage fetches a single page of bookmarks.
func (c *APIClient) GetBookmarksPage(ctx context.Context, paginationToken string, maxResults int) (*bookmarksPage, error) {
	userID, err := c.userIDCached(ctx)
	if err != nil {
		return nil, err
	}

	header, err := c.authHeader(ctx)
	if err != nil {
		return nil, err
	}

	if maxResults <= 0 || maxResults > apiPageSize {
		maxResults = apiPageSize
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", header).
		SetQueryParams(map[string]string{
			"max_results":  fmt.Sprintf("%d", maxResults),
			"tweet.fields": "id,text,created_at,author_id,attachments,public_metrics,conversation_id",
			"expansions":   "author_id,attachments.media_keys",
			"user.fields":  "id,username,name,profile_image_url",
			"media.fields": "type,url,preview_image_url",
		})
	if paginationToken != "" {
		req.SetQueryParam("pagination_token", paginationToken)
	}

	resp, err := req.Get("/users/" + userID + "/bookmarks")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode(), resp.Status())
	}

	var page bookmarksPage
	if err := json.Unmarshal(resp.Body(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetBookmarks pages through all bookmarks via the shared collection loop.
// The API caps the feed at 800 items regardless of limit.
func (c *APIClient) GetBookmarks(ctx context.Context, limit int) []types.SavedPost {
	if limit <= 0 || limit > apiBookmarkCap {
		limit = apiBookmarkCap
	}

	fetch := func(ctx context.Context, cursor string) (*bookmarksPage, error) {
		return c.GetBookmarksPage(ctx, cursor, apiPageSize)
	}
	parse := func(page *bookmarksPage) []types.SavedPost {
		return normalizeAPIPage(page)
	}
	next := func(page *bookmarksPage) string {
		return page.Meta.NextToken
	}

	return collector.Collect(ctx, fetch, parse, next, collector.Options{
		Limit: limit,
		Log:   c.log,
	})
}

// normalizeAPIPage maps one v2 response onto the unified model, joining
// tweets against the expansion lookup maps.
func normalizeAPIPage(page *bookmarksPage) []types.SavedPost {
	if page == nil {
		return nil
	}

	users := make(map[string]APIUser, len(page.Includes.Users))
	for _, u := range page.Includes.Users {
		users[u.ID] = u
	}
	media := make(map[string]apiMedia, len(page.Includes.Media))
	for _, m := range page.Includes.Media {
		media[m.MediaKey] = m
	}

	posts := make([]types.SavedPost, 0, len(page.Data))
	for _, tweet := range page.Data {
		if tweet.ID == "" {
			continue
		}
		posts = append(posts, normalizeAPITweet(tweet, users, media))
	}
	return posts
}

func normalizeAPITweet(tweet apiTweet, users map[string]APIUser, media map[string]apiMedia) types.SavedPost {
	user, ok := users[tweet.AuthorID]
	author := types.Author{
		ID:          tweet.AuthorID,
		Username:    user.Username,
		DisplayName: user.Name,
		AvatarURL:   user.ProfileImageURL,
		Platform:    types.PlatformX,
	}
	if !ok || author.Username == "" {
		author.Username = types.DeletedAuthorUsername
		author.DisplayName = types.DeletedAuthorUsername
	}
	if author.ID == "" {
		author.ID = types.DeletedAuthorID
	}

	var mediaList []types.Media
	for _, key := range tweet.Attachments.MediaKeys {
		m, ok := media[key]
		if !ok || m.URL == "" && m.PreviewImageURL == "" {
			continue
		}

		mediaType := types.MediaImage
		switch m.Type {
		case "video":
			mediaType = types.MediaVideo
		case "animated_gif":
			mediaType = types.MediaGIF
		}

		url := m.URL
		if url == "" {
			url = m.PreviewImageURL
		}
		mediaList = append(mediaList, types.Media{
			Type:         mediaType,
			URL:          url,
			ThumbnailURL: m.PreviewImageURL,
		})
	}

	createdAt, err := time.Parse(time.RFC3339, tweet.CreatedAt)
	if err != nil {
		createdAt = time.Now()
	}

	meta := types.XMetadata{
		RetweetCount:   tweet.PublicMetrics.RetweetCount,
		LikeCount:      tweet.PublicMetrics.LikeCount,
		ReplyCount:     tweet.PublicMetrics.ReplyCount,
		QuoteCount:     tweet.PublicMetrics.QuoteCount,
		ConversationID: tweet.ConversationID,
	}

	return types.SavedPost{
		ID:        tweet.ID,
		Platform:  types.PlatformX,
		Author:    author,
		Content:   tweet.Text,
		URL:       "https://x.com/" + author.Username + "/status/" + tweet.ID,
		CreatedAt: createdAt.UTC(),
		Media:     mediaList,
		Metadata:  meta.Map(),
	}
}
