package reddit

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	goreddit "github.com/vartanbeno/go-reddit/v2/reddit"

	"github.com/ibeckermayer/stash4me/internal/collector"
	"github.com/ibeckermayer/stash4me/internal/types"
)

const defaultUserAgent = "stash4me/0.1"

// APIClient fetches saved items through the formal Reddit API instead of the
// hybrid browser path.
type APIClient struct {
	client   *goreddit.Client
	username string
	log      *logrus.Logger
}

// NewAPIClient creates a client authenticated as a script app.
func NewAPIClient(clientID, clientSecret, username, password string, log *logrus.Logger) (*APIClient, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	client, err := goreddit.NewClient(goreddit.Credentials{
		ID:       clientID,
		Secret:   clientSecret,
		Username: username,
		Password: password,
	}, goreddit.WithHTTPClient(httpClient), goreddit.WithUserAgent(defaultUserAgent))
	if err != nil {
		return nil, fmt.Errorf("failed to create reddit client: %w", err)
	}

	return &APIClient{client: client, username: username, log: log}, nil
}

// UserInfo describes the authenticated user.
type UserInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Karma    int    `json:"karma"`
	Created  string `json:"created_utc"`
}

// GetMe returns information about the authenticated user.
func (c *APIClient) GetMe(ctx context.Context) (*UserInfo, error) {
	user, _, err := c.client.User.Get(ctx, c.username)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	info := &UserInfo{
		ID:       user.ID,
		Username: user.Name,
		Karma:    user.PostKarma + user.CommentKarma,
	}
	if user.Created != nil {
		info.Created = user.Created.Time.UTC().Format(time.RFC3339)
	}
	return info, nil
}

// savedPage is one page of the saved listing, already typed by the client
// library.
type savedPage struct {
	posts    []*goreddit.Post
	comments []*goreddit.Comment
	after    string
}

// GetSaved pages through the saved listing via the same collection loop the
// hybrid scraper uses; the cursor is the listing's "after" fullname.
func (c *APIClient) GetSaved(ctx context.Context, limit int, filter FilterType) []types.SavedPost {
	fetch := func(ctx context.Context, cursor string) (savedPage, error) {
		posts, comments, resp, err := c.client.User.Saved(ctx, &goreddit.ListUserOverviewOptions{
			ListOptions: goreddit.ListOptions{Limit: pageSize, After: cursor},
		})
		if err != nil {
			return savedPage{}, err
		}
		return savedPage{posts: posts, comments: comments, after: resp.After}, nil
	}

	parse := func(page savedPage) []types.SavedPost {
		out := make([]types.SavedPost, 0, len(page.posts)+len(page.comments))
		if filter != FilterComments {
			for _, p := range page.posts {
				if p == nil || p.ID == "" {
					continue
				}
				out = append(out, normalizeAPIPost(p))
			}
		}
		if filter != FilterPosts {
			for _, cm := range page.comments {
				if cm == nil || cm.ID == "" {
					continue
				}
				out = append(out, normalizeAPIComment(cm))
			}
		}
		return out
	}

	next := func(page savedPage) string { return page.after }

	return collector.Collect(ctx, fetch, parse, next, collector.Options{
		Limit: limit,
		Log:   c.log,
	})
}

// normalizeAPIPost maps a typed API submission onto the unified model.
func normalizeAPIPost(p *goreddit.Post) types.SavedPost {
	var content string
	if p.IsSelfPost {
		content = p.Title
		if p.Body != "" {
			content = p.Title + "\n\n" + p.Body
		}
	} else {
		content = p.Title + "\n\n" + p.URL
	}

	var media []types.Media
	if m := mediaFromURL(p.URL); m != nil {
		media = append(media, *m)
	}

	meta := types.RedditMetadata{
		Kind:        "post",
		Subreddit:   p.SubredditName,
		SubredditID: p.SubredditID,
		Score:       p.Score,
		NumComments: p.NumberOfComments,
		IsSelf:      p.IsSelfPost,
		Over18:      p.NSFW,
	}

	return types.SavedPost{
		ID:        p.ID,
		Platform:  types.PlatformReddit,
		Author:    redditAuthor(p.AuthorID, p.Author),
		Content:   content,
		URL:       permalinkURL(p.Permalink),
		CreatedAt: timestampToUTC(p.Created),
		Media:     media,
		Metadata:  meta.Map(),
	}
}

// normalizeAPIComment maps a typed API comment onto the unified model.
func normalizeAPIComment(c *goreddit.Comment) types.SavedPost {
	linkTitle := c.PostTitle
	if linkTitle == "" {
		linkTitle = "Unknown post"
	}

	meta := types.RedditMetadata{
		Kind:        "comment",
		Subreddit:   c.SubredditName,
		SubredditID: c.SubredditID,
		Score:       c.Score,
		IsSelf:      true,
	}

	return types.SavedPost{
		ID:        c.ID,
		Platform:  types.PlatformReddit,
		Author:    redditAuthor(c.AuthorID, c.Author),
		Content:   "[Comment on: " + linkTitle + "]\n\n" + c.Body,
		URL:       permalinkURL(c.Permalink),
		CreatedAt: timestampToUTC(c.Created),
		Media:     []types.Media{},
		Metadata:  meta.Map(),
	}
}

func permalinkURL(permalink string) string {
	if strings.HasPrefix(permalink, "http") {
		return permalink
	}
	return "https://reddit.com" + permalink
}

func timestampToUTC(ts *goreddit.Timestamp) time.Time {
	if ts == nil || ts.Time.IsZero() {
		return time.Now().UTC()
	}
	return ts.Time.UTC()
}
