package reddit

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ibeckermayer/stash4me/internal/types"
)

// Reddit listing kinds, the explicit discriminant for raw item shapes.
const (
	kindComment    = "t1"
	kindSubmission = "t3"
)

// listing mirrors the relevant parts of Reddit's saved.json response.
type listing struct {
	Data struct {
		After    string         `json:"after"`
		Children []listingChild `json:"children"`
	} `json:"data"`
}

type listingChild struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type submission struct {
	ID             string   `json:"id"`
	Author         string   `json:"author"`
	AuthorFullname string   `json:"author_fullname"`
	Title          string   `json:"title"`
	Selftext       string   `json:"selftext"`
	IsSelf         bool     `json:"is_self"`
	URL            string   `json:"url"`
	Permalink      string   `json:"permalink"`
	Subreddit      string   `json:"subreddit"`
	SubredditID    string   `json:"subreddit_id"`
	Score          int      `json:"score"`
	NumComments    int      `json:"num_comments"`
	CreatedUTC     float64  `json:"created_utc"`
	LinkFlairText  string   `json:"link_flair_text"`
	Over18         bool     `json:"over_18"`
	Preview        *preview `json:"preview"`
}

type preview struct {
	Images []previewImage `json:"images"`
}

type previewImage struct {
	Source      previewSource   `json:"source"`
	Resolutions []previewSource `json:"resolutions"`
}

type previewSource struct {
	URL string `json:"url"`
}

type comment struct {
	ID             string  `json:"id"`
	Author         string  `json:"author"`
	AuthorFullname string  `json:"author_fullname"`
	LinkTitle      string  `json:"link_title"`
	Body           string  `json:"body"`
	Permalink      string  `json:"permalink"`
	Subreddit      string  `json:"subreddit"`
	SubredditID    string  `json:"subreddit_id"`
	Score          int     `json:"score"`
	CreatedUTC     float64 `json:"created_utc"`
	Over18         bool    `json:"over_18"`
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif"}

// parsePage normalizes one raw saved.json page into posts, applying the
// type filter. Items that fail to decode or lack an ID are skipped, never
// aborting the page.
func parsePage(raw json.RawMessage, filter FilterType) []types.SavedPost {
	var page listing
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil
	}

	posts := make([]types.SavedPost, 0, len(page.Data.Children))
	for _, child := range page.Data.Children {
		if filter == FilterPosts && child.Kind != kindSubmission {
			continue
		}
		if filter == FilterComments && child.Kind != kindComment {
			continue
		}

		var post *types.SavedPost
		switch child.Kind {
		case kindSubmission:
			post = normalizeSubmission(child.Data)
		case kindComment:
			post = normalizeComment(child.Data)
		default:
			continue
		}

		if post != nil {
			posts = append(posts, *post)
		}
	}

	return posts
}

// extractAfter pulls the continuation cursor out of a raw page.
func extractAfter(raw json.RawMessage) string {
	var page listing
	if err := json.Unmarshal(raw, &page); err != nil {
		return ""
	}
	return page.Data.After
}

// normalizeSubmission maps a t3 item onto the unified model. Returns nil
// when the item has no ID.
func normalizeSubmission(data json.RawMessage) *types.SavedPost {
	var s submission
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	if s.ID == "" {
		return nil
	}

	media := mediaFromPreview(s.Preview)
	if len(media) == 0 {
		if m := mediaFromURL(s.URL); m != nil {
			media = append(media, *m)
		}
	}

	var content string
	if s.IsSelf {
		content = s.Title
		if s.Selftext != "" {
			content = s.Title + "\n\n" + s.Selftext
		}
	} else {
		content = s.Title + "\n\n" + s.URL
	}

	meta := types.RedditMetadata{
		Kind:          "post",
		Subreddit:     s.Subreddit,
		SubredditID:   s.SubredditID,
		Score:         s.Score,
		NumComments:   s.NumComments,
		IsSelf:        s.IsSelf,
		LinkFlairText: s.LinkFlairText,
		Over18:        s.Over18,
	}

	return &types.SavedPost{
		ID:        s.ID,
		Platform:  types.PlatformReddit,
		Author:    redditAuthor(s.AuthorFullname, s.Author),
		Content:   content,
		URL:       "https://reddit.com" + s.Permalink,
		CreatedAt: epochToUTC(s.CreatedUTC),
		Media:     media,
		Metadata:  meta.Map(),
	}
}

// normalizeComment maps a t1 item onto the unified model, composing the
// content as "[Comment on: {parent title}]\n\n{body}". Returns nil when the
// item has no ID.
func normalizeComment(data json.RawMessage) *types.SavedPost {
	var c comment
	if err := json.Unmarshal(data, &c); err != nil {
		return nil
	}
	if c.ID == "" {
		return nil
	}

	linkTitle := c.LinkTitle
	if linkTitle == "" {
		linkTitle = "Unknown post"
	}

	meta := types.RedditMetadata{
		Kind:        "comment",
		Subreddit:   c.Subreddit,
		SubredditID: c.SubredditID,
		Score:       c.Score,
		IsSelf:      true,
		Over18:      c.Over18,
	}

	return &types.SavedPost{
		ID:        c.ID,
		Platform:  types.PlatformReddit,
		Author:    redditAuthor(c.AuthorFullname, c.Author),
		Content:   "[Comment on: " + linkTitle + "]\n\n" + c.Body,
		URL:       "https://reddit.com" + c.Permalink,
		CreatedAt: epochToUTC(c.CreatedUTC),
		Media:     []types.Media{},
		Metadata:  meta.Map(),
	}
}

// redditAuthor builds the author, substituting sentinels when the account
// was deleted (Reddit omits the fields entirely).
func redditAuthor(fullname, username string) types.Author {
	if username == "" {
		username = types.DeletedAuthorUsername
	}
	if fullname == "" {
		fullname = types.DeletedAuthorID
	}
	return types.Author{
		ID:          fullname,
		Username:    username,
		DisplayName: username,
		Platform:    types.PlatformReddit,
	}
}

// mediaFromPreview scans Reddit's preview structure; entries without a
// resolvable source URL are skipped.
func mediaFromPreview(p *preview) []types.Media {
	if p == nil {
		return nil
	}

	var media []types.Media
	for _, img := range p.Images {
		if img.Source.URL == "" {
			continue
		}
		m := types.Media{
			Type: types.MediaImage,
			URL:  unescapeRedditURL(img.Source.URL),
		}
		if n := len(img.Resolutions); n > 0 {
			m.ThumbnailURL = unescapeRedditURL(img.Resolutions[n-1].URL)
		}
		media = append(media, m)
	}
	return media
}

// mediaFromURL synthesizes a media entry when the post's primary URL points
// directly at an image or gif.
func mediaFromURL(url string) *types.Media {
	for _, ext := range imageExtensions {
		if strings.HasSuffix(url, ext) {
			mediaType := types.MediaImage
			if ext == ".gif" {
				mediaType = types.MediaGIF
			}
			return &types.Media{Type: mediaType, URL: url}
		}
	}
	return nil
}

// unescapeRedditURL undoes the HTML entity escaping Reddit applies to
// preview URLs.
func unescapeRedditURL(u string) string {
	return strings.ReplaceAll(u, "&amp;", "&")
}

// epochToUTC converts a Unix timestamp, falling back to the current time
// when it is absent rather than failing the item.
func epochToUTC(epoch float64) time.Time {
	if epoch <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(int64(epoch), 0).UTC()
}
