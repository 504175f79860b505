package types

import "time"

// Platform identifies the source platform of a saved item.
type Platform string

const (
	PlatformReddit Platform = "reddit"
	PlatformX      Platform = "x"
)

// MediaType classifies an attached asset.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaGIF   MediaType = "gif"
)

// Sentinel values for authors deleted on the source platform. An author is
// never absent from a SavedPost; deletion is represented by these values.
const (
	DeletedAuthorID       = "deleted"
	DeletedAuthorUsername = "[deleted]"
)

// Author is the platform-qualified identity of a post's author.
type Author struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	DisplayName string   `json:"display_name"`
	AvatarURL   string   `json:"avatar_url,omitempty"`
	Platform    Platform `json:"platform"`
}

// Media is one asset attached to a post, in source order.
type Media struct {
	Type         MediaType `json:"type"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
}

// SavedPost is the unified model for a saved item across all platforms.
// ID+Platform uniquely identify a post within one collection run. Content is
// never null (empty string allowed). Constructed once by a normalizer and
// immutable afterwards.
type SavedPost struct {
	ID        string         `json:"id"`
	Platform  Platform       `json:"platform"`
	Author    Author         `json:"author"`
	Content   string         `json:"content"`
	URL       string         `json:"url"`
	CreatedAt time.Time      `json:"created_at"`
	SavedAt   *time.Time     `json:"saved_at,omitempty"`
	Media     []Media        `json:"media,omitempty"`
	Metadata  map[string]any `json:"metadata"`
}

// RedditMetadata holds Reddit-specific fields copied into SavedPost.Metadata.
// Kind discriminates submissions ("post") from comments ("comment").
type RedditMetadata struct {
	Kind          string `json:"kind"`
	Subreddit     string `json:"subreddit"`
	SubredditID   string `json:"subreddit_id"`
	Score         int    `json:"score"`
	NumComments   int    `json:"num_comments"`
	IsSelf        bool   `json:"is_self"`
	LinkFlairText string `json:"link_flair_text,omitempty"`
	Over18        bool   `json:"over_18"`
}

// Map flattens the metadata for SavedPost.Metadata.
func (m RedditMetadata) Map() map[string]any {
	out := map[string]any{
		"kind":         m.Kind,
		"subreddit":    m.Subreddit,
		"subreddit_id": m.SubredditID,
		"score":        m.Score,
		"num_comments": m.NumComments,
		"is_self":      m.IsSelf,
		"over_18":      m.Over18,
	}
	if m.LinkFlairText != "" {
		out["link_flair_text"] = m.LinkFlairText
	}
	return out
}

// XMetadata holds X-specific engagement fields copied into SavedPost.Metadata.
// Absent counters are zero, never null.
type XMetadata struct {
	RetweetCount   int    `json:"retweet_count"`
	LikeCount      int    `json:"like_count"`
	ReplyCount     int    `json:"reply_count"`
	QuoteCount     int    `json:"quote_count"`
	ViewCount      int    `json:"view_count"`
	IsRetweet      bool   `json:"is_retweet"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Map flattens the metadata for SavedPost.Metadata.
func (m XMetadata) Map() map[string]any {
	out := map[string]any{
		"retweet_count": m.RetweetCount,
		"like_count":    m.LikeCount,
		"reply_count":   m.ReplyCount,
		"quote_count":   m.QuoteCount,
		"view_count":    m.ViewCount,
		"is_retweet":    m.IsRetweet,
	}
	if m.ConversationID != "" {
		out["conversation_id"] = m.ConversationID
	}
	return out
}
