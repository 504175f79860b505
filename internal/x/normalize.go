package x

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/ibeckermayer/stash4me/internal/types"
)

// createdAtLayout is X's legacy timestamp format, e.g.
// "Wed Oct 10 20:19:24 +0000 2018".
const createdAtLayout = "Mon Jan 02 15:04:05 -0700 2006"

// cursorEntryPrefix marks the bottom-of-timeline cursor entry.
const cursorEntryPrefix = "cursor-bottom-"

// graphqlResponse mirrors the relevant parts of the bookmark timeline
// payload. Everything is optional; the GraphQL shape drifts over time and a
// degraded parse must yield fewer posts, not an error.
type graphqlResponse struct {
	Data struct {
		BookmarkTimelineV2 struct {
			Timeline struct {
				Instructions []struct {
					Entries []timelineEntry `json:"entries"`
				} `json:"instructions"`
			} `json:"timeline"`
		} `json:"bookmark_timeline_v2"`
	} `json:"data"`
}

type timelineEntry struct {
	EntryID string `json:"entryId"`
	Content struct {
		Value       string `json:"value"` // cursor entries only
		ItemContent struct {
			TweetResults struct {
				Result json.RawMessage `json:"result"`
			} `json:"tweet_results"`
		} `json:"itemContent"`
	} `json:"content"`
}

type tweetResult struct {
	// Tweet wraps the real result for tweets with visibility limits.
	Tweet  json.RawMessage `json:"tweet"`
	RestID string          `json:"rest_id"`
	Legacy tweetLegacy     `json:"legacy"`
	Views  struct {
		Count string `json:"count"`
	} `json:"views"`
	Core struct {
		UserResults struct {
			Result struct {
				RestID string `json:"rest_id"`
				Core   struct {
					ScreenName string `json:"screen_name"`
					Name       string `json:"name"`
				} `json:"core"`
				Avatar struct {
					ImageURL string `json:"image_url"`
				} `json:"avatar"`
			} `json:"result"`
		} `json:"user_results"`
	} `json:"core"`
}

type tweetLegacy struct {
	FullText         string        `json:"full_text"`
	CreatedAt        string        `json:"created_at"`
	RetweetCount     int           `json:"retweet_count"`
	FavoriteCount    int           `json:"favorite_count"`
	ReplyCount       int           `json:"reply_count"`
	QuoteCount       int           `json:"quote_count"`
	ConversationID   string        `json:"conversation_id_str"`
	Retweeted        bool          `json:"retweeted"`
	Entities         tweetEntities `json:"entities"`
	ExtendedEntities tweetEntities `json:"extended_entities"`
}

type tweetEntities struct {
	Media []mediaEntity `json:"media"`
}

type mediaEntity struct {
	Type          string `json:"type"`
	MediaURLHTTPS string `json:"media_url_https"`
}

// parseTimeline extracts bookmarked tweets from one GraphQL page. Entries
// that fail to decode are skipped.
func parseTimeline(raw json.RawMessage) []types.SavedPost {
	var resp graphqlResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil
	}

	var posts []types.SavedPost
	for _, instruction := range resp.Data.BookmarkTimelineV2.Timeline.Instructions {
		for _, entry := range instruction.Entries {
			if post := normalizeEntry(entry); post != nil {
				posts = append(posts, *post)
			}
		}
	}
	return posts
}

// extractCursor finds the bottom pagination cursor on one GraphQL page.
func extractCursor(raw json.RawMessage) string {
	var resp graphqlResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ""
	}

	for _, instruction := range resp.Data.BookmarkTimelineV2.Timeline.Instructions {
		for _, entry := range instruction.Entries {
			if strings.HasPrefix(entry.EntryID, cursorEntryPrefix) {
				return entry.Content.Value
			}
		}
	}
	return ""
}

// normalizeEntry maps one timeline entry onto the unified model. Returns nil
// for cursor entries and tweets without an ID.
func normalizeEntry(entry timelineEntry) *types.SavedPost {
	raw := entry.Content.ItemContent.TweetResults.Result
	if len(raw) == 0 {
		return nil
	}

	var result tweetResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil
	}

	// Unwrap visibility-limited tweets.
	if len(result.Tweet) > 0 {
		var inner tweetResult
		if err := json.Unmarshal(result.Tweet, &inner); err != nil {
			return nil
		}
		result = inner
	}

	if result.RestID == "" {
		return nil
	}

	user := result.Core.UserResults.Result
	username := user.Core.ScreenName
	displayName := user.Core.Name
	if displayName == "" {
		displayName = username
	}

	author := types.Author{
		ID:          user.RestID,
		Username:    username,
		DisplayName: displayName,
		AvatarURL:   user.Avatar.ImageURL,
		Platform:    types.PlatformX,
	}
	if author.Username == "" {
		author.Username = types.DeletedAuthorUsername
		author.DisplayName = types.DeletedAuthorUsername
	}
	if author.ID == "" {
		author.ID = types.DeletedAuthorID
	}

	createdAt, err := time.Parse(createdAtLayout, result.Legacy.CreatedAt)
	if err != nil {
		createdAt = time.Now()
	}

	meta := types.XMetadata{
		RetweetCount:   result.Legacy.RetweetCount,
		LikeCount:      result.Legacy.FavoriteCount,
		ReplyCount:     result.Legacy.ReplyCount,
		QuoteCount:     result.Legacy.QuoteCount,
		ViewCount:      parseCount(result.Views.Count),
		IsRetweet:      result.Legacy.Retweeted,
		ConversationID: result.Legacy.ConversationID,
	}

	return &types.SavedPost{
		ID:        result.RestID,
		Platform:  types.PlatformX,
		Author:    author,
		Content:   result.Legacy.FullText,
		URL:       "https://x.com/" + username + "/status/" + result.RestID,
		CreatedAt: createdAt.UTC(),
		Media:     mediaFromEntities(result.Legacy),
		Metadata:  meta.Map(),
	}
}

// mediaFromEntities scans the tweet's media entities, preferring the
// extended set. Entries without a resolvable URL are skipped.
func mediaFromEntities(legacy tweetLegacy) []types.Media {
	entities := legacy.ExtendedEntities
	if len(entities.Media) == 0 {
		entities = legacy.Entities
	}

	var media []types.Media
	for _, m := range entities.Media {
		if m.MediaURLHTTPS == "" {
			continue
		}
		switch m.Type {
		case "photo":
			media = append(media, types.Media{Type: types.MediaImage, URL: m.MediaURLHTTPS})
		case "video", "animated_gif":
			media = append(media, types.Media{
				Type:         types.MediaVideo,
				URL:          m.MediaURLHTTPS,
				ThumbnailURL: m.MediaURLHTTPS,
			})
		}
	}
	return media
}

// parseCount converts abbreviated metric strings like "1.2K", "5.7M" or
// "1,234" to integers. Unparsable input yields zero.
func parseCount(s string) int {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(strings.ToUpper(s), "K"):
		multiplier = 1_000
		s = s[:len(s)-1]
	case strings.HasSuffix(strings.ToUpper(s), "M"):
		multiplier = 1_000_000
		s = s[:len(s)-1]
	case strings.HasSuffix(strings.ToUpper(s), "B"):
		multiplier = 1_000_000_000
		s = s[:len(s)-1]
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}

	return int(value * multiplier)
}
