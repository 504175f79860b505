package x

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/stash4me/internal/types"
)

const tweetResultJSON = `{
	"rest_id": "1234567890",
	"views": {"count": "12.5K"},
	"core": {
		"user_results": {
			"result": {
				"rest_id": "99",
				"core": {"screen_name": "gopher", "name": "The Gopher"},
				"avatar": {"image_url": "https://pbs.twimg.com/avatar.jpg"}
			}
		}
	},
	"legacy": {
		"full_text": "Generics landed in Go 1.18",
		"created_at": "Wed Oct 10 20:19:24 +0000 2018",
		"retweet_count": 10,
		"favorite_count": 200,
		"reply_count": 5,
		"quote_count": 2,
		"conversation_id_str": "1234567890",
		"extended_entities": {
			"media": [
				{"type": "photo", "media_url_https": "https://pbs.twimg.com/media/pic.jpg"},
				{"type": "video", "media_url_https": "https://pbs.twimg.com/media/vid.jpg"},
				{"type": "photo", "media_url_https": ""}
			]
		}
	}
}`

func timelinePage(entries string) json.RawMessage {
	return json.RawMessage(`{
		"data": {
			"bookmark_timeline_v2": {
				"timeline": {
					"instructions": [{"entries": [` + entries + `]}]
				}
			}
		}
	}`)
}

func tweetEntry(result string) string {
	return `{
		"entryId": "tweet-1234567890",
		"content": {"itemContent": {"tweet_results": {"result": ` + result + `}}}
	}`
}

func TestParseTimeline(t *testing.T) {
	page := timelinePage(tweetEntry(tweetResultJSON) + `,
		{"entryId": "cursor-bottom-999", "content": {"value": "next-cursor"}}`)

	posts := parseTimeline(page)
	require.Len(t, posts, 1, "cursor entries are not posts")

	post := posts[0]
	assert.Equal(t, "1234567890", post.ID)
	assert.Equal(t, types.PlatformX, post.Platform)
	assert.Equal(t, "gopher", post.Author.Username)
	assert.Equal(t, "The Gopher", post.Author.DisplayName)
	assert.Equal(t, "99", post.Author.ID)
	assert.Equal(t, "Generics landed in Go 1.18", post.Content)
	assert.Equal(t, "https://x.com/gopher/status/1234567890", post.URL)
	assert.Equal(t, time.Date(2018, 10, 10, 20, 19, 24, 0, time.UTC), post.CreatedAt)

	assert.Equal(t, 200, post.Metadata["like_count"])
	assert.Equal(t, 10, post.Metadata["retweet_count"])
	assert.Equal(t, 12500, post.Metadata["view_count"])

	require.Len(t, post.Media, 2, "entries without a URL are skipped")
	assert.Equal(t, types.MediaImage, post.Media[0].Type)
	assert.Equal(t, "https://pbs.twimg.com/media/pic.jpg", post.Media[0].URL)
	assert.Equal(t, types.MediaVideo, post.Media[1].Type)
	assert.Equal(t, post.Media[1].URL, post.Media[1].ThumbnailURL)
}

func TestParseTimelineWrappedTweetResult(t *testing.T) {
	wrapped := `{"tweet": ` + tweetResultJSON + `}`
	posts := parseTimeline(timelinePage(tweetEntry(wrapped)))
	require.Len(t, posts, 1)
	assert.Equal(t, "1234567890", posts[0].ID)
}

func TestParseTimelineMissingRestIDIsDropped(t *testing.T) {
	posts := parseTimeline(timelinePage(tweetEntry(`{"legacy": {"full_text": "no id"}}`)))
	assert.Empty(t, posts)
}

func TestParseTimelineMissingUserUsesSentinels(t *testing.T) {
	raw := `{"rest_id": "42", "legacy": {"full_text": "orphan", "created_at": "Wed Oct 10 20:19:24 +0000 2018"}}`
	posts := parseTimeline(timelinePage(tweetEntry(raw)))
	require.Len(t, posts, 1)
	assert.Equal(t, types.DeletedAuthorUsername, posts[0].Author.Username)
	assert.Equal(t, types.DeletedAuthorID, posts[0].Author.ID)
}

func TestParseTimelineBadCreatedAtFallsBackToNow(t *testing.T) {
	raw := `{"rest_id": "42", "legacy": {"full_text": "t", "created_at": "not a date"}}`
	before := time.Now().UTC()
	posts := parseTimeline(timelinePage(tweetEntry(raw)))
	require.Len(t, posts, 1)
	assert.False(t, posts[0].CreatedAt.Before(before))
}

func TestParseTimelineGarbage(t *testing.T) {
	assert.Empty(t, parseTimeline(json.RawMessage(`not json`)))
}

func TestExtractCursor(t *testing.T) {
	page := timelinePage(tweetEntry(tweetResultJSON) + `,
		{"entryId": "cursor-top-111", "content": {"value": "top"}},
		{"entryId": "cursor-bottom-999", "content": {"value": "bottom-token"}}`)

	assert.Equal(t, "bottom-token", extractCursor(page))
	assert.Equal(t, "", extractCursor(timelinePage(tweetEntry(tweetResultJSON))))
	assert.Equal(t, "", extractCursor(json.RawMessage(`not json`)))
}

func TestParseCount(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"0", 0},
		{"1234", 1234},
		{"1,234", 1234},
		{"1.2K", 1200},
		{"5.7M", 5700000},
		{"2B", 2000000000},
		{"3k", 3000},
		{"garbage", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseCount(tc.in), "parseCount(%q)", tc.in)
	}
}

const apiPageJSON = `{
	"data": [
		{
			"id": "100",
			"text": "hello from the api",
			"created_at": "2024-05-01T10:40:00.000Z",
			"author_id": "7",
			"conversation_id": "100",
			"public_metrics": {"retweet_count": 1, "like_count": 2, "reply_count": 3, "quote_count": 4},
			"attachments": {"media_keys": ["m1", "m2"]}
		},
		{"id": "", "text": "dropped"}
	],
	"includes": {
		"users": [{"id": "7", "username": "apiuser", "name": "API User", "profile_image_url": "https://pbs.twimg.com/u.jpg"}],
		"media": [
			{"media_key": "m1", "type": "photo", "url": "https://pbs.twimg.com/media/a.jpg"},
			{"media_key": "m2", "type": "animated_gif", "preview_image_url": "https://pbs.twimg.com/media/b.jpg"}
		]
	},
	"meta": {"next_token": "tok123"}
}`

func TestNormalizeAPIPage(t *testing.T) {
	var page bookmarksPage
	require.NoError(t, json.Unmarshal([]byte(apiPageJSON), &page))

	posts := normalizeAPIPage(&page)
	require.Len(t, posts, 1, "tweets without an ID are dropped")

	post := posts[0]
	assert.Equal(t, "100", post.ID)
	assert.Equal(t, "apiuser", post.Author.Username)
	assert.Equal(t, "https://x.com/apiuser/status/100", post.URL)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 40, 0, 0, time.UTC), post.CreatedAt)
	assert.Equal(t, 2, post.Metadata["like_count"])

	require.Len(t, post.Media, 2)
	assert.Equal(t, types.MediaImage, post.Media[0].Type)
	assert.Equal(t, types.MediaGIF, post.Media[1].Type)
	assert.Equal(t, "https://pbs.twimg.com/media/b.jpg", post.Media[1].URL, "preview URL stands in when the direct URL is absent")

	assert.Equal(t, "tok123", page.Meta.NextToken)
}

func TestNormalizeAPITweetUnknownAuthor(t *testing.T) {
	tweet := apiTweet{ID: "5", Text: "t", CreatedAt: "2024-05-01T10:40:00Z"}
	post := normalizeAPITweet(tweet, nil, nil)
	assert.Equal(t, types.DeletedAuthorUsername, post.Author.Username)
	assert.Equal(t, types.DeletedAuthorID, post.Author.ID)
}
