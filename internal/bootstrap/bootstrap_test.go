package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURLContains(t *testing.T) {
	m := URLContains("graphql", "Bookmarks")

	assert.True(t, m("https://x.com/i/api/graphql/abc123/Bookmarks?variables=%7B%7D"))
	assert.False(t, m("https://x.com/i/api/graphql/abc123/HomeTimeline"))
	assert.False(t, m("https://x.com/i/Bookmarks"))

	single := URLContains("saved.json")
	assert.True(t, single("https://www.reddit.com/user/someone/saved.json?limit=100"))
	assert.False(t, single("https://www.reddit.com/user/someone/upvoted.json"))
}

func TestSynthesizedHeaders(t *testing.T) {
	h := synthesizedHeaders()
	assert.NotEmpty(t, h["user-agent"])
	assert.Equal(t, "application/json", h["accept"])
}
