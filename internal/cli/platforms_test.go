package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/stash4me/internal/config"
	"github.com/ibeckermayer/stash4me/internal/types"
)

func TestFetcherForPlatformNames(t *testing.T) {
	cfg := config.Default()

	_, platform, err := fetcherFor(cfg, "reddit")
	require.NoError(t, err)
	assert.Equal(t, types.PlatformReddit, platform)

	_, platform, err = fetcherFor(cfg, "x")
	require.NoError(t, err)
	assert.Equal(t, types.PlatformX, platform)

	_, platform, err = fetcherFor(cfg, "twitter")
	require.NoError(t, err)
	assert.Equal(t, types.PlatformX, platform)

	_, _, err = fetcherFor(cfg, "mastodon")
	assert.Error(t, err)
}

func TestAPIFetcherForRequiresCredentials(t *testing.T) {
	cfg := config.Default()

	_, _, err := apiFetcherFor(cfg, "reddit")
	assert.ErrorContains(t, err, "REDDIT_CLIENT_ID")

	_, _, err = apiFetcherFor(cfg, "x")
	assert.ErrorContains(t, err, "X_CLIENT_ID")

	_, _, err = apiFetcherFor(cfg, "mastodon")
	assert.ErrorContains(t, err, "unknown platform")
}

func TestManagerForUnknownPlatform(t *testing.T) {
	_, err := managerFor("facebook")
	assert.Error(t, err)
}
