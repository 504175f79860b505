package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCookieJSONArray(t *testing.T) {
	data := []byte(`[
		{"name": "auth_token", "value": "abc123", "domain": ".x.com", "path": "/", "secure": true},
		{"name": "ct0", "value": "def456", "domain": ".x.com", "path": "/"}
	]`)

	cookies, err := ParseCookieJSON(data, ".x.com")
	require.NoError(t, err)
	require.Len(t, cookies, 2)
	assert.Equal(t, "auth_token", cookies[0].Name)
	assert.Equal(t, "abc123", cookies[0].Value)
	assert.True(t, cookies[0].Secure)
}

func TestParseCookieJSONKeyValue(t *testing.T) {
	data := []byte(`{"reddit_session": "xyz", "token_v2": "tok"}`)

	cookies, err := ParseCookieJSON(data, ".reddit.com")
	require.NoError(t, err)
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.Equal(t, ".reddit.com", c.Domain)
		assert.Equal(t, "/", c.Path)
	}
}

func TestParseCookieJSONGarbage(t *testing.T) {
	_, err := ParseCookieJSON([]byte("# Netscape HTTP Cookie File"), ".x.com")
	assert.Error(t, err)
}

func TestLoadCookieFileNetscape(t *testing.T) {
	content := "# Netscape HTTP Cookie File\n" +
		"# This is a generated file!\n" +
		"\n" +
		".reddit.com\tTRUE\t/\tTRUE\t1999999999\treddit_session\tsess-value\n" +
		"www.reddit.com\tFALSE\t/\tFALSE\t1999999999\tother\tval\n" +
		".example.com\tTRUE\t/\tTRUE\t1999999999\tunrelated\tskip-me\n"

	path := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cookies, err := LoadCookieFile(path, []string{".reddit.com", "reddit.com"}, ".reddit.com")
	require.NoError(t, err)
	require.Len(t, cookies, 2)

	assert.Equal(t, "reddit_session", cookies[0].Name)
	assert.Equal(t, "sess-value", cookies[0].Value)
	assert.Equal(t, ".reddit.com", cookies[0].Domain)
	assert.True(t, cookies[0].Secure)

	// Host-prefixed domain is normalized without the leading dot.
	assert.Equal(t, "reddit.com", cookies[1].Domain)
	assert.False(t, cookies[1].Secure)
}

func TestLoadCookieFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"a","value":"b","domain":".x.com","path":"/"}]`), 0600))

	cookies, err := LoadCookieFile(path, []string{".x.com"}, ".x.com")
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, "a", cookies[0].Name)
}

func TestCookieStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stored.json")
	cs := NewCookieStore(path, []string{"auth_token"}, []string{".x.com", "x.com"})

	assert.False(t, cs.IsValid(), "empty store is invalid")

	cookies := []Cookie{
		{Name: "auth_token", Value: "v", Domain: ".x.com", Path: "/", Expires: 9999999999},
		{Name: "stray", Value: "v2", Domain: ".other.com", Path: "/"},
	}
	require.NoError(t, cs.Save(cookies))

	assert.True(t, cs.IsValid())

	scoped, err := cs.Cookies()
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "auth_token", scoped[0].Name)

	require.NoError(t, cs.Clear())
	assert.False(t, cs.IsValid())
}

func TestCookieStoreExpired(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stored.json")
	cs := NewCookieStore(path, []string{"auth_token"}, []string{".x.com"})

	// Session cookie expired in the past.
	require.NoError(t, cs.Save([]Cookie{{Name: "auth_token", Value: "v", Domain: ".x.com", Expires: 1000000}}))
	assert.False(t, cs.IsValid())
}

func TestCredentialsHTTPCookies(t *testing.T) {
	creds := Credentials{Cookies: []Cookie{{Name: "a", Value: "1", Domain: ".x.com", Path: "/", Secure: true}}}
	hc := creds.HTTPCookies()
	require.Len(t, hc, 1)
	assert.Equal(t, "a", hc[0].Name)
	assert.Equal(t, "1", hc[0].Value)
}
