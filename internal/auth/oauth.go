package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// TokenFile persists an OAuth2 token between runs. Tokens are credentials,
// not cached content.
type TokenFile struct {
	path string
}

// NewTokenFile creates a token file at the given path.
func NewTokenFile(path string) *TokenFile {
	return &TokenFile{path: path}
}

// Save writes the token to disk.
func (tf *TokenFile) Save(tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(tf.path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(tf.path, data, 0600)
}

// Load reads the token from disk.
func (tf *TokenFile) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(tf.path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// Clear removes the stored token.
func (tf *TokenFile) Clear() error {
	err := os.Remove(tf.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// OAuthHandler runs an OAuth2 authorization-code flow with PKCE and serves
// refreshed access tokens from a persisted token file.
type OAuthHandler struct {
	config   oauth2.Config
	tokens   *TokenFile
	verifier string
	state    string
}

// NewOAuthHandler creates a PKCE-capable OAuth handler.
func NewOAuthHandler(config oauth2.Config, tokens *TokenFile) *OAuthHandler {
	return &OAuthHandler{config: config, tokens: tokens}
}

// AuthorizationURL generates the URL the user must visit, along with the
// state parameter to verify on callback. A fresh PKCE verifier and state are
// generated per call.
func (h *OAuthHandler) AuthorizationURL() (url, state string) {
	h.verifier = oauth2.GenerateVerifier()
	h.state = randomState()
	url = h.config.AuthCodeURL(h.state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(h.verifier),
	)
	return url, h.state
}

// Exchange trades the authorization code for tokens and persists them.
func (h *OAuthHandler) Exchange(ctx context.Context, code, state string) error {
	if state != h.state {
		return fmt.Errorf("state mismatch: possible CSRF")
	}
	if h.verifier == "" {
		return fmt.Errorf("no pending authorization: call AuthorizationURL first")
	}

	tok, err := h.config.Exchange(ctx, code, oauth2.VerifierOption(h.verifier))
	if err != nil {
		return fmt.Errorf("token exchange failed: %w", err)
	}

	return h.tokens.Save(tok)
}

// TokenSource returns a refreshing token source seeded from the persisted
// token. Refreshed tokens are written back to disk.
func (h *OAuthHandler) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	saved, err := h.tokens.Load()
	if err != nil {
		return nil, fmt.Errorf("no stored token, run the authorization flow first: %w", err)
	}

	inner := h.config.TokenSource(ctx, saved)
	return &persistingSource{inner: inner, last: saved, tokens: h.tokens}, nil
}

// AccessToken returns a currently valid access token, refreshing if needed.
func (h *OAuthHandler) AccessToken(ctx context.Context) (string, error) {
	src, err := h.TokenSource(ctx)
	if err != nil {
		return "", err
	}
	tok, err := src.Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// persistingSource writes tokens back to the token file whenever the
// underlying source rotates them.
type persistingSource struct {
	inner  oauth2.TokenSource
	last   *oauth2.Token
	tokens *TokenFile
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.inner.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last.AccessToken {
		s.last = tok
		if err := s.tokens.Save(tok); err != nil {
			return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
		}
	}
	return tok, nil
}

func randomState() string {
	// oauth2's verifier generator is a cryptographically random URL-safe
	// string, which is exactly what a state parameter needs.
	return oauth2.GenerateVerifier()
}
