package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/ibeckermayer/stash4me/internal/auth"
	"github.com/ibeckermayer/stash4me/internal/bootstrap"
	"github.com/ibeckermayer/stash4me/internal/browser"
	"github.com/ibeckermayer/stash4me/internal/config"
	"github.com/ibeckermayer/stash4me/internal/mcpserver"
	"github.com/ibeckermayer/stash4me/internal/reddit"
	"github.com/ibeckermayer/stash4me/internal/types"
	"github.com/ibeckermayer/stash4me/internal/x"
)

// Interactive login recognition per platform. The session cookie, not the
// URL, is what proves the login completed.
var (
	redditLoginSpec = auth.LoginSpec{
		LoginURL:           "https://www.reddit.com/login",
		SuccessURLPrefixes: []string{"https://www.reddit.com/"},
		SessionCookie:      "reddit_session",
	}
	xLoginSpec = auth.LoginSpec{
		LoginURL:           "https://x.com/login",
		SuccessURLPrefixes: []string{"https://x.com/home"},
		SessionCookie:      "auth_token",
	}
)

var (
	redditRequiredCookies = []string{"reddit_session"}
	xRequiredCookies      = []string{"auth_token", "ct0"}
)

func cookieStoreFor(platform types.Platform) (*auth.CookieStore, error) {
	path, err := config.CookieStorePath(string(platform))
	if err != nil {
		return nil, err
	}

	if platform == types.PlatformX {
		return auth.NewCookieStore(path, xRequiredCookies, x.CookieDomains), nil
	}
	return auth.NewCookieStore(path, redditRequiredCookies, reddit.CookieDomains), nil
}

// redditCredentials resolves cookies in priority order: explicit cookie file,
// environment JSON, then the interactive-login store.
func redditCredentials(cfg *config.Config) (auth.Credentials, error) {
	if cfg.Reddit.CookiesFile != "" {
		cookies, err := auth.LoadCookieFile(cfg.Reddit.CookiesFile, reddit.CookieDomains, reddit.TargetDomain)
		if err != nil {
			return auth.Credentials{}, fmt.Errorf("failed to load reddit cookie file: %w", err)
		}
		return auth.Credentials{Cookies: cookies}, nil
	}

	cookies, err := auth.CookiesFromEnv("REDDIT_COOKIES", reddit.TargetDomain)
	if err != nil {
		return auth.Credentials{}, fmt.Errorf("failed to parse REDDIT_COOKIES: %w", err)
	}
	if len(cookies) > 0 {
		return auth.Credentials{Cookies: cookies}, nil
	}

	store, err := cookieStoreFor(types.PlatformReddit)
	if err != nil {
		return auth.Credentials{}, err
	}
	cookies, err = store.Cookies()
	if err != nil {
		return auth.Credentials{}, fmt.Errorf("no reddit cookies configured: %w", bootstrap.ErrUnauthenticated)
	}
	return auth.Credentials{Cookies: cookies}, nil
}

func xCredentials(cfg *config.Config) (auth.Credentials, error) {
	if cfg.X.CookiesFile != "" {
		cookies, err := auth.LoadCookieFile(cfg.X.CookiesFile, x.CookieDomains, x.TargetDomain)
		if err != nil {
			return auth.Credentials{}, fmt.Errorf("failed to load x cookie file: %w", err)
		}
		return auth.Credentials{Cookies: cookies}, nil
	}

	cookies, err := auth.CookiesFromEnv("X_COOKIES", x.TargetDomain)
	if err != nil {
		return auth.Credentials{}, fmt.Errorf("failed to parse X_COOKIES: %w", err)
	}
	if len(cookies) > 0 {
		return auth.Credentials{Cookies: cookies}, nil
	}

	store, err := cookieStoreFor(types.PlatformX)
	if err != nil {
		return auth.Credentials{}, err
	}
	cookies, err = store.Cookies()
	if err != nil {
		return auth.Credentials{}, fmt.Errorf("no x cookies configured: %w", bootstrap.ErrUnauthenticated)
	}
	return auth.Credentials{Cookies: cookies}, nil
}

func pageDelay(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Scraping.PageDelayMS) * time.Millisecond
}

// redditFetcher builds a collection function that owns its browser session
// for the duration of one run. Keeping the browser per-run means a
// long-running server holds no Chrome process between calls.
func redditFetcher(cfg *config.Config) mcpserver.Fetcher {
	return func(ctx context.Context, limit int) ([]types.SavedPost, error) {
		if cfg.Reddit.Username == "" {
			return nil, fmt.Errorf("reddit username not configured (set REDDIT_USERNAME)")
		}

		creds, err := redditCredentials(cfg)
		if err != nil {
			return nil, err
		}

		sess := browser.NewSession(ctx, cfg.Scraping.Headless)
		defer sess.Close()

		boot := bootstrap.New(sess, log)
		scraper := reddit.NewScraper(cfg.Reddit.Username, creds, boot, cfg.Scraping.MaxPages, pageDelay(cfg), log)
		return scraper.GetSaved(ctx, limit, reddit.FilterNone)
	}
}

func xFetcher(cfg *config.Config) mcpserver.Fetcher {
	return func(ctx context.Context, limit int) ([]types.SavedPost, error) {
		creds, err := xCredentials(cfg)
		if err != nil {
			return nil, err
		}

		sess := browser.NewSession(ctx, cfg.Scraping.Headless)
		defer sess.Close()

		boot := bootstrap.New(sess, log)
		scraper := x.NewScraper(creds, boot, cfg.Scraping.MaxPages, pageDelay(cfg), log)
		return scraper.GetBookmarks(ctx, limit)
	}
}

// fetcherFor maps a platform name from the command line to its collector.
func fetcherFor(cfg *config.Config, platform string) (mcpserver.Fetcher, types.Platform, error) {
	switch platform {
	case "reddit":
		return redditFetcher(cfg), types.PlatformReddit, nil
	case "x", "twitter":
		return xFetcher(cfg), types.PlatformX, nil
	default:
		return nil, "", fmt.Errorf("unknown platform %q (want reddit or x)", platform)
	}
}
