// Package bootstrap obtains authenticated request headers by driving a real
// browser page load and intercepting the API call the page makes, so that
// subsequent calls can be issued directly over HTTP without the browser.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/ibeckermayer/stash4me/internal/auth"
	"github.com/ibeckermayer/stash4me/internal/browser"
)

// ErrUnauthenticated means the page redirected to a login or registration
// screen: the supplied cookies are invalid or expired. This is the only
// failure the caller should treat as actionable; collection must not proceed.
var ErrUnauthenticated = errors.New("redirected to login page: cookies invalid or expired")

const (
	// navigationTimeout bounds the initial page load.
	navigationTimeout = 60 * time.Second
	// DefaultCaptureTimeout bounds the wait for a matching request.
	DefaultCaptureTimeout = 5 * time.Second
	// capturePollInterval is the spacing between capture checks.
	capturePollInterval = 100 * time.Millisecond
)

// blockedPatterns keeps the page load light; static assets are irrelevant to
// header capture.
var blockedPatterns = []string{"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.woff", "*.woff2"}

// Matcher identifies the API request whose headers should be captured.
type Matcher func(requestURL string) bool

// URLContains matches any request whose URL contains all the given
// substrings.
func URLContains(substrings ...string) Matcher {
	return func(u string) bool {
		for _, s := range substrings {
			if !strings.Contains(u, s) {
				return false
			}
		}
		return true
	}
}

// CapturedSession is the ephemeral header set (plus the cookie set) needed
// to issue authenticated direct HTTP calls. It is bearer-equivalent: never
// log or persist it. Lifetime is one collection run.
type CapturedSession struct {
	Headers map[string]string
	Cookies []auth.Cookie
	// Synthesized is true when no matching request was observed and a
	// minimal header set was built instead.
	Synthesized bool
}

// Bootstrapper captures sessions from pages loaded in a shared browser
// session.
type Bootstrapper struct {
	session *browser.Session
	log     *logrus.Logger
}

// New creates a Bootstrapper over an open browser session.
func New(session *browser.Session, log *logrus.Logger) *Bootstrapper {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Bootstrapper{session: session, log: log}
}

// Capture navigates to targetURL with the given cookies loaded, waits up to
// captureTimeout for an outgoing request matching match, and returns its
// header set verbatim. The first matching request wins; later matches are
// ignored. If nothing matches within the timeout, a minimal synthesized
// header set is returned instead (soft failure). A redirect to a login page
// returns ErrUnauthenticated. The tab is closed on every exit path.
func (b *Bootstrapper) Capture(ctx context.Context, creds auth.Credentials, targetURL string, match Matcher, captureTimeout time.Duration) (*CapturedSession, error) {
	if captureTimeout <= 0 {
		captureTimeout = DefaultCaptureTimeout
	}

	tabCtx, closeTab := b.session.NewTab()
	defer closeTab()

	// Propagate caller cancellation into the tab.
	stop := context.AfterFunc(ctx, closeTab)
	defer stop()

	var mu sync.Mutex
	var captured map[string]string

	chromedp.ListenTarget(tabCtx, func(ev any) {
		e, ok := ev.(*network.EventRequestWillBeSent)
		if !ok {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if captured != nil || !match(e.Request.URL) {
			return
		}
		captured = make(map[string]string, len(e.Request.Headers))
		for k, v := range e.Request.Headers {
			// Hop-by-hop headers don't transfer to direct calls, and the
			// cookie set is attached separately by the HTTP client.
			switch strings.ToLower(k) {
			case "host", "content-length", "connection", "cookie":
				continue
			}
			captured[k] = fmt.Sprint(v)
		}
	})

	navCtx, cancelNav := context.WithTimeout(tabCtx, navigationTimeout)
	defer cancelNav()

	err := chromedp.Run(navCtx,
		network.Enable(),
		network.SetBlockedURLs(blockedPatterns),
		injectCookies(creds.Cookies),
		chromedp.Navigate(targetURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", targetURL, err)
	}

	var location string
	if err := chromedp.Run(tabCtx, chromedp.Location(&location)); err != nil {
		return nil, fmt.Errorf("failed to read post-navigation URL: %w", err)
	}

	lower := strings.ToLower(location)
	if strings.Contains(lower, "login") || strings.Contains(lower, "register") {
		return nil, ErrUnauthenticated
	}

	headers := b.waitForCapture(tabCtx, &mu, &captured, captureTimeout)
	if headers == nil {
		// Some captured calls are merely helpful, not mandatory: degrade to
		// a minimal header set rather than failing the run.
		b.log.Warn("no matching request captured, synthesizing minimal headers")
		return &CapturedSession{
			Headers:     synthesizedHeaders(),
			Cookies:     creds.Cookies,
			Synthesized: true,
		}, nil
	}

	b.log.WithField("headers", len(headers)).Info("captured request headers")
	return &CapturedSession{Headers: headers, Cookies: creds.Cookies}, nil
}

// waitForCapture polls for capture completion with a bounded wait.
func (b *Bootstrapper) waitForCapture(ctx context.Context, mu *sync.Mutex, captured *map[string]string, timeout time.Duration) map[string]string {
	deadline := time.After(timeout)
	ticker := time.NewTicker(capturePollInterval)
	defer ticker.Stop()

	for {
		mu.Lock()
		headers := *captured
		mu.Unlock()
		if headers != nil {
			return headers
		}

		select {
		case <-deadline:
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// injectCookies sets the caller-supplied cookies in the browser before
// navigation.
func injectCookies(cookies []auth.Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			err := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly).
				Do(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func synthesizedHeaders() map[string]string {
	return map[string]string{
		"user-agent":      browser.DefaultUserAgent,
		"accept":          "application/json",
		"accept-language": "en-US,en;q=0.5",
	}
}
