package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/ibeckermayer/stash4me/internal/browser"
)

// LoginSpec describes how to recognize a completed login on one platform.
type LoginSpec struct {
	// LoginURL is the page to open for the user.
	LoginURL string
	// SuccessURLPrefixes indicate the user landed on a logged-in page.
	SuccessURLPrefixes []string
	// SessionCookie is the cookie that must exist after login.
	SessionCookie string
}

// Manager drives the interactive login flow: open a visible browser, wait
// for the user to sign in, then capture and persist the session cookies.
type Manager struct {
	store *CookieStore
	spec  LoginSpec
	log   *logrus.Logger
}

// NewManager creates an auth manager persisting into the given store.
func NewManager(store *CookieStore, spec LoginSpec, log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{store: store, spec: spec, log: log}
}

// IsAuthenticated checks if valid credentials are stored.
func (m *Manager) IsAuthenticated() bool {
	return m.store.IsValid()
}

// Login opens a headful browser window for the user to log in and saves the
// extracted cookies on success.
func (m *Manager) Login(ctx context.Context) error {
	opts := browser.Options(false)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	if err := chromedp.Run(browserCtx, chromedp.Navigate(m.spec.LoginURL)); err != nil {
		return fmt.Errorf("failed to navigate to login page: %w", err)
	}

	m.log.WithField("url", m.spec.LoginURL).Info("waiting for interactive login")

	if err := m.waitForLogin(browserCtx); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	cookies, err := extractCookies(browserCtx)
	if err != nil {
		return fmt.Errorf("failed to extract cookies: %w", err)
	}

	if err := m.store.Save(cookies); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}

	m.log.WithField("cookies", len(cookies)).Info("login successful, cookies saved")
	return nil
}

// waitForLogin polls until the user has landed on a logged-in page with the
// session cookie present.
func (m *Manager) waitForLogin(ctx context.Context) error {
	timeout := time.After(5 * time.Minute)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			return fmt.Errorf("login timeout exceeded")
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			var url string
			if err := chromedp.Run(ctx, chromedp.Location(&url)); err != nil {
				continue
			}

			if !m.onSuccessPage(url) {
				continue
			}

			cookies, err := extractCookies(ctx)
			if err != nil {
				continue
			}
			for _, c := range cookies {
				if c.Name == m.spec.SessionCookie && c.Value != "" {
					return nil
				}
			}
		}
	}
}

func (m *Manager) onSuccessPage(url string) bool {
	for _, prefix := range m.spec.SuccessURLPrefixes {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

// extractCookies gets all cookies from the browser.
func extractCookies(ctx context.Context) ([]Cookie, error) {
	var cookies []Cookie

	err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			raw, err := storage.GetCookies().Do(ctx)
			if err != nil {
				return err
			}
			for _, c := range raw {
				cookies = append(cookies, Cookie{
					Name:     c.Name,
					Value:    c.Value,
					Domain:   c.Domain,
					Path:     c.Path,
					Secure:   c.Secure,
					HTTPOnly: c.HTTPOnly,
					Expires:  float64(c.Expires),
				})
			}
			return nil
		}),
	)

	return cookies, err
}

// Logout clears stored credentials.
func (m *Manager) Logout() error {
	return m.store.Clear()
}

// Cookies returns the stored cookies for use in scraping.
func (m *Manager) Cookies() ([]Cookie, error) {
	return m.store.Cookies()
}
