// Package browser provides shared chromedp configuration with
// anti-bot-detection measures, and a reusable browser session.
package browser

import "github.com/chromedp/chromedp"

// DefaultUserAgent is a realistic user agent used both for browser sessions
// and for synthesized header fallbacks.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0"

// Options returns chromedp allocator options with anti-bot-detection
// measures. All browser instances should use this for consistent stealth
// configuration.
func Options(headless bool) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),

		// Prevent navigator.webdriver = true detection; both platforms
		// check this.
		chromedp.Flag("disable-blink-features", "AutomationControlled"),

		chromedp.UserAgent(DefaultUserAgent),
		chromedp.WindowSize(1920, 1080),

		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)

	if headless {
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}

	return opts
}
