package browser

import (
	"context"

	"github.com/chromedp/chromedp"
)

// Session owns one browser process and its root context. It may be reused
// across multiple logical collection runs within a process; each run opens
// its own tab via NewTab. Close releases the browser on every code path.
type Session struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	cancel      context.CancelFunc
}

// NewSession launches a browser with the shared stealth options. The caller
// must Close it.
func NewSession(ctx context.Context, headless bool) *Session {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, Options(headless)...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	return &Session{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		browserCtx:  browserCtx,
		cancel:      cancel,
	}
}

// NewTab opens a fresh tab in the session's browser. The returned cancel
// closes only the tab, leaving the browser available for further runs.
func (s *Session) NewTab() (context.Context, context.CancelFunc) {
	return chromedp.NewContext(s.browserCtx)
}

// Close shuts down the browser and its allocator.
func (s *Session) Close() {
	s.cancel()
	s.allocCancel()
}
