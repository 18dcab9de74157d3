package cookie

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// BrowserRefresher implements manager.CookieRefresher with a lazily-launched,
// stealth-wrapped headless Chromium session shared across series, grounded
// on the teacher's internal/fetcher/browser.go and internal/automation. The
// browser is serialized behind mu and torn down after idleTimeout of
// inactivity so a long-running supervisor doesn't pin a Chromium process
// for series that never need a cookie refresh.
type BrowserRefresher struct {
	mu          sync.Mutex
	browser     *rod.Browser
	idleTimeout time.Duration
	idleTimer   *time.Timer
	navTimeout  time.Duration
	logger      *slog.Logger
}

// NewBrowserRefresher builds a BrowserRefresher. idleTimeout <= 0 defaults
// to 15 minutes, matching spec.md's cookieRefreshBrowser resource policy.
func NewBrowserRefresher(idleTimeout time.Duration, logger *slog.Logger) *BrowserRefresher {
	if idleTimeout <= 0 {
		idleTimeout = 15 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BrowserRefresher{
		idleTimeout: idleTimeout,
		navTimeout:  30 * time.Second,
		logger:      logger.With("component", "cookie_browser"),
	}
}

// Refresh implements manager.CookieRefresher: it navigates a stealth page to
// seriesURL, lets the page settle, and returns whatever cookies the site set
// as a Cookie-header value. Failures here are best-effort per spec.md's
// CookieError taxonomy — callers should not treat them as fatal.
func (r *BrowserRefresher) Refresh(ctx context.Context, seriesURL string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureBrowserLocked(); err != nil {
		return nil, fmt.Errorf("cookie: launch browser: %w", err)
	}

	page, err := stealth.Page(r.browser)
	if err != nil {
		return nil, fmt.Errorf("cookie: open page: %w", err)
	}
	defer page.Close()

	page = page.Context(ctx)
	if err := page.Timeout(r.navTimeout).Navigate(seriesURL); err != nil {
		return nil, fmt.Errorf("cookie: navigate %s: %w", seriesURL, err)
	}
	if err := page.Timeout(r.navTimeout).WaitStable(500 * time.Millisecond); err != nil {
		r.logger.Warn("page never settled, continuing with cookies collected so far", "url", seriesURL, "error", err)
	}

	cookies, err := page.Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie: read cookies for %s: %w", seriesURL, err)
	}

	r.resetIdleTimerLocked()
	return formatCookies(cookies), nil
}

func (r *BrowserRefresher) ensureBrowserLocked() error {
	if r.browser != nil {
		return nil
	}

	l := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled")

	launchURL, err := l.Launch()
	if err != nil {
		return err
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return err
	}

	r.browser = browser
	r.resetIdleTimerLocked()
	return nil
}

func (r *BrowserRefresher) resetIdleTimerLocked() {
	if r.idleTimer != nil {
		r.idleTimer.Stop()
	}
	r.idleTimer = time.AfterFunc(r.idleTimeout, r.shutdownIdle)
}

func (r *BrowserRefresher) shutdownIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return
	}
	r.logger.Info("closing idle cookie-refresh browser", "idle_timeout", r.idleTimeout)
	_ = r.browser.Close()
	r.browser = nil
}

// Close tears down the browser immediately, if one is running. Intended for
// use during application shutdown.
func (r *BrowserRefresher) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.idleTimer != nil {
		r.idleTimer.Stop()
		r.idleTimer = nil
	}
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.browser = nil
	return err
}

func formatCookies(cookies []*proto.NetworkCookie) []byte {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return []byte(strings.Join(parts, "; "))
}
