package manager

import (
	"context"

	"github.com/watcherhq/wetvlo/internal/tasks"
)

// ScrapeAdapter is the per-domain scraping collaborator of spec.md §6: pure
// with respect to the core, may perform HTTP or headless browser work.
type ScrapeAdapter interface {
	ExtractEpisodes(ctx context.Context, seriesURL string, cookies []byte) ([]tasks.Episode, error)
}

// DownloadResult is what a successful Downloader.Download call returns.
type DownloadResult struct {
	Filename string
	AllFiles []string
}

// Downloader is the external-downloader collaborator of spec.md §6.
type Downloader interface {
	CheckInstalled() bool
	Download(ctx context.Context, seriesURL string, episode tasks.Episode) (DownloadResult, error)
}

// CookieRefresher is the best-effort cookie-refresh collaborator invoked
// when a series' cookieRefreshBrowser flag is set and new episodes were
// just found.
type CookieRefresher interface {
	Refresh(ctx context.Context, seriesURL string) ([]byte, error)
}

// Metrics is an optional observability hook; a nil Metrics on Manager means
// calls are skipped, so tests need not supply one.
type Metrics interface {
	ObserveBackoff(lane string, delay float64)
	IncRetry(lane string)
	IncCompleted(lane string)
	IncFailed(lane string)
}
