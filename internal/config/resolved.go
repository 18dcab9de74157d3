package config

import (
	"time"

	"github.com/watcherhq/wetvlo/internal/tasks"
)

// ResolvedConfig is the flat, fully-populated view produced by merging
// defaults, global, domain and series overlays for one series URL. Every
// field is concrete — downstream code never checks for an unset optional.
type ResolvedConfig struct {
	Name string
	URL  string

	// Exactly one of StartTime/Cron is non-empty.
	StartTime string
	Cron      string

	Check    ResolvedCheck
	Download ResolvedDownload

	CookieFile           string
	CookieRefreshBrowser bool
}

// ResolvedCheck is the flattened check-interval policy for one series.
type ResolvedCheck struct {
	Count         int
	CheckInterval time.Duration
	DownloadTypes []tasks.EpisodeType
}

// ResolvedDownload is the flattened download/retry policy for one series.
type ResolvedDownload struct {
	DownloadDir       string
	DownloadDelay     time.Duration
	MaxRetries        int
	InitialTimeout    time.Duration
	BackoffMultiplier float64
	JitterPercentage  int
	MinDuration       time.Duration
}
