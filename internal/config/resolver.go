package config

import (
	"sort"
	"sync"
	"time"

	"github.com/watcherhq/wetvlo/internal/tasks"
)

// secondsToDuration interprets a config-document integer (always seconds
// per spec.md §6) as a time.Duration.
func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// Registry is the Configuration Resolver: it eagerly computes, for every
// declared series, the deep merge of defaults ⊕ global ⊕ domain-of(url) ⊕
// series, and answers all downstream lookups from that flat cache. It is
// the only component that applies hierarchical merging — everything else in
// the process reads ResolvedConfig.
type Registry struct {
	mu      sync.RWMutex
	byURL   map[string]*ResolvedConfig
	order   []string // insertion order, for deterministic ListSeries
	domains []string
	global  GlobalConfig
}

// NewRegistry validates doc and resolves every declared series. It returns a
// *ConfigError on the first violation encountered, in document order.
func NewRegistry(doc *Document) (*Registry, error) {
	if len(doc.Series) == 0 {
		return nil, newConfigError("series list must not be empty")
	}

	domainOverlays := make(map[string]DomainConfigEntry, len(doc.DomainConfigs))
	for _, d := range doc.DomainConfigs {
		domainOverlays[d.Domain] = d
	}

	reg := &Registry{byURL: make(map[string]*ResolvedConfig, len(doc.Series)), global: doc.GlobalConfig}
	domainSet := make(map[string]bool)

	for _, series := range doc.Series {
		rc, err := resolveSeries(series, doc.GlobalConfig, domainOverlays)
		if err != nil {
			return nil, err
		}
		if _, dup := reg.byURL[rc.URL]; dup {
			return nil, newConfigError("duplicate series URL %q", rc.URL)
		}
		reg.byURL[rc.URL] = rc
		reg.order = append(reg.order, rc.URL)

		domain, err := tasks.Domain(rc.URL)
		if err != nil {
			return nil, newConfigError("series %q: %v", rc.URL, err)
		}
		if !domainSet[domain] {
			domainSet[domain] = true
			reg.domains = append(reg.domains, domain)
		}
	}

	sort.Strings(reg.domains)
	return reg, nil
}

func resolveSeries(series SeriesEntry, global GlobalConfig, domains map[string]DomainConfigEntry) (*ResolvedConfig, error) {
	domain, err := tasks.Domain(series.URL)
	if err != nil {
		return nil, newConfigError("series %q: invalid url: %v", series.URL, err)
	}
	domOverlay, hasDomain := domains[domain]

	check := mergeCheck(global.Check, nil)
	download := mergeDownload(global.Download, nil)
	cookieFile := global.CookieFile
	cookieRefresh := global.CookieRefreshBrowser

	if hasDomain {
		check = mergeCheck(check, domOverlay.Check)
		download = mergeDownload(download, domOverlay.Download)
		cookieFile = mergeStringPtr(cookieFile, domOverlay.CookieFile)
		cookieRefresh = mergeBoolPtr(cookieRefresh, domOverlay.CookieRefreshBrowser)
	}

	check = mergeCheck(check, series.Check)
	download = mergeDownload(download, series.Download)
	cookieFile = mergeStringPtr(cookieFile, series.CookieFile)
	cookieRefresh = mergeBoolPtr(cookieRefresh, series.CookieRefreshBrowser)

	rc := &ResolvedConfig{
		Name: series.Name,
		URL:  series.URL,
		Check: ResolvedCheck{
			Count:         derefInt(check.Count, 3),
			CheckInterval: secondsToDuration(derefInt(check.CheckInterval, 600)),
			DownloadTypes: episodeTypes(check.DownloadTypes),
		},
		Download: ResolvedDownload{
			DownloadDir:       derefString(download.DownloadDir, "./downloads"),
			DownloadDelay:     secondsToDuration(derefInt(download.DownloadDelay, 10)),
			MaxRetries:        derefInt(download.MaxRetries, 3),
			InitialTimeout:    secondsToDuration(derefInt(download.InitialTimeout, 5)),
			BackoffMultiplier: derefFloat(download.BackoffMultiplier, 2),
			JitterPercentage:  derefInt(download.JitterPercentage, 10),
			MinDuration:       secondsToDuration(derefInt(download.MinDuration, 0)),
		},
		CookieFile:           derefString(cookieFile, ""),
		CookieRefreshBrowser: derefBool(cookieRefresh, false),
	}
	if series.StartTime != nil {
		rc.StartTime = *series.StartTime
	}
	if series.Cron != nil {
		rc.Cron = *series.Cron
	}

	if err := validateResolved(rc); err != nil {
		return nil, err
	}
	return rc, nil
}

// Resolve returns the cached ResolvedConfig for a registered series URL.
func (r *Registry) Resolve(url string) (*ResolvedConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rc, ok := r.byURL[url]
	if !ok {
		return nil, newConfigError("series %q is not registered", url)
	}
	return rc, nil
}

// ListSeries returns every resolved series in document order.
func (r *Registry) ListSeries() []*ResolvedConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ResolvedConfig, 0, len(r.order))
	for _, u := range r.order {
		out = append(out, r.byURL[u])
	}
	return out
}

// ListDomains returns every distinct domain across the registered series, sorted.
func (r *Registry) ListDomains() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.domains))
	copy(out, r.domains)
	return out
}

// Global returns the process-wide settings layer (logging, metrics,
// storage, downloader, notify) that apply outside any single series.
func (r *Registry) Global() GlobalConfig {
	return r.global
}

func derefInt(p *int, fallback int) int {
	if p == nil {
		return fallback
	}
	return *p
}

func derefFloat(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}

func derefString(p *string, fallback string) string {
	if p == nil {
		return fallback
	}
	return *p
}

func derefBool(p *bool, fallback bool) bool {
	if p == nil {
		return fallback
	}
	return *p
}

// episodeTypes converts the document's plain-string download-types list into
// the typed form the scraping adapters and Episode.MatchesAny operate on.
func episodeTypes(raw []string) []tasks.EpisodeType {
	if raw == nil {
		return nil
	}
	out := make([]tasks.EpisodeType, len(raw))
	for i, s := range raw {
		out[i] = tasks.EpisodeType(s)
	}
	return out
}
