package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/watcherhq/wetvlo/internal/tasks"
)

// Selectors configures how GenericListAdapter extracts one episode row from
// a series page.
type Selectors struct {
	// RowSelector matches one element per episode on the page.
	RowSelector string
	// NumberSelector is relative to the row; empty means the row itself.
	// NumberAttr empty means the element's text; first run of digits wins.
	NumberSelector string
	NumberAttr     string
	// URLSelector is relative to the row; empty means the row itself.
	URLSelector string
	URLAttr     string // defaults to "href"
	// TitleSelector is relative to the row; optional.
	TitleSelector string
	// TypeSelector/TypeAttr classify the episode's EpisodeType; when
	// TypeSelector is empty, DefaultType is used for every row.
	TypeSelector string
	TypeAttr     string
	DefaultType  tasks.EpisodeType
}

var digitsPattern = regexp.MustCompile(`\d+`)

// Fetcher is the HTTP collaborator GenericListAdapter depends on, satisfied
// by *HTTPClient; an interface here keeps adapter tests free of real
// network calls.
type Fetcher interface {
	Fetch(ctx context.Context, url string, cookies []byte) ([]byte, error)
}

// GenericListAdapter is a CSS-selector-driven manager.ScrapeAdapter,
// registered per-domain, grounded on the teacher's internal/parser/css.go.
type GenericListAdapter struct {
	selectors Selectors
	fetcher   Fetcher
	recent    *lru.Cache[string, time.Time]
	logger    *slog.Logger
}

// NewGenericListAdapter builds an adapter. recentCacheSize bounds the
// read-after-write tolerance cache (0 disables it).
func NewGenericListAdapter(selectors Selectors, fetcher Fetcher, recentCacheSize int, logger *slog.Logger) (*GenericListAdapter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var cache *lru.Cache[string, time.Time]
	if recentCacheSize > 0 {
		c, err := lru.New[string, time.Time](recentCacheSize)
		if err != nil {
			return nil, fmt.Errorf("scrape: build recent-episode cache: %w", err)
		}
		cache = c
	}
	return &GenericListAdapter{
		selectors: selectors,
		fetcher:   fetcher,
		recent:    cache,
		logger:    logger.With("component", "scrape_adapter"),
	}, nil
}

// ExtractEpisodes implements manager.ScrapeAdapter.
func (a *GenericListAdapter) ExtractEpisodes(ctx context.Context, seriesURL string, cookies []byte) ([]tasks.Episode, error) {
	body, err := a.fetcher.Fetch(ctx, seriesURL, cookies)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("scrape: parse %s: %w", seriesURL, err)
	}

	now := time.Now()
	var episodes []tasks.Episode
	doc.Find(a.selectors.RowSelector).Each(func(_ int, row *goquery.Selection) {
		ep, ok := a.extractRow(row, now)
		if !ok {
			return
		}
		if a.seenRecently(seriesURL, ep.Number, now) {
			return
		}
		episodes = append(episodes, ep)
	})

	return episodes, nil
}

func (a *GenericListAdapter) extractRow(row *goquery.Selection, now time.Time) (tasks.Episode, bool) {
	numberText := selectValue(row, a.selectors.NumberSelector, a.selectors.NumberAttr)
	match := digitsPattern.FindString(numberText)
	if match == "" {
		a.logger.Debug("scrape: row has no episode number, skipping", "text", numberText)
		return tasks.Episode{}, false
	}
	number, err := strconv.Atoi(match)
	if err != nil {
		return tasks.Episode{}, false
	}

	urlAttr := a.selectors.URLAttr
	if urlAttr == "" {
		urlAttr = "href"
	}
	url := selectValue(row, a.selectors.URLSelector, urlAttr)

	epType := a.selectors.DefaultType
	if a.selectors.TypeSelector != "" {
		if t := selectValue(row, a.selectors.TypeSelector, a.selectors.TypeAttr); t != "" {
			epType = tasks.EpisodeType(strings.ToLower(strings.TrimSpace(t)))
		}
	}

	title := ""
	if a.selectors.TitleSelector != "" {
		title = strings.TrimSpace(selectValue(row, a.selectors.TitleSelector, ""))
	}

	return tasks.Episode{
		Number:      number,
		URL:         url,
		Type:        epType,
		Title:       title,
		ExtractedAt: now,
	}, true
}

func selectValue(row *goquery.Selection, selector, attr string) string {
	target := row
	if selector != "" {
		target = row.Find(selector)
	}
	if attr == "" {
		return strings.TrimSpace(target.First().Text())
	}
	val, _ := target.First().Attr(attr)
	return val
}

func (a *GenericListAdapter) seenRecently(seriesURL string, number int, now time.Time) bool {
	if a.recent == nil {
		return false
	}
	key := seriesURL + "#" + strconv.Itoa(number)
	if _, ok := a.recent.Get(key); ok {
		return true
	}
	a.recent.Add(key, now)
	return false
}
