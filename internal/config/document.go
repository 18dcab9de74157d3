package config

// Document is the raw shape of the YAML configuration file: a hierarchy of
// overlays that the resolver deep-merges into a ResolvedConfig per series.
// Every overlay field is a pointer or a nil-able slice so the merge can
// distinguish "not set at this level" from "set to the zero value".
type Document struct {
	Series        []SeriesEntry       `mapstructure:"series"        yaml:"series"`
	GlobalConfig  GlobalConfig        `mapstructure:"globalConfig"  yaml:"globalConfig"`
	DomainConfigs []DomainConfigEntry `mapstructure:"domainConfigs" yaml:"domainConfigs"`
}

// CheckOverlay carries the check-related overridable fields at any merge level.
type CheckOverlay struct {
	Count         *int     `mapstructure:"count"         yaml:"count"`
	CheckInterval *int     `mapstructure:"checkInterval" yaml:"checkInterval"`
	DownloadTypes []string `mapstructure:"downloadTypes" yaml:"downloadTypes"`
}

// DownloadOverlay carries the download-related overridable fields at any merge level.
type DownloadOverlay struct {
	DownloadDir       *string  `mapstructure:"downloadDir"        yaml:"downloadDir"`
	DownloadDelay     *int     `mapstructure:"downloadDelay"      yaml:"downloadDelay"`
	MaxRetries        *int     `mapstructure:"maxRetries"         yaml:"maxRetries"`
	InitialTimeout    *int     `mapstructure:"initialTimeout"     yaml:"initialTimeout"`
	BackoffMultiplier *float64 `mapstructure:"backoffMultiplier"  yaml:"backoffMultiplier"`
	JitterPercentage  *int     `mapstructure:"jitterPercentage"   yaml:"jitterPercentage"`
	MinDuration       *int     `mapstructure:"minDuration"        yaml:"minDuration"`
}

// SeriesEntry declares one watched series and its per-series overrides.
type SeriesEntry struct {
	Name                 string           `mapstructure:"name"                 yaml:"name"`
	URL                  string           `mapstructure:"url"                  yaml:"url"`
	StartTime            *string          `mapstructure:"startTime"            yaml:"startTime"`
	Cron                 *string          `mapstructure:"cron"                 yaml:"cron"`
	Check                *CheckOverlay    `mapstructure:"check"                yaml:"check"`
	Download             *DownloadOverlay `mapstructure:"download"             yaml:"download"`
	CookieFile           *string          `mapstructure:"cookieFile"           yaml:"cookieFile"`
	CookieRefreshBrowser *bool            `mapstructure:"cookieRefreshBrowser" yaml:"cookieRefreshBrowser"`
}

// DomainConfigEntry overrides settings for every series on one domain.
type DomainConfigEntry struct {
	Domain               string           `mapstructure:"domain"               yaml:"domain"`
	Check                *CheckOverlay    `mapstructure:"check"                yaml:"check"`
	Download             *DownloadOverlay `mapstructure:"download"             yaml:"download"`
	CookieFile           *string          `mapstructure:"cookieFile"           yaml:"cookieFile"`
	CookieRefreshBrowser *bool            `mapstructure:"cookieRefreshBrowser" yaml:"cookieRefreshBrowser"`
}

// GlobalConfig overrides settings for every series in the document.
type GlobalConfig struct {
	Check                *CheckOverlay    `mapstructure:"check"                yaml:"check"`
	Download             *DownloadOverlay `mapstructure:"download"             yaml:"download"`
	CookieFile           *string          `mapstructure:"cookieFile"           yaml:"cookieFile"`
	CookieRefreshBrowser *bool            `mapstructure:"cookieRefreshBrowser" yaml:"cookieRefreshBrowser"`
	Logging              LoggingConfig    `mapstructure:"logging"              yaml:"logging"`
	Metrics              MetricsConfig    `mapstructure:"metrics"              yaml:"metrics"`
	Storage              StorageConfig    `mapstructure:"storage"              yaml:"storage"`
	Downloader           DownloaderConfig `mapstructure:"downloader"           yaml:"downloader"`
	Notify               NotifyConfig     `mapstructure:"notify"               yaml:"notify"`
}

// NotifyConfig configures the notify sinks: console is always on, Slack is
// enabled when SlackWebhookURL is non-empty.
type NotifyConfig struct {
	Level           string `mapstructure:"level"           yaml:"level"`
	SlackWebhookURL string `mapstructure:"slackWebhookUrl" yaml:"slackWebhookUrl"`
}

// LoggingConfig controls the slog handler used by the process.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus exposition server.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr"    yaml:"addr"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// StorageConfig selects the downloaded-index backend.
type StorageConfig struct {
	Type     string `mapstructure:"type"     yaml:"type"`
	Path     string `mapstructure:"path"     yaml:"path"`
	MongoURI string `mapstructure:"mongoUri" yaml:"mongoUri"`
	MongoDB  string `mapstructure:"mongoDb"  yaml:"mongoDb"`
}

// DownloaderConfig selects and configures the subprocess downloader adapter.
type DownloaderConfig struct {
	Binary string   `mapstructure:"binary" yaml:"binary"`
	Args   []string `mapstructure:"args"   yaml:"args"`
}

func defaultCheckOverlay() *CheckOverlay {
	count, interval := 3, 600
	return &CheckOverlay{
		Count:         &count,
		CheckInterval: &interval,
		DownloadTypes: []string{"available"},
	}
}

func defaultDownloadOverlay() *DownloadOverlay {
	dir, delay, retries, timeout, jitter, minDur := "./downloads", 10, 3, 5, 10, 0
	mult := 2.0
	return &DownloadOverlay{
		DownloadDir:       &dir,
		DownloadDelay:     &delay,
		MaxRetries:        &retries,
		InitialTimeout:    &timeout,
		BackoffMultiplier: &mult,
		JitterPercentage:  &jitter,
		MinDuration:       &minDur,
	}
}

// DefaultDocument returns a Document with the baseline defaults layer
// populated; callers merge a parsed file on top of it.
func DefaultDocument() *Document {
	return &Document{
		GlobalConfig: GlobalConfig{
			Check:    defaultCheckOverlay(),
			Download: defaultDownloadOverlay(),
			Logging:  LoggingConfig{Level: "info", Format: "text"},
			Metrics:  MetricsConfig{Enabled: false, Addr: ":9090", Path: "/metrics"},
			Storage:  StorageConfig{Type: "file", Path: "./downloaded-index.json"},
			Downloader: DownloaderConfig{
				Binary: "yt-dlp",
			},
			Notify: NotifyConfig{Level: "info"},
		},
	}
}
