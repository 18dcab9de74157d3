package config

import "regexp"

var startTimePattern = regexp.MustCompile(`^\d{1,2}:\d{2}$`)

// validateResolved checks the numeric and scheduling invariants a
// ResolvedConfig must satisfy before it can be registered.
func validateResolved(rc *ResolvedConfig) error {
	if rc.StartTime == "" && rc.Cron == "" {
		return newConfigError("series %q: one of startTime or cron must be set", rc.URL)
	}
	if rc.StartTime != "" && rc.Cron != "" {
		return newConfigError("series %q: only one of startTime or cron may be set", rc.URL)
	}
	if rc.StartTime != "" && !startTimePattern.MatchString(rc.StartTime) {
		return newConfigError("series %q: startTime %q does not match ^\\d{1,2}:\\d{2}$", rc.URL, rc.StartTime)
	}

	if rc.Check.Count < 1 {
		return newConfigError("series %q: check.count must be >= 1, got %d", rc.URL, rc.Check.Count)
	}
	if rc.Check.CheckInterval < 0 {
		return newConfigError("series %q: check.checkInterval must be >= 0", rc.URL)
	}

	if rc.Download.DownloadDelay < 0 {
		return newConfigError("series %q: download.downloadDelay must be >= 0", rc.URL)
	}
	if rc.Download.MaxRetries < 0 {
		return newConfigError("series %q: download.maxRetries must be >= 0", rc.URL)
	}
	if rc.Download.InitialTimeout < 0 {
		return newConfigError("series %q: download.initialTimeout must be >= 0", rc.URL)
	}
	if rc.Download.BackoffMultiplier < 1 {
		return newConfigError("series %q: download.backoffMultiplier must be >= 1, got %v", rc.URL, rc.Download.BackoffMultiplier)
	}
	if rc.Download.JitterPercentage < 0 || rc.Download.JitterPercentage > 100 {
		return newConfigError("series %q: download.jitterPercentage must be within [0,100], got %d", rc.URL, rc.Download.JitterPercentage)
	}
	if rc.Download.MinDuration < 0 {
		return newConfigError("series %q: download.minDuration must be >= 0", rc.URL)
	}

	return nil
}
