package config

// mergeCheck deep-merges an overlay onto a base: leaf scalars are replaced
// when the overlay sets them, DownloadTypes replaces wholesale (never
// concatenates) when the overlay sets it.
func mergeCheck(base, overlay *CheckOverlay) *CheckOverlay {
	if base == nil {
		base = &CheckOverlay{}
	}
	out := *base
	if overlay == nil {
		return &out
	}
	if overlay.Count != nil {
		out.Count = overlay.Count
	}
	if overlay.CheckInterval != nil {
		out.CheckInterval = overlay.CheckInterval
	}
	if overlay.DownloadTypes != nil {
		out.DownloadTypes = overlay.DownloadTypes
	}
	return &out
}

func mergeDownload(base, overlay *DownloadOverlay) *DownloadOverlay {
	if base == nil {
		base = &DownloadOverlay{}
	}
	out := *base
	if overlay == nil {
		return &out
	}
	if overlay.DownloadDir != nil {
		out.DownloadDir = overlay.DownloadDir
	}
	if overlay.DownloadDelay != nil {
		out.DownloadDelay = overlay.DownloadDelay
	}
	if overlay.MaxRetries != nil {
		out.MaxRetries = overlay.MaxRetries
	}
	if overlay.InitialTimeout != nil {
		out.InitialTimeout = overlay.InitialTimeout
	}
	if overlay.BackoffMultiplier != nil {
		out.BackoffMultiplier = overlay.BackoffMultiplier
	}
	if overlay.JitterPercentage != nil {
		out.JitterPercentage = overlay.JitterPercentage
	}
	if overlay.MinDuration != nil {
		out.MinDuration = overlay.MinDuration
	}
	return &out
}

func mergeStringPtr(base, overlay *string) *string {
	if overlay != nil {
		return overlay
	}
	return base
}

func mergeBoolPtr(base, overlay *bool) *bool {
	if overlay != nil {
		return overlay
	}
	return base
}
