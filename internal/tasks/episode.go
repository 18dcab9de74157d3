package tasks

import "time"

// EpisodeType classifies the access tier of a discovered episode.
type EpisodeType string

const (
	EpisodeAvailable EpisodeType = "available"
	EpisodeVIP       EpisodeType = "vip"
	EpisodeTeaser    EpisodeType = "teaser"
	EpisodeExpress   EpisodeType = "express"
	EpisodePreview   EpisodeType = "preview"
	EpisodeLocked    EpisodeType = "locked"
)

// Episode is a single discovered episode on a series page. Uniqueness within
// a series is by Number; de-duplication happens at the scraping-adapter
// boundary, not here.
type Episode struct {
	Number      int         `json:"number"`
	URL         string      `json:"url"`
	Type        EpisodeType `json:"type"`
	Title       string      `json:"title,omitempty"`
	ExtractedAt time.Time   `json:"extracted_at"`
}

// MatchesAny reports whether the episode's type is present in the given
// allow-list of download types.
func (e Episode) MatchesAny(downloadTypes []EpisodeType) bool {
	for _, t := range downloadTypes {
		if e.Type == t {
			return true
		}
	}
	return false
}
