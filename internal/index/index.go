// Package index implements the DownloadedIndex: an opaque capability the
// core treats as isDownloaded(series, number) and recordDownloaded(series,
// episode). The core never reads or writes the backing store directly.
package index

import "github.com/watcherhq/wetvlo/internal/tasks"

// Index is the capability interface the Queue Manager depends on. Entries
// are keyed by series name (not URL) to match the persisted file format of
// spec.md §6: "series-name → sorted list of zero-padded episode numbers".
type Index interface {
	IsDownloaded(seriesName string, number int) bool
	RecordDownloaded(seriesName string, episode tasks.Episode) error
	Close() error
}
