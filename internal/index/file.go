package index

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/watcherhq/wetvlo/internal/tasks"
)

const fileIndexVersion = "3.0.0"

// fileDocument is the on-disk representation: series name → sorted,
// zero-padded episode numbers.
type fileDocument struct {
	Version string              `json:"version"`
	Series  map[string][]string `json:"series"`
}

// FileIndex is the baseline append-only JSON file backend for
// DownloadedIndex. Every RecordDownloaded call rewrites the file and fsyncs
// before returning, so a download is durably recorded before the Queue
// Manager calls markTaskComplete (the flush-after-success ordering spec.md
// §9 preserves from the source).
type FileIndex struct {
	mu     sync.Mutex
	path   string
	doc    fileDocument
	seen   map[string]map[int]bool
	logger *slog.Logger
}

// NewFileIndex loads (or creates) the index file at path.
func NewFileIndex(path string, logger *slog.Logger) (*FileIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	idx := &FileIndex{
		path:   path,
		doc:    fileDocument{Version: fileIndexVersion, Series: map[string][]string{}},
		seen:   map[string]map[int]bool{},
		logger: logger.With("component", "file_index"),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, fmt.Errorf("reading downloaded-index %s: %w", path, err)
	}
	if len(raw) == 0 {
		return idx, nil
	}
	if err := json.Unmarshal(raw, &idx.doc); err != nil {
		return nil, fmt.Errorf("parsing downloaded-index %s: %w", path, err)
	}
	if idx.doc.Series == nil {
		idx.doc.Series = map[string][]string{}
	}
	for series, numbers := range idx.doc.Series {
		set := make(map[int]bool, len(numbers))
		for _, padded := range numbers {
			n, err := strconv.Atoi(padded)
			if err != nil {
				continue
			}
			set[n] = true
		}
		idx.seen[series] = set
	}
	return idx, nil
}

// IsDownloaded reports whether episode number was already recorded for seriesName.
func (idx *FileIndex) IsDownloaded(seriesName string, number int) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.seen[seriesName][number]
}

// RecordDownloaded appends number to seriesName's set and durably persists
// the whole file before returning.
func (idx *FileIndex) RecordDownloaded(seriesName string, episode tasks.Episode) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.seen[seriesName] == nil {
		idx.seen[seriesName] = map[int]bool{}
	}
	if idx.seen[seriesName][episode.Number] {
		return nil
	}
	idx.seen[seriesName][episode.Number] = true

	numbers := make([]int, 0, len(idx.seen[seriesName]))
	for n := range idx.seen[seriesName] {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	padded := make([]string, len(numbers))
	for i, n := range numbers {
		padded[i] = fmt.Sprintf("%04d", n)
	}
	idx.doc.Series[seriesName] = padded

	return idx.flush()
}

func (idx *FileIndex) flush() error {
	dir := filepath.Dir(idx.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating downloaded-index directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(idx.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating downloaded-index temp file: %w", err)
	}
	tmpPath := tmp.Name()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(idx.doc); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encoding downloaded-index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("fsyncing downloaded-index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing downloaded-index temp file: %w", err)
	}
	if err := os.Rename(tmpPath, idx.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing downloaded-index: %w", err)
	}
	idx.logger.Debug("downloaded-index flushed", "path", idx.path)
	return nil
}

// Close is a no-op for the file backend — every write already flushes.
func (idx *FileIndex) Close() error { return nil }

var _ Index = (*FileIndex)(nil)
