package index

import (
	"path/filepath"
	"testing"

	"github.com/watcherhq/wetvlo/internal/tasks"
)

func TestFileIndexRecordAndCheck(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "downloaded-index.json")

	idx, err := NewFileIndex(path, nil)
	if err != nil {
		t.Fatal(err)
	}

	if idx.IsDownloaded("my-series", 5) {
		t.Error("fresh index should report nothing downloaded")
	}

	ep := tasks.Episode{Number: 5, URL: "https://example.com/ep5", Type: tasks.EpisodeAvailable}
	if err := idx.RecordDownloaded("my-series", ep); err != nil {
		t.Fatal(err)
	}
	if !idx.IsDownloaded("my-series", 5) {
		t.Error("episode 5 should be recorded as downloaded")
	}
	if idx.IsDownloaded("my-series", 6) {
		t.Error("episode 6 was never recorded")
	}
}

func TestFileIndexPersistsAcrossLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "downloaded-index.json")

	idx, err := NewFileIndex(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	ep := tasks.Episode{Number: 12, URL: "https://example.com/ep12", Type: tasks.EpisodeAvailable}
	if err := idx.RecordDownloaded("my-series", ep); err != nil {
		t.Fatal(err)
	}

	reloaded, err := NewFileIndex(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reloaded.IsDownloaded("my-series", 12) {
		t.Error("episode 12 should still be recorded after reloading the index file")
	}
}

func TestFileIndexRecordIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "downloaded-index.json")
	idx, err := NewFileIndex(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	ep := tasks.Episode{Number: 1, URL: "https://example.com/ep1"}
	if err := idx.RecordDownloaded("s", ep); err != nil {
		t.Fatal(err)
	}
	if err := idx.RecordDownloaded("s", ep); err != nil {
		t.Fatal(err)
	}
	if len(idx.doc.Series["s"]) != 1 {
		t.Errorf("recording the same episode twice should not duplicate the entry, got %v", idx.doc.Series["s"])
	}
}
