package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/watcherhq/wetvlo/internal/config"
	"github.com/watcherhq/wetvlo/internal/tasks"
)

func episode(number int, url string) tasks.Episode {
	return tasks.Episode{Number: number, URL: url, Type: tasks.EpisodeAvailable}
}

type fakeResolver struct {
	rc  *config.ResolvedConfig
	err error
}

func (f *fakeResolver) Resolve(string) (*config.ResolvedConfig, error) {
	return f.rc, f.err
}

func TestCheckInstalledFindsBinaryOnPath(t *testing.T) {
	d := NewExecDownloader("sh", nil, &fakeResolver{}, nil, nil)
	if !d.CheckInstalled() {
		t.Error("expected sh to be found on PATH")
	}

	d2 := NewExecDownloader("definitely-not-a-real-binary-xyz", nil, &fakeResolver{}, nil, nil)
	if d2.CheckInstalled() {
		t.Error("expected a nonexistent binary to report not installed")
	}
}

func TestDownloadSucceedsAndLocatesOutputFile(t *testing.T) {
	dir := t.TempDir()
	resolver := &fakeResolver{rc: &config.ResolvedConfig{
		Download: config.ResolvedDownload{DownloadDir: dir},
	}}

	// Use a shell script standing in for the real downloader binary: it
	// creates the output file at the -o path's directory itself, since the
	// templated %(ext)s substitution is yt-dlp's own behavior, not ours.
	script := filepath.Join(dir, "fake-dlp.sh")
	content := "#!/bin/sh\nwhile [ \"$1\" != \"-o\" ]; do shift; done\nshift\ntarget=$(echo \"$1\" | sed 's/%(ext)s/mp4/')\ntouch \"$target\"\necho \"progress: done\"\n"
	if err := os.WriteFile(script, []byte(content), 0o755); err != nil {
		t.Fatal(err)
	}

	var progressLines []string
	d := NewExecDownloader(script, nil, resolver, func(_ string, _ int, line string) {
		progressLines = append(progressLines, line)
	}, nil)

	result, err := d.Download(context.Background(), "https://example.com/series/one", episode(5, "https://example.com/watch/5"))
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if result.Filename == "" {
		t.Error("expected a non-empty Filename")
	}
	if len(progressLines) == 0 {
		t.Error("expected at least one progress line to be captured")
	}
}

func TestDownloadReturnsRetryableErrorOnNonZeroExit(t *testing.T) {
	dir := t.TempDir()
	resolver := &fakeResolver{rc: &config.ResolvedConfig{
		Download: config.ResolvedDownload{DownloadDir: dir},
	}}

	script := filepath.Join(dir, "fail-dlp.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho failing\nexit 1\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	d := NewExecDownloader(script, nil, resolver, nil, nil)
	_, err := d.Download(context.Background(), "https://example.com/series/two", episode(1, "https://example.com/watch/1"))
	if err == nil {
		t.Fatal("expected an error from a nonzero exit")
	}
}

func TestDownloadReturnsErrorWhenNoFileProduced(t *testing.T) {
	dir := t.TempDir()
	resolver := &fakeResolver{rc: &config.ResolvedConfig{
		Download: config.ResolvedDownload{DownloadDir: dir},
	}}

	script := filepath.Join(dir, "noop-dlp.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	d := NewExecDownloader(script, nil, resolver, nil, nil)
	_, err := d.Download(context.Background(), "https://example.com/series/three", episode(9, "https://example.com/watch/9"))
	if err == nil {
		t.Fatal("expected an error when the subprocess produces no output file")
	}
}
