package manager

import (
	"context"
	"fmt"

	"github.com/watcherhq/wetvlo/internal/config"
	"github.com/watcherhq/wetvlo/internal/notify"
	"github.com/watcherhq/wetvlo/internal/tasks"
)

// executeDownload implements the download path of spec.md §4.4: invoke the
// downloader, record success in the downloaded-index, or retry/exhaust on
// failure. Every branch ends with exactly one markTaskComplete on lane.
func (m *Manager) executeDownload(ctx context.Context, t *tasks.DownloadTask, lane string) {
	rc, err := m.app.Registry().Resolve(t.SeriesURL)
	if err != nil {
		m.logger.Error("download: series no longer resolvable", "url", t.SeriesURL, "error", err)
		m.sched.MarkTaskComplete(lane, 0)
		return
	}

	domain, err := tasks.Domain(t.SeriesURL)
	if err != nil {
		m.logger.Error("download: invalid series url", "url", t.SeriesURL, "error", err)
		m.sched.MarkTaskComplete(lane, rc.Download.DownloadDelay)
		return
	}

	breaker := m.breakerFor(domain)
	result, err := breaker.Execute(func() (DownloadResult, error) {
		return m.downloader.Download(ctx, t.SeriesURL, t.Episode)
	})
	if err != nil {
		m.handleDownloadError(t, rc, lane, err)
		return
	}

	if err := m.app.Index.RecordDownloaded(rc.Name, t.Episode); err != nil {
		m.logger.Error("download: failed to record in downloaded-index", "url", t.SeriesURL, "episode", t.Episode.Number, "error", err)
	}

	m.app.Notifier.Notify(notify.Success, fmt.Sprintf("%s: downloaded episode %d (%s)", rc.Name, t.Episode.Number, result.Filename))
	if m.metrics != nil {
		m.metrics.IncCompleted(lane)
	}
	m.sched.MarkTaskComplete(lane, rc.Download.DownloadDelay)
}

func (m *Manager) handleDownloadError(t *tasks.DownloadTask, rc *config.ResolvedConfig, lane string, cause error) {
	downloadErr := &tasks.DownloadError{SeriesURL: t.SeriesURL, Episode: t.Episode.Number, Err: cause, Retryable: t.RetryCount < rc.Download.MaxRetries}

	if t.RetryCount == 0 {
		m.logger.Info("download failed, will retry", "url", t.SeriesURL, "episode_url", t.Episode.URL, "error", cause)
	}

	if !downloadErr.Retryable {
		m.app.Notifier.Notify(notify.Error, fmt.Sprintf("%s: download of episode %d exhausted retries: %v", rc.Name, t.Episode.Number, cause))
		if m.metrics != nil {
			m.metrics.IncFailed(lane)
		}
		m.sched.MarkTaskComplete(lane, rc.Download.DownloadDelay)
		return
	}

	delay := backoffDelay(rc.Download, t.RetryCount)
	next, err := tasks.NewDownloadTask(t.SeriesURL, t.Episode, t.RetryCount+1)
	if err != nil {
		m.logger.Error("download: failed to build retry task", "url", t.SeriesURL, "error", err)
		m.sched.MarkTaskComplete(lane, rc.Download.DownloadDelay)
		return
	}
	if err := m.sched.AddPriorityTask(lane, next, delay); err != nil {
		m.logger.Error("download: failed to enqueue retry", "url", t.SeriesURL, "error", err)
	}
	if m.metrics != nil {
		m.metrics.IncRetry(lane)
		m.metrics.ObserveBackoff(lane, delay.Seconds())
	}
	m.app.Notifier.Notify(notify.Warning, fmt.Sprintf("%s: download of episode %d failed, retrying in %s: %v", rc.Name, t.Episode.Number, delay, cause))
	m.sched.MarkTaskComplete(lane, 0)
}
