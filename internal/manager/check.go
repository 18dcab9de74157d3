package manager

import (
	"context"
	"fmt"

	"github.com/watcherhq/wetvlo/internal/config"
	"github.com/watcherhq/wetvlo/internal/notify"
	"github.com/watcherhq/wetvlo/internal/tasks"
)

// executeCheck implements the check path of spec.md §4.4: resolve config,
// run the scraping adapter, filter and either fan out downloads, requeue
// the next attempt, retry on error, or give up. Every branch ends with
// exactly one markTaskComplete on lane, per the scheduler's terminal-signal
// contract.
func (m *Manager) executeCheck(ctx context.Context, t *tasks.CheckTask, lane string) {
	rc, err := m.app.Registry().Resolve(t.SeriesURL)
	if err != nil {
		m.logger.Error("check: series no longer resolvable", "url", t.SeriesURL, "error", err)
		m.sched.MarkTaskComplete(lane, 0)
		return
	}

	domain, err := tasks.Domain(t.SeriesURL)
	if err != nil {
		m.logger.Error("check: invalid series url", "url", t.SeriesURL, "error", err)
		m.sched.MarkTaskComplete(lane, rc.Check.CheckInterval)
		return
	}
	adapter, ok := m.adapterFor(domain)
	if !ok {
		m.app.Notifier.Notify(notify.Error, fmt.Sprintf("no scraping adapter registered for domain %s", domain))
		m.sched.MarkTaskComplete(lane, rc.Check.CheckInterval)
		return
	}

	cookies := m.loadCookies(t.SeriesURL, rc)
	episodes, err := adapter.ExtractEpisodes(ctx, t.SeriesURL, cookies)
	if err != nil {
		m.handleCheckError(t, rc, lane, err)
		return
	}

	fresh := make([]tasks.Episode, 0, len(episodes))
	for _, ep := range episodes {
		if !ep.MatchesAny(rc.Check.DownloadTypes) {
			continue
		}
		if m.app.Index.IsDownloaded(rc.Name, ep.Number) {
			continue
		}
		fresh = append(fresh, ep)
	}

	if len(fresh) > 0 {
		if rc.CookieRefreshBrowser && m.cookies != nil {
			if _, err := m.cookies.Refresh(ctx, t.SeriesURL); err != nil {
				cookieErr := &tasks.CookieError{SeriesURL: t.SeriesURL, Err: err}
				m.logger.Warn("cookie refresh failed, proceeding without fresh cookies", "error", cookieErr)
			}
		}
		if err := m.AddEpisodes(t.SeriesURL, fresh); err != nil {
			m.logger.Error("check: failed to enqueue downloads", "url", t.SeriesURL, "error", err)
		}
		m.app.Notifier.Notify(notify.Success, fmt.Sprintf("%s: found %d new episode(s)", rc.Name, len(fresh)))
		m.sched.MarkTaskComplete(lane, rc.Check.CheckInterval)
		return
	}

	if t.AttemptNumber < rc.Check.Count {
		next, err := tasks.NewCheckTask(t.SeriesURL, t.AttemptNumber+1, 0)
		if err != nil {
			m.logger.Error("check: failed to build successor task", "url", t.SeriesURL, "error", err)
			m.sched.MarkTaskComplete(lane, rc.Check.CheckInterval)
			return
		}
		if err := m.sched.AddTask(lane, next, rc.Check.CheckInterval); err != nil {
			m.logger.Error("check: failed to enqueue successor", "url", t.SeriesURL, "error", err)
		}
		m.sched.MarkTaskComplete(lane, 0)
		return
	}

	m.app.Notifier.Notify(notify.Info, fmt.Sprintf("%s: no new episodes after %d attempts, session exhausted", rc.Name, t.AttemptNumber))
	m.sched.MarkTaskComplete(lane, rc.Check.CheckInterval)
}

func (m *Manager) handleCheckError(t *tasks.CheckTask, rc *config.ResolvedConfig, lane string, cause error) {
	handlerErr := &tasks.HandlerError{SeriesURL: t.SeriesURL, Err: cause, Retryable: t.RetryCount < rc.Download.MaxRetries}

	if !handlerErr.Retryable {
		m.app.Notifier.Notify(notify.Error, fmt.Sprintf("%s: check failed, retries exhausted: %v", rc.Name, cause))
		m.sched.MarkTaskComplete(lane, rc.Check.CheckInterval)
		return
	}

	delay := backoffDelay(rc.Download, t.RetryCount)
	next, err := tasks.NewCheckTask(t.SeriesURL, t.AttemptNumber, t.RetryCount+1)
	if err != nil {
		m.logger.Error("check: failed to build retry task", "url", t.SeriesURL, "error", err)
		m.sched.MarkTaskComplete(lane, rc.Check.CheckInterval)
		return
	}
	if err := m.sched.AddPriorityTask(lane, next, delay); err != nil {
		m.logger.Error("check: failed to enqueue retry", "url", t.SeriesURL, "error", err)
	}
	if m.metrics != nil {
		m.metrics.IncRetry(lane)
		m.metrics.ObserveBackoff(lane, delay.Seconds())
	}
	m.app.Notifier.Notify(notify.Warning, fmt.Sprintf("%s: check failed, retrying in %s: %v", rc.Name, delay, cause))
	m.sched.MarkTaskComplete(lane, 0)
}

// loadCookies reads rc.CookieFile, if configured. A read failure is a
// CookieError per spec.md §7's best-effort taxonomy — it is logged and
// checking proceeds without cookies, never treated as fatal.
func (m *Manager) loadCookies(seriesURL string, rc *config.ResolvedConfig) []byte {
	if rc.CookieFile == "" || m.cookieFileLoader == nil {
		return nil
	}
	cookies, err := m.cookieFileLoader(rc.CookieFile)
	if err != nil {
		cookieErr := &tasks.CookieError{SeriesURL: seriesURL, Err: err}
		m.logger.Warn("check: failed to load cookie file, proceeding without cookies", "error", cookieErr)
		return nil
	}
	return cookies
}
