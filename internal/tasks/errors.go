package tasks

import (
	"errors"
	"fmt"
)

// Sentinel errors for common task-level failure modes.
var (
	ErrQueueNotRegistered = errors.New("lane not registered")
	ErrQueueAlreadyExists = errors.New("lane already registered")
	ErrSchedulerStopped   = errors.New("scheduler is stopped")
	ErrAlreadyExecuting   = errors.New("lane already has a task executing")
)

// HandlerError wraps a retryable failure from a check (extractEpisodes) executor.
type HandlerError struct {
	SeriesURL string
	Err       error
	Retryable bool
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("check handler error for %s: %v", e.SeriesURL, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

func (e *HandlerError) IsRetryable() bool { return e.Retryable }

// DownloadError wraps a retryable failure from a download executor.
type DownloadError struct {
	SeriesURL string
	Episode   int
	Err       error
	Retryable bool
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download error for %s episode %d: %v", e.SeriesURL, e.Episode, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

func (e *DownloadError) IsRetryable() bool { return e.Retryable }

// CookieError wraps a best-effort cookie refresh failure. Never fatal — the
// check path logs it and proceeds without fresh cookies.
type CookieError struct {
	SeriesURL string
	Err       error
}

func (e *CookieError) Error() string {
	return fmt.Sprintf("cookie refresh error for %s: %v", e.SeriesURL, e.Err)
}

func (e *CookieError) Unwrap() error { return e.Err }
