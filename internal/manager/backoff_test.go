package manager

import (
	"testing"
	"time"

	"github.com/watcherhq/wetvlo/internal/config"
)

func TestBackoffDelayNoJitter(t *testing.T) {
	dl := config.ResolvedDownload{
		InitialTimeout:    5 * time.Second,
		BackoffMultiplier: 2,
		JitterPercentage:  0,
	}

	if got, want := backoffDelay(dl, 0), 5*time.Second; got != want {
		t.Errorf("backoffDelay(retry=0) = %v, want %v", got, want)
	}
	if got, want := backoffDelay(dl, 1), 10*time.Second; got != want {
		t.Errorf("backoffDelay(retry=1) = %v, want %v", got, want)
	}
	if got, want := backoffDelay(dl, 2), 20*time.Second; got != want {
		t.Errorf("backoffDelay(retry=2) = %v, want %v", got, want)
	}
}

func TestBackoffDelayMonotonic(t *testing.T) {
	dl := config.ResolvedDownload{
		InitialTimeout:    1 * time.Second,
		BackoffMultiplier: 3,
		JitterPercentage:  0,
	}
	prev := backoffDelay(dl, 0)
	for k := 1; k < 5; k++ {
		next := backoffDelay(dl, k)
		if float64(next) < float64(prev)*dl.BackoffMultiplier {
			t.Errorf("delay(%d)=%v should be >= delay(%d)=%v * multiplier", k, next, k-1, prev)
		}
		prev = next
	}
}

func TestBackoffDelayNeverNegative(t *testing.T) {
	dl := config.ResolvedDownload{
		InitialTimeout:    1 * time.Second,
		BackoffMultiplier: 1,
		JitterPercentage:  100,
	}
	for i := 0; i < 50; i++ {
		if backoffDelay(dl, 0) < 0 {
			t.Fatal("backoffDelay must never return a negative duration")
		}
	}
}
