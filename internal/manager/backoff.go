package manager

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/watcherhq/wetvlo/internal/config"
)

// backoffDelay implements spec.md §4.4.1:
//
//	baseDelay = initialTimeout · backoffMultiplier^retryCount
//	jitter = uniform(-1, 1) · baseDelay · jitterPercentage / 100
//	delay = floor(max(0, baseDelay + jitter))
func backoffDelay(dl config.ResolvedDownload, retryCount int) time.Duration {
	base := dl.InitialTimeout.Seconds() * math.Pow(dl.BackoffMultiplier, float64(retryCount))

	var jitter float64
	if dl.JitterPercentage > 0 {
		u := rand.Float64()*2 - 1 // uniform(-1, 1)
		jitter = u * base * float64(dl.JitterPercentage) / 100
	}

	seconds := math.Max(0, base+jitter)
	return time.Duration(math.Floor(seconds)) * time.Second
}
