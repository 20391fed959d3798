package jobs

import "time"

const (
	baseRetryDelay = 5 * time.Minute
	maxRetryDelay  = 24 * time.Hour
)

// RetryDelay doubles per consumed retry: 5m, 10m, 20m, ... capped at
// 24h so a pathological max_retries cannot schedule into next year.
func RetryDelay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	if retryCount > 30 {
		return maxRetryDelay
	}
	d := baseRetryDelay * time.Duration(1<<uint(retryCount))
	if d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}
