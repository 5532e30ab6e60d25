package sync

import "time"

// The eHealth quota, rounded down for safety margin, allows roughly one
// list request every two seconds per pipeline.
const defaultRequestsPerMinute = 50

// Limiter derives the minimum delay between consecutive page-fetch
// dispatches of one entity-type pipeline from a requests-per-minute
// quota. The delay is applied as the continuation task's schedule, never
// as a blocking sleep.
type Limiter struct {
	interval time.Duration
}

func NewLimiter(requestsPerMinute int) *Limiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = defaultRequestsPerMinute
	}
	interval := time.Minute / time.Duration(requestsPerMinute)
	// Round up to whole seconds so the quota is never exceeded.
	if rem := interval % time.Second; rem != 0 {
		interval += time.Second - rem
	}
	return &Limiter{interval: interval}
}

// Delay returns the minimum scheduling delay before the next page fetch.
func (l *Limiter) Delay() time.Duration {
	return l.interval
}
