package job

import "time"

// RetryPolicy describes the retry budget and backoff schedule attached to
// a job at enqueue time. MaxRetries counts retries after the initial
// attempt, so a job makes up to MaxRetries+1 attempts. Backoff[n-1] is the
// wait after attempt n fails, with the last entry repeating when attempts
// outnumber schedule entries.
type RetryPolicy struct {
	MaxRetries int
	Backoff     []time.Duration
}

// DefaultRetryPolicy returns the standard webhook delivery policy: three
// retries after the initial attempt, with waits of 5s, 10s and 30s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		Backoff: []time.Duration{
			5 * time.Second,
			10 * time.Second,
			30 * time.Second,
		},
	}
}

// RetryPolicyFromSeconds builds a policy from configuration values.
// Non-positive inputs fall back to the defaults.
func RetryPolicyFromSeconds(maxRetries int, backoffSeconds []int) RetryPolicy {
	policy := DefaultRetryPolicy()
	if maxRetries > 0 {
		policy.MaxRetries = maxRetries
	}
	if len(backoffSeconds) > 0 {
		backoff := make([]time.Duration, 0, len(backoffSeconds))
		for _, s := range backoffSeconds {
			if s < 1 {
				s = 1
			}
			backoff = append(backoff, time.Duration(s)*time.Second)
		}
		policy.Backoff = backoff
	}
	return policy
}

// Delay returns the wait before the next attempt after failedAttempt
// (1-based) has failed. Out-of-range attempts clamp to the schedule edges.
func (p RetryPolicy) Delay(failedAttempt int) time.Duration {
	if len(p.Backoff) == 0 {
		return 0
	}
	idx := failedAttempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(p.Backoff) {
		idx = len(p.Backoff) - 1
	}
	return p.Backoff[idx]
}

// Exhausted reports whether a job that has made attempts attempts is out
// of retries under this policy.
func (p RetryPolicy) Exhausted(attempts int) bool {
	return attempts > p.MaxRetries
}

// BackoffSeconds returns the schedule as whole seconds for persistence.
func (p RetryPolicy) BackoffSeconds() []int32 {
	seconds := make([]int32, 0, len(p.Backoff))
	for _, d := range p.Backoff {
		s := int32(d / time.Second)
		if s < 1 {
			s = 1
		}
		seconds = append(seconds, s)
	}
	return seconds
}
