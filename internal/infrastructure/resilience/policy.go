package resilience

import "time"

// Config is the retry and breaker policy for one outbound dependency.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

// PublishConfig fits the task queue: publishes are cheap, so a few quick
// retries are attempted before ingestion applies its fallback write.
func PublishConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 50 * time.Millisecond,
		RetryMaxBackoff:     400 * time.Millisecond,
		RetryMultiplier:     2,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      15 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// ClassifierConfig fits the AI service. Calls run for up to minutes, so the
// breaker trips on fewer samples and stays open longer than for publishes.
func ClassifierConfig(attempts int, breaker bool) Config {
	return Config{
		RetryMaxAttempts:    attempts,
		RetryInitialBackoff: 500 * time.Millisecond,
		RetryMaxBackoff:     5 * time.Second,
		RetryMultiplier:     3,

		BreakerEnabled:          breaker,
		BreakerMinRequests:      5,
		BreakerFailureRatio:     0.6,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	}
}

// WithRetryAttempts returns a copy with a different attempt budget.
func (c Config) WithRetryAttempts(attempts int) Config {
	c.RetryMaxAttempts = attempts
	return c
}

// normalize fills unset or out-of-range fields from the publish policy.
func (c Config) normalize() Config {
	fallback := PublishConfig()
	if c.RetryMaxAttempts < 1 {
		c.RetryMaxAttempts = 1
	}
	if c.RetryInitialBackoff <= 0 {
		c.RetryInitialBackoff = fallback.RetryInitialBackoff
	}
	c.RetryMaxBackoff = max(c.RetryMaxBackoff, c.RetryInitialBackoff)
	if c.RetryMultiplier < 1 {
		c.RetryMultiplier = fallback.RetryMultiplier
	}

	if !c.BreakerEnabled {
		return c
	}
	if c.BreakerMinRequests == 0 {
		c.BreakerMinRequests = fallback.BreakerMinRequests
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		c.BreakerFailureRatio = fallback.BreakerFailureRatio
	}
	if c.BreakerOpenTimeout <= 0 {
		c.BreakerOpenTimeout = fallback.BreakerOpenTimeout
	}
	if c.BreakerHalfOpenMaxCalls == 0 {
		c.BreakerHalfOpenMaxCalls = fallback.BreakerHalfOpenMaxCalls
	}
	return c
}
