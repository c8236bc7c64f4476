package config

import "time"

// WebhookConfig contains outbound webhook delivery configuration.
//
// Each delivery attempt POSTs the verification result to TargetURL with a
// freshly minted bearer token signed with SigningSecret.
type WebhookConfig struct {
	// TargetURL is the downstream endpoint that receives verification results.
	TargetURL string `env:"TARGET_URL" envDefault:"http://localhost:9000/webhook"`

	// SigningSecret is the HMAC secret used to sign delivery tokens.
	// Falls back to the API auth secret when empty.
	SigningSecret string `env:"SIGNING_SECRET"`

	// TokenSubject is the fixed subject claim identifying this sender.
	TokenSubject string `env:"TOKEN_SUBJECT" envDefault:"verify-api"`

	// TokenTTL is the lifetime of each per-attempt delivery token.
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"5m"`

	// RequestTimeout bounds a single delivery attempt end to end.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	// InsecureSkipVerify disables TLS certificate verification for
	// deliveries. Development escape hatch for self-signed endpoints;
	// bootstrap logs a warning whenever it is set.
	InsecureSkipVerify bool `env:"INSECURE_SKIP_VERIFY" envDefault:"false"`

	// MaxRetries is the number of retries after the initial delivery
	// attempt, so each job is attempted up to MaxRetries+1 times.
	MaxRetries int `env:"MAX_RETRIES" envDefault:"3"`

	// RetryBackoffSeconds is the wait schedule between attempts. Attempt n
	// failure waits RetryBackoffSeconds[n-1]; the last entry repeats when
	// the schedule is shorter than the attempt count.
	RetryBackoffSeconds []int `env:"RETRY_BACKOFF_SECONDS" envDefault:"5,10,30"`
}

// Sanitize applies guardrails to webhook delivery configuration values.
func (w *WebhookConfig) Sanitize() {
	if w.TokenTTL < 30*time.Second {
		w.TokenTTL = 30 * time.Second
	}
	if w.RequestTimeout <= 0 {
		w.RequestTimeout = 30 * time.Second
	}
	if w.MaxRetries < 1 {
		w.MaxRetries = 1
	}
	if len(w.RetryBackoffSeconds) == 0 {
		w.RetryBackoffSeconds = []int{5, 10, 30}
	}
	for i, s := range w.RetryBackoffSeconds {
		if s < 1 {
			w.RetryBackoffSeconds[i] = 1
		}
	}
}

// VerificationConfig contains deferred verification task configuration.
type VerificationConfig struct {
	// SimulatedDelay is how long the stub provider takes to "complete"
	// a verification call.
	SimulatedDelay time.Duration `env:"SIMULATED_DELAY" envDefault:"10s"`

	// TaskTimeout bounds a single background verification task, including
	// the provider call and the enqueue.
	TaskTimeout time.Duration `env:"TASK_TIMEOUT" envDefault:"2m"`

	// StatusTTL is how long status records are retained in the status store.
	StatusTTL time.Duration `env:"STATUS_TTL" envDefault:"24h"`
}

// Sanitize applies guardrails to verification configuration values.
func (v *VerificationConfig) Sanitize() {
	if v.SimulatedDelay < 0 {
		v.SimulatedDelay = 0
	}
	if v.TaskTimeout < 10*time.Second {
		v.TaskTimeout = 10 * time.Second
	}
	if v.TaskTimeout < v.SimulatedDelay+10*time.Second {
		v.TaskTimeout = v.SimulatedDelay + 10*time.Second
	}
	if v.StatusTTL < time.Minute {
		v.StatusTTL = time.Minute
	}
}
