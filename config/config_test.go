package config

import (
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:  "single service - http",
			input: "http",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP: true,
			},
			expectError: false,
		},
		{
			name:  "single service - webhook-runner",
			input: "webhook-runner",
			expected: map[ServiceMode]bool{
				ServiceModeWebhookRunner: true,
			},
			expectError: false,
		},
		{
			name:  "single service - reaper",
			input: "reaper",
			expected: map[ServiceMode]bool{
				ServiceModeReaper: true,
			},
			expectError: false,
		},
		{
			name:  "multiple services - http and webhook-runner",
			input: "http,webhook-runner",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:          true,
				ServiceModeWebhookRunner: true,
			},
			expectError: false,
		},
		{
			name:  "all services",
			input: "http,webhook-runner,reaper",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:          true,
				ServiceModeWebhookRunner: true,
				ServiceModeReaper:        true,
			},
			expectError: false,
		},
		{
			name:  "services with spaces",
			input: " http , webhook-runner , reaper ",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:          true,
				ServiceModeWebhookRunner: true,
				ServiceModeReaper:        true,
			},
			expectError: false,
		},
		{
			name:  "duplicate services",
			input: "http,http,webhook-runner",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:          true,
				ServiceModeWebhookRunner: true,
			},
			expectError: false,
		},
		{
			name:        "empty string",
			input:       "",
			expected:    nil,
			expectError: true,
		},
		{
			name:        "only spaces and commas",
			input:       " , , ",
			expected:    nil,
			expectError: true,
		},
		{
			name:        "invalid service name",
			input:       "http,invalid-service",
			expected:    nil,
			expectError: true,
		},
		{
			name:        "mixed valid and invalid",
			input:       "http,webhook-runner,invalid",
			expected:    nil,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseServices(tt.input)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if len(result) != len(tt.expected) {
				t.Errorf("expected %d services, got %d", len(tt.expected), len(result))
				return
			}

			for service, expected := range tt.expected {
				if result[service] != expected {
					t.Errorf("expected service %s to be %v, got %v", service, expected, result[service])
				}
			}
		})
	}
}

func TestConfig_GetEnabledServices(t *testing.T) {
	tests := []struct {
		name        string
		services    string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:     "default configuration",
			services: "http",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP: true,
			},
			expectError: false,
		},
		{
			name:     "multiple services",
			services: "http,webhook-runner",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:          true,
				ServiceModeWebhookRunner: true,
			},
			expectError: false,
		},
		{
			name:        "invalid configuration",
			services:    "invalid-service",
			expected:    nil,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AppConfig{Services: tt.services}
			result, err := cfg.GetEnabledServices()

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if len(result) != len(tt.expected) {
				t.Errorf("expected %d services, got %d", len(tt.expected), len(result))
				return
			}

			for service, expected := range tt.expected {
				if result[service] != expected {
					t.Errorf("expected service %s to be %v, got %v", service, expected, result[service])
				}
			}
		})
	}
}

func TestAppConfig_ParseAuthEnv(t *testing.T) {
	t.Setenv("AUTH_SIGNING_SECRET", "super-secret")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL", "45m")
	t.Setenv("AUTH_BCRYPT_COST", "12")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}

	expected := AuthConfig{
		SigningSecret:  "super-secret",
		AccessTokenTTL: 45 * time.Minute,
		BcryptCost:     12,
	}

	if !reflect.DeepEqual(cfg.Auth, expected) {
		t.Fatalf("unexpected auth configuration:\nexpected: %#v\ngot:      %#v", expected, cfg.Auth)
	}
}

func TestAppConfig_ParseWebhookEnv(t *testing.T) {
	t.Setenv("WEBHOOK_TARGET_URL", "https://hooks.example.com/verify")
	t.Setenv("WEBHOOK_SIGNING_SECRET", "hook-secret")
	t.Setenv("WEBHOOK_TOKEN_SUBJECT", "verify-sender")
	t.Setenv("WEBHOOK_TOKEN_TTL", "5m")
	t.Setenv("WEBHOOK_INSECURE_SKIP_VERIFY", "true")
	t.Setenv("WEBHOOK_RETRY_BACKOFF_SECONDS", "1,2,3")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}

	if cfg.Webhook.TargetURL != "https://hooks.example.com/verify" {
		t.Errorf("unexpected target url: %q", cfg.Webhook.TargetURL)
	}
	if cfg.Webhook.SigningSecret != "hook-secret" {
		t.Errorf("unexpected signing secret: %q", cfg.Webhook.SigningSecret)
	}
	if cfg.Webhook.TokenSubject != "verify-sender" {
		t.Errorf("unexpected token subject: %q", cfg.Webhook.TokenSubject)
	}
	if cfg.Webhook.TokenTTL != 5*time.Minute {
		t.Errorf("unexpected token ttl: %v", cfg.Webhook.TokenTTL)
	}
	if !cfg.Webhook.InsecureSkipVerify {
		t.Error("expected insecure skip verify to be enabled")
	}
	if !reflect.DeepEqual(cfg.Webhook.RetryBackoffSeconds, []int{1, 2, 3}) {
		t.Errorf("unexpected backoff schedule: %v", cfg.Webhook.RetryBackoffSeconds)
	}
}

func TestConfig_ServiceEnabledMethods(t *testing.T) {
	tests := []struct {
		name                  string
		services              string
		expectedHTTP          bool
		expectedWebhookRunner bool
		expectedReaper        bool
	}{
		{
			name:                  "default - http only",
			services:              "http",
			expectedHTTP:          true,
			expectedWebhookRunner: false,
			expectedReaper:        false,
		},
		{
			name:                  "http and webhook-runner",
			services:              "http,webhook-runner",
			expectedHTTP:          true,
			expectedWebhookRunner: true,
			expectedReaper:        false,
		},
		{
			name:                  "all services",
			services:              "http,webhook-runner,reaper",
			expectedHTTP:          true,
			expectedWebhookRunner: true,
			expectedReaper:        true,
		},
		{
			name:                  "webhook-runner only",
			services:              "webhook-runner",
			expectedHTTP:          false,
			expectedWebhookRunner: true,
			expectedReaper:        false,
		},
		{
			name:                  "reaper only",
			services:              "reaper",
			expectedHTTP:          false,
			expectedWebhookRunner: false,
			expectedReaper:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AppConfig{Services: tt.services}

			if cfg.IsHTTPServerEnabled() != tt.expectedHTTP {
				t.Errorf("IsHTTPServerEnabled(): expected %v, got %v", tt.expectedHTTP, cfg.IsHTTPServerEnabled())
			}

			if cfg.IsWebhookRunnerEnabled() != tt.expectedWebhookRunner {
				t.Errorf(
					"IsWebhookRunnerEnabled(): expected %v, got %v",
					tt.expectedWebhookRunner,
					cfg.IsWebhookRunnerEnabled(),
				)
			}

			if cfg.IsReaperEnabled() != tt.expectedReaper {
				t.Errorf("IsReaperEnabled(): expected %v, got %v", tt.expectedReaper, cfg.IsReaperEnabled())
			}
		})
	}
}

func TestConfig_ServiceEnabledMethodsWithInvalidConfig(t *testing.T) {
	cfg := AppConfig{Services: "invalid-service"}

	// All methods should return false when configuration is invalid
	if cfg.IsHTTPServerEnabled() != false {
		t.Errorf("IsHTTPServerEnabled() with invalid config: expected false, got true")
	}

	if cfg.IsWebhookRunnerEnabled() != false {
		t.Errorf("IsWebhookRunnerEnabled() with invalid config: expected false, got true")
	}

	if cfg.IsReaperEnabled() != false {
		t.Errorf("IsReaperEnabled() with invalid config: expected false, got true")
	}
}

func TestValidServiceModes(t *testing.T) {
	modes := ValidServiceModes()
	expected := []ServiceMode{
		ServiceModeHTTP,
		ServiceModeWebhookRunner,
		ServiceModeReaper,
	}

	if len(modes) != len(expected) {
		t.Errorf("expected %d service modes, got %d", len(expected), len(modes))
	}

	for i, mode := range modes {
		if mode != expected[i] {
			t.Errorf("expected service mode %s at index %d, got %s", expected[i], i, mode)
		}
	}
}

func TestWebhookConfig_Sanitize(t *testing.T) {
	cfg := WebhookConfig{
		TokenTTL:            0,
		RequestTimeout:      -1 * time.Second,
		MaxRetries:          0,
		RetryBackoffSeconds: nil,
	}

	cfg.Sanitize()

	if cfg.TokenTTL < 30*time.Second {
		t.Errorf("expected token ttl floor, got %v", cfg.TokenTTL)
	}
	if cfg.RequestTimeout <= 0 {
		t.Errorf("expected request timeout fallback, got %v", cfg.RequestTimeout)
	}
	if cfg.MaxRetries != 1 {
		t.Errorf("expected max retries clamp to 1, got %d", cfg.MaxRetries)
	}
	if !reflect.DeepEqual(cfg.RetryBackoffSeconds, []int{5, 10, 30}) {
		t.Errorf("expected default backoff schedule, got %v", cfg.RetryBackoffSeconds)
	}

	cfg = WebhookConfig{RetryBackoffSeconds: []int{0, -3, 7}}
	cfg.Sanitize()
	if !reflect.DeepEqual(cfg.RetryBackoffSeconds, []int{1, 1, 7}) {
		t.Errorf("expected negative backoff entries clamped, got %v", cfg.RetryBackoffSeconds)
	}
}

func TestVerificationConfig_Sanitize(t *testing.T) {
	cfg := VerificationConfig{
		SimulatedDelay: -1 * time.Second,
		TaskTimeout:    0,
		StatusTTL:      0,
	}

	cfg.Sanitize()

	if cfg.SimulatedDelay != 0 {
		t.Errorf("expected simulated delay clamp to 0, got %v", cfg.SimulatedDelay)
	}
	if cfg.TaskTimeout < 10*time.Second {
		t.Errorf("expected task timeout floor, got %v", cfg.TaskTimeout)
	}
	if cfg.StatusTTL < time.Minute {
		t.Errorf("expected status ttl floor, got %v", cfg.StatusTTL)
	}

	// Timeout must cover the simulated delay with headroom.
	cfg = VerificationConfig{SimulatedDelay: 90 * time.Second, TaskTimeout: 30 * time.Second, StatusTTL: time.Hour}
	cfg.Sanitize()
	if cfg.TaskTimeout < 100*time.Second {
		t.Errorf("expected task timeout to cover simulated delay, got %v", cfg.TaskTimeout)
	}
}
